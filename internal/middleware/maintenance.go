package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/salon-api/internal/model"
	apperrors "github.com/jwalitptl/salon-api/pkg/errors"
	"github.com/jwalitptl/salon-api/pkg/httputil"
)

// Maintenance rejects writes while settings.MaintenanceMode is on. Reads
// and the exempt routes keep working.
func Maintenance(settings model.Settings, exempt ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(exempt))
	for _, route := range exempt {
		allowed[route] = struct{}{}
	}
	return func(c *gin.Context) {
		if !settings.MaintenanceMode {
			c.Next()
			return
		}
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		if _, ok := allowed[c.FullPath()]; ok {
			c.Next()
			return
		}
		c.Header("Retry-After", "300")
		httputil.RespondWithError(c, apperrors.Unavailable("service under maintenance", errors.New("maintenance mode")))
	}
}
