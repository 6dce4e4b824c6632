// Package handler holds the helpers shared by the HTTP handlers.
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/salon-api/internal/middleware"
	"github.com/jwalitptl/salon-api/internal/model"
	apperrors "github.com/jwalitptl/salon-api/pkg/errors"
)

// Routes are the groups a handler registers on. Authenticated requires a
// valid token, Staff additionally the staff or admin role, Admin the admin
// role.
type Routes struct {
	Public        *gin.RouterGroup
	Authenticated *gin.RouterGroup
	Staff         *gin.RouterGroup
	Admin         *gin.RouterGroup
}

// UUIDParam parses the path parameter name.
func UUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, model.NewValidationError(name, "must be a UUID")
	}
	return id, nil
}

// IntParam parses the path parameter name as an integer.
func IntParam(c *gin.Context, name string) (int, error) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil {
		return 0, model.NewValidationError(name, "must be an integer")
	}
	return n, nil
}

// StatusQuery reads an optional ?status= filter.
func StatusQuery(c *gin.Context) (model.BookingStatus, error) {
	status := model.BookingStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		return "", model.NewValidationError("status", "is not a booking status")
	}
	return status, nil
}

// Principal returns the authenticated caller. Routes using it sit behind
// AuthMiddleware.Authenticate.
func Principal(c *gin.Context) (model.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return model.Principal{}, apperrors.Unauthorized(nil)
	}
	return p, nil
}
