package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/salon-api/internal/model"
	"github.com/jwalitptl/salon-api/pkg/auth"
	"github.com/jwalitptl/salon-api/pkg/httputil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(r http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) httputil.Response {
	var resp httputil.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRateLimitPerClient(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: rate.Every(time.Hour), Burst: 2})
	r := gin.New()
	r.Use(rl.RateLimit())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/", map[string]string{"X-Forwarded-For": "10.0.0.1"}).Code)
	}
	w := perform(r, http.MethodGet, "/", map[string]string{"X-Forwarded-For": "10.0.0.1"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "rate_limited", decode(t, w).Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/", map[string]string{"X-Forwarded-For": "10.0.0.2"}).Code)
}

func TestAuthenticateAndRequireRole(t *testing.T) {
	jwtSvc := auth.NewJWTService("secret", "salon-api", time.Hour)
	m := NewAuthMiddleware(jwtSvc)

	r := gin.New()
	r.GET("/me", m.Authenticate(), func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, p)
	})
	r.GET("/staff", m.Authenticate(), m.RequireRole(model.RoleStaff, model.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	customer := &model.Account{Base: model.Base{ID: uuid.New()}, Email: "c@example.com", Role: model.RoleCustomer}
	token, err := jwtSvc.GenerateAccessToken(customer)
	require.NoError(t, err)
	bearer := map[string]string{"Authorization": "Bearer " + token}

	w := perform(r, http.MethodGet, "/me", bearer)
	require.Equal(t, http.StatusOK, w.Code)
	var p model.Principal
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, customer.ID, p.AccountID)

	w = perform(r, http.MethodGet, "/staff", bearer)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", decode(t, w).Code)

	for _, h := range []map[string]string{
		nil,
		{"Authorization": token},
		{"Authorization": "Bearer nope"},
	} {
		w = perform(r, http.MethodGet, "/me", h)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "unauthorized", decode(t, w).Code)
	}
}

func TestMaintenanceBlocksWrites(t *testing.T) {
	r := gin.New()
	r.Use(Maintenance(model.Settings{MaintenanceMode: true}, "/login"))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.POST("/login", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/", nil).Code)
	assert.Equal(t, http.StatusOK, perform(r, http.MethodPost, "/login", nil).Code)
	w := perform(r, http.MethodPost, "/", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unavailable", decode(t, w).Code)
}

func TestRecoveryAndRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := perform(r, http.MethodGet, "/panic", map[string]string{HeaderXRequestID: "req-1"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "req-1", w.Header().Get(HeaderXRequestID))
	assert.Equal(t, "internal", decode(t, w).Code)
}

func TestValidatorsRegistered(t *testing.T) {
	require.NoError(t, RegisterValidators())

	type body struct {
		Date    string `json:"date" binding:"required,isodate"`
		Start   string `json:"start_time" binding:"required,hhmm"`
		Weekday int    `json:"weekday" binding:"weekday"`
	}
	r := gin.New()
	r.POST("/", func(c *gin.Context) {
		var b body
		if err := c.ShouldBindJSON(&b); err != nil {
			c.JSON(http.StatusBadRequest, err.Error())
			return
		}
		c.Status(http.StatusOK)
	})

	post := func(payload string) int {
		req := httptest.NewRequest(http.MethodPost, "/", stringsReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusOK, post(`{"date":"2030-03-11","start_time":"10:30","weekday":6}`))
	assert.Equal(t, http.StatusOK, post(`{"date":"2030-03-11","start_time":"10:30:00"}`))

	rejected := []struct {
		name    string
		payload string
	}{
		{"day first date", `{"date":"11/03/2030","start_time":"10:30"}`},
		{"impossible date", `{"date":"2030-02-30","start_time":"10:30"}`},
		{"unpadded month", `{"date":"2030-3-11","start_time":"10:30"}`},
		{"hour out of range", `{"date":"2030-03-11","start_time":"25:00"}`},
		{"trailing garbage", `{"date":"2030-03-11","start_time":"09:5x"}`},
		{"shifted separator", `{"date":"2030-03-11","start_time":"1:300"}`},
		{"signed hour", `{"date":"2030-03-11","start_time":"+9:00"}`},
		{"embedded space", `{"date":"2030-03-11","start_time":"9:0 0"}`},
		{"seconds", `{"date":"2030-03-11","start_time":"10:30:15"}`},
		{"weekday out of range", `{"date":"2030-03-11","start_time":"10:30","weekday":7}`},
		{"negative weekday", `{"date":"2030-03-11","start_time":"10:30","weekday":-1}`},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, post(tt.payload))
		})
	}
}

func stringsReader(s string) *strings.Reader { return strings.NewReader(s) }
