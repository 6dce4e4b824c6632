package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	accountHandler "github.com/jwalitptl/salon-api/internal/handler/account"
	authHandler "github.com/jwalitptl/salon-api/internal/handler/auth"
	bookingHandler "github.com/jwalitptl/salon-api/internal/handler/booking"
	"github.com/jwalitptl/salon-api/internal/handler/health"
	promHandler "github.com/jwalitptl/salon-api/internal/handler/prometheus"
	storeHandler "github.com/jwalitptl/salon-api/internal/handler/store"
	"github.com/jwalitptl/salon-api/internal/middleware"
	"github.com/jwalitptl/salon-api/internal/model"
	"github.com/jwalitptl/salon-api/internal/router"
	accountService "github.com/jwalitptl/salon-api/internal/service/account"
	authService "github.com/jwalitptl/salon-api/internal/service/auth"
	"github.com/jwalitptl/salon-api/internal/service/availability"
	"github.com/jwalitptl/salon-api/internal/service/booking"
	"github.com/jwalitptl/salon-api/internal/service/catalog"
	"github.com/jwalitptl/salon-api/internal/testutil"
	"github.com/jwalitptl/salon-api/pkg/auth"
	"github.com/jwalitptl/salon-api/pkg/httputil"
	"github.com/jwalitptl/salon-api/pkg/metrics"
	"github.com/jwalitptl/salon-api/pkg/security"
)

type apiEnv struct {
	engine  *gin.Engine
	f       *testutil.Fixture
	store   *model.Store
	service *model.Service
	date    model.Date
}

func newAPI(t *testing.T, settings model.Settings) *apiEnv {
	t.Helper()
	require.NoError(t, middleware.RegisterValidators())

	f := testutil.NewFixture(t)
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics("test", reg)

	store := f.Store(t, 24)
	f.OpenAllWeek(t, store.ID, "09:00", "18:00", 30)
	service := f.Service(t, store.ID, 30, true)

	jwtSvc := auth.NewJWTService("test-secret", "salon-api", time.Hour)
	availabilitySvc := availability.NewService(f.Stores, f.Services, f.Hours, f.Bookings, time.UTC, availability.WithMetrics(m))
	bookingSvc := booking.NewService(f.Bookings, f.Stores, time.UTC, booking.WithMetrics(m))
	catalogSvc := catalog.NewService(f.Stores, f.Services, f.Hours, f.Professionals, f.Accounts)
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	authSvc := authService.NewService(f.Accounts, jwtSvc, hasher, nil)
	accountSvc := accountService.NewService(f.Accounts, hasher, nil)

	httpMetrics := promHandler.New("test", reg, reg)
	r := router.NewRouter(
		middleware.NewAuthMiddleware(jwtSvc),
		httpMetrics,
		health.NewHandler(f.DB, httpMetrics.Handler()),
		router.RouterConfig{
			Mode:       gin.TestMode,
			CORSConfig: middleware.DefaultCORSConfig(),
			Settings:   settings,
		},
		authHandler.NewHandler(authSvc),
		accountHandler.NewHandler(accountSvc),
		storeHandler.NewHandler(catalogSvc, availabilitySvc, bookingSvc),
		bookingHandler.NewHandler(bookingSvc),
	)
	r.Setup()

	return &apiEnv{
		engine:  r.Engine(),
		f:       f,
		store:   store,
		service: service,
		date:    model.DateOf(time.Now().UTC()).AddDays(3),
	}
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func (e *apiEnv) login(t *testing.T, account *model.Account) string {
	t.Helper()

	w := e.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": account.Email, "password": testutil.Password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var tokens model.TokenResponse
	decodeData(t, w, &tokens)
	return tokens.AccessToken
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()

	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "success", resp.Status, w.Body.String())
	require.NoError(t, json.Unmarshal(resp.Data, out))
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var resp httputil.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Code
}

func (e *apiEnv) availabilityPath() string {
	return "/api/v1/stores/" + e.store.ID.String() + "/availability?service_id=" + e.service.ID.String() + "&date=" + e.date.String()
}

func TestBookingLifecycle(t *testing.T) {
	e := newAPI(t, model.Settings{})
	customer := e.f.Account(t, model.RoleCustomer)
	other := e.f.Account(t, model.RoleCustomer)
	staff := e.f.Staff(t, e.store.ID)

	customerToken := e.login(t, customer)
	otherToken := e.login(t, other)
	staffToken := e.login(t, staff)

	w := e.do(t, http.MethodGet, e.availabilityPath(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	var slots []model.Slot
	decodeData(t, w, &slots)
	assert.Len(t, slots, 18)

	create := gin.H{
		"store_id":   e.store.ID,
		"service_id": e.service.ID,
		"date":       e.date.String(),
		"start_time": "10:00",
	}
	w = e.do(t, http.MethodPost, "/api/v1/bookings", customerToken, create)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created model.Booking
	decodeData(t, w, &created)
	assert.Equal(t, model.BookingStatusPending, created.Status)
	assert.Equal(t, customer.ID, created.CustomerID)

	w = e.do(t, http.MethodPost, "/api/v1/bookings", otherToken, create)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "slot_taken", errorCode(t, w))

	w = e.do(t, http.MethodGet, e.availabilityPath(), "", nil)
	decodeData(t, w, &slots)
	assert.Len(t, slots, 17)

	w = e.do(t, http.MethodGet, "/api/v1/bookings/mine", customerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []model.Booking
	decodeData(t, w, &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, created.ID, mine[0].ID)

	bookingPath := "/api/v1/bookings/" + created.ID.String()

	w = e.do(t, http.MethodGet, bookingPath, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "not_owner", errorCode(t, w))

	w = e.do(t, http.MethodPatch, bookingPath+"/status", customerToken, gin.H{"status": "confirmed"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", errorCode(t, w))

	w = e.do(t, http.MethodPatch, bookingPath+"/status", staffToken, gin.H{"status": "confirmed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, http.MethodPatch, bookingPath+"/status", staffToken, gin.H{"status": "pending"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invalid_transition", errorCode(t, w))

	w = e.do(t, http.MethodPost, bookingPath+"/reschedule", customerToken, gin.H{"date": e.date.String(), "start_time": "11:00"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	agenda := "/api/v1/stores/" + e.store.ID.String() + "/agenda?date=" + e.date.String()
	w = e.do(t, http.MethodGet, agenda, staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var day []model.Booking
	decodeData(t, w, &day)
	require.Len(t, day, 1)
	assert.Equal(t, model.NewClock(11, 0), day[0].StartTime)

	w = e.do(t, http.MethodGet, agenda, customerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPost, bookingPath+"/cancel", customerToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var cancelled model.Booking
	decodeData(t, w, &cancelled)
	assert.Equal(t, model.BookingStatusCancelled, cancelled.Status)

	w = e.do(t, http.MethodPost, bookingPath+"/cancel", customerToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already_terminal", errorCode(t, w))
}

func TestRequestErrors(t *testing.T) {
	e := newAPI(t, model.Settings{})
	token := e.login(t, e.f.Account(t, model.RoleCustomer))
	staffToken := e.login(t, e.f.Staff(t, e.store.ID))
	createAt := func(date, start string) gin.H {
		return gin.H{"store_id": e.store.ID, "service_id": e.service.ID, "date": date, "start_time": start}
	}
	storePath := "/api/v1/stores/" + e.store.ID.String()

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   interface{}
		status int
		code   string
	}{
		{"no token", http.MethodPost, "/api/v1/bookings", "", gin.H{}, http.StatusUnauthorized, "unauthorized"},
		{"missing fields", http.MethodPost, "/api/v1/bookings", token, gin.H{"date": "2030-01-01"}, http.StatusBadRequest, "invalid_input"},
		{"bad start time", http.MethodPost, "/api/v1/bookings", token, gin.H{
			"store_id": e.store.ID, "service_id": e.service.ID, "date": e.date.String(), "start_time": "25:00",
		}, http.StatusBadRequest, "invalid_input"},
		{"start time with trailing garbage", http.MethodPost, "/api/v1/bookings", token, createAt(e.date.String(), "09:5x"), http.StatusBadRequest, "invalid_input"},
		{"start time with shifted separator", http.MethodPost, "/api/v1/bookings", token, createAt(e.date.String(), "1:300"), http.StatusBadRequest, "invalid_input"},
		{"signed start time", http.MethodPost, "/api/v1/bookings", token, createAt(e.date.String(), "+9:00"), http.StatusBadRequest, "invalid_input"},
		{"unpadded date", http.MethodPost, "/api/v1/bookings", token, createAt("2030-1-05", "10:00"), http.StatusBadRequest, "invalid_input"},
		{"availability with malformed date", http.MethodGet, storePath + "/availability?service_id=" + e.service.ID.String() + "&date=2030-13-01", "", nil, http.StatusBadRequest, "invalid_input"},
		{"reschedule to malformed time", http.MethodPost, "/api/v1/bookings/" + uuid.NewString() + "/reschedule", token, gin.H{"date": e.date.String(), "start_time": "10:3"}, http.StatusBadRequest, "invalid_input"},
		{"hours with shifted separator", http.MethodPut, storePath + "/hours/2", staffToken, gin.H{"opens_at": "1:300", "closes_at": "18:00"}, http.StatusBadRequest, "invalid_input"},
		{"hours with garbage", http.MethodPut, storePath + "/hours/2", staffToken, gin.H{"opens_at": "09:00", "closes_at": "18:0x"}, http.StatusBadRequest, "invalid_input"},
		{"off the grid", http.MethodPost, "/api/v1/bookings", token, gin.H{
			"store_id": e.store.ID, "service_id": e.service.ID, "date": e.date.String(), "start_time": "10:10",
		}, http.StatusUnprocessableEntity, "outside_operating_window"},
		{"unknown booking", http.MethodGet, "/api/v1/bookings/" + uuid.NewString(), token, nil, http.StatusNotFound, "not_found"},
		{"malformed id", http.MethodGet, "/api/v1/bookings/nope", token, nil, http.StatusBadRequest, "invalid_input"},
		{"availability without service", http.MethodGet, "/api/v1/stores/" + e.store.ID.String() + "/availability?date=" + e.date.String(), "", nil, http.StatusBadRequest, "invalid_input"},
		{"unknown store", http.MethodGet, "/api/v1/stores/" + uuid.NewString(), "", nil, http.StatusNotFound, "not_found"},
		{"wrong password", http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "nobody@example.com", "password": "whatever-pass"}, http.StatusUnauthorized, "unauthorized"},
		{"admin only", http.MethodPost, "/api/v1/stores", token, gin.H{"name": "X", "city": "Recife"}, http.StatusForbidden, "forbidden"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, errorCode(t, w))
		})
	}

	w := e.do(t, http.MethodGet, e.availabilityPath(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var slots []model.Slot
	decodeData(t, w, &slots)
	assert.Len(t, slots, 18, "rejected requests must not book anything")

	window, err := e.f.Hours.GetWindow(context.Background(), e.store.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, model.NewClock(9, 0), window.OpensAt)
	assert.Equal(t, model.NewClock(18, 0), window.ClosesAt)
}

func TestCatalogRoutes(t *testing.T) {
	e := newAPI(t, model.Settings{})
	adminToken := e.login(t, e.f.Account(t, model.RoleAdmin))
	staff := e.f.Account(t, model.RoleStaff)
	staffToken := e.login(t, staff)

	w := e.do(t, http.MethodPost, "/api/v1/stores", adminToken, gin.H{"name": "Studio Bela", "city": "Olinda", "state": "PE"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var store model.Store
	decodeData(t, w, &store)
	storePath := "/api/v1/stores/" + store.ID.String()

	w = e.do(t, http.MethodPost, storePath+"/services", staffToken, gin.H{"name": "Escova", "duration_minutes": 45})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPost, storePath+"/staff", adminToken, gin.H{"account_id": staff.ID})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = e.do(t, http.MethodPost, storePath+"/services", staffToken, gin.H{"name": "Escova", "duration_minutes": 45})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(t, http.MethodPut, storePath+"/hours/1", staffToken, gin.H{"opens_at": "09:00", "closes_at": "17:00"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, http.MethodPut, storePath+"/hours/1", staffToken, gin.H{"opens_at": "17:00", "closes_at": "09:00"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPut, storePath+"/cancellation-policy", staffToken, gin.H{"min_hours_before_start": 12})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, http.MethodGet, storePath, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var details struct {
		model.Store
		Services []model.Service         `json:"services"`
		Hours    []model.OperatingWindow `json:"hours"`
	}
	decodeData(t, w, &details)
	assert.Equal(t, 12, details.CancellationPolicyHours)
	assert.Len(t, details.Services, 1)
	assert.Len(t, details.Hours, 1)

	w = e.do(t, http.MethodGet, "/api/v1/stores?city=olinda", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stores []model.Store
	decodeData(t, w, &stores)
	assert.Len(t, stores, 1)
}

func TestMaintenanceModeAndHealth(t *testing.T) {
	e := newAPI(t, model.Settings{MaintenanceMode: true})
	token := e.login(t, e.f.Account(t, model.RoleCustomer))

	w := e.do(t, http.MethodGet, e.availabilityPath(), "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodPost, "/api/v1/bookings", token, gin.H{
		"store_id": e.store.ID, "service_id": e.service.ID, "date": e.date.String(), "start_time": "10:00",
	})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = e.do(t, http.MethodGet, "/api/v1/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = e.do(t, http.MethodGet, "/api/v1/health/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_http_requests_total")
}

func TestAccountRoutes(t *testing.T) {
	e := newAPI(t, model.Settings{})
	adminToken := e.login(t, e.f.Account(t, model.RoleAdmin))

	register := gin.H{"email": "nova@example.com", "name": "Nova Cliente", "password": "long-enough"}
	w := e.do(t, http.MethodPost, "/api/v1/auth/register", "", register)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var registered model.Account
	decodeData(t, w, &registered)
	assert.Equal(t, model.RoleCustomer, registered.Role)
	assert.NotContains(t, w.Body.String(), "password")

	w = e.do(t, http.MethodPost, "/api/v1/auth/register", "", register)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_input", errorCode(t, w))

	w = e.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "short@example.com", "name": "Short", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "NOVA@example.com", "password": "long-enough"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var tokens model.TokenResponse
	decodeData(t, w, &tokens)
	customerToken := tokens.AccessToken

	w = e.do(t, http.MethodGet, "/api/v1/accounts/me", customerToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var me model.Account
	decodeData(t, w, &me)
	assert.Equal(t, registered.ID, me.ID)

	w = e.do(t, http.MethodPatch, "/api/v1/accounts/me", customerToken, gin.H{"name": "Nova Silva"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decodeData(t, w, &me)
	assert.Equal(t, "Nova Silva", me.Name)

	w = e.do(t, http.MethodGet, "/api/v1/accounts", customerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPost, "/api/v1/accounts", adminToken, gin.H{
		"email": "cabeleireira@example.com", "name": "Ana", "password": "long-enough", "role": "staff",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var staff model.Account
	decodeData(t, w, &staff)
	assert.Equal(t, model.RoleStaff, staff.Role)

	w = e.do(t, http.MethodGet, "/api/v1/accounts?role=staff", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var staffList []model.Account
	decodeData(t, w, &staffList)
	require.Len(t, staffList, 1)
	assert.Equal(t, staff.ID, staffList[0].ID)

	w = e.do(t, http.MethodGet, "/api/v1/accounts?role=owner", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPut, "/api/v1/accounts/"+registered.ID.String(), adminToken, gin.H{"phone": "+55 81 90000-0000"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, http.MethodDelete, "/api/v1/accounts/"+registered.ID.String(), adminToken, nil)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = e.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "nova@example.com", "password": "long-enough"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodGet, "/api/v1/accounts/"+uuid.NewString(), adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStoreManagementRoutes(t *testing.T) {
	e := newAPI(t, model.Settings{})
	adminToken := e.login(t, e.f.Account(t, model.RoleAdmin))
	staffToken := e.login(t, e.f.Staff(t, e.store.ID))
	customer := e.f.Account(t, model.RoleCustomer)
	customerToken := e.login(t, customer)
	storePath := "/api/v1/stores/" + e.store.ID.String()

	w := e.do(t, http.MethodPost, "/api/v1/bookings", customerToken, gin.H{
		"store_id": e.store.ID, "service_id": e.service.ID, "date": e.date.String(), "start_time": "10:00",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(t, http.MethodGet, storePath+"/clients", staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var clients []model.StoreClient
	decodeData(t, w, &clients)
	require.Len(t, clients, 1)
	assert.Equal(t, customer.ID, clients[0].AccountID)
	assert.Equal(t, 1, clients[0].BookingCount)
	assert.Equal(t, e.date, clients[0].LastBookingDate)

	w = e.do(t, http.MethodGet, storePath+"/clients", customerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPut, storePath, staffToken, gin.H{"name": "Salao Reformado", "state": "pe"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated model.Store
	decodeData(t, w, &updated)
	assert.Equal(t, "Salao Reformado", updated.Name)
	assert.Equal(t, "PE", updated.State)

	w = e.do(t, http.MethodPut, storePath, staffToken, gin.H{"state": "Pernambuco"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodDelete, storePath, staffToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodDelete, storePath, adminToken, nil)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = e.do(t, http.MethodGet, storePath, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodPost, "/api/v1/bookings", customerToken, gin.H{
		"store_id": e.store.ID, "service_id": e.service.ID, "date": e.date.String(), "start_time": "11:00",
	})
	assert.NotEqual(t, http.StatusCreated, w.Code)
}
