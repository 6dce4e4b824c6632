package store

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/salon-api/internal/handler"
	"github.com/jwalitptl/salon-api/internal/middleware"
	"github.com/jwalitptl/salon-api/internal/model"
	"github.com/jwalitptl/salon-api/internal/service/availability"
	"github.com/jwalitptl/salon-api/internal/service/booking"
	"github.com/jwalitptl/salon-api/internal/service/catalog"
)

type Handler struct {
	catalog      catalog.CatalogServicer
	availability *availability.Service
	bookings     *booking.Service
}

func NewHandler(catalog catalog.CatalogServicer, availability *availability.Service, bookings *booking.Service) *Handler {
	return &Handler{
		catalog:      catalog,
		availability: availability,
		bookings:     bookings,
	}
}

func (h *Handler) RegisterRoutes(r handler.Routes) {
	public := r.Public.Group("/stores")
	{
		public.GET("", h.SearchStores)
		public.GET("/:id", h.GetStore)
		public.GET("/:id/availability", middleware.NoStore(), h.GetAvailability)
		public.GET("/:id/schedule", middleware.NoStore(), h.GetSchedule)
		public.GET("/:id/professionals", h.ListProfessionals)
	}

	staff := r.Staff.Group("/stores")
	{
		staff.PUT("/:id", h.UpdateStore)
		staff.GET("/:id/agenda", middleware.NoStore(), h.GetAgenda)
		staff.GET("/:id/clients", h.ListClients)
		staff.POST("/:id/services", h.CreateService)
		staff.PUT("/:id/services/:service_id", h.UpdateService)
		staff.DELETE("/:id/services/:service_id", h.DeactivateService)
		staff.PUT("/:id/hours/:weekday", h.UpsertHours)
		staff.DELETE("/:id/hours/:weekday", h.DeleteHours)
		staff.PUT("/:id/cancellation-policy", h.UpdateCancellationPolicy)
		staff.POST("/:id/professionals", h.CreateProfessional)
	}

	admin := r.Admin.Group("/stores")
	{
		admin.POST("", h.CreateStore)
		admin.DELETE("/:id", h.DeactivateStore)
		admin.POST("/:id/staff", h.AddStaff)
	}
}

type searchQuery struct {
	City     string `form:"city"`
	District string `form:"district"`
	Search   string `form:"search" binding:"max=100"`
	Limit    int    `form:"limit" binding:"min=0,max=100"`
	Offset   int    `form:"offset" binding:"min=0"`
}

func (h *Handler) SearchStores(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		handler.RespondError(c, err)
		return
	}

	stores, err := h.catalog.SearchStores(c.Request.Context(), &model.StoreFilters{
		City:       q.City,
		District:   q.District,
		Search:     q.Search,
		Pagination: model.Pagination{Limit: q.Limit, Offset: q.Offset},
	})
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondOK(c, stores)
}

func (h *Handler) GetStore(c *gin.Context) {
	id, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	store, err := h.catalog.GetStore(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondOK(c, store)
}

type slotsQuery struct {
	ServiceID string `form:"service_id" binding:"required,uuid"`
	Date      string `form:"date" binding:"required,isodate"`
}

func (q slotsQuery) parse() (uuid.UUID, model.Date, error) {
	serviceID, err := uuid.Parse(q.ServiceID)
	if err != nil {
		return uuid.Nil, model.Date{}, model.NewValidationError("service_id", "must be a UUID")
	}
	date, err := model.ParseDate(q.Date)
	if err != nil {
		return uuid.Nil, model.Date{}, model.NewValidationError("date", err.Error())
	}
	return serviceID, date, nil
}

// slotRequest reads the store, service and date shared by the availability
// endpoints.
func slotRequest(c *gin.Context) (storeID, serviceID uuid.UUID, date model.Date, err error) {
	if storeID, err = handler.UUIDParam(c, "id"); err != nil {
		return
	}
	var q slotsQuery
	if err = c.ShouldBindQuery(&q); err != nil {
		return
	}
	serviceID, date, err = q.parse()
	return
}

func (h *Handler) GetAvailability(c *gin.Context) {
	storeID, serviceID, date, err := slotRequest(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	slots, err := h.availability.GetAvailableSlots(c.Request.Context(), storeID, serviceID, date)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondOK(c, slots)
}

func (h *Handler) GetSchedule(c *gin.Context) {
	storeID, serviceID, date, err := slotRequest(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	slots, err := h.availability.GetDaySchedule(c.Request.Context(), storeID, serviceID, date)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondOK(c, slots)
}

type agendaQuery struct {
	Date   string `form:"date" binding:"required,isodate"`
	Limit  int    `form:"limit" binding:"min=0,max=200"`
	Offset int    `form:"offset" binding:"min=0"`
}

func (h *Handler) GetAgenda(c *gin.Context) {
	p, err := handler.Principal(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	storeID, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	var q agendaQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		handler.RespondError(c, err)
		return
	}
	date, err := model.ParseDate(q.Date)
	if err != nil {
		handler.RespondError(c, model.NewValidationError("date", err.Error()))
		return
	}
	status, err := handler.StatusQuery(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	bookings, err := h.bookings.ListAgenda(c.Request.Context(), p, storeID, date, status, model.Pagination{Limit: q.Limit, Offset: q.Offset})
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondOK(c, bookings)
}

func (h *Handler) CreateStore(c *gin.Context) {
	p, err := handler.Principal(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	var req model.CreateStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, err)
		return
	}

	store, err := h.catalog.CreateStore(c.Request.Context(), p, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondCreated(c, store)
}

func (h *Handler) UpdateStore(c *gin.Context) {
	p, err := handler.Principal(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	storeID, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	var req model.UpdateStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, err)
		return
	}

	store, err := h.catalog.UpdateStore(c.Request.Context(), p, storeID, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondOK(c, store)
}

func (h *Handler) DeactivateStore(c *gin.Context) {
	p, err := handler.Principal(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	storeID, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	if err := h.catalog.DeactivateStore(c.Request.Context(), p, storeID); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type clientsQuery struct {
	Search string `form:"search" binding:"max=100"`
	Limit  int    `form:"limit" binding:"min=0,max=200"`
	Offset int    `form:"offset" binding:"min=0"`
}

func (h *Handler) ListClients(c *gin.Context) {
	p, err := handler.Principal(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	storeID, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	var q clientsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		handler.RespondError(c, err)
		return
	}

	clients, err := h.bookings.ListClients(c.Request.Context(), p, storeID, &model.ClientFilters{
		Search:     q.Search,
		Pagination: model.Pagination{Limit: q.Limit, Offset: q.Offset},
	})
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondOK(c, clients)
}

func (h *Handler) AddStaff(c *gin.Context) {
	p, err := handler.Principal(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	storeID, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	var req model.AddStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, err)
		return
	}

	if err := h.catalog.AddStaff(c.Request.Context(), p, storeID, &req); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) CreateService(c *gin.Context) {
	p, err := handler.Principal(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	storeID, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	var req model.CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, err)
		return
	}

	service, err := h.catalog.CreateService(c.Request.Context(), p, storeID, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondCreated(c, service)
}

func (h *Handler) UpdateService(c *gin.Context) {
	p, err := handler.Principal(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	storeID, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	serviceID, err := handler.UUIDParam(c, "service_id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	var req model.UpdateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, err)
		return
	}

	service, err := h.catalog.UpdateService(c.Request.Context(), p, storeID, serviceID, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondOK(c, service)
}

// DeactivateService hides a service from new bookings; existing bookings keep it.
func (h *Handler) DeactivateService(c *gin.Context) {
	p, err := handler.Principal(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	storeID, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	serviceID, err := handler.UUIDParam(c, "service_id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	if err := h.catalog.DeactivateService(c.Request.Context(), p, storeID, serviceID); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) UpsertHours(c *gin.Context) {
	p, err := handler.Principal(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	storeID, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	weekday, err := handler.IntParam(c, "weekday")
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	var req model.UpsertHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, err)
		return
	}

	window, err := h.catalog.UpsertHours(c.Request.Context(), p, storeID, weekday, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondOK(c, window)
}

func (h *Handler) DeleteHours(c *gin.Context) {
	p, err := handler.Principal(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	storeID, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	weekday, err := handler.IntParam(c, "weekday")
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	if err := h.catalog.DeleteHours(c.Request.Context(), p, storeID, weekday); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) UpdateCancellationPolicy(c *gin.Context) {
	p, err := handler.Principal(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	storeID, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	var req model.UpdateCancellationPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, err)
		return
	}

	store, err := h.catalog.UpdateCancellationPolicy(c.Request.Context(), p, storeID, *req.MinHoursBeforeStart)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondOK(c, store)
}

func (h *Handler) ListProfessionals(c *gin.Context) {
	storeID, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	pros, err := h.catalog.ListProfessionals(c.Request.Context(), storeID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondOK(c, pros)
}

func (h *Handler) CreateProfessional(c *gin.Context) {
	p, err := handler.Principal(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	storeID, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	var req model.CreateProfessionalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, err)
		return
	}

	pro, err := h.catalog.CreateProfessional(c.Request.Context(), p, storeID, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondCreated(c, pro)
}
