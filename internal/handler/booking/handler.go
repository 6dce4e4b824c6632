package booking

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/salon-api/internal/handler"
	"github.com/jwalitptl/salon-api/internal/model"
	"github.com/jwalitptl/salon-api/internal/service/booking"
)

type Handler struct {
	service *booking.Service
}

func NewHandler(service *booking.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r handler.Routes) {
	bookings := r.Authenticated.Group("/bookings")
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("/mine", h.ListMine)
		bookings.GET("/:id", h.GetBooking)
		bookings.POST("/:id/cancel", h.CancelBooking)
		bookings.POST("/:id/reschedule", h.RescheduleBooking)
	}

	staff := r.Staff.Group("/bookings")
	{
		staff.PATCH("/:id/status", h.UpdateStatus)
		staff.POST("/:id/staff-cancel", h.CancelByStaff)
	}
}

func (h *Handler) CreateBooking(c *gin.Context) {
	p, err := handler.Principal(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	var req model.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, err)
		return
	}
	date, start, err := parseSlot(req.Date, req.StartTime)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	b, err := h.service.CreateBooking(c.Request.Context(), p, booking.CreateRequest{
		StoreID:        req.StoreID,
		ServiceID:      req.ServiceID,
		ProfessionalID: req.ProfessionalID,
		CustomerID:     req.CustomerID,
		Date:           date,
		StartTime:      start,
		Notes:          req.Notes,
	})
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondCreated(c, b)
}

type listQuery struct {
	Limit  int `form:"limit" binding:"min=0,max=100"`
	Offset int `form:"offset" binding:"min=0"`
}

func (h *Handler) ListMine(c *gin.Context) {
	p, err := handler.Principal(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		handler.RespondError(c, err)
		return
	}
	status, err := handler.StatusQuery(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	bookings, err := h.service.ListMine(c.Request.Context(), p, status, model.Pagination{Limit: q.Limit, Offset: q.Offset})
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondOK(c, bookings)
}

func (h *Handler) GetBooking(c *gin.Context) {
	p, err := handler.Principal(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	id, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	b, err := h.service.Get(c.Request.Context(), p, id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondOK(c, b)
}

// CancelBooking is the customer cancellation; the store's policy applies.
func (h *Handler) CancelBooking(c *gin.Context) {
	p, err := handler.Principal(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	id, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	b, err := h.service.CancelBooking(c.Request.Context(), id, p.AccountID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondOK(c, b)
}

func (h *Handler) CancelByStaff(c *gin.Context) {
	p, err := handler.Principal(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	id, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	b, err := h.service.CancelByStaff(c.Request.Context(), p, id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondOK(c, b)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	p, err := handler.Principal(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	id, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	var req model.UpdateBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, err)
		return
	}

	b, err := h.service.UpdateStatus(c.Request.Context(), p, id, req.Status)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondOK(c, b)
}

func (h *Handler) RescheduleBooking(c *gin.Context) {
	p, err := handler.Principal(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	id, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	var req model.RescheduleBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, err)
		return
	}
	date, start, err := parseSlot(req.Date, req.StartTime)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	b, err := h.service.RescheduleBooking(c.Request.Context(), p, id, date, start)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondOK(c, b)
}

func parseSlot(dateStr, startStr string) (model.Date, model.Clock, error) {
	date, err := model.ParseDate(dateStr)
	if err != nil {
		return model.Date{}, 0, model.NewValidationError("date", err.Error())
	}
	start, err := model.ParseClock(startStr)
	if err != nil {
		return model.Date{}, 0, model.NewValidationError("start_time", err.Error())
	}
	return date, start, nil
}
