package account

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/salon-api/internal/handler"
	"github.com/jwalitptl/salon-api/internal/model"
	"github.com/jwalitptl/salon-api/internal/service/account"
)

type Handler struct {
	service account.AccountServicer
}

func NewHandler(service account.AccountServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r handler.Routes) {
	me := r.Authenticated.Group("/accounts")
	{
		me.GET("/me", h.GetMe)
		me.PATCH("/me", h.UpdateMe)
	}

	admin := r.Admin.Group("/accounts")
	{
		admin.GET("", h.ListAccounts)
		admin.POST("", h.CreateAccount)
		admin.GET("/:id", h.GetAccount)
		admin.PUT("/:id", h.UpdateAccount)
		admin.DELETE("/:id", h.DeactivateAccount)
	}
}

func (h *Handler) GetMe(c *gin.Context) {
	p, err := handler.Principal(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	acc, err := h.service.GetAccount(c.Request.Context(), p, p.AccountID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondOK(c, acc)
}

func (h *Handler) UpdateMe(c *gin.Context) {
	p, err := handler.Principal(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	var req model.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, err)
		return
	}

	acc, err := h.service.UpdateProfile(c.Request.Context(), p, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondOK(c, acc)
}

type listQuery struct {
	Role   string `form:"role" binding:"omitempty,oneof=customer staff admin"`
	Active *bool  `form:"active"`
	Search string `form:"search" binding:"max=100"`
	Limit  int    `form:"limit" binding:"min=0,max=200"`
	Offset int    `form:"offset" binding:"min=0"`
}

func (h *Handler) ListAccounts(c *gin.Context) {
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

	accounts, err := h.service.ListAccounts(c.Request.Context(), p, &model.AccountFilters{
		Role:       model.Role(q.Role),
		Active:     q.Active,
		Search:     q.Search,
		Pagination: model.Pagination{Limit: q.Limit, Offset: q.Offset},
	})
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondOK(c, accounts)
}

func (h *Handler) CreateAccount(c *gin.Context) {
	p, err := handler.Principal(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	var req model.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, err)
		return
	}

	acc, err := h.service.CreateAccount(c.Request.Context(), p, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondCreated(c, acc)
}

func (h *Handler) GetAccount(c *gin.Context) {
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

	acc, err := h.service.GetAccount(c.Request.Context(), p, id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondOK(c, acc)
}

func (h *Handler) UpdateAccount(c *gin.Context) {
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
	var req model.UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, err)
		return
	}

	acc, err := h.service.UpdateAccount(c.Request.Context(), p, id, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.RespondOK(c, acc)
}

func (h *Handler) DeactivateAccount(c *gin.Context) {
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

	if err := h.service.DeactivateAccount(c.Request.Context(), p, id); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
