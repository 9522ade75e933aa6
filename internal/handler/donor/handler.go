package donor

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/raktseva/raktseva-api/internal/handler"
	"github.com/raktseva/raktseva-api/internal/middleware"
	"github.com/raktseva/raktseva-api/internal/model"
	"github.com/raktseva/raktseva-api/internal/service/bloodrequest"
	"github.com/raktseva/raktseva-api/internal/service/donor"
)

type Handler struct {
	svc        *donor.Service
	requestSvc *bloodrequest.Service
}

func NewHandler(svc *donor.Service, requestSvc *bloodrequest.Service) *Handler {
	return &Handler{svc: svc, requestSvc: requestSvc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authMw *middleware.AuthMiddleware) {
	donors := r.Group("/donors", authMw.Authenticate())

	asDonor := donors.Group("", authMw.RequireRole(model.RoleDonor))
	{
		asDonor.POST("/create", h.Create)
		asDonor.GET("/me", h.Me)
		asDonor.PATCH("/me", h.Update)
		asDonor.GET("/interests/my", h.MyInterests)
	}

	asViewer := donors.Group("", authMw.RequireRole(model.RoleHospital, model.RoleAdmin))
	{
		asViewer.GET("", h.List)
		asViewer.GET("/:id", h.Get)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateDonorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	d, err := h.svc.Create(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(d))
}

func (h *Handler) Me(c *gin.Context) {
	d, err := h.svc.GetByUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(d))
}

func (h *Handler) Update(c *gin.Context) {
	var req model.UpdateDonorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	d, err := h.svc.Update(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(d))
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid donor id"))
		return
	}

	d, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(d))
}

func (h *Handler) List(c *gin.Context) {
	var filters model.DonorFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	donors, err := h.svc.List(c.Request.Context(), &filters)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(donors))
}

func (h *Handler) MyInterests(c *gin.Context) {
	d, err := h.svc.GetByUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		handler.Error(c, err)
		return
	}

	requests, err := h.requestSvc.MyInterests(c.Request.Context(), d)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(requests))
}

func currentUserID(c *gin.Context) uuid.UUID {
	id, _ := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	return id
}
