package hospital

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/raktseva/raktseva-api/internal/handler"
	"github.com/raktseva/raktseva-api/internal/middleware"
	"github.com/raktseva/raktseva-api/internal/model"
	"github.com/raktseva/raktseva-api/internal/service/hospital"
)

type Handler struct {
	svc *hospital.Service
}

func NewHandler(svc *hospital.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authMw *middleware.AuthMiddleware) {
	hospitals := r.Group("/hospitals",
		authMw.Authenticate(),
		authMw.RequireRole(model.RoleHospital),
	)
	{
		hospitals.POST("/create", h.Create)
		hospitals.GET("/me", h.Me)
		hospitals.PATCH("/me", h.Update)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateHospitalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	hosp, err := h.svc.Create(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(hosp))
}

func (h *Handler) Me(c *gin.Context) {
	hosp, err := h.svc.GetByUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(hosp))
}

func (h *Handler) Update(c *gin.Context) {
	var req model.UpdateHospitalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	hosp, err := h.svc.Update(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(hosp))
}

func currentUserID(c *gin.Context) uuid.UUID {
	id, _ := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	return id
}
