package bloodrequest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/raktseva/raktseva-api/internal/handler"
	"github.com/raktseva/raktseva-api/internal/middleware"
	"github.com/raktseva/raktseva-api/internal/model"
	"github.com/raktseva/raktseva-api/internal/service/bloodrequest"
	"github.com/raktseva/raktseva-api/internal/service/donor"
	"github.com/raktseva/raktseva-api/internal/service/hospital"
)

type Handler struct {
	svc         *bloodrequest.Service
	donorSvc    *donor.Service
	hospitalSvc *hospital.Service
}

func NewHandler(svc *bloodrequest.Service, donorSvc *donor.Service, hospitalSvc *hospital.Service) *Handler {
	return &Handler{svc: svc, donorSvc: donorSvc, hospitalSvc: hospitalSvc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authMw *middleware.AuthMiddleware) {
	requests := r.Group("/blood-requests", authMw.Authenticate())

	asHospital := requests.Group("", authMw.RequireRole(model.RoleHospital))
	{
		asHospital.POST("/create", h.Create)
		asHospital.GET("/my", h.ListMine)
		asHospital.PATCH("/:id/fulfill", h.Fulfill)
		asHospital.PATCH("/:id/extend", h.Extend)
		asHospital.DELETE("/:id/cancel", h.Cancel)
		asHospital.GET("/:id/interested-donors", h.InterestedDonors)
		asHospital.GET("/nearby-donors", h.NearbyDonors)
		asHospital.POST("/notify-donors", h.NotifyDonors)
	}

	asDonor := requests.Group("", authMw.RequireRole(model.RoleDonor))
	{
		asDonor.GET("/available", h.Available)
		asDonor.POST("/:id/help", h.Help)
	}
}

func (h *Handler) Create(c *gin.Context) {
	hosp, ok := h.currentHospital(c)
	if !ok {
		return
	}

	var req model.CreateBloodRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	resp, err := h.svc.Create(c.Request.Context(), hosp, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(resp))
}

func (h *Handler) ListMine(c *gin.Context) {
	hosp, ok := h.currentHospital(c)
	if !ok {
		return
	}

	requests, err := h.svc.ListMine(c.Request.Context(), hosp)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(requests))
}

func (h *Handler) Available(c *gin.Context) {
	d, ok := h.currentDonor(c)
	if !ok {
		return
	}

	requests, err := h.svc.AvailableFor(c.Request.Context(), d)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(requests))
}

func (h *Handler) Fulfill(c *gin.Context) {
	h.transition(c, h.svc.Fulfill, "request marked as fulfilled")
}

func (h *Handler) Extend(c *gin.Context) {
	h.transition(c, h.svc.Extend, "request extended")
}

func (h *Handler) Cancel(c *gin.Context) {
	h.transition(c, h.svc.Cancel, "request cancelled")
}

func (h *Handler) Help(c *gin.Context) {
	d, ok := h.currentDonor(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid request id"))
		return
	}

	if err := h.svc.ExpressInterest(c.Request.Context(), d, id); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse("interest recorded"))
}

func (h *Handler) InterestedDonors(c *gin.Context) {
	hosp, ok := h.currentHospital(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid request id"))
		return
	}

	donors, err := h.svc.InterestedDonors(c.Request.Context(), hosp, id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(donors))
}

func (h *Handler) NearbyDonors(c *gin.Context) {
	hosp, ok := h.currentHospital(c)
	if !ok {
		return
	}

	// An unknown blood_group value is not an error; it simply matches
	// no donors.
	donors, err := h.svc.NearbyDonors(c.Request.Context(), hosp, c.Query("blood_group"))
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(donors))
}

func (h *Handler) NotifyDonors(c *gin.Context) {
	hosp, ok := h.currentHospital(c)
	if !ok {
		return
	}

	var req model.NotifyDonorsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	result, err := h.svc.NotifyDonors(c.Request.Context(), hosp, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

// transition runs one of the owner-only lifecycle operations.
func (h *Handler) transition(c *gin.Context, op func(context.Context, *model.Hospital, uuid.UUID) error, message string) {
	hosp, ok := h.currentHospital(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid request id"))
		return
	}

	if err := op(c.Request.Context(), hosp, id); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(message))
}

func (h *Handler) currentHospital(c *gin.Context) (*model.Hospital, bool) {
	hosp, err := h.hospitalSvc.GetByUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		handler.Error(c, err)
		return nil, false
	}
	return hosp, true
}

func (h *Handler) currentDonor(c *gin.Context) (*model.Donor, bool) {
	d, err := h.donorSvc.GetByUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		handler.Error(c, err)
		return nil, false
	}
	return d, true
}

func currentUserID(c *gin.Context) uuid.UUID {
	id, _ := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	return id
}
