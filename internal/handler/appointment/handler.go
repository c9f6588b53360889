package appointment

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type Service interface {
	Create(ctx context.Context, p *model.Principal, req *model.CreateAppointmentRequest) (*model.Appointment, error)
	Get(ctx context.Context, p *model.Principal, id uuid.UUID) (*model.Appointment, error)
	Cancel(ctx context.Context, p *model.Principal, id uuid.UUID) error
	UpdateStatus(ctx context.Context, p *model.Principal, id uuid.UUID, status model.AppointmentStatus) (*model.Appointment, error)
	Reschedule(ctx context.Context, p *model.Principal, id uuid.UUID, req *model.RescheduleRequest) (*model.Appointment, error)
	List(ctx context.Context, p *model.Principal) ([]*model.Appointment, error)
	ListForDoctor(ctx context.Context, p *model.Principal) ([]*model.Appointment, error)
	ListByDoctor(ctx context.Context, doctorID string) ([]*model.AppointmentSummary, error)
	AvailableSlots(ctx context.Context, doctorID, date string) ([]string, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the appointment routes. r must already require an
// authenticated principal.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.GET("", h.ListAppointments)
		appointments.POST("", middleware.RequireRole(model.RolePatient), h.CreateAppointment)
		appointments.GET("/available/:doctorId/:date", h.AvailableSlots)
		appointments.GET("/doctors", middleware.RequireRole(model.RoleDoctor), h.ListDoctorAppointments)
		appointments.GET("/doctor-appointments/:doctorId", middleware.RequireRole(model.RoleAdmin), h.ListByDoctor)
		appointments.PATCH("/status/:id", middleware.RequireRole(model.RoleDoctor), h.UpdateStatus)
		appointments.PUT("/reschedule/:id", h.Reschedule)
		appointments.GET("/:id", h.GetAppointment)
		appointments.DELETE("/:id", h.CancelAppointment)
	}
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	apt, err := h.service.Create(c.Request.Context(), middleware.PrincipalFrom(c), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(apt))
}

func (h *Handler) GetAppointment(c *gin.Context) {
	id, ok := appointmentID(c)
	if !ok {
		return
	}

	apt, err := h.service.Get(c.Request.Context(), middleware.PrincipalFrom(c), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}

func (h *Handler) ListAppointments(c *gin.Context) {
	apts, err := h.service.List(c.Request.Context(), middleware.PrincipalFrom(c))
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(apts))
}

func (h *Handler) ListDoctorAppointments(c *gin.Context) {
	apts, err := h.service.ListForDoctor(c.Request.Context(), middleware.PrincipalFrom(c))
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(apts))
}

func (h *Handler) ListByDoctor(c *gin.Context) {
	summaries, err := h.service.ListByDoctor(c.Request.Context(), c.Param("doctorId"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(summaries))
}

func (h *Handler) AvailableSlots(c *gin.Context) {
	slots, err := h.service.AvailableSlots(c.Request.Context(), c.Param("doctorId"), c.Param("date"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"availableSlots": slots}))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := appointmentID(c)
	if !ok {
		return
	}

	var req model.UpdateStatusRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	apt, err := h.service.UpdateStatus(c.Request.Context(), middleware.PrincipalFrom(c), id, req.Status)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}

func (h *Handler) Reschedule(c *gin.Context) {
	id, ok := appointmentID(c)
	if !ok {
		return
	}

	var req model.RescheduleRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	apt, err := h.service.Reschedule(c.Request.Context(), middleware.PrincipalFrom(c), id, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	id, ok := appointmentID(c)
	if !ok {
		return
	}

	if err := h.service.Cancel(c.Request.Context(), middleware.PrincipalFrom(c), id); err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"message": "appointment cancelled successfully"}))
}

func appointmentID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.RespondError(c, apperrors.NotFound("appointment", err))
		return uuid.Nil, false
	}
	return id, true
}
