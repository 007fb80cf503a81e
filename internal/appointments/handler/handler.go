package handler

import (
	"net/http"
	"strconv"

	"estate_portal_backend/internal/appointments/service"
	"estate_portal_backend/internal/appointments/transport"
	"estate_portal_backend/platform/apperr"
	"estate_portal_backend/platform/httpkit"
	"estate_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid id"
)

// Handler handles HTTP requests for appointments
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new appointments handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterPublicRoutes registers the unauthenticated viewing-request endpoint.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/properties/:propertyId/appointments", h.Create)
}

// RegisterRoutes registers the routes available to agents and admins.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/agent/appointments", h.ListMine)

	appointments := rg.Group("/appointments")
	appointments.GET("/calendar", h.Calendar)
	appointments.GET("/:id", h.GetByID)
	appointments.PATCH("/:id/schedule", h.Schedule)
	appointments.PATCH("/:id/complete", h.Complete)
	appointments.PATCH("/:id/cancel", h.Cancel)
}

// RegisterAdminRoutes registers the admin-only routes.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	appointments := rg.Group("/appointments")
	appointments.GET("", h.ListAll)
	appointments.GET("/stats", h.Stats)
	appointments.PATCH("/:id/assign", h.Assign)
}

// Create handles POST /api/v1/public/properties/:propertyId/appointments
func (h *Handler) Create(c *gin.Context) {
	propertyID, ok := parseID(c, "propertyId")
	if !ok {
		return
	}

	var req transport.CreateAppointmentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.svc.Create(c.Request.Context(), propertyID, req, c.ClientIP())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, result)
}

// ListMine handles GET /api/v1/agent/appointments
func (h *Handler) ListMine(c *gin.Context) {
	var req transport.ListAppointmentsRequest
	if !h.bindQuery(c, &req) {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	result, err := h.svc.ListMine(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Calendar handles GET /api/v1/appointments/calendar
func (h *Handler) Calendar(c *gin.Context) {
	var req transport.CalendarRequest
	if !h.bindQuery(c, &req) {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	result, err := h.svc.Calendar(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// GetByID handles GET /api/v1/appointments/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	result, err := h.svc.Get(c.Request.Context(), actor, id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Schedule handles PATCH /api/v1/appointments/:id/schedule
func (h *Handler) Schedule(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req transport.ScheduleAppointmentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	result, err := h.svc.Schedule(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Complete handles PATCH /api/v1/appointments/:id/complete
func (h *Handler) Complete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req transport.CompleteAppointmentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	result, err := h.svc.Complete(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Cancel handles PATCH /api/v1/appointments/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req transport.CancelAppointmentRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	result, err := h.svc.Cancel(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// ListAll handles GET /api/v1/admin/appointments
func (h *Handler) ListAll(c *gin.Context) {
	var req transport.ListAppointmentsRequest
	if !h.bindQuery(c, &req) {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	result, err := h.svc.ListAll(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Stats handles GET /api/v1/admin/appointments/stats
func (h *Handler) Stats(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	result, err := h.svc.Stats(c.Request.Context(), actor)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Assign handles PATCH /api/v1/admin/appointments/:id/assign
func (h *Handler) Assign(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req transport.AssignAgentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	result, err := h.svc.AssignAgent(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidRequest))
		return false
	}
	return h.validate(c, req)
}

func (h *Handler) bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidRequest))
		return false
	}
	return h.validate(c, req)
}

func (h *Handler) validate(c *gin.Context, req interface{}) bool {
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return false
	}
	return true
}

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidID))
		return 0, false
	}
	return id, true
}

func actorFrom(c *gin.Context) (service.Actor, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return service.Actor{}, false
	}
	return service.Actor{
		UserID: identity.UserID(),
		Admin:  identity.HasRole(httpkit.RoleAdmin),
		Agent:  identity.HasRole(httpkit.RoleAgent),
	}, true
}
