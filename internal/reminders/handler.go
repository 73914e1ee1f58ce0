package reminders

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/classroom/internal/middleware"
	"github.com/aura-webinar/classroom/internal/models"
	"github.com/aura-webinar/classroom/pkg/response"
)

// SessionGetter looks up one session.
type SessionGetter interface {
	GetByID(ctx context.Context, id string) (*models.ClassSession, error)
}

// SetRequest is the body for PUT /classes/:id/reminder. A missing lead time uses the default.
type SetRequest struct {
	LeadMinutes *int `json:"lead_minutes"`
}

// SetResponse reports the stored reminder and whether it reached durable storage.
type SetResponse struct {
	Reminder models.Reminder `json:"reminder"`
	Durable  bool            `json:"durable"`
}

// Handler handles reminder HTTP endpoints.
type Handler struct {
	registry    *Registry
	sessions    SessionGetter
	defaultLead int
	logger      *zap.Logger
}

// NewHandler creates a reminder handler.
func NewHandler(registry *Registry, sessions SessionGetter, defaultLead int, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultLead <= 0 {
		defaultLead = DefaultLeadMinutes
	}
	return &Handler{registry: registry, sessions: sessions, defaultLead: defaultLead, logger: logger}
}

// Set handles PUT /classes/:id/reminder.
func (h *Handler) Set(c *gin.Context) {
	var req SetRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request: "+err.Error())
			return
		}
	}
	lead := h.defaultLead
	if req.LeadMinutes != nil {
		lead = *req.LeadMinutes
	}

	session, err := h.sessions.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil || session == nil {
		response.NotFound(c, "session not found")
		return
	}

	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var r models.Reminder
	h.registry.Use(userID, func(e *Engine) {
		r, err = e.Set(c.Request.Context(), *session, lead)
	})
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		response.BadRequest(c, ve.Error())
	case err != nil:
		h.logger.Warn("reminder set without durable write", zap.String("session_id", session.ID), zap.Error(err))
		response.CreatedWithWarnings(c, SetResponse{Reminder: r, Durable: false}, []string{"reminder will not survive a reload until storage recovers"})
	default:
		response.Created(c, SetResponse{Reminder: r, Durable: true})
	}
}

// Remove handles DELETE /classes/:id/reminder.
func (h *Handler) Remove(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var err error
	h.registry.Use(userID, func(e *Engine) {
		err = e.Remove(c.Request.Context(), c.Param("id"))
	})
	if err != nil {
		h.logger.Warn("reminder remove", zap.String("session_id", c.Param("id")), zap.Error(err))
		response.ServiceUnavailable(c, "reminder storage unavailable")
		return
	}
	response.NoContent(c)
}

// List handles GET /reminders.
func (h *Handler) List(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	list, err := h.Reminders(c.Request.Context(), userID)
	if list == nil {
		list = []models.Reminder{}
	}
	if err != nil {
		h.logger.Warn("reminder list", zap.Error(err))
		response.OKWithWarnings(c, list, []string{"some reminders could not be read from storage"})
		return
	}
	response.OK(c, list)
}

// Reminders returns the user's stored reminders. It lets session cards show reminder state.
func (h *Handler) Reminders(ctx context.Context, userID uuid.UUID) (list []models.Reminder, err error) {
	h.registry.Use(userID, func(e *Engine) {
		list, err = e.List(ctx)
	})
	return list, err
}
