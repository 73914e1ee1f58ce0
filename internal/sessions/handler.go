package sessions

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/classroom/internal/calendar"
	"github.com/aura-webinar/classroom/internal/clock"
	"github.com/aura-webinar/classroom/internal/countdown"
	"github.com/aura-webinar/classroom/internal/middleware"
	"github.com/aura-webinar/classroom/internal/models"
	"github.com/aura-webinar/classroom/pkg/response"
)

// Store is the session persistence the handler needs.
type Store interface {
	Source
	Create(ctx context.Context, s *models.ClassSession, createdBy uuid.UUID) error
	Update(ctx context.Context, s *models.ClassSession) error
	SetLive(ctx context.Context, id string, live bool) error
	Delete(ctx context.Context, id string) error
}

// ReminderReader returns a user's reminders so cards can show them.
type ReminderReader interface {
	Reminders(ctx context.Context, userID uuid.UUID) ([]models.Reminder, error)
}

// Card is one session as the dashboard renders it.
type Card struct {
	models.ClassSession
	Status      models.SessionStatus `json:"status"`
	Countdown   *countdown.View      `json:"countdown,omitempty"`
	Reminder    *models.Reminder     `json:"reminder,omitempty"`
	CalendarURL string               `json:"calendar_url,omitempty"`
}

// ListResponse is the body of GET /classes: cards per tab plus tab counts.
type ListResponse struct {
	Tabs   map[models.SessionStatus][]Card `json:"tabs"`
	Counts map[models.SessionStatus]int    `json:"counts"`
}

// CreateRequest is the body for POST /classes.
type CreateRequest struct {
	Title           string     `json:"title" binding:"required"`
	Description     string     `json:"description"`
	InstructorName  string     `json:"instructor_name"`
	ScheduledStart  *time.Time `json:"scheduled_start"`
	DurationMinutes int        `json:"duration_minutes" binding:"gte=0"`
	JoinURL         string     `json:"join_url"`
}

// UpdateRequest is the body for PATCH /classes/:id. Absent fields are left alone;
// unschedule clears the start time, which cancels the session.
type UpdateRequest struct {
	Title           *string    `json:"title"`
	Description     *string    `json:"description"`
	InstructorName  *string    `json:"instructor_name"`
	ScheduledStart  *time.Time `json:"scheduled_start"`
	Unschedule      bool       `json:"unschedule"`
	DurationMinutes *int       `json:"duration_minutes"`
	JoinURL         *string    `json:"join_url"`
}

// LiveRequest is the body for PUT /classes/:id/live.
type LiveRequest struct {
	Live bool `json:"live"`
}

// Handler handles class session HTTP endpoints.
type Handler struct {
	store     Store
	reminders ReminderReader
	clk       clock.Clock
	logger    *zap.Logger
}

// NewHandler creates a session handler.
func NewHandler(store Store, reminders ReminderReader, clk clock.Clock, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Handler{store: store, reminders: reminders, clk: clk, logger: logger}
}

// List handles GET /classes.
func (h *Handler) List(c *gin.Context) {
	list, err := h.store.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list sessions", zap.Error(err))
		response.Internal(c, "failed to list sessions")
		return
	}
	now := h.clk.Now()
	tabs := Aggregate(list, now)

	var warnings []string
	for _, err := range tabs.Errors {
		h.logger.Warn("skipping malformed session", zap.Error(err))
		warnings = append(warnings, err.Error())
	}
	byID, warn := h.reminderIndex(c)
	if warn != "" {
		warnings = append(warnings, warn)
	}

	out := ListResponse{
		Tabs:   make(map[models.SessionStatus][]Card, len(models.AllStatuses)),
		Counts: tabs.Counts(),
	}
	for _, status := range models.AllStatuses {
		out.Tabs[status] = make([]Card, 0, tabs.Count(status))
	}
	for _, e := range tabs.Entries {
		out.Tabs[e.Status] = append(out.Tabs[e.Status], newCard(e.Session, e.Status, byID, now))
	}
	if len(warnings) > 0 {
		response.OKWithWarnings(c, out, warnings)
		return
	}
	response.OK(c, out)
}

// Get handles GET /classes/:id.
func (h *Handler) Get(c *gin.Context) {
	s, ok := h.load(c)
	if !ok {
		return
	}
	if err := Validate(*s); err != nil {
		h.logger.Warn("malformed session", zap.Error(err))
		response.Internal(c, err.Error())
		return
	}
	now := h.clk.Now()
	byID, warn := h.reminderIndex(c)
	card := newCard(*s, Classify(*s, now), byID, now)
	if warn != "" {
		response.OKWithWarnings(c, card, []string{warn})
		return
	}
	response.OK(c, card)
}

// Create handles POST /classes.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID, _ := middleware.UserID(c)
	s := &models.ClassSession{
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		InstructorName:  req.InstructorName,
		ScheduledStart:  utc(req.ScheduledStart),
		DurationMinutes: req.DurationMinutes,
		JoinURL:         req.JoinURL,
	}
	if s.Title == "" {
		response.BadRequest(c, "title is required")
		return
	}
	if err := h.store.Create(c.Request.Context(), s, userID); err != nil {
		h.logger.Error("create session", zap.Error(err))
		response.Internal(c, "failed to create session")
		return
	}
	h.logger.Info("session created", zap.String("session_id", s.ID), zap.Bool("scheduled", s.Scheduled()))
	response.Created(c, newCard(*s, Classify(*s, h.clk.Now()), nil, h.clk.Now()))
}

// Update handles PATCH /classes/:id.
func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s, ok := h.load(c)
	if !ok {
		return
	}
	if req.Title != nil {
		s.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		s.Description = *req.Description
	}
	if req.InstructorName != nil {
		s.InstructorName = *req.InstructorName
	}
	if req.DurationMinutes != nil {
		s.DurationMinutes = *req.DurationMinutes
	}
	if req.JoinURL != nil {
		s.JoinURL = *req.JoinURL
	}
	switch {
	case req.Unschedule:
		s.ScheduledStart = nil
	case req.ScheduledStart != nil:
		s.ScheduledStart = utc(req.ScheduledStart)
	}
	if err := Validate(*s); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.store.Update(c.Request.Context(), s); err != nil {
		h.fail(c, "update session", err)
		return
	}
	h.logger.Info("session updated", zap.String("session_id", s.ID), zap.Bool("scheduled", s.Scheduled()))
	now := h.clk.Now()
	response.OK(c, newCard(*s, Classify(*s, now), nil, now))
}

// SetLive handles PUT /classes/:id/live.
func (h *Handler) SetLive(c *gin.Context) {
	var req LiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.store.SetLive(c.Request.Context(), c.Param("id"), req.Live); err != nil {
		h.fail(c, "set session live", err)
		return
	}
	h.logger.Info("session live signal", zap.String("session_id", c.Param("id")), zap.Bool("live", req.Live))
	response.NoContent(c)
}

// Delete handles DELETE /classes/:id.
func (h *Handler) Delete(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, "delete session", err)
		return
	}
	h.logger.Info("session deleted", zap.String("session_id", c.Param("id")))
	response.NoContent(c)
}

func (h *Handler) load(c *gin.Context) (*models.ClassSession, bool) {
	s, err := h.store.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "get session", err)
		return nil, false
	}
	return s, true
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "session not found")
		return
	}
	h.logger.Error(op, zap.String("session_id", c.Param("id")), zap.Error(err))
	response.Internal(c, "failed to "+op)
}

// reminderIndex returns the caller's reminders by session id, and a warning when some could
// not be read.
func (h *Handler) reminderIndex(c *gin.Context) (map[string]models.Reminder, string) {
	userID, ok := middleware.UserID(c)
	if !ok || h.reminders == nil {
		return nil, ""
	}
	list, err := h.reminders.Reminders(c.Request.Context(), userID)
	out := make(map[string]models.Reminder, len(list))
	for _, r := range list {
		out[r.SessionID] = r
	}
	if err != nil {
		h.logger.Warn("read reminders for cards", zap.Error(err))
		return out, "reminder state may be incomplete"
	}
	return out, ""
}

func newCard(s models.ClassSession, status models.SessionStatus, reminders map[string]models.Reminder, now time.Time) Card {
	card := Card{ClassSession: s, Status: status}
	if status == models.StatusUpcoming {
		v := countdown.NewView(countdown.Project(*s.ScheduledStart, now))
		card.Countdown = &v
	}
	if r, ok := reminders[s.ID]; ok {
		card.Reminder = &r
	}
	if status == models.StatusUpcoming || status == models.StatusNotScheduled {
		card.CalendarURL, _ = calendar.GoogleLink(s)
	}
	return card
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
