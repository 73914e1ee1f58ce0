package recordings

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/classroom/internal/clock"
	"github.com/aura-webinar/classroom/internal/models"
	"github.com/aura-webinar/classroom/internal/sessions"
	"github.com/aura-webinar/classroom/pkg/response"
	"github.com/aura-webinar/classroom/pkg/storage"
)

// Store is the recording persistence the handler needs.
type Store interface {
	Create(ctx context.Context, rec *models.Recording) error
	LatestCompleted(ctx context.Context, sessionID uuid.UUID) (*models.Recording, error)
}

// SessionGetter looks up the recorded session.
type SessionGetter interface {
	GetByID(ctx context.Context, id string) (*models.ClassSession, error)
}

// URLSigner issues time-limited download links.
type URLSigner interface {
	RecordingDownloadURL(ctx context.Context, key string) (string, error)
	PresignExpire() time.Duration
}

// RegisterRequest is the body for POST /classes/:id/recordings.
type RegisterRequest struct {
	DurationSeconds int `json:"duration_seconds" binding:"gte=0"`
}

// DownloadResponse is the body of GET /classes/:id/recording.
type DownloadResponse struct {
	RecordingID uuid.UUID `json:"recording_id"`
	URL         string    `json:"url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Handler handles recording HTTP endpoints.
type Handler struct {
	store    Store
	sessions SessionGetter
	signer   URLSigner
	clk      clock.Clock
	logger   *zap.Logger
}

// NewHandler creates a recordings handler.
func NewHandler(store Store, sessions SessionGetter, signer URLSigner, clk clock.Clock, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Handler{store: store, sessions: sessions, signer: signer, clk: clk, logger: logger}
}

// Register handles POST /classes/:id/recordings. The upload itself goes straight to the
// bucket under the returned s3_key.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}
	sessionID, err := uuid.Parse(s.ID)
	if err != nil {
		response.NotFound(c, "session not found")
		return
	}
	id := uuid.New()
	rec := &models.Recording{
		ID:              id,
		SessionID:       sessionID,
		S3Key:           storage.RecordingKey(s.ID, id.String()),
		DurationSeconds: req.DurationSeconds,
		Status:          models.RecordingStatusCompleted,
	}
	if err := h.store.Create(c.Request.Context(), rec); err != nil {
		h.logger.Error("create recording", zap.String("session_id", s.ID), zap.Error(err))
		response.Internal(c, "failed to register recording")
		return
	}
	h.logger.Info("recording registered", zap.String("session_id", s.ID), zap.String("recording_id", id.String()))
	response.Created(c, rec)
}

// Download handles GET /classes/:id/recording. Only sessions classified as recorded have one.
func (h *Handler) Download(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if status := sessions.Classify(*s, h.clk.Now()); status != models.StatusRecorded {
		response.Conflict(c, "session is "+string(status)+", no recording available")
		return
	}
	sessionID, err := uuid.Parse(s.ID)
	if err != nil {
		response.NotFound(c, "recording not found")
		return
	}
	rec, err := h.store.LatestCompleted(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "recording not found")
			return
		}
		h.logger.Error("load recording", zap.String("session_id", s.ID), zap.Error(err))
		response.Internal(c, "failed to load recording")
		return
	}
	if h.signer == nil {
		response.ServiceUnavailable(c, "recording storage not configured")
		return
	}
	url, err := h.signer.RecordingDownloadURL(c.Request.Context(), rec.S3Key)
	if err != nil {
		h.logger.Error("presign recording", zap.String("s3_key", rec.S3Key), zap.Error(err))
		response.ServiceUnavailable(c, "recording storage unavailable")
		return
	}
	response.OK(c, DownloadResponse{
		RecordingID: rec.ID,
		URL:         url,
		ExpiresAt:   h.clk.Now().Add(h.signer.PresignExpire()).UTC(),
	})
}

func (h *Handler) session(c *gin.Context) (*models.ClassSession, bool) {
	s, err := h.sessions.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil || s == nil {
		if err != nil && !errors.Is(err, sessions.ErrNotFound) {
			h.logger.Error("get session", zap.String("session_id", c.Param("id")), zap.Error(err))
			response.Internal(c, "failed to load session")
			return nil, false
		}
		response.NotFound(c, "session not found")
		return nil, false
	}
	return s, true
}
