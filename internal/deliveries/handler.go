package deliveries

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/classroom/internal/middleware"
	"github.com/aura-webinar/classroom/internal/models"
	"github.com/aura-webinar/classroom/pkg/response"
)

// Lister reads a user's delivery history.
type Lister interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.ReminderDelivery, error)
}

// Handler handles notification history endpoints.
type Handler struct {
	repo   Lister
	logger *zap.Logger
}

// NewHandler creates a deliveries handler.
func NewHandler(repo Lister, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// List handles GET /notifications?limit=.
func (h *Handler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	limit := DefaultLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			response.BadRequest(c, "invalid limit")
			return
		}
		limit = n
	}
	list, err := h.repo.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		h.logger.Error("list deliveries", zap.String("user_id", userID.String()), zap.Error(err))
		response.Internal(c, "failed to load notifications")
		return
	}
	response.OK(c, list)
}
