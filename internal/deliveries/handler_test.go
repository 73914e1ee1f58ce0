package deliveries

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-webinar/classroom/internal/middleware"
	"github.com/aura-webinar/classroom/internal/models"
)

type fakeLister struct {
	gotUser  uuid.UUID
	gotLimit int
	err      error
}

func (f *fakeLister) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]models.ReminderDelivery, error) {
	f.gotUser, f.gotLimit = userID, limit
	if f.err != nil {
		return nil, f.err
	}
	return []models.ReminderDelivery{{JobID: "j1", UserID: userID, SessionID: "s1"}}, nil
}

func newRouter(l Lister, user uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, user)
		c.Next()
	})
	r.GET("/notifications", NewHandler(l, nil).List)
	return r
}

func get(r http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestListNotifications(t *testing.T) {
	user := uuid.New()
	l := &fakeLister{}
	r := newRouter(l, user)

	w := get(r, "/notifications?limit=10")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, user, l.gotUser)
	assert.Equal(t, 10, l.gotLimit)

	var body struct {
		Data []models.ReminderDelivery `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "s1", body.Data[0].SessionID)

	get(r, "/notifications")
	assert.Equal(t, DefaultLimit, l.gotLimit)
}

func TestListNotificationsErrors(t *testing.T) {
	r := newRouter(&fakeLister{err: errors.New("db down")}, uuid.New())
	assert.Equal(t, http.StatusInternalServerError, get(r, "/notifications").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/notifications?limit=abc").Code)
}
