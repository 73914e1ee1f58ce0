package reminders

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-webinar/classroom/internal/middleware"
	"github.com/aura-webinar/classroom/internal/models"
	"github.com/aura-webinar/classroom/pkg/response"
)

type fakeGetter map[string]models.ClassSession

func (f fakeGetter) GetByID(_ context.Context, id string) (*models.ClassSession, error) {
	s, ok := f[id]
	if !ok {
		return nil, errNoSession
	}
	return &s, nil
}

var errNoSession = errors.New("session not found")

type handlerFixture struct {
	router *gin.Engine
	store  *memStore
	user   uuid.UUID
	reg    *Registry
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &handlerFixture{store: newMemStore(), user: uuid.New()}
	clk := clockwork.NewFakeClockAt(t0)
	f.reg = NewRegistry(func(userID uuid.UUID) *Engine {
		return NewEngine(EngineConfig{UserID: userID, Store: f.store, Clock: clk})
	}, nil)
	t.Cleanup(f.reg.Shutdown)

	h := NewHandler(f.reg, fakeGetter{
		"s1":    session("s1", at(time.Hour)),
		"unsch": session("unsch", nil),
	}, 15, nil)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, f.user)
		c.Next()
	})
	r.PUT("/classes/:id/reminder", h.Set)
	r.DELETE("/classes/:id/reminder", h.Remove)
	r.GET("/reminders", h.List)
	f.router = r
	return f
}

func (f *handlerFixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

type setBody struct {
	Success  bool        `json:"success"`
	Data     SetResponse `json:"data"`
	Error    string      `json:"error"`
	Warnings []string    `json:"warnings"`
}

func TestHandlerSetDefaultLead(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(http.MethodPut, "/classes/s1/reminder", "")
	require.Equal(t, http.StatusCreated, w.Code)
	var body setBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Data.Durable)
	assert.Equal(t, 15, body.Data.Reminder.LeadMinutes)
	assert.True(t, t0.Add(45*time.Minute).Equal(body.Data.Reminder.TriggerAt))

	_, ok := f.store.get("s1")
	assert.True(t, ok)
}

func TestHandlerSetExplicitLead(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(http.MethodPut, "/classes/s1/reminder", `{"lead_minutes": 30}`)
	require.Equal(t, http.StatusCreated, w.Code)
	stored, _ := f.store.get("s1")
	assert.Equal(t, 30, stored.LeadMinutes)
}

func TestHandlerSetRejections(t *testing.T) {
	f := newHandlerFixture(t)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPut, "/classes/s1/reminder", `{"lead_minutes": 0}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPut, "/classes/s1/reminder", `{"lead_minutes": "soon"}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPut, "/classes/unsch/reminder", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPut, "/classes/nope/reminder", "").Code)
	assert.Equal(t, 0, f.store.saves)
}

func TestHandlerSetStorageWarning(t *testing.T) {
	f := newHandlerFixture(t)
	f.store.setFailSave(true)

	w := f.do(http.MethodPut, "/classes/s1/reminder", "")
	require.Equal(t, http.StatusCreated, w.Code)
	var body setBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Data.Durable)
	assert.NotEmpty(t, body.Warnings)
}

func TestHandlerRemoveAndList(t *testing.T) {
	f := newHandlerFixture(t)
	require.Equal(t, http.StatusCreated, f.do(http.MethodPut, "/classes/s1/reminder", "").Code)

	w := f.do(http.MethodGet, "/reminders", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data []models.Reminder `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	assert.Equal(t, "s1", list.Data[0].SessionID)

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/classes/s1/reminder", "").Code)
	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/classes/s1/reminder", "").Code)

	w = f.do(http.MethodGet, "/reminders", "")
	var body response.Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []interface{}{}, body.Data)
}

func TestHandlerReminderLookup(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewHandler(f.reg, fakeGetter{}, 0, nil)
	assert.Equal(t, DefaultLeadMinutes, h.defaultLead)

	var err error
	f.reg.Use(f.user, func(e *Engine) {
		_, err = e.Set(context.Background(), session("s1", at(time.Hour)), 10)
	})
	require.NoError(t, err)

	list, err := h.Reminders(context.Background(), f.user)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 10, list[0].LeadMinutes)
}
