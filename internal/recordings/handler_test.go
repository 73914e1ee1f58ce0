package recordings

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

	"github.com/aura-webinar/classroom/internal/models"
	"github.com/aura-webinar/classroom/internal/sessions"
)

var now = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

type memRecordings struct {
	byS map[uuid.UUID][]models.Recording
}

func (m *memRecordings) Create(_ context.Context, rec *models.Recording) error {
	rec.CreatedAt = now
	m.byS[rec.SessionID] = append(m.byS[rec.SessionID], *rec)
	return nil
}

func (m *memRecordings) LatestCompleted(_ context.Context, sessionID uuid.UUID) (*models.Recording, error) {
	list := m.byS[sessionID]
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	rec := list[len(list)-1]
	return &rec, nil
}

type sessionMap map[string]models.ClassSession

func (m sessionMap) GetByID(_ context.Context, id string) (*models.ClassSession, error) {
	s, ok := m[id]
	if !ok {
		return nil, sessions.ErrNotFound
	}
	return &s, nil
}

type fakeSigner struct{ err error }

func (f fakeSigner) RecordingDownloadURL(_ context.Context, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://bucket.example/" + key + "?sig=1", nil
}

func (fakeSigner) PresignExpire() time.Duration { return 15 * time.Minute }

func newRecordingRouter(sessionsByID sessionMap, signer URLSigner) (*gin.Engine, *memRecordings) {
	gin.SetMode(gin.TestMode)
	store := &memRecordings{byS: map[uuid.UUID][]models.Recording{}}
	h := NewHandler(store, sessionsByID, signer, clockwork.NewFakeClockAt(now), nil)
	r := gin.New()
	r.POST("/classes/:id/recordings", h.Register)
	r.GET("/classes/:id/recording", h.Download)
	return r, store
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterThenDownload(t *testing.T) {
	id := uuid.New()
	start := now.Add(-3 * time.Hour)
	ended := models.ClassSession{ID: id.String(), Title: "Past", ScheduledStart: &start, DurationMinutes: 60}
	byID := sessionMap{id.String(): ended}
	r, store := newRecordingRouter(byID, fakeSigner{})

	// completed, not yet recorded
	assert.Equal(t, http.StatusConflict, serve(r, http.MethodGet, "/classes/"+id.String()+"/recording", "").Code)

	w := serve(r, http.MethodPost, "/classes/"+id.String()+"/recordings", `{"duration_seconds": 3600}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, store.byS[id], 1)
	rec := store.byS[id][0]
	assert.Equal(t, "recordings/"+id.String()+"/"+rec.ID.String()+".mp4", rec.S3Key)

	// the source now reports the recording
	ended.HasRecording = true
	byID[id.String()] = ended

	w = serve(r, http.MethodGet, "/classes/"+id.String()+"/recording", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data DownloadResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, rec.ID, body.Data.RecordingID)
	assert.Contains(t, body.Data.URL, rec.S3Key)
	assert.Equal(t, now.Add(15*time.Minute), body.Data.ExpiresAt)
}

func TestDownloadErrors(t *testing.T) {
	id := uuid.New()
	start := now.Add(-3 * time.Hour)
	byID := sessionMap{id.String(): {ID: id.String(), Title: "Past", ScheduledStart: &start, DurationMinutes: 60, HasRecording: true}}

	r, _ := newRecordingRouter(byID, fakeSigner{})
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/classes/"+id.String()+"/recording", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/classes/"+uuid.NewString()+"/recording", "").Code)

	r, _ = newRecordingRouter(byID, fakeSigner{err: errors.New("s3 down")})
	require.Equal(t, http.StatusCreated, serve(r, http.MethodPost, "/classes/"+id.String()+"/recordings", `{}`).Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(r, http.MethodGet, "/classes/"+id.String()+"/recording", "").Code)
}
