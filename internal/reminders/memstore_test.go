package reminders

import (
	"context"
	"errors"
	"sync"

	"github.com/aura-webinar/classroom/internal/models"
)

var errMediumDown = errors.New("medium down")

// memStore is an in-memory Store with switchable failures.
type memStore struct {
	mu       sync.Mutex
	data     map[string]models.Reminder
	failSave bool
	failLoad bool
	saves    int
	removes  int
}

func newMemStore(seed ...models.Reminder) *memStore {
	m := &memStore{data: make(map[string]models.Reminder)}
	for _, r := range seed {
		m.data[r.SessionID] = r
	}
	return m
}

func (m *memStore) Save(_ context.Context, r models.Reminder) error {
	if err := Validate(r); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return &StorageError{Op: "save", SessionID: r.SessionID, Err: errMediumDown}
	}
	m.saves++
	m.data[r.SessionID] = r
	return nil
}

func (m *memStore) Remove(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removes++
	delete(m.data, sessionID)
	return nil
}

func (m *memStore) LoadAll(context.Context) ([]models.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLoad {
		return nil, &StorageError{Op: "load", Err: errMediumDown}
	}
	out := make([]models.Reminder, 0, len(m.data))
	for _, r := range m.data {
		out = append(out, r)
	}
	SortByTrigger(out)
	return out, nil
}

func (m *memStore) get(sessionID string) (models.Reminder, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.data[sessionID]
	return r, ok
}

func (m *memStore) setFailSave(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSave = v
}

// fireLog records fire callbacks.
type fireLog struct {
	mu    sync.Mutex
	fired []models.Reminder
}

func (f *fireLog) fire(_ context.Context, r models.Reminder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fired = append(f.fired, r)
}

func (f *fireLog) count(sessionID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.fired {
		if r.SessionID == sessionID {
			n++
		}
	}
	return n
}

func (f *fireLog) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fired)
}
