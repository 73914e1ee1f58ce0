package sessions

import (
	"errors"
	"time"

	"github.com/aura-webinar/classroom/internal/models"
)

// Entry is one classified session.
type Entry struct {
	Session models.ClassSession
	Status  models.SessionStatus
}

// Bucket is one dashboard tab.
type Bucket struct {
	Sessions []models.ClassSession `json:"sessions"`
	Count    int                   `json:"count"`
}

// Tabs is the result of Aggregate. Entries keep input order and exclude malformed records;
// Errors holds one *DataError per excluded record.
type Tabs struct {
	Entries []Entry
	Buckets map[models.SessionStatus]*Bucket
	Errors  []error
}

// Count returns the number of sessions in the status tab.
func (t *Tabs) Count(status models.SessionStatus) int {
	if b, ok := t.Buckets[status]; ok {
		return b.Count
	}
	return 0
}

// Counts returns every tab count, including empty tabs.
func (t *Tabs) Counts() map[models.SessionStatus]int {
	out := make(map[models.SessionStatus]int, len(t.Buckets))
	for status, b := range t.Buckets {
		out[status] = b.Count
	}
	return out
}

// Aggregate classifies every session exactly once and groups them by status. A malformed
// session is skipped and reported in Errors; it never aborts the rest.
func Aggregate(list []models.ClassSession, now time.Time) *Tabs {
	tabs := &Tabs{Buckets: make(map[models.SessionStatus]*Bucket, len(models.AllStatuses))}
	for _, status := range models.AllStatuses {
		tabs.Buckets[status] = &Bucket{Sessions: []models.ClassSession{}}
	}
	for i, s := range list {
		if err := Validate(s); err != nil {
			var de *DataError
			if errors.As(err, &de) {
				de.Index = i
			}
			tabs.Errors = append(tabs.Errors, err)
			continue
		}
		status := Classify(s, now)
		b := tabs.Buckets[status]
		b.Sessions = append(b.Sessions, s)
		b.Count++
		tabs.Entries = append(tabs.Entries, Entry{Session: s, Status: status})
	}
	return tabs
}
