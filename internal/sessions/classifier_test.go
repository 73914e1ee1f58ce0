package sessions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-webinar/classroom/internal/models"
)

var now = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

func startAt(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func TestClassifyRules(t *testing.T) {
	cases := []struct {
		name    string
		session models.ClassSession
		want    models.SessionStatus
	}{
		{"live without schedule", models.ClassSession{ReportedLive: true}, models.StatusLive},
		{"live beats recorded", models.ClassSession{ReportedLive: true, HasRecording: true, ScheduledStart: startAt(-3 * time.Hour), DurationMinutes: 60}, models.StatusLive},
		{"live before start", models.ClassSession{ReportedLive: true, ScheduledStart: startAt(time.Hour)}, models.StatusLive},
		{"no start", models.ClassSession{DurationMinutes: 60}, models.StatusNotScheduled},
		{"no start with recording", models.ClassSession{HasRecording: true}, models.StatusNotScheduled},
		{"future", models.ClassSession{ScheduledStart: startAt(time.Second), DurationMinutes: 60}, models.StatusUpcoming},
		{"ended with recording", models.ClassSession{ScheduledStart: startAt(-2 * time.Hour), DurationMinutes: 60, HasRecording: true}, models.StatusRecorded},
		{"ended exactly now with recording", models.ClassSession{ScheduledStart: startAt(-time.Hour), DurationMinutes: 60, HasRecording: true}, models.StatusRecorded},
		{"ended without recording", models.ClassSession{ScheduledStart: startAt(-2 * time.Hour), DurationMinutes: 60}, models.StatusCompleted},
		{"in window not live", models.ClassSession{ScheduledStart: startAt(-30 * time.Minute), DurationMinutes: 60}, models.StatusCompleted},
		{"in window with recording", models.ClassSession{ScheduledStart: startAt(-30 * time.Minute), DurationMinutes: 60, HasRecording: true}, models.StatusCompleted},
		{"starts exactly now", models.ClassSession{ScheduledStart: startAt(0), DurationMinutes: 60}, models.StatusCompleted},
		{"zero duration at start", models.ClassSession{ScheduledStart: startAt(0), HasRecording: true}, models.StatusRecorded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.session, now))
		})
	}
}

func TestClassifyIsTotal(t *testing.T) {
	starts := []*time.Time{nil, startAt(-48 * time.Hour), startAt(-time.Minute), startAt(0), startAt(time.Minute)}
	durations := []int{0, 1, 60, 600}
	valid := map[models.SessionStatus]bool{}
	for _, s := range models.AllStatuses {
		valid[s] = true
	}
	for _, start := range starts {
		for _, d := range durations {
			for _, live := range []bool{false, true} {
				for _, rec := range []bool{false, true} {
					s := models.ClassSession{ScheduledStart: start, DurationMinutes: d, ReportedLive: live, HasRecording: rec}
					got := Classify(s, now)
					require.True(t, valid[got], "unexpected status %q", got)
					if live {
						assert.Equal(t, models.StatusLive, got)
					}
				}
			}
		}
	}
}

func TestClassifyFollowsTime(t *testing.T) {
	s := models.ClassSession{ScheduledStart: startAt(time.Hour), DurationMinutes: 60}
	assert.Equal(t, models.StatusUpcoming, Classify(s, now))
	assert.Equal(t, models.StatusCompleted, Classify(s, now.Add(61*time.Minute)))
	s.HasRecording = true
	assert.Equal(t, models.StatusRecorded, Classify(s, now.Add(3*time.Hour)))
}

func TestValidate(t *testing.T) {
	zero := time.Time{}
	cases := []struct {
		name    string
		session models.ClassSession
		ok      bool
	}{
		{"valid", models.ClassSession{ID: "a", Title: "A", DurationMinutes: 10}, true},
		{"missing id", models.ClassSession{Title: "A"}, false},
		{"blank title", models.ClassSession{ID: "a", Title: "  "}, false},
		{"negative duration", models.ClassSession{ID: "a", Title: "A", DurationMinutes: -1}, false},
		{"zero start", models.ClassSession{ID: "a", Title: "A", ScheduledStart: &zero}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.session)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			var de *DataError
			assert.ErrorAs(t, err, &de)
		})
	}
}
