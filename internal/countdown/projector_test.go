package countdown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func TestProject(t *testing.T) {
	tests := []struct {
		name   string
		target time.Time
		want   Snapshot
	}{
		{"ninety seconds", now.Add(90 * time.Second), Snapshot{Minutes: 1, Seconds: 30}},
		{"past target", now.Add(-5 * time.Second), Snapshot{Expired: true}},
		{"exactly now", now, Snapshot{Expired: true}},
		{"one hour", now.Add(time.Hour), Snapshot{Hours: 1}},
		{"carries down", now.Add(2*24*time.Hour + 3*time.Hour + 4*time.Minute + 5*time.Second), Snapshot{Days: 2, Hours: 3, Minutes: 4, Seconds: 5}},
		{"floors sub-second", now.Add(61*time.Second + 900*time.Millisecond), Snapshot{Minutes: 1, Seconds: 1}},
		{"under a second", now.Add(400 * time.Millisecond), Snapshot{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Project(tt.target, now))
		})
	}
}

func TestTierAndLabel(t *testing.T) {
	tests := []struct {
		in     time.Duration
		tier   Tier
		label  string
		urgent bool
	}{
		{26 * time.Hour, TierDays, "1d 2h", false},
		{90 * time.Minute, TierHours, "1h 30m", false},
		{12*time.Minute + 40*time.Second, TierMinutes, "12m", false},
		{5*time.Minute + 59*time.Second, TierUrgent, "5m 59s", true},
		{6 * time.Minute, TierMinutes, "6m", false},
		{30 * time.Second, TierUrgent, "0m 30s", true},
		{-time.Second, TierExpired, "starting", false},
	}
	for _, tt := range tests {
		s := Project(now.Add(tt.in), now)
		assert.Equal(t, tt.tier, s.Tier(), tt.in.String())
		assert.Equal(t, tt.label, s.Label(), tt.in.String())
		assert.Equal(t, tt.urgent, s.Urgent(), tt.in.String())
	}
}

func TestNewView(t *testing.T) {
	v := NewView(Project(now.Add(3*time.Minute), now))
	assert.Equal(t, "3m 0s", v.Label)
	assert.True(t, v.Urgent)
	assert.Equal(t, 3, v.Minutes)
}
