// Package countdown projects the remaining time to a session start and keeps that projection
// refreshed for as long as a consumer watches it.
package countdown

import (
	"fmt"
	"time"
)

const (
	secondsPerMinute = 60
	secondsPerHour   = 60 * secondsPerMinute
	secondsPerDay    = 24 * secondsPerHour

	// urgentMinutes is the threshold at or below which seconds are shown.
	urgentMinutes = 5
)

// Snapshot is the remaining time to a target at one instant.
type Snapshot struct {
	Days    int  `json:"days"`
	Hours   int  `json:"hours"`
	Minutes int  `json:"minutes"`
	Seconds int  `json:"seconds"`
	Expired bool `json:"is_expired"`
}

// Tier selects which units a countdown shows.
type Tier int

const (
	TierExpired Tier = iota
	TierUrgent       // minutes and seconds
	TierMinutes      // minutes only
	TierHours        // hours and minutes
	TierDays         // days and hours
)

// Project returns the whole days, hours, minutes and seconds from now until target, flooring
// sub-second remainders. A target at or before now is expired with every field zero.
func Project(target, now time.Time) Snapshot {
	remaining := target.Sub(now)
	if remaining <= 0 {
		return Snapshot{Expired: true}
	}
	total := int64(remaining / time.Second)
	if total == 0 {
		// less than a second left still counts as running
		return Snapshot{}
	}
	s := Snapshot{Days: int(total / secondsPerDay)}
	total %= secondsPerDay
	s.Hours = int(total / secondsPerHour)
	total %= secondsPerHour
	s.Minutes = int(total / secondsPerMinute)
	s.Seconds = int(total % secondsPerMinute)
	return s
}

// Tier returns the presentation tier for the snapshot.
func (s Snapshot) Tier() Tier {
	switch {
	case s.Expired:
		return TierExpired
	case s.Days >= 1:
		return TierDays
	case s.Hours >= 1:
		return TierHours
	case s.Minutes > urgentMinutes:
		return TierMinutes
	default:
		return TierUrgent
	}
}

// Urgent reports whether the countdown is in its final minutes.
func (s Snapshot) Urgent() bool {
	return s.Tier() == TierUrgent
}

// Label renders the snapshot in its tier.
func (s Snapshot) Label() string {
	switch s.Tier() {
	case TierExpired:
		return "starting"
	case TierDays:
		return fmt.Sprintf("%dd %dh", s.Days, s.Hours)
	case TierHours:
		return fmt.Sprintf("%dh %dm", s.Hours, s.Minutes)
	case TierMinutes:
		return fmt.Sprintf("%dm", s.Minutes)
	default:
		return fmt.Sprintf("%dm %ds", s.Minutes, s.Seconds)
	}
}

// View is the wire form of a snapshot with its rendered tier.
type View struct {
	Snapshot
	Label  string `json:"label"`
	Urgent bool   `json:"urgent"`
}

// NewView renders s.
func NewView(s Snapshot) View {
	return View{Snapshot: s, Label: s.Label(), Urgent: s.Urgent()}
}
