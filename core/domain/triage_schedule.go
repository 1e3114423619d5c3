package domain

import "time"

// ResolvedTimeCandidate pairs an extracted time mention with its resolved
// timezone (explicit if detected next to the mention, else the user default)
// and the absolute instant it denotes.
type ResolvedTimeCandidate struct {
	Mention string         `json:"mention"`
	Zone    *time.Location `json:"-"`
	ZoneID  string         `json:"zone"`
	At      time.Time      `json:"at"`
}

// MeetingProposal is the scheduling pipeline's output: a concrete slot checked
// against calendar availability.
type MeetingProposal struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	ZoneID  string    `json:"zone"`
	Mention string    `json:"mention,omitempty"`
	// Tentative marks proposals that could not be checked against the
	// calendar or that conflict with every candidate slot.
	Tentative bool `json:"tentative"`
}

// BusyInterval is a blocked span on the user's calendar.
type BusyInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether [start, end) intersects the busy interval.
func (b BusyInterval) Overlaps(start, end time.Time) bool {
	return start.Before(b.End) && b.Start.Before(end)
}
