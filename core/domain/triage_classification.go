package domain

// MeetingType describes what kind of meeting a scheduling request asks for.
type MeetingType string

const (
	MeetingVideoCall MeetingType = "video_call"
	MeetingPhoneCall MeetingType = "phone_call"
	MeetingInPerson  MeetingType = "in_person"
	MeetingCoffee    MeetingType = "coffee"
	MeetingLunch     MeetingType = "lunch"
	MeetingUnknown   MeetingType = "unknown"
)

// UrgencyLevel describes how soon the sender wants to meet.
type UrgencyLevel string

const (
	UrgencyHigh   UrgencyLevel = "high"
	UrgencyMedium UrgencyLevel = "medium"
	UrgencyLow    UrgencyLevel = "low"
)

// TimeFrame describes the rough horizon mentioned in the request.
type TimeFrame string

const (
	TimeFrameToday    TimeFrame = "today"
	TimeFrameTomorrow TimeFrame = "tomorrow"
	TimeFrameThisWeek TimeFrame = "this_week"
	TimeFrameNextWeek TimeFrame = "next_week"
	TimeFrameFlexible TimeFrame = "flexible"
)

// ClassificationResult is the typed verdict for one message. Ephemeral; not
// persisted as its own entity. Confidence is always within [0,100], and a
// non-scheduling verdict carries nil type/urgency/timeframe.
type ClassificationResult struct {
	IsSchedulingRequest   bool          `json:"is_scheduling_request"`
	Confidence            int           `json:"confidence"`
	Reasoning             string        `json:"reasoning"`
	MeetingType           *MeetingType  `json:"meeting_type,omitempty"`
	UrgencyLevel          *UrgencyLevel `json:"urgency_level,omitempty"`
	TimeFrame             *TimeFrame    `json:"time_frame,omitempty"`
	ExtractedTimeMentions []string      `json:"extracted_time_mentions,omitempty"`
	UsedFallback          bool          `json:"used_fallback"`
}

// ClampConfidence forces a raw confidence value into [0,100].
func ClampConfidence(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Normalize enforces the result invariants: confidence clamped, and the
// scheduling detail fields nil when the verdict is negative.
func (r *ClassificationResult) Normalize() {
	r.Confidence = ClampConfidence(r.Confidence)
	if !r.IsSchedulingRequest {
		r.MeetingType = nil
		r.UrgencyLevel = nil
		r.TimeFrame = nil
	}
}
