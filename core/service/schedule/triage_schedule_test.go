package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"assistant_server/core/domain"
)

func mustZone(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("load %s: %v", name, err)
	}
	return loc
}

func TestExtractTimeZone(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string // empty means nil
	}{
		{"pm with abbreviation", "let's talk at 2pm EST", "America/New_York"},
		{"24h clock with abbreviation", "call at 14:30 PST", "America/Los_Angeles"},
		{"lowercase abbreviation", "9:00 am cet works for me", "Europe/Paris"},
		{"summer european zone", "10am CEST on Friday", "Europe/Paris"},
		{"no time near abbreviation", "our EST office is closed", ""},
		{"no abbreviation at all", "tomorrow at 2pm", ""},
		{"empty text", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc := ExtractTimeZone(tt.text)
			if tt.want == "" {
				if loc != nil {
					t.Errorf("got %s, want nil", loc)
				}
				return
			}
			if loc == nil || loc.String() != tt.want {
				t.Errorf("got %v, want %s", loc, tt.want)
			}
		})
	}
}

func TestResolveCandidateTimes(t *testing.T) {
	la := mustZone(t, "America/Los_Angeles")
	ny := mustZone(t, "America/New_York")
	// A Wednesday.
	ref := time.Date(2026, 3, 11, 9, 0, 0, 0, la)

	t.Run("explicit zone beats default", func(t *testing.T) {
		cands := ResolveCandidateTimes([]string{"tomorrow at 2pm EST"}, ref, la)
		if len(cands) != 1 {
			t.Fatalf("got %d candidates, want 1", len(cands))
		}
		c := cands[0]
		if c.ZoneID != "America/New_York" {
			t.Errorf("zone = %s, want America/New_York", c.ZoneID)
		}
		want := time.Date(2026, 3, 12, 14, 0, 0, 0, ny)
		if !c.At.Equal(want) {
			t.Errorf("at = %v, want %v", c.At, want)
		}
	})

	t.Run("no zone inherits user default", func(t *testing.T) {
		cands := ResolveCandidateTimes([]string{"tomorrow at 2pm"}, ref, la)
		if len(cands) != 1 {
			t.Fatalf("got %d candidates, want 1", len(cands))
		}
		want := time.Date(2026, 3, 12, 14, 0, 0, 0, la)
		if !cands[0].At.Equal(want) {
			t.Errorf("at = %v, want %v", cands[0].At, want)
		}
	})

	t.Run("mentions resolve independently", func(t *testing.T) {
		cands := ResolveCandidateTimes(
			[]string{"tomorrow at 10am PST", "friday at 3pm"}, ref, ny)
		if len(cands) != 2 {
			t.Fatalf("got %d candidates, want 2", len(cands))
		}
		if cands[0].ZoneID != "America/Los_Angeles" {
			t.Errorf("first zone = %s, want America/Los_Angeles", cands[0].ZoneID)
		}
		if cands[1].ZoneID != "America/New_York" {
			t.Errorf("second zone = %s, want user default America/New_York", cands[1].ZoneID)
		}
		wantFriday := time.Date(2026, 3, 13, 15, 0, 0, 0, ny)
		if !cands[1].At.Equal(wantFriday) {
			t.Errorf("friday at = %v, want %v", cands[1].At, wantFriday)
		}
	})

	t.Run("weekday rolls to next week when today", func(t *testing.T) {
		cands := ResolveCandidateTimes([]string{"wednesday at noon"}, ref, la)
		if len(cands) != 1 {
			t.Fatalf("got %d candidates, want 1", len(cands))
		}
		want := time.Date(2026, 3, 18, 12, 0, 0, 0, la)
		if !cands[0].At.Equal(want) {
			t.Errorf("at = %v, want %v", cands[0].At, want)
		}
	})

	t.Run("next week without clock uses default hour", func(t *testing.T) {
		cands := ResolveCandidateTimes([]string{"sometime next week"}, ref, la)
		if len(cands) != 1 {
			t.Fatalf("got %d candidates, want 1", len(cands))
		}
		want := time.Date(2026, 3, 18, defaultMentionHour, 0, 0, 0, la)
		if !cands[0].At.Equal(want) {
			t.Errorf("at = %v, want %v", cands[0].At, want)
		}
	})

	t.Run("unparseable mentions are dropped", func(t *testing.T) {
		cands := ResolveCandidateTimes(
			[]string{"whenever works", "", "tomorrow at 2pm"}, ref, la)
		if len(cands) != 1 {
			t.Fatalf("got %d candidates, want 1", len(cands))
		}
		if cands[0].Mention != "tomorrow at 2pm" {
			t.Errorf("kept mention = %q", cands[0].Mention)
		}
	})

	t.Run("empty input yields empty slice", func(t *testing.T) {
		cands := ResolveCandidateTimes(nil, ref, la)
		if cands == nil || len(cands) != 0 {
			t.Errorf("got %v, want empty non-nil slice", cands)
		}
	})

	t.Run("nil default zone falls back to UTC", func(t *testing.T) {
		cands := ResolveCandidateTimes([]string{"tomorrow at 9am"}, ref, nil)
		if len(cands) != 1 {
			t.Fatalf("got %d candidates, want 1", len(cands))
		}
		if cands[0].ZoneID != "UTC" {
			t.Errorf("zone = %s, want UTC", cands[0].ZoneID)
		}
	})
}

type fakeCalendar struct {
	busy []domain.BusyInterval
	err  error
}

func (f *fakeCalendar) BusyIntervals(_ context.Context, _, _ time.Time) ([]domain.BusyInterval, error) {
	return f.busy, f.err
}

func scheduleResult(mentions ...string) *domain.ClassificationResult {
	return &domain.ClassificationResult{
		IsSchedulingRequest:   true,
		Confidence:            90,
		Reasoning:             "test",
		ExtractedTimeMentions: mentions,
	}
}

func laSettings(t *testing.T) *domain.UserSettings {
	t.Helper()
	return &domain.UserSettings{DefaultTimezone: "America/Los_Angeles"}
}

func TestProposeMeetingTime(t *testing.T) {
	la := mustZone(t, "America/Los_Angeles")
	ref := time.Date(2026, 3, 11, 9, 0, 0, 0, la)
	tomorrow2pm := time.Date(2026, 3, 12, 14, 0, 0, 0, la)

	newService := func(cal *fakeCalendar) *Service {
		s := NewService(cal)
		s.now = func() time.Time { return ref }
		return s
	}

	t.Run("free slot is proposed firmly", func(t *testing.T) {
		svc := newService(&fakeCalendar{})
		prop, err := svc.ProposeMeetingTime(context.Background(), scheduleResult("tomorrow at 2pm"), laSettings(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if prop.Tentative {
			t.Error("free slot must not be tentative")
		}
		if !prop.Start.Equal(tomorrow2pm) {
			t.Errorf("start = %v, want %v", prop.Start, tomorrow2pm)
		}
		if !prop.End.Equal(tomorrow2pm.Add(DefaultMeetingDuration)) {
			t.Errorf("end = %v", prop.End)
		}
	})

	t.Run("busy first candidate falls to second", func(t *testing.T) {
		svc := newService(&fakeCalendar{busy: []domain.BusyInterval{
			{Start: tomorrow2pm.Add(-10 * time.Minute), End: tomorrow2pm.Add(20 * time.Minute)},
		}})
		prop, err := svc.ProposeMeetingTime(context.Background(),
			scheduleResult("tomorrow at 2pm", "friday at 11am"), laSettings(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if prop.Tentative {
			t.Error("second candidate is free, must not be tentative")
		}
		if prop.Mention != "friday at 11am" {
			t.Errorf("mention = %q, want the free candidate", prop.Mention)
		}
	})

	t.Run("all candidates busy proposes first tentatively", func(t *testing.T) {
		svc := newService(&fakeCalendar{busy: []domain.BusyInterval{
			{Start: ref, End: ref.AddDate(0, 0, 14)},
		}})
		prop, err := svc.ProposeMeetingTime(context.Background(),
			scheduleResult("tomorrow at 2pm", "friday at 11am"), laSettings(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !prop.Tentative {
			t.Error("fully booked window must yield a tentative proposal")
		}
		if prop.Mention != "tomorrow at 2pm" {
			t.Errorf("mention = %q, want the sender's first choice", prop.Mention)
		}
	})

	t.Run("calendar failure proposes tentatively", func(t *testing.T) {
		svc := newService(&fakeCalendar{err: errors.New("provider down")})
		prop, err := svc.ProposeMeetingTime(context.Background(), scheduleResult("tomorrow at 2pm"), laSettings(t))
		if err != nil {
			t.Fatalf("calendar failure must not fail the message: %v", err)
		}
		if !prop.Tentative {
			t.Error("unverified slot must be tentative")
		}
	})

	t.Run("no resolvable mention errors", func(t *testing.T) {
		svc := newService(&fakeCalendar{})
		_, err := svc.ProposeMeetingTime(context.Background(), scheduleResult("whenever suits"), laSettings(t))
		if err == nil {
			t.Fatal("expected error for unresolvable mentions")
		}
	})
}
