package schedule

import (
	"context"
	"time"

	"assistant_server/core/domain"
	"assistant_server/core/port/out"
	"assistant_server/pkg/apperr"
	"assistant_server/pkg/logger"
)

// DefaultMeetingDuration is the slot length proposed when the message does
// not state one.
const DefaultMeetingDuration = 30 * time.Minute

// Service runs the scheduling pipeline: resolve extracted time mentions into
// absolute candidates, check each against the user's calendar, and propose
// the first free slot.
type Service struct {
	calendar out.CalendarClient
	now      func() time.Time
	log      *logger.Logger
}

func NewService(calendar out.CalendarClient) *Service {
	return &Service{
		calendar: calendar,
		now:      time.Now,
		log:      logger.Default().WithField("component", "schedule"),
	}
}

// ProposeMeetingTime turns the classifier's extracted time mentions into a
// concrete proposal for the user. Candidates resolve against the user's
// default timezone unless a mention carries its own zone. When the calendar
// is unreachable, or every candidate collides with existing events, the first
// candidate is returned tentatively rather than failing the message.
func (s *Service) ProposeMeetingTime(ctx context.Context, result *domain.ClassificationResult, settings *domain.UserSettings) (*domain.MeetingProposal, error) {
	candidates := ResolveCandidateTimes(result.ExtractedTimeMentions, s.now(), settings.Location())
	if len(candidates) == 0 {
		return nil, apperr.BadRequest("no resolvable time mention in message")
	}

	busy, err := s.busyWindow(ctx, candidates)
	if err != nil {
		s.log.WithContext(ctx).WithError(err).Warn("calendar lookup failed, proposing tentatively")
		return proposalFor(candidates[0], true), nil
	}

	for _, cand := range candidates {
		if isFree(busy, cand.At, cand.At.Add(DefaultMeetingDuration)) {
			return proposalFor(cand, false), nil
		}
	}

	// Every candidate conflicts; surface the sender's first choice and let
	// the user resolve it.
	return proposalFor(candidates[0], true), nil
}

// busyWindow fetches busy intervals spanning all candidates in one query.
func (s *Service) busyWindow(ctx context.Context, candidates []domain.ResolvedTimeCandidate) ([]domain.BusyInterval, error) {
	from, to := candidates[0].At, candidates[0].At
	for _, cand := range candidates[1:] {
		if cand.At.Before(from) {
			from = cand.At
		}
		if cand.At.After(to) {
			to = cand.At
		}
	}
	return s.calendar.BusyIntervals(ctx, from.Add(-time.Hour), to.Add(DefaultMeetingDuration+time.Hour))
}

func isFree(busy []domain.BusyInterval, start, end time.Time) bool {
	for _, b := range busy {
		if b.Overlaps(start, end) {
			return false
		}
	}
	return true
}

func proposalFor(cand domain.ResolvedTimeCandidate, tentative bool) *domain.MeetingProposal {
	return &domain.MeetingProposal{
		Start:     cand.At,
		End:       cand.At.Add(DefaultMeetingDuration),
		ZoneID:    cand.ZoneID,
		Mention:   cand.Mention,
		Tentative: tentative,
	}
}
