package schedule

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"assistant_server/core/domain"
)

var (
	clockPattern   = regexp.MustCompile(`(?i)\b(\d{1,2})(:(\d{2}))?\s*(am|pm)?\b`)
	nextWeekRegexp = regexp.MustCompile(`(?i)\bnext\s+week\b`)

	weekdays = map[string]time.Weekday{
		"sunday":    time.Sunday,
		"monday":    time.Monday,
		"tuesday":   time.Tuesday,
		"wednesday": time.Wednesday,
		"thursday":  time.Thursday,
		"friday":    time.Friday,
		"saturday":  time.Saturday,
	}

	// Rough hour for daypart-only mentions like "tomorrow morning".
	dayparts = map[string]int{
		"morning":   9,
		"noon":      12,
		"afternoon": 14,
		"evening":   18,
		"tonight":   19,
	}
)

// defaultMentionHour is used when a mention names a day but no clock time,
// e.g. "next week" or "on Tuesday".
const defaultMentionHour = 10

// ResolveCandidateTimes resolves each extracted time mention into an absolute
// instant. Every mention resolves independently: an explicit zone abbreviation
// inside the mention wins over defaultZone for that mention only. Mentions
// that cannot be parsed are dropped, never an error; nil or empty input yields
// an empty slice.
func ResolveCandidateTimes(mentions []string, referenceDate time.Time, defaultZone *time.Location) []domain.ResolvedTimeCandidate {
	if defaultZone == nil {
		defaultZone = time.UTC
	}

	candidates := make([]domain.ResolvedTimeCandidate, 0, len(mentions))
	for _, mention := range mentions {
		if strings.TrimSpace(mention) == "" {
			continue
		}

		loc := ExtractTimeZone(mention)
		if loc == nil {
			loc = defaultZone
		}

		at, ok := resolveMention(mention, referenceDate.In(loc), loc)
		if !ok {
			continue
		}

		candidates = append(candidates, domain.ResolvedTimeCandidate{
			Mention: mention,
			Zone:    loc,
			ZoneID:  loc.String(),
			At:      at,
		})
	}
	return candidates
}

// resolveMention interprets one mention relative to ref (already expressed in
// loc). It needs at least a day word or a clock time to produce an instant.
func resolveMention(mention string, ref time.Time, loc *time.Location) (time.Time, bool) {
	lower := strings.ToLower(mention)

	dayOffset, hasDay := resolveDayOffset(lower, ref)
	hour, minute, hasClock := resolveClock(lower)
	if !hasClock {
		hour, hasClock = resolveDaypart(lower)
		minute = 0
	}

	if !hasDay && !hasClock {
		return time.Time{}, false
	}
	if !hasClock {
		hour = defaultMentionHour
		minute = 0
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return time.Time{}, false
	}

	day := ref.AddDate(0, 0, dayOffset)
	at := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc)

	// A bare clock time today that has already passed means the next day.
	if !hasDay && at.Before(ref) {
		at = at.AddDate(0, 0, 1)
	}
	return at, true
}

func resolveDayOffset(lower string, ref time.Time) (int, bool) {
	switch {
	case strings.Contains(lower, "tomorrow"):
		return 1, true
	case strings.Contains(lower, "today") || strings.Contains(lower, "tonight"):
		return 0, true
	case nextWeekRegexp.MatchString(lower):
		return 7, true
	}
	for name, wd := range weekdays {
		if strings.Contains(lower, name) {
			offset := (int(wd) - int(ref.Weekday()) + 7) % 7
			if offset == 0 {
				offset = 7
			}
			return offset, true
		}
	}
	return 0, false
}

func resolveClock(lower string) (hour, minute int, ok bool) {
	m := clockPattern.FindStringSubmatch(lower)
	if m == nil {
		return 0, 0, false
	}

	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	if m[3] != "" {
		minute, err = strconv.Atoi(m[3])
		if err != nil {
			return 0, 0, false
		}
	}

	meridiem := strings.ToLower(m[4])
	switch meridiem {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	default:
		// A bare small number without am/pm ("at 3") reads as afternoon;
		// bare "14:30" style stays as written.
		if m[2] == "" && hour >= 1 && hour <= 7 {
			hour += 12
		}
	}

	if hour > 23 {
		return 0, 0, false
	}
	return hour, minute, true
}

func resolveDaypart(lower string) (int, bool) {
	for name, hour := range dayparts {
		if strings.Contains(lower, name) {
			return hour, true
		}
	}
	return 0, false
}
