// Package schedule turns time mentions into concrete meeting proposals
// checked against calendar availability.
package schedule

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

// zoneAbbreviations maps common timezone abbreviations to IANA zone names.
// Abbreviations are ambiguous in general (CST is three different zones
// worldwide); this table encodes the North-America-first reading plus the
// handful of zones that show up in international mail.
var zoneAbbreviations = map[string]string{
	"PST":  "America/Los_Angeles",
	"PDT":  "America/Los_Angeles",
	"MST":  "America/Denver",
	"MDT":  "America/Denver",
	"CST":  "America/Chicago",
	"CDT":  "America/Chicago",
	"EST":  "America/New_York",
	"EDT":  "America/New_York",
	"AKST": "America/Anchorage",
	"AKDT": "America/Anchorage",
	"HST":  "Pacific/Honolulu",
	"GMT":  "Etc/GMT",
	"UTC":  "Etc/UTC",
	"BST":  "Europe/London",
	"CET":  "Europe/Paris",
	"CEST": "Europe/Paris",
	"IST":  "Asia/Kolkata",
	"JST":  "Asia/Tokyo",
	"KST":  "Asia/Seoul",
	"AEST": "Australia/Sydney",
	"AEDT": "Australia/Sydney",
}

// zonedTimePattern matches a clock time immediately followed by a timezone
// abbreviation, e.g. "2pm EST", "14:30 PST", "9:00 am CET". Only an
// abbreviation anchored to a time expression counts; a stray "EST" elsewhere
// in the text says nothing about any particular mention.
var zonedTimePattern = regexp.MustCompile(
	`(?i)\b\d{1,2}(:\d{2})?\s*(am|pm)?\s+(` + abbrevAlternation() + `)\b`)

func abbrevAlternation() string {
	abbrevs := make([]string, 0, len(zoneAbbreviations))
	for abbr := range zoneAbbreviations {
		abbrevs = append(abbrevs, abbr)
	}
	sort.Strings(abbrevs)
	return strings.Join(abbrevs, "|")
}

// ExtractTimeZone scans text for a timezone abbreviation anchored to a time
// mention and returns the matching IANA location, or nil when no explicit
// zone is present.
func ExtractTimeZone(text string) *time.Location {
	m := zonedTimePattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	return lookupZone(m[3])
}

func lookupZone(abbr string) *time.Location {
	name, ok := zoneAbbreviations[strings.ToUpper(abbr)]
	if !ok {
		return nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil
	}
	return loc
}
