package domain

import (
	"strings"
	"time"
)

// TimeParseOutcome tags how an event-time value was resolved, so a fallback
// to the current time is an observable, testable degradation instead of a
// silent substitution.
type TimeParseOutcome int

const (
	// ParsedOK means one of the known layouts matched.
	ParsedOK TimeParseOutcome = iota
	// ParsedFallbackUsed means no layout matched and the current clock
	// time was substituted. Callers should log this at WARN.
	ParsedFallbackUsed
)

// eventTimeLayouts is the ordered list of layouts tried against stored or
// upstream event-time strings. RFC3339 first because that is what the store
// writes; the space- and slash-separated forms cover legacy catalog dumps.
var eventTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
}

// ParseEventTime resolves a raw event-time string to a UTC timestamp using
// the ordered layout list. An unparseable or empty value yields the current
// clock time with ParsedFallbackUsed.
func ParseEventTime(raw string) (time.Time, TimeParseOutcome) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, "Z")
	if s == "" {
		return clock.Now().UTC(), ParsedFallbackUsed
	}
	for _, layout := range eventTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), ParsedOK
		}
	}
	return clock.Now().UTC(), ParsedFallbackUsed
}
