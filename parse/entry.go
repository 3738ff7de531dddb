package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"sbahn.dev/delays/model"
)

// ParseError is returned for malformed manual entries.
type ParseError struct {
	Input  string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parsing '%s': %s: %v", e.Input, e.Reason, e.Err)
	}
	return fmt.Sprintf("parsing '%s': %s", e.Input, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// A manually entered observation. Direction is never part of an
// entry; it's inferred from the schedule.
type Entry struct {
	Line          string
	Station       string
	ScheduledTime model.TimeOfDay
	Delay         int
	HasDelay      bool
}

var (
	entryDelayRe = regexp.MustCompile(`(?:^|\s)([+\-]\d+(?:\s*MIN)?|\d+\s*MIN)(?:\s|$)`)
	entryTimeRe  = regexp.MustCompile(`(?:^|\s)(\d{1,2}:\d{2})(?:\s|$)`)
	entryLineRe  = regexp.MustCompile(`^[A-Z]+\d+[A-Z]?$`)
)

// Parses free text such as "S4 +5 09:30", "S20 Buchenau +3 10:15",
// "s4 buchenau 5min 09:00" or "+2 S4 09:45".
//
// Delay is given as +N, -N, Nmin or N min (optionally signed) and
// defaults to 0 when absent. Station is optional and only recognized
// if it's one of the given stations. Any other token holding digits,
// such as a bare "5", is rejected rather than ignored.
func ParseEntry(text string, stations []string) (*Entry, error) {
	upper := strings.ToUpper(strings.TrimSpace(text))
	entry := &Entry{}

	// Pull out delay and time first, so that what remains can be
	// searched for line and station.
	rest := upper
	if m := entryDelayRe.FindStringSubmatchIndex(rest); m != nil {
		token := rest[m[2]:m[3]]
		digits := strings.TrimSpace(strings.TrimSuffix(token, "MIN"))
		delay, err := strconv.Atoi(digits)
		if err != nil {
			return nil, &ParseError{Input: text, Reason: "invalid delay", Err: err}
		}
		entry.Delay = delay
		entry.HasDelay = true
		rest = rest[:m[2]] + " " + rest[m[3]:]
	}

	m := entryTimeRe.FindStringSubmatchIndex(rest)
	if m == nil {
		return nil, &ParseError{Input: text, Reason: "no time found (e.g. 09:30)"}
	}
	t, err := model.ParseTimeOfDay(rest[m[2]:m[3]])
	if err != nil {
		return nil, &ParseError{Input: text, Reason: "invalid time", Err: err}
	}
	entry.ScheduledTime = t
	rest = rest[:m[2]] + " " + rest[m[3]:]

	for _, station := range stations {
		if station != "" && strings.Contains(rest, strings.ToUpper(station)) {
			entry.Station = station
			rest = strings.Replace(rest, strings.ToUpper(station), " ", 1)
			break
		}
	}

	for _, token := range strings.Fields(rest) {
		if entry.Line == "" && entryLineRe.MatchString(token) {
			entry.Line = token
			continue
		}
		if strings.ContainsAny(token, "0123456789") {
			return nil, &ParseError{Input: text, Reason: fmt.Sprintf("unrecognized token '%s'", token)}
		}
	}
	if entry.Line == "" {
		return nil, &ParseError{Input: text, Reason: "no line found (e.g. S4)"}
	}

	return entry, nil
}
