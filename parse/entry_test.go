package parse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sbahn.dev/delays/model"
)

var testStations = []string{"Buchenau", "Fürstenfeldbruck", "Pasing"}

func TestParseEntry(t *testing.T) {
	for _, tc := range []struct {
		name  string
		input string
		entry *Entry
	}{
		{
			"basic",
			"S4 +5 09:30",
			&Entry{Line: "S4", ScheduledTime: 9*60 + 30, Delay: 5, HasDelay: true},
		},
		{
			"with station",
			"S20 Buchenau +3 10:15",
			&Entry{Line: "S20", Station: "Buchenau", ScheduledTime: 10*60 + 15, Delay: 3, HasDelay: true},
		},
		{
			"lower case and min suffix",
			"s4 buchenau 5min 09:00",
			&Entry{Line: "S4", Station: "Buchenau", ScheduledTime: 9 * 60, Delay: 5, HasDelay: true},
		},
		{
			"min suffix with space",
			"S4 7 min 08:05",
			&Entry{Line: "S4", ScheduledTime: 8*60 + 5, Delay: 7, HasDelay: true},
		},
		{
			"delay first",
			"+2 S4 09:45",
			&Entry{Line: "S4", ScheduledTime: 9*60 + 45, Delay: 2, HasDelay: true},
		},
		{
			"negative delay",
			"s4 -2 8:00",
			&Entry{Line: "S4", ScheduledTime: 8 * 60, Delay: -2, HasDelay: true},
		},
		{
			"umlaut station",
			"+7 S4 Fürstenfeldbruck 09:45",
			&Entry{Line: "S4", Station: "Fürstenfeldbruck", ScheduledTime: 9*60 + 45, Delay: 7, HasDelay: true},
		},
		{
			"signed min suffix",
			"S4 +5min 09:30",
			&Entry{Line: "S4", ScheduledTime: 9*60 + 30, Delay: 5, HasDelay: true},
		},
		{
			"negative min suffix",
			"S4 -3 min 09:30",
			&Entry{Line: "S4", ScheduledTime: 9*60 + 30, Delay: -3, HasDelay: true},
		},
		{
			"no delay",
			"S4 09:30",
			&Entry{Line: "S4", ScheduledTime: 9*60 + 30},
		},
		{
			"midnight",
			"S20 +1 00:00",
			&Entry{Line: "S20", ScheduledTime: 0, Delay: 1, HasDelay: true},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			entry, err := ParseEntry(tc.input, testStations)
			require.NoError(t, err)
			assert.Equal(t, tc.entry, entry)
		})
	}
}

func TestParseEntryErrors(t *testing.T) {
	for _, tc := range []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"no time", "S4 +5"},
		{"no line", "+5 09:30"},
		{"only station", "Buchenau +5 09:30"},
		{"hour out of range", "S4 +5 24:00"},
		{"minute out of range", "S4 +5 09:60"},
		{"bare number", "S4 5 09:30"},
		{"second delay", "S4 +5 +3 09:30"},
		{"second line", "S4 S20 09:30"},
		{"malformed delay", "S4 +5m 09:30"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseEntry(tc.input, testStations)
			require.Error(t, err)
			var pe *ParseError
			assert.True(t, errors.As(err, &pe), "got %T", err)
			assert.Equal(t, tc.input, pe.Input)
		})
	}
}

func TestParseEntryTimeOfDay(t *testing.T) {
	entry, err := ParseEntry("S4 +5 09:30", nil)
	require.NoError(t, err)
	assert.Equal(t, "09:30", entry.ScheduledTime.String())
	assert.Equal(t, model.TimeOfDay(570), entry.ScheduledTime)
}
