package parse

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"sbahn.dev/delays/model"
)

// One departure as returned by the MVG departures endpoint. Only the
// fields we need.
type MVGDeparture struct {
	PlannedDepartureTime  int64  `json:"plannedDepartureTime"`
	RealtimeDepartureTime int64  `json:"realtimeDepartureTime"`
	DelayInMinutes        *int   `json:"delayInMinutes"`
	Realtime              bool   `json:"realtime"`
	TransportType         string `json:"transportType"`
	Label                 string `json:"label"`
	Destination           string `json:"destination"`
	Cancelled             bool   `json:"cancelled"`
}

// Extracts S-Bahn observations from an MVG departures response.
//
// Departures are kept if they're S-Bahn and, when lines is non-empty,
// on one of the given lines. Cancelled departures and departures
// without realtime data carry no delay and are skipped. Planned
// departure times are converted to time of day in loc.
func ParseMVGDepartures(
	data []byte,
	station string,
	lines map[string]bool,
	loc *time.Location,
) ([]model.Observation, error) {
	departures := []*MVGDeparture{}
	if err := json.Unmarshal(data, &departures); err != nil {
		return nil, errors.Wrap(err, "unmarshaling departures")
	}

	observations := []model.Observation{}
	for i, dep := range departures {
		if dep == nil {
			continue
		}

		line := strings.ToUpper(strings.TrimSpace(dep.Label))
		if dep.TransportType != "SBAHN" && !strings.HasPrefix(line, "S") {
			continue
		}
		if len(lines) > 0 && !lines[line] {
			continue
		}
		if dep.Cancelled {
			continue
		}

		if dep.PlannedDepartureTime <= 0 {
			return nil, fmt.Errorf("departure %d: missing plannedDepartureTime", i)
		}
		planned := time.UnixMilli(dep.PlannedDepartureTime).In(loc)

		var delay int
		switch {
		case dep.DelayInMinutes != nil:
			delay = *dep.DelayInMinutes
		case dep.Realtime && dep.RealtimeDepartureTime > 0:
			actual := time.UnixMilli(dep.RealtimeDepartureTime)
			delay = int(actual.Sub(planned).Round(time.Minute) / time.Minute)
		default:
			continue
		}

		observations = append(observations, model.Observation{
			Line:          line,
			Station:       station,
			ScheduledTime: model.TimeOfDayOf(planned),
			Delay:         delay,
		})
	}

	return observations, nil
}
