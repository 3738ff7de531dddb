package parse

import (
	"fmt"
	"math"
	"time"

	gtfsproto "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/pkg/errors"
	proto "google.golang.org/protobuf/proto"

	"sbahn.dev/delays/model"
)

// Selects which parts of a GTFS Realtime feed become observations.
type RealtimeFilter struct {
	// route_id -> line name. Trips on other routes are ignored.
	RouteLines map[string]string

	// stop_id -> station name. Updates for other stops are
	// ignored.
	Stops map[string]string
}

// Extracts delay observations from a GTFS Realtime TripUpdates feed.
//
// Only scheduled trips and scheduled stop_time_updates with an
// absolute time are used, since the scheduled time is recovered as
// time - delay. Arrival is preferred over departure.
func ParseRealtime(feed []byte, filter RealtimeFilter, loc *time.Location) ([]model.Observation, error) {
	f := &gtfsproto.FeedMessage{}
	if err := proto.Unmarshal(feed, f); err != nil {
		return nil, errors.Wrap(err, "unmarshaling protobuf")
	}

	header := f.GetHeader()

	version := header.GetGtfsRealtimeVersion()
	if version != "2.0" && version != "1.0" {
		return nil, fmt.Errorf("version %s not supported", version)
	}

	if header.GetIncrementality() != gtfsproto.FeedHeader_FULL_DATASET {
		return nil, fmt.Errorf("feed incrementality %s not supported", header.GetIncrementality())
	}

	observations := []model.Observation{}
	for _, entity := range f.GetEntity() {
		// We only care about TripUpdates
		if entity.TripUpdate == nil {
			continue
		}

		trip := entity.TripUpdate.Trip
		if trip == nil {
			return nil, fmt.Errorf("entity %s: trip_update missing trip", entity.GetId())
		}

		if trip.GetScheduleRelationship() != gtfsproto.TripDescriptor_SCHEDULED {
			continue
		}

		line, found := filter.RouteLines[trip.GetRouteId()]
		if !found {
			continue
		}

		for _, update := range entity.TripUpdate.GetStopTimeUpdate() {
			if update.GetScheduleRelationship() != gtfsproto.TripUpdate_StopTimeUpdate_SCHEDULED {
				continue
			}

			station, found := filter.Stops[update.GetStopId()]
			if !found {
				continue
			}

			event := update.GetArrival()
			if event == nil || event.GetTime() == 0 {
				event = update.GetDeparture()
			}
			if event == nil || event.GetTime() == 0 {
				continue
			}

			actual := time.Unix(event.GetTime(), 0)
			delay := time.Duration(event.GetDelay()) * time.Second
			scheduled := actual.Add(-delay).In(loc)

			observations = append(observations, model.Observation{
				Line:          line,
				Station:       station,
				ScheduledTime: model.TimeOfDayOf(scheduled),
				Delay:         int(math.Round(delay.Minutes())),
			})
		}
	}

	return observations, nil
}
