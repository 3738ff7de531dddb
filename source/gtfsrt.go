package source

import (
	"context"
	"time"

	"sbahn.dev/delays/model"
	"sbahn.dev/delays/parse"
)

// Reads delays from a GTFS Realtime TripUpdates feed.
type GTFSRTSource struct {
	fetcher

	URL      string
	Filter   parse.RealtimeFilter
	Location *time.Location
}

func NewGTFSRTSource(url string, filter parse.RealtimeFilter) *GTFSRTSource {
	return &GTFSRTSource{
		fetcher:  newFetcher(),
		URL:      url,
		Filter:   filter,
		Location: time.UTC,
	}
}

func (s *GTFSRTSource) Fetch(ctx context.Context) ([]model.Observation, error) {
	feed, err := s.get(ctx, s.URL, map[string]string{
		"Accept": "application/x-protobuf",
	})
	if err != nil {
		return nil, err
	}

	return parse.ParseRealtime(feed, s.Filter, s.Location)
}
