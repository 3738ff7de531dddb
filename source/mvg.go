package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"
	"time"

	"sbahn.dev/delays/model"
	"sbahn.dev/delays/parse"
)

const MVGDeparturesURL = "https://www.mvg.de/api/bgw-pt/v3/departures"

type MVGStation struct {
	// MVG global id, e.g. "de:09179:6110"
	ID   string
	Name string
}

// Fetches S-Bahn departures for a set of stations from the MVG
// departures API.
type MVGSource struct {
	fetcher

	BaseURL  string
	Stations []MVGStation

	// Upper case line names to keep. Empty keeps every S-Bahn line.
	Lines    []string
	Location *time.Location
	Logger   *log.Logger
}

func NewMVGSource(stations []MVGStation, lines []string) *MVGSource {
	return &MVGSource{
		fetcher:  newFetcher(),
		BaseURL:  MVGDeparturesURL,
		Stations: stations,
		Lines:    lines,
		Location: time.UTC,
		Logger:   log.New(io.Discard, "", 0),
	}
}

// Fetches departures for every station. A station that fails is
// logged and skipped, unless all of them fail.
func (s *MVGSource) Fetch(ctx context.Context) ([]model.Observation, error) {
	if len(s.Stations) == 0 {
		return nil, fmt.Errorf("no stations configured")
	}

	lines := map[string]bool{}
	for _, line := range s.Lines {
		lines[strings.ToUpper(line)] = true
	}

	observations := []model.Observation{}
	failures := []error{}
	for _, station := range s.Stations {
		obs, err := s.fetchStation(ctx, station, lines)
		if err != nil {
			s.Logger.Printf("station %s: %v", station.Name, err)
			failures = append(failures, fmt.Errorf("station %s: %w", station.Name, err))
			continue
		}
		observations = append(observations, obs...)
	}

	if len(failures) == len(s.Stations) {
		return nil, errors.Join(failures...)
	}

	return observations, nil
}

func (s *MVGSource) fetchStation(ctx context.Context, station MVGStation, lines map[string]bool) ([]model.Observation, error) {
	q := url.Values{}
	q.Set("globalId", station.ID)
	q.Set("transportTypes", "SBAHN")

	body, err := s.get(ctx, s.BaseURL+"?"+q.Encode(), map[string]string{
		"Accept": "application/json",
	})
	if err != nil {
		return nil, err
	}

	return parse.ParseMVGDepartures(body, station.Name, lines, s.Location)
}
