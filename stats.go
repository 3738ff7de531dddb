package delays

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"sbahn.dev/delays/model"
	"sbahn.dev/delays/storage"
)

// Trains with a delay below this many minutes count as on time.
const OnTimeThreshold = 5

type Summary struct {
	Count  int
	Mean   float64
	StdDev float64
	Min    int
	Max    int
	OnTime int
	Late   int
}

type LineSummary struct {
	Line string
	Summary
}

type WeekdaySummary struct {
	Weekday time.Weekday
	Count   int
	Mean    float64
}

type Stats struct {
	Overall Summary
	Lines   []LineSummary

	// Monday first. Weekday is taken from CapturedAt in the
	// manager's location.
	Weekdays []WeekdaySummary

	// Most recent records, newest first.
	Recent []model.DelayRecord
}

// Computes summary statistics over all stored records. At most recent
// records are included in Recent.
func (m *Manager) Stats(recent int, loc *time.Location) (*Stats, error) {
	if loc == nil {
		loc = time.UTC
	}

	all := []float64{}
	byLine := map[string][]float64{}
	byWeekday := map[time.Weekday][]float64{}
	last := []model.DelayRecord{}

	err := m.storage.Scan(storage.RecordFilter{}, func(r *model.DelayRecord) error {
		d := float64(r.Delay)
		all = append(all, d)
		byLine[r.Line] = append(byLine[r.Line], d)
		wd := r.CapturedAt.In(loc).Weekday()
		byWeekday[wd] = append(byWeekday[wd], d)

		if recent > 0 {
			last = append(last, *r)
			if len(last) > recent {
				last = last[1:]
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning records: %w", err)
	}

	stats := &Stats{
		Overall: summarize(all),
		Recent:  make([]model.DelayRecord, 0, len(last)),
	}

	for line, delays := range byLine {
		stats.Lines = append(stats.Lines, LineSummary{Line: line, Summary: summarize(delays)})
	}
	sort.Slice(stats.Lines, func(i, j int) bool {
		return stats.Lines[i].Line < stats.Lines[j].Line
	})

	for i := 0; i < 7; i++ {
		wd := time.Weekday((i + 1) % 7)
		ws := WeekdaySummary{Weekday: wd, Count: len(byWeekday[wd])}
		if ws.Count > 0 {
			ws.Mean = stat.Mean(byWeekday[wd], nil)
		}
		stats.Weekdays = append(stats.Weekdays, ws)
	}

	for i := len(last) - 1; i >= 0; i-- {
		stats.Recent = append(stats.Recent, last[i])
	}

	return stats, nil
}

func summarize(delays []float64) Summary {
	s := Summary{Count: len(delays)}
	if s.Count == 0 {
		return s
	}

	s.Mean, s.StdDev = stat.PopMeanStdDev(delays, nil)
	s.Min = int(floats.Min(delays))
	s.Max = int(floats.Max(delays))

	for _, d := range delays {
		if d < OnTimeThreshold {
			s.OnTime++
		} else {
			s.Late++
		}
	}

	return s
}
