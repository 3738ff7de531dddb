package delays

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"sbahn.dev/delays/model"
	"sbahn.dev/delays/storage"
)

// Aggregate delay statistics for one bucket.
type ModelEntry struct {
	Bucket Bucket
	Count  int
	Sum    int
	Mean   float64

	// Population standard deviation. Zero for single samples.
	StdDev float64
}

// Model maps buckets to delay statistics. Buckets without samples are
// absent. A Model is never modified after Train returns it.
type Model struct {
	entries map[Bucket]*ModelEntry
	lines   map[string][]*ModelEntry
}

// Builds a model from every record in the store.
//
// Records are bucketed by their stored direction. Mean is used rather
// than median so training is a single pass; outliers do skew it.
// An empty store yields an empty model.
func Train(s storage.Storage) (*Model, error) {
	samples := map[Bucket][]float64{}
	sums := map[Bucket]int{}

	err := s.Scan(storage.RecordFilter{}, func(r *model.DelayRecord) error {
		b := NewBucket(r.Line, r.ScheduledTime, r.Direction)
		samples[b] = append(samples[b], float64(r.Delay))
		sums[b] += r.Delay
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning records: %w", err)
	}

	m := &Model{
		entries: make(map[Bucket]*ModelEntry, len(samples)),
		lines:   map[string][]*ModelEntry{},
	}

	for b, xs := range samples {
		entry := &ModelEntry{
			Bucket: b,
			Count:  len(xs),
			Sum:    sums[b],
			Mean:   float64(sums[b]) / float64(len(xs)),
		}
		if len(xs) > 1 {
			_, entry.StdDev = stat.PopMeanStdDev(xs, nil)
		}
		m.entries[b] = entry
		m.lines[b.Line] = append(m.lines[b.Line], entry)
	}

	for _, entries := range m.lines {
		sortEntries(entries)
	}

	return m, nil
}

func (m *Model) Lookup(b Bucket) (*ModelEntry, bool) {
	e, ok := m.entries[b]
	return e, ok
}

func (m *Model) Len() int {
	return len(m.entries)
}

// Lines with at least one record, sorted.
func (m *Model) Lines() []string {
	lines := make([]string, 0, len(m.lines))
	for line := range m.lines {
		lines = append(lines, line)
	}
	sort.Strings(lines)
	return lines
}

// Entries for a line, ordered by slot then direction.
func (m *Model) LineEntries(line string) []*ModelEntry {
	return m.lines[strings.ToUpper(line)]
}

// All entries ordered by line, slot and direction.
func (m *Model) Entries() []*ModelEntry {
	entries := make([]*ModelEntry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e)
	}
	sortEntries(entries)
	return entries
}

func sortEntries(entries []*ModelEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].Bucket, entries[j].Bucket
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Slot != b.Slot {
			return a.Slot < b.Slot
		}
		return a.Direction < b.Direction
	})
}
