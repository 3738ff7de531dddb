package delays

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"sbahn.dev/delays/model"
)

// How far the predictor widens the search, in slots on either side of
// the queried one. 6 slots of 5 minutes is ±30 minutes.
const DefaultMaxWidenSteps = 6

// Returned when a line has no records at all. Not a fault.
var ErrPredictionUnavailable = errors.New("prediction unavailable")

type PredictionSource int

const (
	// The queried bucket had samples.
	PredictionExact PredictionSource = iota

	// Neighbouring time buckets on the same line were averaged.
	PredictionWidened

	// All buckets on the line were averaged.
	PredictionLineAverage
)

func (s PredictionSource) String() string {
	switch s {
	case PredictionExact:
		return "exact"
	case PredictionWidened:
		return "widened"
	case PredictionLineAverage:
		return "line_average"
	}
	return fmt.Sprintf("PredictionSource(%d)", int(s))
}

type Prediction struct {
	Line      string
	Time      model.TimeOfDay
	Direction model.Direction

	// Expected delay in minutes.
	Delay float64

	// Number of records behind the prediction. This is the only
	// confidence signal.
	Samples int

	// Number of buckets averaged.
	Buckets int

	Source PredictionSource

	// Half width of the time window searched, for widened
	// predictions.
	Window time.Duration
}

type Predictor struct {
	Classifier    DirectionClassifier
	MaxWidenSteps int
}

func NewPredictor(classifier DirectionClassifier) *Predictor {
	return &Predictor{
		Classifier:    classifier,
		MaxWidenSteps: DefaultMaxWidenSteps,
	}
}

// Predicts the delay for line at scheduled time t.
//
// Falls back from the exact bucket, to neighbouring buckets within
// MaxWidenSteps slots (any direction), to the line-wide average.
// Multi-bucket averages are weighted by sample count. Returns
// ErrPredictionUnavailable if the model has nothing for the line.
func (p *Predictor) Predict(m *Model, line string, t model.TimeOfDay) (*Prediction, error) {
	line = strings.ToUpper(strings.TrimSpace(line))
	if line == "" {
		return nil, fmt.Errorf("empty line")
	}
	if !t.Valid() {
		return nil, fmt.Errorf("invalid time of day %d", t)
	}

	direction := model.DirectionUnknown
	if p.Classifier != nil {
		direction = p.Classifier.Classify(line, t)
	}

	pred := &Prediction{
		Line:      line,
		Time:      t,
		Direction: direction,
	}

	bucket := NewBucket(line, t, direction)
	if entry, ok := m.Lookup(bucket); ok {
		pred.Delay = entry.Mean
		pred.Samples = entry.Count
		pred.Buckets = 1
		pred.Source = PredictionExact
		return pred, nil
	}

	entries := m.LineEntries(line)
	if len(entries) == 0 {
		return nil, fmt.Errorf("line %s: %w", line, ErrPredictionUnavailable)
	}

	for k := 1; k <= p.MaxWidenSteps; k++ {
		window := []*ModelEntry{}
		for _, e := range entries {
			if SlotDistance(e.Bucket.Slot, bucket.Slot) <= k {
				window = append(window, e)
			}
		}
		if len(window) > 0 {
			pooled(pred, window)
			pred.Source = PredictionWidened
			pred.Window = time.Duration(k) * BucketWidth
			return pred, nil
		}
	}

	pooled(pred, entries)
	pred.Source = PredictionLineAverage
	return pred, nil
}

// Sample weighted mean over entries, using the integer sums so the
// result matches a plain mean over the underlying records.
func pooled(pred *Prediction, entries []*ModelEntry) {
	sum, count := 0, 0
	for _, e := range entries {
		sum += e.Sum
		count += e.Count
	}
	pred.Delay = float64(sum) / float64(count)
	pred.Samples = count
	pred.Buckets = len(entries)
}
