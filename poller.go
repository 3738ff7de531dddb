package delays

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"sbahn.dev/delays/model"
	"sbahn.dev/delays/storage"
)

const DefaultPollInterval = 60 * time.Second

var (
	observationsFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sbahn_poller_observations_fetched_total",
		Help: "Total number of observations returned by the source.",
	})
	recordsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sbahn_poller_records_stored_total",
		Help: "Total number of delay records appended by the poller.",
	})
	fetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sbahn_poller_fetch_failures_total",
		Help: "Total number of failed fetches.",
	})
	pollDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sbahn_poller_cycle_duration_seconds",
		Help:    "Duration of a fetch and append cycle.",
		Buckets: []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
	})
)

// An external source of delay observations, e.g. a departures API.
type Source interface {
	Fetch(ctx context.Context) ([]model.Observation, error)
}

// Receives every record the poller has appended. Failures are logged
// and otherwise ignored.
type RecordSink interface {
	Publish(ctx context.Context, record *model.DelayRecord) error
}

// FetchError wraps failures to get observations from a Source.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching observations: %v", e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Poller periodically moves observations from a Source into storage,
// classifying each one on the way.
//
// Delivery is at-least-once: observations returned by several fetches
// are stored every time.
type Poller struct {
	Source     Source
	Classifier DirectionClassifier
	Storage    storage.Storage
	Sink       RecordSink
	Interval   time.Duration
	RecordType model.RecordSource
	Logger     *log.Logger
	TimeNow    func() time.Time
}

func NewPoller(src Source, classifier DirectionClassifier, s storage.Storage) *Poller {
	return &Poller{
		Source:     src,
		Classifier: classifier,
		Storage:    s,
		Interval:   DefaultPollInterval,
		RecordType: model.SourceAPI,
		Logger:     log.New(io.Discard, "", 0),
		TimeNow:    time.Now,
	}
}

// Runs a single fetch and append cycle. Returns the number of records
// appended.
//
// A failed fetch yields a *FetchError. Observations the store rejects
// as invalid are logged and skipped. Any other append failure stops
// the cycle and is returned; records appended before it are kept.
func (p *Poller) Poll(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() {
		pollDuration.Observe(time.Since(start).Seconds())
	}()

	observations, err := p.Source.Fetch(ctx)
	if err != nil {
		fetchFailures.Inc()
		return 0, &FetchError{Err: err}
	}
	observationsFetched.Add(float64(len(observations)))

	capturedAt := p.TimeNow().UTC()
	stored := 0
	for _, obs := range observations {
		record := &model.DelayRecord{
			Line:          obs.Line,
			Station:       obs.Station,
			ScheduledTime: obs.ScheduledTime,
			Delay:         obs.Delay,
			Direction:     p.Classifier.Classify(obs.Line, obs.ScheduledTime),
			Source:        p.RecordType,
			CapturedAt:    capturedAt,
		}

		err := p.Storage.Append(record)
		if errors.Is(err, storage.ErrInvalidRecord) {
			p.Logger.Printf("skipping observation %+v: %v", obs, err)
			continue
		}
		if err != nil {
			return stored, fmt.Errorf("appending %s %s: %w", obs.Line, obs.ScheduledTime, err)
		}
		recordsStored.Inc()
		stored++

		if p.Sink != nil {
			if err := p.Sink.Publish(ctx, record); err != nil {
				p.Logger.Printf("publishing record %d failed: %v", record.ID, err)
			}
		}
	}

	return stored, nil
}

// Polls once immediately and then once per Interval until ctx is
// done.
//
// Cycles run on this goroutine, so they never overlap. Ticks that fire
// during a slow cycle collapse into a single pending tick. Fetch
// failures are logged and retried on the next tick. Any other error,
// such as a storage failure, ends the loop and is returned.
func (p *Poller) Run(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	p.Logger.Printf("poller running: interval=%s", interval)

	if err := p.cycle(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := p.cycle(ctx); err != nil {
				return err
			}
		case <-ctx.Done():
			p.Logger.Printf("poller shutting down")
			return nil
		}
	}
}

func (p *Poller) cycle(ctx context.Context) error {
	n, err := p.Poll(ctx)
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			p.Logger.Printf("fetch failed, retrying next tick: %v", err)
			return nil
		}
		p.Logger.Printf("poll cycle failed: %v", err)
		return err
	}
	p.Logger.Printf("poll cycle completed: %d records stored", n)
	return nil
}
