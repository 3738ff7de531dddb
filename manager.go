package delays

import (
	"fmt"
	"time"

	"sbahn.dev/delays/model"
	"sbahn.dev/delays/parse"
	"sbahn.dev/delays/storage"
)

// Stations recognized in manual entries by default. The first one is
// used when an entry names none.
var DefaultStations = []string{
	"Buchenau",
	"Fürstenfeldbruck",
	"Eichenau",
	"Puchheim",
	"Aubing",
	"Pasing",
	"Grafrath",
	"Türkenfeld",
	"Geltendorf",
}

// Manager ties the record store to the schedule and the predictor.
//
// It holds no model. Callers train one, keep it as long as they like,
// and pass it back for predictions; a model older than the latest
// append is fine.
type Manager struct {
	Stations  []string
	Predictor *Predictor
	TimeNow   func() time.Time

	storage  storage.Storage
	schedule *Schedule
}

// Creates a new Manager on top of the given storage and schedule.
func NewManager(s storage.Storage, schedule *Schedule) *Manager {
	return &Manager{
		Stations:  DefaultStations,
		Predictor: NewPredictor(schedule),
		TimeNow:   time.Now,
		storage:   s,
		schedule:  schedule,
	}
}

func (m *Manager) Storage() storage.Storage {
	return m.storage
}

func (m *Manager) Schedule() *Schedule {
	return m.schedule
}

// Parses a manual entry such as "S4 +5 09:30", infers its direction
// and appends it.
func (m *Manager) AddEntry(text string) (*model.DelayRecord, error) {
	entry, err := parse.ParseEntry(text, m.Stations)
	if err != nil {
		return nil, err
	}

	station := entry.Station
	if station == "" && len(m.Stations) > 0 {
		station = m.Stations[0]
	}

	record := &model.DelayRecord{
		Line:          entry.Line,
		Station:       station,
		ScheduledTime: entry.ScheduledTime,
		Delay:         entry.Delay,
		Direction:     m.schedule.Classify(entry.Line, entry.ScheduledTime),
		Source:        model.SourceManual,
		CapturedAt:    m.TimeNow().UTC(),
	}

	if err := m.storage.Append(record); err != nil {
		return nil, fmt.Errorf("storing entry: %w", err)
	}

	return record, nil
}

// Builds a fresh model from all stored records.
func (m *Manager) Train() (*Model, error) {
	return Train(m.storage)
}

func (m *Manager) Predict(trained *Model, line string, t model.TimeOfDay) (*Prediction, error) {
	return m.Predictor.Predict(trained, line, t)
}

// Predicts from a query such as "S4 09:30". Any delay in the query is
// ignored.
func (m *Manager) PredictText(trained *Model, text string) (*Prediction, error) {
	entry, err := parse.ParseEntry(text, m.Stations)
	if err != nil {
		return nil, err
	}
	return m.Predict(trained, entry.Line, entry.ScheduledTime)
}
