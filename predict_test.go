package delays_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sbahn.dev/delays"
	"sbahn.dev/delays/model"
	"sbahn.dev/delays/storage"
	"sbahn.dev/delays/testutil"
)

func trainedModel(t *testing.T, rows ...string) *delays.Model {
	s := storage.NewMemoryStorage()
	testutil.Populate(t, s, rows...)
	m, err := delays.Train(s)
	require.NoError(t, err)
	return m
}

func TestPredictExact(t *testing.T) {
	// Both records are inbound according to the default schedule
	m := trainedModel(t,
		"S4 09:30 5 inbound",
		"S4 09:30 3 inbound",
	)
	p := delays.NewPredictor(delays.DefaultSchedule())

	pred, err := p.Predict(m, "S4", testutil.TimeOfDay(t, "09:30"))
	require.NoError(t, err)
	assert.Equal(t, "S4", pred.Line)
	assert.Equal(t, model.DirectionInbound, pred.Direction)
	assert.Equal(t, 4.0, pred.Delay)
	assert.Equal(t, 2, pred.Samples)
	assert.Equal(t, 1, pred.Buckets)
	assert.Equal(t, delays.PredictionExact, pred.Source)

	// Same bucket, lower case line
	pred, err = p.Predict(m, "s4", testutil.TimeOfDay(t, "09:31"))
	require.NoError(t, err)
	assert.Equal(t, 4.0, pred.Delay)
	assert.Equal(t, delays.PredictionExact, pred.Source)
}

func TestPredictWidens(t *testing.T) {
	m := trainedModel(t,
		"S4 09:00 2 outbound",
		"S4 09:10 6 inbound",
	)
	p := delays.NewPredictor(delays.DefaultSchedule())

	// 09:05 has a bucket of its own with no samples. Its
	// neighbours on either side are one slot away.
	pred, err := p.Predict(m, "S4", testutil.TimeOfDay(t, "09:05"))
	require.NoError(t, err)
	assert.Equal(t, delays.PredictionWidened, pred.Source)
	assert.Equal(t, 4.0, pred.Delay)
	assert.Equal(t, 2, pred.Samples)
	assert.Equal(t, 2, pred.Buckets)
	assert.Equal(t, 5*time.Minute, pred.Window)
}

func TestPredictWidensToNearestFirst(t *testing.T) {
	m := trainedModel(t,
		"S4 09:45 10",
		"S4 10:10 0",
	)
	p := delays.NewPredictor(nil)

	// 09:45 is three slots from 10:00, 10:10 is two
	pred, err := p.Predict(m, "S4", testutil.TimeOfDay(t, "10:00"))
	require.NoError(t, err)
	assert.Equal(t, delays.PredictionWidened, pred.Source)
	assert.Equal(t, 0.0, pred.Delay)
	assert.Equal(t, 1, pred.Samples)
	assert.Equal(t, 10*time.Minute, pred.Window)
}

func TestPredictWeightsBySamples(t *testing.T) {
	m := trainedModel(t,
		"S4 09:00 1",
		"S4 09:00 1",
		"S4 09:00 1",
		"S4 09:10 9",
	)
	p := delays.NewPredictor(nil)

	pred, err := p.Predict(m, "S4", testutil.TimeOfDay(t, "09:05"))
	require.NoError(t, err)
	assert.Equal(t, delays.PredictionWidened, pred.Source)
	assert.Equal(t, 3.0, pred.Delay)
	assert.Equal(t, 4, pred.Samples)
}

func TestPredictLineAverage(t *testing.T) {
	m := trainedModel(t,
		"S4 06:00 2",
		"S4 18:00 8",
		"S20 12:00 100",
	)
	p := delays.NewPredictor(nil)

	// More than 30 minutes from any record
	pred, err := p.Predict(m, "S4", testutil.TimeOfDay(t, "12:00"))
	require.NoError(t, err)
	assert.Equal(t, delays.PredictionLineAverage, pred.Source)
	assert.Equal(t, 5.0, pred.Delay)
	assert.Equal(t, 2, pred.Samples)
	assert.Equal(t, 2, pred.Buckets)

	// Exactly 30 minutes away is still widened
	pred, err = p.Predict(m, "S4", testutil.TimeOfDay(t, "06:30"))
	require.NoError(t, err)
	assert.Equal(t, delays.PredictionWidened, pred.Source)
	assert.Equal(t, 2.0, pred.Delay)
	assert.Equal(t, 30*time.Minute, pred.Window)

	// A narrower window falls back sooner
	p.MaxWidenSteps = 2
	pred, err = p.Predict(m, "S4", testutil.TimeOfDay(t, "06:30"))
	require.NoError(t, err)
	assert.Equal(t, delays.PredictionLineAverage, pred.Source)
}

func TestPredictWidensAcrossMidnight(t *testing.T) {
	m := trainedModel(t, "S4 23:55 7")
	p := delays.NewPredictor(nil)

	pred, err := p.Predict(m, "S4", testutil.TimeOfDay(t, "00:05"))
	require.NoError(t, err)
	assert.Equal(t, delays.PredictionWidened, pred.Source)
	assert.Equal(t, 7.0, pred.Delay)
	assert.Equal(t, 10*time.Minute, pred.Window)
}

func TestPredictUnavailable(t *testing.T) {
	p := delays.NewPredictor(delays.DefaultSchedule())

	// Empty model
	m := trainedModel(t)
	_, err := p.Predict(m, "S4", testutil.TimeOfDay(t, "09:30"))
	assert.True(t, errors.Is(err, delays.ErrPredictionUnavailable))

	// Other lines don't help
	m = trainedModel(t, "S20 09:30 5")
	_, err = p.Predict(m, "S4", testutil.TimeOfDay(t, "09:30"))
	assert.True(t, errors.Is(err, delays.ErrPredictionUnavailable))
}

func TestPredictInvalidInput(t *testing.T) {
	m := trainedModel(t, "S4 09:30 5")
	p := delays.NewPredictor(nil)

	_, err := p.Predict(m, "", testutil.TimeOfDay(t, "09:30"))
	assert.Error(t, err)
	assert.False(t, errors.Is(err, delays.ErrPredictionUnavailable))

	_, err = p.Predict(m, "S4", model.MinutesPerDay)
	assert.Error(t, err)
}

func TestPredictDeterministic(t *testing.T) {
	m := trainedModel(t,
		"S4 07:00 2 outbound",
		"S4 07:12 4 inbound",
		"S4 08:30 1 inbound",
		"S4 17:05 9 outbound",
	)
	p := delays.NewPredictor(delays.DefaultSchedule())

	for tod := model.TimeOfDay(0); tod < model.MinutesPerDay; tod += 7 {
		first, err := p.Predict(m, "S4", tod)
		require.NoError(t, err)
		second, err := p.Predict(m, "S4", tod)
		require.NoError(t, err)
		assert.Equal(t, first, second, "at %s", tod)
	}
}

func TestPredictionSourceString(t *testing.T) {
	assert.Equal(t, "exact", delays.PredictionExact.String())
	assert.Equal(t, "widened", delays.PredictionWidened.String())
	assert.Equal(t, "line_average", delays.PredictionLineAverage.String())
}
