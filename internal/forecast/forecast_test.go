package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/i474232898/sensor-dashboard/internal/telemetry"
)

var base = time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

func TestNewRecognisesBackends(t *testing.T) {
	m, err := New("KNN", Options{Neighbors: 5})
	require.NoError(t, err)
	require.Equal(t, 5, m.(*KNN).k)

	_, err = New("linear", Options{})
	require.NoError(t, err)

	_, err = New("prophet", Options{})
	require.ErrorIs(t, err, ErrUnsupportedModel)

	_, err = New("lstm", Options{})
	require.ErrorIs(t, err, ErrUnsupportedModel)
}

func TestLinearFollowsTrend(t *testing.T) {
	samples := []Sample{
		{At: base, Value: 10},
		{At: base.Add(time.Hour), Value: 12},
		{At: base.Add(2 * time.Hour), Value: 14},
	}

	points, err := Forecast(&Linear{}, samples, base.Add(3*time.Hour), base.Add(4*time.Hour), 30*time.Minute)
	require.NoError(t, err)
	require.Len(t, points, 3)
	require.InDelta(t, 16, points[0].Value, 1e-9)
	require.InDelta(t, 17, points[1].Value, 1e-9)
	require.InDelta(t, 18, points[2].Value, 1e-9)
}

func TestLinearConstantWhenSingleInstant(t *testing.T) {
	m := &Linear{}
	require.NoError(t, m.Fit([]Sample{{At: base, Value: 3}, {At: base, Value: 5}}))
	require.Equal(t, 4.0, m.Predict(base.Add(time.Hour)))
}

func TestKNNDistanceWeighting(t *testing.T) {
	m := NewKNN(2, false)
	require.NoError(t, m.Fit([]Sample{
		{At: base, Value: 10},
		{At: base.Add(3 * time.Minute), Value: 40},
		{At: base.Add(time.Hour), Value: 1000},
	}))

	// One minute from the first sample, two from the second: weights 1 and 1/2.
	got := m.Predict(base.Add(time.Minute))
	require.InDelta(t, (10*1.0+40*0.5)/1.5, got, 1e-9)

	require.Equal(t, 40.0, m.Predict(base.Add(3*time.Minute)))
}

func TestKNNDailyWrapsAroundMidnight(t *testing.T) {
	m := NewKNN(1, true)
	require.NoError(t, m.Fit([]Sample{
		{At: base.Add(-time.Minute), Value: 5}, // 23:59 the day before
		{At: base.Add(6 * time.Hour), Value: 50},
	}))

	next := base.Add(48*time.Hour + time.Minute) // 00:01 two days later
	require.Equal(t, 5.0, m.Predict(next))
}

func TestForecastGuards(t *testing.T) {
	samples := []Sample{{At: base, Value: 1}}

	_, err := Forecast(&Linear{}, samples, base, base.Add(-time.Hour), time.Minute)
	require.ErrorIs(t, err, ErrInvalidRange)

	_, err = Forecast(&Linear{}, samples, base, base.Add(time.Hour), 0)
	require.ErrorIs(t, err, ErrInvalidRange)

	_, err = Forecast(&Linear{}, samples, base, base.Add(30*24*time.Hour), time.Second)
	require.ErrorIs(t, err, ErrInvalidRange)

	_, err = Forecast(NewKNN(3, false), nil, base, base.Add(time.Hour), time.Minute)
	require.ErrorIs(t, err, ErrNotEnoughData)
}

func TestSamplesFromReadings(t *testing.T) {
	samples := SamplesFromReadings([]telemetry.SensorReading{
		{ID: 2, Timestamp: "2024-01-03T10:00:00Z", Value: 2},
		{ID: 1, Timestamp: "2024-01-03T09:00:00Z", Value: 1},
		{ID: 3, Timestamp: "yesterday", Value: 3},
	})
	require.Len(t, samples, 2)
	require.Equal(t, 1.0, samples[0].Value)
	require.Equal(t, time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC), samples[1].At)
}
