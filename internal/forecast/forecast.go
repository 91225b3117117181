// Package forecast produces short-horizon predictions for a single sensor
// from its stored history.
package forecast

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/i474232898/sensor-dashboard/internal/telemetry"
)

var (
	ErrUnsupportedModel = errors.New("unsupported forecast model")
	ErrNotEnoughData    = errors.New("not enough data to fit model")
	ErrInvalidRange     = errors.New("invalid forecast range")
)

// MaxPoints bounds the number of predicted points per request.
const MaxPoints = 10000

const (
	ModelKNN    = "knn"
	ModelLinear = "linear"
)

// Backends that are recognised but have no implementation here.
var unsupported = map[string]bool{
	"catboost": true,
	"xgboost":  true,
	"prophet":  true,
}

// Sample is one observed value.
type Sample struct {
	At    time.Time
	Value float64
}

// Point is one predicted value.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Model is a regressor over time.
type Model interface {
	Fit(samples []Sample) error
	Predict(at time.Time) float64
}

// Options tune the backends. Zero values pick defaults.
type Options struct {
	// Neighbors is k for the knn backend.
	Neighbors int
	// Daily makes knn compare time of day only, ignoring the date.
	Daily bool
}

// New returns an unfitted model by name.
func New(name string, opts Options) (Model, error) {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case ModelKNN, "":
		return NewKNN(opts.Neighbors, opts.Daily), nil
	case ModelLinear:
		return &Linear{}, nil
	default:
		if unsupported[n] {
			return nil, fmt.Errorf("%w: %s is not available in this build", ErrUnsupportedModel, n)
		}
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedModel, name)
	}
}

// Forecast fits m on samples and predicts every interval from start to end inclusive.
func Forecast(m Model, samples []Sample, start, end time.Time, interval time.Duration) ([]Point, error) {
	if interval <= 0 || end.Before(start) {
		return nil, ErrInvalidRange
	}
	if n := end.Sub(start)/interval + 1; n > MaxPoints {
		return nil, fmt.Errorf("%w: %d points requested, at most %d allowed", ErrInvalidRange, n, MaxPoints)
	}
	if err := m.Fit(samples); err != nil {
		return nil, err
	}

	var points []Point
	for at := start; !at.After(end); at = at.Add(interval) {
		points = append(points, Point{Timestamp: at.UTC(), Value: m.Predict(at)})
	}
	return points, nil
}

// SamplesFromReadings converts per-sensor readings, skipping unparsable
// timestamps, and returns them sorted by time.
func SamplesFromReadings(readings []telemetry.SensorReading) []Sample {
	samples := make([]Sample, 0, len(readings))
	for _, r := range readings {
		ts, err := telemetry.ParseTimestamp(r.Timestamp)
		if err != nil {
			continue
		}
		samples = append(samples, Sample{At: ts, Value: r.Value})
	}
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].At.Before(samples[j].At) })
	return samples
}
