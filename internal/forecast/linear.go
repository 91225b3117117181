package forecast

import (
	"time"
)

// Linear fits an ordinary least squares trend line over time.
type Linear struct {
	origin    time.Time
	slope     float64
	intercept float64
}

func (m *Linear) Fit(samples []Sample) error {
	if len(samples) == 0 {
		return ErrNotEnoughData
	}

	// Seconds relative to the first sample keep the sums well conditioned.
	m.origin = samples[0].At
	n := float64(len(samples))

	var sx, sy float64
	for _, s := range samples {
		sx += s.At.Sub(m.origin).Seconds()
		sy += s.Value
	}
	mx, my := sx/n, sy/n

	var sxx, sxy float64
	for _, s := range samples {
		dx := s.At.Sub(m.origin).Seconds() - mx
		sxx += dx * dx
		sxy += dx * (s.Value - my)
	}

	if sxx == 0 {
		m.slope, m.intercept = 0, my
		return nil
	}
	m.slope = sxy / sxx
	m.intercept = my - m.slope*mx
	return nil
}

func (m *Linear) Predict(at time.Time) float64 {
	return m.intercept + m.slope*at.Sub(m.origin).Seconds()
}
