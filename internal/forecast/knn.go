package forecast

import (
	"math"
	"sort"
	"time"
)

const (
	defaultNeighbors = 3
	secondsPerDay    = 24 * 60 * 60
)

// KNN is a k-nearest-neighbours regressor with inverse distance weighting.
type KNN struct {
	k     int
	daily bool

	xs []float64
	ys []float64
}

func NewKNN(k int, daily bool) *KNN {
	if k <= 0 {
		k = defaultNeighbors
	}
	return &KNN{k: k, daily: daily}
}

func (m *KNN) feature(t time.Time) float64 {
	t = t.UTC()
	if m.daily {
		return float64(t.Hour()*3600 + t.Minute()*60 + t.Second())
	}
	return float64(t.Unix())
}

func (m *KNN) distance(a, b float64) float64 {
	d := math.Abs(a - b)
	if m.daily && d > secondsPerDay/2 {
		// 23:59 is one minute away from 00:00.
		d = secondsPerDay - d
	}
	return d
}

func (m *KNN) Fit(samples []Sample) error {
	if len(samples) == 0 {
		return ErrNotEnoughData
	}
	m.xs = make([]float64, len(samples))
	m.ys = make([]float64, len(samples))
	for i, s := range samples {
		m.xs[i] = m.feature(s.At)
		m.ys[i] = s.Value
	}
	return nil
}

func (m *KNN) Predict(at time.Time) float64 {
	if len(m.xs) == 0 {
		return math.NaN()
	}

	x := m.feature(at)
	idx := make([]int, len(m.xs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return m.distance(x, m.xs[idx[a]]) < m.distance(x, m.xs[idx[b]])
	})

	k := m.k
	if k > len(idx) {
		k = len(idx)
	}
	nearest := idx[:k]

	// Exact matches take all the weight.
	var exactSum float64
	var exact int
	for _, i := range nearest {
		if m.distance(x, m.xs[i]) == 0 {
			exactSum += m.ys[i]
			exact++
		}
	}
	if exact > 0 {
		return exactSum / float64(exact)
	}

	var num, den float64
	for _, i := range nearest {
		w := 1 / m.distance(x, m.xs[i])
		num += w * m.ys[i]
		den += w
	}
	return num / den
}
