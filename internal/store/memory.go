package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/i474232898/sensor-dashboard/internal/telemetry"
)

// MemoryStore is a concurrency-safe in-memory measurement cache with the same
// merge semantics as Session. It backs DB_DRIVER=memory and tests.
type MemoryStore struct {
	mu sync.RWMutex

	// key: entry id
	rows map[int64]telemetry.Measurement

	// maxRows bounds the cache; the oldest entries are evicted first.
	maxRows int
}

var _ telemetry.MeasurementStore = (*MemoryStore)(nil)

// NewMemoryStore creates a new MemoryStore. If maxRows is <= 0, it is treated
// as unlimited.
func NewMemoryStore(maxRows int) *MemoryStore {
	return &MemoryStore{
		rows:    make(map[int64]telemetry.Measurement),
		maxRows: maxRows,
	}
}

// UpsertMeasurements inserts unseen entries and fills null fields of known ones.
func (s *MemoryStore) UpsertMeasurements(ctx context.Context, batch []telemetry.Measurement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	merged := telemetry.MergeBatch(batch)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range merged {
		stored, ok := s.rows[m.EntryID]
		if !ok {
			s.rows[m.EntryID] = m
			continue
		}
		for _, k := range telemetry.AllFields() {
			if stored.Field(k) == nil {
				stored.SetField(k, m.Field(k))
			}
		}
		s.rows[m.EntryID] = stored
	}

	if s.maxRows > 0 && len(s.rows) > s.maxRows {
		ids := s.sortedIDs()
		for _, id := range ids[s.maxRows:] {
			delete(s.rows, id)
		}
	}
	return nil
}

// QueryMeasurements returns rows newest first, optionally only those carrying field.
func (s *MemoryStore) QueryMeasurements(ctx context.Context, field telemetry.FieldKey, limit int) ([]telemetry.Measurement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if field != telemetry.AnyField && !field.Valid() {
		return nil, fmt.Errorf("%w: %d", telemetry.ErrInvalidField, field)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []telemetry.Measurement
	for _, id := range s.sortedIDs() {
		m := s.rows[id]
		if field.Valid() && m.Field(field) == nil {
			continue
		}
		result = append(result, m)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// Len returns the number of cached rows.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// sortedIDs returns entry ids newest first. Callers hold the lock.
func (s *MemoryStore) sortedIDs() []int64 {
	ids := make([]int64, 0, len(s.rows))
	for id := range s.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	return ids
}
