package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/i474232898/sensor-dashboard/internal/telemetry"
)

func TestMemoryStoreCoalesces(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)

	require.NoError(t, s.UpsertMeasurements(ctx, []telemetry.Measurement{
		{EntryID: 1, Timestamp: at(0), Field1: ptr(12.5)},
	}))
	require.NoError(t, s.UpsertMeasurements(ctx, []telemetry.Measurement{
		{EntryID: 1, Timestamp: at(0), Field1: ptr(99), Field2: ptr(40)},
		{EntryID: 2, Timestamp: at(1)},
	}))

	rows, err := s.QueryMeasurements(ctx, telemetry.AnyField, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 12.5, *rows[0].Field1)
	require.Equal(t, 40.0, *rows[0].Field2)
}

func TestMemoryStoreEvictsOldest(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)

	require.NoError(t, s.UpsertMeasurements(ctx, []telemetry.Measurement{
		{EntryID: 1, Timestamp: at(0), Field1: ptr(1)},
		{EntryID: 2, Timestamp: at(1), Field1: ptr(2)},
		{EntryID: 3, Timestamp: at(2), Field4: ptr(3)},
	}))
	require.Equal(t, 2, s.Len())

	rows, err := s.QueryMeasurements(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, int64(2), rows[0].EntryID)
}
