package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fp(f float64) *float64 {
	return &f
}

func TestMergeBatch(t *testing.T) {
	ts := time.Date(2024, 1, 3, 8, 0, 0, 0, time.UTC)
	batch := []Measurement{
		{EntryID: 2, Timestamp: ts, Field1: fp(1)},
		{EntryID: 3, Timestamp: ts},
		{EntryID: 1, Timestamp: ts, Field2: fp(40)},
		{EntryID: 2, Timestamp: ts, Field1: fp(9), Field6: fp(18)},
	}

	merged := MergeBatch(batch)
	require.Len(t, merged, 2)
	require.Equal(t, int64(2), merged[0].EntryID)
	require.Equal(t, 1.0, *merged[0].Field1)
	require.Equal(t, 18.0, *merged[0].Field6)
	require.Equal(t, int64(1), merged[1].EntryID)
}

func TestMeasurementsFromFeed(t *testing.T) {
	entries := []FeedEntry{
		entry(1, "2024-01-03T08:00:00Z", map[FieldKey]string{1: "20.5\r\n", 2: "N/A"}),
		entry(2, "garbage", map[FieldKey]string{1: "21"}),
	}

	rows, skipped := MeasurementsFromFeed(entries)
	require.Equal(t, 1, skipped)
	require.Len(t, rows, 1)
	require.Equal(t, 20.5, *rows[0].Field1)
	require.Nil(t, rows[0].Field2)
	require.Equal(t, time.Date(2024, 1, 3, 8, 0, 0, 0, time.UTC), rows[0].Timestamp)
}

func TestEntriesOldestFirstRoundTrip(t *testing.T) {
	rows := []Measurement{
		{EntryID: 2, Timestamp: time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC), Field1: fp(21)},
		{EntryID: 1, Timestamp: time.Date(2024, 1, 3, 8, 0, 0, 0, time.UTC), Field1: fp(20.5)},
	}

	entries := EntriesOldestFirst(rows)
	require.Len(t, entries, 2)
	require.Equal(t, int64(1), entries[0].EntryID)
	require.Equal(t, "2024-01-03T08:00:00Z", entries[0].CreatedAt)
	require.Equal(t, "20.5", entries[0].Field1.Raw)
	require.False(t, entries[0].Field2.Valid)
}
