package export

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/i474232898/sensor-dashboard/internal/telemetry"
)

func fp(f float64) *float64 {
	return &f
}

func parseKey(s string) (telemetry.FieldKey, error) {
	k, err := telemetry.ParseFieldKey(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", telemetry.ErrInvalidField, err)
	}
	return k, nil
}

func TestWriteCSV(t *testing.T) {
	ts := time.Date(2024, 1, 3, 8, 0, 0, 0, time.UTC)
	rows := []telemetry.Measurement{
		{EntryID: 3, Timestamp: ts.Add(2 * time.Minute), Field1: fp(21.5)},
		{EntryID: 2, Timestamp: ts.Add(time.Minute), Field5: fp(60)},
		{EntryID: 1, Timestamp: ts, Field1: fp(20), Field3: fp(310)},
	}
	titles := telemetry.FieldTitles{"Temp, DHT", "", "Light"}

	fields, err := Columns([]string{"field1", "3", "field1"}, parseKey)
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := WriteCSV(&buf, rows, fields, titles)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t,
		"entry_id,created_at,\"Temp, DHT\",Light\n"+
			"1,2024-01-03T08:00:00Z,20,310\n"+
			"3,2024-01-03T08:02:00Z,21.5,\n",
		buf.String())
}

func TestColumns(t *testing.T) {
	all, err := Columns(nil, parseKey)
	require.NoError(t, err)
	require.Len(t, all, telemetry.FieldCount)

	_, err = Columns([]string{"field9"}, parseKey)
	require.ErrorIs(t, err, telemetry.ErrInvalidField)
}
