// Package export renders stored measurements as CSV.
package export

import (
	"bufio"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/i474232898/sensor-dashboard/internal/common"
	"github.com/i474232898/sensor-dashboard/internal/telemetry"
)

// flushEvery bounds how many rows are buffered before the writer is flushed.
const flushEvery = 256

// Columns resolves the requested sensors with resolve, dropping duplicates.
// Empty input selects all fields.
func Columns(sensors []string, resolve func(string) (telemetry.FieldKey, error)) ([]telemetry.FieldKey, error) {
	if len(sensors) == 0 {
		return telemetry.AllFields(), nil
	}

	seen := make(map[telemetry.FieldKey]bool, len(sensors))
	keys := make([]telemetry.FieldKey, 0, len(sensors))
	for _, s := range sensors {
		k, err := resolve(s)
		if err != nil {
			return nil, err
		}
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// WriteCSV writes rows, which come from the store newest first, in
// chronological order. Rows without any selected field are skipped. The
// header uses the field titles. It returns the number of data rows written.
func WriteCSV(w io.Writer, rows []telemetry.Measurement, fields []telemetry.FieldKey, titles telemetry.FieldTitles) (int, error) {
	bw := bufio.NewWriter(w)
	cw := csv.NewWriter(bw)

	header := make([]string, 0, len(fields)+2)
	header = append(header, "entry_id", "created_at")
	for _, k := range fields {
		title := titles.Title(k)
		if title == "" {
			title = k.String()
		}
		header = append(header, title)
	}
	if err := cw.Write(header); err != nil {
		return 0, err
	}

	written := 0
	record := make([]string, len(header))
	for i := len(rows) - 1; i >= 0; i-- {
		m := rows[i]

		hasValue := false
		for j, k := range fields {
			record[j+2] = ""
			if v := m.Field(k); v != nil {
				record[j+2] = common.FormatReading(*v)
				hasValue = true
			}
		}
		if !hasValue {
			continue
		}
		record[0] = strconv.FormatInt(m.EntryID, 10)
		record[1] = m.Timestamp.UTC().Format(telemetry.TimestampLayout)

		if err := cw.Write(record); err != nil {
			return written, err
		}
		written++

		if written%flushEvery == 0 {
			cw.Flush()
			if err := cw.Error(); err != nil {
				return written, err
			}
			if err := bw.Flush(); err != nil {
				return written, err
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return written, err
	}
	return written, bw.Flush()
}
