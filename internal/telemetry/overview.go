package telemetry

import (
	"time"

	"github.com/relvacode/iso8601"
)

// ParseTimestamp parses an upstream created_at value and returns it in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	ts, err := iso8601.ParseString(s)
	if err != nil {
		return time.Time{}, err
	}
	return ts.UTC(), nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Summarize reduces an oldest-first feed into per-field latest/min/max values.
//
// The feed is scanned newest first. The date of the first entry carrying a
// reading is latched, and the scan stops at the first entry of an earlier day,
// so only the most recent day of activity is ever looked at. Readings that are
// not numeric still count as the latest value but never touch min/max.
// Entries with an unparsable created_at are skipped.
func Summarize(titles FieldTitles, feed []FeedEntry) OverviewSummary {
	var out OverviewSummary
	for _, k := range AllFields() {
		out.Fields[k-1].Title = titles.Title(k)
	}

	var (
		day     time.Time
		latched bool
	)

	for i := len(feed) - 1; i >= 0; i-- {
		entry := feed[i]

		if !latched {
			if !entry.HasReadings() {
				continue
			}
			ts, err := ParseTimestamp(entry.CreatedAt)
			if err != nil {
				continue
			}
			day, latched = ts, true
		} else {
			ts, err := ParseTimestamp(entry.CreatedAt)
			if err != nil {
				continue
			}
			if !sameDay(ts, day) {
				break
			}
		}

		for _, k := range AllFields() {
			v := entry.Field(k)
			if !v.Valid {
				continue
			}
			summary := &out.Fields[k-1]

			if summary.Value == nil {
				trimmed := v.Trimmed()
				summary.Value = &trimmed
			}

			f, err := v.Float()
			if err != nil {
				continue
			}
			if summary.Min == nil || f < *summary.Min {
				lo := f
				summary.Min = &lo
			}
			if summary.Max == nil || f > *summary.Max {
				hi := f
				summary.Max = &hi
			}
		}
	}

	if latched {
		date := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
		out.CreatedAt = &date
	}
	return out
}

// SummarizeFeed summarises a live payload, preferring the channel's own titles.
func SummarizeFeed(feed Feed, fallback FieldTitles) OverviewSummary {
	return Summarize(feed.Channel.Titles(fallback), feed.Feeds)
}

// ConvertSensorData emits one reading per entry where field is non-null, in input order.
// Readings that are not numeric are dropped.
func ConvertSensorData(entries []FeedEntry, field FieldKey) []SensorReading {
	result := make([]SensorReading, 0, len(entries))
	for _, e := range entries {
		v := e.Field(field)
		if !v.Valid {
			continue
		}
		f, err := v.Float()
		if err != nil {
			continue
		}
		result = append(result, SensorReading{
			ID:         e.EntryID,
			SensorName: field.String(),
			Timestamp:  e.CreatedAt,
			Value:      f,
		})
	}
	return result
}
