package telemetry

// MergeBatch prepares a batch for the store: rows without any reading are
// dropped and rows sharing an entry_id are folded into one, keeping the first
// non-null value per field. Order of first appearance is preserved.
func MergeBatch(batch []Measurement) []Measurement {
	merged := make([]Measurement, 0, len(batch))
	index := make(map[int64]int, len(batch))

	for _, m := range batch {
		if m.IsEmpty() {
			continue
		}

		i, seen := index[m.EntryID]
		if !seen {
			index[m.EntryID] = len(merged)
			merged = append(merged, m)
			continue
		}

		target := &merged[i]
		for _, k := range AllFields() {
			if target.Field(k) == nil && m.Field(k) != nil {
				target.SetField(k, m.Field(k))
			}
		}
	}

	return merged
}

// MeasurementsFromFeed converts every entry with a parsable timestamp.
// The number of skipped entries is returned alongside.
func MeasurementsFromFeed(entries []FeedEntry) ([]Measurement, int) {
	out := make([]Measurement, 0, len(entries))
	skipped := 0
	for _, e := range entries {
		m, err := MeasurementFromEntry(e)
		if err != nil {
			skipped++
			continue
		}
		out = append(out, m)
	}
	return out, skipped
}

// EntriesOldestFirst converts store rows, which come back newest first, into
// the upstream ordering.
func EntriesOldestFirst(rows []Measurement) []FeedEntry {
	entries := make([]FeedEntry, len(rows))
	for i, m := range rows {
		entries[len(rows)-1-i] = m.Entry()
	}
	return entries
}
