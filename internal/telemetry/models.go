package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/sensor-dashboard/internal/common"
)

// FieldCount is the fixed number of sensor slots in the channel schema.
const FieldCount = 8

// FieldKey identifies one of the channel fields, 1-based.
// The zero value, AnyField, means "no particular field".
type FieldKey int

const AnyField FieldKey = 0

// AllFields returns field1..field8 in order.
func AllFields() []FieldKey {
	keys := make([]FieldKey, FieldCount)
	for i := range keys {
		keys[i] = FieldKey(i + 1)
	}
	return keys
}

// ParseFieldKey accepts "3", "field3" and "field_3".
func ParseFieldKey(s string) (FieldKey, error) {
	raw := strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(s), "field"), "_")
	n, err := strconv.Atoi(raw)
	if err != nil || !FieldKey(n).Valid() {
		return AnyField, fmt.Errorf("unknown sensor field %q", s)
	}
	return FieldKey(n), nil
}

func (k FieldKey) Valid() bool {
	return k >= 1 && k <= FieldCount
}

// String returns the upstream key, e.g. "field3".
func (k FieldKey) String() string {
	return "field" + strconv.Itoa(int(k))
}

// Column returns the store column, e.g. "field_3".
func (k FieldKey) Column() string {
	return "field_" + strconv.Itoa(int(k))
}

// FieldTitles maps each field to its display name. Index 0 is field1.
type FieldTitles [FieldCount]string

func (t FieldTitles) Title(k FieldKey) string {
	if !k.Valid() {
		return ""
	}
	return t[k-1]
}

// Value is a raw field reading as reported upstream. Upstream sends strings,
// occasionally numbers, and null for fields that were not part of an update.
type Value struct {
	Raw   string
	Valid bool
}

// StringValue wraps s as a non-null reading.
func StringValue(s string) Value {
	return Value{Raw: s, Valid: true}
}

func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*v = Value{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = StringValue(s)
		return nil
	}
	*v = StringValue(string(b))
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.Raw)
}

// Trimmed returns the raw reading without surrounding whitespace and control characters.
func (v Value) Trimmed() string {
	return common.TrimReading(v.Raw)
}

// Float parses the reading. Non-numeric readings return common.ErrNotNumeric.
func (v Value) Float() (float64, error) {
	if !v.Valid {
		return 0, common.ErrNotNumeric
	}
	return common.ParseReading(v.Raw)
}

// FeedEntry is one upstream reading event.
type FeedEntry struct {
	CreatedAt string `json:"created_at"`
	EntryID   int64  `json:"entry_id"`
	Field1    Value  `json:"field1"`
	Field2    Value  `json:"field2"`
	Field3    Value  `json:"field3"`
	Field4    Value  `json:"field4"`
	Field5    Value  `json:"field5"`
	Field6    Value  `json:"field6"`
	Field7    Value  `json:"field7"`
	Field8    Value  `json:"field8"`
}

func (e *FeedEntry) slot(k FieldKey) *Value {
	switch k {
	case 1:
		return &e.Field1
	case 2:
		return &e.Field2
	case 3:
		return &e.Field3
	case 4:
		return &e.Field4
	case 5:
		return &e.Field5
	case 6:
		return &e.Field6
	case 7:
		return &e.Field7
	case 8:
		return &e.Field8
	}
	return nil
}

// Field returns the reading for k; invalid keys yield a null value.
func (e FeedEntry) Field(k FieldKey) Value {
	if v := e.slot(k); v != nil {
		return *v
	}
	return Value{}
}

func (e *FeedEntry) SetField(k FieldKey, v Value) {
	if slot := e.slot(k); slot != nil {
		*slot = v
	}
}

// HasReadings reports whether at least one field is non-null.
func (e FeedEntry) HasReadings() bool {
	for _, k := range AllFields() {
		if e.Field(k).Valid {
			return true
		}
	}
	return false
}

// Channel carries the upstream channel metadata; FieldN holds the field title.
type Channel struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Field1 string `json:"field1"`
	Field2 string `json:"field2"`
	Field3 string `json:"field3"`
	Field4 string `json:"field4"`
	Field5 string `json:"field5"`
	Field6 string `json:"field6"`
	Field7 string `json:"field7"`
	Field8 string `json:"field8"`
}

// Titles returns the channel titles, taking missing ones from fallback.
func (c Channel) Titles(fallback FieldTitles) FieldTitles {
	titles := [FieldCount]string{c.Field1, c.Field2, c.Field3, c.Field4, c.Field5, c.Field6, c.Field7, c.Field8}
	for i, t := range titles {
		if strings.TrimSpace(t) == "" {
			titles[i] = fallback[i]
		}
	}
	return titles
}

// Feed is the upstream payload. Feeds are ordered oldest first.
type Feed struct {
	Channel Channel     `json:"channel"`
	Feeds   []FeedEntry `json:"feeds"`
}

// Measurement is the persisted form of a FeedEntry.
type Measurement struct {
	EntryID   int64     `gorm:"column:entry_id;primaryKey;autoIncrement:false" json:"entry_id"`
	Timestamp time.Time `gorm:"column:created_at;not null;index" json:"created_at"`
	Field1    *float64  `gorm:"column:field_1" json:"field_1"`
	Field2    *float64  `gorm:"column:field_2" json:"field_2"`
	Field3    *float64  `gorm:"column:field_3" json:"field_3"`
	Field4    *float64  `gorm:"column:field_4" json:"field_4"`
	Field5    *float64  `gorm:"column:field_5" json:"field_5"`
	Field6    *float64  `gorm:"column:field_6" json:"field_6"`
	Field7    *float64  `gorm:"column:field_7" json:"field_7"`
	Field8    *float64  `gorm:"column:field_8" json:"field_8"`
}

func (Measurement) TableName() string {
	return "measurements"
}

func (m *Measurement) slot(k FieldKey) **float64 {
	switch k {
	case 1:
		return &m.Field1
	case 2:
		return &m.Field2
	case 3:
		return &m.Field3
	case 4:
		return &m.Field4
	case 5:
		return &m.Field5
	case 6:
		return &m.Field6
	case 7:
		return &m.Field7
	case 8:
		return &m.Field8
	}
	return nil
}

func (m Measurement) Field(k FieldKey) *float64 {
	if p := m.slot(k); p != nil {
		return *p
	}
	return nil
}

func (m *Measurement) SetField(k FieldKey, v *float64) {
	if p := m.slot(k); p != nil {
		*p = v
	}
}

// IsEmpty reports whether all eight fields are null.
func (m Measurement) IsEmpty() bool {
	for _, k := range AllFields() {
		if m.Field(k) != nil {
			return false
		}
	}
	return true
}

// TimestampLayout is the upstream created_at format.
const TimestampLayout = "2006-01-02T15:04:05Z"

// MeasurementFromEntry converts an upstream entry. Non-numeric readings are stored as null.
func MeasurementFromEntry(e FeedEntry) (Measurement, error) {
	ts, err := ParseTimestamp(e.CreatedAt)
	if err != nil {
		return Measurement{}, err
	}

	m := Measurement{EntryID: e.EntryID, Timestamp: ts}
	for _, k := range AllFields() {
		if f, err := e.Field(k).Float(); err == nil {
			f := f
			m.SetField(k, &f)
		}
	}
	return m, nil
}

// Entry renders a stored row in the upstream shape so that live and stored
// data flow through the same reducers.
func (m Measurement) Entry() FeedEntry {
	e := FeedEntry{
		CreatedAt: m.Timestamp.UTC().Format(TimestampLayout),
		EntryID:   m.EntryID,
	}
	for _, k := range AllFields() {
		if f := m.Field(k); f != nil {
			e.SetField(k, StringValue(common.FormatReading(*f)))
		}
	}
	return e
}

// FieldSummary is the per-field part of an overview.
type FieldSummary struct {
	Title string   `json:"title"`
	Value *string  `json:"value,omitempty"`
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`
}

// OverviewSummary is the latest/min/max view of the most recent day of activity.
type OverviewSummary struct {
	Fields [FieldCount]FieldSummary
	// CreatedAt is midnight UTC of the summarised day, nil when nothing was found.
	CreatedAt *time.Time
}

func (o OverviewSummary) Field(k FieldKey) FieldSummary {
	if !k.Valid() {
		return FieldSummary{}
	}
	return o.Fields[k-1]
}

// MarshalJSON produces {"field1": {...}, ..., "created_at": "2006-01-02"|null}.
func (o OverviewSummary) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, FieldCount+1)
	for _, k := range AllFields() {
		out[k.String()] = o.Field(k)
	}
	if o.CreatedAt != nil {
		out["created_at"] = o.CreatedAt.Format("2006-01-02")
	} else {
		out["created_at"] = nil
	}
	return json.Marshal(out)
}

// SensorReading is a single reading of one sensor, as served per sensor.
type SensorReading struct {
	ID         int64   `json:"id"`
	SensorName string  `json:"sensor_name"`
	Timestamp  string  `json:"timestamp"`
	Value      float64 `json:"value"`
}
