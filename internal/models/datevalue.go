package models

import (
	"fmt"
	"time"
)

// Date layouts accepted on parse, in order of preference. The first match
// fixes whether the value is a bare date or a datetime; that distinction
// survives a round trip even though the separator is normalised to "T".
var dateTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

const dateLayout = "2006-01-02"

// DateValue is a point in time that remembers whether it was written as a
// bare date or as a datetime. Ordering treats a bare date as midnight.
type DateValue struct {
	t       time.Time
	hasTime bool
}

// NewDate returns a date-only value.
func NewDate(year int, month time.Month, day int) DateValue {
	return DateValue{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// NewDateTime returns a datetime value truncated to whole seconds.
func NewDateTime(t time.Time) DateValue {
	return DateValue{t: t.Truncate(time.Second), hasTime: true}
}

// Now returns the current wall-clock moment as a datetime value.
func Now() DateValue {
	return NewDateTime(time.Now().UTC())
}

// ParseDateValue parses s against the datetime layouts first, then the bare
// date layout. The matched grammar decides the value's kind.
func ParseDateValue(s string) (DateValue, error) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateValue{t: t, hasTime: true}, nil
		}
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return DateValue{t: t}, nil
	}
	return DateValue{}, fmt.Errorf("unrecognised date %q", s)
}

// HasTime reports whether the value carries a time of day.
func (v DateValue) HasTime() bool { return v.hasTime }

// Time returns the underlying instant. Date-only values are midnight UTC.
func (v DateValue) Time() time.Time { return v.t }

// IsZero reports whether the value is unset.
func (v DateValue) IsZero() bool { return v.t.IsZero() }

// String emits the canonical spelling for the value's kind.
func (v DateValue) String() string {
	if v.hasTime {
		return v.t.Format("2006-01-02T15:04:05")
	}
	return v.t.Format(dateLayout)
}

// Compare orders two values on their underlying instants.
func (v DateValue) Compare(o DateValue) int {
	return v.t.Compare(o.t)
}

// Before reports whether v is strictly earlier than o.
func (v DateValue) Before(o DateValue) bool { return v.t.Before(o.t) }

// DatePart returns the value truncated to its calendar date.
func (v DateValue) DatePart() DateValue {
	y, m, d := v.t.Date()
	return NewDate(y, m, d)
}

// OnOrBeforeDate compares the date portions only, ignoring time of day on
// either side.
func (v DateValue) OnOrBeforeDate(o DateValue) bool {
	return !v.DatePart().t.After(o.DatePart().t)
}

// BeforeDate reports whether v's date portion is strictly earlier than o's.
func (v DateValue) BeforeDate(o DateValue) bool {
	return v.DatePart().t.Before(o.DatePart().t)
}

// Equal reports full equality: same instant and same kind.
func (v DateValue) Equal(o DateValue) bool {
	return v.hasTime == o.hasTime && v.t.Equal(o.t)
}
