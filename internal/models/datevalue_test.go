package models

import (
	"testing"
	"time"
)

func TestParseDateValue_BareDate(t *testing.T) {
	v, err := ParseDateValue("2025-01-15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.HasTime() {
		t.Error("bare date should not carry a time of day")
	}
	if v.String() != "2025-01-15" {
		t.Errorf("String() = %q, want %q", v.String(), "2025-01-15")
	}
}

func TestParseDateValue_DateTime(t *testing.T) {
	v, err := ParseDateValue("2025-01-15T09:30:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.HasTime() {
		t.Error("datetime should carry a time of day")
	}
	if v.String() != "2025-01-15T09:30:00" {
		t.Errorf("String() = %q", v.String())
	}
}

func TestParseDateValue_SpaceSeparator(t *testing.T) {
	v, err := ParseDateValue("2025-01-15 09:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.HasTime() {
		t.Error("expected a datetime")
	}
	// The separator normalises to "T" and seconds are padded.
	if v.String() != "2025-01-15T09:30:00" {
		t.Errorf("String() = %q, want %q", v.String(), "2025-01-15T09:30:00")
	}
}

func TestParseDateValue_Invalid(t *testing.T) {
	for _, s := range []string{"", "tomorrow", "2025-13-01", "15/01/2025", "2025-01-15T25:00:00"} {
		if _, err := ParseDateValue(s); err == nil {
			t.Errorf("ParseDateValue(%q) succeeded, want error", s)
		}
	}
}

func TestDateValue_KindSurvivesRoundTrip(t *testing.T) {
	for _, s := range []string{"2025-01-15", "2025-01-15T09:30:00"} {
		v, err := ParseDateValue(s)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		again, err := ParseDateValue(v.String())
		if err != nil {
			t.Fatalf("reparse %q: %v", v.String(), err)
		}
		if !v.Equal(again) {
			t.Errorf("round trip of %q lost information", s)
		}
	}
}

func TestDateValue_Ordering(t *testing.T) {
	date := NewDate(2025, time.January, 15)
	morning, _ := ParseDateValue("2025-01-15T08:00:00")

	// A bare date orders as midnight, so the morning datetime is later.
	if !date.Before(morning) {
		t.Error("bare date should order before a same-day datetime")
	}
	if date.Compare(morning) >= 0 {
		t.Error("Compare should be negative")
	}
}

func TestDateValue_Equal_DistinguishesKind(t *testing.T) {
	date := NewDate(2025, time.January, 15)
	midnight, _ := ParseDateValue("2025-01-15 00:00")
	if date.Equal(midnight) {
		t.Error("a bare date and a midnight datetime are distinct values")
	}
}

func TestDateValue_DateComparisons(t *testing.T) {
	evening, _ := ParseDateValue("2025-01-15T23:00:00")
	day := NewDate(2025, time.January, 15)

	if !evening.OnOrBeforeDate(day) {
		t.Error("same calendar day should satisfy OnOrBeforeDate regardless of time")
	}
	if evening.BeforeDate(day) {
		t.Error("same calendar day is not strictly before")
	}
	if !evening.BeforeDate(NewDate(2025, time.January, 16)) {
		t.Error("Jan 15 evening is before Jan 16")
	}
}
