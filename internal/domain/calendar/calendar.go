package calendar

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// DateLayout is the canonical day representation used by every store.
	DateLayout = "2006-01-02"
	// MonthLayout is the canonical month key representation.
	MonthLayout = "2006-01"

	// epochMillisThreshold separates second- and millisecond-based epochs.
	// 1e11 seconds is in the year 5138 while 1e11 milliseconds is early 1973.
	epochMillisThreshold = 1e11

	// Dates outside these years have no four-digit YYYY form.
	minYear = 0
	maxYear = 9999

	// maxEpochFloat is 2^63; float64 epochs at or beyond it overflow int64.
	maxEpochFloat = 1 << 63
)

// ErrInvalidDateFormat is returned when a value cannot be read as a calendar date.
var ErrInvalidDateFormat = errors.New("invalid date format")

// Date is a calendar day in canonical YYYY-MM-DD form. The zero value is the empty date.
type Date string

// MonthKey identifies a calendar month in canonical YYYY-MM form.
type MonthKey string

// ParseDate validates a YYYY-MM-DD string and returns it as a Date.
func ParseDate(value string) (Date, error) {
	value = strings.TrimSpace(value)
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDateFormat, value)
	}
	return Date(t.Format(DateLayout)), nil
}

// MustDate is ParseDate for literals; it panics on malformed input.
func MustDate(value string) Date {
	d, err := ParseDate(value)
	if err != nil {
		panic(err)
	}
	return d
}

// ParseMonthKey validates a YYYY-MM token.
func ParseMonthKey(value string) (MonthKey, error) {
	value = strings.TrimSpace(value)
	t, err := time.Parse(MonthLayout, value)
	if err != nil {
		return "", fmt.Errorf("%w: month %q", ErrInvalidDateFormat, value)
	}
	return MonthKey(t.Format(MonthLayout)), nil
}

func (d Date) String() string { return string(d) }

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool { return d == "" }

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool { return d < other }

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool { return d > other }

// MonthKey returns the month the date belongs to.
func (d Date) MonthKey() MonthKey {
	if len(d) < len(MonthLayout) {
		return ""
	}
	return MonthKey(d[:len(MonthLayout)])
}

// Time returns midnight of the date in loc (UTC when loc is nil).
func (d Date) Time(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, string(d), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, string(d))
	}
	return t, nil
}

func (m MonthKey) String() string { return string(m) }

// MonthBounds returns the first day of the month (inclusive) and the first day
// of the following month (exclusive).
func MonthBounds(month MonthKey) (Date, Date, error) {
	start, err := time.Parse(MonthLayout, string(month))
	if err != nil {
		return "", "", fmt.Errorf("%w: month %q", ErrInvalidDateFormat, string(month))
	}
	end := start.AddDate(0, 1, 0)
	return Date(start.Format(DateLayout)), Date(end.Format(DateLayout)), nil
}

// Normalizer converts between epoch instants and calendar dates in a fixed location.
type Normalizer struct {
	loc *time.Location
}

// NewNormalizer builds a Normalizer. A nil location means UTC.
func NewNormalizer(loc *time.Location) Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return Normalizer{loc: loc}
}

// Location returns the zone used for day boundaries.
func (n Normalizer) Location() *time.Location {
	if n.loc == nil {
		return time.UTC
	}
	return n.loc
}

// Today returns the calendar day of now in the normalizer's location.
func (n Normalizer) Today(now time.Time) Date {
	return Date(now.In(n.Location()).Format(DateLayout))
}

// ToCalendarDate accepts an epoch (seconds or milliseconds), a YYYY-MM-DD string
// or an RFC3339 timestamp and returns the calendar day it falls on.
func (n Normalizer) ToCalendarDate(input any) (Date, error) {
	switch v := input.(type) {
	case Date:
		return ParseDate(string(v))
	case time.Time:
		if v.IsZero() {
			return "", fmt.Errorf("%w: zero time", ErrInvalidDateFormat)
		}
		return n.Today(v), nil
	case int:
		return n.fromEpoch(int64(v))
	case int64:
		return n.fromEpoch(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) || v >= maxEpochFloat || v < -maxEpochFloat {
			return "", fmt.Errorf("%w: epoch %v", ErrInvalidDateFormat, v)
		}
		return n.fromEpoch(int64(v))
	case json.Number:
		return n.fromString(v.String())
	case string:
		return n.fromString(v)
	case nil:
		return "", fmt.Errorf("%w: missing date", ErrInvalidDateFormat)
	default:
		return "", fmt.Errorf("%w: unsupported type %T", ErrInvalidDateFormat, input)
	}
}

// ToEpoch returns the millisecond epoch of 00:00 on the given day.
func (n Normalizer) ToEpoch(d Date) (int64, error) {
	t, err := d.Time(n.Location())
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}

func (n Normalizer) fromString(raw string) (Date, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", fmt.Errorf("%w: empty value", ErrInvalidDateFormat)
	}

	if epoch, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n.fromEpoch(epoch)
	}

	if t, err := time.ParseInLocation(DateLayout, value, n.Location()); err == nil {
		return Date(t.Format(DateLayout)), nil
	}

	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return n.Today(t), nil
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidDateFormat, raw)
}

// fromEpoch rejects instants whose day cannot be written as YYYY-MM-DD.
func (n Normalizer) fromEpoch(epoch int64) (Date, error) {
	abs := epoch
	if abs < 0 {
		abs = -abs
	}
	var t time.Time
	if abs >= epochMillisThreshold {
		t = time.UnixMilli(epoch)
	} else {
		t = time.Unix(epoch, 0)
	}
	if year := t.In(n.Location()).Year(); year < minYear || year > maxYear {
		return "", fmt.Errorf("%w: epoch %d is outside years %04d-%04d", ErrInvalidDateFormat, epoch, minYear, maxYear)
	}
	return n.Today(t), nil
}
