package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the wire and storage format of a calendar date.
const DateLayout = "2006-01-02"

// Date is a calendar day without a time component.  Internally it is
// kept as midnight UTC so that day arithmetic never crosses a DST edge.
// The zero value is the zero time and reports IsZero.
type Date struct {
	t time.Time
}

// NewDate builds a Date from its year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t: t}, nil
}

// MustParseDate is ParseDate for literals in tests and seed data.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) String() string {
	if d.t.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

// Time returns midnight UTC of the day.
func (d Date) Time() time.Time { return d.t }

func (d Date) IsZero() bool { return d.t.IsZero() }

// AddDays returns the date n days later (or earlier when n < 0).
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

func (d Date) Before(o Date) bool { return d.t.Before(o.t) }

func (d Date) After(o Date) bool { return d.t.After(o.t) }

func (d Date) Equal(o Date) bool { return d.t.Equal(o.t) }

// DaysUntil returns the number of days from d to o.  It is negative
// when o is before d.
func (d Date) DaysUntil(o Date) int {
	return int(o.t.Sub(d.t).Hours() / 24)
}

// Scan accepts the shapes both drivers hand back for a DATE column:
// time.Time from MySQL with parseTime, text from SQLite.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = DateOf(v.UTC())
		return nil
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	}
	return fmt.Errorf("cannot scan %T into model.Date", src)
}

func (d *Date) scanString(s string) error {
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value stores the date as YYYY-MM-DD, which MySQL coerces into DATE
// and SQLite keeps as sortable text.
func (d Date) Value() (driver.Value, error) {
	if d.t.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DateRange is the half-open interval [Start, End) of nights.
type DateRange struct {
	Start Date
	End   Date
}

// Nights is the number of nights in the range; zero or negative for an
// empty or inverted range.
func (r DateRange) Nights() int { return r.Start.DaysUntil(r.End) }

// Empty reports whether the range covers no night.
func (r DateRange) Empty() bool { return !r.Start.Before(r.End) }

// Dates lists every night of the range in ascending order.
func (r DateRange) Dates() []Date {
	if r.Empty() {
		return nil
	}
	out := make([]Date, 0, r.Nights())
	for d := r.Start; d.Before(r.End); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

// Contains reports whether the night d falls inside the range.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.Start) && d.Before(r.End)
}

func (r DateRange) String() string { return "[" + r.Start.String() + ", " + r.End.String() + ")" }
