package resource

import (
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/coachpo/starkbank/internal/checks"
)

// DateTime is a server-assigned timestamp, always normalised to UTC.
type DateTime struct {
	t time.Time
}

// NewDateTime wraps t as a UTC DateTime.
func NewDateTime(t time.Time) DateTime { return DateTime{t: t.UTC()} }

// ParseDateTime reads s through the datetime coercion rules.
func ParseDateTime(s string) (DateTime, error) {
	t, err := checks.DateTime(s)
	if err != nil || t == nil {
		return DateTime{}, err
	}
	return DateTime{t: *t}, nil
}

// Time returns the wrapped timestamp.
func (d DateTime) Time() time.Time { return d.t }

// IsZero reports whether the timestamp is unset.
func (d DateTime) IsZero() bool { return d.t.IsZero() }

func (d DateTime) String() string { return d.t.Format(time.RFC3339Nano) }

// MarshalJSON renders the timestamp in RFC 3339 with nanoseconds.
func (d DateTime) MarshalJSON() ([]byte, error) {
	if d.t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.Quote(d.String())), nil
}

// UnmarshalJSON accepts RFC 3339 and naive timestamps; naive values are UTC.
func (d *DateTime) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*d = DateTime{}
		return nil
	}
	parsed, err := ParseDateTime(*raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Date is a calendar date rendered as YYYY-MM-DD.
type Date struct {
	t time.Time
}

// NewDate truncates t to its calendar date.
func NewDate(t time.Time) Date {
	return Date{t: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// ParseDate reads s through the date coercion rules.
func ParseDate(s string) (Date, error) {
	t, err := checks.Date(s)
	if err != nil || t == nil {
		return Date{}, err
	}
	return Date{t: *t}, nil
}

// Time returns the date at 00:00 UTC.
func (d Date) Time() time.Time { return d.t }

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool { return d.t.IsZero() }

func (d Date) String() string { return d.t.Format(checks.DateLayout) }

// MarshalJSON renders the date as YYYY-MM-DD.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.Quote(d.String())), nil
}

// UnmarshalJSON accepts dates and full timestamps, keeping only the date.
func (d *Date) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(*raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Rate is a percentage or fractional amount (fines, interest, discounts)
// sent to the API as a bare JSON number.
type Rate struct {
	decimal.Decimal
}

// NewRate parses s as a decimal rate.
func NewRate(s string) (Rate, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Rate{}, err
	}
	return Rate{Decimal: d}, nil
}

// MustRate is NewRate for literals; it panics on malformed input.
func MustRate(s string) Rate {
	r, err := NewRate(s)
	if err != nil {
		panic("resource: invalid rate " + strconv.Quote(s) + ": " + err.Error())
	}
	return r
}

// MarshalJSON renders the rate unquoted.
func (r Rate) MarshalJSON() ([]byte, error) {
	return []byte(r.Decimal.String()), nil
}

// UnmarshalJSON accepts quoted and unquoted numbers.
func (r *Rate) UnmarshalJSON(data []byte) error {
	return r.Decimal.UnmarshalJSON(data)
}
