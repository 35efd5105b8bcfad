// Package checks normalises caller-supplied filter values before they reach the wire.
package checks

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/coachpo/starkbank/errs"
)

const (
	// DateLayout is the canonical wire format for date filters.
	DateLayout = "2006-01-02"
	// MaxPageSize is the hard cap of entities returned by a single list request.
	MaxPageSize = 100
)

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
}

// Timed is satisfied by wire types that wrap a time value.
type Timed interface {
	Time() time.Time
}

// Date converts v into a canonical date (00:00 UTC). A nil input yields nil.
func Date(v any) (*time.Time, error) {
	t, ok, err := coerce(v, parseDate)
	if err != nil || !ok {
		return nil, err
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &day, nil
}

// DateTime converts v into a UTC timestamp. Naive inputs are read as UTC.
func DateTime(v any) (*time.Time, error) {
	t, ok, err := coerce(v, parseDateTime)
	if err != nil || !ok {
		return nil, err
	}
	utc := t.UTC()
	return &utc, nil
}

// FormatDate renders t in the canonical date layout; nil renders as "".
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

func coerce(v any, parse func(string) (time.Time, error)) (time.Time, bool, error) {
	switch value := v.(type) {
	case nil:
		return time.Time{}, false, nil
	case time.Time:
		if value.IsZero() {
			return time.Time{}, false, nil
		}
		return value, true, nil
	case *time.Time:
		if value == nil || value.IsZero() {
			return time.Time{}, false, nil
		}
		return *value, true, nil
	case Timed:
		if isNilPointer(value) {
			return time.Time{}, false, nil
		}
		t := value.Time()
		if t.IsZero() {
			return time.Time{}, false, nil
		}
		return t, true, nil
	case string:
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return time.Time{}, false, nil
		}
		t, err := parse(trimmed)
		if err != nil {
			return time.Time{}, false, err
		}
		return t, true, nil
	default:
		return time.Time{}, false, errs.Input("", fmt.Sprintf("unsupported date value of type %T", v))
	}
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := parseDateTime(s)
	if err != nil {
		return time.Time{}, errs.Input("", fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", s), errs.WithCause(err))
	}
	return t, nil
}

func parseDateTime(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateTimeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	return time.Time{}, errs.Input("", fmt.Sprintf("invalid datetime %q", s), errs.WithCause(lastErr))
}

// IDs validates a list of entity ids used as a query filter. Order is
// preserved and exact duplicates are dropped.
func IDs(name string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for i, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" {
			return nil, errs.Input("", fmt.Sprintf("%s[%d] must not be empty", name, i))
		}
		if strings.ContainsAny(id, ", \t\n") {
			return nil, errs.Input("", fmt.Sprintf("%s[%d] %q is not a valid id", name, i, raw))
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// Strings validates a list of free-form filter values such as event types or tags.
func Strings(name string, values []string) ([]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(values))
	for i, raw := range values {
		value := strings.TrimSpace(raw)
		if value == "" {
			return nil, errs.Input("", fmt.Sprintf("%s[%d] must not be empty", name, i))
		}
		if strings.Contains(value, ",") {
			return nil, errs.Input("", fmt.Sprintf("%s[%d] %q must not contain commas", name, i, raw))
		}
		out = append(out, value)
	}
	return out, nil
}

// Limit validates an overall result limit; nil means unbounded.
func Limit(limit *int) (*int, error) {
	if limit == nil {
		return nil, nil
	}
	if *limit <= 0 {
		return nil, errs.Input("", fmt.Sprintf("limit must be positive, got %d", *limit))
	}
	v := *limit
	return &v, nil
}

// PageLimit validates the size of a single page; nil defaults to MaxPageSize.
func PageLimit(limit *int) (int, error) {
	if limit == nil {
		return MaxPageSize, nil
	}
	if *limit < 1 || *limit > MaxPageSize {
		return 0, errs.Input("", fmt.Sprintf("page limit must be between 1 and %d, got %d", MaxPageSize, *limit))
	}
	return *limit, nil
}

// isNilPointer reports a typed nil such as (*resource.Date)(nil), which
// satisfies Timed through its value receiver but cannot be dereferenced.
func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
