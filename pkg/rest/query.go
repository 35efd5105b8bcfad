package rest

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/coachpo/starkbank/internal/checks"
)

// Query accumulates list filters. The first invalid value is remembered and
// reported by Values.
type Query struct {
	values url.Values
	err    error
}

// NewQuery starts an empty filter set.
func NewQuery() *Query {
	return &Query{values: url.Values{}}
}

// String sets a scalar filter; empty values are skipped.
func (q *Query) String(name, value string) *Query {
	if value = strings.TrimSpace(value); value != "" && q.err == nil {
		q.values.Set(name, value)
	}
	return q
}

// Strings sets a comma-joined list filter such as types or tags.
func (q *Query) Strings(name string, values []string) *Query {
	if len(values) == 0 || q.err != nil {
		return q
	}
	cleaned, err := checks.Strings(name, values)
	if err != nil {
		q.err = err
		return q
	}
	if len(cleaned) > 0 {
		q.values.Set(name, strings.Join(cleaned, ","))
	}
	return q
}

// IDs sets a comma-joined id list filter.
func (q *Query) IDs(name string, ids []string) *Query {
	if len(ids) == 0 || q.err != nil {
		return q
	}
	cleaned, err := checks.IDs(name, ids)
	if err != nil {
		q.err = err
		return q
	}
	q.values.Set(name, strings.Join(cleaned, ","))
	return q
}

// Date sets a YYYY-MM-DD filter from any value checks.Date accepts.
func (q *Query) Date(name string, value any) *Query {
	if q.err != nil {
		return q
	}
	parsed, err := checks.Date(value)
	if err != nil {
		q.err = err
		return q
	}
	if parsed != nil {
		q.values.Set(name, checks.FormatDate(parsed))
	}
	return q
}

// Bool sets a boolean filter when value is not nil.
func (q *Query) Bool(name string, value *bool) *Query {
	if value != nil && q.err == nil {
		q.values.Set(name, strconv.FormatBool(*value))
	}
	return q
}

// Values returns the encoded filters or the first validation error.
func (q *Query) Values() (url.Values, error) {
	if q.err != nil {
		return nil, q.err
	}
	return q.values, nil
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+2)
	for key, values := range v {
		out[key] = append([]string(nil), values...)
	}
	return out
}
