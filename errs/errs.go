// Package errs provides the structured error envelope surfaced by the StarkBank SDK.
package errs

import (
	"errors"
	"sort"
	"strconv"
	"strings"
)

// Code identifies an SDK error category.
type Code string

const (
	// CodeInput indicates a malformed caller-supplied parameter or a remote input rejection.
	CodeInput Code = "input_error"
	// CodeNotFound indicates the remote API reported no entity for the requested id.
	CodeNotFound Code = "not_found"
	// CodeRemote indicates any other non-2xx response reported by the remote API.
	CodeRemote Code = "remote_error"
	// CodeRateLimited indicates that the request exceeded rate limits.
	CodeRateLimited Code = "rate_limited"
	// CodeUnavailable indicates the remote API failed with a server-side error.
	CodeUnavailable Code = "unavailable"
	// CodeNetwork indicates a network transport failure.
	CodeNetwork Code = "network"
)

// Detail is one entry of the error list returned by the remote API.
type Detail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// E captures structured error information produced across the SDK.
type E struct {
	Resource string
	Code     Code
	HTTP     int
	Message  string
	Details  []Detail
	Metadata map[string]string

	cause error
}

// Option configures an error envelope.
type Option func(*E)

// New constructs an error envelope for the resource and error code.
func New(resource string, code Code, opts ...Option) *E {
	e := &E{
		Resource: strings.TrimSpace(resource),
		Code:     code,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Input builds an InputError for a locally rejected parameter.
func Input(resource, message string, opts ...Option) *E {
	return New(resource, CodeInput, append([]Option{WithMessage(message)}, opts...)...)
}

// WithMessage attaches a human-readable message to the error.
func WithMessage(message string) Option {
	trimmed := strings.TrimSpace(message)
	return func(e *E) {
		e.Message = trimmed
	}
}

// WithHTTP records the associated HTTP status code.
func WithHTTP(status int) Option {
	return func(e *E) {
		e.HTTP = status
	}
}

// WithDetails records the remote error list unchanged.
func WithDetails(details []Detail) Option {
	return func(e *E) {
		if len(details) == 0 {
			return
		}
		e.Details = append([]Detail(nil), details...)
	}
}

// WithCause sets the underlying cause error.
func WithCause(err error) Option {
	return func(e *E) {
		e.cause = err
	}
}

// WithField appends a single metadata key/value pair.
func WithField(key, value string) Option {
	return func(e *E) {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			return
		}
		if e.Metadata == nil {
			e.Metadata = make(map[string]string, 1)
		}
		e.Metadata[trimmedKey] = strings.TrimSpace(value)
	}
}

func (e *E) Error() string {
	if e == nil {
		return "<nil>"
	}
	var parts []string

	resource := e.Resource
	if resource == "" {
		resource = "unknown"
	}
	parts = append(parts, "resource="+resource)

	code := strings.TrimSpace(string(e.Code))
	if code == "" {
		code = "unknown"
	}
	parts = append(parts, "code="+code)

	if e.HTTP > 0 {
		parts = append(parts, "http="+strconv.Itoa(e.HTTP))
	}
	if e.Message != "" {
		parts = append(parts, "message="+strconv.Quote(e.Message))
	}
	if len(e.Details) > 0 {
		pairs := make([]string, 0, len(e.Details))
		for _, d := range e.Details {
			pairs = append(pairs, d.Code+"="+strconv.Quote(d.Message))
		}
		parts = append(parts, "errors=["+strings.Join(pairs, ",")+"]")
	}
	if len(e.Metadata) > 0 {
		keys := make([]string, 0, len(e.Metadata))
		for k := range e.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, k+"="+strconv.Quote(e.Metadata[k]))
		}
		parts = append(parts, "meta="+strings.Join(pairs, ","))
	}
	if e.cause != nil {
		parts = append(parts, "cause="+strconv.Quote(e.cause.Error()))
	}

	return strings.Join(parts, " ")
}

func (e *E) Unwrap() error { return e.cause }

// CodeOf returns the code of the first envelope in err's chain, or "" when none is present.
func CodeOf(err error) Code {
	var e *E
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsInput reports whether err is an InputError.
func IsInput(err error) bool { return CodeOf(err) == CodeInput }

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

// IsRemote reports whether err was reported by the remote API, whatever its category.
func IsRemote(err error) bool {
	var e *E
	if !errors.As(err, &e) {
		return false
	}
	return e.HTTP > 0
}

// Retryable reports whether err is a transient transport failure worth retrying.
func Retryable(err error) bool {
	switch CodeOf(err) {
	case CodeNetwork, CodeRateLimited, CodeUnavailable:
		return true
	default:
		return false
	}
}
