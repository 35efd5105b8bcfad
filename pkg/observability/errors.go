package observability

import (
	"errors"
	"fmt"
)

// AggregateErrors joins the non-nil errors, logs them once through the global
// logger and wraps the result with the operation name. It returns nil when
// every error is nil.
func AggregateErrors(operation string, errs []error, fields ...Field) error {
	var filtered []error
	var messages []string
	for _, err := range errs {
		if err == nil {
			continue
		}
		filtered = append(filtered, err)
		messages = append(messages, err.Error())
	}
	if len(filtered) == 0 {
		return nil
	}
	logFields := make([]Field, 0, len(fields)+3)
	logFields = append(logFields, fields...)
	logFields = append(logFields,
		String("operation", operation),
		Int("error_count", len(filtered)),
		Field{Key: "errors", Value: messages},
	)
	Log().Error("operation errors", logFields...)
	return fmt.Errorf("%s failed: %w", operation, errors.Join(filtered...))
}
