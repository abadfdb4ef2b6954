package datasource

import "fmt"

// ValidationError reports a configuration rejected at construction time.
// It never escapes from Fetch; a DataSource that failed validation is
// never observable.
type ValidationError struct {
	// Field is the configuration field that failed validation.
	Field string

	// Message describes the constraint that was violated.
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func newValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// FetchError is the unified transport/protocol failure raised by Fetch.
// Connection failures, non-success HTTP statuses, driver errors and
// malformed response bodies all surface as this one kind so that callers
// handling multiple source types need a single catch surface. The original
// cause is chained and available via errors.Unwrap.
//
// Timeouts are deliberately not wrapped: a fetch that exceeds its deadline
// fails with an error matching context.DeadlineExceeded.
type FetchError struct {
	// Source is the name of the data source that failed.
	Source string

	// SourceType is the variant tag (http, mongo, sql).
	SourceType string

	// Err is the underlying cause.
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s source %q: %v", e.SourceType, e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
