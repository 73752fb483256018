// Package failure defines the error kinds shared across the prompter.
//
// Kinds are cockroachdb/errors marks: wrap a cause with Wrap or create a fresh
// error with Newf, then test the kind with Is. Marks survive further wrapping
// with fmt.Errorf("%w") and errors.Wrap, but only Is from this package (not the
// standard library errors.Is) recognizes them.
package failure

import (
	"fmt"
	"time"
	"unicode/utf8"

	crdb "github.com/cockroachdb/errors"
)

// Kinds of failures. ErrTimeout is itself marked as ErrBackend.
var (
	ErrConfig  = crdb.New("configuration error")
	ErrIO      = crdb.New("io error")
	ErrBackend = crdb.New("backend error")
	ErrTimeout = crdb.Mark(crdb.New("backend timeout"), ErrBackend)
	ErrParse   = crdb.New("parse error")
	ErrSchema  = crdb.New("schema error")
)

// Re-exported inspection helpers.
var (
	Is = crdb.Is
	As = crdb.As
)

// Wrap annotates cause with a message and marks it with kind.
// A nil cause produces a fresh error of that kind.
func Wrap(kind error, cause error, format string, args ...any) error {
	if cause == nil {
		return Newf(kind, format, args...)
	}
	return crdb.Mark(crdb.Wrapf(cause, format, args...), kind)
}

// Newf creates an error of the given kind.
func Newf(kind error, format string, args ...any) error {
	return crdb.Mark(crdb.Newf(format, args...), kind)
}

// TimeoutError reports a backend request that did not finish within its budget.
type TimeoutError struct {
	Backend    string
	Configured time.Duration
	Elapsed    time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("backend %s timed out after %s (timeout %s)", e.Backend, e.Elapsed.Round(time.Millisecond), e.Configured)
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// IsTimeout reports whether err is, or wraps, a TimeoutError.
func IsTimeout(err error) bool {
	var timeoutErr *TimeoutError
	return As(err, &timeoutErr)
}

// Kind names the first matching kind of err for log fields.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsTimeout(err):
		return "timeout"
	case Is(err, ErrConfig):
		return "config"
	case Is(err, ErrSchema):
		return "schema"
	case Is(err, ErrBackend):
		return "backend"
	case Is(err, ErrParse):
		return "parse"
	case Is(err, ErrIO):
		return "io"
	default:
		return "unknown"
	}
}

// Preview shortens text quoted inside an error message to at most limit
// runes, never splitting a multi-byte rune.
func Preview(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit]) + "…"
}
