package thought

import "fmt"

// Kind classifies engine errors.
type Kind string

const (
	KindMissingField    Kind = "MissingField"
	KindInvalidNumber   Kind = "InvalidNumber"
	KindInvalidRevision Kind = "InvalidRevision"
	KindInvalidBranch   Kind = "InvalidBranch"
	KindUnknownBranch   Kind = "UnknownBranch"
	KindEmptyHistory    Kind = "EmptyHistory"
)

// Sentinels for errors.Is matching against any *Error of the same kind.
var (
	ErrMissingField    = &Error{Kind: KindMissingField}
	ErrInvalidNumber   = &Error{Kind: KindInvalidNumber}
	ErrInvalidRevision = &Error{Kind: KindInvalidRevision}
	ErrInvalidBranch   = &Error{Kind: KindInvalidBranch}
	ErrUnknownBranch   = &Error{Kind: KindUnknownBranch}
	ErrEmptyHistory    = &Error{Kind: KindEmptyHistory}
)

// Error is returned by every operation in this package.
type Error struct {
	Kind    Kind
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
	}
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches on Kind only so callers can compare against the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind Kind, field, format string, args ...any) *Error {
	return &Error{Kind: kind, Field: field, Message: fmt.Sprintf(format, args...)}
}
