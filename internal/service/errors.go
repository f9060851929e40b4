package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorKind classifies domain failures. The HTTP layer maps kinds to status
// codes; everything else is an infrastructure error.
type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindRange          ErrorKind = "range"
	KindDuplicate      ErrorKind = "duplicate"
	KindReference      ErrorKind = "reference"
	KindConflict       ErrorKind = "conflict"
	KindNotFound       ErrorKind = "not_found"
	KindAuthorization  ErrorKind = "authorization"
	KindMissingField   ErrorKind = "missing_field"
	KindAuthentication ErrorKind = "authentication"
)

// Sentinels for errors.Is checks against a kind.
var (
	ErrValidation     = &Error{Kind: KindValidation}
	ErrRange          = &Error{Kind: KindRange}
	ErrDuplicate      = &Error{Kind: KindDuplicate}
	ErrReference      = &Error{Kind: KindReference}
	ErrConflict       = &Error{Kind: KindConflict}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrAuthorization  = &Error{Kind: KindAuthorization}
	ErrMissingField   = &Error{Kind: KindMissingField}
	ErrAuthentication = &Error{Kind: KindAuthentication}
)

// Error is a domain error. Fields maps request field names to messages when
// the failure concerns specific input fields.
type Error struct {
	Kind    ErrorKind
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, strings.Join(parts, "; "))
}

// Is matches on kind only. A range error is also a validation error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind == t.Kind {
		return true
	}
	return e.Kind == KindRange && t.Kind == KindValidation
}

func newError(kind ErrorKind, field, msg string) *Error {
	e := &Error{Kind: kind, Message: msg}
	if field != "" {
		e.Fields = map[string]string{field: msg}
	}
	return e
}

// Constructors for each error kind. Field-scoped kinds record msg under field.
func ValidationError(field, msg string) *Error { return newError(KindValidation, field, msg) }
func RangeError(field, msg string) *Error { return newError(KindRange, field, msg) }
func DuplicateError(field, msg string) *Error { return newError(KindDuplicate, field, msg) }
func ReferenceError(field, msg string) *Error { return newError(KindReference, field, msg) }
func ConflictError(msg string) *Error { return newError(KindConflict, "", msg) }
func NotFoundError(msg string) *Error { return newError(KindNotFound, "", msg) }
func AuthorizationError(msg string) *Error { return newError(KindAuthorization, "", msg) }
func AuthenticationError(msg string) *Error { return newError(KindAuthentication, "", msg) }

// MissingFieldError names every absent required field at once.
func MissingFieldError(fields ...string) *Error {
	e := &Error{Kind: KindMissingField, Message: "required fields are missing", Fields: map[string]string{}}
	for _, f := range fields {
		e.Fields[f] = "This field is required."
	}
	return e
}

// KindOf returns the kind of a domain error, or "internal".
func KindOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return string(e.Kind)
	}
	return "internal"
}
