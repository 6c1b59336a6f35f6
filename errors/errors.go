package errors

import (
	// Go Internal Packages
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies an error so that callers can decide between degrading,
// absorbing or rejecting.
type Kind uint8

const (
	Other       Kind = iota // Unclassified error
	Invalid                 // Caller supplied an invalid argument
	NotFound                // Referenced transaction or account is unknown
	Unavailable             // Event bus or REST collaborator unreachable
	Timeout                 // Waiting for a terminal state exceeded the budget
	Malformed               // Payload could not be decoded
	Conflict                // Operation conflicts with current state
	Internal                // Unexpected internal failure
)

func (k Kind) String() string {
	switch k {
	case Invalid:
		return "invalid argument"
	case NotFound:
		return "not found"
	case Unavailable:
		return "connection unavailable"
	case Timeout:
		return "timeout"
	case Malformed:
		return "malformed payload"
	case Conflict:
		return "conflict"
	case Internal:
		return "internal error"
	}
	return "unknown error"
}

// Error is the kinded error used across the harness.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// E builds a new kinded error. err may be nil.
func E(kind Kind, message string, err error) error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the outermost *Error in the chain, or Other.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Other
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// ValidationErrors accumulates per-field validation failures.
type ValidationErrors map[string][]string

// ValidationErrs returns an empty accumulator.
func ValidationErrs() ValidationErrors {
	return ValidationErrors{}
}

// Add records a failure message for field.
func (ve ValidationErrors) Add(field, message string) ValidationErrors {
	ve[field] = append(ve[field], message)
	return ve
}

// Err returns nil when nothing was added.
func (ve ValidationErrors) Err() error {
	if len(ve) == 0 {
		return nil
	}
	return ve
}

func (ve ValidationErrors) Error() string {
	fields := make([]string, 0, len(ve))
	for field := range ve {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s %s", field, strings.Join(ve[field], ", ")))
	}
	return strings.Join(parts, "; ")
}
