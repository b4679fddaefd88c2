package harness

import (
	"errors"
	"strings"
)

// Kind classifies harness errors.
type Kind int

const (
	// KindConfig is an invalid run configuration, reported before any
	// timing starts.
	KindConfig Kind = iota + 1
	// KindPlan is a candidate whose plan could not be built.
	KindPlan
	// KindExecution is a candidate whose dispatch failed.
	KindExecution
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindPlan:
		return "plan"
	case KindExecution:
		return "execution"
	default:
		return "unknown"
	}
}

// Error is a harness failure with its kind and the operation that failed.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(e.Kind.String())
	b.WriteString(" error")

	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}

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

func newError(kind Kind, op, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: msg, Err: err}
}

// IsKind reports whether err is a harness Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var herr *Error
	return errors.As(err, &herr) && herr.Kind == kind
}
