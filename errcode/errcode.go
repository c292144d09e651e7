package errcode

import "errors"

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK Code = "ok"

	// Per-pin configuration outcomes.
	FamilyNotFound  Code = "family_not_found"
	InvalidConfig   Code = "invalid_config"
	UnsupportedMode Code = "unsupported_mode"
	ChannelError    Code = "channel_error"

	// Plumbing.
	InvalidPayload    Code = "invalid_payload"
	UnknownController Code = "unknown_controller"
	Timeout           Code = "timeout"

	Error Code = "error" // generic fallback
)

// E wraps a Code with the failing operation, a short message and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

// Wrap builds an *E. A nil cause is allowed.
func Wrap(c Code, op, msg string, err error) *E {
	return &E{C: c, Op: op, Msg: msg, Err: err}
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is lets errors.Is(err, errcode.X) match a wrapped code.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	return Error
}
