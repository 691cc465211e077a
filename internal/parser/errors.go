package parser

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig is matched by every *ConfigError.
	ErrConfig = errors.New("parser configuration")
	// ErrParsing is matched by every *StateError.
	ErrParsing = errors.New("parse already in progress")
)

// ConfigError reports invalid construction-time input: an empty delimiter,
// a malformed regular expression or template, or a handler registered with
// the wrong binding mode.
type ConfigError struct {
	// Pattern is the offending expression or template, if any.
	Pattern string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Pattern == "" {
		return fmt.Sprintf("parser config: %s", e.Err)
	}
	return fmt.Sprintf("parser config: pattern %q: %s", e.Pattern, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// StateError is returned when Parse is called on an instance that is
// already parsing.
type StateError struct {
	Op string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, ErrParsing)
}

func (e *StateError) Is(target error) bool { return target == ErrParsing }

// LineError wraps an error returned by a handler with the position of the
// line that triggered it.
type LineError struct {
	// Line is 1-based and counts every line read, skipped or not.
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }
