package parser

import (
	"errors"
	"strings"
)

// SplitHandler receives the parts of a line split on the table delimiter.
type SplitHandler[P any] func(p P, parts []string) error

// DelimiterTable splits every dispatched line on a literal delimiter and
// hands all parts to its single handler. There is no fallback: the handler
// fires for every line.
type DelimiterTable[P any] struct {
	delim   string
	limit   int
	handler SplitHandler[P]
}

// NewDelimiterTable splits on every occurrence of delim.
func NewDelimiterTable[P any](delim string, h SplitHandler[P]) (*DelimiterTable[P], error) {
	return NewDelimiterTableN(delim, -1, h)
}

// NewDelimiterTableN splits into at most limit parts, following
// strings.SplitN. A negative limit means no limit.
func NewDelimiterTableN[P any](delim string, limit int, h SplitHandler[P]) (*DelimiterTable[P], error) {
	switch {
	case delim == "":
		return nil, &ConfigError{Err: errors.New("empty delimiter")}
	case limit == 0:
		return nil, &ConfigError{Pattern: delim, Err: errors.New("split limit must not be 0")}
	case h == nil:
		return nil, &ConfigError{Pattern: delim, Err: errNilHandler}
	}
	return &DelimiterTable[P]{delim: delim, limit: limit, handler: h}, nil
}

// MustDelimiterTable is like NewDelimiterTable but panics on error. It is
// meant for package-level tables.
func MustDelimiterTable[P any](delim string, h SplitHandler[P]) *DelimiterTable[P] {
	t, err := NewDelimiterTable(delim, h)
	if err != nil {
		panic(err)
	}
	return t
}

// Delimiter returns the literal the table splits on.
func (t *DelimiterTable[P]) Delimiter() string { return t.delim }

func (t *DelimiterTable[P]) Bind(p P) Dispatcher { return bind[P](t, p) }

func (t *DelimiterTable[P]) Dispatch(p P, line string) error {
	return t.handler(p, t.Split(line))
}

// Split returns the parts of line as the handler would see them.
func (t *DelimiterTable[P]) Split(line string) []string {
	return strings.SplitN(line, t.delim, t.limit)
}
