package parser

import "errors"

// DefaultFunc handles a dispatched line that no registered pattern matched.
type DefaultFunc[P any] func(p P, line string) error

// Table is implemented by every pattern table in this package. A table is
// immutable once built and is shared by all parsers of the type P; Bind
// attaches it to one instance.
type Table[P any] interface {
	Bind(p P) Dispatcher
	Dispatch(p P, line string) error
}

var errNilHandler = errors.New("nil handler")

func bind[P any](t Table[P], p P) Dispatcher {
	return DispatchFunc(func(line string) error {
		return t.Dispatch(p, line)
	})
}

func fallback[P any](def DefaultFunc[P], p P, line string) error {
	if def == nil {
		return nil
	}
	return def(p, line)
}
