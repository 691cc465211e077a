package parser

import (
	"fmt"
	"io"
	"iter"
	"strings"
	"sync/atomic"

	"lineparse/internal/source"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Dispatcher receives every line that survives the strip and blank-line
// policy of a Parser. The tables in this package produce one via Bind.
type Dispatcher interface {
	Dispatch(line string) error
}

// DispatchFunc adapts a plain function to a Dispatcher.
type DispatchFunc func(line string) error

func (f DispatchFunc) Dispatch(line string) error { return f(line) }

// Options configure a Parser. They are fixed for the lifetime of the instance.
type Options struct {
	// Strip removes leading and trailing whitespace before blank detection
	// and matching.
	Strip bool
	// IgnoreBlanks skips empty lines without invoking any handler.
	IgnoreBlanks bool

	// Start runs at the beginning of every parse. Parsers that need a
	// non-zero initial state seed it here.
	Start func() error
	// Finish runs after the last line of a successful parse.
	Finish func() error
	// Reset runs at the end of Parser.Reset.
	Reset func()

	// Logger defaults to the global zerolog logger.
	Logger *zerolog.Logger
}

// Parser drives the parsing lifecycle: reset, start, per-line dispatch and
// finish. State holds whatever the handlers accumulate; its zero value is
// the unset sentinel.
//
// A Parser must not be used by more than one goroutine at a time. Distinct
// instances sharing the same pattern table are independent.
type Parser[S any] struct {
	State S

	opts     Options
	dispatch Dispatcher
	logger   *zerolog.Logger

	line     int
	started  bool
	finished bool
	parsing  atomic.Bool
}

// New creates a Parser that hands lines to d. A nil d discards every line,
// which is still useful for parsers that only rely on the hooks.
func New[S any](opts Options, d Dispatcher) *Parser[S] {
	if d == nil {
		d = DispatchFunc(func(string) error { return nil })
	}
	logger := opts.Logger
	if logger == nil {
		logger = &log.Logger
	}
	return &Parser[S]{
		opts:     opts,
		dispatch: d,
		logger:   logger,
	}
}

// Started reports whether the start hook ran since the last Reset.
func (p *Parser[S]) Started() bool { return p.started }

// Finished reports whether the finish hook ran since the last Reset.
func (p *Parser[S]) Finished() bool { return p.finished }

// Parsing reports whether a parse is in progress.
func (p *Parser[S]) Parsing() bool { return p.parsing.Load() }

// Line returns the 1-based number of the line being dispatched, counting
// skipped lines. It is 0 outside a parse.
func (p *Parser[S]) Line() int {
	if !p.parsing.Load() {
		return 0
	}
	return p.line
}

// Options returns the options the parser was created with.
func (p *Parser[S]) Options() Options { return p.opts }

// Reset returns State to its zero value and clears the lifecycle flags.
// It is safe to call at any time.
func (p *Parser[S]) Reset() {
	var zero S
	p.State = zero
	p.line = 0
	p.started = false
	p.finished = false
	p.parsing.Store(false)
	if p.opts.Reset != nil {
		p.opts.Reset()
	}
}

// Parse consumes lines in order and returns the accumulated state.
//
// If an error escapes mid-stream the finish hook does not run, State keeps
// whatever the handlers already did and the parser stays in the parsing
// state until Reset is called.
func (p *Parser[S]) Parse(lines iter.Seq2[string, error]) (S, error) {
	var zero S
	if !p.parsing.CompareAndSwap(false, true) {
		return zero, &StateError{Op: "parse"}
	}

	if p.opts.Start != nil {
		if err := p.opts.Start(); err != nil {
			return zero, fmt.Errorf("start: %w", err)
		}
	}
	p.started = true

	var read, dispatched, skipped int
	p.line = 0
	for line, err := range lines {
		read++
		p.line = read
		if err != nil {
			return zero, fmt.Errorf("read line %d: %w", read, err)
		}

		if p.opts.Strip {
			line = strings.TrimSpace(line)
		}
		if line == "" && p.opts.IgnoreBlanks {
			skipped++
			continue
		}

		if err := p.dispatch.Dispatch(line); err != nil {
			return zero, &LineError{Line: read, Text: line, Err: err}
		}
		dispatched++
	}

	if p.opts.Finish != nil {
		if err := p.opts.Finish(); err != nil {
			return zero, fmt.Errorf("finish: %w", err)
		}
	}
	p.finished = true
	p.parsing.Store(false)

	p.logger.Debug().
		Int("lines", read).
		Int("dispatched", dispatched).
		Int("skipped", skipped).
		Msg("Parse complete")

	return p.State, nil
}

// ParseStrings parses an in-memory slice of lines.
func (p *Parser[S]) ParseStrings(lines []string) (S, error) {
	return p.Parse(source.Strings(lines))
}

// ParseReader parses r line by line. Line terminators are dropped.
func (p *Parser[S]) ParseReader(r io.Reader) (S, error) {
	return p.Parse(source.Reader(r))
}
