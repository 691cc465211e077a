package parser

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// BindingMode says how the captures of a regular expression reach its
// handler. It is fixed when the pattern is registered.
type BindingMode int

const (
	// RawMatch passes only the *RegexMatch; the handler queries groups itself.
	RawMatch BindingMode = iota
	// NamedKeywords passes the *RegexMatch plus a map of every named group.
	NamedKeywords
	// PositionalArgs passes the capture groups in order, without group 0.
	PositionalArgs
)

func (m BindingMode) String() string {
	switch m {
	case RawMatch:
		return "raw"
	case NamedKeywords:
		return "keywords"
	case PositionalArgs:
		return "positional"
	}
	return fmt.Sprintf("BindingMode(%d)", int(m))
}

// PatternState tracks a registered expression through compilation.
type PatternState int

const (
	Uncompiled PatternState = iota
	Compiling
	Compiled
	Rejected
)

func (s PatternState) String() string {
	switch s {
	case Uncompiled:
		return "uncompiled"
	case Compiling:
		return "compiling"
	case Compiled:
		return "compiled"
	case Rejected:
		return "rejected"
	}
	return fmt.Sprintf("PatternState(%d)", int(s))
}

// RegexMatch is the raw result of matching one line.
type RegexMatch struct {
	Line   string
	re     *regexp.Regexp
	groups []string
}

// Regexp returns the expression that matched.
func (m *RegexMatch) Regexp() *regexp.Regexp { return m.re }

// GroupAt returns capture group i; 0 is the whole match. Groups that did
// not participate and out-of-range indexes yield "".
func (m *RegexMatch) GroupAt(i int) string {
	if i < 0 || i >= len(m.groups) {
		return ""
	}
	return m.groups[i]
}

// Group returns the named capture group, or "" if there is none.
func (m *RegexMatch) Group(name string) string {
	if i := m.re.SubexpIndex(name); i > 0 {
		return m.groups[i]
	}
	return ""
}

// Groups returns every capture group in order, without group 0.
func (m *RegexMatch) Groups() []string {
	return append([]string(nil), m.groups[1:]...)
}

// NamedGroups returns every named capture group.
func (m *RegexMatch) NamedGroups() map[string]string {
	out := make(map[string]string)
	for i, name := range m.re.SubexpNames() {
		if i > 0 && name != "" {
			out[name] = m.groups[i]
		}
	}
	return out
}

// RegexPattern registers one expression and its handler. Build it with
// Regex, RegexKeywords or RegexArgs.
type RegexPattern[P any] struct {
	Expr string

	mode BindingMode
	raw  func(p P, m *RegexMatch) error
	kw   func(p P, m *RegexMatch, kw map[string]string) error
	args func(p P, args []string) error
}

// Mode reports the binding mode of the pattern.
func (rp RegexPattern[P]) Mode() BindingMode { return rp.mode }

// Regex registers a handler that receives the raw match.
func Regex[P any](expr string, h func(p P, m *RegexMatch) error) RegexPattern[P] {
	return RegexPattern[P]{Expr: expr, mode: RawMatch, raw: h}
}

// RegexKeywords registers a handler that also receives the named groups.
// It requires a table built with NamedGroups.
func RegexKeywords[P any](expr string, h func(p P, m *RegexMatch, kw map[string]string) error) RegexPattern[P] {
	return RegexPattern[P]{Expr: expr, mode: NamedKeywords, kw: h}
}

// RegexArgs registers a handler that receives the capture groups in order.
func RegexArgs[P any](expr string, h func(p P, args []string) error) RegexPattern[P] {
	return RegexPattern[P]{Expr: expr, mode: PositionalArgs, args: h}
}

func (rp RegexPattern[P]) hasHandler() bool {
	switch rp.mode {
	case RawMatch:
		return rp.raw != nil
	case NamedKeywords:
		return rp.kw != nil
	case PositionalArgs:
		return rp.args != nil
	}
	return false
}

func (rp RegexPattern[P]) invoke(p P, m *RegexMatch) error {
	switch rp.mode {
	case NamedKeywords:
		return rp.kw(p, m, m.NamedGroups())
	case PositionalArgs:
		return rp.args(p, m.Groups())
	default:
		return rp.raw(p, m)
	}
}

// RegexOptions configure a RegexTable.
type RegexOptions[P any] struct {
	// NamedGroups requires every pattern to be registered with
	// RegexKeywords. Without it, RegexKeywords patterns are rejected.
	NamedGroups bool
	// HandleErrors logs and drops expressions that fail to compile instead
	// of failing the table.
	HandleErrors bool
	// Default handles lines no expression matches.
	Default DefaultFunc[P]
	// Logger receives compilation warnings. Defaults to the global logger.
	Logger *zerolog.Logger
}

// PatternInfo describes one registered expression.
type PatternInfo struct {
	Expr  string
	Mode  BindingMode
	State PatternState
	Err   error
}

type regexEntry[P any] struct {
	re      *regexp.Regexp
	pattern RegexPattern[P]
}

// RegexTable matches lines against regular expressions in registration
// order. The first expression that matches anywhere in the line wins.
type RegexTable[P any] struct {
	entries []regexEntry[P]
	info    []PatternInfo
	def     DefaultFunc[P]
	named   bool
}

var (
	errNeedKeywords  = errors.New("table uses named groups: register with RegexKeywords")
	errKeywordsUnset = errors.New("RegexKeywords requires a table with NamedGroups")
)

// NewRegexTable compiles every expression once. Binding-mode mismatches and
// nil handlers always fail. Compilation failures fail the table unless
// HandleErrors is set.
func NewRegexTable[P any](opts RegexOptions[P], patterns ...RegexPattern[P]) (*RegexTable[P], error) {
	logger := opts.Logger
	if logger == nil {
		logger = &log.Logger
	}

	t := &RegexTable[P]{
		entries: make([]regexEntry[P], 0, len(patterns)),
		info:    make([]PatternInfo, len(patterns)),
		def:     opts.Default,
		named:   opts.NamedGroups,
	}
	for i, rp := range patterns {
		info := &t.info[i]
		*info = PatternInfo{Expr: rp.Expr, Mode: rp.mode, State: Uncompiled}

		switch {
		case !rp.hasHandler():
			return nil, &ConfigError{Pattern: rp.Expr, Err: errNilHandler}
		case opts.NamedGroups && rp.mode != NamedKeywords:
			return nil, &ConfigError{Pattern: rp.Expr, Err: errNeedKeywords}
		case !opts.NamedGroups && rp.mode == NamedKeywords:
			return nil, &ConfigError{Pattern: rp.Expr, Err: errKeywordsUnset}
		}

		info.State = Compiling
		re, err := regexp.Compile(rp.Expr)
		if err == nil {
			err = checkGroupNames(re)
		}
		if err != nil {
			info.State = Rejected
			info.Err = err
			if !opts.HandleErrors {
				return nil, &ConfigError{Pattern: rp.Expr, Err: err}
			}
			logger.Warn().Err(err).Str("pattern", rp.Expr).Msg("Dropping invalid pattern")
			continue
		}
		info.State = Compiled
		t.entries = append(t.entries, regexEntry[P]{re: re, pattern: rp})
	}
	return t, nil
}

// checkGroupNames rejects a name given to more than one group, which would
// make Group and NamedGroups disagree.
func checkGroupNames(re *regexp.Regexp) error {
	seen := make(map[string]bool)
	for _, name := range re.SubexpNames() {
		if name == "" {
			continue
		}
		if seen[name] {
			return fmt.Errorf("redefinition of group name %q", name)
		}
		seen[name] = true
	}
	return nil
}

// MustRegexTable is like NewRegexTable but panics on error. It is meant for
// package-level tables.
func MustRegexTable[P any](opts RegexOptions[P], patterns ...RegexPattern[P]) *RegexTable[P] {
	t, err := NewRegexTable(opts, patterns...)
	if err != nil {
		panic(err)
	}
	return t
}

// NamedGroups reports whether handlers receive keyword maps.
func (t *RegexTable[P]) NamedGroups() bool { return t.named }

// Patterns describes every registered expression in registration order,
// including rejected ones.
func (t *RegexTable[P]) Patterns() []PatternInfo {
	return append([]PatternInfo(nil), t.info...)
}

// Rejected returns the expressions dropped because they did not compile.
func (t *RegexTable[P]) Rejected() []PatternInfo {
	var out []PatternInfo
	for _, pi := range t.info {
		if pi.State == Rejected {
			out = append(out, pi)
		}
	}
	return out
}

// Len returns the number of expressions that take part in matching.
func (t *RegexTable[P]) Len() int { return len(t.entries) }

func (t *RegexTable[P]) Bind(p P) Dispatcher { return bind[P](t, p) }

func (t *RegexTable[P]) Dispatch(p P, line string) error {
	for _, e := range t.entries {
		groups := e.re.FindStringSubmatch(line)
		if groups == nil {
			continue
		}
		return e.pattern.invoke(p, &RegexMatch{Line: line, re: e.re, groups: groups})
	}
	return fallback(t.def, p, line)
}
