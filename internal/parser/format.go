package parser

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Placeholder types accepted after a colon, e.g. "{count:d}".
var placeholderTypes = map[string]string{
	"":  `.*?`,
	"d": `[-+]?\d+`,
	"w": `\w+`,
	"f": `[-+]?(?:\d+\.\d*|\.\d+|\d+)(?:[eE][-+]?\d+)?`,
	"s": `\S+`,
}

// placeholderKinds match a whole capture of each placeholder type.
var placeholderKinds = func() map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp, len(placeholderTypes))
	for typ, sub := range placeholderTypes {
		out[typ] = regexp.MustCompile(`^(?:` + sub + `)$`)
	}
	return out
}()

var placeholderName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Template is a compiled format pattern such as "Hello my name is {name}!".
// Literal text must match exactly; "{}" captures positionally and "{name}"
// by name, each as little text as the rest of the template allows. "{{" and
// "}}" stand for literal braces.
type Template struct {
	src   string
	re    *regexp.Regexp
	slots []string // group i+1 is named slots[i]; "" is positional
	names []string
	// literals[i] precedes slot i; the last one ends the template.
	literals []string
	kinds    []*regexp.Regexp
	repeats  bool
}

// CompileTemplate parses src into a Template.
func CompileTemplate(src string) (*Template, error) {
	var (
		expr    strings.Builder
		literal  strings.Builder
		slots    []string
		names    []string
		literals []string
		kinds    []*regexp.Regexp
		repeats  bool
		seen     = make(map[string]bool)
	)
	flush := func() {
		expr.WriteString(regexp.QuoteMeta(literal.String()))
		literals = append(literals, literal.String())
		literal.Reset()
	}

	expr.WriteString("^")
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '{' && i+1 < len(src) && src[i+1] == '{':
			literal.WriteByte('{')
			i++
		case c == '}' && i+1 < len(src) && src[i+1] == '}':
			literal.WriteByte('}')
			i++
		case c == '}':
			return nil, &ConfigError{Pattern: src, Err: fmt.Errorf("unmatched '}' at offset %d", i)}
		case c == '{':
			end := strings.IndexByte(src[i+1:], '}')
			if end < 0 {
				return nil, &ConfigError{Pattern: src, Err: fmt.Errorf("unterminated placeholder at offset %d", i)}
			}
			field := src[i+1 : i+1+end]
			name, typ, _ := strings.Cut(field, ":")
			if strings.ContainsRune(field, '{') {
				return nil, &ConfigError{Pattern: src, Err: fmt.Errorf("nested '{' in placeholder %q", field)}
			}
			if name != "" && !placeholderName.MatchString(name) {
				return nil, &ConfigError{Pattern: src, Err: fmt.Errorf("invalid placeholder name %q", name)}
			}
			sub, ok := placeholderTypes[typ]
			if !ok {
				return nil, &ConfigError{Pattern: src, Err: fmt.Errorf("unknown placeholder type %q", typ)}
			}

			flush()
			expr.WriteString("(" + sub + ")")
			slots = append(slots, name)
			kinds = append(kinds, placeholderKinds[typ])
			switch {
			case name == "":
			case seen[name]:
				repeats = true
			default:
				seen[name] = true
				names = append(names, name)
			}
			i += end + 1
		default:
			literal.WriteByte(c)
		}
	}
	flush()
	expr.WriteString("$")

	re, err := regexp.Compile(expr.String())
	if err != nil {
		return nil, &ConfigError{Pattern: src, Err: err}
	}
	return &Template{
		src:      src,
		re:       re,
		slots:    slots,
		names:    names,
		literals: literals,
		kinds:    kinds,
		repeats:  repeats,
	}, nil
}

// String returns the template source.
func (t *Template) String() string { return t.src }

// Names returns the distinct placeholder names in order of first appearance.
func (t *Template) Names() []string { return t.names }

// Match reports whether the whole line fits the template. A name used more
// than once must capture the same text every time.
func (t *Template) Match(line string) (*FormatMatch, bool) {
	groups := t.re.FindStringSubmatch(line)
	if groups == nil {
		return nil, false
	}
	if m, ok := t.build(line, groups[1:]); ok {
		return m, true
	}
	// The regexp cannot express backreferences, so a split whose repeated
	// names disagree may still hide one where they agree.
	if !t.repeats {
		return nil, false
	}
	caps := t.search(line)
	if caps == nil {
		return nil, false
	}
	return t.build(line, caps)
}

func (t *Template) build(line string, caps []string) (*FormatMatch, bool) {
	m := &FormatMatch{
		Line:     line,
		Template: t.src,
		Fixed:    []string{},
		Named:    make(map[string]string, len(t.names)),
	}
	for i, name := range t.slots {
		v := caps[i]
		if name == "" {
			m.Fixed = append(m.Fixed, v)
			continue
		}
		if prev, ok := m.Named[name]; ok && prev != v {
			return nil, false
		}
		m.Named[name] = v
	}
	return m, true
}

// search walks the literal segments, trying the shortest capture first for
// each slot, and returns the first assignment in which repeated names
// agree.
func (t *Template) search(line string) []string {
	if !strings.HasPrefix(line, t.literals[0]) {
		return nil
	}
	caps := make([]string, len(t.slots))
	bound := make(map[string]string)

	var try func(i, pos int) bool
	try = func(i, pos int) bool {
		if i == len(t.slots) {
			return pos == len(line)
		}
		name, next := t.slots[i], t.literals[i+1]
		for end := pos; end <= len(line); end++ {
			if end < len(line) && !utf8.RuneStart(line[end]) {
				continue
			}
			v := line[pos:end]
			if !strings.HasPrefix(line[end:], next) || !t.kinds[i].MatchString(v) {
				continue
			}
			prev, isBound := bound[name]
			if name != "" && isBound && prev != v {
				continue
			}
			if name != "" && !isBound {
				bound[name] = v
			}
			caps[i] = v
			if try(i+1, end+len(next)) {
				return true
			}
			if name != "" && !isBound {
				delete(bound, name)
			}
		}
		return false
	}
	if !try(0, len(t.literals[0])) {
		return nil
	}
	return caps
}

// FormatMatch carries the captures of one successful template match.
type FormatMatch struct {
	Line     string
	Template string
	// Fixed holds "{}" captures in order of appearance.
	Fixed []string
	// Named holds "{name}" captures.
	Named map[string]string
}

// FormatHandler is invoked with the captures of a matching template.
type FormatHandler[P any] func(p P, m *FormatMatch) error

// FormatPattern registers a handler for a template.
type FormatPattern[P any] struct {
	Template string
	Handler  FormatHandler[P]
}

// Format is shorthand for a FormatPattern literal.
func Format[P any](tmpl string, h FormatHandler[P]) FormatPattern[P] {
	return FormatPattern[P]{Template: tmpl, Handler: h}
}

// FormatOptions configure a FormatTable.
type FormatOptions[P any] struct {
	// Default handles lines no template matches. Without it such lines are
	// dropped.
	Default DefaultFunc[P]
}

type formatEntry[P any] struct {
	tmpl    *Template
	handler FormatHandler[P]
}

// FormatTable matches lines against templates in registration order.
type FormatTable[P any] struct {
	entries []formatEntry[P]
	def     DefaultFunc[P]
}

// NewFormatTable compiles every template. Any invalid template or nil
// handler fails the whole table.
func NewFormatTable[P any](opts FormatOptions[P], patterns ...FormatPattern[P]) (*FormatTable[P], error) {
	t := &FormatTable[P]{
		entries: make([]formatEntry[P], 0, len(patterns)),
		def:     opts.Default,
	}
	for _, fp := range patterns {
		if fp.Handler == nil {
			return nil, &ConfigError{Pattern: fp.Template, Err: errNilHandler}
		}
		tmpl, err := CompileTemplate(fp.Template)
		if err != nil {
			return nil, err
		}
		t.entries = append(t.entries, formatEntry[P]{tmpl: tmpl, handler: fp.Handler})
	}
	return t, nil
}

// MustFormatTable is like NewFormatTable but panics on error.
func MustFormatTable[P any](opts FormatOptions[P], patterns ...FormatPattern[P]) *FormatTable[P] {
	t, err := NewFormatTable(opts, patterns...)
	if err != nil {
		panic(err)
	}
	return t
}

// Templates returns the registered templates in match order.
func (t *FormatTable[P]) Templates() []string {
	out := make([]string, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.tmpl.String()
	}
	return out
}

func (t *FormatTable[P]) Bind(p P) Dispatcher { return bind[P](t, p) }

func (t *FormatTable[P]) Dispatch(p P, line string) error {
	for _, e := range t.entries {
		if m, ok := e.tmpl.Match(line); ok {
			return e.handler(p, m)
		}
	}
	return fallback(t.def, p, line)
}
