// Package rules builds record-collecting parsers from YAML rule files.
//
// A rule file names one matching strategy and its patterns:
//
//	name: access
//	kind: regex            # regex, format or delimiter
//	files: ["*.log"]
//	strip: true
//	ignore_blanks: true
//	named_groups: true
//	patterns:
//	  - name: request
//	    expr: '^(?P<method>[A-Z]+) (?P<path>\S+)$'
//	default: unmatched
//
// Every line a pattern matches becomes a parsers.Record named after the
// pattern. When default is set, unmatched lines become records with that
// name; otherwise they are dropped.
package rules

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"lineparse/internal/parser"
	"lineparse/internal/parsers"
	"lineparse/internal/source"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Kind selects the matching strategy of a rule set.
type Kind string

const (
	KindRegex     Kind = "regex"
	KindFormat    Kind = "format"
	KindDelimiter Kind = "delimiter"
)

// Pattern is one named expression or template.
type Pattern struct {
	Name string `yaml:"name"`
	Expr string `yaml:"expr"`
}

// File is the on-disk shape of a rule set.
type File struct {
	Name         string    `yaml:"name"`
	Kind         Kind      `yaml:"kind"`
	Files        []string  `yaml:"files"`
	Strip        bool      `yaml:"strip"`
	IgnoreBlanks bool      `yaml:"ignore_blanks"`
	NamedGroups  bool      `yaml:"named_groups"`
	HandleErrors bool      `yaml:"handle_errors"`
	Patterns     []Pattern `yaml:"patterns"`
	Default      string    `yaml:"default"`

	// Delimiter settings.
	Delimiter string   `yaml:"delimiter"`
	MaxSplit  int      `yaml:"max_split"`
	Columns   []string `yaml:"columns"`
}

// RuleSet is a compiled rule file. Its table is built once and shared by
// every parser the set creates, so a RuleSet is safe for concurrent use.
type RuleSet struct {
	file  File
	opts  parser.Options
	table parser.Table[*Collector]
	// rejected lists expressions dropped under handle_errors.
	rejected []parser.PatternInfo
}

// Collector is a parser instance created by a RuleSet.
type Collector struct {
	*parser.Parser[[]parsers.Record]
}

func (c *Collector) add(pattern string, values []string, fields map[string]string) {
	if len(values) == 0 {
		values = nil
	}
	if len(fields) == 0 {
		fields = nil
	}
	c.State = append(c.State, parsers.Record{
		Line:    c.Line(),
		Pattern: pattern,
		Values:  values,
		Fields:  fields,
	})
}

var (
	errNoName     = errors.New("rule set has no name")
	errNoPatterns = errors.New("rule set has no patterns")
	errPatternKey = errors.New("pattern needs a name and an expr")
)

// Load reads and compiles a rule file.
func Load(path string, logger *zerolog.Logger) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}
	rs, err := Parse(data, logger)
	if err != nil {
		return nil, fmt.Errorf("rule file %s: %w", path, err)
	}
	return rs, nil
}

// Parse compiles a rule set from YAML.
func Parse(data []byte, logger *zerolog.Logger) (*RuleSet, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return Compile(f, logger)
}

// Compile builds the table for an already decoded rule set.
func Compile(f File, logger *zerolog.Logger) (*RuleSet, error) {
	if logger == nil {
		logger = &log.Logger
	}
	if f.Name == "" {
		return nil, errNoName
	}
	for _, p := range f.Patterns {
		if p.Name == "" || p.Expr == "" {
			return nil, fmt.Errorf("%w: %+v", errPatternKey, p)
		}
	}

	rs := &RuleSet{
		file: f,
		opts: parser.Options{
			Strip:        f.Strip,
			IgnoreBlanks: f.IgnoreBlanks,
			Logger:       logger,
		},
	}

	var err error
	switch f.Kind {
	case KindRegex, "":
		rs.file.Kind = KindRegex
		err = rs.compileRegex(logger)
	case KindFormat:
		err = rs.compileFormat()
	case KindDelimiter:
		err = rs.compileDelimiter()
	default:
		return nil, fmt.Errorf("unknown rule kind %q", f.Kind)
	}
	if err != nil {
		return nil, err
	}
	return rs, nil
}

func (rs *RuleSet) defaultFunc() parser.DefaultFunc[*Collector] {
	name := rs.file.Default
	if name == "" {
		return nil
	}
	return func(c *Collector, line string) error {
		c.add(name, []string{line}, nil)
		return nil
	}
}

func (rs *RuleSet) compileRegex(logger *zerolog.Logger) error {
	if len(rs.file.Patterns) == 0 {
		return errNoPatterns
	}

	patterns := make([]parser.RegexPattern[*Collector], 0, len(rs.file.Patterns))
	for _, p := range rs.file.Patterns {
		name := p.Name
		if rs.file.NamedGroups {
			patterns = append(patterns, parser.RegexKeywords(p.Expr,
				func(c *Collector, _ *parser.RegexMatch, kw map[string]string) error {
					c.add(name, nil, kw)
					return nil
				}))
			continue
		}
		patterns = append(patterns, parser.Regex(p.Expr, func(c *Collector, m *parser.RegexMatch) error {
			c.add(name, m.Groups(), m.NamedGroups())
			return nil
		}))
	}

	tbl, err := parser.NewRegexTable(parser.RegexOptions[*Collector]{
		NamedGroups:  rs.file.NamedGroups,
		HandleErrors: rs.file.HandleErrors,
		Default:      rs.defaultFunc(),
		Logger:       logger,
	}, patterns...)
	if err != nil {
		return err
	}
	rs.table = tbl
	rs.rejected = tbl.Rejected()
	return nil
}

func (rs *RuleSet) compileFormat() error {
	if len(rs.file.Patterns) == 0 {
		return errNoPatterns
	}

	patterns := make([]parser.FormatPattern[*Collector], 0, len(rs.file.Patterns))
	for _, p := range rs.file.Patterns {
		name := p.Name
		patterns = append(patterns, parser.Format(p.Expr, func(c *Collector, m *parser.FormatMatch) error {
			c.add(name, m.Fixed, m.Named)
			return nil
		}))
	}

	tbl, err := parser.NewFormatTable(parser.FormatOptions[*Collector]{Default: rs.defaultFunc()}, patterns...)
	if err != nil {
		return err
	}
	rs.table = tbl
	return nil
}

func (rs *RuleSet) compileDelimiter() error {
	limit := rs.file.MaxSplit
	if limit == 0 {
		limit = -1
	}
	columns := rs.file.Columns
	name := rs.file.Name

	tbl, err := parser.NewDelimiterTableN(rs.file.Delimiter, limit, func(c *Collector, parts []string) error {
		var fields map[string]string
		for i, col := range columns {
			if i >= len(parts) {
				break
			}
			if fields == nil {
				fields = make(map[string]string, len(columns))
			}
			fields[col] = parts[i]
		}
		c.add(name, parts, fields)
		return nil
	})
	if err != nil {
		return err
	}
	rs.table = tbl
	return nil
}

// Name returns the rule set name. Records from delimiter rule sets carry it
// as their pattern.
func (rs *RuleSet) Name() string { return rs.file.Name }

// Kind returns the matching strategy.
func (rs *RuleSet) Kind() Kind { return rs.file.Kind }

// Patterns returns the declared pattern names in match order.
func (rs *RuleSet) Patterns() []string {
	if rs.file.Kind == KindDelimiter {
		return []string{rs.file.Name}
	}
	names := make([]string, 0, len(rs.file.Patterns)+1)
	for _, p := range rs.file.Patterns {
		names = append(names, p.Name)
	}
	if rs.file.Default != "" {
		names = append(names, rs.file.Default)
	}
	return names
}

// Rejected lists expressions dropped because they failed to compile.
func (rs *RuleSet) Rejected() []parser.PatternInfo { return rs.rejected }

// NewParser creates an independent parser instance bound to the shared
// table.
func (rs *RuleSet) NewParser() *Collector {
	c := &Collector{}
	opts := rs.opts
	opts.Start = func() error {
		c.State = []parsers.Record{}
		return nil
	}
	c.Parser = parser.New[[]parsers.Record](opts, rs.table.Bind(c))
	return c
}

// CanParse matches the base name of path against the files globs. A rule
// set without globs accepts every file.
func (rs *RuleSet) CanParse(path string) bool {
	if len(rs.file.Files) == 0 {
		return true
	}
	base := filepath.Base(path)
	for _, glob := range rs.file.Files {
		if ok, err := filepath.Match(glob, base); err == nil && ok {
			return true
		}
	}
	return false
}

// ParseFile parses one file with a fresh parser instance.
func (rs *RuleSet) ParseFile(path string) (*parsers.Result, error) {
	return rs.ParseLines(path, source.File(path))
}

// ParseLines parses lines read from path with a fresh parser instance.
func (rs *RuleSet) ParseLines(path string, lines source.Lines) (*parsers.Result, error) {
	records, err := rs.NewParser().Parse(lines)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &parsers.Result{FilePath: path, Kind: rs.file.Name, Records: records}, nil
}

var _ parsers.FileParser = (*RuleSet)(nil)
