package parsers

import (
	"fmt"
	"path/filepath"
	"strings"

	"lineparse/internal/parser"
	"lineparse/internal/source"
)

// INI extracts key/value pairs from INI and similar config files. Lines
// are stripped and blanks skipped; comments and lines without '=' are
// dropped.
type INI struct {
	*parser.Parser[[]Record]
	section string
}

var iniTable = parser.MustRegexTable(
	parser.RegexOptions[*INI]{NamedGroups: true},
	parser.RegexKeywords(`^[;#]`, func(*INI, *parser.RegexMatch, map[string]string) error {
		return nil
	}),
	parser.RegexKeywords(`^\[(?P<section>[^\]]*)\]$`, (*INI).onSection),
	parser.RegexKeywords(`^(?P<key>[^=]*[^=\s])\s*=\s*(?P<value>.*)$`, (*INI).onPair),
)

// NewINI creates an INI parser.
func NewINI() *INI {
	p := &INI{}
	p.Parser = parser.New[[]Record](parser.Options{
		Strip:        true,
		IgnoreBlanks: true,
		Start: func() error {
			p.State = []Record{}
			p.section = ""
			return nil
		},
		Reset: func() { p.section = "" },
	}, iniTable.Bind(p))
	return p
}

func (p *INI) onSection(_ *parser.RegexMatch, kw map[string]string) error {
	p.section = strings.TrimSpace(kw["section"])
	return nil
}

func (p *INI) onPair(_ *parser.RegexMatch, kw map[string]string) error {
	p.State = append(p.State, Record{
		Line:    p.Line(),
		Pattern: "pair",
		Fields: map[string]string{
			"section": p.section,
			"key":     kw["key"],
			"value":   kw["value"],
		},
	})
	return nil
}

// INIFormat hands .ini files to a fresh INI parser.
type INIFormat struct{}

func (INIFormat) Name() string { return "ini" }

func (INIFormat) CanParse(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".ini")
}

func (f INIFormat) ParseFile(path string) (*Result, error) {
	return f.ParseLines(path, source.File(path))
}

func (f INIFormat) ParseLines(path string, lines source.Lines) (*Result, error) {
	records, err := NewINI().Parse(lines)
	if err != nil {
		return nil, fmt.Errorf("parse ini file: %w", err)
	}
	return &Result{FilePath: path, Kind: f.Name(), Records: records}, nil
}
