package parsers

import (
	"fmt"
	"path/filepath"
	"strings"

	"lineparse/internal/parser"
	"lineparse/internal/source"
)

// TSV turns every non-blank line into a record of its tab-separated columns.
type TSV struct {
	*parser.Parser[[]Record]
}

var tsvTable = parser.MustDelimiterTable("\t", func(p *TSV, cols []string) error {
	p.State = append(p.State, Record{
		Line:    p.Line(),
		Pattern: "row",
		Values:  cols,
	})
	return nil
})

// NewTSV creates a TSV parser. Lines are not stripped, so leading and
// trailing empty columns survive.
func NewTSV() *TSV {
	p := &TSV{}
	p.Parser = parser.New[[]Record](parser.Options{
		IgnoreBlanks: true,
		Start: func() error {
			p.State = []Record{}
			return nil
		},
	}, tsvTable.Bind(p))
	return p
}

// Text keeps every non-blank line, stripped, as a single-value record.
type Text struct {
	*parser.Parser[[]Record]
}

// NewText creates a plain-text parser.
func NewText() *Text {
	p := &Text{}
	p.Parser = parser.New[[]Record](parser.Options{
		Strip:        true,
		IgnoreBlanks: true,
		Start: func() error {
			p.State = []Record{}
			return nil
		},
	}, parser.DispatchFunc(func(line string) error {
		p.State = append(p.State, Record{
			Line:    p.Line(),
			Pattern: "text",
			Values:  []string{line},
		})
		return nil
	}))
	return p
}

// tsvSampleSize is how many leading non-blank lines DetectTSV inspects.
const tsvSampleSize = 20

// DetectTSV reports whether lines look tab-separated: more than 60% of the
// first tsvSampleSize non-blank lines share the same non-zero tab count.
func DetectTSV(lines []string) bool {
	if len(lines) < 2 {
		return false
	}

	tabCounts := make(map[int]int)
	nonEmpty := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if nonEmpty == tsvSampleSize {
			break
		}
		nonEmpty++
		if n := strings.Count(line, "\t"); n > 0 {
			tabCounts[n]++
		}
	}
	if nonEmpty == 0 {
		return false
	}

	best := 0
	for _, c := range tabCounts {
		best = max(best, c)
	}
	return float64(best)/float64(nonEmpty) > 0.6
}

// TextFormat handles .txt and .tsv files. A .tsv file is always split on
// tabs; a .txt file only if DetectTSV says so.
type TextFormat struct{}

func (TextFormat) Name() string { return "text" }

func (TextFormat) CanParse(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".txt" || ext == ".tsv"
}

func (f TextFormat) ParseFile(path string) (*Result, error) {
	return f.ParseLines(path, source.File(path))
}

// ParseLines buffers the lines so DetectTSV can sample them.
func (TextFormat) ParseLines(path string, src source.Lines) (*Result, error) {
	var lines []string
	for line, err := range src {
		if err != nil {
			return nil, fmt.Errorf("read text file: %w", err)
		}
		lines = append(lines, line)
	}

	result := &Result{FilePath: path}
	var (
		records []Record
		err     error
	)
	if strings.EqualFold(filepath.Ext(path), ".tsv") || DetectTSV(lines) {
		result.Kind = "tsv"
		records, err = NewTSV().ParseStrings(lines)
	} else {
		result.Kind = "txt"
		records, err = NewText().ParseStrings(lines)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s file: %w", result.Kind, err)
	}
	result.Records = records
	return result, nil
}
