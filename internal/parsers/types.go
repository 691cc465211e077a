// Package parsers holds ready-made parsers built on the parser package:
// line and whitespace counters, a tokenizer, /proc/cpuinfo, INI,
// tab-separated text and Lua string literals.
package parsers

import "lineparse/internal/source"

// Record is one line a parser kept, with what it extracted from it.
type Record struct {
	// Line is the 1-based line number in the source.
	Line int `json:"line"`
	// Pattern names the rule or pattern that produced the record.
	Pattern string `json:"pattern"`
	// Values are positional captures or columns.
	Values []string `json:"values,omitempty"`
	// Fields are named captures plus parser context (section, function, ...).
	Fields map[string]string `json:"fields,omitempty"`
}

// Result holds the parse output for a single file.
type Result struct {
	// FilePath is the path the file was read from.
	FilePath string `json:"file"`
	// Kind is the parser that produced the result (ini, tsv, txt, lua, or a
	// rule set name).
	Kind    string   `json:"kind"`
	Records []Record `json:"records"`
}

// Hits counts records per pattern name.
func (r *Result) Hits() map[string]int {
	hits := make(map[string]int)
	for _, rec := range r.Records {
		hits[rec.Pattern]++
	}
	return hits
}

// FileParser is implemented by everything the file walker can hand a file
// to. ParseFile and ParseLines must be safe for concurrent use;
// implementations build a fresh parser instance per call.
type FileParser interface {
	// Name identifies the parser in logs and stored results.
	Name() string
	// CanParse reports whether the parser handles the given path.
	CanParse(path string) bool
	// ParseFile parses a file into records.
	ParseFile(path string) (*Result, error)
	// ParseLines parses lines already read from path.
	ParseLines(path string, lines source.Lines) (*Result, error)
}
