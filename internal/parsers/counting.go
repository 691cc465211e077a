package parsers

import "lineparse/internal/parser"

// LineCounter counts dispatched lines. Combined with Strip and IgnoreBlanks
// it counts non-blank lines.
type LineCounter struct {
	*parser.Parser[int]
}

// NewLineCounter creates a counter with the given whitespace policy.
func NewLineCounter(opts parser.Options) *LineCounter {
	c := &LineCounter{}
	c.Parser = parser.New[int](opts, parser.DispatchFunc(func(string) error {
		c.State++
		return nil
	}))
	return c
}
