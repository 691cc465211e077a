package parsers

import (
	"strings"
	"unicode"

	"lineparse/internal/parser"
)

// WhitespaceCounts tallies lines that begin or end with whitespace.
type WhitespaceCounts struct {
	Leading  int `json:"leading"`
	Trailing int `json:"trailing"`
}

// WhitespaceCounter inspects raw lines, so it must not strip them.
type WhitespaceCounter struct {
	*parser.Parser[WhitespaceCounts]
}

// NewWhitespaceCounter creates a counter over unstripped lines.
func NewWhitespaceCounter() *WhitespaceCounter {
	c := &WhitespaceCounter{}
	c.Parser = parser.New[WhitespaceCounts](parser.Options{}, parser.DispatchFunc(func(line string) error {
		if line == "" {
			return nil
		}
		if strings.TrimLeftFunc(line, unicode.IsSpace) != line {
			c.State.Leading++
		}
		if strings.TrimRightFunc(line, unicode.IsSpace) != line {
			c.State.Trailing++
		}
		return nil
	}))
	return c
}

// Tokens collects every whitespace-separated token of every non-blank line.
type Tokens struct {
	*parser.Parser[[]string]
}

var tokensTable = parser.MustDelimiterTable(" ", func(p *Tokens, parts []string) error {
	for _, part := range parts {
		if part != "" {
			p.State = append(p.State, part)
		}
	}
	return nil
})

// NewTokens creates a token collector. Lines are stripped first so that
// leading and trailing spaces produce no empty tokens.
func NewTokens() *Tokens {
	p := &Tokens{}
	p.Parser = parser.New[[]string](parser.Options{Strip: true, IgnoreBlanks: true}, tokensTable.Bind(p))
	return p
}
