package parser_test

import (
	"fmt"
	"strings"

	"lineparse/internal/parser"
)

type settings struct {
	*parser.Parser[map[string]string]
}

var settingsTable = parser.MustFormatTable(
	parser.FormatOptions[*settings]{
		Default: func(s *settings, line string) error {
			fmt.Printf("skipped %q\n", line)
			return nil
		},
	},
	parser.Format("{key} = {value}", func(s *settings, m *parser.FormatMatch) error {
		s.State[m.Named["key"]] = m.Named["value"]
		return nil
	}),
)

func newSettings() *settings {
	s := &settings{}
	s.Parser = parser.New[map[string]string](parser.Options{
		Strip:        true,
		IgnoreBlanks: true,
		Start: func() error {
			s.State = map[string]string{}
			return nil
		},
	}, settingsTable.Bind(s))
	return s
}

func ExampleFormatTable() {
	got, err := newSettings().ParseReader(strings.NewReader(`
		name = lineparse

		# comment
		mode = strict
	`))
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(got["name"], got["mode"])
	// Output:
	// skipped "# comment"
	// lineparse strict
}

type columns struct {
	*parser.Parser[[]int]
}

var columnsTable = parser.MustDelimiterTable("\t", func(c *columns, parts []string) error {
	c.State = append(c.State, len(parts))
	return nil
})

func ExampleDelimiterTable() {
	c := &columns{}
	c.Parser = parser.New[[]int](parser.Options{}, columnsTable.Bind(c))
	got, _ := c.ParseStrings([]string{"a\tb\tc", "d"})
	fmt.Println(got)
	// Output:
	// [3 1]
}

func ExampleRegexTable() {
	type levels = map[string]int
	tbl := parser.MustRegexTable(parser.RegexOptions[*levels]{NamedGroups: true},
		parser.RegexKeywords(`^(?P<level>[A-Z]+):`, func(l *levels, _ *parser.RegexMatch, kw map[string]string) error {
			(*l)[kw["level"]]++
			return nil
		}),
	)
	counts := levels{}
	for _, line := range []string{"INFO: up", "WARN: slow", "INFO: ok", "noise"} {
		if err := tbl.Dispatch(&counts, line); err != nil {
			fmt.Println(err)
		}
	}
	fmt.Println(counts["INFO"], counts["WARN"])
	// Output:
	// 2 1
}
