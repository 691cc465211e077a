package parsers

import "lineparse/internal/parser"

// CPUInfo maps processor number to that processor's attributes, as listed
// in /proc/cpuinfo.
type CPUInfo map[string]map[string]string

// attributePattern matches "name<ws>:<ws>value" lines.
const attributePattern = `^(?P<attribute>.+[^\s])\s+:\s+(?P<value>.+)$`

// CPUInfoParser reads /proc/cpuinfo. Attribute lines before the first
// "processor" line are ignored.
type CPUInfoParser struct {
	*parser.Parser[CPUInfo]
	processor map[string]string
}

// The two tables bind the same expression in different modes and must
// produce identical results.
var (
	cpuInfoKeywords = parser.MustRegexTable(
		parser.RegexOptions[*CPUInfoParser]{NamedGroups: true},
		parser.RegexKeywords(attributePattern,
			func(c *CPUInfoParser, _ *parser.RegexMatch, kw map[string]string) error {
				c.attribute(kw["attribute"], kw["value"])
				return nil
			}),
	)
	cpuInfoMatch = parser.MustRegexTable(
		parser.RegexOptions[*CPUInfoParser]{},
		parser.Regex(attributePattern, func(c *CPUInfoParser, m *parser.RegexMatch) error {
			c.attribute(m.Group("attribute"), m.Group("value"))
			return nil
		}),
	)
)

// NewCPUInfoParser creates a parser. With keywords set, handlers receive the
// named groups unpacked; otherwise they query the raw match.
func NewCPUInfoParser(keywords bool) *CPUInfoParser {
	c := &CPUInfoParser{}
	var tbl parser.Table[*CPUInfoParser] = cpuInfoMatch
	if keywords {
		tbl = cpuInfoKeywords
	}
	c.Parser = parser.New[CPUInfo](parser.Options{
		Start: func() error {
			c.State = CPUInfo{}
			c.processor = nil
			return nil
		},
		Reset: func() { c.processor = nil },
	}, tbl.Bind(c))
	return c
}

func (c *CPUInfoParser) attribute(name, value string) {
	if name == "processor" {
		c.processor = map[string]string{}
		c.State[value] = c.processor
		return
	}
	if c.processor != nil {
		c.processor[name] = value
	}
}
