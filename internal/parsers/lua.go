package parsers

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"lineparse/internal/parser"
	"lineparse/internal/source"
)

// LuaStrings extracts non-empty string literals from Lua source, skipping
// comments. Each literal records the function call it is an argument of,
// when one directly precedes it.
type LuaStrings struct {
	*parser.Parser[[]Record]
	// closer ends the open block comment, e.g. "]==]"; "" outside one.
	closer string
}

// luaStringPattern matches double- and single-quoted literals.
var luaStringPattern = regexp.MustCompile(`"([^"\\]*(?:\\.[^"\\]*)*)"|'([^'\\]*(?:\\.[^'\\]*)*)'`)

// luaFuncPattern captures the callee right before an opening parenthesis.
var luaFuncPattern = regexp.MustCompile(`([a-zA-Z_][a-zA-Z0-9_.:]*)\s*\(\s*$`)

var luaBlockOpen = regexp.MustCompile(`^--\[(=*)\[`)

// Lines without "--" are plain code.
var luaTable = parser.MustRegexTable(
	parser.RegexOptions[*LuaStrings]{Default: (*LuaStrings).onCode},
	parser.Regex(`--`, func(p *LuaStrings, m *parser.RegexMatch) error {
		p.scan(m.Line)
		return nil
	}),
)

// NewLuaStrings creates a Lua string extractor.
func NewLuaStrings() *LuaStrings {
	p := &LuaStrings{}
	p.Parser = parser.New[[]Record](parser.Options{
		Start: func() error {
			p.State = []Record{}
			p.closer = ""
			return nil
		},
		Reset: func() { p.closer = "" },
	}, parser.DispatchFunc(func(line string) error {
		if p.closer != "" {
			p.scan(line)
			return nil
		}
		return luaTable.Dispatch(p, line)
	}))
	return p
}

// scan splits line into code and comments, extracting strings from the
// code. A block comment left open carries over to the next line.
func (p *LuaStrings) scan(line string) {
	for line != "" {
		if p.closer != "" {
			idx := strings.Index(line, p.closer)
			if idx < 0 {
				return
			}
			line = line[idx+len(p.closer):]
			p.closer = ""
			continue
		}

		idx := commentStart(line)
		if idx < 0 {
			p.extract(line)
			return
		}
		p.extract(line[:idx])
		open := luaBlockOpen.FindStringSubmatch(line[idx:])
		if open == nil {
			return
		}
		p.closer = "]" + open[1] + "]"
		line = line[idx+len(open[0]):]
	}
}

func (p *LuaStrings) onCode(line string) error {
	p.extract(line)
	return nil
}

func (p *LuaStrings) extract(code string) {
	for _, loc := range luaStringPattern.FindAllStringSubmatchIndex(code, -1) {
		var text string
		switch {
		case loc[2] >= 0:
			text = code[loc[2]:loc[3]]
		case loc[4] >= 0:
			text = code[loc[4]:loc[5]]
		}
		if text == "" {
			continue
		}

		rec := Record{Line: p.Line(), Pattern: "string", Values: []string{text}}
		if fn := luaFuncPattern.FindStringSubmatch(code[:loc[0]]); fn != nil {
			rec.Fields = map[string]string{"function": fn[1]}
		}
		p.State = append(p.State, rec)
	}
}

// commentStart returns the offset of the first "--" outside a string
// literal, or -1.
func commentStart(line string) int {
	for off := 0; ; {
		i := strings.Index(line[off:], "--")
		if i < 0 {
			return -1
		}
		if !insideString(line, off+i) {
			return off + i
		}
		off += i + 2
	}
}

// insideString reports whether byte offset idx of line falls inside a
// quoted literal.
func insideString(line string, idx int) bool {
	inDouble, inSingle := false, false
	for i := 0; i < idx; i++ {
		switch line[i] {
		case '\\':
			i++
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		}
	}
	return inDouble || inSingle
}

// LuaFormat hands .lua files to a fresh LuaStrings parser.
type LuaFormat struct{}

func (LuaFormat) Name() string { return "lua" }

func (LuaFormat) CanParse(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".lua")
}

func (f LuaFormat) ParseFile(path string) (*Result, error) {
	return f.ParseLines(path, source.File(path))
}

func (f LuaFormat) ParseLines(path string, lines source.Lines) (*Result, error) {
	records, err := NewLuaStrings().Parse(lines)
	if err != nil {
		return nil, fmt.Errorf("parse lua file: %w", err)
	}
	return &Result{FilePath: path, Kind: f.Name(), Records: records}, nil
}
