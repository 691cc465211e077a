package filewalker

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"lineparse/internal/parsers"

	"github.com/rs/zerolog/log"
)

// Walker traverses directories and assigns each file the first parser that
// accepts it.
type Walker struct {
	parsers []parsers.FileParser
}

// NewWalker creates a Walker trying ps in order. With no parsers it falls
// back to the built-in ini, text and lua formats.
func NewWalker(ps ...parsers.FileParser) *Walker {
	if len(ps) == 0 {
		ps = []parsers.FileParser{
			parsers.INIFormat{},
			parsers.TextFormat{},
			parsers.LuaFormat{},
		}
	}
	return &Walker{parsers: ps}
}

// FileEntry is a discovered file and the parser chosen for it.
type FileEntry struct {
	Path   string
	Parser parsers.FileParser
}

// Walk discovers every file under root some parser accepts. Hidden
// directories are skipped.
func (w *Walker) Walk(root string) ([]FileEntry, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root path: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", root)
	}

	var entries []FileEntry
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Error walking path")
			return nil
		}
		if d.IsDir() {
			if path != root && len(d.Name()) > 1 && d.Name()[0] == '.' {
				return filepath.SkipDir
			}
			return nil
		}

		if p := w.ParserFor(path); p != nil {
			entries = append(entries, FileEntry{Path: path, Parser: p})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}

	log.Info().Int("count", len(entries)).Str("root", root).Msg("Discovered files")
	return entries, nil
}

// ParserFor returns the first parser accepting path, or nil.
func (w *Walker) ParserFor(path string) parsers.FileParser {
	for _, p := range w.parsers {
		if p.CanParse(path) {
			return p
		}
	}
	return nil
}

// ParseFile parses a single entry with its assigned parser.
func (w *Walker) ParseFile(entry FileEntry) (*parsers.Result, error) {
	return entry.Parser.ParseFile(entry.Path)
}
