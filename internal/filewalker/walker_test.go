package filewalker

import (
	"os"
	"path/filepath"
	"testing"

	"lineparse/internal/parsers"
	"lineparse/internal/source"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestWalk_DefaultParsers(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.ini"), "k=v\n")
	writeFile(t, filepath.Join(root, "sub", "b.txt"), "hello\n")
	writeFile(t, filepath.Join(root, "sub", "c.lua"), `print("x")`+"\n")
	writeFile(t, filepath.Join(root, "skip.bin"), "\x00")
	writeFile(t, filepath.Join(root, ".git", "config.ini"), "k=v\n")

	entries, err := NewWalker().Walk(root)
	require.NoError(t, err)

	got := map[string]string{}
	for _, e := range entries {
		rel, err := filepath.Rel(root, e.Path)
		require.NoError(t, err)
		got[filepath.ToSlash(rel)] = e.Parser.Name()
	}
	assert.Equal(t, map[string]string{
		"a.ini":     "ini",
		"sub/b.txt": "text",
		"sub/c.lua": "lua",
	}, got)
}

type stubParser struct {
	name string
	ok   func(string) bool
}

func (s stubParser) Name() string           { return s.name }
func (s stubParser) CanParse(p string) bool { return s.ok(p) }
func (s stubParser) ParseFile(p string) (*parsers.Result, error) {
	return &parsers.Result{FilePath: p, Kind: s.name}, nil
}
func (s stubParser) ParseLines(p string, _ source.Lines) (*parsers.Result, error) {
	return s.ParseFile(p)
}

func TestWalk_FirstMatchWins(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "x.txt"), "")

	all := func(string) bool { return true }
	w := NewWalker(stubParser{"first", all}, stubParser{"second", all})
	entries, err := w.Walk(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "first", entries[0].Parser.Name())

	res, err := w.ParseFile(entries[0])
	require.NoError(t, err)
	assert.Equal(t, "first", res.Kind)
}

func TestWalk_NotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	writeFile(t, path, "")

	_, err := NewWalker().Walk(path)
	assert.ErrorContains(t, err, "not a directory")

	_, err = NewWalker().Walk(filepath.Join(path, "missing"))
	assert.Error(t, err)
}

func TestParserFor(t *testing.T) {
	w := NewWalker()
	assert.Equal(t, "ini", w.ParserFor("a/b.ini").Name())
	assert.Nil(t, w.ParserFor("a/b.exe"))
}
