package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lineparse/internal/filewalker"
	"lineparse/internal/parsers"
	"lineparse/internal/textutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.Execute()
	return out.String(), err
}

var (
	accessRules = filepath.Join("..", "rules", "testdata", "access.yaml")
	accessLog   = filepath.Join("..", "rules", "testdata", "access.log")
	cpuinfoFile = filepath.Join("..", "parsers", "testdata", "cpuinfo.txt")
)

func TestParseCmd_File(t *testing.T) {
	out, err := run(t, "", "parse", accessRules, accessLog)
	require.NoError(t, err)

	var results []parsers.Result
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, accessLog, results[0].FilePath)
	assert.Equal(t, map[string]int{"request": 2, "error": 1, "unmatched": 1}, results[0].Hits())
}

func TestParseCmd_Stdin(t *testing.T) {
	out, err := run(t, "GET / 200\nnoise\n", "parse", accessRules)
	require.NoError(t, err)

	var results []parsers.Result
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "-", results[0].FilePath)
	assert.Equal(t, []parsers.Record{
		{Line: 1, Pattern: "request", Fields: map[string]string{"method": "GET", "path": "/", "status": "200"}},
		{Line: 2, Pattern: "unmatched", Values: []string{"noise"}},
	}, results[0].Records)
}

func TestParseCmd_Errors(t *testing.T) {
	_, err := run(t, "", "parse")
	assert.Error(t, err)

	_, err = run(t, "", "parse", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = run(t, "", "parse", accessRules, filepath.Join(t.TempDir(), "missing.log"))
	assert.Error(t, err)
}

func TestCountCmd(t *testing.T) {
	out, err := run(t, "a\n\n  \nb\n", "count")
	require.NoError(t, err)
	assert.Equal(t, "4\n", out)

	out, err = run(t, "a\n\n  \nb\n", "count", "--skip-blanks")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)

	out, err = run(t, "", "count", accessLog, cpuinfoFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "5\t"+accessLog, lines[0])
	assert.True(t, strings.HasSuffix(lines[2], "\ttotal"))
}

func TestCPUInfoCmd(t *testing.T) {
	for _, args := range [][]string{
		{"cpuinfo", cpuinfoFile},
		{"cpuinfo", "--raw", cpuinfoFile},
	} {
		out, err := run(t, "", args...)
		require.NoError(t, err)

		var info parsers.CPUInfo
		require.NoError(t, json.Unmarshal([]byte(out), &info))
		assert.Len(t, info, 6)
		assert.Equal(t, "GenuineIntel", info["0"]["vendor_id"])
	}
}

func TestRootCmd_Commands(t *testing.T) {
	var names []string
	for _, c := range NewRootCmd().Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"parse", "count", "cpuinfo", "ingest", "similar", "stats"})
}

// linesOnly refuses to reopen the file, so parseEntry must parse the bytes
// it already read.
type linesOnly struct{ parsers.TextFormat }

func (linesOnly) ParseFile(string) (*parsers.Result, error) {
	return nil, errors.New("file reopened")
}

func TestParseEntry_HashesParsedBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	content := "first\n\nsecond\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	got, err := parseEntry(context.Background(), filewalker.FileEntry{Path: path, Parser: linesOnly{}})
	require.NoError(t, err)
	assert.Equal(t, textutil.Hash(content), got.hash)
	assert.Equal(t, []parsers.Record{
		{Line: 1, Pattern: "text", Values: []string{"first"}},
		{Line: 3, Pattern: "text", Values: []string{"second"}},
	}, got.result.Records)

	_, err = parseEntry(context.Background(), filewalker.FileEntry{Path: path + ".missing", Parser: linesOnly{}})
	assert.Error(t, err)
}
