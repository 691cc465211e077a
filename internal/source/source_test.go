package source

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, lines Lines) ([]string, error) {
	t.Helper()
	var out []string
	for l, err := range lines {
		if err != nil {
			return out, err
		}
		out = append(out, l)
	}
	return out, nil
}

func TestStrings(t *testing.T) {
	got, err := collect(t, Strings([]string{"a", "", "c"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "", "c"}, got)
}

func TestStrings_StopsEarly(t *testing.T) {
	n := 0
	for range Strings([]string{"a", "b", "c"}) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestReader_DropsTerminators(t *testing.T) {
	got, err := collect(t, Reader(strings.NewReader("one\r\ntwo\n\n  three  ")))
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "", "  three  "}, got)
}

func TestReader_Empty(t *testing.T) {
	got, err := collect(t, Reader(strings.NewReader("")))
	require.NoError(t, err)
	assert.Empty(t, got)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestReader_YieldsScanError(t *testing.T) {
	_, err := collect(t, Reader(failingReader{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lines.txt")
	require.NoError(t, os.WriteFile(path, []byte("x\ny\n"), 0o600))

	got, err := collect(t, File(path))
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, got)
}

func TestFile_Missing(t *testing.T) {
	_, err := collect(t, File(filepath.Join(t.TempDir(), "nope.txt")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
