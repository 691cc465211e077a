package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokens records the parts of every line it is given.
type tokens struct {
	*Parser[[][]string]
}

var pipeTable = MustDelimiterTable("|", func(p *tokens, parts []string) error {
	p.State = append(p.State, parts)
	return nil
})

func newTokens() *tokens {
	tk := &tokens{}
	tk.Parser = New[[][]string](Options{}, pipeTable.Bind(tk))
	return tk
}

func TestDelimiter_Empty(t *testing.T) {
	got, err := newTokens().ParseStrings(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDelimiter_SingleLine(t *testing.T) {
	got, err := newTokens().ParseStrings([]string{"one|two"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"one", "two"}}, got)
}

func TestDelimiter_SplitsEveryOccurrence(t *testing.T) {
	got, err := newTokens().ParseStrings([]string{"a|b||c|", "plain", ""})
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"a", "b", "", "c", ""},
		{"plain"},
		{""},
	}, got)
}

func TestDelimiter_MultiRune(t *testing.T) {
	tbl, err := NewDelimiterTable(" :: ", func(p *tokens, parts []string) error {
		p.State = append(p.State, parts)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, " :: ", tbl.Delimiter())
	assert.Equal(t, []string{"k", "v :v"}, tbl.Split("k :: v :v"))
}

func TestDelimiter_Limit(t *testing.T) {
	tbl, err := NewDelimiterTableN("=", 2, func(*tokens, []string) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, []string{"key", "a=b"}, tbl.Split("key=a=b"))
}

func TestDelimiter_ConfigErrors(t *testing.T) {
	noop := func(*tokens, []string) error { return nil }

	_, err := NewDelimiterTable("", noop)
	assert.ErrorIs(t, err, ErrConfig)

	_, err = NewDelimiterTableN(",", 0, noop)
	assert.ErrorIs(t, err, ErrConfig)

	_, err = NewDelimiterTable[*tokens](",", nil)
	assert.ErrorIs(t, err, ErrConfig)

	assert.Panics(t, func() { MustDelimiterTable("", noop) })
}

func TestDelimiter_HandlerError(t *testing.T) {
	boom := errors.New("short row")
	tbl := MustDelimiterTable(",", func(p *tokens, parts []string) error {
		if len(parts) < 2 {
			return boom
		}
		return nil
	})
	tk := &tokens{}
	tk.Parser = New[[][]string](Options{}, tbl.Bind(tk))

	_, err := tk.ParseStrings([]string{"a,b", "c"})
	assert.ErrorIs(t, err, boom)
}

func TestDelimiter_InstancesShareTable(t *testing.T) {
	a, b := newTokens(), newTokens()
	_, err := a.ParseStrings([]string{"1|2"})
	require.NoError(t, err)
	_, err = b.ParseStrings([]string{"3|4|5"})
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"1", "2"}}, a.State)
	assert.Equal(t, [][]string{{"3", "4", "5"}}, b.State)
}
