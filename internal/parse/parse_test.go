package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqualAt(t *testing.T) {
	tests := []struct {
		name string
		text string
		pat  string
		i    int
		want bool
	}{
		{"match at start", "foobar", "foo", 0, true},
		{"match mid", "foobar", "bar", 3, true},
		{"mismatch", "foobar", "baz", 3, false},
		{"out of bounds index", "foobar", "foo", 10, false},
		{"runs past end", "foobar", "barbaz", 3, false},
		{"negative index", "foobar", "foo", -1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EqualAt(tt.text, tt.pat, tt.i))
		})
	}
}

func TestSkipIdempotent(t *testing.T) {
	st := State{Code: "  // hi\n  \t x", Index: 0}
	once := Skip(st)
	twice := Skip(once)
	assert.Equal(t, once.Index, twice.Index)
	assert.Equal(t, "x", st.Code[once.Index:])
}

func TestTextVsConsume(t *testing.T) {
	st := State{Code: "foo bar", Index: 0}

	next, matched := Text("foo")(st)
	require.True(t, matched)
	consumedNext, err := Consume("foo")(st)
	require.NoError(t, err)
	assert.Equal(t, next, consumedNext)

	missState, matched := Text("qux")(st)
	assert.False(t, matched)
	assert.Equal(t, st, missState)

	_, err = Consume("qux")(st)
	assert.Error(t, err)
}

func TestListBasic(t *testing.T) {
	elem := func(st State) (State, string, error) {
		return Name1(st)
	}
	fold := func(xs []string) []string { return xs }
	parser := List("[", ",", "]", elem, fold)

	_, got, err := parser(State{Code: "[ a, b, c ]", Index: 0})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got)

	next, empty, err := parser(State{Code: "[]", Index: 0})
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.Equal(t, 2, next.Index)
}

func TestListTrailingSeparator(t *testing.T) {
	elem := func(st State) (State, string, error) {
		return Name1(st)
	}
	parser := List("[", ",", "]", elem, func(xs []string) []string { return xs })

	_, got, err := parser(State{Code: "[a, b, c,]", Index: 0})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestNameHere(t *testing.T) {
	next, name := NameHere(State{Code: "foo.bar baz", Index: 0})
	assert.Equal(t, "foo.bar", name)
	assert.Equal(t, 7, next.Index)

	_, _, err := Name1(State{Code: " )", Index: 0})
	assert.Error(t, err)
}

func TestHighlightExactRendering(t *testing.T) {
	got := Highlight(3, 8, "foo bar baz")
	want := "    0 | foo\x1b[4m\x1b[31m bar \x1b[0mbaz\n"
	assert.Equal(t, want, got)
}

func TestGrammarFallsThroughToExpected(t *testing.T) {
	alt := func(st State) (State, string, bool, error) {
		return st, "", false, nil
	}
	parser := Grammar("a widget", []func(State) (State, string, bool, error){alt})
	_, _, err := parser(State{Code: "nope", Index: 0})
	require.Error(t, err)
	var synErr *SyntaxError
	require.ErrorAs(t, err, &synErr)
	assert.Contains(t, synErr.Message, "Expected a widget")
}

func TestUntil(t *testing.T) {
	delim := Text(";")
	elem := func(st State) (State, string, error) {
		return Name1(st)
	}
	parser := Until(delim, elem)
	_, got, err := parser(State{Code: "a b c;", Index: 0})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}
