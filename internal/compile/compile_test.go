package compile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ATSOTECK/rulec/internal/parse"
	"github.com/ATSOTECK/rulec/internal/rulebook"
)

func TestIdentityFunctionEndToEnd(t *testing.T) {
	out, err := Code("(I x) = x", false)
	require.NoError(t, err)

	assert.Contains(t, out, "#define _I_ (1)")
	assert.Contains(t, out, "link(mem, host, ask_arg(mem, term, 0));")
	assert.NotContains(t, out, "/*!")
}

func TestChurchSuccessorEndToEnd(t *testing.T) {
	out, err := Code(`(Succ n) = λf λx (f (n f x))`, false)
	require.NoError(t, err)

	assert.Contains(t, out, "#define _SUCC_ (1)")
	assert.Contains(t, out, "Lam(")
	assert.Contains(t, out, "App(")
}

func TestDuplicatingCombinatorEndToEnd(t *testing.T) {
	out, err := Code(`(Dup2 x) = !x0 x1 = x; (Pair x0 x1)`, false)
	require.NoError(t, err)

	assert.Contains(t, out, "Dp0(col")
	assert.Contains(t, out, "Dp1(col")
	assert.Contains(t, out, "get_tag(t1) == U32")
}

func TestParallelFlagThreadsThroughToOutput(t *testing.T) {
	out, err := Code("(I x) = x", true)
	require.NoError(t, err)
	assert.Contains(t, out, "#define PARALLEL")
}

func TestParseErrorPropagates(t *testing.T) {
	_, err := Code("(I x) = ", false)
	require.Error(t, err)
	var synErr *parse.SyntaxError
	assert.ErrorAs(t, err, &synErr)
}

func TestArityMismatchPropagatesAsRulebookError(t *testing.T) {
	_, err := Code("(F x) = x\n(F x y) = x", false)
	require.Error(t, err)
	var rbErr *rulebook.Error
	require.ErrorAs(t, err, &rbErr)
	assert.Equal(t, "F", rbErr.Rule)
}

func TestNestedPatternPropagatesAsRulebookError(t *testing.T) {
	// The rulebook rejects constructor fields that aren't bare variables
	// before lowering runs, so a nested pattern surfaces end to end as a
	// rulebook.Error.
	_, err := Code("(F (S (T y))) = y", false)
	require.Error(t, err)
	var rbErr *rulebook.Error
	require.ErrorAs(t, err, &rbErr)
	assert.Contains(t, rbErr.Message, "nested constructor pattern")
}

func TestCodeAndSaveWritesFileCreateOrTruncate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.c")

	require.NoError(t, os.WriteFile(path, []byte("stale contents that must be fully replaced"), 0o644))

	err := CodeAndSave("(I x) = x", path, false)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "#define _I_ (1)")
	assert.NotContains(t, string(data), "stale contents")
}

func TestCodeAndSaveWritesNoFileOnCompileError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.c")

	err := CodeAndSave("(I x) = ", path, false)
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no output file on a failed compile")
}

func TestRenderConstructorIDsAscendingByID(t *testing.T) {
	out, err := Code("(Zero) = Zero\n(Succ n) = (Succ n)", false)
	require.NoError(t, err)
	zeroIdx := indexOf(out, "#define _ZERO_ (1)")
	succIdx := indexOf(out, "#define _SUCC_ (2)")
	require.NotEqual(t, -1, zeroIdx)
	require.NotEqual(t, -1, succIdx)
	assert.Less(t, zeroIdx, succIdx)
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
