package emit

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ATSOTECK/rulec/internal/lang"
	"github.com/ATSOTECK/rulec/internal/lower"
	"github.com/ATSOTECK/rulec/internal/rulebook"
)

func mustEmit(t *testing.T, src string) (*rulebook.RuleBook, map[string]*FuncBlocks) {
	t.Helper()
	file, err := lang.ReadFile(src)
	require.NoError(t, err)
	book, err := rulebook.Build(file)
	require.NoError(t, err)
	prog, err := lower.Build(book)
	require.NoError(t, err)
	blocks := New(book).Emit(prog)
	return book, blocks
}

func TestIdentityFunctionHasNoAllocations(t *testing.T) {
	book, blocks := mustEmit(t, "(I x) = x")
	id := book.NameToID["I"]

	rewrite := blocks["I"].Rewrite
	assert.Contains(t, rewrite, "ask_arg(mem, term, 0)")
	assert.NotContains(t, rewrite, "alloc(mem,")
	assert.Contains(t, rewrite, "link(mem, host, ask_arg(mem, term, 0));")

	init := blocks["I"].Init
	assert.Contains(t, init, "init = 0;", "I has no strict arguments")
	_ = id
}

func TestChurchSuccessorAllocatesExpectedNodes(t *testing.T) {
	_, blocks := mustEmit(t, `(Succ n) = λf λx (f (n f x))`)
	rewrite := blocks["Succ"].Rewrite

	allocCount := strings.Count(rewrite, "alloc(mem, 2);") // App and Lam are both 2-cell
	assert.Equal(t, 5, allocCount, "two Lam nodes plus three App nodes (n applied to f and x is curried into two binary Apps)")
	assert.Equal(t, 2, strings.Count(rewrite, "Lam("))
	assert.Equal(t, 3, strings.Count(rewrite, "App("))
}

func TestDup2EmitsSharedLabelAndNumberInlining(t *testing.T) {
	_, blocks := mustEmit(t, `(Dup2 x) = !x0 x1 = x; (Pair x0 x1)`)
	rewrite := blocks["Dup2"].Rewrite

	assert.Contains(t, rewrite, "get_tag(t1) == U32")
	assert.Regexp(t, regexp.MustCompile(`u64 col\d+ = \d+;`), rewrite)
	assert.Contains(t, rewrite, "Dp0(col")
	assert.Contains(t, rewrite, "Dp1(col")
}

func TestNumericInlineBothBranchesPresent(t *testing.T) {
	_, blocks := mustEmit(t, `(Double x) = (+ x x)`)
	rewrite := blocks["Double"].Rewrite

	assert.Regexp(t, regexp.MustCompile(`get_tag\(t\d+\) == U32 && get_tag\(t\d+\) == U32`), rewrite)
	assert.Regexp(t, regexp.MustCompile(`= U_32\(get_val\(t\d+\) \+ get_val\(t\d+\)\);`), rewrite)
	assert.Contains(t, rewrite, "} else {")
	assert.Contains(t, rewrite, "Op2(ADD,")
}

func TestDuplicatorLabelsAreDistinctAcrossRules(t *testing.T) {
	_, blocks := mustEmit(t, "(F x) = !a b = x; (Pair a b)\n(G y) = !c d = y; (Pair c d)")

	re := regexp.MustCompile(`col(\d+) = (\d+);`)
	seen := map[string]bool{}
	for _, name := range []string{"F", "G"} {
		for _, m := range re.FindAllStringSubmatch(blocks[name].Rewrite, -1) {
			seen[m[1]] = true
		}
	}
	assert.Len(t, seen, 2, "F's Dup and G's Dup must get distinct labels")
}

func TestErasureEmitsCollect(t *testing.T) {
	_, blocks := mustEmit(t, "(K x y) = x")
	rewrite := blocks["K"].Rewrite
	assert.Contains(t, rewrite, "collect(mem, ask_arg(mem, term, 1));")
	assert.NotContains(t, rewrite, "collect(mem, ask_arg(mem, term, 0));")
}

func TestConstructorConditionAndFree(t *testing.T) {
	_, blocks := mustEmit(t, "(Add (Succ n) b) = (Succ (Add n b))\n(Add Zero b) = b")
	rewrite := blocks["Add"].Rewrite
	assert.Contains(t, rewrite, "get_tag(ask_arg(mem, term, 0)) == CTR")
	assert.Contains(t, rewrite, "clear(mem, get_loc(ask_arg(mem, term, 0), 0), 1);")
}

func TestSuperpositionPreludeGuardsStrictArgs(t *testing.T) {
	_, blocks := mustEmit(t, "(Add (Succ n) b) = (Succ (Add n b))\n(Add Zero b) = b")
	rewrite := blocks["Add"].Rewrite
	assert.Contains(t, rewrite, "get_tag(ask_arg(mem, term, 0)) == PAR")
	assert.Contains(t, rewrite, "cal_par(mem, host, term, ask_arg(mem, term, 0), 0);")
}

func TestCompileFuncRuleBodyAllocsPrecedeLinks(t *testing.T) {
	file, err := lang.ReadFile(`(Succ n) = λf λx (f (n f x))`)
	require.NoError(t, err)
	book, err := rulebook.Build(file)
	require.NoError(t, err)
	prog, err := lower.Build(book)
	require.NoError(t, err)

	e := New(book)
	body := e.CompileFuncRuleBody(prog.Funcs["Succ"].Rules[0])

	lastAlloc := strings.LastIndex(body, "alloc(mem,")
	firstLink := strings.Index(body, "link(mem,")
	require.NotEqual(t, -1, lastAlloc)
	require.NotEqual(t, -1, firstLink)
	assert.Less(t, lastAlloc, firstLink, "every allocation must be planned before any link is written")
}
