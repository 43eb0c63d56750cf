package rulebook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ATSOTECK/rulec/internal/lang"
)

func mustParse(t *testing.T, src string) *lang.File {
	t.Helper()
	file, err := lang.ReadFile(src)
	require.NoError(t, err)
	return file
}

func TestBuildAssignsDenseIDs(t *testing.T) {
	file := mustParse(t, "(Zero) = Z\n(Succ n) = n")
	book, err := Build(file)
	require.NoError(t, err)

	idZ, ok := book.NameToID["Zero"]
	require.True(t, ok)
	idSucc, ok := book.NameToID["Succ"]
	require.True(t, ok)
	assert.NotEqual(t, idZ, idSucc)
	assert.NotZero(t, idZ)
	assert.NotZero(t, idSucc)
	assert.Equal(t, "Zero", book.IDToName[idZ])
	assert.Equal(t, "Succ", book.IDToName[idSucc])
}

func TestBuildResolvesCalVsCtr(t *testing.T) {
	file := mustParse(t, "(Add (Succ n) b) = (Succ (Add n b))\n(Add Zero b) = b")
	book, err := Build(file)
	require.NoError(t, err)

	addEntry := book.FuncRules["Add"]
	require.NotNil(t, addEntry)
	require.Len(t, addEntry.Rules, 2)

	rhs, ok := addEntry.Rules[0].RHS.(*lang.Ctr)
	require.True(t, ok)
	assert.Equal(t, "Succ", rhs.Name)

	inner, ok := rhs.Args[0].(*lang.Cal)
	require.True(t, ok)
	assert.Equal(t, "Add", inner.Name)
}

func TestBuildComputesRedexVector(t *testing.T) {
	file := mustParse(t, "(Add (Succ n) b) = (Succ (Add n b))\n(Add Zero b) = b")
	book, err := Build(file)
	require.NoError(t, err)

	redex := book.FuncRules["Add"].Redex
	require.Len(t, redex, 2)
	assert.True(t, redex[0], "first argument is matched against the Succ constructor (bare Zero is a variable pattern)")
	assert.False(t, redex[1], "second argument is always a bare variable")
}

func TestBuildRejectsArityMismatch(t *testing.T) {
	file := mustParse(t, "(F x) = x\n(F x y) = x")
	_, err := Build(file)
	require.Error(t, err)
	var bookErr *Error
	require.ErrorAs(t, err, &bookErr)
	assert.Contains(t, bookErr.Message, "arity mismatch")
}

func TestBuildRejectsUnboundVariable(t *testing.T) {
	file := mustParse(t, "(F x) = y")
	_, err := Build(file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unbound variable")
}

func TestBuildRejectsNestedConstructorPattern(t *testing.T) {
	file := mustParse(t, "(F (Cons (Cons a b) c)) = a")
	_, err := Build(file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nested constructor pattern")
}

func TestBuildRejectsConstructorArityDisagreement(t *testing.T) {
	file := mustParse(t, "(F (Pair a b)) = a\n(G x) = (Pair x)")
	_, err := Build(file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "used with arity")
}

func TestBuildAllowsForwardAndMutualReference(t *testing.T) {
	file := mustParse(t, "(Even n) = (IsZero n)\n(IsZero Zero) = True\n(IsZero (Succ n)) = (Even n)")
	book, err := Build(file)
	require.NoError(t, err)

	evenEntry := book.FuncRules["Even"]
	require.NotNil(t, evenEntry)
	call, ok := evenEntry.Rules[0].RHS.(*lang.Cal)
	require.True(t, ok)
	assert.Equal(t, "IsZero", call.Name)

	isZeroEntry := book.FuncRules["IsZero"]
	require.Len(t, isZeroEntry.Rules, 2)
	backCall, ok := isZeroEntry.Rules[1].RHS.(*lang.Cal)
	require.True(t, ok)
	assert.Equal(t, "Even", backCall.Name)
}

func TestBuildPreservesFuncOrder(t *testing.T) {
	file := mustParse(t, "(C x) = x\n(A x) = x\n(B x) = x\n(A y) = y")
	book, err := Build(file)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "B"}, book.FuncOrder)
}
