package lower

import "github.com/ATSOTECK/rulec/internal/lang"

// DynTerm is isomorphic to lang.Term but with every variable resolved to
// a binding-stack index and every constructor/function name resolved to
// its numeric id.
type DynTerm interface {
	isDynTerm()
}

// DVar indexes the RHS-construction binding stack built while emitting a
// rule's right-hand side.
type DVar struct {
	BIdx uint64
}

// DU32 is a 32-bit unsigned literal.
type DU32 struct {
	Value uint32
}

// DApp applies Func to Argm.
type DApp struct {
	Func, Argm DynTerm
}

// DLam is a lambda; Erase is true when the bound variable is never read
// in Body, so the emitter links its slot to the erasure constant instead
// of a Var node.
type DLam struct {
	Erase bool
	Body  DynTerm
}

// DCtr is a saturated constructor application, resolved to FuncID.
type DCtr struct {
	FuncID uint64
	Args   []DynTerm
}

// DCal is a function call, resolved to FuncID.
type DCal struct {
	FuncID uint64
	Args   []DynTerm
}

// DLet binds Expr's value for the duration of Body.
type DLet struct {
	Expr, Body DynTerm
}

// DOp2 is a binary numeric operation.
type DOp2 struct {
	Op   lang.Oper
	A, B DynTerm
}

// DDup linearly shares Expr's value between two bind-stack slots within
// Body. Erase0/Erase1 mark a share half as unused, so the emitter can
// link it to the erasure constant instead of Dp0/Dp1.
type DDup struct {
	Erase0, Erase1 bool
	Expr, Body     DynTerm
}

func (*DVar) isDynTerm() {}
func (*DU32) isDynTerm() {}
func (*DApp) isDynTerm() {}
func (*DLam) isDynTerm() {}
func (*DCtr) isDynTerm() {}
func (*DCal) isDynTerm() {}
func (*DLet) isDynTerm() {}
func (*DOp2) isDynTerm() {}
func (*DDup) isDynTerm() {}
