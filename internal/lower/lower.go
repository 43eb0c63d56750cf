// Package lower converts a rulebook into the dynamic, id-resolved,
// index-referenced form (DynFun/DynRule/DynTerm) the emitter walks to
// produce C text.
package lower

import (
	"fmt"

	"github.com/ATSOTECK/rulec/internal/lang"
	"github.com/ATSOTECK/rulec/internal/rulebook"
)

// CondKind discriminates the three shapes a lowered LHS argument test
// can take.
type CondKind int

const (
	AnyVar CondKind = iota
	ExpectNum
	ExpectCtr
)

// Cond is one argument-position test in a DynRule's match condition.
type Cond struct {
	Kind  CondKind
	Num   uint32
	CtrID uint64
}

// DynVar locates one RHS-visible variable within the argument tuple: a
// top-level argument (HasField false) or a field of a constructor
// argument (HasField true, at index Field). Erase marks it unused in the
// RHS, so the emitter calls collect on its slot instead of binding it.
type DynVar struct {
	Param    uint64
	Field    uint64
	HasField bool
	Erase    bool
}

// FreeSlot names a matched constructor argument (by position and arity)
// whose node must be cleared after a rule fires.
type FreeSlot struct {
	Pos   uint64
	Arity uint64
}

// DynRule is one lowered rewrite rule.
type DynRule struct {
	Cond []Cond
	Vars []DynVar
	Free []FreeSlot
	Term DynTerm
}

// DynFun is a lowered function: its per-argument strictness and its
// rules, in source order.
type DynFun struct {
	Redex []bool
	Rules []*DynRule
}

// Program is the whole lowered compilation unit, in the rulebook's
// deterministic function order.
type Program struct {
	Order []string
	Funcs map[string]*DynFun
}

// Error reports a lowering failure, naming the function it was raised
// from.
type Error struct {
	Func    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Func, e.Message)
}

// Build lowers every function in book.
func Build(book *rulebook.RuleBook) (*Program, error) {
	prog := &Program{Order: book.FuncOrder, Funcs: map[string]*DynFun{}}

	for _, name := range book.FuncOrder {
		entry := book.FuncRules[name]
		dynFun := &DynFun{Redex: entry.Redex}

		for _, rule := range entry.Rules {
			dynRule, err := lowerRule(book, rule)
			if err != nil {
				return nil, &Error{Func: name, Message: err.Error()}
			}
			dynFun.Rules = append(dynFun.Rules, dynRule)
		}

		prog.Funcs[name] = dynFun
	}

	return prog, nil
}

func lowerRule(book *rulebook.RuleBook, rule *lang.Rule) (*DynRule, error) {
	var cond []Cond
	var vars []DynVar
	var free []FreeSlot
	var env []string

	for i, pat := range rule.LHS.Args {
		pos := uint64(i)
		switch p := pat.(type) {
		case *lang.Var:
			cond = append(cond, Cond{Kind: AnyVar})
			vars = append(vars, DynVar{Param: pos, Erase: !usesVar(rule.RHS, p.Name)})
			env = append(env, p.Name)

		case *lang.U32:
			cond = append(cond, Cond{Kind: ExpectNum, Num: p.Value})

		case *lang.Ctr:
			cond = append(cond, Cond{Kind: ExpectCtr, CtrID: book.NameToID[p.Name]})
			free = append(free, FreeSlot{Pos: pos, Arity: uint64(len(p.Args))})
			for j, field := range p.Args {
				fv, ok := field.(*lang.Var)
				if !ok {
					return nil, fmt.Errorf("nested constructor pattern is not supported (inside %q)", p.Name)
				}
				vars = append(vars, DynVar{Param: pos, Field: uint64(j), HasField: true, Erase: !usesVar(rule.RHS, fv.Name)})
				env = append(env, fv.Name)
			}

		default:
			return nil, fmt.Errorf("unsupported pattern form at argument %d", i)
		}
	}

	term, err := lowerTerm(book, rule.RHS, env)
	if err != nil {
		return nil, err
	}

	return &DynRule{Cond: cond, Vars: vars, Free: free, Term: term}, nil
}

func lookupVar(env []string, name string) (uint64, bool) {
	for i := len(env) - 1; i >= 0; i-- {
		if env[i] == name {
			return uint64(i), true
		}
	}
	return 0, false
}

func pushEnv(env []string, names ...string) []string {
	next := make([]string, len(env), len(env)+len(names))
	copy(next, env)
	return append(next, names...)
}

func lowerTerm(book *rulebook.RuleBook, t lang.Term, env []string) (DynTerm, error) {
	switch n := t.(type) {
	case *lang.Var:
		idx, ok := lookupVar(env, n.Name)
		if !ok {
			return nil, fmt.Errorf("internal: variable %q escaped rulebook binding checks unresolved", n.Name)
		}
		return &DVar{BIdx: idx}, nil

	case *lang.U32:
		return &DU32{Value: n.Value}, nil

	case *lang.App:
		fn, err := lowerTerm(book, n.Func, env)
		if err != nil {
			return nil, err
		}
		argm, err := lowerTerm(book, n.Argm, env)
		if err != nil {
			return nil, err
		}
		return &DApp{Func: fn, Argm: argm}, nil

	case *lang.Lam:
		erase := !usesVar(n.Body, n.Name)
		body, err := lowerTerm(book, n.Body, pushEnv(env, n.Name))
		if err != nil {
			return nil, err
		}
		return &DLam{Erase: erase, Body: body}, nil

	case *lang.Ctr:
		args, err := lowerArgs(book, n.Args, env)
		if err != nil {
			return nil, err
		}
		return &DCtr{FuncID: book.NameToID[n.Name], Args: args}, nil

	case *lang.Cal:
		args, err := lowerArgs(book, n.Args, env)
		if err != nil {
			return nil, err
		}
		return &DCal{FuncID: book.NameToID[n.Name], Args: args}, nil

	case *lang.Let:
		expr, err := lowerTerm(book, n.Expr, env)
		if err != nil {
			return nil, err
		}
		body, err := lowerTerm(book, n.Body, pushEnv(env, n.Name))
		if err != nil {
			return nil, err
		}
		return &DLet{Expr: expr, Body: body}, nil

	case *lang.Op2:
		a, err := lowerTerm(book, n.A, env)
		if err != nil {
			return nil, err
		}
		b, err := lowerTerm(book, n.B, env)
		if err != nil {
			return nil, err
		}
		return &DOp2{Op: n.Op, A: a, B: b}, nil

	case *lang.Dup:
		expr, err := lowerTerm(book, n.Expr, env)
		if err != nil {
			return nil, err
		}
		erase0 := !usesVar(n.Body, n.Name0)
		erase1 := !usesVar(n.Body, n.Name1)
		body, err := lowerTerm(book, n.Body, pushEnv(env, n.Name0, n.Name1))
		if err != nil {
			return nil, err
		}
		return &DDup{Erase0: erase0, Erase1: erase1, Expr: expr, Body: body}, nil

	default:
		return nil, fmt.Errorf("internal: unknown term kind in lowering")
	}
}

func lowerArgs(book *rulebook.RuleBook, args []lang.Term, env []string) ([]DynTerm, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make([]DynTerm, len(args))
	for i, a := range args {
		d, err := lowerTerm(book, a, env)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

// usesVar reports whether name occurs free anywhere in t, stopping at
// any inner binder that rebinds the same name.
func usesVar(t lang.Term, name string) bool {
	switch n := t.(type) {
	case *lang.Var:
		return n.Name == name
	case *lang.U32:
		return false
	case *lang.App:
		return usesVar(n.Func, name) || usesVar(n.Argm, name)
	case *lang.Ctr:
		return usesVarAny(n.Args, name)
	case *lang.Cal:
		return usesVarAny(n.Args, name)
	case *lang.Op2:
		return usesVar(n.A, name) || usesVar(n.B, name)
	case *lang.Lam:
		if n.Name == name {
			return false
		}
		return usesVar(n.Body, name)
	case *lang.Let:
		if usesVar(n.Expr, name) {
			return true
		}
		if n.Name == name {
			return false
		}
		return usesVar(n.Body, name)
	case *lang.Dup:
		if usesVar(n.Expr, name) {
			return true
		}
		if n.Name0 == name || n.Name1 == name {
			return false
		}
		return usesVar(n.Body, name)
	case *lang.Ref:
		return usesVarAny(n.Args, name)
	default:
		return false
	}
}

func usesVarAny(args []lang.Term, name string) bool {
	for _, a := range args {
		if usesVar(a, name) {
			return true
		}
	}
	return false
}
