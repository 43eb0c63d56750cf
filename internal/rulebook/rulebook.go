// Package rulebook collates a parsed file into the compiled catalog of
// names, ids, arities, and per-function rule groups that the rest of the
// pipeline consumes.
package rulebook

import (
	"fmt"

	"github.com/ATSOTECK/rulec/internal/lang"
)

// nameIDBase is the first id assigned to any name; id 0 is reserved for
// "unknown".
const nameIDBase = 1

// FuncEntry groups every rule defined for one function head, its arity
// (established by the first rule and checked against every later one),
// and its per-argument strictness vector.
type FuncEntry struct {
	Arity uint64
	Redex []bool
	Rules []*lang.Rule
}

// RuleBook is the compiled catalog of names, ids, arities, and rules for
// one compilation unit.
type RuleBook struct {
	NameToID map[string]uint64
	IDToName map[uint64]string
	Arity    map[string]uint64

	FuncOrder []string
	FuncRules map[string]*FuncEntry
}

// Error reports a rulebook-construction failure, naming the rule (by
// function head) it was raised from.
type Error struct {
	Rule    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Message)
}

func newBook() *RuleBook {
	return &RuleBook{
		NameToID:  map[string]uint64{},
		IDToName:  map[uint64]string{},
		Arity:     map[string]uint64{},
		FuncRules: map[string]*FuncEntry{},
	}
}

// Build walks a parsed File exactly once per rule (with a name-collecting
// pre-pass over rule heads), assigning dense ids, checking arity
// consistency, resolving every Ref into a Ctr or Cal, and rejecting
// unbound RHS variables and nested constructor patterns.
//
// The pre-pass over heads is required because a rule may call a function
// defined later in the file (forward reference) or call itself
// (recursion); without first knowing every head name, resolveTerm could
// not tell a Ctr from a Cal at the point it visits the reference.
func Build(file *lang.File) (*RuleBook, error) {
	book := newBook()

	heads := map[string]bool{}
	for _, rule := range file.Rules {
		heads[rule.LHS.Name] = true
	}

	for _, rule := range file.Rules {
		name := rule.LHS.Name
		arity := uint64(len(rule.LHS.Args))

		entry, ok := book.FuncRules[name]
		if !ok {
			entry = &FuncEntry{Arity: arity}
			book.FuncRules[name] = entry
			book.FuncOrder = append(book.FuncOrder, name)
			if err := book.registerUse(name, arity); err != nil {
				return nil, &Error{Rule: name, Message: err.Error()}
			}
		} else if entry.Arity != arity {
			return nil, &Error{
				Rule:    name,
				Message: fmt.Sprintf("arity mismatch: rule has %d args, function %q expects %d", arity, name, entry.Arity),
			}
		}

		for _, pat := range rule.LHS.Args {
			if err := book.checkPattern(name, pat); err != nil {
				return nil, err
			}
		}

		bound := map[string]bool{}
		for _, pat := range rule.LHS.Args {
			collectBound(pat, bound)
		}

		resolvedRHS, err := book.resolveTerm(name, rule.RHS, heads, bound)
		if err != nil {
			return nil, err
		}

		entry.Rules = append(entry.Rules, &lang.Rule{LHS: rule.LHS, RHS: resolvedRHS})
	}

	for _, name := range book.FuncOrder {
		entry := book.FuncRules[name]
		entry.Redex = make([]bool, entry.Arity)
		for _, rule := range entry.Rules {
			for i, pat := range rule.LHS.Args {
				if _, isVar := pat.(*lang.Var); !isVar {
					entry.Redex[i] = true
				}
			}
		}
	}

	return book, nil
}

func (b *RuleBook) registerUse(name string, arity uint64) error {
	if existing, ok := b.Arity[name]; ok {
		if existing != arity {
			return fmt.Errorf("%q used with arity %d, previously %d", name, arity, existing)
		}
		return nil
	}
	id := nameIDBase + uint64(len(b.NameToID))
	b.NameToID[name] = id
	b.IDToName[id] = name
	b.Arity[name] = arity
	return nil
}

// checkPattern validates one top-level LHS argument: a variable, a
// numeric literal, or a constructor whose fields are all bare variables.
func (b *RuleBook) checkPattern(funcName string, pat lang.Term) error {
	switch n := pat.(type) {
	case *lang.Var, *lang.U32:
		return nil
	case *lang.Ctr:
		if err := b.registerUse(n.Name, uint64(len(n.Args))); err != nil {
			return &Error{Rule: funcName, Message: err.Error()}
		}
		for _, field := range n.Args {
			if _, isVar := field.(*lang.Var); !isVar {
				return &Error{
					Rule:    funcName,
					Message: fmt.Sprintf("nested constructor pattern is not supported (inside %q)", n.Name),
				}
			}
		}
		return nil
	default:
		return &Error{Rule: funcName, Message: "unsupported pattern form"}
	}
}

func collectBound(pat lang.Term, bound map[string]bool) {
	switch n := pat.(type) {
	case *lang.Var:
		bound[n.Name] = true
	case *lang.Ctr:
		for _, f := range n.Args {
			collectBound(f, bound)
		}
	}
}

func cloneSet(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m)+2)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// resolveTerm walks an RHS term, checking that every Var is bound and
// reclassifying every Ref into a Ctr (if its name is not a function
// head) or a Cal (if it is).
func (b *RuleBook) resolveTerm(funcName string, t lang.Term, heads, bound map[string]bool) (lang.Term, error) {
	switch n := t.(type) {
	case *lang.Var:
		if !bound[n.Name] {
			return nil, &Error{Rule: funcName, Message: fmt.Sprintf("unbound variable %q", n.Name)}
		}
		return n, nil

	case *lang.Ref:
		args, err := b.resolveArgs(funcName, n.Args, heads, bound)
		if err != nil {
			return nil, err
		}
		if err := b.registerUse(n.Name, uint64(len(args))); err != nil {
			return nil, &Error{Rule: funcName, Message: err.Error()}
		}
		if heads[n.Name] {
			return &lang.Cal{Name: n.Name, Args: args}, nil
		}
		return &lang.Ctr{Name: n.Name, Args: args}, nil

	case *lang.Ctr:
		args, err := b.resolveArgs(funcName, n.Args, heads, bound)
		if err != nil {
			return nil, err
		}
		if err := b.registerUse(n.Name, uint64(len(args))); err != nil {
			return nil, &Error{Rule: funcName, Message: err.Error()}
		}
		return &lang.Ctr{Name: n.Name, Args: args}, nil

	case *lang.Cal:
		args, err := b.resolveArgs(funcName, n.Args, heads, bound)
		if err != nil {
			return nil, err
		}
		if err := b.registerUse(n.Name, uint64(len(args))); err != nil {
			return nil, &Error{Rule: funcName, Message: err.Error()}
		}
		return &lang.Cal{Name: n.Name, Args: args}, nil

	case *lang.Dup:
		expr, err := b.resolveTerm(funcName, n.Expr, heads, bound)
		if err != nil {
			return nil, err
		}
		inner := cloneSet(bound)
		inner[n.Name0] = true
		inner[n.Name1] = true
		body, err := b.resolveTerm(funcName, n.Body, heads, inner)
		if err != nil {
			return nil, err
		}
		return &lang.Dup{Name0: n.Name0, Name1: n.Name1, Expr: expr, Body: body}, nil

	case *lang.Let:
		expr, err := b.resolveTerm(funcName, n.Expr, heads, bound)
		if err != nil {
			return nil, err
		}
		inner := cloneSet(bound)
		inner[n.Name] = true
		body, err := b.resolveTerm(funcName, n.Body, heads, inner)
		if err != nil {
			return nil, err
		}
		return &lang.Let{Name: n.Name, Expr: expr, Body: body}, nil

	case *lang.Lam:
		inner := cloneSet(bound)
		inner[n.Name] = true
		body, err := b.resolveTerm(funcName, n.Body, heads, inner)
		if err != nil {
			return nil, err
		}
		return &lang.Lam{Name: n.Name, Body: body}, nil

	case *lang.App:
		fn, err := b.resolveTerm(funcName, n.Func, heads, bound)
		if err != nil {
			return nil, err
		}
		argm, err := b.resolveTerm(funcName, n.Argm, heads, bound)
		if err != nil {
			return nil, err
		}
		return &lang.App{Func: fn, Argm: argm}, nil

	case *lang.U32:
		return n, nil

	case *lang.Op2:
		a, err := b.resolveTerm(funcName, n.A, heads, bound)
		if err != nil {
			return nil, err
		}
		bTerm, err := b.resolveTerm(funcName, n.B, heads, bound)
		if err != nil {
			return nil, err
		}
		return &lang.Op2{Op: n.Op, A: a, B: bTerm}, nil

	default:
		return nil, &Error{Rule: funcName, Message: "internal: unknown term kind"}
	}
}

func (b *RuleBook) resolveArgs(funcName string, args []lang.Term, heads, bound map[string]bool) ([]lang.Term, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make([]lang.Term, len(args))
	for i, a := range args {
		resolved, err := b.resolveTerm(funcName, a, heads, bound)
		if err != nil {
			return nil, err
		}
		out[i] = resolved
	}
	return out, nil
}
