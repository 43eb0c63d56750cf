package lang

import (
	"github.com/ATSOTECK/rulec/internal/parse"
)

// ReadFile parses a whole source buffer into a File. It is the sole
// entry point other packages use to go from text to surface AST.
func ReadFile(source string) (*File, error) {
	st := parse.State{Code: source, Index: 0}
	var rules []*Rule
	for {
		next, done := parse.Done(st)
		if done {
			st = next
			break
		}
		next, rule, err := parseRule(next)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
		st = next
	}
	return &File{Rules: rules}, nil
}

func isNameByte(c byte) bool {
	return c == '_' || c == '.' ||
		(c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

func isDigitByte(c byte) bool {
	return c >= '0' && c <= '9'
}

func contains(xs []string, x string) bool {
	for _, s := range xs {
		if s == x {
			return true
		}
	}
	return false
}

// keyword matches a literal keyword at the cursor (after Skip) that is not
// immediately followed by another name character, so "let" does not
// swallow the first three letters of "lettuce".
func keyword(word string) func(parse.State) (parse.State, bool) {
	return func(st parse.State) (parse.State, bool) {
		st2 := parse.Skip(st)
		if !parse.EqualAt(st2.Code, word, st2.Index) {
			return st, false
		}
		after := st2.Index + len(word)
		if after < len(st2.Code) && isNameByte(st2.Code[after]) {
			return st, false
		}
		return parse.State{Code: st2.Code, Index: after}, true
	}
}

func consumeKeyword(word string) func(parse.State) (parse.State, error) {
	return func(st parse.State) (parse.State, error) {
		next, matched := keyword(word)(st)
		if !matched {
			return st, parse.Expected("`"+word+"`", st)
		}
		return next, nil
	}
}

// ----------------------------------------------------------------------
// Rules
// ----------------------------------------------------------------------

func parseRule(st parse.State) (parse.State, *Rule, error) {
	st, err := parse.Consume("(")(st)
	if err != nil {
		return st, nil, err
	}
	st, head, err := parse.Name1(st)
	if err != nil {
		return st, nil, err
	}
	st, pats, err := parse.Until(parse.Text(")"), parsePattern)(st)
	if err != nil {
		return st, nil, err
	}
	st, err = parse.Consume("=")(st)
	if err != nil {
		return st, nil, err
	}

	var ctx []string
	for _, p := range pats {
		ctx = append(ctx, collectVars(p)...)
	}

	st, rhs, err := parseTerm(ctx)(st)
	if err != nil {
		return st, nil, err
	}

	return st, &Rule{LHS: &Ctr{Name: head, Args: pats}, RHS: rhs}, nil
}

// collectVars gathers every Var name appearing anywhere in a pattern
// term, including nested constructor fields (even ones that will later
// be rejected as unsupported nested patterns — the rulebook diagnoses
// that; this just needs every name that might legally be bound).
func collectVars(t Term) []string {
	switch n := t.(type) {
	case *Var:
		return []string{n.Name}
	case *Ctr:
		var out []string
		for _, a := range n.Args {
			out = append(out, collectVars(a)...)
		}
		return out
	default:
		return nil
	}
}

// ----------------------------------------------------------------------
// Patterns (LHS)
// ----------------------------------------------------------------------

// parsePattern parses one LHS argument position: a numeric literal, a
// parenthesized constructor pattern, or a bare name (always a fresh
// variable binding in pattern position — a pattern never calls a
// function, so there is no Cal/Ref ambiguity to resolve here).
func parsePattern(st parse.State) (parse.State, Term, error) {
	if next, ok := peekDigit(st); ok {
		return parseU32(next)
	}
	if next, matched := parse.Text("(")(st); matched {
		next, name, err := parse.Name1(next)
		if err != nil {
			return next, nil, err
		}
		next, fields, err := parse.Until(parse.Text(")"), parsePattern)(next)
		if err != nil {
			return next, nil, err
		}
		return next, &Ctr{Name: name, Args: fields}, nil
	}
	next, name, err := parse.Name1(st)
	if err != nil {
		return next, nil, err
	}
	return next, &Var{Name: name}, nil
}

// ----------------------------------------------------------------------
// Terms (RHS)
// ----------------------------------------------------------------------

func peekDigit(st parse.State) (parse.State, bool) {
	next := parse.Skip(st)
	if next.Index < len(next.Code) && isDigitByte(next.Code[next.Index]) {
		return next, true
	}
	return st, false
}

func parseU32(st parse.State) (parse.State, Term, error) {
	i := st.Index
	for i < len(st.Code) && isDigitByte(st.Code[i]) {
		i++
	}
	digits := st.Code[st.Index:i]
	next := parse.State{Code: st.Code, Index: i}
	var v uint64
	for _, c := range digits {
		v = v*10 + uint64(c-'0')
	}
	return next, &U32{Value: uint32(v)}, nil
}

// parseTerm returns a parser for one term, given the names currently
// bound by an enclosing Lam/Let/Dup/pattern scope.
func parseTerm(ctx []string) func(parse.State) (parse.State, Term, error) {
	return func(st parse.State) (parse.State, Term, error) {
		if next, ok := peekDigit(st); ok {
			return parseU32(next)
		}
		if next, matched := lamHead(st); matched {
			return parseLam(ctx)(next)
		}
		if next, matched := parse.Text("!")(st); matched {
			return parseDup(ctx)(next)
		}
		if next, matched := keyword("let")(st); matched {
			return parseLet(ctx)(next)
		}
		if next, matched := parse.Text("(")(st); matched {
			return parseParenTerm(ctx)(next)
		}
		next, name, err := parse.Name1(st)
		if err != nil {
			return next, nil, parse.Expected("a term", st)
		}
		if contains(ctx, name) {
			return next, &Var{Name: name}, nil
		}
		return next, &Ref{Name: name}, nil
	}
}

// lamHead matches either the ASCII "@" or the unicode "λ" lambda marker.
func lamHead(st parse.State) (parse.State, bool) {
	if next, matched := parse.Text("@")(st); matched {
		return next, true
	}
	if next, matched := parse.Text("λ")(st); matched {
		return next, true
	}
	return st, false
}

func parseLam(ctx []string) func(parse.State) (parse.State, Term, error) {
	return func(st parse.State) (parse.State, Term, error) {
		st, name, err := parse.Name1(st)
		if err != nil {
			return st, nil, err
		}
		st, body, err := parseTerm(append(append([]string{}, ctx...), name))(st)
		if err != nil {
			return st, nil, err
		}
		return st, &Lam{Name: name, Body: body}, nil
	}
}

func parseDup(ctx []string) func(parse.State) (parse.State, Term, error) {
	return func(st parse.State) (parse.State, Term, error) {
		st, name0, err := parse.Name1(st)
		if err != nil {
			return st, nil, err
		}
		st, name1, err := parse.Name1(st)
		if err != nil {
			return st, nil, err
		}
		st, err = parse.Consume("=")(st)
		if err != nil {
			return st, nil, err
		}
		st, expr, err := parseTerm(ctx)(st)
		if err != nil {
			return st, nil, err
		}
		st, err = parse.Consume(";")(st)
		if err != nil {
			return st, nil, err
		}
		st, body, err := parseTerm(append(append([]string{}, ctx...), name0, name1))(st)
		if err != nil {
			return st, nil, err
		}
		return st, &Dup{Name0: name0, Name1: name1, Expr: expr, Body: body}, nil
	}
}

func parseLet(ctx []string) func(parse.State) (parse.State, Term, error) {
	return func(st parse.State) (parse.State, Term, error) {
		st, name, err := parse.Name1(st)
		if err != nil {
			return st, nil, err
		}
		st, err = parse.Consume("=")(st)
		if err != nil {
			return st, nil, err
		}
		st, expr, err := parseTerm(ctx)(st)
		if err != nil {
			return st, nil, err
		}
		st, err = parse.Consume(";")(st)
		if err != nil {
			return st, nil, err
		}
		st, body, err := parseTerm(append(append([]string{}, ctx...), name))(st)
		if err != nil {
			return st, nil, err
		}
		return st, &Let{Name: name, Expr: expr, Body: body}, nil
	}
}

// parseParenTerm parses the body of a "(" already consumed by the caller:
// an Op2, a named Ctr/Cal/Ref/applied-Var form, or a generic binary App.
func parseParenTerm(ctx []string) func(parse.State) (parse.State, Term, error) {
	return func(st parse.State) (parse.State, Term, error) {
		if op, next, ok := peekOp2(st); ok {
			st, a, err := parseTerm(ctx)(next)
			if err != nil {
				return st, nil, err
			}
			st, b, err := parseTerm(ctx)(st)
			if err != nil {
				return st, nil, err
			}
			st, err = parse.Consume(")")(st)
			if err != nil {
				return st, nil, err
			}
			return st, &Op2{Op: op, A: a, B: b}, nil
		}

		_, headName := parse.Dry(parse.Name)(st)
		if headName != "" {
			st, _, err := parse.Name1(st)
			if err != nil {
				return st, nil, err
			}
			st, args, err := parse.Until(parse.Text(")"), parseTerm(ctx))(st)
			if err != nil {
				return st, nil, err
			}
			if contains(ctx, headName) {
				var t Term = &Var{Name: headName}
				for _, arg := range args {
					t = &App{Func: t, Argm: arg}
				}
				return st, t, nil
			}
			return st, &Ref{Name: headName, Args: args}, nil
		}

		st, fn, err := parseTerm(ctx)(st)
		if err != nil {
			return st, nil, err
		}
		st, argm, err := parseTerm(ctx)(st)
		if err != nil {
			return st, nil, err
		}
		st, err = parse.Consume(")")(st)
		if err != nil {
			return st, nil, err
		}
		return st, &App{Func: fn, Argm: argm}, nil
	}
}

func peekOp2(st parse.State) (Oper, parse.State, bool) {
	skipped := parse.Skip(st)
	for _, sym := range opSymbols {
		if parse.EqualAt(skipped.Code, sym.sym, skipped.Index) {
			return sym.op, parse.State{Code: skipped.Code, Index: skipped.Index + len(sym.sym)}, true
		}
	}
	return 0, st, false
}
