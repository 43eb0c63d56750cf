// Package emit walks a lowered program to produce the two C text blocks
// per function id that get spliced into the runtime template: the
// strict-argument init block and the pattern-match-and-rewrite block.
package emit

import (
	"fmt"
	"strings"

	"github.com/ATSOTECK/rulec/internal/lang"
	"github.com/ATSOTECK/rulec/internal/lower"
	"github.com/ATSOTECK/rulec/internal/rulebook"
)

// FuncBlocks holds the two generated text blocks for one function id.
type FuncBlocks struct {
	Init    string
	Rewrite string
}

// Emitter holds the state that must stay monotonic across an entire
// program: the fresh-temporary counter and the duplicator-label
// counter. Create one Emitter per compilation and call Emit exactly
// once; the counters are never reset, so a reused Emitter continues
// numbering where the previous program left off.
type Emitter struct {
	book  *rulebook.RuleBook
	dups  uint64
	fresh uint64
}

// New builds an Emitter bound to book, which Emit uses to look up each
// function's id for its case labels (DCtr/DCal ids inside rule bodies
// are already resolved by lowering).
func New(book *rulebook.RuleBook) *Emitter {
	return &Emitter{book: book}
}

// Emit renders every function in prog, in its deterministic order.
func (e *Emitter) Emit(prog *lower.Program) map[string]*FuncBlocks {
	out := make(map[string]*FuncBlocks, len(prog.Order))
	for _, name := range prog.Order {
		fn := prog.Funcs[name]
		id := e.book.NameToID[name]
		out[name] = &FuncBlocks{
			Init:    e.emitInit(id, fn),
			Rewrite: e.emitRewrite(id, fn),
		}
	}
	return out
}

// emitInit renders the strict-argument reduction scheduler for one
// function: it pushes the locations of every strict argument but the
// last onto the evaluation stack (high-bit tagged so the main loop
// knows to resume here), then tail-calls into the last one directly.
func (e *Emitter) emitInit(id uint64, fn *lower.DynFun) string {
	var strict []int
	for i, redex := range fn.Redex {
		if redex {
			strict = append(strict, i)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "    case %d: {\n", id)
	fmt.Fprintf(&b, "      if (get_ari(term) == %d) {\n", len(fn.Redex))
	if len(strict) == 0 {
		b.WriteString("        init = 0;\n")
	} else {
		b.WriteString("        stk_push(&stack, host);\n")
		for _, pos := range strict[:len(strict)-1] {
			fmt.Fprintf(&b, "        stk_push(&stack, get_loc(term, %d) | 0x80000000);\n", pos)
		}
		fmt.Fprintf(&b, "        host = get_loc(term, %d);\n", strict[len(strict)-1])
	}
	b.WriteString("      }\n")
	b.WriteString("      continue;\n")
	b.WriteString("    }\n")
	return b.String()
}

// emitRewrite renders the superposition prelude and rule dispatch for
// one function: a strict argument hit by a PAR node is commuted with
// the call before any rule is tried, then each rule's condition is
// tested top to bottom and the first match wins.
func (e *Emitter) emitRewrite(id uint64, fn *lower.DynFun) string {
	var b strings.Builder
	fmt.Fprintf(&b, "    case %d: {\n", id)

	for i, redex := range fn.Redex {
		if !redex {
			continue
		}
		fmt.Fprintf(&b, "      if (get_tag(ask_arg(mem, term, %d)) == PAR) {\n", i)
		fmt.Fprintf(&b, "        cal_par(mem, host, term, ask_arg(mem, term, %d), %d);\n", i, i)
		b.WriteString("        continue;\n")
		b.WriteString("      }\n")
	}

	for _, rule := range fn.Rules {
		cond := renderCond(rule.Cond)
		if cond == "" {
			cond = "1"
		}
		fmt.Fprintf(&b, "      if (%s) {\n", cond)
		b.WriteString("        inc_cost(mem);\n")

		root, body := e.materialize(rule)
		b.WriteString(body)
		fmt.Fprintf(&b, "        link(mem, host, %s);\n", root)

		b.WriteString("        clear(mem, get_loc(term, 0), get_ari(term));\n")
		for _, fr := range rule.Free {
			fmt.Fprintf(&b, "        clear(mem, get_loc(ask_arg(mem, term, %d), 0), %d);\n", fr.Pos, fr.Arity)
		}
		for _, v := range rule.Vars {
			if v.Erase {
				fmt.Fprintf(&b, "        collect(mem, %s);\n", varExpr(v))
			}
		}

		b.WriteString("        init = 1;\n")
		b.WriteString("        continue;\n")
		b.WriteString("      }\n")
	}

	b.WriteString("      break;\n")
	b.WriteString("    }\n")
	return b.String()
}

func renderCond(conds []lower.Cond) string {
	var parts []string
	for i, c := range conds {
		switch c.Kind {
		case lower.ExpectNum:
			parts = append(parts, fmt.Sprintf(
				"(get_tag(ask_arg(mem, term, %d)) == U32 && get_val(ask_arg(mem, term, %d)) == %d)", i, i, c.Num))
		case lower.ExpectCtr:
			parts = append(parts, fmt.Sprintf(
				"(get_tag(ask_arg(mem, term, %d)) == CTR && get_ext(ask_arg(mem, term, %d)) == %d)", i, i, c.CtrID))
		}
	}
	return strings.Join(parts, " && ")
}

// varExpr renders the seed expression for a DynVar: a direct
// ask_arg(term, param) for a top-level argument, or a nested
// ask_arg(ask_arg(term, param), field) for a constructor field.
func varExpr(v lower.DynVar) string {
	if v.HasField {
		return fmt.Sprintf("ask_arg(mem, ask_arg(mem, term, %d), %d)", v.Param, v.Field)
	}
	return fmt.Sprintf("ask_arg(mem, term, %d)", v.Param)
}

func cOpSymbol(op lang.Oper) string {
	switch op {
	case lang.OpAdd:
		return "+"
	case lang.OpSub:
		return "-"
	case lang.OpMul:
		return "*"
	case lang.OpDiv:
		return "/"
	case lang.OpMod:
		return "%"
	case lang.OpAnd:
		return "&"
	case lang.OpOr:
		return "|"
	case lang.OpXor:
		return "^"
	case lang.OpShl:
		return "<<"
	case lang.OpShr:
		return ">>"
	case lang.OpLtn:
		return "<"
	case lang.OpLte:
		return "<="
	case lang.OpEql:
		return "=="
	case lang.OpGte:
		return ">="
	case lang.OpGtn:
		return ">"
	case lang.OpNeq:
		return "!="
	default:
		return "?"
	}
}

func (e *Emitter) nextDupLabel() uint64 {
	e.dups++
	return e.dups
}

// materializer walks a rule's right-hand side and emits the sequence of
// allocations and links that build it, threaded with a fresh-temporary
// counter (shared with the Emitter, so names stay unique across the
// whole program), a duplicator-label counter (same), and a binding
// stack of already-emitted expressions.
type materializer struct {
	e    *Emitter
	vars []string
	b    strings.Builder
}

func (e *Emitter) materialize(rule *lower.DynRule) (root string, body string) {
	m := &materializer{e: e}
	for _, v := range rule.Vars {
		m.vars = append(m.vars, varExpr(v))
	}
	root = m.build(rule.Term)
	return root, m.b.String()
}

func (m *materializer) newTemp() string {
	m.e.fresh++
	return fmt.Sprintf("t%d", m.e.fresh)
}

func (m *materializer) build(t lower.DynTerm) string {
	switch n := t.(type) {
	case *lower.DVar:
		return m.vars[n.BIdx]

	case *lower.DU32:
		return fmt.Sprintf("U_32(%d)", n.Value)

	case *lower.DApp:
		node := m.newTemp()
		fmt.Fprintf(&m.b, "        u64 %s = alloc(mem, 2);\n", node)
		fn := m.build(n.Func)
		fmt.Fprintf(&m.b, "        link(mem, %s + 0, %s);\n", node, fn)
		argm := m.build(n.Argm)
		fmt.Fprintf(&m.b, "        link(mem, %s + 1, %s);\n", node, argm)
		return fmt.Sprintf("App(%s)", node)

	case *lower.DLam:
		node := m.newTemp()
		fmt.Fprintf(&m.b, "        u64 %s = alloc(mem, 2);\n", node)
		m.vars = append(m.vars, fmt.Sprintf("Var(%s)", node))
		body := m.build(n.Body)
		m.vars = m.vars[:len(m.vars)-1]
		if n.Erase {
			fmt.Fprintf(&m.b, "        link(mem, %s + 0, Era());\n", node)
		}
		fmt.Fprintf(&m.b, "        link(mem, %s + 1, %s);\n", node, body)
		return fmt.Sprintf("Lam(%s)", node)

	case *lower.DCtr:
		return m.buildCtrOrCal(n.FuncID, n.Args, "Ctr")

	case *lower.DCal:
		return m.buildCtrOrCal(n.FuncID, n.Args, "Cal")

	case *lower.DLet:
		exprVal := m.build(n.Expr)
		m.vars = append(m.vars, exprVal)
		body := m.build(n.Body)
		m.vars = m.vars[:len(m.vars)-1]
		return body

	case *lower.DOp2:
		return m.buildOp2(n)

	case *lower.DDup:
		return m.buildDup(n)

	default:
		panic(fmt.Sprintf("emit: unreachable DynTerm kind %T", t))
	}
}

func (m *materializer) buildCtrOrCal(funcID uint64, args []lower.DynTerm, kind string) string {
	node := m.newTemp()
	fmt.Fprintf(&m.b, "        u64 %s = alloc(mem, %d);\n", node, len(args))
	for i, a := range args {
		expr := m.build(a)
		fmt.Fprintf(&m.b, "        link(mem, %s + %d, %s);\n", node, i, expr)
	}
	return fmt.Sprintf("%s(%d, %d, %s)", kind, len(args), funcID, node)
}

// buildOp2 binds both operands to temporaries before branching, since
// the runtime conditional below reads each one twice (tag check, then
// value) and a or b may itself be an allocating expression that must
// only run once.
func (m *materializer) buildOp2(n *lower.DOp2) string {
	aVal := m.build(n.A)
	aVar := m.newTemp()
	fmt.Fprintf(&m.b, "        u64 %s = %s;\n", aVar, aVal)

	bVal := m.build(n.B)
	bVar := m.newTemp()
	fmt.Fprintf(&m.b, "        u64 %s = %s;\n", bVar, bVal)

	result := m.newTemp()
	fmt.Fprintf(&m.b, "        u64 %s;\n", result)
	fmt.Fprintf(&m.b, "        if (get_tag(%s) == U32 && get_tag(%s) == U32) {\n", aVar, bVar)
	fmt.Fprintf(&m.b, "          %s = U_32(get_val(%s) %s get_val(%s));\n", result, aVar, cOpSymbol(n.Op), bVar)
	m.b.WriteString("          inc_cost(mem);\n")
	m.b.WriteString("        } else {\n")
	opNode := m.newTemp()
	fmt.Fprintf(&m.b, "          u64 %s = alloc(mem, 2);\n", opNode)
	fmt.Fprintf(&m.b, "          link(mem, %s + 0, %s);\n", opNode, aVar)
	fmt.Fprintf(&m.b, "          link(mem, %s + 1, %s);\n", opNode, bVar)
	fmt.Fprintf(&m.b, "          %s = Op2(%s, %s);\n", result, n.Op.Name(), opNode)
	m.b.WriteString("        }\n")
	return result
}

// buildDup binds the shared expression to a temporary for the same
// reason buildOp2 does, then emits the number-inlining fast path
// alongside the general three-cell duplicator allocation.
func (m *materializer) buildDup(n *lower.DDup) string {
	exprVal := m.build(n.Expr)
	copyVar := m.newTemp()
	fmt.Fprintf(&m.b, "        u64 %s = %s;\n", copyVar, exprVal)

	dup0 := m.newTemp()
	dup1 := m.newTemp()
	fmt.Fprintf(&m.b, "        u64 %s;\n", dup0)
	fmt.Fprintf(&m.b, "        u64 %s;\n", dup1)
	fmt.Fprintf(&m.b, "        if (get_tag(%s) == U32) {\n", copyVar)
	fmt.Fprintf(&m.b, "          %s = %s;\n", dup0, copyVar)
	fmt.Fprintf(&m.b, "          %s = %s;\n", dup1, copyVar)
	m.b.WriteString("          inc_cost(mem);\n")
	m.b.WriteString("        } else {\n")
	label := m.e.nextDupLabel()
	col := fmt.Sprintf("col%d", label)
	fmt.Fprintf(&m.b, "          u64 %s = %d;\n", col, label)
	node := m.newTemp()
	fmt.Fprintf(&m.b, "          u64 %s = alloc(mem, 3);\n", node)
	if n.Erase0 {
		fmt.Fprintf(&m.b, "          link(mem, %s + 0, Era());\n", node)
	}
	if n.Erase1 {
		fmt.Fprintf(&m.b, "          link(mem, %s + 1, Era());\n", node)
	}
	fmt.Fprintf(&m.b, "          link(mem, %s + 2, %s);\n", node, copyVar)
	fmt.Fprintf(&m.b, "          %s = Dp0(%s, %s);\n", dup0, col, node)
	fmt.Fprintf(&m.b, "          %s = Dp1(%s, %s);\n", dup1, col, node)
	m.b.WriteString("        }\n")

	m.vars = append(m.vars, dup0, dup1)
	body := m.build(n.Body)
	m.vars = m.vars[:len(m.vars)-2]
	return body
}
