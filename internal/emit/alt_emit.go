package emit

import (
	"fmt"
	"strings"

	"github.com/ATSOTECK/rulec/internal/lower"
)

// CompileFuncRuleBody is the unused alternative RHS materializer: it
// pre-plans every node allocation before writing any link, at the cost
// of always taking the general allocation path for Op2 and Dup (no
// numeric inlining). Nothing in the default pipeline calls it; it is
// kept because a faster emitter without the inlining branches is a
// plausible future default, not because any current code path needs it.
func (e *Emitter) CompileFuncRuleBody(rule *lower.DynRule) string {
	m := &altMaterializer{e: e}
	for _, v := range rule.Vars {
		m.vars = append(m.vars, varExpr(v))
	}
	root := m.build(rule.Term)

	var out strings.Builder
	out.WriteString(m.allocs.String())
	out.WriteString(m.links.String())
	fmt.Fprintf(&out, "        link(mem, host, %s);\n", root)
	return out.String()
}

type altMaterializer struct {
	e      *Emitter
	vars   []string
	allocs strings.Builder
	links  strings.Builder
}

func (m *altMaterializer) newTemp() string {
	m.e.fresh++
	return fmt.Sprintf("u%d", m.e.fresh)
}

func (m *altMaterializer) build(t lower.DynTerm) string {
	switch n := t.(type) {
	case *lower.DVar:
		return m.vars[n.BIdx]

	case *lower.DU32:
		return fmt.Sprintf("U_32(%d)", n.Value)

	case *lower.DApp:
		node := m.newTemp()
		fmt.Fprintf(&m.allocs, "        u64 %s = alloc(mem, 2);\n", node)
		fn := m.build(n.Func)
		fmt.Fprintf(&m.links, "        link(mem, %s + 0, %s);\n", node, fn)
		argm := m.build(n.Argm)
		fmt.Fprintf(&m.links, "        link(mem, %s + 1, %s);\n", node, argm)
		return fmt.Sprintf("App(%s)", node)

	case *lower.DLam:
		node := m.newTemp()
		fmt.Fprintf(&m.allocs, "        u64 %s = alloc(mem, 2);\n", node)
		m.vars = append(m.vars, fmt.Sprintf("Var(%s)", node))
		body := m.build(n.Body)
		m.vars = m.vars[:len(m.vars)-1]
		if n.Erase {
			fmt.Fprintf(&m.links, "        link(mem, %s + 0, Era());\n", node)
		}
		fmt.Fprintf(&m.links, "        link(mem, %s + 1, %s);\n", node, body)
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
		node := m.newTemp()
		fmt.Fprintf(&m.allocs, "        u64 %s = alloc(mem, 2);\n", node)
		a := m.build(n.A)
		fmt.Fprintf(&m.links, "        link(mem, %s + 0, %s);\n", node, a)
		b := m.build(n.B)
		fmt.Fprintf(&m.links, "        link(mem, %s + 1, %s);\n", node, b)
		return fmt.Sprintf("Op2(%s, %s)", n.Op.Name(), node)

	case *lower.DDup:
		label := m.e.nextDupLabel()
		col := fmt.Sprintf("col%d", label)
		fmt.Fprintf(&m.allocs, "        u64 %s = %d;\n", col, label)
		node := m.newTemp()
		fmt.Fprintf(&m.allocs, "        u64 %s = alloc(mem, 3);\n", node)
		exprVal := m.build(n.Expr)
		if n.Erase0 {
			fmt.Fprintf(&m.links, "        link(mem, %s + 0, Era());\n", node)
		}
		if n.Erase1 {
			fmt.Fprintf(&m.links, "        link(mem, %s + 1, Era());\n", node)
		}
		fmt.Fprintf(&m.links, "        link(mem, %s + 2, %s);\n", node, exprVal)
		dup0 := fmt.Sprintf("Dp0(%s, %s)", col, node)
		dup1 := fmt.Sprintf("Dp1(%s, %s)", col, node)
		m.vars = append(m.vars, dup0, dup1)
		body := m.build(n.Body)
		m.vars = m.vars[:len(m.vars)-2]
		return body

	default:
		panic(fmt.Sprintf("emit: unreachable DynTerm kind %T", t))
	}
}

func (m *altMaterializer) buildCtrOrCal(funcID uint64, args []lower.DynTerm, kind string) string {
	node := m.newTemp()
	fmt.Fprintf(&m.allocs, "        u64 %s = alloc(mem, %d);\n", node, len(args))
	for i, a := range args {
		expr := m.build(a)
		fmt.Fprintf(&m.links, "        link(mem, %s + %d, %s);\n", node, i, expr)
	}
	return fmt.Sprintf("%s(%d, %d, %s)", kind, len(args), funcID, node)
}
