// Package compile is the top-level pipeline orchestrator: it wires the
// parser, rulebook builder, lowering, emitter, and template splicer into
// the two entry points the rest of this module exposes.
package compile

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/ATSOTECK/rulec/internal/ctemplate"
	"github.com/ATSOTECK/rulec/internal/emit"
	"github.com/ATSOTECK/rulec/internal/lang"
	"github.com/ATSOTECK/rulec/internal/lower"
	"github.com/ATSOTECK/rulec/internal/rulebook"
)

// Code runs the full pipeline over source and returns the spliced C
// program as a string. parallel selects whether the generated program
// defines PARALLEL — it never changes this compiler's own
// (single-threaded) execution.
func Code(source string, parallel bool) (string, error) {
	file, err := lang.ReadFile(source)
	if err != nil {
		return "", err
	}

	book, err := rulebook.Build(file)
	if err != nil {
		return "", err
	}

	prog, err := lower.Build(book)
	if err != nil {
		return "", err
	}

	blocks := emit.New(book).Emit(prog)

	cfg := ctemplate.Config{
		Parallel:       parallel,
		NumThreads:     runtime.NumCPU(),
		OS:             runtime.GOOS,
		ConstructorIDs: renderConstructorIDs(book),
		IDToNameData:   renderIDToName(book),
		NameCount:      uint64(len(book.IDToName)),
	}
	cfg.InitBlocks, cfg.RewriteBlocks = renderBlocks(prog, blocks)

	return ctemplate.Splice(cfg)
}

// CodeAndSave runs Code and writes the result to path with
// create-or-truncate semantics. No partial output is ever written — the
// file is only opened once Code has already succeeded.
func CodeAndSave(source, path string, parallel bool) error {
	out, err := Code(source, parallel)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(out); err != nil {
		return fmt.Errorf("compile: %w", err)
	}
	return nil
}

// renderConstructorIDs renders one "#define _NAME_ (id)" line per
// registered name, in ascending id order, for the GENERATED_CONSTRUCTOR_IDS
// slot.
func renderConstructorIDs(book *rulebook.RuleBook) string {
	var b strings.Builder
	for id := uint64(1); id <= uint64(len(book.IDToName)); id++ {
		name := book.IDToName[id]
		fmt.Fprintf(&b, "#define %s (%d)\n", ctemplate.MangleName(name), id)
	}
	return b.String()
}

// renderIDToName renders the init_id_to_name_data body for the
// GENERATED_ID_TO_NAME_DATA slot, in ascending id order.
func renderIDToName(book *rulebook.RuleBook) string {
	var b strings.Builder
	for id := uint64(1); id <= uint64(len(book.IDToName)); id++ {
		name := book.IDToName[id]
		fmt.Fprintf(&b, "  id_to_name_data[%d] = \"%s\";\n", id, name)
	}
	return b.String()
}

// renderBlocks concatenates every function's init and rewrite blocks, in
// the rulebook's deterministic function order, producing the two text
// blocks that fill GENERATED_REWRITE_RULES_STEP_0/1.
func renderBlocks(prog *lower.Program, blocks map[string]*emit.FuncBlocks) (init, rewrite string) {
	var ib, rb strings.Builder
	for _, name := range prog.Order {
		fb := blocks[name]
		ib.WriteString(fb.Init)
		rb.WriteString(fb.Rewrite)
	}
	return ib.String(), rb.String()
}
