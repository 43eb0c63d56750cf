/*
Package rulec provides a public API for embedding the rulec compiler in
Go applications.

rulec translates a rule-source program — a small lambda calculus with
constructors, linear duplication, and numeric primitives — into a
self-contained C program. That C program, once built with any C
toolchain, embeds a graph-rewriting runtime specialized to the rules it
was compiled from. rulec itself never invokes a C compiler and never
executes the rules it compiles; its only job is producing the C text.

# Quick Start

Compile rule source to a C string:

	out, err := rulec.Compile(`(Double x) = (+ x x)`, false)
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Println(out) // a complete .c file

Compile and write straight to disk:

	err := rulec.CompileToFile(source, "out.c", false)
	if err != nil {
	    log.Fatal(err)
	}

# Parallel Output

The second argument to both entry points selects whether the generated
C defines PARALLEL, enabling the embedded runtime's multithreaded
reduction path. It has no effect on rulec's own (single-threaded)
compilation.

# Error Handling

Compile and CompileToFile return one of three structured error types,
each usable with errors.As:

	parse.SyntaxError    — a malformed rule source, with a highlighted span
	rulebook.Error        — arity mismatch, unbound variable, unsupported pattern
	lower.Error            — an internal lowering failure for one function

Any other error is an I/O failure (CompileToFile only) or an
unsupported host OS, surfaced unchanged.
*/
package rulec
