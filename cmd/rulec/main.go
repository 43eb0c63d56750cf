// Command rulec compiles a rule-source file into a self-contained C
// program embedding a graph-rewriting runtime specialized to those
// rules. It never invokes a C compiler itself.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/term"

	"github.com/ATSOTECK/rulec/internal/compile"
)

var ansiPattern = regexp.MustCompile("\x1b\\[[0-9;]*m")

func main() {
	parallel := flag.Bool("parallel", false, "emit a C program that defines PARALLEL, enabling the runtime's multithreaded reduction path")
	out := flag.String("o", "", "output path (defaults to the input file with its extension replaced by .c)")
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: rulec [-parallel] [-o output.c] <rules-file>")
		os.Exit(1)
	}

	inPath := args[0]
	source, err := os.ReadFile(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	outPath := *out
	if outPath == "" {
		outPath = defaultOutputPath(inPath)
	}

	if err := compile.CodeAndSave(string(source), outPath, *parallel); err != nil {
		fmt.Fprintln(os.Stderr, renderError(err))
		os.Exit(1)
	}

	fmt.Printf("wrote %s\n", outPath)
}

// defaultOutputPath replaces inPath's extension with .c, or appends .c
// if it has none.
func defaultOutputPath(inPath string) string {
	ext := filepath.Ext(inPath)
	if ext == "" {
		return inPath + ".c"
	}
	return strings.TrimSuffix(inPath, ext) + ".c"
}

// renderError strips ANSI highlighting from a compiler error's message
// when stderr is not a terminal (redirected to a file, piped, or
// captured by CI), so the highlighted-span markup parse.SyntaxError
// embeds doesn't leak raw escape codes into logs.
func renderError(err error) string {
	msg := err.Error()
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return msg
	}
	return ansiPattern.ReplaceAllString(msg, "")
}
