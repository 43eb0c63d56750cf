// Package rulec provides a public API for embedding the rulec compiler
// in Go applications. See doc.go for the full package documentation.
package rulec

import "github.com/ATSOTECK/rulec/internal/compile"

// Compile runs the full pipeline over source and returns the generated
// C program as a string, useful when the caller wants the text without
// touching the filesystem.
func Compile(source string, parallel bool) (string, error) {
	return compile.Code(source, parallel)
}

// CompileToFile compiles source and writes the result to path,
// creating it if necessary and truncating any existing contents. No
// file is written if compilation fails.
func CompileToFile(source, path string, parallel bool) error {
	return compile.CodeAndSave(source, path, parallel)
}
