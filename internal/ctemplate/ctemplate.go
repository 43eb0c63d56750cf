// Package ctemplate holds the fixed C runtime template the emitter's
// generated text is spliced into, along with its platform dependency
// fragments. The template and its dependencies are embedded at build
// time via go:embed; nothing here is read from disk at runtime.
package ctemplate

import (
	"embed"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

//go:embed assets/runtime.c assets/runtime_deps
var assets embed.FS

const templatePath = "assets/runtime.c"

// slotPattern matches the two replacement-token forms the template
// uses: a standalone "/*! TAG !*/", or a bracketed block
// "/*! TAG */ ... /* TAG !*/" whose open and close tag names must
// match. Capture groups: 1 = standalone tag; 2 = whole block match;
// 3 = block open tag; 4 = block close tag.
var slotPattern = regexp.MustCompile(`(?s)(?:/\*! *(\w+?) *!\*/)|(/\*! *(\w+?) *\*/.+?/\* *(\w+?) *!\*/)`)

// Config carries every value the splicer needs to resolve the
// template's named slots for one compilation.
type Config struct {
	Parallel bool
	// NumThreads is the detected CPU count, rendered as a decimal.
	NumThreads int
	// OS selects which dependency epilogue to concatenate: "linux" and
	// "darwin" both select the posix fragment, "windows" selects the
	// windows fragment; any other value is rejected.
	OS string

	ConstructorIDs string // GENERATED_CONSTRUCTOR_IDS
	InitBlocks     string // GENERATED_REWRITE_RULES_STEP_0
	RewriteBlocks  string // GENERATED_REWRITE_RULES_STEP_1
	NameCount      uint64 // GENERATED_NAME_COUNT
	IDToNameData   string // GENERATED_ID_TO_NAME_DATA
}

// MangleName converts a rule-source name into a valid C identifier:
// "_" is doubled, "." becomes "_", the result is upper-cased and wrapped
// in leading/trailing underscores. This mirrors the original compiler's
// compile_name exactly, including its acknowledged non-injectivity (two
// distinct source names can collide after mangling); see DESIGN.md.
func MangleName(name string) string {
	name = strings.ReplaceAll(name, "_", "__")
	name = strings.ReplaceAll(name, ".", "_")
	return "_" + strings.ToUpper(name) + "_"
}

// Splice loads the embedded runtime template and replaces every named
// slot with cfg's corresponding generated text, in a single substitution
// pass. An unrecognized tag, or a block whose open and close tag names
// disagree, is a programmer error (the template and the slot set below
// are both owned by this package) and panics rather than returning an
// error.
func Splice(cfg Config) (string, error) {
	raw, err := assets.ReadFile(templatePath)
	if err != nil {
		return "", fmt.Errorf("ctemplate: read runtime template: %w", err)
	}
	tmpl := string(raw)

	depBasic, err := dependencyFragment("basic", cfg.OS)
	if err != nil {
		return "", err
	}
	depAtomic, err := dependencyFragment("atomic", cfg.OS)
	if err != nil {
		return "", err
	}
	depThread, err := dependencyFragment("thread", cfg.OS)
	if err != nil {
		return "", err
	}
	depTime, err := dependencyFragment("time", cfg.OS)
	if err != nil {
		return "", err
	}

	parallelFlag := ""
	if cfg.Parallel {
		parallelFlag = "#define PARALLEL"
	}

	slots := map[string]string{
		"GENERATED_PARALLEL_FLAG":        parallelFlag,
		"GENERATED_NUM_THREADS":          strconv.Itoa(cfg.NumThreads),
		"GENERATED_CONSTRUCTOR_IDS":      cfg.ConstructorIDs,
		"GENERATED_REWRITE_RULES_STEP_0": cfg.InitBlocks,
		"GENERATED_REWRITE_RULES_STEP_1": cfg.RewriteBlocks,
		"GENERATED_NAME_COUNT":           strconv.FormatUint(cfg.NameCount, 10),
		"GENERATED_ID_TO_NAME_DATA":      cfg.IDToNameData,
		"GENERATED_DEPENDENCY_BASIC":     depBasic,
		"GENERATED_DEPENDENCY_ATOMIC":    depAtomic,
		"GENERATED_DEPENDENCY_THREAD":    depThread,
		"GENERATED_DEPENDENCY_TIME":      depTime,
	}

	matches := slotPattern.FindAllStringSubmatchIndex(tmpl, -1)
	var out strings.Builder
	last := 0
	for _, m := range matches {
		out.WriteString(tmpl[last:m[0]])
		tag := slotTag(tmpl, m)
		content, ok := slots[tag]
		if !ok {
			panic(fmt.Sprintf("ctemplate: unknown replacement slot %q", tag))
		}
		out.WriteString(content)
		last = m[1]
	}
	out.WriteString(tmpl[last:])
	return out.String(), nil
}

// slotTag extracts the tag name a FindAllStringSubmatchIndex match
// represents, asserting that a block form's open and close names agree.
func slotTag(tmpl string, m []int) string {
	if m[2] >= 0 {
		return tmpl[m[2]:m[3]]
	}
	open := tmpl[m[6]:m[7]]
	closeTag := tmpl[m[8]:m[9]]
	if open != closeTag {
		panic(fmt.Sprintf("ctemplate: mismatched slot tags %q / %q", open, closeTag))
	}
	return open
}

// dependencyFragment loads one platform dependency's universal body
// and, except for "basic" (which is OS-agnostic), concatenates the
// OS-specific epilogue selected by goos.
func dependencyFragment(kind, goos string) (string, error) {
	body, err := assets.ReadFile(fmt.Sprintf("assets/runtime_deps/%s/%s.inl.c", kind, kind))
	if err != nil {
		return "", fmt.Errorf("ctemplate: read %s dependency: %w", kind, err)
	}
	if kind == "basic" {
		return string(body), nil
	}

	var suffix string
	switch goos {
	case "linux", "darwin":
		suffix = "posix"
	case "windows":
		suffix = "windows"
	default:
		return "", fmt.Errorf("ctemplate: unsupported host OS %q", goos)
	}

	epilogue, err := assets.ReadFile(fmt.Sprintf("assets/runtime_deps/%s/epilogue-%s.inl.c", kind, suffix))
	if err != nil {
		return "", fmt.Errorf("ctemplate: read %s epilogue: %w", kind, err)
	}
	return string(body) + "\n" + string(epilogue), nil
}
