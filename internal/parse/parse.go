// Package parse implements a small parser combinator kit over raw source
// text. A parser is, at heart, a function from a State to either a match
// (possibly consuming input) or a failure. Two failure modes are used by
// convention throughout this package and its callers:
//
//   - Recoverable: signalled by a false "matched" return with the state
//     unchanged. The caller should try another alternative.
//   - Irrecoverable: signalled by a non-nil error, aborting the whole
//     parse with a message pointing at a highlighted source span.
package parse

// State is a cursor into a source buffer.
type State struct {
	Code  string
	Index int
}

// EqualAt reports whether pat occurs literally in text starting at index i,
// without panicking when i or the match would run past the end of text.
func EqualAt(text, pat string, i int) bool {
	if i < 0 || i > len(text) {
		return false
	}
	end := i + len(pat)
	if end > len(text) {
		return false
	}
	return text[i:end] == pat
}

// SkipComment consumes a `//`-to-end-of-line comment if one starts at the
// cursor, and reports whether it consumed anything.
func SkipComment(st State) (State, bool) {
	if !EqualAt(st.Code, "//", st.Index) {
		return st, false
	}
	i := st.Index
	for i < len(st.Code) && st.Code[i] != '\n' {
		i++
	}
	return State{Code: st.Code, Index: i}, true
}

// SkipSpaces consumes runs of space, newline, tab, and carriage return.
func SkipSpaces(st State) State {
	i := st.Index
	for i < len(st.Code) {
		switch st.Code[i] {
		case ' ', '\n', '\t', '\r':
			i++
		default:
			return State{Code: st.Code, Index: i}
		}
	}
	return State{Code: st.Code, Index: i}
}

// Skip is the fixed point of SkipComment then SkipSpaces: it consumes
// comments and whitespace until neither advances the cursor any further.
// Applying it twice is equivalent to applying it once.
func Skip(st State) State {
	for {
		next, _ := SkipComment(st)
		next = SkipSpaces(next)
		if next.Index == st.Index {
			return next
		}
		st = next
	}
}

// Done reports, after Skip, whether the cursor sits at end of input.
func Done(st State) (State, bool) {
	st = Skip(st)
	return st, st.Index >= len(st.Code)
}

// Text reports, after Skip, whether pat is literally present at the
// cursor, consuming it on a match. It never fails: a miss leaves the
// state unchanged and reports false.
func Text(pat string) func(State) (State, bool) {
	return func(st State) (State, bool) {
		skipped := Skip(st)
		if EqualAt(skipped.Code, pat, skipped.Index) {
			return State{Code: skipped.Code, Index: skipped.Index + len(pat)}, true
		}
		return st, false
	}
}

// Consume is Text, but raises an irrecoverable error on a miss.
func Consume(pat string) func(State) (State, error) {
	return func(st State) (State, error) {
		next, matched := Text(pat)(st)
		if !matched {
			return st, Expected(quote(pat), st)
		}
		return next, nil
	}
}

func quote(s string) string {
	return "`" + s + "`"
}

func isNameByte(c byte) bool {
	return c == '_' || c == '.' ||
		(c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

// NameHere scans a maximal run of name characters ([A-Za-z0-9_.]) right at
// the cursor, without skipping leading whitespace or comments first.
func NameHere(st State) (State, string) {
	i := st.Index
	for i < len(st.Code) && isNameByte(st.Code[i]) {
		i++
	}
	return State{Code: st.Code, Index: i}, st.Code[st.Index:i]
}

// Name skips, then scans a name. The result may be empty.
func Name(st State) (State, string) {
	return NameHere(Skip(st))
}

// Name1 is Name, but irrecoverably fails when the scanned name is empty.
func Name1(st State) (State, string, error) {
	next, name := Name(st)
	if name == "" {
		return st, "", Expected("a name", st)
	}
	return next, name, nil
}

// Dry runs p for its value but discards any state change it made.
func Dry[A any](p func(State) (State, A)) func(State) (State, A) {
	return func(st State) (State, A) {
		_, v := p(st)
		return st, v
	}
}

// Guard dry-runs head; if it matched, runs body against the real state and
// reports a match, else reports no match with the state left unchanged.
func Guard[A any](head func(State) (State, bool), body func(State) (State, A, error)) func(State) (State, A, bool, error) {
	return func(st State) (State, A, bool, error) {
		_, matched := Dry(head)(st)
		if !matched {
			var zero A
			return st, zero, false, nil
		}
		next, v, err := body(st)
		return next, v, true, err
	}
}

// Grammar tries each alternative in order, returning the first one that
// matches. If none match, it irrecoverably fails with Expected(name, ...).
func Grammar[A any](name string, alts []func(State) (State, A, bool, error)) func(State) (State, A, error) {
	return func(st State) (State, A, error) {
		for _, alt := range alts {
			next, v, matched, err := alt(st)
			if err != nil {
				return next, v, err
			}
			if matched {
				return next, v, nil
			}
		}
		var zero A
		return st, zero, Expected(name, st)
	}
}

// Until repeatedly runs elem until delim matches, returning the sequence
// of values produced by elem.
func Until[A any](delim func(State) (State, bool), elem func(State) (State, A, error)) func(State) (State, []A, error) {
	return func(st State) (State, []A, error) {
		var elems []A
		for {
			if next, matched := delim(st); matched {
				return next, elems, nil
			}
			next, v, err := elem(st)
			if err != nil {
				return next, nil, err
			}
			elems = append(elems, v)
			st = next
		}
	}
}

// List parses open, then alternates testing close and reading elem (with
// sep consumed when present, so it is optional between elements),
// folding the resulting sequence with fold. Each loop iteration tests
// close, then attempts sep, then tests close again, then reads elem — so
// a trailing separator before close is tolerated.
func List[A, R any](open, sep, closeTok string, elem func(State) (State, A, error), fold func([]A) R) func(State) (State, R, error) {
	return func(st State) (State, R, error) {
		var zero R
		st, err := Consume(open)(st)
		if err != nil {
			return st, zero, err
		}
		var elems []A
		for {
			if next, matched := Text(closeTok)(st); matched {
				return next, fold(elems), nil
			}
			if next, matched := Text(sep)(st); matched {
				st = next
			}
			// Re-test close here so a separator trailing the last element
			// (e.g. "[a, b,]") doesn't force a spurious extra elem read.
			if next, matched := Text(closeTok)(st); matched {
				return next, fold(elems), nil
			}
			next, v, err := elem(st)
			if err != nil {
				return next, zero, err
			}
			elems = append(elems, v)
			st = next
		}
	}
}
