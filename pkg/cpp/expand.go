package cpp

// Expander walks a token line and substitutes macro invocations,
// re-scanning the result until no further substitution is possible.
// A macro name already being expanded on the current call stack is
// left untouched (hideset), which is what stops a self-referential
// macro like "#define X X" from recursing forever.
type Expander struct {
	table *MacroTable
}

// NewExpander builds an Expander over table.
func NewExpander(table *MacroTable) *Expander {
	return &Expander{table: table}
}

// Expand substitutes every macro invocation in toks, recursively
// expanding the result of each substitution.
func (e *Expander) Expand(toks []Token) []Token {
	return e.expand(toks, map[string]bool{})
}

func (e *Expander) expand(toks []Token, hideset map[string]bool) []Token {
	var out []Token
	for i := 0; i < len(toks); {
		tok := toks[i]
		if tok.Kind != TIdent || hideset[tok.Text] {
			out = append(out, tok)
			i++
			continue
		}
		m, ok := e.table.Lookup(tok.Text)
		if !ok {
			out = append(out, tok)
			i++
			continue
		}
		if !m.IsFunction {
			out = append(out, e.expand(m.Body, union(hideset, m.Name))...)
			i++
			continue
		}
		// Function-like macro: only a call (name immediately followed,
		// modulo spaces, by "(") is an invocation; otherwise the name
		// passes through unexpanded, matching how a bare function-like
		// macro name behaves in ordinary C.
		lookahead := toks[i+1:]
		afterSpace := skipSpace(lookahead)
		if len(afterSpace) == 0 || afterSpace[0].Kind != TPunct || afterSpace[0].Text != "(" {
			out = append(out, tok)
			i++
			continue
		}
		args, rest, ok := splitArgs(afterSpace[1:])
		if !ok {
			out = append(out, tok)
			i++
			continue
		}
		body := e.substitute(m, args, hideset)
		out = append(out, body...)
		i = len(toks) - len(rest)
	}
	return out
}

// splitArgs consumes toks up to and including the ")" that closes the
// call opened by the "(" the caller already stripped, splitting the
// interior on top-level commas. It returns the remaining tokens after
// the closing paren.
func splitArgs(toks []Token) (args [][]Token, rest []Token, ok bool) {
	depth := 0
	var cur []Token
	for i, t := range toks {
		if t.Kind == TPunct && t.Text == "(" {
			depth++
		}
		if t.Kind == TPunct && t.Text == ")" {
			if depth == 0 {
				args = append(args, TrimSpace(cur))
				return args, toks[i+1:], true
			}
			depth--
		}
		if t.Kind == TPunct && t.Text == "," && depth == 0 {
			args = append(args, TrimSpace(cur))
			cur = nil
			continue
		}
		cur = append(cur, t)
	}
	return nil, nil, false
}

// substitute builds the macro's replacement body for a call with the
// given actual arguments, pre-expanding each argument before it is
// pasted into the body (matching ordinary C macro argument handling;
// this package does not implement the "#" stringify or "##" paste
// operators, so an argument is always expanded before substitution).
func (e *Expander) substitute(m *Macro, args [][]Token, hideset map[string]bool) []Token {
	bound := map[string][]Token{}
	for i, p := range m.Params {
		if i < len(args) {
			bound[p] = e.expand(args[i], hideset)
		} else {
			bound[p] = nil
		}
	}
	var out []Token
	for _, t := range m.Body {
		if t.Kind == TIdent {
			if v, ok := bound[t.Text]; ok {
				out = append(out, v...)
				continue
			}
		}
		out = append(out, t)
	}
	return e.expand(out, union(hideset, m.Name))
}

func union(set map[string]bool, name string) map[string]bool {
	out := make(map[string]bool, len(set)+1)
	for k := range set {
		out[k] = true
	}
	out[name] = true
	return out
}
