package cpp

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PreprocessorOptions configures a Preprocessor.
type PreprocessorOptions struct {
	Defines      map[string]string // -D name[=value]
	Undefines    []string          // -U name
	IncludePaths []string          // -I directories, both forms
	SystemPaths  []string          // -isystem directories, both forms
	LineMarkers  bool              // emit a leading "# 1 \"file\"" marker
}

// Preprocessor drives #include resolution, #define/#undef tracking,
// #ifdef/#ifndef/#else/#endif, and macro expansion over a source file.
// It intentionally does not implement the constant-expression #if/
// #elif forms, token pasting ("##"), stringification ("#param"), or
// variadic macros — none of those are part of the language this
// preprocessor feeds into.
type Preprocessor struct {
	opts     PreprocessorOptions
	macros   *MacroTable
	includes *IncludeResolver
}

// NewPreprocessor builds a Preprocessor, applying any -D/-U defines
// from opts before the source file itself is read.
func NewPreprocessor(opts PreprocessorOptions) *Preprocessor {
	macros := NewMacroTable()
	_ = macros.ApplyCmdlineDefines(opts.Defines, opts.Undefines)
	return &Preprocessor{
		opts:     opts,
		macros:   macros,
		includes: NewIncludeResolver(opts.IncludePaths, opts.SystemPaths),
	}
}

// PreprocessFile reads filename and returns its fully preprocessed
// text: comments stripped, includes inlined, macros expanded, and
// #ifdef/#ifndef blocks resolved.
func (p *Preprocessor) PreprocessFile(filename string) (string, error) {
	if err := p.includes.Push(filename); err != nil {
		return "", err
	}
	defer p.includes.Pop()

	data, err := os.ReadFile(filename)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", filename, err)
	}
	out, err := p.preprocessContent(string(data), filepath.Dir(filename))
	if err != nil {
		return "", fmt.Errorf("%s: %w", filename, err)
	}
	if p.opts.LineMarkers {
		out = fmt.Sprintf("# 1 %q\n", filename) + out
	}
	return out, nil
}

// preprocessContent preprocesses source text already loaded into
// memory; dir is the directory quoted #include lines resolve against.
// Each call gets its own ConditionalProcessor, since an #ifdef/#endif
// nesting never spans a file boundary even though the macro table
// that #define and #ifdef consult is shared across every file in the
// translation unit.
func (p *Preprocessor) preprocessContent(content, dir string) (string, error) {
	lines := splitLogicalLines(content)
	cond := NewConditionalProcessor()
	expander := NewExpander(p.macros)

	var out []string
	for lineNo, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			extra, err := p.processDirective(trimmed[1:], cond, dir)
			if err != nil {
				return "", fmt.Errorf("line %d: %w", lineNo+1, err)
			}
			out = append(out, extra...)
			continue
		}
		if !cond.Active() {
			continue
		}
		out = append(out, Join(expander.Expand(Tokenize(line))))
	}
	if err := cond.CheckBalanced(); err != nil {
		return "", err
	}
	return strings.Join(out, "\n") + "\n", nil
}

func (p *Preprocessor) processDirective(text string, cond *ConditionalProcessor, dir string) ([]string, error) {
	toks := TrimSpace(Tokenize(text))
	if len(toks) == 0 {
		return nil, nil // bare "#" line
	}
	if toks[0].Kind != TIdent {
		return nil, fmt.Errorf("malformed preprocessor directive: #%s", text)
	}
	name := toks[0].Text
	rest := TrimSpace(skipSpace(toks[1:]))

	// Structural directives must be processed even inside an inactive
	// branch, so nesting and #else/#endif matching stay correct.
	switch name {
	case "ifdef":
		cond.Ifdef(p.macros.IsDefined(firstIdent(rest)))
		return nil, nil
	case "ifndef":
		cond.Ifndef(p.macros.IsDefined(firstIdent(rest)))
		return nil, nil
	case "else":
		return nil, cond.Else()
	case "endif":
		return nil, cond.Endif()
	}

	if !cond.Active() {
		return nil, nil
	}

	switch name {
	case "define":
		m, err := parseDefineLine(Join(rest))
		if err != nil {
			return nil, fmt.Errorf("#define: %w", err)
		}
		p.macros.Define(m)
		return nil, nil
	case "undef":
		p.macros.Undefine(firstIdent(rest))
		return nil, nil
	case "include":
		return p.processInclude(Join(rest), dir)
	case "pragma", "line":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported preprocessor directive: #%s", name)
	}
}

func firstIdent(toks []Token) string {
	for _, t := range toks {
		if t.Kind == TIdent {
			return t.Text
		}
	}
	return ""
}

func (p *Preprocessor) processInclude(text string, dir string) ([]string, error) {
	text = strings.TrimSpace(text)
	var name string
	var quoted bool
	switch {
	case strings.HasPrefix(text, "\""):
		end := strings.LastIndex(text, "\"")
		if end <= 0 {
			return nil, fmt.Errorf("malformed #include: %s", text)
		}
		name, quoted = text[1:end], true
	case strings.HasPrefix(text, "<"):
		end := strings.LastIndex(text, ">")
		if end <= 0 {
			return nil, fmt.Errorf("malformed #include: %s", text)
		}
		name = text[1:end]
	default:
		return nil, fmt.Errorf("malformed #include: %s", text)
	}

	resolved, err := p.includes.Resolve(name, dir, quoted)
	if err != nil {
		return nil, err
	}
	if err := p.includes.Push(resolved); err != nil {
		return nil, err
	}
	defer p.includes.Pop()

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", resolved, err)
	}
	expanded, err := p.preprocessContent(string(data), filepath.Dir(resolved))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", resolved, err)
	}
	expanded = strings.TrimSuffix(expanded, "\n")
	if expanded == "" {
		return nil, nil
	}
	return strings.Split(expanded, "\n"), nil
}

// splitLogicalLines strips // and /* */ comments (a block comment may
// span lines, so this runs before the content is split) and joins any
// line ending in "\" onto the next one.
func splitLogicalLines(content string) []string {
	runes := []rune(content)
	var cleaned strings.Builder
	inBlock := false
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if inBlock {
			if c == '*' && i+1 < len(runes) && runes[i+1] == '/' {
				inBlock = false
				i++
				continue
			}
			if c == '\n' {
				cleaned.WriteRune('\n')
			}
			continue
		}
		if c == '/' && i+1 < len(runes) && runes[i+1] == '*' {
			inBlock = true
			i++
			continue
		}
		if c == '/' && i+1 < len(runes) && runes[i+1] == '/' {
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			i--
			continue
		}
		cleaned.WriteRune(c)
	}

	var lines []string
	cur := ""
	for _, raw := range strings.Split(cleaned.String(), "\n") {
		if strings.HasSuffix(raw, "\\") {
			cur += strings.TrimSuffix(raw, "\\")
			continue
		}
		cur += raw
		lines = append(lines, cur)
		cur = ""
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}
