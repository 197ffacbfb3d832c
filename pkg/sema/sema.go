// Package sema resolves names and checks the minimal static semantics
// needed before TAC generation: every declaration gets a Symbol, every
// Ident/CallExpr is bound to the Symbol it refers to, and array
// initializer counts and call arities are validated. It is grounded on the namer phase of the
// original source: scope stack, declare/conflict checking, and loop-depth
// tracking for break/continue validity.
package sema

import (
	"fmt"

	"github.com/minic32/rv32cc/pkg/ast"
)

// scope is one lexical level: a flat name -> Symbol map, plus whether it is
// the file-scope (global) level.
type scope struct {
	names  map[string]*ast.Symbol
	global bool
}

func newScope(global bool) *scope {
	return &scope{names: make(map[string]*ast.Symbol), global: global}
}

// Checker resolves one program's names, accumulating diagnostics in the
// same Errors()-returning style as pkg/parser.
type Checker struct {
	scopes    []*scope
	loopDepth int
	errors    []string
	funcs     map[string]*ast.FuncDecl
}

// NewChecker creates a Checker.
func NewChecker() *Checker {
	return &Checker{}
}

// Errors returns the diagnostics this Checker has accumulated.
func (c *Checker) Errors() []string {
	return c.errors
}

func (c *Checker) addError(line int, format string, args ...interface{}) {
	c.errors = append(c.errors, fmt.Sprintf("line %d: %s", line, fmt.Sprintf(format, args...)))
}

func (c *Checker) push(global bool) { c.scopes = append(c.scopes, newScope(global)) }
func (c *Checker) pop()             { c.scopes = c.scopes[:len(c.scopes)-1] }
func (c *Checker) current() *scope  { return c.scopes[len(c.scopes)-1] }

func (c *Checker) declare(name string, sym *ast.Symbol) {
	c.current().names[name] = sym
}

// findConflict reports whether name is already bound in the *current*
// scope only (shadowing an outer scope is allowed).
func (c *Checker) findConflict(name string) bool {
	_, ok := c.current().names[name]
	return ok
}

// lookup searches from the innermost scope outward.
func (c *Checker) lookup(name string) *ast.Symbol {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if sym, ok := c.scopes[i].names[name]; ok {
			return sym
		}
	}
	return nil
}

// Check resolves prog in place, returning the diagnostics found. An empty
// result means prog is ready for pkg/tac.
func Check(prog *ast.Program) []string {
	c := NewChecker()
	c.push(true) // global scope

	for _, d := range prog.Declarations {
		c.checkGlobalDecl(d)
	}
	c.declareFunctions(prog)
	for _, f := range prog.Functions {
		if f.Body != nil {
			c.checkFunctionBody(f)
		}
	}

	if _, ok := c.current().names["main"]; !ok {
		c.errors = append(c.errors, "program has no main function")
	} else if sym := c.current().names["main"]; sym.Kind != ast.SymFunc {
		c.errors = append(c.errors, "'main' is not a function")
	}

	c.pop()
	return c.errors
}

func (c *Checker) checkGlobalDecl(d *ast.VarDecl) {
	if c.findConflict(d.Name) {
		c.addError(d.Line, "global variable %q redefined", d.Name)
		return
	}
	kind := ast.SymGlobalScalar
	if d.IsArray() {
		kind = ast.SymGlobalArray
	}
	sym := &ast.Symbol{Name: d.Name, Kind: kind, Dims: d.Dims, Temp: -1}
	d.Sym = sym
	c.declare(d.Name, sym)

	if d.Init != nil {
		if _, ok := d.Init.(*ast.IntLit); !ok {
			c.addError(d.Line, "global variable %q must be initialized with a constant", d.Name)
		}
	}
	for _, e := range d.InitList {
		if _, ok := e.(*ast.IntLit); !ok {
			c.addError(d.Line, "array initializer for %q must be constant", d.Name)
		}
	}
	if d.IsArray() && len(d.InitList) > sym.ByteSize()/4 {
		c.addError(d.Line, "too many initializers for array %q", d.Name)
	}
}

// declareFunctions registers every function's signature up front so calls
// may appear before a later textual definition, merging a prior
// declaration-only prototype with its definition.
func (c *Checker) declareFunctions(prog *ast.Program) {
	c.funcs = make(map[string]*ast.FuncDecl, len(prog.Functions))
	defined := make(map[string]bool)
	for _, f := range prog.Functions {
		c.funcs[f.Name] = f
		existing, ok := c.current().names[f.Name]
		if ok {
			if existing.Kind != ast.SymFunc {
				c.addError(f.Line, "%q redefined as function", f.Name)
				continue
			}
			if f.Body != nil {
				if defined[f.Name] {
					c.addError(f.Line, "function %q defined more than once", f.Name)
					continue
				}
				defined[f.Name] = true
			}
			f.Sym = existing
			continue
		}
		sym := &ast.Symbol{Name: f.Name, Kind: ast.SymFunc, FuncLabel: f.Name}
		c.declare(f.Name, sym)
		f.Sym = sym
		if f.Body != nil {
			defined[f.Name] = true
		}
	}
}

func (c *Checker) checkFunctionBody(f *ast.FuncDecl) {
	c.push(false)
	for _, param := range f.Params {
		if c.findConflict(param.Name) {
			c.addError(param.Line, "parameter %q redefined", param.Name)
			continue
		}
		sym := &ast.Symbol{Name: param.Name, Kind: ast.SymParam, Dims: param.Dims, Temp: -1}
		param.Sym = sym
		c.declare(param.Name, sym)
	}
	c.checkBlockNoScope(f.Body)
	c.pop()
}

// checkBlockNoScope visits a block's statements without opening a new
// scope, used for a function's outermost body so parameters and the
// body's own locals share one scope.
func (c *Checker) checkBlockNoScope(b *ast.Block) {
	for _, s := range b.Stmts {
		c.checkStmt(s)
	}
}

func (c *Checker) checkBlock(b *ast.Block) {
	c.push(false)
	c.checkBlockNoScope(b)
	c.pop()
}

func (c *Checker) checkStmt(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.VarDecl:
		c.checkLocalDecl(st)
	case *ast.Block:
		c.checkBlock(st)
	case *ast.IfStmt:
		c.checkExpr(st.Cond)
		c.checkStmt(st.Then)
		if st.Else != nil {
			c.checkStmt(st.Else)
		}
	case *ast.WhileStmt:
		c.checkExpr(st.Cond)
		c.loopDepth++
		c.checkStmt(st.Body)
		c.loopDepth--
	case *ast.DoWhileStmt:
		c.loopDepth++
		c.checkStmt(st.Body)
		c.loopDepth--
		c.checkExpr(st.Cond)
	case *ast.ForStmt:
		c.push(false)
		if st.Init != nil {
			c.checkStmt(st.Init)
		}
		if st.Cond != nil {
			c.checkExpr(st.Cond)
		}
		if st.Update != nil {
			c.checkStmt(st.Update)
		}
		c.loopDepth++
		c.checkStmt(st.Body)
		c.loopDepth--
		c.pop()
	case *ast.BreakStmt:
		if c.loopDepth == 0 {
			c.addError(st.Line, "break outside loop")
		}
	case *ast.ContinueStmt:
		if c.loopDepth == 0 {
			c.addError(st.Line, "continue outside loop")
		}
	case *ast.ReturnStmt:
		if st.Expr != nil {
			c.checkExpr(st.Expr)
		}
	case *ast.ExprStmt:
		c.checkExpr(st.X)
	case *ast.EmptyStmt:
		// no-op
	}
}

func (c *Checker) checkLocalDecl(d *ast.VarDecl) {
	if c.findConflict(d.Name) {
		c.addError(d.Line, "variable %q redefined", d.Name)
		return
	}
	kind := ast.SymLocal
	sym := &ast.Symbol{Name: d.Name, Kind: kind, Dims: d.Dims, Temp: -1}
	d.Sym = sym
	c.declare(d.Name, sym)
	if d.Init != nil {
		c.checkExpr(d.Init)
	}
	for _, e := range d.InitList {
		c.checkExpr(e)
	}
	if d.IsArray() && len(d.InitList) > sym.ByteSize()/4 {
		c.addError(d.Line, "too many initializers for array %q", d.Name)
	}
}

func (c *Checker) checkExpr(e ast.Expr) {
	switch x := e.(type) {
	case *ast.IntLit:
		// always valid; range-checking against the target word size is
		// left to the lexer/parser's literal conversion.
	case *ast.Ident:
		sym := c.lookup(x.Name)
		if sym == nil {
			c.addError(x.Line, "undefined variable %q", x.Name)
			return
		}
		if sym.Kind == ast.SymFunc {
			c.addError(x.Line, "%q is a function, not a variable", x.Name)
			return
		}
		x.Sym = sym
	case *ast.IndexExpr:
		c.checkExpr(x.Base)
		c.checkExpr(x.Index)
	case *ast.UnaryExpr:
		c.checkExpr(x.Operand)
	case *ast.BinaryExpr:
		c.checkExpr(x.Lhs)
		c.checkExpr(x.Rhs)
	case *ast.AssignExpr:
		c.checkExpr(x.Lhs)
		c.checkExpr(x.Rhs)
	case *ast.CondExpr:
		c.checkExpr(x.Cond)
		c.checkExpr(x.Then)
		c.checkExpr(x.Else)
	case *ast.CallExpr:
		c.checkCall(x)
	}
}

func (c *Checker) checkCall(call *ast.CallExpr) {
	sym := c.lookup(call.Name)
	if sym == nil {
		c.addError(call.Line, "call to undefined function %q", call.Name)
		return
	}
	if sym.Kind != ast.SymFunc {
		c.addError(call.Line, "%q is not a function", call.Name)
		return
	}
	call.Sym = sym
	if decl, ok := c.funcs[call.Name]; ok && len(call.Args) != len(decl.Params) {
		c.addError(call.Line, "call to %q has %d argument(s), want %d", call.Name, len(call.Args), len(decl.Params))
	}
	for _, a := range call.Args {
		c.checkExpr(a)
	}
}
