package tac

import (
	"testing"

	"github.com/minic32/rv32cc/pkg/ast"
)

// These tests hand-build already-resolved AST fragments (as pkg/sema would
// leave them) since BuildProgram assumes name resolution has already run.

func countKind(instrs []Instr, k InstrKind) int {
	n := 0
	for _, i := range instrs {
		if i.Kind() == k {
			n++
		}
	}
	return n
}

func TestBuildSimpleReturn(t *testing.T) {
	fn := &ast.FuncDecl{
		Name:         "answer",
		ReturnsValue: true,
		Body: &ast.Block{Stmts: []ast.Stmt{
			&ast.ReturnStmt{Expr: &ast.IntLit{Value: 42}},
		}},
	}
	prog := &ast.Program{Functions: []*ast.FuncDecl{fn}}

	out := BuildProgram(prog)
	if len(out.Functions) != 1 {
		t.Fatalf("want 1 function, got %d", len(out.Functions))
	}
	f := out.Functions[0]
	if countKind(f.Instrs, KindReturn) != 1 {
		t.Fatalf("want exactly 1 return instruction, got %d", countKind(f.Instrs, KindReturn))
	}
	last := f.Instrs[len(f.Instrs)-1]
	ret, ok := last.(*Return)
	if !ok || !ret.HasValue {
		t.Fatalf("want trailing valued return, got %#v", last)
	}
}

func TestBuildVoidFunctionGetsImplicitReturn(t *testing.T) {
	fn := &ast.FuncDecl{
		Name: "noop",
		Body: &ast.Block{},
	}
	out := BuildProgram(&ast.Program{Functions: []*ast.FuncDecl{fn}})
	f := out.Functions[0]
	if len(f.Instrs) == 0 {
		t.Fatal("expected at least the entry label and a return")
	}
	last := f.Instrs[len(f.Instrs)-1]
	ret, ok := last.(*Return)
	if !ok || ret.HasValue {
		t.Fatalf("want trailing bare return, got %#v", last)
	}
}

func TestBuildIfElseBranches(t *testing.T) {
	nSym := &ast.Symbol{Name: "n", Kind: ast.SymParam}
	param := &ast.Param{Name: "n", Sym: nSym}
	fn := &ast.FuncDecl{
		Name:         "sign",
		ReturnsValue: true,
		Params:       []*ast.Param{param},
		Body: &ast.Block{Stmts: []ast.Stmt{
			&ast.IfStmt{
				Cond: &ast.Ident{Name: "n", Sym: nSym},
				Then: &ast.ReturnStmt{Expr: &ast.IntLit{Value: 1}},
				Else: &ast.ReturnStmt{Expr: &ast.IntLit{Value: -1}},
			},
		}},
	}
	out := BuildProgram(&ast.Program{Functions: []*ast.FuncDecl{fn}})
	f := out.Functions[0]

	if countKind(f.Instrs, KindCondJump) != 1 {
		t.Fatalf("want 1 conditional branch, got %d", countKind(f.Instrs, KindCondJump))
	}
	if countKind(f.Instrs, KindJump) != 1 {
		t.Fatalf("want 1 unconditional branch (past the then-arm), got %d", countKind(f.Instrs, KindJump))
	}
	if countKind(f.Instrs, KindReturn) != 2 {
		t.Fatalf("want 2 returns, got %d", countKind(f.Instrs, KindReturn))
	}
	if len(f.Params) != 1 || Temp(nSym.Temp) != f.Params[0] {
		t.Fatalf("parameter temp not bound to symbol: sym.Temp=%v params=%v", nSym.Temp, f.Params)
	}
}

func TestBuildWhileLoopBreakContinue(t *testing.T) {
	iSym := &ast.Symbol{Name: "i", Kind: ast.SymLocal}
	body := &ast.Block{Stmts: []ast.Stmt{
		&ast.IfStmt{
			Cond: &ast.Ident{Name: "i", Sym: iSym},
			Then: &ast.BreakStmt{},
		},
		&ast.ContinueStmt{},
	}}
	fn := &ast.FuncDecl{
		Name: "loop",
		Body: &ast.Block{Stmts: []ast.Stmt{
			&ast.VarDecl{Name: "i", Sym: iSym},
			&ast.WhileStmt{Cond: &ast.IntLit{Value: 1}, Body: body},
		}},
	}
	out := BuildProgram(&ast.Program{Functions: []*ast.FuncDecl{fn}})
	f := out.Functions[0]
	if countKind(f.Instrs, KindJump) < 2 {
		t.Fatalf("want at least 2 unconditional jumps (break + continue), got %d", countKind(f.Instrs, KindJump))
	}
}

func TestBuildArrayIndexAddressing(t *testing.T) {
	aSym := &ast.Symbol{Name: "a", Kind: ast.SymLocal, Dims: []int{2, 3}, Temp: 7}
	iSym := &ast.Symbol{Name: "i", Kind: ast.SymLocal, Temp: 8}
	jSym := &ast.Symbol{Name: "j", Kind: ast.SymLocal, Temp: 9}

	idx := &ast.IndexExpr{
		Base:  &ast.IndexExpr{Base: &ast.Ident{Name: "a", Sym: aSym}, Index: &ast.Ident{Name: "i", Sym: iSym}},
		Index: &ast.Ident{Name: "j", Sym: jSym},
	}
	fn := &ast.FuncDecl{
		Name:         "at",
		ReturnsValue: true,
		Body: &ast.Block{Stmts: []ast.Stmt{
			&ast.ReturnStmt{Expr: idx},
		}},
	}
	out := BuildProgram(&ast.Program{Functions: []*ast.FuncDecl{fn}})
	f := out.Functions[0]

	var loads []*Load
	for _, i := range f.Instrs {
		if l, ok := i.(*Load); ok {
			loads = append(loads, l)
		}
	}
	if len(loads) != 1 {
		t.Fatalf("want exactly 1 load of the indexed element, got %d", len(loads))
	}

	var muls int
	for _, i := range f.Instrs {
		if bin, ok := i.(*Binary); ok && bin.Op == Mul {
			muls++
		}
	}
	if muls != 2 {
		t.Fatalf("want 2 stride multiplications (one per index), got %d", muls)
	}
}

func TestBuildGlobalScalarAndArray(t *testing.T) {
	scalar := &ast.VarDecl{
		Name: "g",
		Init: &ast.IntLit{Value: 9},
		Sym:  &ast.Symbol{Name: "g", Kind: ast.SymGlobalScalar},
	}
	arr := &ast.VarDecl{
		Name:     "arr",
		Dims:     []int{4},
		InitList: []ast.Expr{&ast.IntLit{Value: 1}, &ast.IntLit{Value: 2}},
		Sym:      &ast.Symbol{Name: "arr", Kind: ast.SymGlobalArray, Dims: []int{4}},
	}
	out := BuildProgram(&ast.Program{Declarations: []*ast.VarDecl{scalar, arr}})
	if len(out.Globals) != 2 {
		t.Fatalf("want 2 globals, got %d", len(out.Globals))
	}
	if !out.Globals[0].HasScalarInit || out.Globals[0].ScalarInit != 9 {
		t.Fatalf("unexpected scalar global: %+v", out.Globals[0])
	}
	g := out.Globals[1]
	if len(g.ArrayWords) != 2 || g.ZeroWords != 2 {
		t.Fatalf("unexpected array global: %+v", g)
	}
}

func TestBuildUnaryOps(t *testing.T) {
	fn := &ast.FuncDecl{
		Name:         "f",
		ReturnsValue: true,
		Body: &ast.Block{Stmts: []ast.Stmt{
			&ast.ReturnStmt{Expr: &ast.UnaryExpr{Op: ast.BitNot, Operand: &ast.IntLit{Value: 1}}},
		}},
	}
	out := BuildProgram(&ast.Program{Functions: []*ast.FuncDecl{fn}})
	var un *Unary
	for _, i := range out.Functions[0].Instrs {
		if u, ok := i.(*Unary); ok {
			un = u
		}
	}
	if un == nil {
		t.Fatal("expected a Unary instruction")
	}
	if un.Op != Not {
		t.Fatalf("want BitNot to build a Not TAC op, got %v", un.Op)
	}
}

func TestBuildLogicNotBuildsSeqz(t *testing.T) {
	fn := &ast.FuncDecl{
		Name:         "f",
		ReturnsValue: true,
		Body: &ast.Block{Stmts: []ast.Stmt{
			&ast.ReturnStmt{Expr: &ast.UnaryExpr{Op: ast.LogicNot, Operand: &ast.IntLit{Value: 0}}},
		}},
	}
	out := BuildProgram(&ast.Program{Functions: []*ast.FuncDecl{fn}})
	var un *Unary
	for _, i := range out.Functions[0].Instrs {
		if u, ok := i.(*Unary); ok {
			un = u
		}
	}
	if un == nil {
		t.Fatal("expected a Unary instruction")
	}
	if un.Op != Seqz {
		t.Fatalf("want LogicNot to build a Seqz TAC op, got %v", un.Op)
	}
}

func TestBuildCallWithArgs(t *testing.T) {
	fSym := &ast.Symbol{Name: "f", Kind: ast.SymFunc}
	callee := &ast.FuncDecl{Name: "f", ReturnsValue: true, Sym: fSym, Body: &ast.Block{
		Stmts: []ast.Stmt{&ast.ReturnStmt{Expr: &ast.IntLit{Value: 0}}},
	}}
	caller := &ast.FuncDecl{
		Name:         "main",
		ReturnsValue: true,
		Body: &ast.Block{Stmts: []ast.Stmt{
			&ast.ReturnStmt{Expr: &ast.CallExpr{Name: "f", Sym: fSym, Args: []ast.Expr{
				&ast.IntLit{Value: 1}, &ast.IntLit{Value: 2},
			}}},
		}},
	}
	out := BuildProgram(&ast.Program{Functions: []*ast.FuncDecl{callee, caller}})
	var call *Call
	for _, f := range out.Functions {
		if f.Name != "main" {
			continue
		}
		for _, i := range f.Instrs {
			if c, ok := i.(*Call); ok {
				call = c
			}
		}
	}
	if call == nil {
		t.Fatal("expected a Call instruction in main")
	}
	if call.Target.Name != "f" || len(call.Args) != 2 {
		t.Fatalf("unexpected call: %+v", call)
	}
}
