package ast

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrintProgram(t *testing.T) {
	prog := &Program{
		Declarations: []*VarDecl{
			{Name: "g", Dims: []int{4}},
		},
		Functions: []*FuncDecl{
			{
				Name:         "main",
				ReturnsValue: true,
				Body: &Block{Stmts: []Stmt{
					&ReturnStmt{Expr: &BinaryExpr{Op: Add, Lhs: &IntLit{Value: 1}, Rhs: &IntLit{Value: 2}}},
				}},
			},
		},
	}

	var buf bytes.Buffer
	NewPrinter(&buf).PrintProgram(prog)
	out := buf.String()

	for _, want := range []string{"int g[4];", "int main()", "return (1 + 2);"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q, got:\n%s", want, out)
		}
	}
}

func TestSymbolByteSize(t *testing.T) {
	s := &Symbol{Dims: []int{2, 3}}
	if got := s.ByteSize(); got != 24 {
		t.Fatalf("ByteSize() = %d, want 24", got)
	}
	scalar := &Symbol{}
	if got := scalar.ByteSize(); got != 4 {
		t.Fatalf("scalar ByteSize() = %d, want 4", got)
	}
	unknown := &Symbol{Dims: []int{-1}}
	if got := unknown.ByteSize(); got != 0 {
		t.Fatalf("unknown-dim ByteSize() = %d, want 0", got)
	}
}

func TestVarDeclIsArray(t *testing.T) {
	if (&VarDecl{}).IsArray() {
		t.Fatal("scalar VarDecl reported as array")
	}
	if !(&VarDecl{Dims: []int{4}}).IsArray() {
		t.Fatal("array VarDecl reported as scalar")
	}
}
