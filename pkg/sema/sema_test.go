package sema

import (
	"testing"

	"github.com/minic32/rv32cc/pkg/ast"
	"github.com/minic32/rv32cc/pkg/lexer"
	"github.com/minic32/rv32cc/pkg/parser"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	p := parser.New(lexer.New(src))
	prog := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	return prog
}

func TestCheckResolvesIdentifiers(t *testing.T) {
	prog := mustParse(t, `
int g;
int main() {
  int x;
  x = g + 1;
  return x;
}
`)
	errs := Check(prog)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	main := prog.Functions[0]
	assign := main.Body.Stmts[1].(*ast.ExprStmt).X.(*ast.AssignExpr)
	lhs := assign.Lhs.(*ast.Ident)
	if lhs.Sym == nil || lhs.Sym.Kind != ast.SymLocal {
		t.Fatalf("expected local symbol for x, got %+v", lhs.Sym)
	}
	rhs := assign.Rhs.(*ast.BinaryExpr).Lhs.(*ast.Ident)
	if rhs.Sym == nil || rhs.Sym.Kind != ast.SymGlobalScalar {
		t.Fatalf("expected global symbol for g, got %+v", rhs.Sym)
	}
}

func TestCheckUndefinedVariable(t *testing.T) {
	prog := mustParse(t, `int main() { return y; }`)
	errs := Check(prog)
	if len(errs) == 0 {
		t.Fatal("expected an undefined-variable error")
	}
}

func TestCheckRedeclaration(t *testing.T) {
	prog := mustParse(t, `
int main() {
  int x;
  int x;
  return x;
}
`)
	errs := Check(prog)
	if len(errs) == 0 {
		t.Fatal("expected a redeclaration error")
	}
}

func TestCheckBreakOutsideLoop(t *testing.T) {
	prog := mustParse(t, `int main() { break; return 0; }`)
	errs := Check(prog)
	if len(errs) == 0 {
		t.Fatal("expected a break-outside-loop error")
	}
}

func TestCheckBreakInsideLoopOK(t *testing.T) {
	prog := mustParse(t, `
int main() {
  while (1) {
    break;
  }
  return 0;
}
`)
	errs := Check(prog)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestCheckCallArity(t *testing.T) {
	prog := mustParse(t, `
int add(int a, int b) { return a + b; }
int main() { return add(1); }
`)
	errs := Check(prog)
	if len(errs) == 0 {
		t.Fatal("expected an arity error")
	}
}

func TestCheckCallResolvesForwardReference(t *testing.T) {
	prog := mustParse(t, `
int main() { return helper(); }
int helper() { return 1; }
`)
	errs := Check(prog)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	call := prog.Functions[0].Body.Stmts[0].(*ast.ReturnStmt).Expr.(*ast.CallExpr)
	if call.Sym == nil || call.Sym.Kind != ast.SymFunc {
		t.Fatalf("expected resolved function symbol, got %+v", call.Sym)
	}
}

func TestCheckMissingMain(t *testing.T) {
	prog := mustParse(t, `int notMain() { return 0; }`)
	errs := Check(prog)
	if len(errs) == 0 {
		t.Fatal("expected a missing-main error")
	}
}

func TestCheckArrayIndexing(t *testing.T) {
	prog := mustParse(t, `
int main() {
  int a[3][4];
  a[1][2] = 5;
  return a[1][2];
}
`)
	errs := Check(prog)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
}
