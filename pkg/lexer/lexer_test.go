package lexer

import (
	"testing"

	"github.com/minic32/rv32cc/pkg/token"
)

func TestNextTokenBasic(t *testing.T) {
	input := `int main() {
  int a[2][3];
  a[0][1] = 5;
  return a[0][1] + 1;
}`

	tests := []struct {
		wantType    token.Type
		wantLiteral string
	}{
		{token.KwInt, "int"},
		{token.IDENT, "main"},
		{token.LParen, "("},
		{token.RParen, ")"},
		{token.LBrace, "{"},
		{token.KwInt, "int"},
		{token.IDENT, "a"},
		{token.LBracket, "["},
		{token.INT, "2"},
		{token.RBracket, "]"},
		{token.LBracket, "["},
		{token.INT, "3"},
		{token.RBracket, "]"},
		{token.Semicolon, ";"},
		{token.IDENT, "a"},
		{token.LBracket, "["},
		{token.INT, "0"},
		{token.RBracket, "]"},
		{token.LBracket, "["},
		{token.INT, "1"},
		{token.RBracket, "]"},
		{token.Assign, "="},
		{token.INT, "5"},
		{token.Semicolon, ";"},
		{token.KwReturn, "return"},
		{token.IDENT, "a"},
		{token.LBracket, "["},
		{token.INT, "0"},
		{token.RBracket, "]"},
		{token.LBracket, "["},
		{token.INT, "1"},
		{token.RBracket, "]"},
		{token.Plus, "+"},
		{token.INT, "1"},
		{token.Semicolon, ";"},
		{token.RBrace, "}"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.wantType {
			t.Fatalf("test %d: wrong type, got=%v want=%v (literal %q)", i, tok.Type, tt.wantType, tok.Literal)
		}
		if tok.Literal != tt.wantLiteral {
			t.Fatalf("test %d: wrong literal, got=%q want=%q", i, tok.Literal, tt.wantLiteral)
		}
	}
}

func TestNextTokenOperators(t *testing.T) {
	input := "== != <= >= && || ? :"
	want := []token.Type{token.Eq, token.Ne, token.Le, token.Ge, token.AndAnd, token.OrOr, token.Question, token.Colon, token.EOF}
	l := New(input)
	for i, wantType := range want {
		tok := l.NextToken()
		if tok.Type != wantType {
			t.Fatalf("test %d: got=%v want=%v", i, tok.Type, wantType)
		}
	}
}

func TestNextTokenComments(t *testing.T) {
	input := "int x; // trailing\n/* block */ int y;"
	l := New(input)
	var types []token.Type
	for {
		tok := l.NextToken()
		types = append(types, tok.Type)
		if tok.Type == token.EOF {
			break
		}
	}
	want := []token.Type{token.KwInt, token.IDENT, token.Semicolon, token.KwInt, token.IDENT, token.Semicolon, token.EOF}
	if len(types) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(types), len(want), types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("token %d: got=%v want=%v", i, types[i], want[i])
		}
	}
}
