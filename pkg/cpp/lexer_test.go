package cpp

import "testing"

func TestTokenizeSplitsIdentsNumbersAndPunct(t *testing.T) {
	toks := Tokenize(`#define SQUARE(x) ((x)*(x))`)
	if Join(toks) != `#define SQUARE(x) ((x)*(x))` {
		t.Fatalf("Join(Tokenize(x)) should reproduce x, got %q", Join(toks))
	}
	var idents []string
	for _, tok := range toks {
		if tok.Kind == TIdent {
			idents = append(idents, tok.Text)
		}
	}
	want := []string{"define", "SQUARE", "x", "x", "x"}
	if len(idents) != len(want) {
		t.Fatalf("want idents %v, got %v", want, idents)
	}
	for i := range want {
		if idents[i] != want[i] {
			t.Fatalf("want idents %v, got %v", want, idents)
		}
	}
}

func TestTokenizeCollapsesRunsOfSpace(t *testing.T) {
	toks := Tokenize("a    b")
	if len(toks) != 3 {
		t.Fatalf("want 3 tokens (ident, space, ident), got %d: %#v", len(toks), toks)
	}
	if toks[1].Kind != TSpace || toks[1].Text != " " {
		t.Fatalf("want a single collapsed space token, got %#v", toks[1])
	}
}

func TestTokenizeHandlesQuotedStrings(t *testing.T) {
	toks := Tokenize(`"myheader.h"`)
	if len(toks) != 1 || toks[0].Kind != TString {
		t.Fatalf("want a single string token, got %#v", toks)
	}
	if toks[0].Text != `"myheader.h"` {
		t.Fatalf("want the quotes preserved, got %q", toks[0].Text)
	}
}

func TestTokenizeStringWithEscapedQuote(t *testing.T) {
	toks := Tokenize(`"a\"b"`)
	if len(toks) != 1 || toks[0].Kind != TString {
		t.Fatalf("want a single string token spanning the escape, got %#v", toks)
	}
}

func TestTrimSpaceDropsLeadingAndTrailingOnly(t *testing.T) {
	toks := Tokenize("  a b  ")
	trimmed := TrimSpace(toks)
	if trimmed[0].Kind != TIdent || trimmed[len(trimmed)-1].Kind != TIdent {
		t.Fatalf("want leading/trailing space stripped, interior kept, got %#v", trimmed)
	}
	if Join(trimmed) != "a b" {
		t.Fatalf("want %q, got %q", "a b", Join(trimmed))
	}
}
