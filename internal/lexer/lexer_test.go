package lexer

import "testing"

func tokens(src string) []Token {
	l := New(src)
	var out []Token
	for {
		tok := l.Next(true)
		out = append(out, tok)
		if tok.Type == EOF {
			return out
		}
	}
}

func TestNextScansIdentifierAndKeyword(t *testing.T) {
	toks := tokens("foo let")
	if toks[0].Type != Identifier || toks[0].Value != "foo" {
		t.Fatalf("expected Identifier(foo), got %+v", toks[0])
	}
	if toks[1].Type != Keyword || toks[1].Value != "let" {
		t.Fatalf("expected Keyword(let), got %+v", toks[1])
	}
}

func TestNextScansNumericLiteral(t *testing.T) {
	toks := tokens("42")
	if toks[0].Type != NumericLiteral || toks[0].Number != 42 {
		t.Fatalf("expected NumericLiteral(42), got %+v", toks[0])
	}
}

func TestNextScansHexOctalAndBinaryLiterals(t *testing.T) {
	cases := map[string]float64{"0x1F": 31, "0o17": 15, "0b101": 5}
	for src, want := range cases {
		toks := tokens(src)
		if toks[0].Type != NumericLiteral || toks[0].Number != want {
			t.Errorf("%s: expected NumericLiteral(%v), got %+v", src, want, toks[0])
		}
	}
}

func TestNextScansBigIntLiteral(t *testing.T) {
	toks := tokens("10n")
	if toks[0].Type != BigIntLiteral || toks[0].Value != "10" {
		t.Fatalf("expected BigIntLiteral(10), got %+v", toks[0])
	}
}

func TestNextScansStringLiteralWithEscapes(t *testing.T) {
	toks := tokens(`"a\nb"`)
	if toks[0].Type != StringLiteral || toks[0].Value != "a\nb" {
		t.Fatalf("expected StringLiteral(a\\nb), got %+v", toks[0])
	}
}

func TestNextScansFourDigitUnicodeEscapeInString(t *testing.T) {
	toks := tokens(`"\u0041"`)
	if toks[0].Type != StringLiteral || toks[0].Value != "A" {
		t.Fatalf("expected the \\u0041 escape to decode to StringLiteral(A), got %+v", toks[0])
	}
}

func TestNextScansCurlyBracedUnicodeEscapeInString(t *testing.T) {
	toks := tokens(`"\u{1F600}"`)
	if toks[0].Type != StringLiteral {
		t.Fatalf("expected a StringLiteral, got %+v", toks[0])
	}
	if len([]rune(toks[0].Value)) != 1 {
		t.Errorf("expected the braced escape to decode to a single rune, got %q", toks[0].Value)
	}
}

func TestNextDistinguishesDivisionFromRegExp(t *testing.T) {
	l := New("a / b")
	first := l.Next(false) // 'a', division context would follow
	if first.Value != "a" {
		t.Fatalf("expected identifier a, got %+v", first)
	}
	div := l.Next(false)
	if div.Type != Punctuator || div.Value != "/" {
		t.Fatalf("expected division punctuator, got %+v", div)
	}
}

func TestNextScansRegExpLiteralWhenAllowed(t *testing.T) {
	l := New("/abc/gi")
	tok := l.Next(true)
	if tok.Type != RegExpLiteral || tok.Value != "abc" || tok.Flags != "gi" {
		t.Fatalf("expected RegExpLiteral(abc, flags=gi), got %+v", tok)
	}
}

func TestNextTracksNewlineBefore(t *testing.T) {
	l := New("a\nb")
	first := l.Next(false)
	second := l.Next(false)
	if first.NewlineBefore {
		t.Error("expected no newline before the first token")
	}
	if !second.NewlineBefore {
		t.Error("expected NewlineBefore to be true for the token after the line break")
	}
}

func TestNextSkipsLineAndBlockComments(t *testing.T) {
	toks := tokens("a // comment\n/* block */ b")
	if toks[0].Value != "a" || toks[1].Value != "b" {
		t.Fatalf("expected [a b], got %+v", toks[:2])
	}
}

func TestNextScansLongestMatchingPunctuator(t *testing.T) {
	toks := tokens(">>>=")
	if toks[0].Type != Punctuator || toks[0].Value != ">>>=" {
		t.Fatalf("expected the 4-char punctuator >>>=, got %+v", toks[0])
	}
}

func TestNewStripsLeadingHashbang(t *testing.T) {
	l := New("#!/usr/bin/env node\nlet x")
	tok := l.Next(false)
	if tok.Type != Keyword || tok.Value != "let" {
		t.Fatalf("expected the hashbang line to be stripped, got %+v", tok)
	}
}

func TestSnapshotAndRestoreRewindsScanPosition(t *testing.T) {
	l := New("abc def")
	snap := l.Snapshot()
	first := l.Next(false)
	l.Restore(snap)
	replay := l.Next(false)
	if first.Value != replay.Value {
		t.Errorf("expected Restore to rewind to the same token, got %q then %q", first.Value, replay.Value)
	}
}

func TestNextEOFAtEndOfSource(t *testing.T) {
	toks := tokens("")
	if len(toks) != 1 || toks[0].Type != EOF {
		t.Fatalf("expected a single EOF token for empty source, got %+v", toks)
	}
}

func TestPrivateIdentifierScansHashPrefix(t *testing.T) {
	toks := tokens("#field")
	if toks[0].Type != PrivateIdentifier || toks[0].Value != "field" {
		t.Fatalf("expected PrivateIdentifier(field), got %+v", toks[0])
	}
}
