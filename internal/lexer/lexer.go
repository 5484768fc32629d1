package lexer

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/termfx/ecmacore/internal/ast"
)

var keywords = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "debugger": true, "default": true, "delete": true,
	"do": true, "else": true, "export": true, "extends": true, "finally": true,
	"for": true, "function": true, "if": true, "import": true, "in": true,
	"instanceof": true, "new": true, "return": true, "super": true,
	"switch": true, "this": true, "throw": true, "try": true, "typeof": true,
	"var": true, "void": true, "while": true, "with": true, "yield": true,
	"let": true, "static": true, "async": true, "await": true, "of": true,
	"get": true, "set": true, "null": true, "true": true, "false": true,
}

// Lexer scans one source buffer. It is not safe for concurrent use — a
// Lexer is owned by exactly one Parser (spec.md §5 applies the same
// single-owner rule the rest of the engine uses).
type Lexer struct {
	src  string
	pos  int
	line int
	col  int
}

// New creates a Lexer over src, stripping a leading hashbang line if
// present (spec.md §4.4, "hashbang stripping").
func New(src string) *Lexer {
	if strings.HasPrefix(src, "#!") {
		if i := strings.IndexByte(src, '\n'); i >= 0 {
			src = src[i:]
		} else {
			src = ""
		}
	}
	return &Lexer{src: src, line: 1, col: 1}
}

// NewFromUTF16 creates a Lexer over source already held as UTF-16 code
// units, a host-convenience entry point for embedders whose source text
// arrives already decoded that way (spec.md's "accepts either, normalizes
// internally" — the lexer itself only ever scans UTF-8 Go strings, so this
// just re-encodes once up front rather than threading two representations
// through the scanner).
func NewFromUTF16(units []uint16) *Lexer {
	return New(string(utf16.Decode(units)))
}

func (l *Lexer) position() ast.Position {
	return ast.Position{Offset: l.pos, Line: l.line, Column: l.col}
}

// State is an opaque scan-position snapshot for speculative parsing (the
// parser backtracks over an ambiguous arrow-function head rather than
// building a separate lookahead grammar for it).
type State struct {
	pos, line, col int
}

func (l *Lexer) Snapshot() State { return State{l.pos, l.line, l.col} }

func (l *Lexer) Restore(s State) { l.pos, l.line, l.col = s.pos, s.line, s.col }

func (l *Lexer) peekByte() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekByteAt(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *Lexer) advance() byte {
	b := l.src[l.pos]
	l.pos++
	if b == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return b
}

// skipSpaceAndComments consumes whitespace and comments, reporting whether
// a LineTerminator was crossed (the only fact ASI needs from this phase).
func (l *Lexer) skipSpaceAndComments() bool {
	sawNewline := false
	for l.pos < len(l.src) {
		c := l.peekByte()
		switch {
		case c == '\n' || c == '\r':
			sawNewline = true
			l.advance()
		case c == 0x20 || c == '\t' || c == '\v' || c == '\f':
			l.advance()
		case c == '/' && l.peekByteAt(1) == '/':
			for l.pos < len(l.src) && l.peekByte() != '\n' {
				l.advance()
			}
		case c == '/' && l.peekByteAt(1) == '*':
			l.advance()
			l.advance()
			for l.pos < len(l.src) {
				if l.peekByte() == '*' && l.peekByteAt(1) == '/' {
					l.advance()
					l.advance()
					break
				}
				if l.peekByte() == '\n' {
					sawNewline = true
				}
				l.advance()
			}
		case c >= 0x80:
			r, size := utf8.DecodeRuneInString(l.src[l.pos:])
			if unicode.IsSpace(r) {
				if r == ' ' || r == ' ' {
					sawNewline = true
				}
				l.pos += size
				l.col++
				continue
			}
			return sawNewline
		default:
			return sawNewline
		}
	}
	return sawNewline
}

// Next scans the next token. regexAllowed tells the scanner whether a `/`
// at this position should be read as the start of a RegExp literal or as
// the division/division-assignment punctuator — the goal-symbol
// disambiguation spec.md §4.4 requires the parser to drive, since only the
// parser knows whether the previous token could end an expression.
func (l *Lexer) Next(regexAllowed bool) Token {
	newline := l.skipSpaceAndComments()
	start := l.position()

	if l.pos >= len(l.src) {
		return Token{Type: EOF, Pos: start, NewlineBefore: newline}
	}

	c := l.peekByte()

	switch {
	case c == '#':
		l.advance()
		name := l.scanIdentifierName()
		return Token{Type: PrivateIdentifier, Value: name, Pos: start, NewlineBefore: newline}
	case isIdentifierStart(rune(c)) || c >= 0x80:
		return l.scanIdentifierOrKeyword(start, newline)
	case c >= '0' && c <= '9':
		return l.scanNumber(start, newline)
	case c == '.' && l.peekByteAt(1) >= '0' && l.peekByteAt(1) <= '9':
		return l.scanNumber(start, newline)
	case c == '"' || c == '\'':
		return l.scanString(start, newline, c)
	case c == '`':
		return l.scanTemplateChunk(start, newline)
	case c == '/' && regexAllowed:
		return l.scanRegExp(start, newline)
	default:
		return l.scanPunctuator(start, newline)
	}
}

func isIdentifierStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentifierPart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (l *Lexer) scanIdentifierName() string {
	start := l.pos
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !isIdentifierPart(r) {
			break
		}
		for i := 0; i < size; i++ {
			l.advance()
		}
	}
	return l.src[start:l.pos]
}

func (l *Lexer) scanIdentifierOrKeyword(start ast.Position, newline bool) Token {
	name := l.scanIdentifierName()
	typ := Identifier
	if keywords[name] {
		typ = Keyword
	}
	return Token{Type: typ, Value: name, Pos: start, NewlineBefore: newline}
}

func (l *Lexer) scanNumber(start ast.Position, newline bool) Token {
	begin := l.pos
	isBigInt := false

	if l.peekByte() == '0' && (l.peekByteAt(1) == 'x' || l.peekByteAt(1) == 'X') {
		l.advance()
		l.advance()
		for isHexDigit(l.peekByte()) || l.peekByte() == '_' {
			l.advance()
		}
	} else if l.peekByte() == '0' && (l.peekByteAt(1) == 'o' || l.peekByteAt(1) == 'O') {
		l.advance()
		l.advance()
		for isOctalDigit(l.peekByte()) || l.peekByte() == '_' {
			l.advance()
		}
	} else if l.peekByte() == '0' && (l.peekByteAt(1) == 'b' || l.peekByteAt(1) == 'B') {
		l.advance()
		l.advance()
		for l.peekByte() == '0' || l.peekByte() == '1' || l.peekByte() == '_' {
			l.advance()
		}
	} else {
		for isDigit(l.peekByte()) || l.peekByte() == '_' {
			l.advance()
		}
		if l.peekByte() == '.' {
			l.advance()
			for isDigit(l.peekByte()) || l.peekByte() == '_' {
				l.advance()
			}
		}
		if l.peekByte() == 'e' || l.peekByte() == 'E' {
			l.advance()
			if l.peekByte() == '+' || l.peekByte() == '-' {
				l.advance()
			}
			for isDigit(l.peekByte()) {
				l.advance()
			}
		}
	}

	if l.peekByte() == 'n' {
		isBigInt = true
		l.advance()
	}

	raw := strings.ReplaceAll(l.src[begin:l.pos], "_", "")
	if isBigInt {
		return Token{Type: BigIntLiteral, Value: strings.TrimSuffix(raw, "n"), Pos: start, NewlineBefore: newline}
	}
	f, _ := parseNumericLiteral(raw)
	return Token{Type: NumericLiteral, Number: f, Value: raw, Pos: start, NewlineBefore: newline}
}

func parseNumericLiteral(raw string) (float64, error) {
	switch {
	case strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X"):
		n, err := strconv.ParseUint(raw[2:], 16, 64)
		return float64(n), err
	case strings.HasPrefix(raw, "0o") || strings.HasPrefix(raw, "0O"):
		n, err := strconv.ParseUint(raw[2:], 8, 64)
		return float64(n), err
	case strings.HasPrefix(raw, "0b") || strings.HasPrefix(raw, "0B"):
		n, err := strconv.ParseUint(raw[2:], 2, 64)
		return float64(n), err
	default:
		return strconv.ParseFloat(raw, 64)
	}
}

func isDigit(b byte) bool      { return b >= '0' && b <= '9' }
func isHexDigit(b byte) bool   { return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F') }
func isOctalDigit(b byte) bool { return b >= '0' && b <= '7' }

func (l *Lexer) scanString(start ast.Position, newline bool, quote byte) Token {
	l.advance()
	var sb strings.Builder
	for l.pos < len(l.src) && l.peekByte() != quote {
		c := l.peekByte()
		if c == '\\' {
			l.advance()
			sb.WriteString(l.scanEscape())
			continue
		}
		sb.WriteByte(c)
		l.advance()
	}
	if l.pos < len(l.src) {
		l.advance() // closing quote
	}
	return Token{Type: StringLiteral, Value: sb.String(), Pos: start, NewlineBefore: newline}
}

func (l *Lexer) scanEscape() string {
	if l.pos >= len(l.src) {
		return ""
	}
	c := l.advance()
	switch c {
	case 'n':
		return "\n"
	case 't':
		return "\t"
	case 'r':
		return "\r"
	case 'b':
		return "\b"
	case 'f':
		return "\f"
	case 'v':
		return "\v"
	case '0':
		return "\x00"
	case 'x':
		h := string([]byte{l.advance(), l.advance()})
		n, _ := strconv.ParseUint(h, 16, 32)
		return string(rune(n))
	case 'u':
		if l.peekByte() == '{' {
			l.advance()
			start := l.pos
			for l.peekByte() != '}' && l.pos < len(l.src) {
				l.advance()
			}
			h := l.src[start:l.pos]
			if l.pos < len(l.src) {
				l.advance()
			}
			n, _ := strconv.ParseUint(h, 16, 32)
			return string(rune(n))
		}
		h := string([]byte{l.advance(), l.advance(), l.advance(), l.advance()})
		n, _ := strconv.ParseUint(h, 16, 32)
		return string(rune(n))
	case '\n':
		return "" // line continuation
	default:
		return string(c)
	}
}

// scanTemplateChunk scans one quasi of a template literal: from the
// opening backtick (or closing `}` of a substitution) through the next
// `${` or closing backtick. The parser drives re-entry after each
// substitution expression; this lexer only ever sees balanced source text
// because the parser calls back in for each `${ expr }` using its normal
// expression grammar.
func (l *Lexer) scanTemplateChunk(start ast.Position, newline bool) Token {
	l.advance() // opening `
	return l.scanTemplateBody(start, newline)
}

// NextTemplateChunk resumes scanning a template literal's next quasi. The
// parser calls this instead of Next once it has parsed a `${ expr }`
// substitution down to (and including, as its current token) the closing
// `}`, since that `}` is ordinary Punctuator lexing and leaves l.pos
// positioned exactly where the next quasi's raw text begins.
func (l *Lexer) NextTemplateChunk() Token {
	start := l.position()
	return l.scanTemplateBody(start, false)
}

func (l *Lexer) scanTemplateBody(start ast.Position, newline bool) Token {
	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.peekByte()
		if c == '`' {
			l.advance()
			return Token{Type: TemplateString, Value: sb.String(), Flags: "tail", Pos: start, NewlineBefore: newline}
		}
		if c == '$' && l.peekByteAt(1) == '{' {
			l.advance()
			l.advance()
			return Token{Type: TemplateString, Value: sb.String(), Flags: "head", Pos: start, NewlineBefore: newline}
		}
		if c == '\\' {
			l.advance()
			sb.WriteString(l.scanEscape())
			continue
		}
		sb.WriteByte(c)
		l.advance()
	}
	return Token{Type: TemplateString, Value: sb.String(), Flags: "tail", Pos: start, NewlineBefore: newline}
}

func (l *Lexer) scanRegExp(start ast.Position, newline bool) Token {
	begin := l.pos
	l.advance() // leading /
	inClass := false
	for l.pos < len(l.src) {
		c := l.peekByte()
		if c == '\\' {
			l.advance()
			if l.pos < len(l.src) {
				l.advance()
			}
			continue
		}
		if c == '[' {
			inClass = true
		} else if c == ']' {
			inClass = false
		} else if c == '/' && !inClass {
			l.advance()
			break
		}
		l.advance()
	}
	pattern := l.src[begin+1 : l.pos-1]
	flagsStart := l.pos
	for l.pos < len(l.src) && isIdentifierPart(rune(l.peekByte())) {
		l.advance()
	}
	flags := l.src[flagsStart:l.pos]
	return Token{Type: RegExpLiteral, Value: pattern, Flags: flags, Pos: start, NewlineBefore: newline}
}

var punctuators = []string{
	">>>=", "...", "===", "!==", "**=", "<<=", ">>=", ">>>", "&&=", "||=", "??=",
	"=>", "==", "!=", "<=", ">=", "&&", "||", "??", "?.", "++", "--", "**",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "<<", ">>",
	"{", "}", "(", ")", "[", "]", ".", ";", ",", "<", ">", "+", "-", "*", "%",
	"&", "|", "^", "!", "~", "?", ":", "=", "/", "`",
}

func (l *Lexer) scanPunctuator(start ast.Position, newline bool) Token {
	rest := l.src[l.pos:]
	for _, p := range punctuators {
		if strings.HasPrefix(rest, p) {
			for range p {
				l.advance()
			}
			return Token{Type: Punctuator, Value: p, Pos: start, NewlineBefore: newline}
		}
	}
	// Unknown byte: consume one rune so the parser can report a syntax
	// error at a position that advances rather than looping forever.
	_, size := utf8.DecodeRuneInString(rest)
	for i := 0; i < size; i++ {
		l.advance()
	}
	return Token{Type: Punctuator, Value: rest[:size], Pos: start, NewlineBefore: newline}
}
