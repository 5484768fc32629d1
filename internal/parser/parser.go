// Package parser implements the recursive-descent, bounded-lookahead
// parser spec.md §4.4 describes: strict-mode propagation, ASI, early-error
// detection, and the Script/Module goal-symbol split. The cursor shape
// (small lookahead buffer over the lexer, peek/advance/expect) is grounded
// on original_source/boa-dev's boa_parser/src/parser/cursor/mod.rs.
package parser

import (
	"fmt"

	"github.com/termfx/ecmacore/internal/ast"
	"github.com/termfx/ecmacore/internal/lexer"
)

// SyntaxError is a parse failure positioned in the source.
type SyntaxError struct {
	Message string
	Pos     ast.Position
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: SyntaxError: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Parser drives the lexer through bounded lookahead and produces an AST.
// Not safe for concurrent use; one Parser parses one Program.
type Parser struct {
	lex *lexer.Lexer

	cur  lexer.Token
	next *lexer.Token // one token of lookahead, filled lazily

	strict bool

	// regexAllowed tracks the goal-symbol state the lexer needs: true
	// when the previous token could not end an expression, so a `/` here
	// must start a RegExp literal rather than mean division.
	regexAllowed bool

	inFunction  bool
	inLoop      int
	inSwitch    int
	inGenerator bool
	inAsync     bool
	labels      map[string]bool
}

// New creates a Parser over src.
func New(src string) *Parser {
	return newOverLexer(lexer.New(src))
}

// NewFromUTF16 creates a Parser over source already held as UTF-16 code
// units (spec.md §4.4's "accepts either" input contract).
func NewFromUTF16(units []uint16) *Parser {
	return newOverLexer(lexer.NewFromUTF16(units))
}

func newOverLexer(lex *lexer.Lexer) *Parser {
	p := &Parser{lex: lex, regexAllowed: true, labels: make(map[string]bool)}
	p.cur = p.lex.Next(p.regexAllowed)
	return p
}

// ParseProgram parses a full Script. Modules are parsed with the same
// grammar; ParseModule sets IsModule and additionally permits
// import/export declarations at the top level.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	return p.parseTop(false)
}

// ParseModule parses a Module goal symbol (spec.md §4.4, "Script vs
// Module productions"). Modules are always strict.
func (p *Parser) ParseModule() (*ast.Program, error) {
	return p.parseTop(true)
}

func (p *Parser) parseTop(isModule bool) (*ast.Program, error) {
	pos := p.cur.Pos
	if isModule {
		p.strict = true
	}
	prog := &ast.Program{IsModule: isModule}
	prog.At = pos

	var body []ast.Statement
	inPrologue := !isModule
	for p.cur.Type != lexer.EOF {
		stmt, err := p.parseStatementOrDeclaration(isModule)
		if err != nil {
			return nil, err
		}
		if inPrologue {
			if es, ok := stmt.(*ast.ExpressionStatement); ok {
				if lit, ok := es.Expr.(*ast.StringLiteral); ok {
					if lit.Value == "use strict" {
						p.strict = true
					}
				} else {
					inPrologue = false
				}
			} else {
				inPrologue = false
			}
		}
		body = append(body, stmt)
	}
	prog.Body = body
	prog.Strict = p.strict
	return prog, nil
}

func (p *Parser) advance() {
	p.setRegexGoal(regexAllowedAfter(p.cur))
	if p.next != nil {
		p.cur = *p.next
		p.next = nil
		return
	}
	p.cur = p.lex.Next(p.regexAllowed)
}

// regexAllowedAfter reports whether a `/` seen right after tok should be
// read as the start of a RegExp literal rather than division: true unless
// tok is something that can itself end an expression (spec.md §4.4,
// "goal-symbol-sensitive lexer").
func regexAllowedAfter(tok lexer.Token) bool {
	switch tok.Type {
	case lexer.Identifier, lexer.NumericLiteral, lexer.BigIntLiteral, lexer.StringLiteral, lexer.RegExpLiteral:
		return false
	case lexer.TemplateString:
		return tok.Flags != "tail"
	case lexer.Keyword:
		switch tok.Value {
		case "this", "super", "true", "false", "null":
			return false
		default:
			return true
		}
	case lexer.Punctuator:
		switch tok.Value {
		case ")", "]", "++", "--":
			return false
		default:
			return true
		}
	default:
		return true
	}
}

// peek returns the token after cur without consuming cur.
func (p *Parser) peek() lexer.Token {
	if p.next == nil {
		t := p.lex.Next(regexAllowedAfter(p.cur))
		p.next = &t
	}
	return *p.next
}

func (p *Parser) errf(format string, args ...interface{}) error {
	return &SyntaxError{Message: fmt.Sprintf(format, args...), Pos: p.cur.Pos}
}

func (p *Parser) isPunct(v string) bool {
	return p.cur.Type == lexer.Punctuator && p.cur.Value == v
}

func (p *Parser) isKeyword(v string) bool {
	return p.cur.Type == lexer.Keyword && p.cur.Value == v
}

func (p *Parser) expectPunct(v string) error {
	if !p.isPunct(v) {
		return p.errf("expected %q, got %q", v, p.cur.Value)
	}
	p.advance()
	return nil
}

// consumeSemicolon implements Automatic Semicolon Insertion: an explicit
// `;`, an implicit insertion before `}` or EOF, or an implicit insertion
// because the next token is on a new line (spec.md §4.4, "Automatic
// Semicolon Insertion").
func (p *Parser) consumeSemicolon() error {
	if p.isPunct(";") {
		p.advance()
		return nil
	}
	if p.isPunct("}") || p.cur.Type == lexer.EOF || p.cur.NewlineBefore {
		return nil
	}
	return p.errf("expected ';'")
}

// setRegexGoal is called after consuming a token to tell the lexer whether
// the next `/` should be read as RegExp or division, per the
// goal-symbol rule: a `/` can only begin a RegExp where an expression
// could start (spec.md §4.4).
func (p *Parser) setRegexGoal(allowed bool) { p.regexAllowed = allowed }
