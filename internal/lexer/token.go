// Package lexer tokenizes ECMAScript source text. It implements the
// goal-symbol-sensitive scanning spec.md §4.4 calls out as in scope at the
// level the parser needs (regex-vs-division disambiguation, ASI-relevant
// newline tracking, hashbang stripping) while leaving full Unicode
// identifier classification and numeric-literal edge cases to the level of
// detail spec.md's Non-goals describe as "lexing micro-detail" out of
// scope.
package lexer

import "github.com/termfx/ecmacore/internal/ast"

// Type tags what kind of token a Token is.
type Type uint8

const (
	EOF Type = iota
	Identifier
	PrivateIdentifier
	Keyword
	NumericLiteral
	BigIntLiteral
	StringLiteral
	TemplateString // one quasi span within a template literal
	RegExpLiteral
	Punctuator
)

// Token is one lexical unit plus the metadata the parser's ASI and
// strict-mode logic need.
type Token struct {
	Type    Type
	Value   string // raw identifier/keyword/punctuator text, or decoded string value
	Flags   string // regex flags, when Type == RegExpLiteral
	Number  float64
	Pos     ast.Position
	NewlineBefore bool // at least one LineTerminator appeared since the previous token
	HasEscape     bool // identifier contained a \uXXXX escape (relevant to reserved-word checks)
}
