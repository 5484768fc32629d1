package parser

import (
	"testing"

	"github.com/termfx/ecmacore/internal/ast"
)

func parseProgram(t *testing.T, src string) *ast.Program {
	t.Helper()
	p := New(src)
	prog, err := p.ParseProgram()
	if err != nil {
		t.Fatalf("unexpected parse error for %q: %v", src, err)
	}
	return prog
}

func TestParseProgramVariableDeclaration(t *testing.T) {
	prog := parseProgram(t, "let x = 1;")
	if len(prog.Body) != 1 {
		t.Fatalf("expected one statement, got %d", len(prog.Body))
	}
	decl, ok := prog.Body[0].(*ast.VariableDeclaration)
	if !ok {
		t.Fatalf("expected *ast.VariableDeclaration, got %T", prog.Body[0])
	}
	if decl.Kind != "let" || len(decl.Declarations) != 1 {
		t.Fatalf("expected kind=let with one declarator, got kind=%q declarators=%d", decl.Kind, len(decl.Declarations))
	}
	binding, ok := decl.Declarations[0].Target.(*ast.IdentifierBinding)
	if !ok || binding.Name != "x" {
		t.Fatalf("expected binding target x, got %+v", decl.Declarations[0].Target)
	}
	lit, ok := decl.Declarations[0].Init.(*ast.NumberLiteral)
	if !ok || lit.Value != 1 {
		t.Fatalf("expected init literal 1, got %+v", decl.Declarations[0].Init)
	}
}

func TestParseProgramBinaryExpressionPrecedence(t *testing.T) {
	prog := parseProgram(t, "1 + 2 * 3;")
	es := prog.Body[0].(*ast.ExpressionStatement)
	bin, ok := es.Expr.(*ast.BinaryExpression)
	if !ok || bin.Operator != "+" {
		t.Fatalf("expected top-level +, got %+v", es.Expr)
	}
	right, ok := bin.Right.(*ast.BinaryExpression)
	if !ok || right.Operator != "*" {
		t.Fatalf("expected * to bind tighter on the right side, got %+v", bin.Right)
	}
}

func TestParseProgramIfElseStatement(t *testing.T) {
	prog := parseProgram(t, "if (x) { y; } else { z; }")
	ifs, ok := prog.Body[0].(*ast.IfStatement)
	if !ok {
		t.Fatalf("expected *ast.IfStatement, got %T", prog.Body[0])
	}
	if ifs.Consequent == nil || ifs.Alternate == nil {
		t.Fatal("expected both a consequent and an alternate block")
	}
}

func TestParseProgramForStatementComponents(t *testing.T) {
	prog := parseProgram(t, "for (let i = 0; i < 10; i++) {}")
	forStmt, ok := prog.Body[0].(*ast.ForStatement)
	if !ok {
		t.Fatalf("expected *ast.ForStatement, got %T", prog.Body[0])
	}
	if _, ok := forStmt.Init.(*ast.VariableDeclaration); !ok {
		t.Errorf("expected Init to be a VariableDeclaration, got %T", forStmt.Init)
	}
	if forStmt.Test == nil || forStmt.Update == nil {
		t.Error("expected both Test and Update to be populated")
	}
}

func TestParseProgramFunctionDeclaration(t *testing.T) {
	prog := parseProgram(t, "function add(a, b) { return a + b; }")
	fn, ok := prog.Body[0].(*ast.FunctionDeclaration)
	if !ok {
		t.Fatalf("expected *ast.FunctionDeclaration, got %T", prog.Body[0])
	}
	if fn.Function.Name != "add" || len(fn.Function.Params) != 2 {
		t.Fatalf("expected function add(a, b), got name=%q params=%d", fn.Function.Name, len(fn.Function.Params))
	}
}

func TestParseProgramArrowFunctionExpression(t *testing.T) {
	prog := parseProgram(t, "const f = (a) => a + 1;")
	decl := prog.Body[0].(*ast.VariableDeclaration)
	fn, ok := decl.Declarations[0].Init.(*ast.FunctionLiteral)
	if !ok || !fn.Arrow {
		t.Fatalf("expected an arrow FunctionLiteral, got %+v", decl.Declarations[0].Init)
	}
	if fn.ExprBody == nil {
		t.Error("expected a concise arrow body to populate ExprBody")
	}
}

func TestParseProgramCallExpression(t *testing.T) {
	prog := parseProgram(t, "foo(1, 2);")
	es := prog.Body[0].(*ast.ExpressionStatement)
	call, ok := es.Expr.(*ast.CallExpression)
	if !ok || len(call.Args) != 2 {
		t.Fatalf("expected a call with 2 args, got %+v", es.Expr)
	}
}

func TestParseProgramMemberExpressionChain(t *testing.T) {
	prog := parseProgram(t, "a.b.c;")
	es := prog.Body[0].(*ast.ExpressionStatement)
	outer, ok := es.Expr.(*ast.MemberExpression)
	if !ok {
		t.Fatalf("expected *ast.MemberExpression, got %T", es.Expr)
	}
	prop, ok := outer.Property.(*ast.Identifier)
	if !ok || prop.Name != "c" {
		t.Fatalf("expected outer property c, got %+v", outer.Property)
	}
	if _, ok := outer.Object.(*ast.MemberExpression); !ok {
		t.Errorf("expected a nested MemberExpression for a.b, got %T", outer.Object)
	}
}

func TestParseProgramTemplateLiteralWithSubstitution(t *testing.T) {
	prog := parseProgram(t, "`a${b}c`;")
	es := prog.Body[0].(*ast.ExpressionStatement)
	tpl, ok := es.Expr.(*ast.TemplateLiteral)
	if !ok {
		t.Fatalf("expected *ast.TemplateLiteral, got %T", es.Expr)
	}
	if len(tpl.Quasis) != 2 || len(tpl.Expressions) != 1 {
		t.Fatalf("expected 2 quasis and 1 substitution, got %d quasis %d exprs", len(tpl.Quasis), len(tpl.Expressions))
	}
}

func TestParseProgramDivisionAfterIdentifierIsNotRegExp(t *testing.T) {
	prog := parseProgram(t, "a / b;")
	es := prog.Body[0].(*ast.ExpressionStatement)
	bin, ok := es.Expr.(*ast.BinaryExpression)
	if !ok || bin.Operator != "/" {
		t.Fatalf("expected a division BinaryExpression, got %+v", es.Expr)
	}
}

func TestParseProgramRegExpLiteralAtExpressionStart(t *testing.T) {
	prog := parseProgram(t, "/abc/g;")
	es := prog.Body[0].(*ast.ExpressionStatement)
	if _, ok := es.Expr.(*ast.RegExpLiteral); !ok {
		t.Fatalf("expected *ast.RegExpLiteral, got %T", es.Expr)
	}
}

func TestParseProgramUseStrictPrologueSetsStrict(t *testing.T) {
	prog := parseProgram(t, "'use strict'; let x = 1;")
	if !prog.Strict {
		t.Error("expected a leading 'use strict' directive to mark the program strict")
	}
}

func TestParseProgramWithoutUseStrictIsNotStrict(t *testing.T) {
	prog := parseProgram(t, "let x = 1;")
	if prog.Strict {
		t.Error("expected a program without a directive prologue to be non-strict")
	}
}

func TestParseModuleIsAlwaysStrict(t *testing.T) {
	p := New("let x = 1;")
	prog, err := p.ParseModule()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !prog.Strict || !prog.IsModule {
		t.Error("expected ParseModule to mark the program both strict and IsModule")
	}
}

func TestParseProgramTryCatchFinally(t *testing.T) {
	prog := parseProgram(t, "try { a(); } catch (e) { b(); } finally { c(); }")
	tryStmt, ok := prog.Body[0].(*ast.TryStatement)
	if !ok {
		t.Fatalf("expected *ast.TryStatement, got %T", prog.Body[0])
	}
	if !tryStmt.HasCatch || tryStmt.Catch == nil || tryStmt.Finally == nil {
		t.Error("expected both a catch clause and a finally block")
	}
}

func TestParseProgramReturnsSyntaxErrorOnMissingParenthesis(t *testing.T) {
	p := New("if (x { y; }")
	_, err := p.ParseProgram()
	if err == nil {
		t.Fatal("expected a syntax error for a missing closing parenthesis")
	}
	if _, ok := err.(*SyntaxError); !ok {
		t.Errorf("expected a *SyntaxError, got %T", err)
	}
}

func TestParseProgramAutomaticSemicolonInsertion(t *testing.T) {
	prog := parseProgram(t, "let a = 1\nlet b = 2\n")
	if len(prog.Body) != 2 {
		t.Fatalf("expected ASI to split into 2 statements, got %d", len(prog.Body))
	}
}

func TestParseProgramEmptyProgramHasNoStatements(t *testing.T) {
	prog := parseProgram(t, "")
	if len(prog.Body) != 0 {
		t.Errorf("expected no statements in an empty program, got %d", len(prog.Body))
	}
}
