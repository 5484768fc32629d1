package compiler

import (
	"testing"

	"github.com/termfx/ecmacore/internal/bytecode"
	"github.com/termfx/ecmacore/internal/intern"
	"github.com/termfx/ecmacore/internal/parser"
)

func compile(t *testing.T, src string) *bytecode.CodeBlock {
	t.Helper()
	p := parser.New(src)
	prog, err := p.ParseProgram()
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	c := New(intern.New())
	block, err := c.CompileProgram(prog)
	if err != nil {
		t.Fatalf("compile %q: %v", src, err)
	}
	return block
}

func hasOp(block *bytecode.CodeBlock, op bytecode.Op) bool {
	for _, instr := range block.Instrs {
		if instr.Op == op {
			return true
		}
	}
	return false
}

func countOp(block *bytecode.CodeBlock, op bytecode.Op) int {
	n := 0
	for _, instr := range block.Instrs {
		if instr.Op == op {
			n++
		}
	}
	return n
}

func TestCompileProgramEndsWithImplicitUndefinedReturn(t *testing.T) {
	block := compile(t, "1;")
	if len(block.Instrs) < 2 {
		t.Fatalf("expected at least 2 instructions, got %d", len(block.Instrs))
	}
	last := block.Instrs[len(block.Instrs)-1]
	secondLast := block.Instrs[len(block.Instrs)-2]
	if last.Op != bytecode.OpReturn || secondLast.Op != bytecode.OpLoadUndefined {
		t.Errorf("expected the block to end with OpLoadUndefined, OpReturn, got %v, %v", secondLast.Op, last.Op)
	}
}

func TestCompileProgramMarksStrictFromBlock(t *testing.T) {
	block := compile(t, "'use strict'; 1;")
	if !block.Strict {
		t.Error("expected CompileProgram to carry the parsed program's Strict flag onto the CodeBlock")
	}
}

func TestCompileProgramAddsNumericConstant(t *testing.T) {
	block := compile(t, "42;")
	if len(block.Consts) == 0 {
		t.Fatal("expected at least one constant in the pool")
	}
	found := false
	for _, c := range block.Consts {
		if c.AsFloat64() == 42 {
			found = true
		}
	}
	if !found {
		t.Error("expected 42 to appear in the constant pool")
	}
	if !hasOp(block, bytecode.OpLoadConst) {
		t.Error("expected an OpLoadConst instruction for the literal")
	}
}

func TestCompileProgramArithmeticEmitsOpAdd(t *testing.T) {
	block := compile(t, "1 + 2;")
	if !hasOp(block, bytecode.OpAdd) {
		t.Error("expected OpAdd to be emitted for a + expression")
	}
}

func TestCompileProgramVariableDeclarationUsesLocalSlot(t *testing.T) {
	block := compile(t, "let x = 1; x;")
	if !hasOp(block, bytecode.OpInitLocal) {
		t.Error("expected OpInitLocal for a let declaration's initializer")
	}
	if !hasOp(block, bytecode.OpGetLocal) {
		t.Error("expected OpGetLocal reading x back")
	}
	if block.NumRegisters < 1 {
		t.Errorf("expected NumRegisters to reserve at least 1 slot, got %d", block.NumRegisters)
	}
}

func TestCompileProgramHoistsVarDeclarationAheadOfExecution(t *testing.T) {
	block := compile(t, "x = 1; var x;")
	if block.NumRegisters < 1 {
		t.Error("expected the var-hoisted x to occupy a root-scope slot even though it's declared after its use")
	}
}

func TestCompileProgramIfStatementEmitsConditionalJump(t *testing.T) {
	block := compile(t, "if (true) { 1; } else { 2; }")
	if !hasOp(block, bytecode.OpJumpIfFalse) {
		t.Error("expected an if/else statement to emit OpJumpIfFalse")
	}
	if !hasOp(block, bytecode.OpJump) {
		t.Error("expected the consequent branch to jump over the alternate with OpJump")
	}
}

func TestCompileProgramWhileLoopEmitsBackwardJump(t *testing.T) {
	block := compile(t, "while (true) { 1; }")
	if !hasOp(block, bytecode.OpJump) {
		t.Error("expected a while loop to emit a backward OpJump to its condition test")
	}
	if !hasOp(block, bytecode.OpJumpIfFalse) {
		t.Error("expected a while loop to emit OpJumpIfFalse to exit the loop")
	}
}

func TestCompileProgramScopeDescriptorReflectsTopLevelNames(t *testing.T) {
	block := compile(t, "let x = 1; let y = 2;")
	if block.ScopeDescriptor == nil {
		t.Fatal("expected a non-nil ScopeDescriptor")
	}
	names := map[string]bool{}
	for _, n := range block.ScopeDescriptor.Names {
		names[n] = true
	}
	if !names["x"] || !names["y"] {
		t.Errorf("expected both x and y in the scope descriptor, got %v", block.ScopeDescriptor.Names)
	}
}

func TestCompileProgramFunctionDeclarationIsHoisted(t *testing.T) {
	block := compile(t, "foo(); function foo() {}")
	names := map[string]bool{}
	for _, n := range block.ScopeDescriptor.Names {
		names[n] = true
	}
	if !names["foo"] {
		t.Error("expected the hoisted function declaration's name to occupy a root-scope slot")
	}
}

func TestCompileProgramRejectsInvalidBindingTarget(t *testing.T) {
	p := parser.New("let = 1;")
	prog, err := p.ParseProgram()
	if err == nil {
		c := New(intern.New())
		if _, cerr := c.CompileProgram(prog); cerr == nil {
			t.Fatal("expected either a parse error or a compile error for an invalid binding target")
		}
	}
}
