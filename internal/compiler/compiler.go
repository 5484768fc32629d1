package compiler

import (
	"fmt"

	"github.com/termfx/ecmacore/internal/ast"
	"github.com/termfx/ecmacore/internal/bytecode"
	"github.com/termfx/ecmacore/internal/environment"
	"github.com/termfx/ecmacore/internal/intern"
	"github.com/termfx/ecmacore/internal/value"
)

// Error is a compile-time failure with the source position it occurred
// at, matching the Parser's error shape so the engine layer can report
// both uniformly.
type Error struct {
	Message string
	Pos     ast.Position
}

func (e *Error) Error() string { return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Column, e.Message) }

// Compiler lowers one function body or top-level script into a
// bytecode.CodeBlock. One Compiler is created per function (including the
// implicit top-level function), with child Compilers created for nested
// functions so each gets its own register/constant/handler space.
type Compiler struct {
	interner *intern.Table

	block *bytecode.CodeBlock
	scope *environment.CompileTimeEnvironment

	jumps jumpControlStack

	// scopeDepth counts runtime Environment frames pushed by OpPushScope
	// since the current function began (block bodies, catch-param scopes,
	// for/for-in loop-variable scopes), kept 1:1 with CompileTimeEnvironment
	// nesting so break/continue/throw unwinds know how many frames to pop.
	scopeDepth int

	constIndex map[uint64]int // cache: constant identity -> pool index, keyed by a cheap hash of kind+bits

	inDerivedCtor bool
	inGenerator   bool
	inAsync       bool
}

// New creates a Compiler for a fresh top-level script scope.
func New(interner *intern.Table) *Compiler {
	c := &Compiler{
		interner:   interner,
		block:      &bytecode.CodeBlock{},
		scope:      environment.NewCompileTimeEnvironment(nil, true),
		constIndex: make(map[uint64]int),
	}
	return c
}

// CompileProgram lowers an entire Program (script or module top level)
// into its CodeBlock.
func (c *Compiler) CompileProgram(prog *ast.Program) (*bytecode.CodeBlock, error) {
	c.block.Strict = prog.Strict
	if err := c.hoistDeclarations(prog.Body); err != nil {
		return nil, err
	}
	for i, stmt := range prog.Body {
		// A trailing expression statement is the script's completion
		// value: return it instead of popping it.
		if es, ok := stmt.(*ast.ExpressionStatement); ok && i == len(prog.Body)-1 {
			if err := c.compileExpression(es.Expr); err != nil {
				return nil, err
			}
			c.emit(bytecode.OpReturn, 0, 0)
			break
		}
		if err := c.compileStatement(stmt); err != nil {
			return nil, err
		}
	}
	c.emit(bytecode.OpLoadUndefined, 0, 0)
	c.emit(bytecode.OpReturn, 0, 0)
	c.block.NumRegisters = c.scope.SlotCount()
	c.block.ScopeDescriptor = &bytecode.ScopeDescriptor{Names: c.scope.Names()}
	c.block.RootScope = c.scope
	return c.block, nil
}

func (c *Compiler) emit(op bytecode.Op, a, b int32) int {
	idx := len(c.block.Instrs)
	c.block.Instrs = append(c.block.Instrs, bytecode.Instr{Op: op, A: a, B: b})
	return idx
}

func (c *Compiler) here() int { return len(c.block.Instrs) }

// pushScope registers scope in the block's scope table and emits
// OpPushScope addressing it by index, recording the new runtime nesting
// depth. scope's slot count is read live off the CompileTimeEnvironment
// pointer at runtime, so it need not be final yet.
func (c *Compiler) pushScope(scope *environment.CompileTimeEnvironment) {
	idx := len(c.block.Scopes)
	c.block.Scopes = append(c.block.Scopes, scope)
	c.emit(bytecode.OpPushScope, int32(idx), 0)
	c.scopeDepth++
}

// popScope emits the OpPopScope matching the most recent pushScope,
// restoring the nesting depth it advanced.
func (c *Compiler) popScope() {
	c.emit(bytecode.OpPopScope, 0, 0)
	c.scopeDepth--
}

func (c *Compiler) addConst(v value.Value) int32 {
	idx := len(c.block.Consts)
	c.block.Consts = append(c.block.Consts, v)
	return int32(idx)
}

func (c *Compiler) errf(pos ast.Position, format string, args ...interface{}) error {
	return &Error{Message: fmt.Sprintf(format, args...), Pos: pos}
}

// hoistDeclarations implements the var/function hoisting side channel
// spec.md §4.6 requires: function declarations and `var` bindings in this
// scope are declared up front (before the scope's statements execute),
// independent of lexical (let/const/class) declarations which are
// declared in the temporal-dead-zone state as their own statement is
// reached.
func (c *Compiler) hoistDeclarations(body []ast.Statement) error {
	var walk func(stmts []ast.Statement) error
	walk = func(stmts []ast.Statement) error {
		for _, s := range stmts {
			switch n := s.(type) {
			case *ast.VariableDeclaration:
				if n.Kind == "var" {
					for _, d := range n.Declarations {
						c.declareBindingTarget(d.Target, false)
					}
				}
			case *ast.FunctionDeclaration:
				c.scope.Declare(n.Function.Name)
			case *ast.IfStatement:
				if b, ok := n.Consequent.(*ast.BlockStatement); ok {
					if err := walk(b.Body); err != nil {
						return err
					}
				}
				if n.Alternate != nil {
					if b, ok := n.Alternate.(*ast.BlockStatement); ok {
						if err := walk(b.Body); err != nil {
							return err
						}
					}
				}
			case *ast.BlockStatement:
				if err := walk(n.Body); err != nil {
					return err
				}
			case *ast.ForStatement:
				if d, ok := n.Init.(*ast.VariableDeclaration); ok && d.Kind == "var" {
					for _, decl := range d.Declarations {
						c.declareBindingTarget(decl.Target, false)
					}
				}
			case *ast.WhileStatement:
				if b, ok := n.Body.(*ast.BlockStatement); ok {
					if err := walk(b.Body); err != nil {
						return err
					}
				}
			case *ast.TryStatement:
				if err := walk(n.Block.Body); err != nil {
					return err
				}
				if n.Catch != nil {
					if err := walk(n.Catch.Body); err != nil {
						return err
					}
				}
				if n.Finally != nil {
					if err := walk(n.Finally.Body); err != nil {
						return err
					}
				}
			}
		}
		return nil
	}
	return walk(body)
}

func (c *Compiler) declareBindingTarget(t ast.BindingTarget, lexical bool) {
	switch n := t.(type) {
	case *ast.IdentifierBinding:
		c.scope.Declare(n.Name)
	case *ast.ArrayBindingPattern:
		for _, el := range n.Elements {
			if el.Target != nil {
				c.declareBindingTarget(el.Target, lexical)
			}
		}
		if n.Rest != nil {
			c.declareBindingTarget(n.Rest, lexical)
		}
	case *ast.ObjectBindingPattern:
		for _, p := range n.Properties {
			c.declareBindingTarget(p.Target, lexical)
		}
		if n.Rest != nil {
			c.declareBindingTarget(n.Rest, lexical)
		}
	}
}
