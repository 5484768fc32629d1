package compiler

import (
	"github.com/termfx/ecmacore/internal/ast"
	"github.com/termfx/ecmacore/internal/bytecode"
	"github.com/termfx/ecmacore/internal/environment"
)

func (c *Compiler) compileStatement(s ast.Statement) error {
	switch n := s.(type) {
	case *ast.ExpressionStatement:
		if err := c.compileExpression(n.Expr); err != nil {
			return err
		}
		c.emit(bytecode.OpPop, 0, 0)
		return nil

	case *ast.EmptyStatement, *ast.DebuggerStatement:
		return nil

	case *ast.BlockStatement:
		return c.compileBlock(n.Body)

	case *ast.VariableDeclaration:
		return c.compileVariableDeclaration(n)

	case *ast.FunctionDeclaration:
		idx, err := c.compileFunctionLiteral(n.Function)
		if err != nil {
			return err
		}
		c.emit(bytecode.OpNewFunction, int32(idx), 0)
		// A hoisted slot starts uninitialized, so it is initialized here
		// rather than assigned.
		if hops, slot, ok := c.scope.Resolve(n.Function.Name); ok {
			c.emit(bytecode.OpInitLocal, int32(hops), int32(slot))
			return nil
		}
		return c.storeBinding(n.Function.Name, n.Pos())

	case *ast.ClassDeclaration:
		if err := c.compileClassLiteral(n.Class); err != nil {
			return err
		}
		if hops, slot, ok := c.scope.Resolve(n.Class.Name); ok {
			c.emit(bytecode.OpInitLocal, int32(hops), int32(slot))
			return nil
		}
		return c.storeBinding(n.Class.Name, n.Pos())

	case *ast.IfStatement:
		return c.compileIf(n)

	case *ast.WhileStatement:
		return c.compileWhile(n)

	case *ast.DoWhileStatement:
		return c.compileDoWhile(n)

	case *ast.ForStatement:
		return c.compileFor(n)

	case *ast.ForInStatement:
		return c.compileForIn(n)

	case *ast.ReturnStatement:
		if n.Argument != nil {
			if err := c.compileExpression(n.Argument); err != nil {
				return err
			}
		} else {
			c.emit(bytecode.OpLoadUndefined, 0, 0)
		}
		c.emit(bytecode.OpReturn, 0, 0)
		return nil

	case *ast.ThrowStatement:
		if err := c.compileExpression(n.Argument); err != nil {
			return err
		}
		c.emit(bytecode.OpThrow, 0, 0)
		return nil

	case *ast.BreakStatement:
		frame, ok := c.jumps.findBreakTarget(n.Label)
		if !ok {
			return c.errf(n.Pos(), "illegal break statement")
		}
		idx := c.emit(bytecode.OpJump, -1, int32(c.scopeDepth-frame.BaseScopeDepth))
		frame.Breaks = append(frame.Breaks, Label{InstrIndex: idx})
		return nil

	case *ast.ContinueStatement:
		frame, ok := c.jumps.findContinueTarget(n.Label)
		if !ok {
			return c.errf(n.Pos(), "illegal continue statement")
		}
		idx := c.emit(bytecode.OpJump, -1, int32(c.scopeDepth-frame.BaseScopeDepth))
		frame.Continues = append(frame.Continues, Label{InstrIndex: idx})
		return nil

	case *ast.LabeledStatement:
		return c.compileLabeled(n)

	case *ast.TryStatement:
		return c.compileTry(n)

	case *ast.SwitchStatement:
		return c.compileSwitch(n)

	case *ast.ImportDeclaration, *ast.ExportDeclaration:
		// No module linking: import and export declarations emit no
		// bytecode, and nothing resolves their bindings.
		return nil

	default:
		return c.errf(s.Pos(), "compiler: unsupported statement %T", s)
	}
}

func (c *Compiler) compileBlock(body []ast.Statement) error {
	parent := c.scope
	c.scope = environment.NewCompileTimeEnvironment(parent, false)
	defer func() { c.scope = parent }()

	if err := c.hoistLexical(body); err != nil {
		return err
	}
	c.pushScope(c.scope)
	for _, s := range body {
		if err := c.compileStatement(s); err != nil {
			return err
		}
	}
	c.popScope()
	return nil
}

func (c *Compiler) compileVariableDeclaration(n *ast.VariableDeclaration) error {
	lexical := n.Kind != "var"
	for _, d := range n.Declarations {
		if lexical {
			c.declareBindingTarget(d.Target, true)
		}
		if d.Init != nil {
			if err := c.compileExpression(d.Init); err != nil {
				return err
			}
		} else {
			c.emit(bytecode.OpLoadUndefined, 0, 0)
		}
		if err := c.compileBindingInit(d.Target, n.Kind != "const"); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileIf(n *ast.IfStatement) error {
	if err := c.compileExpression(n.Test); err != nil {
		return err
	}
	jumpElse := c.emit(bytecode.OpJumpIfFalse, -1, 0)
	if err := c.compileStatement(n.Consequent); err != nil {
		return err
	}
	if n.Alternate == nil {
		c.block.Instrs[jumpElse].A = int32(c.here())
		return nil
	}
	jumpEnd := c.emit(bytecode.OpJump, -1, 0)
	c.block.Instrs[jumpElse].A = int32(c.here())
	if err := c.compileStatement(n.Alternate); err != nil {
		return err
	}
	c.block.Instrs[jumpEnd].A = int32(c.here())
	return nil
}

func (c *Compiler) compileWhile(n *ast.WhileStatement) error {
	start := c.here()
	frame := &JumpControlInfo{Kind: JumpLoop, StartInstr: start, BaseScopeDepth: c.scopeDepth}
	c.jumps.push(frame)
	defer c.jumps.pop()

	if err := c.compileExpression(n.Test); err != nil {
		return err
	}
	exitJump := c.emit(bytecode.OpJumpIfFalse, -1, 0)
	if err := c.compileStatement(n.Body); err != nil {
		return err
	}
	c.emit(bytecode.OpJump, int32(start), 0)
	end := c.here()
	c.block.Instrs[exitJump].A = int32(end)
	c.patchLoopLabels(frame, start, end)
	return nil
}

func (c *Compiler) compileDoWhile(n *ast.DoWhileStatement) error {
	start := c.here()
	frame := &JumpControlInfo{Kind: JumpLoop, StartInstr: start, BaseScopeDepth: c.scopeDepth}
	c.jumps.push(frame)
	defer c.jumps.pop()

	if err := c.compileStatement(n.Body); err != nil {
		return err
	}
	continueTarget := c.here()
	if err := c.compileExpression(n.Test); err != nil {
		return err
	}
	c.emit(bytecode.OpJumpIfTrue, int32(start), 0)
	end := c.here()
	for _, l := range frame.Continues {
		patchLabel(c.block.Instrs, l, continueTarget)
	}
	for _, l := range frame.Breaks {
		patchLabel(c.block.Instrs, l, end)
	}
	return nil
}

func (c *Compiler) compileFor(n *ast.ForStatement) error {
	parent := c.scope
	if decl, ok := n.Init.(*ast.VariableDeclaration); ok && decl.Kind != "var" {
		c.scope = environment.NewCompileTimeEnvironment(parent, false)
		c.pushScope(c.scope)
		defer func() {
			c.popScope()
			c.scope = parent
		}()
	}

	switch init := n.Init.(type) {
	case *ast.VariableDeclaration:
		if err := c.compileVariableDeclaration(init); err != nil {
			return err
		}
	case ast.Expression:
		if err := c.compileExpression(init); err != nil {
			return err
		}
		c.emit(bytecode.OpPop, 0, 0)
	}

	start := c.here()
	frame := &JumpControlInfo{Kind: JumpLoop, StartInstr: start, BaseScopeDepth: c.scopeDepth}
	c.jumps.push(frame)
	defer c.jumps.pop()

	var exitJump int
	hasTest := n.Test != nil
	if hasTest {
		if err := c.compileExpression(n.Test); err != nil {
			return err
		}
		exitJump = c.emit(bytecode.OpJumpIfFalse, -1, 0)
	}
	if err := c.compileStatement(n.Body); err != nil {
		return err
	}
	continueTarget := c.here()
	if n.Update != nil {
		if err := c.compileExpression(n.Update); err != nil {
			return err
		}
		c.emit(bytecode.OpPop, 0, 0)
	}
	c.emit(bytecode.OpJump, int32(start), 0)
	end := c.here()
	if hasTest {
		c.block.Instrs[exitJump].A = int32(end)
	}
	for _, l := range frame.Continues {
		patchLabel(c.block.Instrs, l, continueTarget)
	}
	for _, l := range frame.Breaks {
		patchLabel(c.block.Instrs, l, end)
	}
	return nil
}

func (c *Compiler) compileForIn(n *ast.ForInStatement) error {
	if err := c.compileExpression(n.Right); err != nil {
		return err
	}
	if n.Of {
		c.emit(bytecode.OpGetIterator, 0, 0)
	} else {
		c.emit(bytecode.OpForInStart, 0, 0)
	}

	start := c.here()
	frame := &JumpControlInfo{Kind: JumpLoop, StartInstr: start, ForOfInLoop: n.Of, BaseScopeDepth: c.scopeDepth}
	c.jumps.push(frame)
	defer c.jumps.pop()

	var exitJump int
	if n.Of {
		exitJump = c.emit(bytecode.OpIteratorNext, -1, 0)
	} else {
		exitJump = c.emit(bytecode.OpForInNext, -1, 0)
	}

	parent := c.scope
	lexicalLeft := false
	if decl, ok := n.Left.(*ast.VariableDeclaration); ok && decl.Kind != "var" {
		c.scope = environment.NewCompileTimeEnvironment(parent, false)
		lexicalLeft = true
		c.pushScope(c.scope)
	}
	switch left := n.Left.(type) {
	case *ast.VariableDeclaration:
		d := left.Declarations[0]
		if left.Kind != "var" {
			c.declareBindingTarget(d.Target, true)
		}
		if err := c.compileBindingInit(d.Target, left.Kind != "const"); err != nil {
			return err
		}
	case ast.Expression:
		if err := c.compileAssignmentTarget(left); err != nil {
			return err
		}
	}

	if err := c.compileStatement(n.Body); err != nil {
		return err
	}
	if lexicalLeft {
		c.popScope()
		c.scope = parent
	}
	c.emit(bytecode.OpJump, int32(start), 0)
	end := c.here()
	c.block.Instrs[exitJump].A = int32(end)
	for _, l := range frame.Continues {
		patchLabel(c.block.Instrs, l, start)
	}
	for _, l := range frame.Breaks {
		patchLabel(c.block.Instrs, l, end)
	}
	return nil
}

func (c *Compiler) patchLoopLabels(frame *JumpControlInfo, continueTarget, end int) {
	for _, l := range frame.Continues {
		patchLabel(c.block.Instrs, l, continueTarget)
	}
	for _, l := range frame.Breaks {
		patchLabel(c.block.Instrs, l, end)
	}
}

func (c *Compiler) compileLabeled(n *ast.LabeledStatement) error {
	frame := &JumpControlInfo{Kind: JumpLabelledBlock, Label: n.Label, StartInstr: c.here(), BaseScopeDepth: c.scopeDepth}
	c.jumps.push(frame)
	if err := c.compileStatement(n.Body); err != nil {
		c.jumps.pop()
		return err
	}
	c.jumps.pop()
	end := c.here()
	for _, l := range frame.Breaks {
		patchLabel(c.block.Instrs, l, end)
	}
	return nil
}

func (c *Compiler) compileTry(n *ast.TryStatement) error {
	handlerIdx := len(c.block.Handlers)
	c.block.Handlers = append(c.block.Handlers, bytecode.ExceptionHandler{})
	tryScopeDepth := c.scopeDepth
	tryStart := c.here()

	if err := c.compileBlock(n.Block.Body); err != nil {
		return err
	}
	jumpOverCatch := c.emit(bytecode.OpJump, -1, 0)
	tryEnd := c.here()

	catchStart := -1
	if n.HasCatch {
		catchStart = c.here()
		c.emit(bytecode.OpPopHandler, 0, 0)
		if n.CatchParam != nil {
			parent := c.scope
			c.scope = environment.NewCompileTimeEnvironment(parent, false)
			c.pushScope(c.scope)
			c.declareBindingTarget(n.CatchParam, true)
			if err := c.compileBindingInit(n.CatchParam, true); err != nil {
				return err
			}
			err := c.compileBlock(n.Catch.Body)
			c.popScope()
			c.scope = parent
			if err != nil {
				return err
			}
		} else {
			c.emit(bytecode.OpPop, 0, 0)
			if err := c.compileBlock(n.Catch.Body); err != nil {
				return err
			}
		}
	}
	c.block.Instrs[jumpOverCatch].A = int32(c.here())

	c.block.Handlers[handlerIdx] = bytecode.ExceptionHandler{
		Start: tryStart, End: tryEnd, Target: catchStart, Kind: bytecode.HandlerCatch, ScopeDepth: tryScopeDepth,
	}

	if n.Finally != nil {
		finallyStart := c.here()
		c.emit(bytecode.OpFinallyEnter, 0, 0)
		if err := c.compileBlock(n.Finally.Body); err != nil {
			return err
		}
		c.emit(bytecode.OpFinallyExit, 0, 0)
		if catchStart == -1 {
			// No catch clause: an exception in the try body goes straight to
			// the finally as a pending completion to re-raise, not a value
			// for a catch prologue to bind, so this handler becomes a
			// finally handler rather than staying a (targetless) catch one.
			c.block.Handlers[handlerIdx].Target = finallyStart
			c.block.Handlers[handlerIdx].Kind = bytecode.HandlerFinally
		}
		c.block.Handlers = append(c.block.Handlers, bytecode.ExceptionHandler{
			Start: tryStart, End: c.here(), Target: finallyStart, Kind: bytecode.HandlerFinally, ScopeDepth: tryScopeDepth,
		})
	}
	return nil
}

func (c *Compiler) compileSwitch(n *ast.SwitchStatement) error {
	if err := c.compileExpression(n.Discriminant); err != nil {
		return err
	}
	frame := &JumpControlInfo{Kind: JumpSwitch, StartInstr: c.here(), BaseScopeDepth: c.scopeDepth}
	c.jumps.push(frame)
	defer c.jumps.pop()

	type pendingCase struct {
		jumpIdx int
		body    []ast.Statement
	}
	var cased []pendingCase
	defaultIdx := -1
	for _, sc := range n.Cases {
		if sc.Test == nil {
			defaultIdx = len(cased)
			cased = append(cased, pendingCase{jumpIdx: -1, body: sc.Body})
			continue
		}
		c.emit(bytecode.OpDup, 0, 0)
		if err := c.compileExpression(sc.Test); err != nil {
			return err
		}
		c.emit(bytecode.OpStrictEq, 0, 0)
		jumpIdx := c.emit(bytecode.OpJumpIfTrue, -1, 0)
		cased = append(cased, pendingCase{jumpIdx: jumpIdx, body: sc.Body})
	}
	c.emit(bytecode.OpPop, 0, 0)
	fallthroughToDefault := c.emit(bytecode.OpJump, -1, 0)

	bodyStarts := make([]int, len(cased))
	for i, pc := range cased {
		bodyStarts[i] = c.here()
		if pc.jumpIdx >= 0 {
			c.block.Instrs[pc.jumpIdx].A = int32(bodyStarts[i])
		}
		c.emit(bytecode.OpPop, 0, 0)
		for _, s := range pc.body {
			if err := c.compileStatement(s); err != nil {
				return err
			}
		}
	}
	end := c.here()
	if defaultIdx >= 0 {
		c.block.Instrs[fallthroughToDefault].A = int32(bodyStarts[defaultIdx])
	} else {
		c.block.Instrs[fallthroughToDefault].A = int32(end)
	}
	for _, l := range frame.Breaks {
		patchLabel(c.block.Instrs, l, end)
	}
	return nil
}

func (c *Compiler) hoistLexical(body []ast.Statement) error {
	for _, s := range body {
		switch n := s.(type) {
		case *ast.VariableDeclaration:
			if n.Kind != "var" {
				for _, d := range n.Declarations {
					c.declareBindingTarget(d.Target, true)
				}
			}
		case *ast.ClassDeclaration:
			c.scope.Declare(n.Class.Name)
		}
	}
	return nil
}
