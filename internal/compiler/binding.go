package compiler

import (
	"github.com/termfx/ecmacore/internal/ast"
	"github.com/termfx/ecmacore/internal/bytecode"
)

// loadBinding emits the read side of resolving name: a fast (hops, slot)
// lookup when static scope analysis finds it, a global-name lookup when
// name is unresolved at the top-level/global scope, or a dynamic-name
// lookup when some enclosing scope has been poisoned by eval/with
// (spec.md §4.6).
func (c *Compiler) loadBinding(name string, pos ast.Position) error {
	if hops, slot, ok := c.scope.Resolve(name); ok {
		c.emit(bytecode.OpGetLocal, int32(hops), int32(slot))
		return nil
	}
	if c.anyScopePoisoned() {
		c.emit(bytecode.OpGetDynamic, c.addConst(c.internedString(name)), 0)
		return nil
	}
	c.emit(bytecode.OpGetGlobal, c.addConst(c.internedString(name)), 0)
	return nil
}

// storeBinding emits the write side, mirroring loadBinding's resolution
// order. The value to store must already be on top of the stack; it is
// left there afterward.
func (c *Compiler) storeBinding(name string, pos ast.Position) error {
	if hops, slot, ok := c.scope.Resolve(name); ok {
		c.emit(bytecode.OpSetLocal, int32(hops), int32(slot))
		return nil
	}
	if c.anyScopePoisoned() {
		c.emit(bytecode.OpSetDynamic, c.addConst(c.internedString(name)), 0)
		return nil
	}
	c.emit(bytecode.OpSetGlobal, c.addConst(c.internedString(name)), 0)
	return nil
}

func (c *Compiler) anyScopePoisoned() bool {
	for s := c.scope; s != nil; s = s.Parent() {
		if s.Poisoned() {
			return true
		}
	}
	return false
}

// compileBindingInit emits the initializing write for a fresh declaration
// (let/const/class or a var's first assignment at hoist time), lowering
// destructuring patterns into their component stores (spec.md §4.6,
// "destructuring lowering"). The value being bound must already be on top
// of the stack; it is consumed.
func (c *Compiler) compileBindingInit(target ast.BindingTarget, mutable bool) error {
	switch t := target.(type) {
	case *ast.IdentifierBinding:
		mutableFlag := int32(0)
		if mutable {
			mutableFlag = 1
		}
		if hops, slot, ok := c.scope.Resolve(t.Name); ok {
			// B packs the slot and the mutability bit together: a negative B
			// (-(slot+1)) marks an immutable (const) slot, a non-negative B
			// marks a mutable one. Slots are always >= 0, so the sign bit is
			// free to carry this without a third operand.
			b := int32(slot)
			if !mutable {
				b = -(int32(slot) + 1)
			}
			c.emit(bytecode.OpInitLocal, int32(hops), b)
		} else {
			c.emit(bytecode.OpInitGlobal, c.addConst(c.internedString(t.Name)), mutableFlag)
		}
		return nil
	case *ast.ArrayBindingPattern:
		return c.compileArrayBindingInit(t, mutable)
	case *ast.ObjectBindingPattern:
		return c.compileObjectBindingInit(t, mutable)
	default:
		return c.errf(target.Pos(), "compiler: unsupported binding target %T", target)
	}
}

func (c *Compiler) compileArrayBindingInit(t *ast.ArrayBindingPattern, mutable bool) error {
	c.emit(bytecode.OpGetIterator, 0, 0)
	for _, el := range t.Elements {
		c.emit(bytecode.OpIteratorNext, -1, 0)
		if el.Target == nil {
			c.emit(bytecode.OpPop, 0, 0)
			continue
		}
		if el.Default != nil {
			c.emit(bytecode.OpDup, 0, 0)
			jump := c.emit(bytecode.OpJumpIfFalse, -1, 0)
			c.emit(bytecode.OpPop, 0, 0)
			if err := c.compileExpression(el.Default); err != nil {
				return err
			}
			c.block.Instrs[jump].A = int32(c.here())
		}
		if err := c.compileBindingInit(el.Target, mutable); err != nil {
			return err
		}
	}
	if t.Rest != nil {
		c.emit(bytecode.OpIteratorClose, 0, 0)
		if err := c.compileBindingInit(t.Rest, mutable); err != nil {
			return err
		}
		return nil
	}
	c.emit(bytecode.OpIteratorClose, 0, 0)
	return nil
}

func (c *Compiler) compileObjectBindingInit(t *ast.ObjectBindingPattern, mutable bool) error {
	for _, p := range t.Properties {
		c.emit(bytecode.OpDup, 0, 0)
		if err := c.compilePropertyKey(p.Key, p.Computed); err != nil {
			return err
		}
		c.emit(bytecode.OpGetElem, 0, 0)
		if p.Default != nil {
			c.emit(bytecode.OpDup, 0, 0)
			jump := c.emit(bytecode.OpJumpIfFalse, -1, 0)
			c.emit(bytecode.OpPop, 0, 0)
			if err := c.compileExpression(p.Default); err != nil {
				return err
			}
			c.block.Instrs[jump].A = int32(c.here())
		}
		if err := c.compileBindingInit(p.Target, mutable); err != nil {
			return err
		}
	}
	c.emit(bytecode.OpPop, 0, 0)
	return nil
}

// compileDestructuringAssign lowers `[a, b] = expr` / `{a, b} = expr`
// assignment-expression targets (as opposed to declaration targets, which
// go through compileBindingInit). The source value is already on the
// stack.
func (c *Compiler) compileDestructuringAssign(target ast.BindingTarget) error {
	switch t := target.(type) {
	case *ast.ArrayBindingPattern:
		c.emit(bytecode.OpGetIterator, 0, 0)
		for _, el := range t.Elements {
			c.emit(bytecode.OpIteratorNext, -1, 0)
			if el.Target == nil {
				c.emit(bytecode.OpPop, 0, 0)
				continue
			}
			if assignable, ok := el.Target.(ast.Expression); ok {
				if err := c.compileAssignmentTarget(assignable); err != nil {
					return err
				}
				c.emit(bytecode.OpPop, 0, 0)
				continue
			}
			if err := c.compileDestructuringAssign(el.Target); err != nil {
				return err
			}
		}
		c.emit(bytecode.OpIteratorClose, 0, 0)
		return nil
	case *ast.ObjectBindingPattern:
		for _, p := range t.Properties {
			c.emit(bytecode.OpDup, 0, 0)
			if err := c.compilePropertyKey(p.Key, p.Computed); err != nil {
				return err
			}
			c.emit(bytecode.OpGetElem, 0, 0)
			if assignable, ok := p.Target.(ast.Expression); ok {
				if err := c.compileAssignmentTarget(assignable); err != nil {
					return err
				}
				c.emit(bytecode.OpPop, 0, 0)
				continue
			}
			if err := c.compileDestructuringAssign(p.Target); err != nil {
				return err
			}
		}
		c.emit(bytecode.OpPop, 0, 0)
		return nil
	default:
		return c.errf(target.Pos(), "compiler: unsupported destructuring target %T", target)
	}
}
