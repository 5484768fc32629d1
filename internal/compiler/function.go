package compiler

import (
	"fmt"

	"github.com/termfx/ecmacore/internal/ast"
	"github.com/termfx/ecmacore/internal/bytecode"
	"github.com/termfx/ecmacore/internal/environment"
)

// compileFunctionLiteral compiles fn's body into its own CodeBlock, adds
// it to the enclosing block's FunctionTable, and returns its index for
// OpNewFunction to reference. Each function gets a fresh Compiler sharing
// the parent's interner and constant-dedup map is intentionally NOT
// shared (constants are CodeBlock-local, matching the VM executing one
// CodeBlock's constant pool at a time).
func (c *Compiler) compileFunctionLiteral(fn *ast.FunctionLiteral) (int, error) {
	child := &Compiler{
		interner:   c.interner,
		block:      &bytecode.CodeBlock{Name: fn.Name, Strict: c.block.Strict || fn.Strict, Generator: fn.Generator, Async: fn.Async, Arrow: fn.Arrow},
		scope:      environment.NewCompileTimeEnvironment(c.scope, true),
		constIndex: make(map[uint64]int),
	}
	if fn.ClassMethodOf != nil && fn.Name == "constructor" && fn.ClassMethodOf.SuperClass != nil {
		child.block.ClassKind = bytecode.DerivedClassConstructor
		child.inDerivedCtor = true
	} else if fn.ClassMethodOf != nil && fn.Name == "constructor" {
		child.block.ClassKind = bytecode.BaseClassConstructor
	}
	child.inGenerator = fn.Generator
	child.inAsync = fn.Async

	for _, p := range fn.Params {
		child.declareBindingTarget(p.Target, false)
	}
	child.block.NumParams = len(fn.Params)
	for _, p := range fn.Params {
		binding := bytecode.ParamBinding{IsRest: p.Rest, HasDefault: p.Default != nil}
		if id, ok := p.Target.(*ast.IdentifierBinding); ok {
			if _, slot, ok := child.scope.Resolve(id.Name); ok {
				binding.SlotIndex = slot
			}
		}
		child.block.Params = append(child.block.Params, binding)
	}

	if err := child.emitParamBindings(fn.Params); err != nil {
		return 0, err
	}

	if fn.ExprBody != nil {
		if err := child.compileExpression(fn.ExprBody); err != nil {
			return 0, err
		}
		child.emit(bytecode.OpReturn, 0, 0)
	} else {
		if err := child.hoistDeclarations(fn.Body); err != nil {
			return 0, err
		}
		for _, s := range fn.Body {
			if err := child.compileStatement(s); err != nil {
				return 0, err
			}
		}
		child.emit(bytecode.OpLoadUndefined, 0, 0)
		child.emit(bytecode.OpReturn, 0, 0)
	}
	child.block.NumRegisters = child.scope.SlotCount()
	child.block.ScopeDescriptor = &bytecode.ScopeDescriptor{Names: child.scope.Names(), Parent: c.block.ScopeDescriptor}
	child.block.RootScope = child.scope

	idx := len(c.block.FunctionTable)
	c.block.FunctionTable = append(c.block.FunctionTable, child.block)
	return idx, nil
}

// emitParamBindings emits the entry-sequence instructions that copy
// incoming arguments (via OpGetArg) into their declared parameter slots,
// lowering destructured and defaulted parameters the same way a
// declaration's binding target is lowered.
func (c *Compiler) emitParamBindings(params []ast.Parameter) error {
	for i, p := range params {
		if p.Rest {
			c.emit(bytecode.OpGetArg, int32(i), 1) // operand B=1: rest-from-index semantics
		} else {
			c.emit(bytecode.OpGetArg, int32(i), 0)
			if p.Default != nil {
				c.emit(bytecode.OpDup, 0, 0)
				c.emit(bytecode.OpLoadUndefined, 0, 0)
				c.emit(bytecode.OpStrictEq, 0, 0)
				jump := c.emit(bytecode.OpJumpIfFalse, -1, 0)
				// OpGetArg pushes Undefined past the actual argument
				// count, so a missing argument and an explicit undefined
				// both fall through to the default; any other value
				// jumps past it.
				c.emit(bytecode.OpPop, 0, 0)
				if err := c.compileExpression(p.Default); err != nil {
					return err
				}
				c.block.Instrs[jump].A = int32(c.here())
			}
		}
		if err := c.compileBindingInit(p.Target, true); err != nil {
			return err
		}
	}
	return nil
}

// compileClassLiteral lowers a class body into six stack slots the VM's
// OpNewClass assembles into the real constructor/prototype pair: the
// superclass value (or undefined), the constructor function, and four
// member "bags" — plain objects built and filled one at a time via the
// same Define{Method,Getter,Setter,Prop} opcodes object literals use —
// holding instance methods/accessors, instance field-initializer thunks,
// static methods/accessors, and static field/block thunks respectively.
// Every bag is filled in its own pass so only one ever sits on top of the
// stack while its members are being defined, keeping each Define op's
// "peek the object two slots down, pop key+value" contract identical to
// the object-literal case (spec.md §4.6, "function/class emission incl.
// private-name slots and per-instance field initializer CodeBlock").
func (c *Compiler) compileClassLiteral(cls *ast.ClassLiteral) error {
	if cls.SuperClass != nil {
		if err := c.compileExpression(cls.SuperClass); err != nil {
			return err
		}
	} else {
		c.emit(bytecode.OpLoadUndefined, 0, 0)
	}

	var ctorFn *ast.FunctionLiteral
	for _, m := range cls.Members {
		if m.Kind == "constructor" {
			ctorFn = m.Value
			break
		}
	}
	if ctorFn == nil {
		ctorFn = &ast.FunctionLiteral{Name: "constructor", ClassMethodOf: cls}
	}
	ctorIdx, err := c.compileFunctionLiteral(ctorFn)
	if err != nil {
		return err
	}
	c.emit(bytecode.OpNewFunction, int32(ctorIdx), 0)

	c.emit(bytecode.OpNewObject, 0, 0) // instance method/accessor bag
	for _, m := range cls.Members {
		if m.Static || m.Kind == "constructor" {
			continue
		}
		switch m.Kind {
		case "method", "get", "set":
			if err := c.compileClassMember(&m); err != nil {
				return err
			}
		}
	}

	c.emit(bytecode.OpNewObject, 0, 0) // instance field-initializer-thunk bag
	for _, m := range cls.Members {
		if m.Static || m.Kind != "field" {
			continue
		}
		if err := c.compileFieldThunk(&m, 1); err != nil {
			return err
		}
	}

	c.emit(bytecode.OpNewObject, 0, 0) // static method/accessor bag
	for _, m := range cls.Members {
		if !m.Static {
			continue
		}
		switch m.Kind {
		case "method", "get", "set":
			if err := c.compileClassMember(&m); err != nil {
				return err
			}
		}
	}

	c.emit(bytecode.OpNewObject, 0, 0) // static field/static-block thunk bag, run once at class-creation time
	for i, m := range cls.Members {
		switch {
		case m.Static && m.Kind == "field":
			if err := c.compileFieldThunk(&m, 2); err != nil {
				return err
			}
		case m.Kind == "static-block":
			// Static blocks carry no property key of their own; each gets a
			// synthesized one unique within the class so it doesn't collide
			// with (and get silently overwritten by) another static block
			// in the same bag. OpNewClass recognizes the "@@static-block:"
			// prefix to run and discard these rather than storing the
			// thunk's result as a real static property.
			block := &ast.FunctionLiteral{Name: "", Body: m.StaticBlock}
			idx, err := c.compileFunctionLiteral(block)
			if err != nil {
				return err
			}
			key := c.addConst(c.internedString(fmt.Sprintf("@@static-block:%d", i)))
			c.emit(bytecode.OpLoadConst, key, 0)
			c.emit(bytecode.OpNewFunction, int32(idx), 0)
			c.emit(bytecode.OpDefineProp, 3, 0)
		}
	}

	c.emit(bytecode.OpNewClass, 0, 0)
	return nil
}

func (c *Compiler) compileClassMember(m *ast.ClassMember) error {
	idx, err := c.compileFunctionLiteral(m.Value)
	if err != nil {
		return err
	}
	if err := c.compilePropertyKey(m.Key, m.Computed); err != nil {
		return err
	}
	c.emit(bytecode.OpNewFunction, int32(idx), 0)
	switch m.Kind {
	case "get":
		c.emit(bytecode.OpDefineGetter, 0, 0)
	case "set":
		c.emit(bytecode.OpDefineSetter, 0, 0)
	default:
		c.emit(bytecode.OpDefineMethod, 0, 0)
	}
	return nil
}

// compileFieldThunk lowers one field's initializer expression into its own
// zero-argument CodeBlock (run with `this` bound to the instance, or the
// class constructor for a static field) and records it in the current bag
// under flag (1 = instance, 2 = static).
func (c *Compiler) compileFieldThunk(m *ast.ClassMember, flag int32) error {
	fieldInit := &ast.FunctionLiteral{Name: "", Body: nil, ExprBody: m.FieldInit}
	idx, err := c.compileFunctionLiteral(fieldInit)
	if err != nil {
		return err
	}
	if err := c.compilePropertyKey(m.Key, m.Computed); err != nil {
		return err
	}
	c.emit(bytecode.OpNewFunction, int32(idx), 0)
	c.emit(bytecode.OpDefineProp, flag, 0)
	return nil
}

func boolOp(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
