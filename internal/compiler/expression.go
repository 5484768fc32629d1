package compiler

import (
	"github.com/termfx/ecmacore/internal/ast"
	"github.com/termfx/ecmacore/internal/bytecode"
	"github.com/termfx/ecmacore/internal/object"
	"github.com/termfx/ecmacore/internal/value"
)

func (c *Compiler) compileExpression(e ast.Expression) error {
	switch n := e.(type) {
	case *ast.NumberLiteral:
		if i := int32(n.Value); float64(i) == n.Value {
			c.emit(bytecode.OpLoadConst, c.addConst(value.Integer32(i)), 0)
			return nil
		}
		c.emit(bytecode.OpLoadConst, c.addConst(value.Number(n.Value)), 0)
		return nil
	case *ast.StringLiteral:
		c.emit(bytecode.OpLoadConst, c.addConst(c.internedString(n.Value)), 0)
		return nil
	case *ast.BooleanLiteral:
		if n.Value {
			c.emit(bytecode.OpLoadTrue, 0, 0)
		} else {
			c.emit(bytecode.OpLoadFalse, 0, 0)
		}
		return nil
	case *ast.NullLiteral:
		c.emit(bytecode.OpLoadNull, 0, 0)
		return nil
	case *ast.ThisExpression:
		c.emit(bytecode.OpLoadThis, 0, 0)
		return nil
	case *ast.Identifier:
		return c.loadBinding(n.Name, n.Pos())
	case *ast.IdentifierBinding:
		return c.loadBinding(n.Name, n.Pos())

	case *ast.ArrayLiteral:
		return c.compileArrayLiteral(n)
	case *ast.ObjectLiteral:
		return c.compileObjectLiteral(n)
	case *ast.TemplateLiteral:
		return c.compileTemplateLiteral(n)
	case *ast.FunctionLiteral:
		idx, err := c.compileFunctionLiteral(n)
		if err != nil {
			return err
		}
		c.emit(bytecode.OpNewFunction, int32(idx), 0)
		return nil
	case *ast.ClassLiteral:
		return c.compileClassLiteral(n)

	case *ast.UnaryExpression:
		return c.compileUnary(n)
	case *ast.UpdateExpression:
		return c.compileUpdate(n)
	case *ast.BinaryExpression:
		return c.compileBinary(n)
	case *ast.LogicalExpression:
		return c.compileLogical(n)
	case *ast.ConditionalExpression:
		return c.compileConditional(n)
	case *ast.AssignmentExpression:
		return c.compileAssignment(n)
	case *ast.SequenceExpression:
		for i, ex := range n.Expressions {
			if err := c.compileExpression(ex); err != nil {
				return err
			}
			if i < len(n.Expressions)-1 {
				c.emit(bytecode.OpPop, 0, 0)
			}
		}
		return nil

	case *ast.CallExpression:
		return c.compileCall(n)
	case *ast.NewExpression:
		return c.compileNew(n)
	case *ast.MemberExpression:
		return c.compileMemberRead(n)
	case *ast.SuperExpression:
		// Only valid as the object of a member access or the callee of a
		// call, both handled before ever reaching here (compileMemberRead,
		// compileMemberWrite, compileCall).
		return c.errf(n.Pos(), "'super' keyword is only valid inside a class method")

	case *ast.YieldExpression:
		if n.Argument != nil {
			if err := c.compileExpression(n.Argument); err != nil {
				return err
			}
		} else {
			c.emit(bytecode.OpLoadUndefined, 0, 0)
		}
		if n.Delegate {
			c.emit(bytecode.OpYieldStar, 0, 0)
		} else {
			c.emit(bytecode.OpYield, 0, 0)
		}
		return nil
	case *ast.AwaitExpression:
		if err := c.compileExpression(n.Argument); err != nil {
			return err
		}
		c.emit(bytecode.OpAwait, 0, 0)
		return nil

	case *ast.SpreadElement:
		return c.compileExpression(n.Argument)

	default:
		return c.errf(e.Pos(), "compiler: unsupported expression %T", e)
	}
}

// internedString wraps s as a String-kind Value. Constant-pool strings are
// permanent for the lifetime of their CodeBlock and are never individually
// heap-allocated/traced; the VM roots the whole constant pool instead.
func (c *Compiler) internedString(s string) value.Value {
	return value.NewString(s)
}

func (c *Compiler) compileArrayLiteral(n *ast.ArrayLiteral) error {
	hasSpread := false
	for _, el := range n.Elements {
		if _, ok := el.(*ast.SpreadElement); ok {
			hasSpread = true
			break
		}
	}
	if !hasSpread {
		for _, el := range n.Elements {
			if el == nil {
				c.emit(bytecode.OpLoadUndefined, 0, 0)
				continue
			}
			if err := c.compileExpression(el); err != nil {
				return err
			}
		}
		c.emit(bytecode.OpNewArray, int32(len(n.Elements)), 0)
		return nil
	}
	return c.compileSpreadElements(n.Elements)
}

// compileSpreadElements builds a single array value from a mix of plain
// and `...spread` elements, leaving just that array on the stack. Plain
// elements are wrapped as a one-element array so OpSpreadInto — which
// flattens any iterable into the array beneath it — can treat every
// element the same way; this sidesteps needing a per-argument spread flag
// in the instruction stream, at the cost of one throwaway array per plain
// element in a literal that has at least one real spread.
func (c *Compiler) compileSpreadElements(elements []ast.Expression) error {
	c.emit(bytecode.OpNewArray, 0, 0)
	for _, el := range elements {
		if el == nil {
			c.emit(bytecode.OpLoadUndefined, 0, 0)
			c.emit(bytecode.OpNewArray, 1, 0)
		} else if spread, ok := el.(*ast.SpreadElement); ok {
			if err := c.compileExpression(spread.Argument); err != nil {
				return err
			}
		} else {
			if err := c.compileExpression(el); err != nil {
				return err
			}
			c.emit(bytecode.OpNewArray, 1, 0)
		}
		c.emit(bytecode.OpSpreadInto, 0, 0)
	}
	return nil
}

func (c *Compiler) compileObjectLiteral(n *ast.ObjectLiteral) error {
	c.emit(bytecode.OpNewObject, 0, 0)
	for _, p := range n.Properties {
		switch p.Kind {
		case "spread":
			if err := c.compileExpression(p.Value); err != nil {
				return err
			}
			c.emit(bytecode.OpSpreadInto, 0, 0)
			continue
		}
		if err := c.compilePropertyKey(p.Key, p.Computed); err != nil {
			return err
		}
		if err := c.compileExpression(p.Value); err != nil {
			return err
		}
		switch p.Kind {
		case "get":
			c.emit(bytecode.OpDefineGetter, 0, 0)
		case "set":
			c.emit(bytecode.OpDefineSetter, 0, 0)
		case "method":
			c.emit(bytecode.OpDefineMethod, 0, 0)
		default:
			c.emit(bytecode.OpDefineProp, 0, 0)
		}
	}
	return nil
}

func (c *Compiler) compilePropertyKey(key ast.Expression, computed bool) error {
	if computed {
		return c.compileExpression(key)
	}
	switch k := key.(type) {
	case *ast.Identifier:
		c.emit(bytecode.OpLoadConst, c.addConst(c.internedString(k.Name)), 0)
		return nil
	case *ast.StringLiteral:
		c.emit(bytecode.OpLoadConst, c.addConst(c.internedString(k.Value)), 0)
		return nil
	case *ast.NumberLiteral:
		c.emit(bytecode.OpLoadConst, c.addConst(value.Number(k.Value)), 0)
		return nil
	default:
		return c.compileExpression(key)
	}
}

func (c *Compiler) compileTemplateLiteral(n *ast.TemplateLiteral) error {
	c.emit(bytecode.OpLoadConst, c.addConst(c.internedString(n.Quasis[0])), 0)
	for i, expr := range n.Expressions {
		if err := c.compileExpression(expr); err != nil {
			return err
		}
		c.emit(bytecode.OpToString, 0, 0)
		c.emit(bytecode.OpAdd, 0, 0)
		c.emit(bytecode.OpLoadConst, c.addConst(c.internedString(n.Quasis[i+1])), 0)
		c.emit(bytecode.OpAdd, 0, 0)
	}
	return nil
}

func (c *Compiler) compileUnary(n *ast.UnaryExpression) error {
	if n.Operator == "typeof" {
		if id, ok := n.Argument.(*ast.Identifier); ok {
			if _, _, found := c.scope.Resolve(id.Name); !found {
				c.emit(bytecode.OpGetDynamic, c.addConst(c.internedString(id.Name)), 1) // operand B=1: suppress ReferenceError
				c.emit(bytecode.OpTypeof, 0, 0)
				return nil
			}
		}
	}
	if n.Operator == "delete" {
		return c.compileDelete(n.Argument)
	}
	if err := c.compileExpression(n.Argument); err != nil {
		return err
	}
	switch n.Operator {
	case "-":
		c.emit(bytecode.OpNeg, 0, 0)
	case "+":
		c.emit(bytecode.OpPos, 0, 0)
	case "!":
		c.emit(bytecode.OpNot, 0, 0)
	case "~":
		c.emit(bytecode.OpBitNot, 0, 0)
	case "typeof":
		c.emit(bytecode.OpTypeof, 0, 0)
	case "void":
		c.emit(bytecode.OpPop, 0, 0)
		c.emit(bytecode.OpLoadUndefined, 0, 0)
	default:
		return c.errf(n.Pos(), "compiler: unsupported unary operator %q", n.Operator)
	}
	return nil
}

// compileDelete lowers `delete expr`. Only a property reference can
// actually be removed; deleting a plain binding reference is a no-op that
// evaluates to true (strict-mode `delete` of an unqualified name is a
// SyntaxError the parser's early-error pass rejects before this is
// reached).
func (c *Compiler) compileDelete(arg ast.Expression) error {
	m, ok := arg.(*ast.MemberExpression)
	if !ok {
		c.emit(bytecode.OpLoadTrue, 0, 0)
		return nil
	}
	if err := c.compileExpression(m.Object); err != nil {
		return err
	}
	if err := c.compilePropertyKey(m.Property, m.Computed); err != nil {
		return err
	}
	c.emit(bytecode.OpDeleteProp, 0, 0)
	return nil
}

func (c *Compiler) compileUpdate(n *ast.UpdateExpression) error {
	if err := c.compileExpression(n.Argument); err != nil {
		return err
	}
	if !n.Prefix {
		c.emit(bytecode.OpDup, 0, 0)
	}
	if n.Operator == "++" {
		c.emit(bytecode.OpInc, 0, 0)
	} else {
		c.emit(bytecode.OpDec, 0, 0)
	}
	// Postfix: [old, new] -- the store writes new, the Pop below leaves old.
	if err := c.compileAssignmentTarget(n.Argument); err != nil {
		return err
	}
	if !n.Prefix {
		c.emit(bytecode.OpPop, 0, 0)
	}
	return nil
}

var binaryOps = map[string]bytecode.Op{
	"+": bytecode.OpAdd, "-": bytecode.OpSub, "*": bytecode.OpMul, "/": bytecode.OpDiv,
	"%": bytecode.OpMod, "**": bytecode.OpPow, "&": bytecode.OpBitAnd, "|": bytecode.OpBitOr,
	"^": bytecode.OpBitXor, "<<": bytecode.OpShl, ">>": bytecode.OpShr, ">>>": bytecode.OpUShr,
	"==": bytecode.OpEq, "!=": bytecode.OpNotEq, "===": bytecode.OpStrictEq, "!==": bytecode.OpStrictNotEq,
	"<": bytecode.OpLt, "<=": bytecode.OpLte, ">": bytecode.OpGt, ">=": bytecode.OpGte,
	"instanceof": bytecode.OpInstanceOf, "in": bytecode.OpInProp,
}

func (c *Compiler) compileBinary(n *ast.BinaryExpression) error {
	if err := c.compileExpression(n.Left); err != nil {
		return err
	}
	if err := c.compileExpression(n.Right); err != nil {
		return err
	}
	op, ok := binaryOps[n.Operator]
	if !ok {
		return c.errf(n.Pos(), "compiler: unsupported binary operator %q", n.Operator)
	}
	c.emit(op, 0, 0)
	return nil
}

func (c *Compiler) compileLogical(n *ast.LogicalExpression) error {
	if err := c.compileExpression(n.Left); err != nil {
		return err
	}
	c.emit(bytecode.OpDup, 0, 0)
	var jump int
	switch n.Operator {
	case "&&":
		jump = c.emit(bytecode.OpJumpIfFalse, -1, 0)
	case "||":
		jump = c.emit(bytecode.OpJumpIfTrue, -1, 0)
	default: // "??"
		jump = c.emit(bytecode.OpJumpIfNullish, -1, 0)
		c.block.Instrs[jump].Op = bytecode.OpJumpIfNullish
	}
	c.emit(bytecode.OpPop, 0, 0)
	if err := c.compileExpression(n.Right); err != nil {
		return err
	}
	c.block.Instrs[jump].A = int32(c.here())
	return nil
}

func (c *Compiler) compileConditional(n *ast.ConditionalExpression) error {
	if err := c.compileExpression(n.Test); err != nil {
		return err
	}
	jumpElse := c.emit(bytecode.OpJumpIfFalse, -1, 0)
	if err := c.compileExpression(n.Consequent); err != nil {
		return err
	}
	jumpEnd := c.emit(bytecode.OpJump, -1, 0)
	c.block.Instrs[jumpElse].A = int32(c.here())
	if err := c.compileExpression(n.Alternate); err != nil {
		return err
	}
	c.block.Instrs[jumpEnd].A = int32(c.here())
	return nil
}

func (c *Compiler) compileAssignment(n *ast.AssignmentExpression) error {
	if n.Operator == "=" {
		if err := c.compileExpression(n.Value); err != nil {
			return err
		}
		if bt, ok := n.Target.(ast.BindingTarget); ok {
			if _, isIdent := n.Target.(*ast.IdentifierBinding); !isIdent {
				return c.compileDestructuringAssign(bt)
			}
		}
		return c.compileAssignmentTarget(n.Target.(ast.Expression))
	}

	compound := map[string]bytecode.Op{
		"+=": bytecode.OpAdd, "-=": bytecode.OpSub, "*=": bytecode.OpMul, "/=": bytecode.OpDiv,
		"%=": bytecode.OpMod, "**=": bytecode.OpPow, "&=": bytecode.OpBitAnd, "|=": bytecode.OpBitOr,
		"^=": bytecode.OpBitXor, "<<=": bytecode.OpShl, ">>=": bytecode.OpShr, ">>>=": bytecode.OpUShr,
	}
	targetExpr := n.Target.(ast.Expression)
	if op, ok := compound[n.Operator]; ok {
		if err := c.compileExpression(targetExpr); err != nil {
			return err
		}
		if err := c.compileExpression(n.Value); err != nil {
			return err
		}
		c.emit(op, 0, 0)
		return c.compileAssignmentTarget(targetExpr)
	}

	// Logical assignment: &&=, ||=, ??=
	if err := c.compileExpression(targetExpr); err != nil {
		return err
	}
	c.emit(bytecode.OpDup, 0, 0)
	var jump int
	switch n.Operator {
	case "&&=":
		jump = c.emit(bytecode.OpJumpIfFalse, -1, 0)
	case "||=":
		jump = c.emit(bytecode.OpJumpIfTrue, -1, 0)
	default:
		jump = c.emit(bytecode.OpJumpIfNullish, -1, 0)
	}
	c.emit(bytecode.OpPop, 0, 0)
	if err := c.compileExpression(n.Value); err != nil {
		return err
	}
	if err := c.compileAssignmentTarget(targetExpr); err != nil {
		return err
	}
	c.block.Instrs[jump].A = int32(c.here())
	return nil
}

// compileAssignmentTarget emits the store half of an assignment, assuming
// the value to store is on top of the value stack and is left on the
// stack afterward (matching `(x = v)` evaluating to v).
func (c *Compiler) compileAssignmentTarget(target ast.Expression) error {
	switch t := target.(type) {
	case *ast.Identifier:
		if err := c.storeBinding(t.Name, t.Pos()); err != nil {
			return err
		}
		return nil
	case *ast.IdentifierBinding:
		return c.storeBinding(t.Name, t.Pos())
	case *ast.MemberExpression:
		return c.compileMemberWrite(t)
	default:
		return c.errf(target.Pos(), "compiler: invalid assignment target %T", target)
	}
}

func (c *Compiler) compileMemberRead(n *ast.MemberExpression) error {
	if _, ok := n.Object.(*ast.SuperExpression); ok {
		// super.prop resolves against [[HomeObject]].[[GetPrototypeOf]](),
		// not against any value on the stack, so there's no object to
		// compile here — just the key, and a dedicated opcode that reads
		// the running method's super base out of the environment.
		if err := c.compileSuperKey(n); err != nil {
			return err
		}
		c.emit(bytecode.OpGetSuperProp, 0, 0)
		return nil
	}
	if err := c.compileExpression(n.Object); err != nil {
		return err
	}
	if n.Computed {
		if err := c.compileExpression(n.Property); err != nil {
			return err
		}
		c.emit(bytecode.OpGetElem, 0, 0)
		return nil
	}
	key := n.Property.(*ast.Identifier)
	site := c.newInlineCacheSite()
	c.emit(bytecode.OpLoadConst, c.addConst(c.internedString(key.Name)), 0)
	c.emit(bytecode.OpGetPropIC, int32(site), 0)
	return nil
}

// compileSuperKey emits just the property key half of a super.prop /
// super[expr] access (computed or named), leaving it alone on the stack.
func (c *Compiler) compileSuperKey(n *ast.MemberExpression) error {
	if n.Computed {
		return c.compileExpression(n.Property)
	}
	key := n.Property.(*ast.Identifier)
	c.emit(bytecode.OpLoadConst, c.addConst(c.internedString(key.Name)), 0)
	return nil
}

// compileMemberWrite emits the store half of `obj.prop = value` /
// `obj[expr] = value`. On entry the stack holds just the value to store;
// this reorders it beneath the freshly-evaluated object and key so the
// VM's SetElem/SetPropIC see [object, key, value] with value on top.
func (c *Compiler) compileMemberWrite(n *ast.MemberExpression) error {
	if _, ok := n.Object.(*ast.SuperExpression); ok {
		// entry: [value]. super.prop has no object on the stack, so just
		// append the key and let OpSetSuperProp resolve the super base
		// itself; stack shape [key, value] matches OpSetElem/OpSetPropIC's
		// convention with the object slot simply omitted.
		if err := c.compileSuperKey(n); err != nil { // [value, key]
			return err
		}
		c.emit(bytecode.OpSwap, 0, 0) // [key, value]
		c.emit(bytecode.OpSetSuperProp, 0, 0)
		return nil
	}
	if err := c.compileExpression(n.Object); err != nil { // [value, object]
		return err
	}
	c.emit(bytecode.OpSwap, 0, 0) // [object, value]
	if n.Computed {
		if err := c.compileExpression(n.Property); err != nil { // [object, value, key]
			return err
		}
		c.emit(bytecode.OpSwap, 0, 0) // [object, key, value]
		c.emit(bytecode.OpSetElem, 0, 0)
		return nil
	}
	key := n.Property.(*ast.Identifier)
	site := c.newInlineCacheSite()
	c.emit(bytecode.OpLoadConst, c.addConst(c.internedString(key.Name)), 0) // [object, value, key]
	c.emit(bytecode.OpSwap, 0, 0)                                            // [object, key, value]
	c.emit(bytecode.OpSetPropIC, int32(site), 0)
	return nil
}

func (c *Compiler) newInlineCacheSite() int {
	idx := len(c.block.InlineCaches)
	c.block.InlineCaches = append(c.block.InlineCaches, object.InlineCacheSite{})
	return idx
}

func (c *Compiler) hasSpreadArg(args []ast.Expression) bool {
	for _, a := range args {
		if _, ok := a.(*ast.SpreadElement); ok {
			return true
		}
	}
	return false
}

// compileArgs emits n's arguments in whichever shape the caller's opcode
// expects: a flat run of N values for the plain OpCall/OpConstruct, or a
// single prebuilt array (see compileSpreadElements) for their *Spread
// counterparts, which take their argument list as one value already
// flattened rather than a variable flat count.
func (c *Compiler) compileArgs(args []ast.Expression) (spread bool, err error) {
	if c.hasSpreadArg(args) {
		return true, c.compileSpreadElements(args)
	}
	for _, a := range args {
		if err := c.compileExpression(a); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (c *Compiler) compileCall(n *ast.CallExpression) error {
	if _, ok := n.Callee.(*ast.SuperExpression); ok {
		// Bare super(...) call: runs the superclass constructor against the
		// instance under construction. OpSuperCall resolves the target and
		// binds `this` in the current frame itself; no callee/this pair is
		// needed on the stack, just the arguments.
		spread, err := c.compileArgs(n.Args)
		if err != nil {
			return err
		}
		c.emit(bytecode.OpSuperCall, int32(len(n.Args)), boolOp(spread))
		return nil
	}
	if callee, ok := n.Callee.(*ast.MemberExpression); ok {
		if _, isSuper := callee.Object.(*ast.SuperExpression); isSuper {
			// super.method(...): receiver is the current `this`, method is
			// looked up starting at the home object's prototype.
			c.emit(bytecode.OpLoadThis, 0, 0)
			if err := c.compileSuperKey(callee); err != nil {
				return err
			}
			c.emit(bytecode.OpGetSuperProp, 0, 0)
		} else {
			if err := c.compileExpression(callee.Object); err != nil {
				return err
			}
			c.emit(bytecode.OpDup, 0, 0)
			if callee.Computed {
				if err := c.compileExpression(callee.Property); err != nil {
					return err
				}
				c.emit(bytecode.OpGetElem, 0, 0)
			} else {
				key := callee.Property.(*ast.Identifier)
				site := c.newInlineCacheSite()
				c.emit(bytecode.OpLoadConst, c.addConst(c.internedString(key.Name)), 0)
				c.emit(bytecode.OpGetPropIC, int32(site), 0)
			}
		}
	} else {
		c.emit(bytecode.OpLoadUndefined, 0, 0)
		if err := c.compileExpression(n.Callee); err != nil {
			return err
		}
	}
	spread, err := c.compileArgs(n.Args)
	if err != nil {
		return err
	}
	if spread {
		c.emit(bytecode.OpCallSpread, 0, 0)
	} else {
		c.emit(bytecode.OpCall, int32(len(n.Args)), 0)
	}
	return nil
}

func (c *Compiler) compileNew(n *ast.NewExpression) error {
	if err := c.compileExpression(n.Callee); err != nil {
		return err
	}
	spread, err := c.compileArgs(n.Args)
	if err != nil {
		return err
	}
	if spread {
		c.emit(bytecode.OpConstructSpread, 0, 0)
	} else {
		c.emit(bytecode.OpConstruct, int32(len(n.Args)), 0)
	}
	return nil
}
