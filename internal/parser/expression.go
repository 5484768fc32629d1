package parser

import (
	"github.com/termfx/ecmacore/internal/ast"
	"github.com/termfx/ecmacore/internal/lexer"
)

// parseExpression parses a full Expression production, including the
// comma operator (spec.md §4.4).
func (p *Parser) parseExpression() (ast.Expression, error) {
	pos := p.cur.Pos
	first, err := p.parseAssignExpression()
	if err != nil {
		return nil, err
	}
	if !p.isPunct(",") {
		return first, nil
	}
	exprs := []ast.Expression{first}
	for p.isPunct(",") {
		p.advance()
		e, err := p.parseAssignExpression()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	return &ast.SequenceExpression{Base: ast.Base{At: pos}, Expressions: exprs}, nil
}

// binaryPrecedence maps an infix operator token to its binding power.
// Higher binds tighter. Grouped by ECMA-262's operator precedence table
// (spec.md §4.4, "expression grammar with correct operator precedence").
var binaryPrecedence = map[string]int{
	"??": 1,
	"||": 2,
	"&&": 3,
	"|":  4,
	"^":  5,
	"&":  6,
	"==": 7, "!=": 7, "===": 7, "!==": 7,
	"<": 8, ">": 8, "<=": 8, ">=": 8, "in": 8, "instanceof": 8,
	"<<": 9, ">>": 9, ">>>": 9,
	"+": 10, "-": 10,
	"*": 11, "/": 11, "%": 11,
	"**": 12,
}

func (p *Parser) currentBinaryOp() (string, bool) {
	if p.cur.Type == lexer.Punctuator {
		if _, ok := binaryPrecedence[p.cur.Value]; ok {
			return p.cur.Value, true
		}
		return "", false
	}
	if p.cur.Type == lexer.Keyword && (p.cur.Value == "in" || p.cur.Value == "instanceof") {
		return p.cur.Value, true
	}
	return "", false
}

// parseAssignExpression parses the lowest-precedence assignment
// production, trying conditional/binary expressions first and
// reinterpreting the left side as an assignment target (or destructuring
// pattern) if an assignment operator follows.
func (p *Parser) parseAssignExpression() (ast.Expression, error) {
	if p.isKeyword("yield") {
		return p.parseYieldExpression()
	}
	if arrow, ok, err := p.tryParseArrowFunction(); err != nil {
		return nil, err
	} else if ok {
		return arrow, nil
	}

	pos := p.cur.Pos
	left, err := p.parseConditionalExpression()
	if err != nil {
		return nil, err
	}

	if p.cur.Type == lexer.Punctuator && isAssignOp(p.cur.Value) {
		op := p.cur.Value
		p.advance()
		right, err := p.parseAssignExpression()
		if err != nil {
			return nil, err
		}
		var target ast.Node = left
		if op == "=" {
			if pat, ok := exprToBindingPattern(left); ok {
				target = pat
			}
		}
		return &ast.AssignmentExpression{Base: ast.Base{At: pos}, Operator: op, Target: target, Value: right}, nil
	}
	return left, nil
}

func isAssignOp(v string) bool {
	switch v {
	case "=", "+=", "-=", "*=", "/=", "%=", "**=", "<<=", ">>=", ">>>=", "&=", "|=", "^=", "&&=", "||=", "??=":
		return true
	default:
		return false
	}
}

// exprToBindingPattern reinterprets an already-parsed ArrayLiteral or
// ObjectLiteral as the corresponding destructuring pattern, since the
// grammar cannot tell `[a, b] = x` from an array literal until the `=` is
// seen (spec.md §4.4, "destructuring pattern parsing ... reused for both
// declarations and assignment targets").
func exprToBindingPattern(e ast.Expression) (ast.BindingTarget, bool) {
	switch t := e.(type) {
	case *ast.ArrayLiteral:
		pat := &ast.ArrayBindingPattern{Base: ast.Base{At: t.Pos()}}
		for _, el := range t.Elements {
			if el == nil {
				pat.Elements = append(pat.Elements, ast.ArrayBindingElement{})
				continue
			}
			if spread, ok := el.(*ast.SpreadElement); ok {
				if target, ok := exprToAssignTarget(spread.Argument); ok {
					pat.Rest = target
				}
				continue
			}
			if assign, ok := el.(*ast.AssignmentExpression); ok && assign.Operator == "=" {
				target, ok := assign.Target.(ast.BindingTarget)
				if !ok {
					target, _ = exprToAssignTarget(assign.Target.(ast.Expression))
				}
				pat.Elements = append(pat.Elements, ast.ArrayBindingElement{Target: target, Default: assign.Value})
				continue
			}
			target, ok := exprToAssignTarget(el)
			if !ok {
				return nil, false
			}
			pat.Elements = append(pat.Elements, ast.ArrayBindingElement{Target: target})
		}
		return pat, true
	case *ast.ObjectLiteral:
		pat := &ast.ObjectBindingPattern{Base: ast.Base{At: t.Pos()}}
		for _, prop := range t.Properties {
			if prop.Kind == "spread" {
				if target, ok := exprToAssignTarget(prop.Value); ok {
					pat.Rest = target
				}
				continue
			}
			v := prop.Value
			var def ast.Expression
			if assign, ok := v.(*ast.AssignmentExpression); ok && assign.Operator == "=" {
				def = assign.Value
				if bt, ok := assign.Target.(ast.BindingTarget); ok {
					pat.Properties = append(pat.Properties, ast.ObjectBindingProperty{Key: prop.Key, Computed: prop.Computed, Target: bt, Default: def})
					continue
				}
				v = assign.Target.(ast.Expression)
			}
			target, ok := exprToAssignTarget(v)
			if !ok {
				return nil, false
			}
			pat.Properties = append(pat.Properties, ast.ObjectBindingProperty{Key: prop.Key, Computed: prop.Computed, Target: target, Default: def})
		}
		return pat, true
	default:
		return nil, false
	}
}

func exprToAssignTarget(e ast.Expression) (ast.BindingTarget, bool) {
	switch t := e.(type) {
	case *ast.Identifier:
		return &ast.IdentifierBinding{Base: ast.Base{At: t.Pos()}, Name: t.Name}, true
	case *ast.IdentifierBinding:
		return t, true
	case *ast.ArrayLiteral, *ast.ObjectLiteral:
		return exprToBindingPattern(e)
	default:
		return nil, false
	}
}

func (p *Parser) parseYieldExpression() (ast.Expression, error) {
	pos := p.cur.Pos
	p.advance()
	delegate := false
	if p.isPunct("*") {
		delegate = true
		p.advance()
	}
	expr := &ast.YieldExpression{Base: ast.Base{At: pos}, Delegate: delegate}
	if !p.cur.NewlineBefore && !p.isPunct(")") && !p.isPunct("]") && !p.isPunct("}") && !p.isPunct(",") && !p.isPunct(";") && p.cur.Type != lexer.EOF {
		arg, err := p.parseAssignExpression()
		if err != nil {
			return nil, err
		}
		expr.Argument = arg
	}
	return expr, nil
}

func (p *Parser) parseConditionalExpression() (ast.Expression, error) {
	pos := p.cur.Pos
	test, err := p.parseBinaryExpression(0)
	if err != nil {
		return nil, err
	}
	if !p.isPunct("?") {
		return test, nil
	}
	p.advance()
	cons, err := p.parseAssignExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(":"); err != nil {
		return nil, err
	}
	alt, err := p.parseAssignExpression()
	if err != nil {
		return nil, err
	}
	return &ast.ConditionalExpression{Base: ast.Base{At: pos}, Test: test, Consequent: cons, Alternate: alt}, nil
}

// parseBinaryExpression implements precedence climbing over
// binaryPrecedence; exponentiation (`**`) is right-associative, every
// other binary operator left-associative (spec.md §4.4).
func (p *Parser) parseBinaryExpression(minPrec int) (ast.Expression, error) {
	left, err := p.parseUnaryExpression()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.currentBinaryOp()
		if !ok {
			return left, nil
		}
		prec := binaryPrecedence[op]
		if prec < minPrec {
			return left, nil
		}
		pos := p.cur.Pos
		p.advance()
		nextMin := prec + 1
		if op == "**" {
			nextMin = prec // right-associative
		}
		right, err := p.parseBinaryExpression(nextMin)
		if err != nil {
			return nil, err
		}
		switch op {
		case "&&", "||", "??":
			left = &ast.LogicalExpression{Base: ast.Base{At: pos}, Operator: op, Left: left, Right: right}
		default:
			left = &ast.BinaryExpression{Base: ast.Base{At: pos}, Operator: op, Left: left, Right: right}
		}
	}
}

var unaryOps = map[string]bool{"+": true, "-": true, "!": true, "~": true}
var unaryKeywords = map[string]bool{"typeof": true, "void": true, "delete": true}

func (p *Parser) parseUnaryExpression() (ast.Expression, error) {
	pos := p.cur.Pos
	if p.isKeyword("await") {
		p.advance()
		arg, err := p.parseUnaryExpression()
		if err != nil {
			return nil, err
		}
		return &ast.AwaitExpression{Base: ast.Base{At: pos}, Argument: arg}, nil
	}
	if (p.cur.Type == lexer.Punctuator && unaryOps[p.cur.Value]) || (p.cur.Type == lexer.Keyword && unaryKeywords[p.cur.Value]) {
		op := p.cur.Value
		p.advance()
		arg, err := p.parseUnaryExpression()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpression{Base: ast.Base{At: pos}, Operator: op, Argument: arg}, nil
	}
	if p.isPunct("++") || p.isPunct("--") {
		op := p.cur.Value
		p.advance()
		arg, err := p.parseUnaryExpression()
		if err != nil {
			return nil, err
		}
		return &ast.UpdateExpression{Base: ast.Base{At: pos}, Operator: op, Argument: arg, Prefix: true}, nil
	}
	return p.parsePostfixExpression()
}

func (p *Parser) parsePostfixExpression() (ast.Expression, error) {
	pos := p.cur.Pos
	expr, err := p.parseCallOrMemberExpression()
	if err != nil {
		return nil, err
	}
	if !p.cur.NewlineBefore && (p.isPunct("++") || p.isPunct("--")) {
		op := p.cur.Value
		p.advance()
		return &ast.UpdateExpression{Base: ast.Base{At: pos}, Operator: op, Argument: expr, Prefix: false}, nil
	}
	return expr, nil
}

func (p *Parser) parseCallOrMemberExpression() (ast.Expression, error) {
	pos := p.cur.Pos
	var expr ast.Expression
	var err error
	if p.isKeyword("new") {
		expr, err = p.parseNewExpression()
	} else {
		expr, err = p.parsePrimaryExpression()
	}
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.isPunct("."):
			p.advance()
			name := p.cur.Value
			propPos := p.cur.Pos
			priv := p.cur.Type == lexer.PrivateIdentifier
			p.advance()
			var prop ast.Expression
			if priv {
				prop = &ast.PrivateName{Base: ast.Base{At: propPos}, Name: name}
			} else {
				prop = &ast.Identifier{Base: ast.Base{At: propPos}, Name: name}
			}
			expr = &ast.MemberExpression{Base: ast.Base{At: pos}, Object: expr, Property: prop, PrivateProp: priv}
		case p.isPunct("?."):
			p.advance()
			if p.isPunct("(") {
				args, err := p.parseArguments()
				if err != nil {
					return nil, err
				}
				expr = &ast.CallExpression{Base: ast.Base{At: pos}, Callee: expr, Args: args, Optional: true}
				continue
			}
			if p.isPunct("[") {
				p.advance()
				key, err := p.parseExpression()
				if err != nil {
					return nil, err
				}
				if err := p.expectPunct("]"); err != nil {
					return nil, err
				}
				expr = &ast.MemberExpression{Base: ast.Base{At: pos}, Object: expr, Property: key, Computed: true, Optional: true}
				continue
			}
			propPos := p.cur.Pos
			name := p.cur.Value
			p.advance()
			expr = &ast.MemberExpression{Base: ast.Base{At: pos}, Object: expr, Property: &ast.Identifier{Base: ast.Base{At: propPos}, Name: name}, Optional: true}
		case p.isPunct("["):
			p.advance()
			key, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			expr = &ast.MemberExpression{Base: ast.Base{At: pos}, Object: expr, Property: key, Computed: true}
		case p.isPunct("("):
			args, err := p.parseArguments()
			if err != nil {
				return nil, err
			}
			expr = &ast.CallExpression{Base: ast.Base{At: pos}, Callee: expr, Args: args}
		case p.cur.Type == lexer.TemplateString:
			tpl, err := p.parseTemplateLiteral(expr)
			if err != nil {
				return nil, err
			}
			expr = tpl
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parseNewExpression() (ast.Expression, error) {
	pos := p.cur.Pos
	p.advance()
	if p.isPunct(".") {
		p.advance()
		p.advance() // 'target'
		return &ast.Identifier{Base: ast.Base{At: pos}, Name: "new.target"}, nil
	}
	var callee ast.Expression
	var err error
	if p.isKeyword("new") {
		callee, err = p.parseNewExpression()
	} else {
		callee, err = p.parsePrimaryExpression()
	}
	if err != nil {
		return nil, err
	}
	for p.isPunct(".") || p.isPunct("[") {
		if p.isPunct(".") {
			p.advance()
			name := p.cur.Value
			propPos := p.cur.Pos
			p.advance()
			callee = &ast.MemberExpression{Base: ast.Base{At: propPos}, Object: callee, Property: &ast.Identifier{Base: ast.Base{At: propPos}, Name: name}}
		} else {
			p.advance()
			key, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			callee = &ast.MemberExpression{Base: ast.Base{At: pos}, Object: callee, Property: key, Computed: true}
		}
	}
	var args []ast.Expression
	if p.isPunct("(") {
		args, err = p.parseArguments()
		if err != nil {
			return nil, err
		}
	}
	return &ast.NewExpression{Base: ast.Base{At: pos}, Callee: callee, Args: args}, nil
}

func (p *Parser) parseArguments() ([]ast.Expression, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var args []ast.Expression
	for !p.isPunct(")") {
		if p.isPunct("...") {
			pos := p.cur.Pos
			p.advance()
			arg, err := p.parseAssignExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, &ast.SpreadElement{Base: ast.Base{At: pos}, Argument: arg})
		} else {
			arg, err := p.parseAssignExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		if p.isPunct(",") {
			p.advance()
		}
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parsePrimaryExpression() (ast.Expression, error) {
	pos := p.cur.Pos
	switch {
	case p.isKeyword("this"):
		p.advance()
		return &ast.ThisExpression{Base: ast.Base{At: pos}}, nil
	case p.isKeyword("super"):
		p.advance()
		return &ast.SuperExpression{Base: ast.Base{At: pos}}, nil
	case p.isKeyword("null"):
		p.advance()
		return &ast.NullLiteral{Base: ast.Base{At: pos}}, nil
	case p.isKeyword("true"), p.isKeyword("false"):
		v := p.cur.Value == "true"
		p.advance()
		return &ast.BooleanLiteral{Base: ast.Base{At: pos}, Value: v}, nil
	case p.isKeyword("function"):
		return p.parseFunctionExpression(false)
	case p.isKeyword("async") && p.peekIsKeyword("function"):
		p.advance()
		return p.parseFunctionExpression(true)
	case p.isKeyword("class"):
		return p.parseClassExpression()
	case p.cur.Type == lexer.NumericLiteral:
		n := p.cur.Number
		p.advance()
		return &ast.NumberLiteral{Base: ast.Base{At: pos}, Value: n}, nil
	case p.cur.Type == lexer.BigIntLiteral:
		d := p.cur.Value
		p.advance()
		return &ast.BigIntLiteral{Base: ast.Base{At: pos}, Digits: d}, nil
	case p.cur.Type == lexer.StringLiteral:
		s := p.cur.Value
		p.advance()
		return &ast.StringLiteral{Base: ast.Base{At: pos}, Value: s}, nil
	case p.cur.Type == lexer.TemplateString:
		return p.parseTemplateLiteral(nil)
	case p.cur.Type == lexer.RegExpLiteral:
		pattern, flags := p.cur.Value, p.cur.Flags
		p.advance()
		return &ast.RegExpLiteral{Base: ast.Base{At: pos}, Pattern: pattern, Flags: flags}, nil
	case p.isPunct("("):
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return expr, nil
	case p.isPunct("["):
		return p.parseArrayLiteral()
	case p.isPunct("{"):
		return p.parseObjectLiteral()
	case p.cur.Type == lexer.PrivateIdentifier:
		name := p.cur.Value
		p.advance()
		return &ast.PrivateName{Base: ast.Base{At: pos}, Name: name}, nil
	case p.cur.Type == lexer.Identifier, p.cur.Type == lexer.Keyword:
		name := p.cur.Value
		p.advance()
		return &ast.Identifier{Base: ast.Base{At: pos}, Name: name}, nil
	default:
		return nil, p.errf("unexpected token %q", p.cur.Value)
	}
}

func (p *Parser) parseArrayLiteral() (*ast.ArrayLiteral, error) {
	pos := p.cur.Pos
	p.advance()
	lit := &ast.ArrayLiteral{Base: ast.Base{At: pos}}
	for !p.isPunct("]") {
		if p.isPunct(",") {
			lit.Elements = append(lit.Elements, nil)
			p.advance()
			continue
		}
		if p.isPunct("...") {
			spreadPos := p.cur.Pos
			p.advance()
			arg, err := p.parseAssignExpression()
			if err != nil {
				return nil, err
			}
			lit.Elements = append(lit.Elements, &ast.SpreadElement{Base: ast.Base{At: spreadPos}, Argument: arg})
		} else {
			el, err := p.parseAssignExpression()
			if err != nil {
				return nil, err
			}
			lit.Elements = append(lit.Elements, el)
		}
		if p.isPunct(",") {
			p.advance()
		} else {
			break
		}
	}
	if err := p.expectPunct("]"); err != nil {
		return nil, err
	}
	return lit, nil
}

func (p *Parser) parseObjectLiteral() (*ast.ObjectLiteral, error) {
	pos := p.cur.Pos
	p.advance()
	lit := &ast.ObjectLiteral{Base: ast.Base{At: pos}}
	for !p.isPunct("}") {
		if p.isPunct("...") {
			p.advance()
			arg, err := p.parseAssignExpression()
			if err != nil {
				return nil, err
			}
			lit.Properties = append(lit.Properties, ast.ObjectProperty{Kind: "spread", Value: arg})
			if p.isPunct(",") {
				p.advance()
			}
			continue
		}
		prop, err := p.parseObjectProperty()
		if err != nil {
			return nil, err
		}
		lit.Properties = append(lit.Properties, prop)
		if p.isPunct(",") {
			p.advance()
		} else {
			break
		}
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return lit, nil
}

func (p *Parser) parseObjectProperty() (ast.ObjectProperty, error) {
	if (p.isKeyword("get") || p.isKeyword("set")) && !p.isPunctAfterKey() {
		kind := p.cur.Value
		p.advance()
		key, computed, err := p.parsePropertyKeyExpr()
		if err != nil {
			return ast.ObjectProperty{}, err
		}
		fn, err := p.parseMethodBody(false, false)
		if err != nil {
			return ast.ObjectProperty{}, err
		}
		return ast.ObjectProperty{Key: key, Computed: computed, Value: fn, Kind: kind}, nil
	}
	isAsync := false
	isGen := false
	if p.isKeyword("async") && !p.isPunctAfterKey() {
		isAsync = true
		p.advance()
	}
	if p.isPunct("*") {
		isGen = true
		p.advance()
	}
	key, computed, err := p.parsePropertyKeyExpr()
	if err != nil {
		return ast.ObjectProperty{}, err
	}
	if p.isPunct("(") {
		fn, err := p.parseMethodBody(isGen, isAsync)
		if err != nil {
			return ast.ObjectProperty{}, err
		}
		return ast.ObjectProperty{Key: key, Computed: computed, Value: fn, Kind: "method"}, nil
	}
	if p.isPunct(":") {
		p.advance()
		v, err := p.parseAssignExpression()
		if err != nil {
			return ast.ObjectProperty{}, err
		}
		return ast.ObjectProperty{Key: key, Computed: computed, Value: v, Kind: "init"}, nil
	}
	// shorthand, possibly with a default (only valid inside a destructuring
	// pattern; exprToBindingPattern unwraps the AssignmentExpression again)
	id, _ := key.(*ast.Identifier)
	var val ast.Expression = &ast.Identifier{Base: ast.Base{At: id.Pos()}, Name: id.Name}
	if p.isPunct("=") {
		eqPos := p.cur.Pos
		p.advance()
		def, err := p.parseAssignExpression()
		if err != nil {
			return ast.ObjectProperty{}, err
		}
		val = &ast.AssignmentExpression{Base: ast.Base{At: eqPos}, Operator: "=", Target: val, Value: def}
	}
	return ast.ObjectProperty{Key: key, Value: val, Kind: "init", Shorthand: true}, nil
}

// isPunctAfterKey reports whether the token after the current one is a
// punctuator that would end a property key (used to distinguish the
// `get`/`async` contextual keywords from a property actually named "get"
// or "async").
func (p *Parser) isPunctAfterKey() bool {
	n := p.peek()
	return n.Type == lexer.Punctuator && (n.Value == ":" || n.Value == "," || n.Value == "}" || n.Value == "(")
}

func (p *Parser) parsePropertyKeyExpr() (ast.Expression, bool, error) {
	pos := p.cur.Pos
	if p.isPunct("[") {
		p.advance()
		key, err := p.parseAssignExpression()
		if err != nil {
			return nil, false, err
		}
		if err := p.expectPunct("]"); err != nil {
			return nil, false, err
		}
		return key, true, nil
	}
	switch p.cur.Type {
	case lexer.StringLiteral:
		v := p.cur.Value
		p.advance()
		return &ast.StringLiteral{Base: ast.Base{At: pos}, Value: v}, false, nil
	case lexer.NumericLiteral:
		n := p.cur.Number
		p.advance()
		return &ast.NumberLiteral{Base: ast.Base{At: pos}, Value: n}, false, nil
	default:
		name := p.cur.Value
		p.advance()
		return &ast.Identifier{Base: ast.Base{At: pos}, Name: name}, false, nil
	}
}

func (p *Parser) parseMethodBody(generator, async bool) (*ast.FunctionLiteral, error) {
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	body, err := p.parseFunctionBody(generator, async)
	if err != nil {
		return nil, err
	}
	return &ast.FunctionLiteral{Params: params, Body: body, Generator: generator, Async: async}, nil
}

func (p *Parser) parseParamList() ([]ast.Parameter, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var params []ast.Parameter
	for !p.isPunct(")") {
		if p.isPunct("...") {
			p.advance()
			target, err := p.parseBindingTarget()
			if err != nil {
				return nil, err
			}
			params = append(params, ast.Parameter{Target: target, Rest: true})
			break
		}
		target, err := p.parseBindingTarget()
		if err != nil {
			return nil, err
		}
		param := ast.Parameter{Target: target}
		if p.isPunct("=") {
			p.advance()
			def, err := p.parseAssignExpression()
			if err != nil {
				return nil, err
			}
			param.Default = def
		}
		params = append(params, param)
		if p.isPunct(",") {
			p.advance()
		}
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *Parser) parseFunctionBody(generator, async bool) ([]ast.Statement, error) {
	savedGen, savedAsync, savedFn := p.inGenerator, p.inAsync, p.inFunction
	p.inGenerator, p.inAsync, p.inFunction = generator, async, true
	defer func() { p.inGenerator, p.inAsync, p.inFunction = savedGen, savedAsync, savedFn }()

	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var body []ast.Statement
	for !p.isPunct("}") && p.cur.Type != lexer.EOF {
		stmt, err := p.parseStatementOrDeclaration(false)
		if err != nil {
			return nil, err
		}
		body = append(body, stmt)
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return body, nil
}

func (p *Parser) parseFunctionDeclaration(async bool) (*ast.FunctionDeclaration, error) {
	pos := p.cur.Pos
	p.advance() // 'function'
	generator := false
	if p.isPunct("*") {
		generator = true
		p.advance()
	}
	name := p.cur.Value
	p.advance()
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	body, err := p.parseFunctionBody(generator, async)
	if err != nil {
		return nil, err
	}
	fn := &ast.FunctionLiteral{Base: ast.Base{At: pos}, Name: name, Params: params, Body: body, Generator: generator, Async: async, Strict: p.strict}
	return &ast.FunctionDeclaration{Base: ast.Base{At: pos}, Function: fn}, nil
}

func (p *Parser) parseFunctionExpression(async bool) (ast.Expression, error) {
	pos := p.cur.Pos
	p.advance() // 'function'
	generator := false
	if p.isPunct("*") {
		generator = true
		p.advance()
	}
	name := ""
	if p.cur.Type == lexer.Identifier {
		name = p.cur.Value
		p.advance()
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	body, err := p.parseFunctionBody(generator, async)
	if err != nil {
		return nil, err
	}
	return &ast.FunctionLiteral{Base: ast.Base{At: pos}, Name: name, Params: params, Body: body, Generator: generator, Async: async, Strict: p.strict}, nil
}

func (p *Parser) parseClassDeclaration() (*ast.ClassDeclaration, error) {
	pos := p.cur.Pos
	cls, err := p.parseClassTail()
	if err != nil {
		return nil, err
	}
	return &ast.ClassDeclaration{Base: ast.Base{At: pos}, Class: cls}, nil
}

func (p *Parser) parseClassExpression() (ast.Expression, error) {
	return p.parseClassTail()
}

func (p *Parser) parseClassTail() (*ast.ClassLiteral, error) {
	pos := p.cur.Pos
	p.advance() // 'class'
	cls := &ast.ClassLiteral{Base: ast.Base{At: pos}}
	if p.cur.Type == lexer.Identifier {
		cls.Name = p.cur.Value
		p.advance()
	}
	if p.isKeyword("extends") {
		p.advance()
		super, err := p.parseCallOrMemberExpression()
		if err != nil {
			return nil, err
		}
		cls.SuperClass = super
	}
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	wasStrict := p.strict
	p.strict = true
	for !p.isPunct("}") {
		if p.isPunct(";") {
			p.advance()
			continue
		}
		member, err := p.parseClassMember(cls)
		if err != nil {
			p.strict = wasStrict
			return nil, err
		}
		cls.Members = append(cls.Members, member)
	}
	p.strict = wasStrict
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return cls, nil
}

func (p *Parser) parseClassMember(cls *ast.ClassLiteral) (ast.ClassMember, error) {
	static := false
	if p.isKeyword("static") && !p.isPunctAfterKey() {
		if p.peekIsPunct("{") {
			p.advance()
			body, err := p.parseFunctionBody(false, false)
			if err != nil {
				return ast.ClassMember{}, err
			}
			return ast.ClassMember{Kind: "static-block", Static: true, StaticBlock: body}, nil
		}
		static = true
		p.advance()
	}
	kind := "method"
	async := false
	generator := false
	if (p.isKeyword("get") || p.isKeyword("set")) && !p.isPunctAfterKey() {
		kind = p.cur.Value
		p.advance()
	} else {
		if p.isKeyword("async") && !p.isPunctAfterKey() {
			async = true
			p.advance()
		}
		if p.isPunct("*") {
			generator = true
			p.advance()
		}
	}

	pos := p.cur.Pos
	privateName := ""
	var key ast.Expression
	computed := false
	if p.cur.Type == lexer.PrivateIdentifier {
		privateName = p.cur.Value
		key = &ast.PrivateName{Base: ast.Base{At: pos}, Name: privateName}
		p.advance()
	} else {
		k, c, err := p.parsePropertyKeyExpr()
		if err != nil {
			return ast.ClassMember{}, err
		}
		key = k
		computed = c
	}

	if p.isPunct("(") {
		params, err := p.parseParamList()
		if err != nil {
			return ast.ClassMember{}, err
		}
		body, err := p.parseFunctionBody(generator, async)
		if err != nil {
			return ast.ClassMember{}, err
		}
		name := ""
		if id, ok := key.(*ast.Identifier); ok {
			name = id.Name
			if name == "constructor" && kind == "method" {
				kind = "constructor"
			}
		}
		fn := &ast.FunctionLiteral{Base: ast.Base{At: pos}, Name: name, Params: params, Body: body, Generator: generator, Async: async, Strict: true, ClassMethodOf: cls}
		return ast.ClassMember{Key: key, PrivateName: privateName, Computed: computed, Static: static, Kind: kind, Value: fn}, nil
	}

	// field
	member := ast.ClassMember{Key: key, PrivateName: privateName, Computed: computed, Static: static, Kind: "field"}
	if p.isPunct("=") {
		p.advance()
		init, err := p.parseAssignExpression()
		if err != nil {
			return ast.ClassMember{}, err
		}
		member.FieldInit = init
	}
	if err := p.consumeSemicolon(); err != nil {
		return ast.ClassMember{}, err
	}
	return member, nil
}

func (p *Parser) peekIsPunct(v string) bool {
	t := p.peek()
	return t.Type == lexer.Punctuator && t.Value == v
}

func (p *Parser) parseTemplateLiteral(tag ast.Expression) (*ast.TemplateLiteral, error) {
	pos := p.cur.Pos
	tpl := &ast.TemplateLiteral{Base: ast.Base{At: pos}, Tag: tag}
	for {
		isTail := p.cur.Flags == "tail"
		tpl.Quasis = append(tpl.Quasis, p.cur.Value)
		p.advance()
		if isTail {
			break
		}
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		tpl.Expressions = append(tpl.Expressions, expr)
		if !p.isPunct("}") {
			return nil, p.errf("expected '}' in template literal")
		}
		p.next = nil
		p.cur = p.lex.NextTemplateChunk()
	}
	return tpl, nil
}

// tryParseArrowFunction speculatively parses an arrow function head: a
// bare identifier or a parenthesized parameter list, each followed by
// `=>`. On a non-arrow shape it restores the cur/next tokens and the
// lexer position it started from and reports false, and the caller
// parses the input again through parseConditionalExpression.
func (p *Parser) tryParseArrowFunction() (ast.Expression, bool, error) {
	async := false
	if p.isKeyword("async") && !p.cur.NewlineBefore {
		n := p.peek()
		if n.Type == lexer.Identifier || (n.Type == lexer.Punctuator && n.Value == "(") {
			async = true
		}
	}

	startCur, startNext, startLex := p.cur, p.next, p.lex.Snapshot()
	if async {
		p.advance()
	}

	pos := p.cur.Pos
	var params []ast.Parameter
	matched := false

	if p.cur.Type == lexer.Identifier {
		name := p.cur.Value
		p.advance()
		if p.isPunct("=>") && !p.cur.NewlineBefore {
			params = []ast.Parameter{{Target: &ast.IdentifierBinding{Base: ast.Base{At: pos}, Name: name}}}
			matched = true
		}
	} else if p.isPunct("(") {
		if plist, ok := p.tryParseParenParams(); ok {
			if p.isPunct("=>") && !p.cur.NewlineBefore {
				params = plist
				matched = true
			}
		}
	}

	if !matched {
		p.cur, p.next = startCur, startNext
		p.lex.Restore(startLex)
		return nil, false, nil
	}

	p.advance() // '=>'
	fn := &ast.FunctionLiteral{Base: ast.Base{At: pos}, Params: params, Arrow: true, Async: async, Strict: p.strict}
	if p.isPunct("{") {
		body, err := p.parseFunctionBody(false, async)
		if err != nil {
			return nil, false, err
		}
		fn.Body = body
	} else {
		savedAsync := p.inAsync
		p.inAsync = async
		expr, err := p.parseAssignExpression()
		p.inAsync = savedAsync
		if err != nil {
			return nil, false, err
		}
		fn.ExprBody = expr
	}
	return fn, true, nil
}

// tryParseParenParams attempts to parse `(` ... `)` as an arrow
// parameter list; the parenthesis run is always well-formed expression
// or parameter syntax, so a failed parse here just reports ok=false
// rather than propagating an error (the caller then backtracks and
// reparses the same text as a parenthesized expression).
func (p *Parser) tryParseParenParams() ([]ast.Parameter, bool) {
	params, err := p.parseParamList()
	if err != nil {
		return nil, false
	}
	return params, true
}

func (p *Parser) parseImportDeclaration() (*ast.ImportDeclaration, error) {
	pos := p.cur.Pos
	p.advance()
	decl := &ast.ImportDeclaration{Base: ast.Base{At: pos}}
	if p.cur.Type == lexer.StringLiteral {
		decl.Source = p.cur.Value
		p.advance()
		if err := p.consumeSemicolon(); err != nil {
			return nil, err
		}
		return decl, nil
	}
	if p.cur.Type == lexer.Identifier {
		decl.Specifiers = append(decl.Specifiers, ast.ImportSpecifier{Local: p.cur.Value, Default: true})
		p.advance()
		if p.isPunct(",") {
			p.advance()
		}
	}
	if p.isPunct("*") {
		p.advance()
		if err := p.expectKeyword("as"); err != nil {
			return nil, err
		}
		local := p.cur.Value
		p.advance()
		decl.Specifiers = append(decl.Specifiers, ast.ImportSpecifier{Local: local, Namespace: true})
	} else if p.isPunct("{") {
		p.advance()
		for !p.isPunct("}") {
			imported := p.cur.Value
			p.advance()
			local := imported
			if p.isKeyword("as") {
				p.advance()
				local = p.cur.Value
				p.advance()
			}
			decl.Specifiers = append(decl.Specifiers, ast.ImportSpecifier{Imported: imported, Local: local})
			if p.isPunct(",") {
				p.advance()
			}
		}
		if err := p.expectPunct("}"); err != nil {
			return nil, err
		}
	}
	if err := p.expectKeyword("from"); err != nil {
		return nil, err
	}
	decl.Source = p.cur.Value
	p.advance()
	if err := p.consumeSemicolon(); err != nil {
		return nil, err
	}
	return decl, nil
}

func (p *Parser) parseExportDeclaration() (*ast.ExportDeclaration, error) {
	pos := p.cur.Pos
	p.advance()
	decl := &ast.ExportDeclaration{Base: ast.Base{At: pos}}
	if p.isKeyword("default") {
		p.advance()
		decl.Default = true
		stmt, err := p.parseStatementOrDeclaration(false)
		if err != nil {
			return nil, err
		}
		decl.Declaration = stmt
		return decl, nil
	}
	if p.isPunct("{") {
		p.advance()
		for !p.isPunct("}") {
			local := p.cur.Value
			p.advance()
			exported := local
			if p.isKeyword("as") {
				p.advance()
				exported = p.cur.Value
				p.advance()
			}
			decl.Specifiers = append(decl.Specifiers, ast.ExportSpecifier{Local: local, Exported: exported})
			if p.isPunct(",") {
				p.advance()
			}
		}
		if err := p.expectPunct("}"); err != nil {
			return nil, err
		}
		if p.isKeyword("from") {
			p.advance()
			decl.Source = p.cur.Value
			p.advance()
		}
		if err := p.consumeSemicolon(); err != nil {
			return nil, err
		}
		return decl, nil
	}
	stmt, err := p.parseStatementOrDeclaration(false)
	if err != nil {
		return nil, err
	}
	decl.Declaration = stmt
	return decl, nil
}
