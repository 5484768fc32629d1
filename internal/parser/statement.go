package parser

import (
	"github.com/termfx/ecmacore/internal/ast"
	"github.com/termfx/ecmacore/internal/lexer"
)

func (p *Parser) parseStatementOrDeclaration(topLevel bool) (ast.Statement, error) {
	switch {
	case p.isKeyword("var"), p.isKeyword("let"), p.isKeyword("const"):
		return p.parseVariableStatement()
	case p.isKeyword("function"):
		return p.parseFunctionDeclaration(false)
	case p.isKeyword("async") && p.peekIsKeyword("function"):
		p.advance()
		return p.parseFunctionDeclaration(true)
	case p.isKeyword("class"):
		return p.parseClassDeclaration()
	case p.isKeyword("import") && topLevel:
		return p.parseImportDeclaration()
	case p.isKeyword("export") && topLevel:
		return p.parseExportDeclaration()
	default:
		return p.parseStatement()
	}
}

func (p *Parser) peekIsKeyword(v string) bool {
	t := p.peek()
	return t.Type == lexer.Keyword && t.Value == v
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	pos := p.cur.Pos
	switch {
	case p.isPunct("{"):
		return p.parseBlockStatement()
	case p.isPunct(";"):
		p.advance()
		return &ast.EmptyStatement{Base: ast.Base{At: pos}}, nil
	case p.isKeyword("if"):
		return p.parseIfStatement()
	case p.isKeyword("for"):
		return p.parseForStatement()
	case p.isKeyword("while"):
		return p.parseWhileStatement()
	case p.isKeyword("do"):
		return p.parseDoWhileStatement()
	case p.isKeyword("return"):
		return p.parseReturnStatement()
	case p.isKeyword("break"):
		return p.parseBreakOrContinue(true)
	case p.isKeyword("continue"):
		return p.parseBreakOrContinue(false)
	case p.isKeyword("throw"):
		return p.parseThrowStatement()
	case p.isKeyword("try"):
		return p.parseTryStatement()
	case p.isKeyword("switch"):
		return p.parseSwitchStatement()
	case p.isKeyword("debugger"):
		p.advance()
		if err := p.consumeSemicolon(); err != nil {
			return nil, err
		}
		return &ast.DebuggerStatement{Base: ast.Base{At: pos}}, nil
	case p.cur.Type == lexer.Identifier && p.peek().Type == lexer.Punctuator && p.peek().Value == ":":
		return p.parseLabeledStatement()
	default:
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.consumeSemicolon(); err != nil {
			return nil, err
		}
		return &ast.ExpressionStatement{Base: ast.Base{At: pos}, Expr: expr}, nil
	}
}

func (p *Parser) parseBlockStatement() (*ast.BlockStatement, error) {
	pos := p.cur.Pos
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
	return &ast.BlockStatement{Base: ast.Base{At: pos}, Body: body}, nil
}

func (p *Parser) parseVariableStatement() (*ast.VariableDeclaration, error) {
	pos := p.cur.Pos
	kind := p.cur.Value
	p.advance()
	decl := &ast.VariableDeclaration{Base: ast.Base{At: pos}, Kind: kind}
	for {
		target, err := p.parseBindingTarget()
		if err != nil {
			return nil, err
		}
		var init ast.Expression
		if p.isPunct("=") {
			p.advance()
			init, err = p.parseAssignExpression()
			if err != nil {
				return nil, err
			}
		}
		decl.Declarations = append(decl.Declarations, ast.VariableDeclarator{Target: target, Init: init})
		if !p.isPunct(",") {
			break
		}
		p.advance()
	}
	if err := p.consumeSemicolon(); err != nil {
		return nil, err
	}
	return decl, nil
}

func (p *Parser) parseBindingTarget() (ast.BindingTarget, error) {
	pos := p.cur.Pos
	switch {
	case p.isPunct("["):
		return p.parseArrayBindingPattern()
	case p.isPunct("{"):
		return p.parseObjectBindingPattern()
	case p.cur.Type == lexer.Identifier || p.cur.Type == lexer.Keyword:
		name := p.cur.Value
		p.advance()
		return &ast.IdentifierBinding{Base: ast.Base{At: pos}, Name: name}, nil
	default:
		return nil, p.errf("expected binding target, got %q", p.cur.Value)
	}
}

func (p *Parser) parseArrayBindingPattern() (*ast.ArrayBindingPattern, error) {
	pos := p.cur.Pos
	p.advance() // [
	pat := &ast.ArrayBindingPattern{Base: ast.Base{At: pos}}
	for !p.isPunct("]") {
		if p.isPunct(",") {
			pat.Elements = append(pat.Elements, ast.ArrayBindingElement{})
			p.advance()
			continue
		}
		if p.isPunct("...") {
			p.advance()
			rest, err := p.parseBindingTarget()
			if err != nil {
				return nil, err
			}
			pat.Rest = rest
			break
		}
		target, err := p.parseBindingTarget()
		if err != nil {
			return nil, err
		}
		el := ast.ArrayBindingElement{Target: target}
		if p.isPunct("=") {
			p.advance()
			def, err := p.parseAssignExpression()
			if err != nil {
				return nil, err
			}
			el.Default = def
		}
		pat.Elements = append(pat.Elements, el)
		if p.isPunct(",") {
			p.advance()
		}
	}
	if err := p.expectPunct("]"); err != nil {
		return nil, err
	}
	return pat, nil
}

func (p *Parser) parseObjectBindingPattern() (*ast.ObjectBindingPattern, error) {
	pos := p.cur.Pos
	p.advance() // {
	pat := &ast.ObjectBindingPattern{Base: ast.Base{At: pos}}
	for !p.isPunct("}") {
		if p.isPunct("...") {
			p.advance()
			rest, err := p.parseBindingTarget()
			if err != nil {
				return nil, err
			}
			pat.Rest = rest
			break
		}
		computed := false
		var key ast.Expression
		if p.isPunct("[") {
			p.advance()
			computed = true
			k, err := p.parseAssignExpression()
			if err != nil {
				return nil, err
			}
			key = k
			if err := p.expectPunct("]"); err != nil {
				return nil, err
			}
		} else {
			keyPos := p.cur.Pos
			name := p.cur.Value
			p.advance()
			key = &ast.Identifier{Base: ast.Base{At: keyPos}, Name: name}
		}
		prop := ast.ObjectBindingProperty{Key: key, Computed: computed}
		if p.isPunct(":") {
			p.advance()
			target, err := p.parseBindingTarget()
			if err != nil {
				return nil, err
			}
			prop.Target = target
		} else {
			id := key.(*ast.Identifier)
			prop.Target = &ast.IdentifierBinding{Base: ast.Base{At: id.At}, Name: id.Name}
		}
		if p.isPunct("=") {
			p.advance()
			def, err := p.parseAssignExpression()
			if err != nil {
				return nil, err
			}
			prop.Default = def
		}
		pat.Properties = append(pat.Properties, prop)
		if p.isPunct(",") {
			p.advance()
		}
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return pat, nil
}

func (p *Parser) parseIfStatement() (*ast.IfStatement, error) {
	pos := p.cur.Pos
	p.advance()
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	test, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	cons, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	stmt := &ast.IfStatement{Base: ast.Base{At: pos}, Test: test, Consequent: cons}
	if p.isKeyword("else") {
		p.advance()
		alt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmt.Alternate = alt
	}
	return stmt, nil
}

func (p *Parser) parseWhileStatement() (*ast.WhileStatement, error) {
	pos := p.cur.Pos
	p.advance()
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	test, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	p.inLoop++
	body, err := p.parseStatement()
	p.inLoop--
	if err != nil {
		return nil, err
	}
	return &ast.WhileStatement{Base: ast.Base{At: pos}, Test: test, Body: body}, nil
}

func (p *Parser) parseDoWhileStatement() (*ast.DoWhileStatement, error) {
	pos := p.cur.Pos
	p.advance()
	p.inLoop++
	body, err := p.parseStatement()
	p.inLoop--
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("while"); err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	test, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	if p.isPunct(";") {
		p.advance()
	}
	return &ast.DoWhileStatement{Base: ast.Base{At: pos}, Body: body, Test: test}, nil
}

func (p *Parser) expectKeyword(v string) error {
	if !p.isKeyword(v) {
		return p.errf("expected %q", v)
	}
	p.advance()
	return nil
}

func (p *Parser) parseForStatement() (ast.Statement, error) {
	pos := p.cur.Pos
	p.advance()
	isAwait := false
	if p.isKeyword("await") {
		isAwait = true
		p.advance()
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}

	var initNode ast.Node
	if p.isKeyword("var") || p.isKeyword("let") || p.isKeyword("const") {
		kind := p.cur.Value
		kindPos := p.cur.Pos
		p.advance()
		target, err := p.parseBindingTarget()
		if err != nil {
			return nil, err
		}
		if p.isKeyword("in") || p.isKeyword("of") {
			of := p.isKeyword("of")
			p.advance()
			var right ast.Expression
			if of {
				right, err = p.parseAssignExpression()
			} else {
				right, err = p.parseExpression()
			}
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			p.inLoop++
			body, err := p.parseStatement()
			p.inLoop--
			if err != nil {
				return nil, err
			}
			decl := &ast.VariableDeclaration{Base: ast.Base{At: kindPos}, Kind: kind, Declarations: []ast.VariableDeclarator{{Target: target}}}
			return &ast.ForInStatement{Base: ast.Base{At: pos}, Left: decl, Right: right, Body: body, Of: of, Await: isAwait}, nil
		}
		decl := &ast.VariableDeclaration{Base: ast.Base{At: kindPos}, Kind: kind}
		var init ast.Expression
		if p.isPunct("=") {
			p.advance()
			init, err = p.parseAssignExpression()
			if err != nil {
				return nil, err
			}
		}
		decl.Declarations = append(decl.Declarations, ast.VariableDeclarator{Target: target, Init: init})
		for p.isPunct(",") {
			p.advance()
			t2, err := p.parseBindingTarget()
			if err != nil {
				return nil, err
			}
			var i2 ast.Expression
			if p.isPunct("=") {
				p.advance()
				i2, err = p.parseAssignExpression()
				if err != nil {
					return nil, err
				}
			}
			decl.Declarations = append(decl.Declarations, ast.VariableDeclarator{Target: t2, Init: i2})
		}
		initNode = decl
	} else if !p.isPunct(";") {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if p.isKeyword("in") || p.isKeyword("of") {
			of := p.isKeyword("of")
			p.advance()
			var right ast.Expression
			if of {
				right, err = p.parseAssignExpression()
			} else {
				right, err = p.parseExpression()
			}
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			p.inLoop++
			body, err := p.parseStatement()
			p.inLoop--
			if err != nil {
				return nil, err
			}
			return &ast.ForInStatement{Base: ast.Base{At: pos}, Left: expr, Right: right, Body: body, Of: of, Await: isAwait}, nil
		}
		initNode = expr
	}

	if err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	var test ast.Expression
	if !p.isPunct(";") {
		t, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		test = t
	}
	if err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	var update ast.Expression
	if !p.isPunct(")") {
		u, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		update = u
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	p.inLoop++
	body, err := p.parseStatement()
	p.inLoop--
	if err != nil {
		return nil, err
	}
	return &ast.ForStatement{Base: ast.Base{At: pos}, Init: initNode, Test: test, Update: update, Body: body}, nil
}

func (p *Parser) parseReturnStatement() (*ast.ReturnStatement, error) {
	pos := p.cur.Pos
	p.advance()
	stmt := &ast.ReturnStatement{Base: ast.Base{At: pos}}
	if !p.isPunct(";") && !p.isPunct("}") && p.cur.Type != lexer.EOF && !p.cur.NewlineBefore {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		stmt.Argument = expr
	}
	if err := p.consumeSemicolon(); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseBreakOrContinue(isBreak bool) (ast.Statement, error) {
	pos := p.cur.Pos
	p.advance()
	label := ""
	if p.cur.Type == lexer.Identifier && !p.cur.NewlineBefore {
		label = p.cur.Value
		p.advance()
	}
	if err := p.consumeSemicolon(); err != nil {
		return nil, err
	}
	if isBreak {
		return &ast.BreakStatement{Base: ast.Base{At: pos}, Label: label}, nil
	}
	return &ast.ContinueStatement{Base: ast.Base{At: pos}, Label: label}, nil
}

func (p *Parser) parseThrowStatement() (*ast.ThrowStatement, error) {
	pos := p.cur.Pos
	p.advance()
	if p.cur.NewlineBefore {
		return nil, p.errf("illegal newline after throw")
	}
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.consumeSemicolon(); err != nil {
		return nil, err
	}
	return &ast.ThrowStatement{Base: ast.Base{At: pos}, Argument: expr}, nil
}

func (p *Parser) parseTryStatement() (*ast.TryStatement, error) {
	pos := p.cur.Pos
	p.advance()
	block, err := p.parseBlockStatement()
	if err != nil {
		return nil, err
	}
	stmt := &ast.TryStatement{Base: ast.Base{At: pos}, Block: block}
	if p.isKeyword("catch") {
		p.advance()
		stmt.HasCatch = true
		if p.isPunct("(") {
			p.advance()
			target, err := p.parseBindingTarget()
			if err != nil {
				return nil, err
			}
			stmt.CatchParam = target
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
		}
		catchBlock, err := p.parseBlockStatement()
		if err != nil {
			return nil, err
		}
		stmt.Catch = catchBlock
	}
	if p.isKeyword("finally") {
		p.advance()
		fin, err := p.parseBlockStatement()
		if err != nil {
			return nil, err
		}
		stmt.Finally = fin
	}
	if !stmt.HasCatch && stmt.Finally == nil {
		return nil, p.errf("missing catch or finally after try")
	}
	return stmt, nil
}

func (p *Parser) parseSwitchStatement() (*ast.SwitchStatement, error) {
	pos := p.cur.Pos
	p.advance()
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	disc, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	stmt := &ast.SwitchStatement{Base: ast.Base{At: pos}, Discriminant: disc}
	p.inSwitch++
	defer func() { p.inSwitch-- }()
	for !p.isPunct("}") {
		casePos := p.cur.Pos
		var test ast.Expression
		if p.isKeyword("case") {
			p.advance()
			t, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			test = t
		} else if p.isKeyword("default") {
			p.advance()
		} else {
			return nil, p.errf("expected case or default")
		}
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		var body []ast.Statement
		for !p.isKeyword("case") && !p.isKeyword("default") && !p.isPunct("}") {
			s, err := p.parseStatementOrDeclaration(false)
			if err != nil {
				return nil, err
			}
			body = append(body, s)
		}
		stmt.Cases = append(stmt.Cases, ast.SwitchCase{Base: ast.Base{At: casePos}, Test: test, Body: body})
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseLabeledStatement() (*ast.LabeledStatement, error) {
	pos := p.cur.Pos
	label := p.cur.Value
	p.advance()
	p.advance() // ':'
	p.labels[label] = true
	body, err := p.parseStatement()
	delete(p.labels, label)
	if err != nil {
		return nil, err
	}
	return &ast.LabeledStatement{Base: ast.Base{At: pos}, Label: label, Body: body}, nil
}
