// Package ast defines the syntax tree the parser produces and the
// compiler consumes (spec.md §4.4). Node-kind names follow the
// tree-sitter-javascript vocabulary internal/lang/javascript/provider.go
// dispatched on (function_declaration, arrow_function, variable_declarator,
// lexical_declaration, …), generalized from "grammar node to translate"
// into "syntax node to compile".
package ast

// Position is a byte offset plus 1-based line/column, attached to every
// node for syntax-error reporting and source maps.
type Position struct {
	Offset int
	Line   int
	Column int
}

// Node is implemented by every AST node.
type Node interface {
	Pos() Position
}

type Base struct{ At Position }

func (b Base) Pos() Position { return b.At }

// ---- Top level ----

// Program is the root node: either a Script or a Module goal symbol
// (spec.md §4.4, "Script vs Module productions").
type Program struct {
	Base
	IsModule bool
	Strict   bool
	Body     []Statement
}

// ---- Statements ----

type Statement interface {
	Node
	stmtNode()
}

type (
	ExpressionStatement struct {
		Base
		Expr Expression
	}

	BlockStatement struct {
		Base
		Body []Statement
	}

	VariableDeclaration struct {
		Base
		Kind         string // "var" | "let" | "const"
		Declarations []VariableDeclarator
	}

	VariableDeclarator struct {
		Base
		Target BindingTarget
		Init   Expression // nil if omitted
	}

	FunctionDeclaration struct {
		Base
		Function *FunctionLiteral
	}

	ClassDeclaration struct {
		Base
		Class *ClassLiteral
	}

	IfStatement struct {
		Base
		Test       Expression
		Consequent Statement
		Alternate  Statement // nil if no else
	}

	ForStatement struct {
		Base
		Init   Node // VariableDeclaration, Expression, or nil
		Test   Expression
		Update Expression
		Body   Statement
	}

	ForInStatement struct {
		Base
		Left  Node // VariableDeclaration or assignable Expression
		Right Expression
		Body  Statement
		Of    bool // true for for-of
		Await bool // true for for-await-of
	}

	WhileStatement struct {
		Base
		Test Expression
		Body Statement
	}

	DoWhileStatement struct {
		Base
		Body Statement
		Test Expression
	}

	ReturnStatement struct {
		Base
		Argument Expression // nil if bare `return;`
	}

	BreakStatement struct {
		Base
		Label string
	}

	ContinueStatement struct {
		Base
		Label string
	}

	ThrowStatement struct {
		Base
		Argument Expression
	}

	TryStatement struct {
		Base
		Block     *BlockStatement
		CatchParam BindingTarget // nil if catch has no binding, absent if no catch
		HasCatch   bool
		Catch      *BlockStatement
		Finally    *BlockStatement // nil if no finally
	}

	SwitchStatement struct {
		Base
		Discriminant Expression
		Cases        []SwitchCase
	}

	SwitchCase struct {
		Base
		Test Expression // nil for default
		Body []Statement
	}

	LabeledStatement struct {
		Base
		Label string
		Body  Statement
	}

	EmptyStatement struct{ Base }

	DebuggerStatement struct{ Base }

	ImportDeclaration struct {
		Base
		Specifiers []ImportSpecifier
		Source     string
	}

	ImportSpecifier struct {
		Imported string // "" for default/namespace
		Local    string
		Default  bool
		Namespace bool
	}

	ExportDeclaration struct {
		Base
		Declaration Statement // nil for re-export/export-list forms
		Default     bool
		Specifiers  []ExportSpecifier
		Source      string // re-export source, "" otherwise
	}

	ExportSpecifier struct {
		Local    string
		Exported string
	}
)

func (*ExpressionStatement) stmtNode() {}
func (*BlockStatement) stmtNode()      {}
func (*VariableDeclaration) stmtNode() {}
func (*FunctionDeclaration) stmtNode() {}
func (*ClassDeclaration) stmtNode()    {}
func (*IfStatement) stmtNode()         {}
func (*ForStatement) stmtNode()        {}
func (*ForInStatement) stmtNode()      {}
func (*WhileStatement) stmtNode()      {}
func (*DoWhileStatement) stmtNode()    {}
func (*ReturnStatement) stmtNode()     {}
func (*BreakStatement) stmtNode()      {}
func (*ContinueStatement) stmtNode()   {}
func (*ThrowStatement) stmtNode()      {}
func (*TryStatement) stmtNode()        {}
func (*SwitchStatement) stmtNode()     {}
func (*LabeledStatement) stmtNode()    {}
func (*EmptyStatement) stmtNode()      {}
func (*DebuggerStatement) stmtNode()   {}
func (*ImportDeclaration) stmtNode()   {}
func (*ExportDeclaration) stmtNode()   {}

// ---- Binding targets (destructuring) ----

// BindingTarget is an identifier or a destructuring pattern on the left of
// a declarator, parameter, or assignment (spec.md §4.4,
// "destructuring lowering").
type BindingTarget interface {
	Node
	bindingNode()
}

type (
	IdentifierBinding struct {
		Base
		Name string
	}

	ArrayBindingPattern struct {
		Base
		Elements []ArrayBindingElement // nil element = elision
		Rest     BindingTarget         // nil if no rest element
	}

	ArrayBindingElement struct {
		Target  BindingTarget
		Default Expression
	}

	ObjectBindingPattern struct {
		Base
		Properties []ObjectBindingProperty
		Rest       BindingTarget // nil if no rest element
	}

	ObjectBindingProperty struct {
		Key      Expression // Identifier or computed expression
		Computed bool
		Target   BindingTarget
		Default  Expression
	}
)

func (*IdentifierBinding) bindingNode()    {}
func (*ArrayBindingPattern) bindingNode()  {}
func (*ObjectBindingPattern) bindingNode() {}

// ---- Expressions ----

type Expression interface {
	Node
	exprNode()
}

type (
	Identifier struct {
		Base
		Name string
	}

	PrivateName struct {
		Base
		Name string
	}

	NumberLiteral struct {
		Base
		Value float64
	}

	BigIntLiteral struct {
		Base
		Digits string
	}

	StringLiteral struct {
		Base
		Value string
	}

	BooleanLiteral struct {
		Base
		Value bool
	}

	NullLiteral struct{ Base }

	ThisExpression struct{ Base }

	SuperExpression struct{ Base }

	ArrayLiteral struct {
		Base
		Elements []Expression // nil element = elision; SpreadElement for `...x`
	}

	SpreadElement struct {
		Base
		Argument Expression
	}

	ObjectLiteral struct {
		Base
		Properties []ObjectProperty
	}

	ObjectProperty struct {
		Key      Expression
		Computed bool
		Value    Expression
		Shorthand bool
		Kind     string // "init" | "get" | "set" | "spread" | "method"
	}

	FunctionLiteral struct {
		Base
		Name          string // "" for anonymous
		Params        []Parameter
		Body          []Statement
		ExprBody      Expression // non-nil for concise arrow bodies
		Generator     bool
		Async         bool
		Arrow         bool
		Strict        bool
		ClassMethodOf *ClassLiteral // non-nil when this is a method/constructor
	}

	Parameter struct {
		Target  BindingTarget
		Default Expression
		Rest    bool
	}

	ClassLiteral struct {
		Base
		Name       string
		SuperClass Expression
		Members    []ClassMember
	}

	ClassMember struct {
		Key         Expression
		PrivateName string // non-"" when this member's key is #name
		Computed    bool
		Static      bool
		Kind        string // "method" | "get" | "set" | "field" | "constructor" | "static-block"
		Value       *FunctionLiteral // method/accessor/constructor
		FieldInit   Expression       // field initializer, may be nil
		StaticBlock []Statement
	}

	UnaryExpression struct {
		Base
		Operator string
		Argument Expression
	}

	UpdateExpression struct {
		Base
		Operator string // "++" | "--"
		Argument Expression
		Prefix   bool
	}

	BinaryExpression struct {
		Base
		Operator string
		Left     Expression
		Right    Expression
	}

	LogicalExpression struct {
		Base
		Operator string // "&&" | "||" | "??"
		Left     Expression
		Right    Expression
	}

	AssignmentExpression struct {
		Base
		Operator string // "=" | "+=" | ... | "&&=" | "||=" | "??="
		Target   Node   // BindingTarget or assignable Expression
		Value    Expression
	}

	ConditionalExpression struct {
		Base
		Test       Expression
		Consequent Expression
		Alternate  Expression
	}

	CallExpression struct {
		Base
		Callee   Expression
		Args     []Expression // SpreadElement allowed
		Optional bool
	}

	NewExpression struct {
		Base
		Callee Expression
		Args   []Expression
	}

	MemberExpression struct {
		Base
		Object      Expression
		Property    Expression // Identifier, PrivateName, or computed Expression
		Computed    bool
		Optional    bool
		PrivateProp bool
	}

	SequenceExpression struct {
		Base
		Expressions []Expression
	}

	TemplateLiteral struct {
		Base
		Quasis      []string
		Expressions []Expression
		Tag         Expression // non-nil for tagged templates
	}

	RegExpLiteral struct {
		Base
		Pattern string
		Flags   string
	}

	YieldExpression struct {
		Base
		Argument Expression
		Delegate bool // yield*
	}

	AwaitExpression struct {
		Base
		Argument Expression
	}
)

func (*Identifier) exprNode()            {}
func (*PrivateName) exprNode()           {}
func (*NumberLiteral) exprNode()         {}
func (*BigIntLiteral) exprNode()         {}
func (*StringLiteral) exprNode()         {}
func (*BooleanLiteral) exprNode()        {}
func (*NullLiteral) exprNode()           {}
func (*ThisExpression) exprNode()        {}
func (*SuperExpression) exprNode()       {}
func (*ArrayLiteral) exprNode()          {}
func (*SpreadElement) exprNode()         {}
func (*ObjectLiteral) exprNode()         {}
func (*FunctionLiteral) exprNode()       {}
func (*ClassLiteral) exprNode()          {}
func (*UnaryExpression) exprNode()       {}
func (*UpdateExpression) exprNode()      {}
func (*BinaryExpression) exprNode()      {}
func (*LogicalExpression) exprNode()     {}
func (*AssignmentExpression) exprNode()  {}
func (*ConditionalExpression) exprNode() {}
func (*CallExpression) exprNode()        {}
func (*NewExpression) exprNode()         {}
func (*MemberExpression) exprNode()      {}
func (*SequenceExpression) exprNode()    {}
func (*TemplateLiteral) exprNode()       {}
func (*RegExpLiteral) exprNode()         {}
func (*YieldExpression) exprNode()       {}
func (*AwaitExpression) exprNode()       {}

// IdentifierBinding also satisfies Expression in contexts (like simple
// assignment targets) where the grammar allows either; the compiler
// narrows via a type switch rather than this package collapsing the two
// interfaces into one.
func (*IdentifierBinding) exprNode() {}
