// Package bytecode defines the instruction set and compiled-unit
// representation the compiler emits and the VM executes (spec.md §4.5/
// §4.6). Families follow spec.md's own grouping: literal/binding,
// property, call, control flow, exception, iteration,
// generator/async, and object/array construction.
package bytecode

// Op is one VM instruction opcode.
type Op uint16

const (
	OpNop Op = iota

	// Literal / constant / stack shuffling
	OpLoadConst
	OpLoadUndefined
	OpLoadNull
	OpLoadTrue
	OpLoadFalse
	OpLoadThis
	OpLoadNewTarget
	OpDup
	OpPop
	OpSwap

	// Binding access (spec.md §4.6: "(hops, slot-index) vs global-name vs dynamic-name")
	OpGetLocal
	OpSetLocal
	OpGetGlobal
	OpSetGlobal
	OpInitGlobal
	OpGetDynamic
	OpSetDynamic
	OpInitLocal
	OpGetArg
	OpTDZCheck

	// Property access (inline-cache sites)
	OpGetProp
	OpSetProp
	OpGetPropIC // operand: inline-cache site index
	OpSetPropIC
	OpGetElem
	OpSetElem
	OpDeleteProp
	OpInProp
	OpGetSuperProp
	OpSetSuperProp

	// Arithmetic / comparison / logical
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpNeg
	OpPos
	OpBitNot
	OpNot
	OpInc
	OpDec
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr
	OpUShr
	OpEq
	OpNotEq
	OpStrictEq
	OpStrictNotEq
	OpLt
	OpLte
	OpGt
	OpGte
	OpInstanceOf
	OpTypeof
	OpToBoolean
	OpToNumeric
	OpToString

	// Control flow
	OpJump
	OpJumpIfTrue
	OpJumpIfFalse
	OpJumpIfNullish
	OpLabel // no-op marker, source-position anchor for debugging symmetry

	// Lexical scope (operand A on OpPushScope: slot count of the entered
	// block's CompileTimeEnvironment; every compiler-side nested scope gets
	// a matching runtime Environment frame so OpGetLocal/OpSetLocal hop
	// counts line up with actual environment-chain depth)
	OpPushScope
	OpPopScope

	// Calls / construction
	OpCall
	OpCallSpread
	OpTailCall
	OpConstruct
	OpConstructSpread
	OpSuperCall
	OpReturn

	// Exceptions
	OpThrow
	OpPushHandler
	OpPopHandler
	OpFinallyEnter
	OpFinallyExit

	// Iteration protocol
	OpGetIterator
	OpIteratorNext
	OpIteratorClose
	OpForInStart
	OpForInNext

	// Generators / async
	OpYield
	OpYieldStar
	OpAwait
	OpAsyncResolve
	OpAsyncReject

	// Object / array / function construction
	OpNewObject
	OpNewArray
	OpNewArrayFromSpread
	OpDefineProp
	OpDefineGetter
	OpDefineSetter
	OpDefineMethod
	OpSpreadInto
	OpNewFunction // operand: function-table index
	OpNewClass
	OpNewRegExp
	OpCreateArgumentsMapped
	OpCreateArgumentsUnmapped
)

var opNames = map[Op]string{
	OpNop: "nop", OpLoadConst: "load_const", OpLoadUndefined: "load_undefined",
	OpLoadNull: "load_null", OpLoadTrue: "load_true", OpLoadFalse: "load_false",
	OpLoadThis: "load_this", OpLoadNewTarget: "load_new_target", OpDup: "dup",
	OpPop: "pop", OpSwap: "swap", OpGetLocal: "get_local", OpSetLocal: "set_local",
	OpGetGlobal: "get_global", OpSetGlobal: "set_global", OpInitGlobal: "init_global",
	OpGetDynamic: "get_dynamic", OpSetDynamic: "set_dynamic", OpInitLocal: "init_local",
	OpGetArg: "get_arg", OpTDZCheck: "tdz_check",
	OpGetProp: "get_prop", OpSetProp: "set_prop", OpGetPropIC: "get_prop_ic",
	OpSetPropIC: "set_prop_ic", OpGetElem: "get_elem", OpSetElem: "set_elem",
	OpDeleteProp: "delete_prop", OpInProp: "in_prop",
	OpGetSuperProp: "get_super_prop", OpSetSuperProp: "set_super_prop",
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div", OpMod: "mod",
	OpPow: "pow", OpNeg: "neg", OpPos: "pos", OpBitNot: "bit_not", OpNot: "not",
	OpInc: "inc", OpDec: "dec", OpBitAnd: "bit_and", OpBitOr: "bit_or",
	OpBitXor: "bit_xor", OpShl: "shl", OpShr: "shr", OpUShr: "ushr",
	OpEq: "eq", OpNotEq: "not_eq", OpStrictEq: "strict_eq", OpStrictNotEq: "strict_not_eq",
	OpLt: "lt", OpLte: "lte", OpGt: "gt", OpGte: "gte", OpInstanceOf: "instanceof",
	OpTypeof: "typeof", OpToBoolean: "to_boolean", OpToNumeric: "to_numeric", OpToString: "to_string",
	OpJump: "jump", OpJumpIfTrue: "jump_if_true", OpJumpIfFalse: "jump_if_false",
	OpJumpIfNullish: "jump_if_nullish", OpLabel: "label",
	OpPushScope: "push_scope", OpPopScope: "pop_scope",
	OpCall: "call", OpCallSpread: "call_spread", OpTailCall: "tail_call",
	OpConstruct: "construct", OpConstructSpread: "construct_spread",
	OpSuperCall: "super_call", OpReturn: "return",
	OpThrow: "throw", OpPushHandler: "push_handler", OpPopHandler: "pop_handler",
	OpFinallyEnter: "finally_enter", OpFinallyExit: "finally_exit",
	OpGetIterator: "get_iterator", OpIteratorNext: "iterator_next",
	OpIteratorClose: "iterator_close", OpForInStart: "for_in_start", OpForInNext: "for_in_next",
	OpYield: "yield", OpYieldStar: "yield_star", OpAwait: "await",
	OpAsyncResolve: "async_resolve", OpAsyncReject: "async_reject",
	OpNewObject: "new_object", OpNewArray: "new_array",
	OpNewArrayFromSpread: "new_array_from_spread", OpDefineProp: "define_prop",
	OpDefineGetter: "define_getter", OpDefineSetter: "define_setter",
	OpDefineMethod: "define_method", OpSpreadInto: "spread_into",
	OpNewFunction: "new_function", OpNewClass: "new_class", OpNewRegExp: "new_regexp",
	OpCreateArgumentsMapped: "create_arguments_mapped",
	OpCreateArgumentsUnmapped: "create_arguments_unmapped",
}

func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "unknown"
}

// Instr is one decoded instruction: an opcode plus up to two operands.
// The compiler emits a flat []Instr per CodeBlock rather than a packed
// byte array — simpler to generate and walk from Go, at the cost of a
// larger in-memory representation than a bytecode interpreter written in
// a systems language would use; spec.md does not mandate byte-packed
// encoding, only the opcode semantics.
type Instr struct {
	Op   Op
	A, B int32
}
