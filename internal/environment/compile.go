// Package environment implements the compile-time and runtime environment
// stacks spec.md §4.6/§4.7 describe: Declarative, Function, Global, and
// Module Record variants, binding resolution by (hops, slot) versus
// global-name versus dynamic-name, and the poisoned-environment rule a
// direct eval or a with-statement forces (grounded on
// original_source/boa-dev's boa_engine/src/environments/runtime/
// declarative/mod.rs: a runtime DeclarativeEnvironment pairs with the
// CompileTimeEnvironment it was compiled against, and the poisoned flag
// means "this environment may have had bindings added to it since
// compilation, fall back to a full name lookup").
package environment

// CompileTimeEnvironment mirrors one lexical scope during compilation: it
// assigns slot indices to bindings as the compiler encounters declarations,
// so the compiler can resolve a later reference to (hops, slot) rather than
// a name lookup (spec.md §4.6).
type CompileTimeEnvironment struct {
	parent        *CompileTimeEnvironment
	names         map[string]int
	order         []string
	functionScope bool
	poisoned      bool // true once a direct eval or with-statement was compiled in this scope
}

// NewCompileTimeEnvironment creates a scope nested inside parent (nil for
// the outermost/global scope). functionScope marks a function-body
// boundary, which matters for `var` hoisting targets.
func NewCompileTimeEnvironment(parent *CompileTimeEnvironment, functionScope bool) *CompileTimeEnvironment {
	return &CompileTimeEnvironment{parent: parent, names: make(map[string]int), functionScope: functionScope}
}

// Declare adds name to this scope, returning its slot index. Redeclaring
// an existing name returns the existing slot (the compiler's early-error
// pass is responsible for rejecting duplicate lexical declarations before
// this is reached).
func (c *CompileTimeEnvironment) Declare(name string) int {
	if slot, ok := c.names[name]; ok {
		return slot
	}
	slot := len(c.order)
	c.names[name] = slot
	c.order = append(c.order, name)
	return slot
}

// Resolve looks up name starting at c and walking parents, returning the
// number of scope hops and the slot index within that scope. ok is false
// if name is not lexically bound in any enclosing scope (the compiler then
// falls back to global-name or dynamic-name resolution).
func (c *CompileTimeEnvironment) Resolve(name string) (hops, slot int, ok bool) {
	cur := c
	for cur != nil {
		if cur.poisoned {
			return 0, 0, false
		}
		if s, found := cur.names[name]; found {
			return hops, s, true
		}
		hops++
		cur = cur.parent
	}
	return 0, 0, false
}

// MarkPoisoned records that this scope (and therefore every scope nested
// inside it) can no longer trust static binding resolution, because a
// direct eval or with-statement was compiled here. Resolve on this scope
// or any compiled-before-poisoning descendant now reports not-found so the
// compiler emits OpGetDynamic/OpSetDynamic instead.
func (c *CompileTimeEnvironment) MarkPoisoned() { c.poisoned = true }

// Poisoned reports whether this scope has been marked poisoned.
func (c *CompileTimeEnvironment) Poisoned() bool { return c.poisoned }

// FunctionBoundary reports whether this scope is a function body (the
// target for `var` hoisting) rather than a block.
func (c *CompileTimeEnvironment) FunctionBoundary() bool { return c.functionScope }

// Parent returns the enclosing compile-time scope, or nil at the top.
func (c *CompileTimeEnvironment) Parent() *CompileTimeEnvironment { return c.parent }

// SlotCount returns how many bindings this scope has declared.
func (c *CompileTimeEnvironment) SlotCount() int { return len(c.order) }

// Names returns the declared binding names in declaration order, used to
// build the CodeBlock's ScopeDescriptor for diagnostics.
func (c *CompileTimeEnvironment) Names() []string { return append([]string(nil), c.order...) }
