package object

import (
	"errors"

	"github.com/termfx/ecmacore/internal/gc"
	"github.com/termfx/ecmacore/internal/value"
)

// ErrNotExtensible is returned (or surfaced as a strict-mode TypeError by
// the VM) when DefineOwnProperty would add a key to a non-extensible
// object.
var ErrNotExtensible = errors.New("object: not extensible")

// ErrNotCallable / ErrNotConstructible back Call/Construct on an Object
// whose Kind has no matching Behavior hook.
var (
	ErrNotCallable      = errors.New("object: not callable")
	ErrNotConstructible = errors.New("object: not a constructor")
)

// FunctionData is the opaque payload an ordinary (bytecode-backed)
// function object carries. internal/vm defines the concrete type
// (a closure over a compiled CodeBlock and its captured environment) and
// type-asserts it back out; this package never inspects it.
type FunctionData interface{}

// Object is the single representation every exotic kind (array, ordinary
// function, native function, bound function, arguments, proxy, error, …)
// is built from, the way spec.md's object model requires: one struct plus
// a Kind tag rather than a type per exotic behavior.
type Object struct {
	gc.Header

	table *KindTable
	kind  Kind

	shape *Shape
	slots []value.Value

	dictKeys []string
	dict     map[string]*dictEntry

	elements    map[uint32]value.Value
	elementsLen uint32

	prototype  *Object
	extensible bool

	deleteCount int

	native      NativeFunc
	boundTarget *Object
	boundThis   value.Value
	boundArgs   []value.Value
	function    FunctionData
	argMap      map[uint32]int // arguments[i] -> parameter slot it's mapped to
	argEnv      MappedEnv
	errorKind   string
	internal    InternalData
}

// InternalData is the opaque payload a non-function exotic object (e.g. a
// Promise) carries, the InternalData/SetInternalData counterpart to
// FunctionData/SetFunction for kinds that must not be forced to
// KindFunction as a side effect of attaching their state.
type InternalData interface{}

// InternalData returns the opaque internal-slot payload set by
// SetInternalData, and whether one is present.
func (o *Object) InternalData() (InternalData, bool) { return o.internal, o.internal != nil }

// SetInternalData installs data as o's opaque internal-slot payload
// without touching o.kind, unlike SetFunction.
func (o *Object) SetInternalData(data InternalData) { o.internal = data }

// ErrorKind returns the error-kind tag set by SetErrorKind (e.g.
// "TypeError"), used to pick the matching prototype for instanceof.
func (o *Object) ErrorKind() string { return o.errorKind }

// SetErrorKind records which native error subtype o represents.
func (o *Object) SetErrorKind(kind string) { o.errorKind = kind }

// MappedEnv is the narrow surface the arguments-object mapped-parameter
// exotic behavior needs from a live function-environment binding set.
// internal/environment's Function Environment Record implements this.
type MappedEnv interface {
	GetMapped(slot int) value.Value
}

// New creates an ordinary object (KindOrdinary) with the given prototype
// (nil for %Object.prototype%-less objects) and an empty shape.
func New(table *KindTable, prototype *Object) *Object {
	return &Object{
		table:      table,
		kind:       KindOrdinary,
		shape:      RootShape(),
		prototype:  prototype,
		extensible: true,
	}
}

// NewWithKind creates an exotic object of the given Kind, sharing New's
// defaults.
func NewWithKind(table *KindTable, kind Kind, prototype *Object) *Object {
	o := New(table, prototype)
	o.kind = kind
	return o
}

// NewNative wraps fn as a callable native-function object.
func NewNative(table *KindTable, prototype *Object, fn NativeFunc) *Object {
	o := NewWithKind(table, KindNativeFunction, prototype)
	o.native = fn
	return o
}

// NewBound creates a bound-function exotic object per Function.prototype.bind.
func NewBound(table *KindTable, prototype *Object, target *Object, boundThis value.Value, boundArgs []value.Value) *Object {
	o := NewWithKind(table, KindBoundFunction, prototype)
	o.boundTarget = target
	o.boundThis = boundThis
	o.boundArgs = boundArgs
	return o
}

// Kind reports this object's exotic-behavior tag.
func (o *Object) Kind() Kind { return o.kind }

// Function returns the opaque ordinary-function payload set by
// internal/vm, and whether one is present.
func (o *Object) Function() (FunctionData, bool) { return o.function, o.function != nil }

// SetFunction installs the ordinary-function payload; called by the
// compiler/VM when materializing a closure object.
func (o *Object) SetFunction(data FunctionData) { o.function = data; o.kind = KindFunction }

// Native returns the native callable payload, if any.
func (o *Object) Native() (NativeFunc, bool) { return o.native, o.native != nil }

// Prototype returns the object's [[Prototype]] internal slot.
func (o *Object) Prototype() *Object { return o.prototype }

// HeapKind implements value.Ref so an Object can be wrapped directly as a
// value.Value via value.FromRef(value.KindObject, o).
func (o *Object) HeapKind() string { return "object" }

// Shape returns the object's current shape, the key an inline-cache site
// checks a stored instruction against before trusting its cached slot.
func (o *Object) Shape() *Shape { return o.shape }

// SlotValue reads slot directly, bypassing [[GetOwnProperty]]; only valid
// for the non-dictionary fast path an inline-cache hit has already
// confirmed applies to this object's current shape.
func (o *Object) SlotValue(slot int) value.Value { return o.slots[slot] }

// SetSlotValue writes slot directly, the inline-cache hit counterpart to
// SlotValue, used by OpSetPropIC once the site's cached shape matches.
func (o *Object) SetSlotValue(slot int, v value.Value) { o.slots[slot] = v }

// Trace implements gc.Tracer.
func (o *Object) Trace(visit func(gc.Cell)) {
	for _, v := range o.slots {
		traceValue(v, visit)
	}
	for _, e := range o.dict {
		traceValue(e.value, visit)
		traceValue(e.acc.Get, visit)
		traceValue(e.acc.Set, visit)
	}
	for _, v := range o.elements {
		traceValue(v, visit)
	}
	if o.prototype != nil {
		visit(o.prototype)
	}
	if o.boundTarget != nil {
		visit(o.boundTarget)
	}
	traceValue(o.boundThis, visit)
	for _, v := range o.boundArgs {
		traceValue(v, visit)
	}
}

func traceValue(v value.Value, visit func(gc.Cell)) {
	ref := v.AsRef()
	if ref == nil {
		return
	}
	if c, ok := ref.(gc.Cell); ok {
		visit(c)
	}
}

// ---- [[GetPrototypeOf]] / [[SetPrototypeOf]] / [[IsExtensible]] / [[PreventExtensions]] ----

func (o *Object) GetPrototypeOf() *Object { return o.prototype }

// SetPrototypeOf implements the ordinary [[SetPrototypeOf]] algorithm,
// including the cycle check spec.md requires ("prototype chain walk with
// cycle prevention").
func (o *Object) SetPrototypeOf(proto *Object) bool {
	if proto == o.prototype {
		return true
	}
	if !o.extensible {
		return false
	}
	for p := proto; p != nil; p = p.prototype {
		if p == o {
			return false
		}
	}
	o.prototype = proto
	return true
}

func (o *Object) IsExtensible() bool { return o.extensible }

func (o *Object) PreventExtensions() bool {
	o.extensible = false
	return true
}

// ---- [[HasProperty]] ----

// HasProperty walks the prototype chain looking for key.
func (o *Object) HasProperty(key PropertyKey) bool {
	for cur := o; cur != nil; cur = cur.prototype {
		if _, ok := cur.GetOwnProperty(key); ok {
			return true
		}
	}
	return false
}

// ---- [[GetOwnProperty]] ----

// GetOwnProperty returns the own property descriptor for key without
// walking the prototype chain.
func (o *Object) GetOwnProperty(key PropertyKey) (Property, bool) {
	if b, ok := o.table.Lookup(o.kind); ok && b.GetOwnProperty != nil {
		if p, found := b.GetOwnProperty(o, key); found {
			return p, true
		}
	}
	if idx, ok := asElementIndex(key); ok {
		if v, found := o.elements[idx]; found {
			return Property{Value: v, Attrs: DefaultDataAttributes()}, true
		}
		return Property{}, false
	}
	if o.shape != nil && o.shape.IsDictionary() {
		if e, found := o.dict[key.Name]; found {
			return Property{Value: e.value, Accessor: e.acc, Attrs: e.attrs}, true
		}
		return Property{}, false
	}
	if node, ok := o.shape.Lookup(key.Name); ok {
		return Property{Value: o.slots[node.slot], Attrs: node.attrs}, true
	}
	return Property{}, false
}

// ---- [[Get]] / [[Set]] ----

// Get implements the ordinary [[Get]] abstract operation, including
// accessor-property dispatch and prototype-chain walk.
func (o *Object) Get(key PropertyKey, receiver value.Value, call func(fn value.Value, this value.Value, args []value.Value) (value.Value, error)) (value.Value, error) {
	for cur := o; cur != nil; cur = cur.prototype {
		p, ok := cur.GetOwnProperty(key)
		if !ok {
			continue
		}
		if p.IsAccessor() {
			if p.Accessor.Get.IsUndefined() {
				return value.Undefined, nil
			}
			return call(p.Accessor.Get, receiver, nil)
		}
		return p.Value, nil
	}
	return value.Undefined, nil
}

// Set implements the ordinary [[Set]] abstract operation.
func (o *Object) Set(key PropertyKey, v value.Value, receiver value.Value, call func(fn value.Value, this value.Value, args []value.Value) (value.Value, error)) (bool, error) {
	for cur := o; cur != nil; cur = cur.prototype {
		p, ok := cur.GetOwnProperty(key)
		if !ok {
			continue
		}
		if p.IsAccessor() {
			if p.Accessor.Set.IsUndefined() {
				return false, nil
			}
			_, err := call(p.Accessor.Set, receiver, []value.Value{v})
			return err == nil, err
		}
		if cur == o {
			if !p.Attrs.Writable {
				return false, nil
			}
			break
		}
		break
	}
	ok, err := o.DefineOwnProperty(key, Property{Value: v, Attrs: DefaultDataAttributes()})
	return ok, err
}

// ---- [[DefineOwnProperty]] ----

// DefineOwnProperty creates or replaces key's descriptor, driving a shape
// transition for the fast (non-dictionary) path and falling back to the
// dictionary map once DictionaryDemotionThreshold deletes have occurred.
func (o *Object) DefineOwnProperty(key PropertyKey, desc Property) (bool, error) {
	if b, ok := o.table.Lookup(o.kind); ok && b.DefineOwnProperty != nil {
		if handled, err := b.DefineOwnProperty(o, key, desc); handled {
			return true, err
		}
	}
	if idx, ok := asElementIndex(key); ok {
		if o.elements == nil {
			o.elements = make(map[uint32]value.Value)
		}
		o.elements[idx] = desc.Value
		if idx+1 > o.elementsLen {
			o.elementsLen = idx + 1
		}
		return true, nil
	}

	if o.shape != nil && o.shape.IsDictionary() {
		if o.dict == nil {
			o.dict = make(map[string]*dictEntry)
		}
		if _, existed := o.dict[key.Name]; !existed {
			o.dictKeys = append(o.dictKeys, key.Name)
		}
		o.dict[key.Name] = &dictEntry{value: desc.Value, acc: desc.Accessor, attrs: desc.Attrs}
		return true, nil
	}

	if node, ok := o.shape.Lookup(key.Name); ok {
		if desc.IsAccessor() || node.attrs != desc.Attrs {
			o.slots[node.slot] = value.Undefined
		}
		o.slots[node.slot] = desc.Value
		return true, nil
	}
	if !o.extensible {
		return false, ErrNotExtensible
	}
	o.shape = o.shape.Transition(key.Name, desc.Attrs)
	o.slots = append(o.slots, desc.Value)
	return true, nil
}

// ---- [[Delete]] ----

// Delete removes key's own property, demoting this object to dictionary
// mode after enough deletes have fragmented its shape lineage.
func (o *Object) Delete(key PropertyKey) (bool, error) {
	if b, ok := o.table.Lookup(o.kind); ok && b.Delete != nil {
		if handled, err := b.Delete(o, key); handled {
			return true, err
		}
	}
	if idx, ok := asElementIndex(key); ok {
		delete(o.elements, idx)
		return true, nil
	}
	if o.shape != nil && o.shape.IsDictionary() {
		delete(o.dict, key.Name)
		return true, nil
	}
	node, ok := o.shape.Lookup(key.Name)
	if !ok {
		return true, nil
	}
	if !node.attrs.Configurable {
		return false, nil
	}
	o.deleteCount++
	if o.deleteCount >= DictionaryDemotionThreshold {
		o.demoteToDictionary()
		delete(o.dict, key.Name)
		return true, nil
	}
	// Delete without demotion: rebuild the shape from node's parent,
	// replaying every later property so the deleted key leaves the lineage.
	var after []*Shape
	for cur := o.shape; cur != node; cur = cur.parent {
		after = append(after, cur)
	}
	shape := node.parent
	slots := append([]value.Value(nil), o.slots[:node.slot]...)
	for i := len(after) - 1; i >= 0; i-- {
		n := after[i]
		shape = shape.Transition(n.key, n.attrs)
		slots = append(slots, o.slots[n.slot])
	}
	o.shape, o.slots = shape, slots
	return true, nil
}

func (o *Object) demoteToDictionary() {
	// Walk root-to-tip so dictKeys preserves declaration order.
	var chain []*Shape
	for cur := o.shape; cur != nil && cur.parent != nil; cur = cur.parent {
		chain = append(chain, cur)
	}
	dict := make(map[string]*dictEntry, len(chain))
	keys := make([]string, 0, len(chain))
	for i := len(chain) - 1; i >= 0; i-- {
		node := chain[i]
		keys = append(keys, node.key)
		dict[node.key] = &dictEntry{value: o.slots[node.slot], attrs: node.attrs}
	}
	o.shape = o.shape.ToDictionary()
	o.dict = dict
	o.dictKeys = keys
	o.slots = nil
}

// ---- [[OwnPropertyKeys]] ----

// OwnPropertyKeys returns own keys in the ECMAScript-mandated order:
// integer indices ascending, then string keys in creation order, then
// symbol keys in creation order.
func (o *Object) OwnPropertyKeys() []PropertyKey {
	var keys []PropertyKey
	for i := uint32(0); i < o.elementsLen; i++ {
		if _, ok := o.elements[i]; ok {
			keys = append(keys, StringKey(uintToString(i)))
		}
	}
	if o.shape != nil && o.shape.IsDictionary() {
		for _, k := range o.dictKeys {
			if _, ok := o.dict[k]; ok {
				keys = append(keys, StringKey(k))
			}
		}
	} else if o.shape != nil {
		var chain []*Shape
		for cur := o.shape; cur != nil && cur.parent != nil; cur = cur.parent {
			chain = append(chain, cur)
		}
		for i := len(chain) - 1; i >= 0; i-- {
			keys = append(keys, StringKey(chain[i].key))
		}
	}
	if b, ok := o.table.Lookup(o.kind); ok && b.OwnPropertyKeysExtra != nil {
		keys = append(keys, b.OwnPropertyKeysExtra(o)...)
	}
	return keys
}

// ---- [[Call]] / [[Construct]] ----

func (o *Object) Call(ctx CallContext) (value.Value, error) {
	b, ok := o.table.Lookup(o.kind)
	if !ok || b.Call == nil {
		return value.Undefined, ErrNotCallable
	}
	return b.Call(o, ctx)
}

func (o *Object) Construct(ctx CallContext) (value.Value, error) {
	b, ok := o.table.Lookup(o.kind)
	if !ok || b.Construct == nil {
		return value.Undefined, ErrNotConstructible
	}
	return b.Construct(o, ctx)
}

func (o *Object) IsCallable() bool {
	b, ok := o.table.Lookup(o.kind)
	return ok && b.Call != nil
}

func (o *Object) IsConstructor() bool {
	b, ok := o.table.Lookup(o.kind)
	return ok && b.Construct != nil
}

func asElementIndex(key PropertyKey) (uint32, bool) {
	if key.IsSym {
		return 0, false
	}
	return parseArrayIndex(key.Name)
}
