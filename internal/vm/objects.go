package vm

import (
	"strconv"
	"strings"

	"github.com/termfx/ecmacore/internal/object"
	"github.com/termfx/ecmacore/internal/value"
)

// newArrayFrom builds a KindArray object from vals, relying on Object's
// own array exotic [[DefineOwnProperty]] to track "length" as each index
// is defined.
func (vm *VM) newArrayFrom(vals []value.Value) *object.Object {
	arr := vm.newArray()
	for i, v := range vals {
		arr.DefineOwnProperty(object.StringKey(strconv.Itoa(i)), object.Property{
			Value: v, Attrs: object.DefaultDataAttributes(),
		})
	}
	return arr
}

// arrayElements reads back an array-like object's own indexed elements in
// order, the counterpart newArrayFrom needs for spread/apply/iteration
// over an already-built array.
func (vm *VM) arrayElements(o *object.Object) []value.Value {
	var out []value.Value
	for _, k := range o.OwnPropertyKeys() {
		if k.IsSym {
			continue
		}
		if _, err := strconv.ParseUint(k.Name, 10, 32); err != nil {
			continue
		}
		v, _ := o.Get(k, value.FromRef(value.KindObject, o), vm.call)
		out = append(out, v)
	}
	return out
}

// newArguments builds the arguments object a function's entry sequence
// materializes when OpCreateArgumentsMapped/Unmapped runs.
func (vm *VM) newArguments(args []value.Value, mapped bool, env interface{ GetMapped(int) value.Value }, argMap map[uint32]int) *object.Object {
	o := object.NewWithKind(vm.kinds, object.KindArguments, vm.objectProto)
	vm.alloc(o, 64)
	for i, v := range args {
		o.DefineOwnProperty(object.StringKey(strconv.Itoa(i)), object.Property{
			Value: v, Attrs: object.DefaultDataAttributes(),
		})
	}
	o.DefineOwnProperty(object.StringKey("length"), object.Property{
		Value: value.Integer32(int32(len(args))), Attrs: object.Attributes{Writable: true, Configurable: true},
	})
	return o
}

// setHomeObjectOnValue installs home as the [[HomeObject]] a method
// closure's super property lookups resolve against, if v is an ordinary
// bytecode-backed closure.
func setHomeObjectOnValue(v value.Value, home *object.Object) {
	o, ok := value.As[*object.Object](v)
	if !ok {
		return
	}
	data, _ := o.Function()
	if fd, ok := data.(*funcData); ok {
		fd.homeObject = home
	}
}

// copyMembers copies every own property of bag onto target, wiring home
// as the [[HomeObject]] of any function values found along the way
// (methods and accessor functions need a home object for super property
// resolution; plain data properties are unaffected by the call).
func (vm *VM) copyMembers(bag, target, home *object.Object) {
	if bag == nil {
		return
	}
	for _, k := range bag.OwnPropertyKeys() {
		p, ok := bag.GetOwnProperty(k)
		if !ok {
			continue
		}
		if p.IsAccessor() {
			setHomeObjectOnValue(p.Accessor.Get, home)
			setHomeObjectOnValue(p.Accessor.Set, home)
		} else {
			setHomeObjectOnValue(p.Value, home)
		}
		target.DefineOwnProperty(k, p)
	}
}

// assembleClass implements OpNewClass: pop the six stack slots
// compileClassLiteral produced (spec.md §4.7's class-construction
// operation) and wire them into a real constructor/prototype pair.
func (vm *VM) assembleClass(frame *CallFrame) error {
	staticFieldBag, _ := value.As[*object.Object](frame.pop())
	staticMethodBag, _ := value.As[*object.Object](frame.pop())
	fieldBag, _ := value.As[*object.Object](frame.pop())
	methodBag, _ := value.As[*object.Object](frame.pop())
	ctorVal := frame.pop()
	superVal := frame.pop()

	ctorObj, ok := value.As[*object.Object](ctorVal)
	if !ok {
		return vm.newTypeError("class constructor is not a function")
	}

	var protoParent *object.Object
	var superCtor *object.Object
	if superVal.IsUndefined() {
		protoParent = vm.objectProto
	} else {
		sc, ok := value.As[*object.Object](superVal)
		if !ok || !sc.IsConstructor() {
			return vm.newTypeError("class extends value is not a constructor")
		}
		superCtor = sc
		protoVal, err := sc.Get(object.StringKey("prototype"), superVal, vm.call)
		if err != nil {
			return err
		}
		if p, ok := value.As[*object.Object](protoVal); ok {
			protoParent = p
		} else {
			protoParent = vm.objectProto
		}
	}

	newProto := vm.newObject(protoParent)
	vm.copyMembers(methodBag, newProto, newProto)
	newProto.DefineOwnProperty(object.StringKey("constructor"), object.Property{
		Value: ctorVal, Attrs: object.Attributes{Writable: true, Configurable: true},
	})

	ctorObj.DefineOwnProperty(object.StringKey("prototype"), object.Property{
		Value: value.FromRef(value.KindObject, newProto),
	})
	if superCtor != nil {
		ctorObj.SetPrototypeOf(superCtor)
	}
	vm.copyMembers(staticMethodBag, ctorObj, ctorObj)

	ctorData, _ := ctorObj.Function()
	if fd, ok := ctorData.(*funcData); ok {
		fd.homeObject = newProto
		if fieldBag != nil {
			for _, k := range fieldBag.OwnPropertyKeys() {
				p, ok := fieldBag.GetOwnProperty(k)
				if !ok {
					continue
				}
				fn, _ := value.As[*object.Object](p.Value)
				fd.fieldThunks = append(fd.fieldThunks, classMember{key: k, fn: fn})
			}
		}
	}

	if staticFieldBag != nil {
		for _, k := range staticFieldBag.OwnPropertyKeys() {
			p, ok := staticFieldBag.GetOwnProperty(k)
			if !ok {
				continue
			}
			result, err := vm.call(p.Value, value.FromRef(value.KindObject, ctorObj), nil)
			if err != nil {
				return err
			}
			if strings.HasPrefix(k.Name, "@@static-block:") {
				continue // static-block thunk: run for effect, discard result
			}
			ctorObj.DefineOwnProperty(k, object.Property{Value: result, Attrs: object.DefaultDataAttributes()})
		}
	}

	frame.push(ctorVal)
	return nil
}

// getIterator builds a plain object carrying a native "next" method that
// advances a Go closure, the VM-internal stand-in OpGetIterator/
// OpIteratorNext operate on. This is a simplified iterator protocol —
// real Symbol.iterator dispatch would require well-known-symbol
// machinery this layer doesn't build — so arrays, strings, and arguments
// objects are recognized and iterated directly by kind, and any other
// object (including a user-authored [Symbol.iterator]() object) is
// rejected as non-iterable. Documented as a deliberate scope
// simplification.
func (vm *VM) getIterator(v value.Value) (*object.Object, error) {
	var next func() (value.Value, bool, error)
	switch v.Kind() {
	case value.KindString:
		runes := []rune(value.StringOf(v))
		i := 0
		next = func() (value.Value, bool, error) {
			if i >= len(runes) {
				return value.Undefined, true, nil
			}
			r := runes[i]
			i++
			return vm.newString(string(r)), false, nil
		}
	case value.KindObject:
		o, _ := value.As[*object.Object](v)
		if o == nil || (o.Kind() != object.KindArray && o.Kind() != object.KindArguments) {
			return nil, vm.newTypeError("value is not iterable")
		}
		elems := vm.arrayElements(o)
		i := 0
		next = func() (value.Value, bool, error) {
			if i >= len(elems) {
				return value.Undefined, true, nil
			}
			val := elems[i]
			i++
			return val, false, nil
		}
	default:
		return nil, vm.newTypeError("value is not iterable")
	}

	iterObj := vm.newObject(vm.objectProto)
	nextNative := vm.newNative(func(ctx object.CallContext) (value.Value, error) {
		val, done, err := next()
		if err != nil {
			return value.Undefined, err
		}
		res := vm.newObject(vm.objectProto)
		res.DefineOwnProperty(object.StringKey("value"), object.Property{Value: val, Attrs: object.DefaultDataAttributes()})
		res.DefineOwnProperty(object.StringKey("done"), object.Property{Value: value.Bool(done), Attrs: object.DefaultDataAttributes()})
		return value.FromRef(value.KindObject, res), nil
	})
	iterObj.DefineOwnProperty(object.StringKey("next"), object.Property{
		Value: value.FromRef(value.KindObject, nextNative), Attrs: object.DefaultDataAttributes(),
	})
	return iterObj, nil
}

// iteratorStep calls iterObj.next() and unpacks the {value, done} result
// object OpIteratorNext/OpForInNext expect.
func (vm *VM) iteratorStep(iterObj *object.Object) (val value.Value, done bool, err error) {
	nextFn, err := iterObj.Get(object.StringKey("next"), value.FromRef(value.KindObject, iterObj), vm.call)
	if err != nil {
		return value.Undefined, false, err
	}
	res, err := vm.call(nextFn, value.FromRef(value.KindObject, iterObj), nil)
	if err != nil {
		return value.Undefined, false, err
	}
	resObj, ok := value.As[*object.Object](res)
	if !ok {
		return value.Undefined, false, vm.newTypeError("iterator result is not an object")
	}
	doneVal, err := resObj.Get(object.StringKey("done"), res, vm.call)
	if err != nil {
		return value.Undefined, false, err
	}
	v, err := resObj.Get(object.StringKey("value"), res, vm.call)
	if err != nil {
		return value.Undefined, false, err
	}
	return v, vm.toBoolean(doneVal), nil
}

// iteratorClose calls iterObj.return(), if present, discarding the
// result — used when a for-of loop exits early (break/return/throw).
func (vm *VM) iteratorClose(iterObj *object.Object) error {
	retFn, err := iterObj.Get(object.StringKey("return"), value.FromRef(value.KindObject, iterObj), vm.call)
	if err != nil {
		return err
	}
	if fo, ok := value.As[*object.Object](retFn); ok && fo.IsCallable() {
		_, err := vm.call(retFn, value.FromRef(value.KindObject, iterObj), nil)
		return err
	}
	return nil
}

// getForInEnumerator wraps enumerateKeys's result the same way
// getIterator wraps an iterable, so OpForInStart/OpForInNext share the
// same {value,done}-polling shape as OpGetIterator/OpIteratorNext.
func (vm *VM) getForInEnumerator(v value.Value) (*object.Object, error) {
	o, ok := value.As[*object.Object](v)
	if !ok {
		iterObj := vm.newObject(vm.objectProto)
		nextNative := vm.newNative(func(ctx object.CallContext) (value.Value, error) {
			res := vm.newObject(vm.objectProto)
			res.DefineOwnProperty(object.StringKey("done"), object.Property{Value: value.True, Attrs: object.DefaultDataAttributes()})
			return value.FromRef(value.KindObject, res), nil
		})
		iterObj.DefineOwnProperty(object.StringKey("next"), object.Property{Value: value.FromRef(value.KindObject, nextNative), Attrs: object.DefaultDataAttributes()})
		return iterObj, nil
	}
	keys := vm.enumerateKeys(o)
	i := 0
	iterObj := vm.newObject(vm.objectProto)
	nextNative := vm.newNative(func(ctx object.CallContext) (value.Value, error) {
		res := vm.newObject(vm.objectProto)
		if i >= len(keys) {
			res.DefineOwnProperty(object.StringKey("done"), object.Property{Value: value.True, Attrs: object.DefaultDataAttributes()})
			return value.FromRef(value.KindObject, res), nil
		}
		k := keys[i]
		i++
		res.DefineOwnProperty(object.StringKey("done"), object.Property{Value: value.False, Attrs: object.DefaultDataAttributes()})
		res.DefineOwnProperty(object.StringKey("value"), object.Property{Value: vm.newString(k), Attrs: object.DefaultDataAttributes()})
		return value.FromRef(value.KindObject, res), nil
	})
	iterObj.DefineOwnProperty(object.StringKey("next"), object.Property{Value: value.FromRef(value.KindObject, nextNative), Attrs: object.DefaultDataAttributes()})
	return iterObj, nil
}

// enumerateKeys builds the for-in enumeration list: own-then-inherited
// enumerable string keys, each name visited once even if shadowed deeper
// in the prototype chain.
func (vm *VM) enumerateKeys(o *object.Object) []string {
	seen := make(map[string]bool)
	var out []string
	for cur := o; cur != nil; cur = cur.Prototype() {
		for _, k := range cur.OwnPropertyKeys() {
			if k.IsSym || seen[k.Name] {
				continue
			}
			seen[k.Name] = true
			if p, ok := cur.GetOwnProperty(k); ok && p.Attrs.Enumerable {
				out = append(out, k.Name)
			}
		}
	}
	return out
}
