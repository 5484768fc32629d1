package object

import (
	"math"
	"strconv"

	"github.com/termfx/ecmacore/internal/value"
)

// parseArrayIndex reports whether s is a canonical array index string
// ("0", "1", "42", never "01" or "-1") and its numeric value, per the
// CanonicalNumericIndexString algorithm restricted to array indices.
func parseArrayIndex(s string) (uint32, bool) {
	if s == "" {
		return 0, false
	}
	if s == "0" {
		return 0, true
	}
	if s[0] < '1' || s[0] > '9' {
		return 0, false
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || strconv.FormatUint(n, 10) != s {
		return 0, false
	}
	return uint32(n), true
}

func uintToString(n uint32) string { return strconv.FormatUint(uint64(n), 10) }

// callNative invokes the Go function stored on a native-function object.
func callNative(o *Object, ctx CallContext) (value.Value, error) {
	fn, ok := o.Native()
	if !ok {
		return value.Undefined, ErrNotCallable
	}
	return fn(ctx)
}

// constructNative invokes a native function as a constructor; native
// functions that don't support `new` return ErrNotConstructible by
// returning a non-nil error from fn when ctx.NewTarget is set, matching
// how host-registered callables opt out of being constructors.
func constructNative(o *Object, ctx CallContext) (value.Value, error) {
	fn, ok := o.Native()
	if !ok {
		return value.Undefined, ErrNotConstructible
	}
	return fn(ctx)
}

// callBound implements [[Call]] for a bound-function exotic object:
// forward to the target with the bound this/args prepended (spec.md's
// Function.prototype.bind semantics).
func callBound(o *Object, ctx CallContext) (value.Value, error) {
	args := append(append([]value.Value{}, o.boundArgs...), ctx.Args...)
	return o.boundTarget.Call(CallContext{This: o.boundThis, Args: args})
}

func constructBound(o *Object, ctx CallContext) (value.Value, error) {
	args := append(append([]value.Value{}, o.boundArgs...), ctx.Args...)
	nt := ctx.NewTarget
	if nt == o {
		nt = o.boundTarget
	}
	return o.boundTarget.Construct(CallContext{Args: args, NewTarget: nt})
}

// getArrayLength implements the read side of the array exotic "length"
// slot: defineArrayIndexOrLength keeps elementsLen in sync on every
// index/length write but never stored it as an ordinary property, so
// without this hook `arr.length` would silently read back as undefined.
func getArrayLength(o *Object, key PropertyKey) (Property, bool) {
	if key.IsSym || key.Name != "length" {
		return Property{}, false
	}
	n := o.elementsLen
	var v value.Value
	if n <= math.MaxInt32 {
		v = value.Integer32(int32(n))
	} else {
		v = value.Number(float64(n))
	}
	return Property{Value: v, Attrs: Attributes{Writable: true}}, true
}

// defineArrayIndexOrLength implements the array exotic [[DefineOwnProperty]]
// override: writing to "length" truncates/extends the element set, and
// writing past the current length extends it (spec.md's array exotic
// behavior). Returning handled=false defers to the ordinary algorithm for
// every other key.
func defineArrayIndexOrLength(o *Object, key PropertyKey, desc Property) (bool, error) {
	if key.IsSym || key.Name != "length" {
		return false, nil
	}
	n := uint32(desc.Value.AsFloat64())
	if n < o.elementsLen {
		for i := n; i < o.elementsLen; i++ {
			delete(o.elements, i)
		}
	}
	o.elementsLen = n
	return true, nil
}

// getMappedArgument implements the arguments-object exotic [[GetOwnProperty]]
// override: numeric indices below the mapped-parameter count read live off
// the function environment rather than a snapshot taken at call time
// (spec.md's "non-strict arguments object parameter mapping").
func getMappedArgument(o *Object, key PropertyKey) (Property, bool) {
	if key.IsSym || o.argEnv == nil {
		return Property{}, false
	}
	idx, ok := parseArrayIndex(key.Name)
	if !ok {
		return Property{}, false
	}
	slot, mapped := o.argMap[idx]
	if !mapped {
		return Property{}, false
	}
	return Property{Value: o.argEnv.GetMapped(slot), Attrs: DefaultDataAttributes()}, true
}
