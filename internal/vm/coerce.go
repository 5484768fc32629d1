package vm

import (
	"math"
	"strconv"
	"strings"

	"github.com/termfx/ecmacore/internal/bytecode"
	"github.com/termfx/ecmacore/internal/object"
	"github.com/termfx/ecmacore/internal/value"
)

// toPrimitive implements the ToPrimitive abstract operation with the
// default hint (valueOf before toString): objects are reduced to a
// primitive by calling valueOf, then toString, returning the first result
// that isn't itself an object.
func (vm *VM) toPrimitive(v value.Value, hintString bool) (value.Value, error) {
	o, ok := value.As[*object.Object](v)
	if !ok {
		return v, nil
	}
	order := []string{"valueOf", "toString"}
	if hintString {
		order = []string{"toString", "valueOf"}
	}
	for _, name := range order {
		fn, err := o.Get(object.StringKey(name), v, vm.call)
		if err != nil {
			return value.Undefined, err
		}
		if fo, ok := value.As[*object.Object](fn); ok && fo.IsCallable() {
			res, err := vm.call(fn, v, nil)
			if err != nil {
				return value.Undefined, err
			}
			if _, isObj := value.As[*object.Object](res); !isObj {
				return res, nil
			}
		}
	}
	return value.Undefined, vm.newTypeError("cannot convert object to primitive value")
}

// toNumber implements ToNumber.
func (vm *VM) toNumber(v value.Value) (float64, error) {
	switch v.Kind() {
	case value.KindNumber:
		return v.AsFloat64(), nil
	case value.KindInteger32:
		return float64(v.AsInt32()), nil
	case value.KindUndefined:
		return math.NaN(), nil
	case value.KindNull:
		return 0, nil
	case value.KindBoolean:
		if v.AsBool() {
			return 1, nil
		}
		return 0, nil
	case value.KindString:
		s := strings.TrimSpace(value.StringOf(v))
		if s == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN(), nil
		}
		return f, nil
	case value.KindObject, value.KindBigInt, value.KindSymbol:
		prim, err := vm.toPrimitive(v, false)
		if err != nil {
			return 0, err
		}
		if prim.Kind() == value.KindObject {
			return math.NaN(), nil
		}
		return vm.toNumber(prim)
	}
	return math.NaN(), nil
}

// toString implements ToString.
func (vm *VM) toString(v value.Value) (string, error) {
	switch v.Kind() {
	case value.KindString:
		return value.StringOf(v), nil
	case value.KindUndefined:
		return "undefined", nil
	case value.KindNull:
		return "null", nil
	case value.KindBoolean:
		if v.AsBool() {
			return "true", nil
		}
		return "false", nil
	case value.KindNumber:
		return formatNumber(v.AsFloat64()), nil
	case value.KindInteger32:
		return strconv.FormatInt(int64(v.AsInt32()), 10), nil
	case value.KindBigInt:
		return value.BigIntOf(v).String(), nil
	case value.KindSymbol:
		return "", vm.newTypeError("cannot convert a Symbol value to a string")
	case value.KindObject:
		prim, err := vm.toPrimitive(v, true)
		if err != nil {
			return "", err
		}
		if prim.Kind() == value.KindObject {
			return "[object Object]", nil
		}
		return vm.toString(prim)
	}
	return "", nil
}

func formatNumber(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// toBoolean implements ToBoolean directly via value.ToBoolean (already
// handles every primitive case); objects are always truthy.
func (vm *VM) toBoolean(v value.Value) bool { return value.ToBoolean(v) }

// typeOf implements the `typeof` operator.
func (vm *VM) typeOf(v value.Value) string {
	switch v.Kind() {
	case value.KindUndefined:
		return "undefined"
	case value.KindNull:
		return "object"
	case value.KindBoolean:
		return "boolean"
	case value.KindNumber, value.KindInteger32:
		return "number"
	case value.KindBigInt:
		return "bigint"
	case value.KindString:
		return "string"
	case value.KindSymbol:
		return "symbol"
	case value.KindObject:
		if o, ok := value.As[*object.Object](v); ok && o.IsCallable() {
			return "function"
		}
		return "object"
	}
	return "undefined"
}

// toPropertyKey implements ToPropertyKey: strings and symbols pass
// through as themselves, everything else is coerced via ToString.
func (vm *VM) toPropertyKey(v value.Value) (object.PropertyKey, error) {
	if v.Kind() == value.KindSymbol {
		return object.SymbolKey(v), nil
	}
	s, err := vm.toString(v)
	if err != nil {
		return object.PropertyKey{}, err
	}
	return object.StringKey(s), nil
}

// add implements the `+` operator's ToPrimitive-then-dispatch rule:
// string concatenation if either operand's primitive is a string,
// numeric addition otherwise.
func (vm *VM) add(a, b value.Value) (value.Value, error) {
	pa, err := vm.toPrimitive(a, false)
	if err != nil {
		return value.Undefined, err
	}
	pb, err := vm.toPrimitive(b, false)
	if err != nil {
		return value.Undefined, err
	}
	if pa.Kind() == value.KindString || pb.Kind() == value.KindString {
		sa, err := vm.toString(pa)
		if err != nil {
			return value.Undefined, err
		}
		sb, err := vm.toString(pb)
		if err != nil {
			return value.Undefined, err
		}
		return vm.newString(sa + sb), nil
	}
	if v, ok := int32Arith(bytecode.OpAdd, pa, pb); ok {
		return v, nil
	}
	na, err := vm.toNumber(pa)
	if err != nil {
		return value.Undefined, err
	}
	nb, err := vm.toNumber(pb)
	if err != nil {
		return value.Undefined, err
	}
	return value.Number(na + nb), nil
}

// looseEquals implements the `==` abstract equality comparison algorithm.
func (vm *VM) looseEquals(a, b value.Value) (bool, error) {
	if a.Kind() == b.Kind() || (isNumeric(a) && isNumeric(b)) {
		return value.StrictEquals(a, b), nil
	}
	if a.IsNullish() && b.IsNullish() {
		return true, nil
	}
	if a.IsNullish() || b.IsNullish() {
		return false, nil
	}
	if isNumeric(a) && b.Kind() == value.KindString {
		nb, err := vm.toNumber(b)
		if err != nil {
			return false, err
		}
		return a.AsFloat64() == nb, nil
	}
	if a.Kind() == value.KindString && isNumeric(b) {
		na, err := vm.toNumber(a)
		if err != nil {
			return false, err
		}
		return na == b.AsFloat64(), nil
	}
	if a.Kind() == value.KindBoolean {
		na, _ := vm.toNumber(a)
		return vm.looseEquals(value.Number(na), b)
	}
	if b.Kind() == value.KindBoolean {
		nb, _ := vm.toNumber(b)
		return vm.looseEquals(a, value.Number(nb))
	}
	if (isNumeric(a) || a.Kind() == value.KindString) && b.Kind() == value.KindObject {
		pb, err := vm.toPrimitive(b, false)
		if err != nil {
			return false, err
		}
		return vm.looseEquals(a, pb)
	}
	if a.Kind() == value.KindObject && (isNumeric(b) || b.Kind() == value.KindString) {
		pa, err := vm.toPrimitive(a, false)
		if err != nil {
			return false, err
		}
		return vm.looseEquals(pa, b)
	}
	return false, nil
}

func isNumeric(v value.Value) bool {
	return v.Kind() == value.KindNumber || v.Kind() == value.KindInteger32
}

// compare implements the abstract relational comparison (<, <=, >, >=),
// returning (result, isUndefinedComparison) — the latter true when either
// side is NaN, per spec.md-adjacent ECMA semantics (any comparison
// against NaN is false).
func (vm *VM) compare(a, b value.Value, leftFirst bool) (less bool, undef bool, err error) {
	var pa, pb value.Value
	if leftFirst {
		pa, err = vm.toPrimitive(a, false)
		if err != nil {
			return false, false, err
		}
		pb, err = vm.toPrimitive(b, false)
	} else {
		pb, err = vm.toPrimitive(b, false)
		if err != nil {
			return false, false, err
		}
		pa, err = vm.toPrimitive(a, false)
	}
	if err != nil {
		return false, false, err
	}
	if pa.Kind() == value.KindString && pb.Kind() == value.KindString {
		sa, sb := value.StringOf(pa), value.StringOf(pb)
		return sa < sb, false, nil
	}
	na, err := vm.toNumber(pa)
	if err != nil {
		return false, false, err
	}
	nb, err := vm.toNumber(pb)
	if err != nil {
		return false, false, err
	}
	if math.IsNaN(na) || math.IsNaN(nb) {
		return false, true, nil
	}
	return na < nb, false, nil
}
