// Package structuredclone implements the host-facing structured clone
// algorithm (spec.md §6): a byte encoding of a value.Value graph that
// never runs user code while walking it — no getter, no toJSON, no
// valueOf is ever invoked, only direct object-model reads of own data
// properties.
//
// The wire format is a manually framed tag-length-value encoding, the
// same shape gob or protobuf would produce but hand-rolled (no pack
// example wires a structured-clone-shaped serializer onto anything, so
// there's no library to ground this on — see DESIGN.md).
package structuredclone

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"

	"github.com/termfx/ecmacore/internal/object"
	"github.com/termfx/ecmacore/internal/value"
)

// Heap is the minimal allocation surface Deserialize needs to rebuild
// objects and arrays in a target realm — satisfied by *vm.VM without this
// package importing internal/vm (which would otherwise be a dependency
// cycle: vm already sits above this package in the wiring, not below it).
type Heap interface {
	NewObject(proto *object.Object) *object.Object
	NewArray(vals []value.Value) *object.Object
	NewString(s string) value.Value
}

const (
	tagUndefined byte = iota
	tagNull
	tagFalse
	tagTrue
	tagNumber
	tagInteger32
	tagString
	tagArray
	tagObject
	tagBigInt
)

// ErrNotCloneable is returned for a value with no structured-clone
// representation: functions, symbols, and any other exotic kind this
// engine doesn't model as plain data (spec.md explicitly leaves
// TypedArray/ArrayBuffer/Map/Set/etc. out of the core object kinds this
// package knows how to walk).
var ErrNotCloneable = errors.New("value cannot be structured-cloned")

// Serialize encodes v into a self-contained byte stream. transferable is
// accepted for Section 6 API compatibility but currently has nothing to
// do: this engine has no ArrayBuffer/TypedArray kind to actually transfer
// ownership of, so every value reachable from v is always deep-copied,
// never moved.
func Serialize(v value.Value, transferable []*object.Object) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v, make(map[*object.Object]bool)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encode(buf *bytes.Buffer, v value.Value, seen map[*object.Object]bool) error {
	switch v.Kind() {
	case value.KindUndefined:
		buf.WriteByte(tagUndefined)
	case value.KindNull:
		buf.WriteByte(tagNull)
	case value.KindBoolean:
		if v.AsBool() {
			buf.WriteByte(tagTrue)
		} else {
			buf.WriteByte(tagFalse)
		}
	case value.KindNumber:
		buf.WriteByte(tagNumber)
		var bits [8]byte
		binary.BigEndian.PutUint64(bits[:], math.Float64bits(v.AsFloat64()))
		buf.Write(bits[:])
	case value.KindInteger32:
		buf.WriteByte(tagInteger32)
		var bits [4]byte
		binary.BigEndian.PutUint32(bits[:], uint32(v.AsInt32()))
		buf.Write(bits[:])
	case value.KindString:
		buf.WriteByte(tagString)
		writeBytes(buf, []byte(value.StringOf(v)))
	case value.KindBigInt:
		buf.WriteByte(tagBigInt)
		writeBytes(buf, []byte(value.BigIntOf(v).String()))
	case value.KindObject:
		o, ok := value.As[*object.Object](v)
		if !ok {
			return ErrNotCloneable
		}
		return encodeObject(buf, o, seen)
	default:
		return fmt.Errorf("%w: kind %v", ErrNotCloneable, v.Kind())
	}
	return nil
}

func encodeObject(buf *bytes.Buffer, o *object.Object, seen map[*object.Object]bool) error {
	if o.IsCallable() {
		return fmt.Errorf("%w: function", ErrNotCloneable)
	}
	if seen[o] {
		return errors.New("structuredclone: cyclic reference is not supported by this encoding")
	}
	seen[o] = true
	defer delete(seen, o)

	keys := o.OwnPropertyKeys()
	type kv struct {
		key string
		val value.Value
	}
	var entries []kv
	for _, k := range keys {
		if k.IsSym {
			continue // symbol keys carry no structured-clone representation
		}
		p, found := o.GetOwnProperty(k)
		if !found || !p.Attrs.Enumerable || p.Attrs.Accessor {
			continue // accessors are skipped entirely: reading one would run user code
		}
		entries = append(entries, kv{key: k.Name, val: p.Value})
	}

	if o.Kind() == object.KindArray {
		buf.WriteByte(tagArray)
	} else {
		buf.WriteByte(tagObject)
	}
	writeUint32(buf, uint32(len(entries)))
	for _, e := range entries {
		writeBytes(buf, []byte(e.key))
		if err := encode(buf, e.val, seen); err != nil {
			return err
		}
	}
	return nil
}

// Deserialize reconstructs a value.Value graph from data (as produced by
// Serialize), allocating every object/array/string it encounters on heap.
// Unlike Serialize, there is no "don't run user code" constraint here —
// nothing user-defined exists yet to run against, since every object
// Deserialize builds starts out plain, with heap's ordinary prototypes.
func Deserialize(data []byte, heap Heap) (value.Value, error) {
	r := bytes.NewReader(data)
	return decode(r, heap)
}

func decode(r *bytes.Reader, heap Heap) (value.Value, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return value.Undefined, fmt.Errorf("structuredclone: truncated stream: %w", err)
	}
	switch tag {
	case tagUndefined:
		return value.Undefined, nil
	case tagNull:
		return value.Null, nil
	case tagFalse:
		return value.Bool(false), nil
	case tagTrue:
		return value.Bool(true), nil
	case tagNumber:
		var bits [8]byte
		if _, err := io.ReadFull(r, bits[:]); err != nil {
			return value.Undefined, err
		}
		return value.Number(math.Float64frombits(binary.BigEndian.Uint64(bits[:]))), nil
	case tagInteger32:
		var bits [4]byte
		if _, err := io.ReadFull(r, bits[:]); err != nil {
			return value.Undefined, err
		}
		return value.Integer32(int32(binary.BigEndian.Uint32(bits[:]))), nil
	case tagString:
		b, err := readBytes(r)
		if err != nil {
			return value.Undefined, err
		}
		return heap.NewString(string(b)), nil
	case tagBigInt:
		b, err := readBytes(r)
		if err != nil {
			return value.Undefined, err
		}
		n, ok := new(big.Int).SetString(string(b), 10)
		if !ok {
			return value.Undefined, fmt.Errorf("structuredclone: malformed bigint %q", b)
		}
		return value.NewBigInt(n), nil
	case tagArray, tagObject:
		count, err := readUint32(r)
		if err != nil {
			return value.Undefined, err
		}
		type kv struct {
			key string
			val value.Value
		}
		entries := make([]kv, 0, count)
		for i := uint32(0); i < count; i++ {
			keyBytes, err := readBytes(r)
			if err != nil {
				return value.Undefined, err
			}
			v, err := decode(r, heap)
			if err != nil {
				return value.Undefined, err
			}
			entries = append(entries, kv{key: string(keyBytes), val: v})
		}
		if tag == tagArray {
			vals := make([]value.Value, len(entries))
			for i, e := range entries {
				vals[i] = e.val
			}
			return value.FromRef(value.KindObject, heap.NewArray(vals)), nil
		}
		o := heap.NewObject(nil)
		for _, e := range entries {
			o.DefineOwnProperty(object.StringKey(e.key), object.Property{
				Value: e.val, Attrs: object.DefaultDataAttributes(),
			})
		}
		return value.FromRef(value.KindObject, o), nil
	default:
		return value.Undefined, fmt.Errorf("structuredclone: unknown tag %d", tag)
	}
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("structuredclone: truncated stream: %w", err)
	}
	return b, nil
}

func readUint32(r *bytes.Reader) (uint32, error) {
	var bits [4]byte
	if _, err := io.ReadFull(r, bits[:]); err != nil {
		return 0, fmt.Errorf("structuredclone: truncated stream: %w", err)
	}
	return binary.BigEndian.Uint32(bits[:]), nil
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	writeUint32(buf, uint32(len(b)))
	buf.Write(b)
}

func writeUint32(buf *bytes.Buffer, n uint32) {
	var bits [4]byte
	binary.BigEndian.PutUint32(bits[:], n)
	buf.Write(bits[:])
}
