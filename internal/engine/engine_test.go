package engine

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termfx/ecmacore/internal/object"
	"github.com/termfx/ecmacore/internal/value"
)

// These six scenarios are the end-to-end seed tests spec.md §8 names: one
// per boundary behavior the engine's core pieces (Integer32 fast-path
// arithmetic, closures, Promise/job-queue scheduling, generators, native
// Error constructors, and private class fields) are each meant to get
// right together, not in isolation.

func TestSeedIntegerAdditionStaysInteger32(t *testing.T) {
	r := New()
	v, err := r.Eval("let a=1; for(let i=0;i<3;i++) a+=i; a")
	require.NoError(t, err)
	require.Equal(t, value.KindInteger32, v.Kind())
	assert.Equal(t, int32(4), v.AsInt32())
}

func TestSeedArrayPushAndMapCaptureLoopVariable(t *testing.T) {
	r := New()
	v, err := r.Eval("let x=[]; for(let i=0;i<3;i++) x.push((y=>()=>y)(i)); x.map(f=>f())")
	require.NoError(t, err)
	o, ok := value.As[*object.Object](v)
	require.True(t, ok)
	require.Equal(t, object.KindArray, o.Kind())

	for i, want := range []int32{0, 1, 2} {
		elem, err := o.Get(object.StringKey(strconv.Itoa(i)), v, r.VM().Call)
		require.NoError(t, err)
		require.Equal(t, value.KindInteger32, elem.Kind())
		assert.Equal(t, want, elem.AsInt32())
	}
}

func TestSeedPromiseChainResolvesAfterDrain(t *testing.T) {
	r := New()
	var observed value.Value
	require.NoError(t, r.RegisterGlobalCallable("observe", 1, func(this value.Value, args []value.Value) (value.Value, error) {
		if len(args) > 0 {
			observed = args[0]
		}
		return value.Undefined, nil
	}))

	v, err := r.Eval("Promise.resolve(1).then(v=>v+1).then(v=>v*10).then(observe)")
	require.NoError(t, err)
	o, ok := value.As[*object.Object](v)
	require.True(t, ok)
	require.Equal(t, object.KindPromise, o.Kind())

	// The chain's reactions sit in the job queue until drained — `observe`
	// hasn't run yet at this point.
	assert.False(t, observed.Kind() == value.KindInteger32)

	require.NoError(t, r.RunJobs())

	require.Equal(t, value.KindInteger32, observed.Kind())
	assert.Equal(t, int32(20), observed.AsInt32())
}

func TestSeedGeneratorYieldsThenReportsDone(t *testing.T) {
	r := New()
	v, err := r.Eval("function*g(){yield 1; yield 2;} const it=g(); [it.next().value, it.next().value, it.next().done]")
	require.NoError(t, err)
	o, ok := value.As[*object.Object](v)
	require.True(t, ok)
	require.Equal(t, object.KindArray, o.Kind())

	first, err := o.Get(object.StringKey("0"), v, r.VM().Call)
	require.NoError(t, err)
	assert.Equal(t, int32(1), first.AsInt32())

	second, err := o.Get(object.StringKey("1"), v, r.VM().Call)
	require.NoError(t, err)
	assert.Equal(t, int32(2), second.AsInt32())

	done, err := o.Get(object.StringKey("2"), v, r.VM().Call)
	require.NoError(t, err)
	require.Equal(t, value.KindBoolean, done.Kind())
	assert.True(t, done.AsBool())
}

func TestSeedThrownTypeErrorIsInstanceofTypeError(t *testing.T) {
	r := New()
	v, err := r.Eval(`try { throw new TypeError("x"); } catch(e) { e instanceof TypeError && e.message }`)
	require.NoError(t, err)
	require.Equal(t, value.KindString, v.Kind())
	assert.Equal(t, "x", value.StringOf(v))
}

func TestSeedPrivateClassFieldAndConstructorName(t *testing.T) {
	r := New()
	v, err := r.Eval(`
		class C { #p=1; get(){ return this.#p; } }
		const inst = new C();
		[inst.get(), inst.constructor.name === "C"]
	`)
	require.NoError(t, err)
	o, ok := value.As[*object.Object](v)
	require.True(t, ok)
	require.Equal(t, object.KindArray, o.Kind())

	field, err := o.Get(object.StringKey("0"), v, r.VM().Call)
	require.NoError(t, err)
	require.Equal(t, value.KindInteger32, field.Kind())
	assert.Equal(t, int32(1), field.AsInt32())

	named, err := o.Get(object.StringKey("1"), v, r.VM().Call)
	require.NoError(t, err)
	require.Equal(t, value.KindBoolean, named.Kind())
	assert.True(t, named.AsBool())
}
