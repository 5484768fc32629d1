package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termfx/ecmacore/internal/object"
	"github.com/termfx/ecmacore/internal/value"
)

func TestEvalArithmetic(t *testing.T) {
	r := New()
	v, err := r.Eval("1 + 2 * 3")
	require.NoError(t, err)
	assert.Equal(t, value.KindInteger32, v.Kind())
	assert.Equal(t, 7.0, v.AsFloat64())
}

func TestEvalUncaughtExceptionWrapsRealmError(t *testing.T) {
	r := New()
	_, err := r.Eval("throw new Error('boom')")
	require.Error(t, err)
	var re *RealmError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrUncaught, re.Code)
}

func TestEvalParseErrorReportsErrParse(t *testing.T) {
	r := New()
	_, err := r.Eval("function (")
	require.Error(t, err)
	var re *RealmError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrParse, re.Code)
}

func TestRegisterGlobalCallable(t *testing.T) {
	r := New()
	var seenArg value.Value
	err := r.RegisterGlobalCallable("capture", 1, func(this value.Value, args []value.Value) (value.Value, error) {
		if len(args) > 0 {
			seenArg = args[0]
		}
		return value.Undefined, nil
	})
	require.NoError(t, err)

	_, err = r.Eval("capture(42)")
	require.NoError(t, err)
	assert.Equal(t, value.KindInteger32, seenArg.Kind())
	assert.Equal(t, 42.0, seenArg.AsFloat64())
}

func TestRegisterGlobalValue(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterGlobal("answer", value.Number(42), object.Attributes{Enumerable: true}))

	v, err := r.Eval("answer * 2")
	require.NoError(t, err)
	assert.Equal(t, 84.0, v.AsFloat64())
}

func TestRunJobsDrainsSyncQueue(t *testing.T) {
	r := New()
	ran := false
	r.Jobs().Enqueue(func() error { ran = true; return nil })
	require.NoError(t, r.RunJobs())
	assert.True(t, ran)
}

func TestRunJobsAsyncDrainsBothQueues(t *testing.T) {
	r := New()
	ran := false
	r.Jobs().EnqueueAsync(func(ctx context.Context) (func() error, error) {
		return func() error { ran = true; return nil }, nil
	})
	err := <-r.RunJobsAsync(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
}
