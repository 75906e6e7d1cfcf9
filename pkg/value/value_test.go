package value

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/jzx17/threadpool/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name  string
	Count int
}

func TestValue_RoundTrip(t *testing.T) {
	t.Run("uint64", func(t *testing.T) {
		v := Of(uint64(1 << 40))
		got, err := As[uint64](v)
		require.NoError(t, err)
		assert.Equal(t, uint64(1<<40), got)
		assert.Equal(t, reflect.TypeOf(uint64(0)), v.Type())
	})

	t.Run("string", func(t *testing.T) {
		v := Of("hello")
		assert.Equal(t, "hello", MustAs[string](v))
	})

	t.Run("struct", func(t *testing.T) {
		v := Of(record{Name: "a", Count: 3})
		got, err := As[record](v)
		require.NoError(t, err)
		assert.Equal(t, record{Name: "a", Count: 3}, got)
	})

	t.Run("from any keeps dynamic type", func(t *testing.T) {
		var raw any = int32(9)
		v := FromAny(raw)
		got, err := As[int32](v)
		require.NoError(t, err)
		assert.Equal(t, int32(9), got)
	})
}

func TestValue_TypeMismatch(t *testing.T) {
	v := Of(42)

	_, err := As[string](v)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrTypeMismatch)

	var mismatch *types.TypeMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "string", mismatch.Want)
	assert.Equal(t, "int", mismatch.Got)

	assert.Panics(t, func() { MustAs[int64](v) })
}

func TestValue_InterfaceExtraction(t *testing.T) {
	v := FromAny(fmt.Errorf("wrapped"))
	err, extractErr := As[error](v)
	require.NoError(t, extractErr)
	assert.EqualError(t, err, "wrapped")

	s, extractErr := As[fmt.Stringer](Of(Empty()))
	require.NoError(t, extractErr)
	assert.Equal(t, "<empty>", s.String())
}

func TestValue_NilContent(t *testing.T) {
	v := FromAny(nil)
	assert.False(t, v.IsEmpty())

	p, err := As[*record](v)
	require.NoError(t, err)
	assert.Nil(t, p)

	_, err = As[int](v)
	assert.ErrorIs(t, err, types.ErrTypeMismatch)

	var nilErr error
	typed := Of(nilErr)
	assert.Equal(t, reflect.TypeFor[error](), typed.Type())
}

func TestValue_Empty(t *testing.T) {
	v := Empty()
	assert.True(t, v.IsEmpty())
	assert.Nil(t, v.Type())
	assert.Nil(t, v.Interface())
	assert.Equal(t, "<empty>", v.String())

	_, err := As[int](v)
	assert.ErrorIs(t, err, types.ErrEmptyValue)

	var nilValue *Value
	assert.True(t, nilValue.IsEmpty())
}

func TestValue_Take(t *testing.T) {
	src := Of("payload")
	dst := src.Take()

	assert.True(t, src.IsEmpty())
	assert.False(t, dst.IsEmpty())
	assert.Equal(t, "payload", MustAs[string](dst))

	again := src.Take()
	assert.True(t, again.IsEmpty())
}
