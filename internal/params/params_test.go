package params

import (
	"testing"

	"execdoc/internal/core/errors"
	"execdoc/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func param(name string, validator *schema.Validator) *schema.Parameter {
	p := schema.NewParameter(name)
	p.Validator = validator
	return p
}

func TestDeserialize(t *testing.T) {
	t.Run("constant", func(t *testing.T) {
		p := param("p", schema.Constant("abc123"))
		v, err := Deserialize(p, "some string")
		require.NoError(t, err)
		assert.Equal(t, "abc123", v)
	})

	t.Run("enum", func(t *testing.T) {
		p := param("p", schema.Enum("a", "b"))
		v, err := Deserialize(p, "a")
		require.NoError(t, err)
		assert.Equal(t, "a", v)

		_, err = Deserialize(p, "c")
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeValidationError))
	})

	t.Run("boolean", func(t *testing.T) {
		p := param("p", schema.NewValidator(schema.BooleanValidator))
		for _, s := range []string{"TRUE", "true", "t", "T", "1", "YES", "yes"} {
			v, err := Deserialize(p, s)
			require.NoError(t, err)
			assert.Equal(t, true, v, s)
		}
		for _, s := range []string{"false", "0", "no", "", "anything else"} {
			v, err := Deserialize(p, s)
			require.NoError(t, err)
			assert.Equal(t, false, v, s)
		}
	})

	t.Run("numbers", func(t *testing.T) {
		v, err := Deserialize(param("p", schema.NewValidator(schema.IntegerValidator)), "1000")
		require.NoError(t, err)
		assert.Equal(t, int64(1000), v)

		v, err = Deserialize(param("p", schema.NewValidator(schema.NumberValidator)), "3.1418")
		require.NoError(t, err)
		assert.Equal(t, 3.1418, v)

		_, err = Deserialize(param("p", schema.NewValidator(schema.IntegerValidator)), "x")
		assert.Error(t, err)
	})

	t.Run("string", func(t *testing.T) {
		v, err := Deserialize(param("p", schema.NewValidator(schema.StringValidator)), "3.1418")
		require.NoError(t, err)
		assert.Equal(t, "3.1418", v)

		v, err = Deserialize(param("p", nil), "321bca")
		require.NoError(t, err)
		assert.Equal(t, "321bca", v)
	})

	t.Run("collections", func(t *testing.T) {
		v, err := Deserialize(param("p", schema.ArrayOf(nil)), "[5, 6, 7]")
		require.NoError(t, err)
		assert.Equal(t, []any{int64(5), int64(6), int64(7)}, v)

		v, err = Deserialize(param("p", schema.NewValidator(schema.TupleValidator)), `[1, true, "Up"]`)
		require.NoError(t, err)
		assert.Equal(t, schema.Tuple{int64(1), true, "Up"}, v)
	})
}

func TestParse_Empty(t *testing.T) {
	values, err := Parse(nil, []string{"--something", "value"})
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestParse_MissingRequired(t *testing.T) {
	foo, bar := schema.NewParameter("foo"), schema.NewParameter("bar")
	foo.IsRequired, bar.IsRequired = true, true

	_, err := Parse([]*schema.Parameter{foo, bar}, []string{"--foo", "fooval"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
	assert.Contains(t, err.Error(), "--bar")
}

func TestParse(t *testing.T) {
	foo, bar := schema.NewParameter("foo"), schema.NewParameter("bar")
	foo.IsRequired, bar.IsRequired = true, true
	baz := schema.NewParameter("baz")
	rex := schema.NewParameter("rex")
	rex.Default = "rex_default"
	quz := param("quz", schema.NewValidator(schema.IntegerValidator))

	values, err := Parse([]*schema.Parameter{foo, bar, baz, rex, quz},
		[]string{"--foo", "fooval", "--bar=barval", "--quz", "1024", "--invalid", "not a real param"})
	require.NoError(t, err)

	assert.Len(t, values, 5)
	assert.Equal(t, "fooval", values["foo"])
	assert.Equal(t, "barval", values["bar"])
	assert.Nil(t, values["baz"])
	assert.Equal(t, "rex_default", values["rex"])
	assert.Equal(t, int64(1024), values["quz"])
}
