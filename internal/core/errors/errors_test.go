package errors

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError(t *testing.T) {
	t.Run("message carries code and cause", func(t *testing.T) {
		err := Wrap(errors.New("no such file"), CodeNotFound, "document unreadable")
		assert.Equal(t, "[NOT_FOUND] document unreadable: no such file", err.Error())
		assert.Equal(t, "document unreadable", Message(err))
	})

	t.Run("context is appended", func(t *testing.T) {
		err := AddContext(New(CodeValidationError, "missing parameter"), CtxParameter, "n")
		assert.True(t, IsCode(err, CodeValidationError))
		assert.Contains(t, err.Error(), "parameter:n")
	})

	t.Run("foreign errors become internal", func(t *testing.T) {
		cause := errors.New("boom")
		err := AddContext(cause, CtxPath, "doc.json")
		assert.True(t, IsCode(err, CodeInternal))
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "boom", Message(cause))
	})
}

func TestCapability(t *testing.T) {
	err := Capability("execute", map[string]any{"type": "CodeChunk", "programmingLanguage": "r"})
	require.True(t, IsCode(err, CodeCapability))

	msg := Message(err)
	assert.True(t, strings.HasPrefix(msg, `Incapable of method "execute" with params "node = `), msg)
	assert.Contains(t, msg, `"programmingLanguage":"r"`)

	long := Capability("compile", map[string]any{"text": strings.Repeat("x", 500)})
	assert.True(t, strings.HasSuffix(Message(long), `..."`))
}
