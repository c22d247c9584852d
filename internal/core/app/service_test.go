package app

import (
	"context"
	"strings"
	"sync"
	"testing"

	"execdoc/internal/core/config"
	"execdoc/internal/core/errors"
	"execdoc/internal/data/journal"
	"execdoc/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryJournal struct {
	mu      sync.Mutex
	entries []journal.Entry
	closed  bool
}

func (m *memoryJournal) Record(entry journal.Entry) (journal.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return entry, nil
}

func (m *memoryJournal) Recent(limit int) ([]journal.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.entries) {
		limit = len(m.entries)
	}
	return append([]journal.Entry(nil), m.entries[:limit]...), nil
}

func (m *memoryJournal) Close() error {
	m.closed = true
	return nil
}

func newTestApp(t *testing.T) (*App, *memoryJournal) {
	t.Helper()
	store := &memoryJournal{}
	a, err := NewWithDependencies(config.Default(), Dependencies{Journal: store})
	require.NoError(t, err)
	return a, store
}

func chunkNode(text, language string) map[string]any {
	return map[string]any{"type": "CodeChunk", "text": text, "programmingLanguage": language}
}

func TestManifest(t *testing.T) {
	a, _ := newTestApp(t)
	m := a.Manifest()

	assert.Equal(t, 1, m.Version)
	assert.True(t, m.Capabilities.Manifest)
	require.NotNil(t, m.Capabilities.Compile)
	require.NotNil(t, m.Capabilities.Execute)
	assert.Equal(t, "execdoc", m.Addresses["stdio"].Command)
	assert.Equal(t, []string{"serve"}, m.Addresses["stdio"].Args)
	_, hasHTTP := m.Addresses["http"]
	assert.False(t, hasHTTP)

	compile := m.Capabilities.Compile.(map[string]any)
	assert.Equal(t, []any{"node"}, compile["required"])
}

func TestManifest_HTTPAddress(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Transport = "http"
	a, err := NewWithDependencies(cfg, Dependencies{})
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8766/rpc", a.Manifest().Addresses["http"].URL)
}

func TestCompile_Chunk(t *testing.T) {
	a, _ := newTestApp(t)
	out, err := a.Compile(t.Context(), chunkNode("import math\na = math.pi\nb = a + c", "Python"))
	require.NoError(t, err)

	chunk, ok := out.(*schema.CodeChunk)
	require.True(t, ok)
	assert.Equal(t, []string{"math"}, chunk.Imports)
	assert.Equal(t, []string{"a", "b"}, chunk.Assigns)
	assert.Equal(t, []string{"c"}, chunk.Uses)
	assert.Empty(t, chunk.Errors)
}

func TestCompile_ExpressionSyntaxError(t *testing.T) {
	a, _ := newTestApp(t)
	out, err := a.Compile(t.Context(), map[string]any{
		"type": "CodeExpression", "text": "1 +", "programmingLanguage": "py",
	})
	require.NoError(t, err)

	expr := out.(*schema.CodeExpression)
	require.Len(t, expr.Errors, 1)
	assert.Equal(t, schema.SyntaxError, expr.Errors[0].ErrorType)
}

func TestCompile_Incapable(t *testing.T) {
	a, _ := newTestApp(t)

	tests := []struct {
		name string
		node any
	}{
		{name: "language", node: chunkNode("a = 1", "r")},
		{name: "missing language", node: map[string]any{"type": "CodeChunk", "text": "a = 1"}},
		{name: "node type", node: map[string]any{"type": "Parameter", "name": "a", "programmingLanguage": "python"}},
		{name: "not a map", node: "a = 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := a.Compile(t.Context(), tt.node)
			require.Error(t, err)
			assert.Nil(t, out)
			assert.True(t, errors.IsCode(err, errors.CodeCapability))
			assert.Contains(t, errors.Message(err), `Incapable of method "compile"`)
		})
	}
}

func TestCompile_IncapableLeavesNodeUntouched(t *testing.T) {
	a, _ := newTestApp(t)
	node := chunkNode("a = 1", "R")
	_, err := a.Compile(t.Context(), node)
	require.Error(t, err)
	assert.Equal(t, chunkNode("a = 1", "R"), node)
}

func TestExecute_ChunkAndJournal(t *testing.T) {
	a, store := newTestApp(t)

	out, err := a.Execute(t.Context(), chunkNode("x = n * 2\nx", "python"), map[string]any{"n": int64(21)})
	require.NoError(t, err)
	chunk := out.(*schema.CodeChunk)
	assert.Empty(t, chunk.Errors)
	assert.Equal(t, []any{int64(42)}, chunk.Outputs)

	out, err = a.Execute(t.Context(), map[string]any{
		"type": "CodeExpression", "text": "x + n", "programmingLanguage": "python",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(63), out.(*schema.CodeExpression).Output)

	out, err = a.Execute(t.Context(), chunkNode("1 // 0", "python"), nil)
	require.NoError(t, err)
	require.Len(t, out.(*schema.CodeChunk).Errors, 1)

	require.Len(t, store.entries, 3)
	assert.Equal(t, schema.TypeCodeChunk, store.entries[0].NodeType)
	assert.Equal(t, a.Session(), store.entries[0].SessionID)
	assert.Equal(t, 1, store.entries[0].Outputs)
	assert.Equal(t, schema.TypeCodeExpression, store.entries[1].NodeType)
	assert.Equal(t, []string{schema.RuntimeError}, store.entries[2].ErrorTypes)
	assert.Contains(t, a.Scope(), "x")
}

func TestExecute_SyntaxErrorsReported(t *testing.T) {
	a, store := newTestApp(t)

	out, err := a.Execute(t.Context(), chunkNode("x = = 1", "python"), nil)
	require.NoError(t, err)
	chunk := out.(*schema.CodeChunk)
	require.Len(t, chunk.Errors, 1)
	assert.Equal(t, schema.SyntaxError, chunk.Errors[0].ErrorType)
	assert.Empty(t, chunk.Outputs)

	out, err = a.Execute(t.Context(), map[string]any{
		"type": "CodeExpression", "text": "1 +", "programmingLanguage": "python",
	}, nil)
	require.NoError(t, err)
	expr := out.(*schema.CodeExpression)
	require.Len(t, expr.Errors, 1)
	assert.Equal(t, schema.SyntaxError, expr.Errors[0].ErrorType)
	assert.Nil(t, expr.Output)

	require.Len(t, store.entries, 2)
	assert.Equal(t, []string{schema.SyntaxError}, store.entries[0].ErrorTypes)
	assert.NotContains(t, a.Scope(), "x")
}

func TestExecute_Incapable(t *testing.T) {
	a, store := newTestApp(t)
	_, err := a.Execute(t.Context(), chunkNode("1", "js"), nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeCapability))
	assert.Empty(t, store.entries)
}

func TestExecute_CancelledContext(t *testing.T) {
	a, _ := newTestApp(t)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := a.Execute(ctx, chunkNode("1", "python"), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDocument_CompileAndExecute(t *testing.T) {
	a, store := newTestApp(t)
	doc := map[string]any{
		"type": "Article",
		"content": []any{
			map[string]any{"type": "Parameter", "name": "n"},
			chunkNode("n = n + 1\nprint(n)", "python"),
			map[string]any{"type": "CodeExpression", "text": "n * 10", "programmingLanguage": "python"},
			chunkNode("ignored", "r"),
		},
	}

	decoded, result, err := a.CompileDocument(t.Context(), doc)
	require.NoError(t, err)
	require.Len(t, result.Parameters, 1)
	require.Len(t, result.Code, 2)

	require.NoError(t, a.ExecuteCompiled(t.Context(), result, map[string]any{"n": int64(1)}))

	content := decoded.(map[string]any)["content"].([]any)
	assert.Equal(t, []any{"2\n"}, content[1].(*schema.CodeChunk).Outputs)
	assert.Equal(t, int64(20), content[2].(*schema.CodeExpression).Output)
	assert.Len(t, store.entries, 2)
}

func TestHealth(t *testing.T) {
	a, _ := newTestApp(t)
	status := a.Health(t.Context())
	assert.Equal(t, "up", status.Status)
	assert.True(t, strings.HasPrefix(status.Components["parser"], "ok"))
	assert.Equal(t, "ok", status.Components["journal"])

	bare, err := NewWithDependencies(config.Default(), Dependencies{})
	require.NoError(t, err)
	assert.Equal(t, "disabled", bare.Health(t.Context()).Components["journal"])
}

func TestClose(t *testing.T) {
	a, store := newTestApp(t)
	require.NoError(t, a.Close(t.Context()))
	assert.True(t, store.closed)
}
