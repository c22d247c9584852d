package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"execdoc/internal/core/app"
	"execdoc/internal/core/config"
	"execdoc/internal/core/errors"
	"execdoc/internal/data/journal"
	"execdoc/internal/engine/compiler"
	"execdoc/internal/schema"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDocument = `{
  "type": "Article",
  "content": [
    {"type": "Parameter", "name": "n", "isRequired": true, "validator": {"type": "IntegerValidator"}},
    {"type": "CodeChunk", "programmingLanguage": "python", "text": "m = n * 2\nprint(m)"},
    {"type": "CodeExpression", "programmingLanguage": "python", "text": "m + 1"}
  ]
}`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "absent.toml")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writeDocument(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, []byte(testDocument), 0o644))
	return path
}

func readJSON(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestCompileCommand(t *testing.T) {
	in := writeDocument(t)
	out := filepath.Join(t.TempDir(), "out", "compiled.yaml")

	_, err := run(t, "compile", in, out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	doc, err := schema.ParseDocument(data, true)
	require.NoError(t, err)
	chunk := doc.(map[string]any)["content"].([]any)[1].(*schema.CodeChunk)
	assert.Equal(t, []string{"m"}, chunk.Assigns)
	assert.Equal(t, []string{"n"}, chunk.Uses)
}

func TestExecuteCommand(t *testing.T) {
	in := writeDocument(t)
	out := filepath.Join(t.TempDir(), "executed.json")

	_, err := run(t, "execute", in, out, "--n", "4")
	require.NoError(t, err)

	content := readJSON(t, out)["content"].([]any)
	chunk := content[1].(map[string]any)
	assert.Equal(t, []any{"8\n"}, chunk["outputs"])
	expr := content[2].(map[string]any)
	assert.Equal(t, float64(9), expr["output"])
}

func TestExecuteCommand_MissingParameter(t *testing.T) {
	in := writeDocument(t)
	_, err := run(t, "execute", in, filepath.Join(t.TempDir(), "out.json"))
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
	assert.Contains(t, errors.Message(err), "the following arguments are required: --n")
}

func TestExecuteCommand_NeedsTwoFiles(t *testing.T) {
	_, err := run(t, "execute", "only.json")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
}

func TestManifestCommand(t *testing.T) {
	out, err := run(t, "manifest")
	require.NoError(t, err)

	var manifest map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &manifest))
	assert.Equal(t, float64(1), manifest["version"])
	assert.Contains(t, manifest["addresses"], "stdio")
}

func TestJournalCommand_Disabled(t *testing.T) {
	out, err := run(t, "journal")
	require.NoError(t, err)
	assert.Contains(t, out, "journal is disabled")
}

func TestRenderJournal(t *testing.T) {
	assert.Contains(t, renderJournal(nil), "no executions recorded")

	text := renderJournal([]journal.Entry{{
		StartedAt:  time.Now(),
		NodeType:   "CodeChunk",
		Language:   "python",
		Duration:   time.Millisecond,
		Outputs:    1,
		Errors:     1,
		ErrorTypes: []string{"RuntimeError"},
		Status:     journal.StatusFailed,
	}})
	assert.Contains(t, text, "CodeChunk")
	assert.Contains(t, text, "RuntimeError")
}

func TestSummarize(t *testing.T) {
	c1 := schema.NewCodeChunk("", "python")
	c1.Imports = []string{"math"}
	c1.Assigns = []string{"a"}
	c1.Uses = []string{"n", "b"}
	c2 := schema.NewCodeChunk("", "python")
	c2.Uses = []string{"a", "math", "zeta"}
	c2.Errors = []*schema.CodeError{schema.NewCodeError(schema.SyntaxError, "bad", "")}

	s := summarize(&compiler.Result{
		Parameters: []*schema.Parameter{schema.NewParameter("n")},
		Code:       []compiler.Item{{Chunk: c1}, {Chunk: c2}},
	})
	assert.Equal(t, 1, s.Parameters)
	assert.Equal(t, 2, s.Fragments)
	assert.Equal(t, 1, s.SyntaxErrors)
	assert.Equal(t, []string{"math"}, s.Imports)
	assert.Equal(t, []string{"b", "zeta"}, s.Unbound)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 2, exitCode(errors.New(errors.CodeValidationError, "x")))
	assert.Equal(t, 1, exitCode(errors.New(errors.CodeInternal, "x")))
}

func TestReplModel(t *testing.T) {
	interpreter, err := app.NewWithDependencies(config.Default(), app.Dependencies{})
	require.NoError(t, err)
	m := newReplModel(t.Context(), interpreter)

	enter := func(m replModel, line string) (replModel, tea.Cmd) {
		m.input.SetValue(line)
		next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		return next.(replModel), cmd
	}
	finish := func(m replModel, cmd tea.Cmd) replModel {
		require.NotNil(t, cmd)
		next, _ := m.Update(cmd())
		return next.(replModel)
	}

	m, cmd := enter(m, "def f(x):")
	assert.Nil(t, cmd)
	m, cmd = enter(m, "    return x + 1")
	assert.Nil(t, cmd)
	m, cmd = enter(m, "")
	m = finish(m, cmd)

	m, cmd = enter(m, "f(41)")
	m = finish(m, cmd)
	m, cmd = enter(m, "1 // 0")
	m = finish(m, cmd)

	assert.Equal(t, 3, m.executed)
	assert.Equal(t, 1, m.failed)
	items := m.list.Items()
	require.Len(t, items, 3)
	assert.True(t, items[0].(replItem).failed)
	assert.Equal(t, "42", items[1].(replItem).desc)
	assert.Contains(t, m.View(), "3 executed")
}
