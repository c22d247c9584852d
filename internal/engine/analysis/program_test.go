package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgram_ClassifiesStatements(t *testing.T) {
	code := "a = 1\nb\nprint(b)\nimport math, json as j\nfrom data import frame as df, array\nfrom plot import *\nfor i in range(3):\n    a += i\n"
	result := Analyze(code)
	require.NotNil(t, result.Program)

	kinds := []StatementKind{}
	for _, stmt := range result.Program.Statements {
		kinds = append(kinds, stmt.Kind)
	}
	assert.Equal(t, []StatementKind{Execute, Evaluate, Evaluate, Import, Import, Import, Execute}, kinds)

	imports := result.Program.Statements[3].Imports
	require.Len(t, imports, 2)
	assert.Equal(t, "math", imports[0].Binding())
	assert.Equal(t, "j", imports[1].Binding())
	assert.Equal(t, "json", imports[1].Module)

	from := result.Program.Statements[4].Imports[0]
	assert.True(t, from.From)
	assert.Equal(t, "data", from.Module)
	assert.Equal(t, []ImportName{{Name: "frame", Alias: "df"}, {Name: "array"}}, from.Names)

	assert.True(t, result.Program.Statements[5].Imports[0].Wildcard)
	assert.Equal(t, 7, result.Program.Statements[6].Line)
}

func TestProgram_RemovesAnnotations(t *testing.T) {
	code := "def f(x: int, y: str = 'a', *rest: int) -> int:\n    z: int\n    return x\nc: int = 3\nd: str\n"
	result := Analyze(code)
	require.NotNil(t, result.Program)
	require.Len(t, result.Program.Statements, 3)

	assert.Equal(t, "def f(x, y = 'a', *rest):\n    pass\n    return x", result.Program.Statements[0].Source)
	assert.Equal(t, "c = 3", result.Program.Statements[1].Source)
	assert.Equal(t, "pass", result.Program.Statements[2].Source)
}

func TestProgram_EmptyFragment(t *testing.T) {
	result := Analyze("")
	require.Nil(t, result.Error)
	require.NotNil(t, result.Program)
	assert.Empty(t, result.Program.Statements)
}
