package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

func TestParse_Valid(t *testing.T) {
	tree, err := Parse([]byte("x = 1\n# comment\ny = x + 2\n"))
	require.NoError(t, err)
	defer tree.Close()

	assert.Nil(t, tree.FirstSyntaxError())
	statements := NamedChildren(tree.Root())
	require.Len(t, statements, 2, "comments are not statements")
	assert.Equal(t, "y = x + 2", tree.Text(statements[1]))
}

func TestParse_SyntaxError(t *testing.T) {
	tree, err := Parse([]byte("this is invalid python++ code"))
	require.NoError(t, err)
	defer tree.Close()

	issue := tree.FirstSyntaxError()
	require.NotNil(t, issue)
	assert.Equal(t, 1, issue.Line)
	assert.Contains(t, issue.Message(), "invalid syntax")
	assert.Contains(t, issue.Trace(), "this is invalid python++ code")
}

func TestParse_LegacyStatements(t *testing.T) {
	cases := map[string]string{
		"x = 1\nprint 'x'\n":      "Missing parentheses in call to 'print'",
		"if x:\n    exec code\n": "Missing parentheses in call to 'exec'",
	}
	for source, detail := range cases {
		tree, err := Parse([]byte(source))
		require.NoError(t, err)

		issue := tree.FirstSyntaxError()
		require.NotNil(t, issue, source)
		assert.Contains(t, issue.Message(), detail)
		tree.Close()
	}

	tree, err := Parse([]byte("print('x')\nexec('y = 1')\n"))
	require.NoError(t, err)
	defer tree.Close()
	assert.Nil(t, tree.FirstSyntaxError(), "calls are valid Python 3")
}

func TestIsSupportedLanguage(t *testing.T) {
	for _, tag := range []string{"py", "python", "Python", "PY"} {
		assert.True(t, IsSupportedLanguage(tag), tag)
	}
	for _, tag := range []string{"", "r", "notpython", "javascript"} {
		assert.False(t, IsSupportedLanguage(tag), tag)
	}
}

func TestWalk_SkipsChildren(t *testing.T) {
	tree, err := Parse([]byte("f(g(x))\n"))
	require.NoError(t, err)
	defer tree.Close()

	calls := 0
	Walk(tree.Root(), func(n *sitter.Node) bool {
		if n.Kind() == "call" {
			calls++
			return false
		}
		return true
	})
	assert.Equal(t, 1, calls)
}
