// # internal/engine/parser/parser.go
package parser

import (
	"fmt"
	"strings"
	"sync"

	"execdoc/internal/core/errors"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

var defaultPool = sync.OnceValue(func() *ParserPool {
	return NewParserPool(Python())
})

// Tree is a parsed fragment together with the source it was parsed from.
type Tree struct {
	Source []byte
	tree   *sitter.Tree
}

// Parse parses Python source with a pooled parser. tree-sitter recovers from
// syntax errors, so a nil error does not mean the source is valid; use
// FirstSyntaxError. The caller must Close the tree.
func Parse(source []byte) (*Tree, error) {
	pool := defaultPool()
	sp := pool.Get()
	defer pool.Put(sp)

	tree := sp.Parse(source, nil)
	if tree == nil {
		return nil, errors.New(errors.CodeInternal, "parser returned no tree")
	}
	return &Tree{Source: source, tree: tree}, nil
}

func (t *Tree) Root() *sitter.Node {
	return t.tree.RootNode()
}

func (t *Tree) Close() {
	if t.tree != nil {
		t.tree.Close()
		t.tree = nil
	}
}

// Text returns the source text spanned by node.
func (t *Tree) Text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(t.Source[node.StartByte():node.EndByte()])
}

// SyntaxIssue locates the first unparseable region of a tree.
type SyntaxIssue struct {
	Line    int
	Column  int
	Missing string
	Detail  string
	Snippet string
}

// legacyStatements are Python 2 forms the grammar still accepts.
var legacyStatements = map[string]string{
	"print_statement": "Missing parentheses in call to 'print'",
	"exec_statement":  "Missing parentheses in call to 'exec'",
}

func (s *SyntaxIssue) Message() string {
	if s.Detail != "" {
		return fmt.Sprintf("%s (line %d, column %d)", s.Detail, s.Line, s.Column)
	}
	if s.Missing != "" {
		return fmt.Sprintf("invalid syntax, missing %q (line %d, column %d)", s.Missing, s.Line, s.Column)
	}
	return fmt.Sprintf("invalid syntax (line %d, column %d)", s.Line, s.Column)
}

// Trace renders the offending line with a caret under the error column.
func (s *SyntaxIssue) Trace() string {
	if s.Snippet == "" {
		return ""
	}
	return fmt.Sprintf("  line %d\n    %s\n    %s^", s.Line, s.Snippet, strings.Repeat(" ", max(s.Column-1, 0)))
}

// FirstSyntaxError returns the first ERROR or MISSING node in document
// order, or the first Python 2 only statement, or nil when the tree is
// valid Python 3.
func (t *Tree) FirstSyntaxError() *SyntaxIssue {
	root := t.Root()
	if root == nil {
		return nil
	}
	if !root.HasError() {
		var legacy *sitter.Node
		Walk(root, func(n *sitter.Node) bool {
			if legacy != nil {
				return false
			}
			if _, ok := legacyStatements[n.Kind()]; ok {
				legacy = n
				return false
			}
			return true
		})
		if legacy == nil {
			return nil
		}
		issue := t.issueAt(legacy)
		issue.Detail = legacyStatements[legacy.Kind()]
		return issue
	}
	node := firstErrorNode(root)
	if node == nil {
		node = root
	}
	issue := t.issueAt(node)
	if node.IsMissing() {
		issue.Missing = node.Kind()
	}
	return issue
}

func (t *Tree) issueAt(node *sitter.Node) *SyntaxIssue {
	pos := node.StartPosition()
	return &SyntaxIssue{
		Line:    int(pos.Row) + 1,
		Column:  int(pos.Column) + 1,
		Snippet: t.line(int(pos.Row)),
	}
}

func firstErrorNode(node *sitter.Node) *sitter.Node {
	if node.IsError() || node.IsMissing() {
		return node
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if child.IsError() || child.IsMissing() || child.HasError() {
			if found := firstErrorNode(child); found != nil {
				return found
			}
		}
	}
	return nil
}

func (t *Tree) line(row int) string {
	lines := strings.Split(string(t.Source), "\n")
	if row < 0 || row >= len(lines) {
		return ""
	}
	return strings.TrimRight(lines[row], "\r")
}

// PoolStats reports on the parser pool behind Parse.
func PoolStats() Stats {
	return defaultPool().Stats()
}
