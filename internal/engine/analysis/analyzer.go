// Package analysis classifies the names a Python fragment touches into
// dependency roles and prepares its statements for execution.
package analysis

import (
	"strings"

	"execdoc/internal/engine/parser"
	"execdoc/internal/schema"
)

// Analyze parses text and classifies every name it touches. It never fails:
// a syntax error is reported in the result's Error field.
func Analyze(text string) *ParseResult {
	tree, issue := parse(text)
	if issue != nil {
		return &ParseResult{Error: issue}
	}
	defer tree.Close()

	a := newAnalysis(tree, pythonRules)
	for _, stmt := range parser.NamedChildren(tree.Root()) {
		a.visit(stmt, Bound{})
	}
	if strings.Contains(text, "open(") {
		a.scanFileReads(tree.Root())
	}
	return a.result(buildProgram(tree))
}

// CheckSyntax parses text and returns the syntax error, if any.
func CheckSyntax(text string) *schema.CodeError {
	tree, issue := parse(text)
	if issue != nil {
		return issue
	}
	tree.Close()
	return nil
}

func parse(text string) (*parser.Tree, *schema.CodeError) {
	tree, err := parser.Parse([]byte(text))
	if err != nil {
		return nil, schema.NewCodeError(schema.SyntaxError, err.Error(), "")
	}
	if issue := tree.FirstSyntaxError(); issue != nil {
		tree.Close()
		return nil, schema.NewCodeError(schema.SyntaxError, issue.Message(), issue.Trace())
	}
	return tree, nil
}
