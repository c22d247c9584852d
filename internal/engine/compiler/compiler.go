// Package compiler walks a document tree, collecting its parameters and
// analysing its code fragments.
package compiler

import (
	"log/slog"

	"execdoc/internal/engine/analysis"
	"execdoc/internal/engine/parser"
	"execdoc/internal/schema"
	"execdoc/internal/shared/util"
)

// Item is one compiled code fragment. Exactly one of Chunk and Expression is
// set; Result accompanies Chunk.
type Item struct {
	Chunk      *schema.CodeChunk
	Result     *analysis.ParseResult
	Expression *schema.CodeExpression
}

// Result is the outcome of compiling a document: its top-level parameters and
// its code fragments in document order.
type Result struct {
	Parameters []*schema.Parameter
	Code       []Item
}

// Compiler is stateless; every Compile call uses its own walk state.
type Compiler struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Compiler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Compiler{logger: logger}
}

// Compile walks doc depth first. Fragments are mutated in place with their
// dependency metadata.
func (c *Compiler) Compile(doc any) *Result {
	w := &walk{compiler: c, result: &Result{}}
	w.node(doc)
	return w.result
}

// CompileChunk analyses one chunk and writes its metadata onto it.
func (c *Compiler) CompileChunk(chunk *schema.CodeChunk) *analysis.ParseResult {
	result := analysis.Analyze(chunk.Text)
	result.Apply(chunk)
	if result.Error != nil {
		c.logger.Debug("chunk failed to parse", "error", result.Error.ErrorMessage)
	} else {
		c.logger.Debug("chunk compiled",
			"imports", len(chunk.Imports),
			"declares", len(chunk.Declares),
			"assigns", len(chunk.Assigns),
			"alters", len(chunk.Alters),
			"uses", len(chunk.Uses),
			"reads", len(chunk.Reads))
	}
	return result
}

// CompileExpression only checks that the expression parses.
func (c *Compiler) CompileExpression(expr *schema.CodeExpression) {
	if err := analysis.CheckSyntax(expr.Text); err != nil {
		expr.Errors = []*schema.CodeError{err}
		return
	}
	expr.Errors = nil
}

type walk struct {
	compiler *Compiler
	result   *Result
	// depth counts the function entities enclosing the current node.
	depth int
}

func (w *walk) node(node any) {
	switch n := node.(type) {
	case *schema.Parameter:
		if w.depth == 0 {
			w.result.Parameters = append(w.result.Parameters, n)
		}
	case *schema.Function:
		w.depth++
		for _, p := range n.Parameters {
			w.node(p)
		}
		w.depth--
	case *schema.CodeChunk:
		if !parser.IsSupportedLanguage(n.ProgrammingLanguage) {
			return
		}
		result := w.compiler.CompileChunk(n)
		w.result.Code = append(w.result.Code, Item{Chunk: n, Result: result})
		// Declared functions hold parameters of their own; they are never
		// document parameters, so the chunk's fields are not walked.
	case *schema.CodeExpression:
		if !parser.IsSupportedLanguage(n.ProgrammingLanguage) {
			return
		}
		w.compiler.CompileExpression(n)
		w.result.Code = append(w.result.Code, Item{Expression: n})
	case map[string]any:
		function := schema.TypeOf(n) == schema.TypeFunction
		if function {
			w.depth++
		}
		for _, key := range util.SortedKeys(n) {
			w.node(n[key])
		}
		if function {
			w.depth--
		}
	case []any:
		for _, child := range n {
			w.node(child)
		}
	}
}
