// Package runtime executes analysed fragments against one persistent scope.
package runtime

import (
	"log/slog"
	"slices"
	"time"

	"execdoc/internal/engine/analysis"
	"execdoc/internal/engine/stdlib"
	"execdoc/internal/schema"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

const chunkPreviewLength = 32

// Options configures an Engine.
type Options struct {
	// Modules is the allow-list of host modules fragments may import.
	// Empty means every registered module.
	Modules []string
}

// Engine owns one scope for its whole lifetime. It is not safe for
// concurrent use; callers serialize access.
type Engine struct {
	logger   *slog.Logger
	globals  starlark.StringDict
	modules  map[string]*Module
	plotter  *stdlib.Plotter
	thread   *starlark.Thread
	fileOpts *syntax.FileOptions
}

func New(logger *slog.Logger, opts Options) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		logger:  logger,
		globals: starlark.StringDict{"open": stdlib.Open},
		plotter: stdlib.NewPlotter(),
		thread:  &starlark.Thread{Name: "execdoc"},
		fileOpts: &syntax.FileOptions{
			Set:             true,
			While:           true,
			TopLevelControl: true,
			GlobalReassign:  true,
			Recursion:       true,
		},
	}
	e.modules = registry(e.plotter, opts.Modules)
	return e
}

// Lookup returns the value bound to name in the scope, decoded.
func (e *Engine) Lookup(name string) (any, bool) {
	v, ok := e.globals[name]
	if !ok {
		return nil, false
	}
	decoded, _ := e.decode(v)
	return decoded, true
}

// Names lists the names bound in the scope.
func (e *Engine) Names() []string {
	return e.globals.Keys()
}

// Modules lists the importable module names.
func (e *Engine) Modules() []string {
	names := make([]string, 0, len(e.modules))
	for name := range e.modules {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// merge writes overlay values into the scope. They stay there afterwards.
func (e *Engine) merge(overlay map[string]any) error {
	for name, value := range overlay {
		v, err := ToValue(value)
		if err != nil {
			return err
		}
		e.globals[name] = v
	}
	return nil
}

// ExecuteExpression evaluates expr and sets its output, or attaches an error.
// Text that is not valid Python gets a SyntaxError and is not evaluated.
func (e *Engine) ExecuteExpression(expr *schema.CodeExpression, overlay map[string]any) *schema.CodeExpression {
	expr.Output = nil
	expr.Errors = nil
	if issue := analysis.CheckSyntax(expr.Text); issue != nil {
		expr.Errors = []*schema.CodeError{issue}
		return expr
	}
	if err := e.merge(overlay); err != nil {
		expr.Errors = []*schema.CodeError{schema.NewCodeError(schema.RuntimeError, err.Error(), "")}
		return expr
	}

	outcome := e.run(analysis.Statement{Kind: analysis.Evaluate, Source: expr.Text, Line: 1})
	if outcome.err != nil {
		expr.Errors = []*schema.CodeError{outcome.err}
		return expr
	}
	if outcome.value != nil {
		expr.Output, _ = e.decode(outcome.value)
	}
	return expr
}

// ExecuteChunk runs the chunk's statements in order, stopping at the first
// failure. A result without a program (syntax error) leaves chunk untouched.
func (e *Engine) ExecuteChunk(chunk *schema.CodeChunk, result *analysis.ParseResult, overlay map[string]any) *schema.CodeChunk {
	if result == nil || result.Program == nil {
		e.logger.Info("not executing chunk without program", "text", preview(chunk.Text))
		return chunk
	}
	chunk.Errors = nil
	if err := e.merge(overlay); err != nil {
		chunk.Errors = []*schema.CodeError{schema.NewCodeError(schema.RuntimeError, err.Error(), "")}
		return chunk
	}

	var outputs []any
	var duration time.Duration
	for _, stmt := range result.Program.Statements {
		outcome := e.run(stmt)
		if outcome.err == nil {
			duration += outcome.elapsed
			if outcome.value != nil {
				if fig, ok := drawable(outcome.value); ok {
					outputs = append(outputs, pendingFigure{fig})
				} else if decoded, keep := e.decode(outcome.value); keep {
					outputs = append(outputs, decoded)
				}
			}
		}
		if outcome.stdout != "" {
			outputs = append(outputs, outcome.stdout)
		}
		if outcome.err != nil {
			chunk.Errors = append(chunk.Errors, outcome.err)
			e.logger.Debug("chunk stopped", "line", stmt.Line, "error", outcome.err.ErrorMessage)
			break
		}
	}

	chunk.Outputs = e.finalizeFigures(outputs)
	chunk.Duration = duration.Seconds()
	return chunk
}

// pendingFigure marks a drawable statement value. Only the last one in a
// chunk is rendered, after every statement has run.
type pendingFigure struct {
	fig *stdlib.Figure
}

// drawable returns the figure drawn by a statement value: an artist, or a
// one-element list holding one.
func drawable(v starlark.Value) (*stdlib.Figure, bool) {
	if list, ok := v.(*starlark.List); ok && list.Len() == 1 {
		v = list.Index(0)
	}
	if artist, ok := v.(stdlib.Artist); ok {
		return artist.Owner(), true
	}
	return nil, false
}

// finalizeFigures keeps only the last drawable output and renders its
// figure's final state in place.
func (e *Engine) finalizeFigures(outputs []any) []any {
	last := -1
	for i, out := range outputs {
		if _, ok := out.(pendingFigure); ok {
			last = i
		}
	}
	if last < 0 {
		return outputs
	}
	kept := make([]any, 0, len(outputs))
	for i, out := range outputs {
		pending, ok := out.(pendingFigure)
		switch {
		case !ok:
			kept = append(kept, out)
		case i == last:
			kept = append(kept, e.renderFigure(pending.fig))
		}
	}
	return kept
}

func (e *Engine) renderFigure(fig *stdlib.Figure) any {
	uri, err := fig.DataURI()
	if err != nil {
		e.logger.Warn("figure render failed", "error", err)
		return fig.String()
	}
	return schema.NewImageObject(uri)
}

func preview(text string) string {
	if len(text) > chunkPreviewLength {
		return text[:chunkPreviewLength]
	}
	return text
}
