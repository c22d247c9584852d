package runtime

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"execdoc/internal/engine/analysis"
	"execdoc/internal/schema"
	"execdoc/internal/shared/observability"

	"go.starlark.net/starlark"
)

const chunkFilename = "<chunk>"

type outcome struct {
	value   starlark.Value
	stdout  string
	elapsed time.Duration
	err     *schema.CodeError
}

// run executes one statement with print output captured for its duration.
func (e *Engine) run(stmt analysis.Statement) (out outcome) {
	var buf strings.Builder
	previous := e.thread.Print
	e.thread.Print = func(_ *starlark.Thread, msg string) {
		buf.WriteString(msg)
		buf.WriteByte('\n')
	}
	defer func() {
		e.thread.Print = previous
		out.stdout = buf.String()
	}()
	defer func() {
		if r := recover(); r != nil {
			out.value = nil
			out.err = schema.NewCodeError(schema.RuntimeError, fmt.Sprintf("panic: %v", r), string(debug.Stack()))
		}
	}()

	observability.StatementsTotal.WithLabelValues(stmt.Kind.String()).Inc()

	started := time.Now()
	var err error
	switch stmt.Kind {
	case analysis.Evaluate:
		out.value, err = starlark.EvalOptions(e.fileOpts, e.thread, chunkFilename, stmt.Source, e.globals)
	case analysis.Import:
		err = e.importAll(stmt.Imports)
	default:
		err = e.exec(stmt.Source)
	}
	out.elapsed = time.Since(started)

	if err != nil {
		out.value = nil
		out.err = codeError(err)
		return out
	}
	if out.value == starlark.None {
		out.value = nil
	}
	return out
}

func (e *Engine) exec(source string) error {
	f, err := e.fileOpts.Parse(chunkFilename, source, 0)
	if err != nil {
		return err
	}
	return starlark.ExecREPLChunk(f, e.thread, e.globals)
}

func codeError(err error) *schema.CodeError {
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		return schema.NewCodeError(schema.RuntimeError, evalErr.Msg, evalErr.Backtrace())
	}
	return schema.NewCodeError(schema.RuntimeError, err.Error(), "")
}
