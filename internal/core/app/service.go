package app

import (
	"context"
	"strings"
	"time"

	"execdoc/internal/core/errors"
	"execdoc/internal/data/journal"
	"execdoc/internal/engine/analysis"
	"execdoc/internal/engine/compiler"
	"execdoc/internal/schema"
	"execdoc/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	MethodManifest = "manifest"
	MethodCompile  = "compile"
	MethodExecute  = "execute"
)

// Compile analyses a single fragment and returns it with its dependency
// metadata. A node the interpreter cannot handle yields a capability error
// and is left untouched.
func (a *App) Compile(ctx context.Context, node any) (any, error) {
	ctx, span := observability.Tracer.Start(ctx, "execdoc.compile")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fragment, err := a.fragment(MethodCompile, node)
	if err != nil {
		span.SetStatus(codes.Error, errors.Message(err))
		return nil, err
	}
	info := describe(fragment)
	span.SetAttributes(info.attributes()...)

	start := time.Now()
	switch n := fragment.(type) {
	case *schema.CodeChunk:
		a.compiler.CompileChunk(n)
	case *schema.CodeExpression:
		a.compiler.CompileExpression(n)
	}
	observability.CompileDuration.WithLabelValues(info.nodeType).Observe(time.Since(start).Seconds())
	countErrors(describe(fragment).errors)
	return fragment, nil
}

// Execute runs a single fragment against the persistent scope, with
// parameters bound into the scope first.
func (a *App) Execute(ctx context.Context, node any, parameters map[string]any) (any, error) {
	ctx, span := observability.Tracer.Start(ctx, "execdoc.execute")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fragment, err := a.fragment(MethodExecute, node)
	if err != nil {
		span.SetStatus(codes.Error, errors.Message(err))
		return nil, err
	}
	span.SetAttributes(describe(fragment).attributes()...)

	a.run(ctx, fragment, nil, parameters)
	return fragment, nil
}

// CompileDocument decodes doc into typed entities and compiles every
// fragment in it. The returned tree is the one to write back.
func (a *App) CompileDocument(ctx context.Context, doc any) (any, *compiler.Result, error) {
	_, span := observability.Tracer.Start(ctx, "execdoc.compile_document")
	defer span.End()

	decoded, err := schema.Decode(doc)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeValidationError, "decode document")
	}
	start := time.Now()
	result := a.compiler.Compile(decoded)
	span.SetAttributes(
		attribute.Int("document.parameters", len(result.Parameters)),
		attribute.Int("document.fragments", len(result.Code)),
	)
	a.logger.Debug("document compiled",
		"parameters", len(result.Parameters),
		"fragments", len(result.Code),
		"elapsed", time.Since(start))
	return decoded, result, nil
}

// ExecuteCompiled runs the compiled fragments in document order. values are
// bound before the first fragment and are not re-applied afterwards, so
// fragments may rebind parameter names.
func (a *App) ExecuteCompiled(ctx context.Context, result *compiler.Result, values map[string]any) error {
	ctx, span := observability.Tracer.Start(ctx, "execdoc.execute_document")
	defer span.End()

	overlay := values
	for _, item := range result.Code {
		if err := ctx.Err(); err != nil {
			return err
		}
		if item.Chunk != nil {
			a.run(ctx, item.Chunk, item.Result, overlay)
		} else {
			a.run(ctx, item.Expression, nil, overlay)
		}
		overlay = nil
	}
	return nil
}

// Scope lists the names currently bound in the persistent scope.
func (a *App) Scope() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.engine.Names()
}

// fragment validates node against the capability schema and decodes it.
func (a *App) fragment(method string, node any) (any, error) {
	if err := a.nodes.check(method, node); err != nil {
		return nil, err
	}
	switch node.(type) {
	case *schema.CodeChunk, *schema.CodeExpression:
		return node, nil
	}
	decoded, err := schema.Decode(node)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "decode node"), errors.CtxMethod, method)
	}
	switch decoded.(type) {
	case *schema.CodeChunk, *schema.CodeExpression:
		return decoded, nil
	}
	return nil, errors.Capability(method, node)
}

// run executes fragment under the engine lock. A chunk without a result is
// analysed first, and a syntax error found then is attached to it.
func (a *App) run(ctx context.Context, fragment any, result *analysis.ParseResult, overlay map[string]any) {
	a.mu.Lock()
	defer a.mu.Unlock()

	started := time.Now()
	switch n := fragment.(type) {
	case *schema.CodeChunk:
		if result == nil {
			result = analysis.Analyze(n.Text)
			if result.Error != nil {
				n.Errors = []*schema.CodeError{result.Error}
			}
		}
		a.engine.ExecuteChunk(n, result, overlay)
	case *schema.CodeExpression:
		a.engine.ExecuteExpression(n, overlay)
	}
	elapsed := time.Since(started)

	info := describe(fragment)
	observability.ExecuteDuration.WithLabelValues(info.nodeType).Observe(elapsed.Seconds())
	countErrors(info.errors)
	if len(info.errors) > 0 {
		trace.SpanFromContext(ctx).SetStatus(codes.Error, info.errors[0].ErrorMessage)
	}
	a.record(started, elapsed, info)
}

func (a *App) record(started time.Time, elapsed time.Duration, info fragmentInfo) {
	if a.journal == nil {
		return
	}
	entry := journal.Entry{
		SessionID: a.session,
		StartedAt: started,
		NodeType:  info.nodeType,
		Language:  info.language,
		Duration:  elapsed,
		Outputs:   info.outputs,
		Errors:    len(info.errors),
	}
	for _, e := range info.errors {
		entry.ErrorTypes = append(entry.ErrorTypes, e.ErrorType)
	}
	if _, err := a.journal.Record(entry); err != nil {
		a.logger.Warn("journal record failed", "error", err)
	}
}

type fragmentInfo struct {
	nodeType string
	language string
	outputs  int
	errors   []*schema.CodeError
}

func describe(fragment any) fragmentInfo {
	switch n := fragment.(type) {
	case *schema.CodeChunk:
		return fragmentInfo{
			nodeType: schema.TypeCodeChunk,
			language: strings.ToLower(n.ProgrammingLanguage),
			outputs:  len(n.Outputs),
			errors:   n.Errors,
		}
	case *schema.CodeExpression:
		info := fragmentInfo{
			nodeType: schema.TypeCodeExpression,
			language: strings.ToLower(n.ProgrammingLanguage),
			errors:   n.Errors,
		}
		if n.Output != nil {
			info.outputs = 1
		}
		return info
	}
	return fragmentInfo{nodeType: schema.TypeOf(fragment)}
}

func (i fragmentInfo) attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("node.type", i.nodeType),
		attribute.String("node.language", i.language),
	}
}

func countErrors(errs []*schema.CodeError) {
	for _, e := range errs {
		observability.FragmentErrorsTotal.WithLabelValues(e.ErrorType).Inc()
	}
}
