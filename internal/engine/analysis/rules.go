package analysis

import (
	"log/slog"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Handler analyses one node kind. bound holds the names introduced by the
// enclosing lambdas and comprehensions.
type Handler func(a *Analysis, node *sitter.Node, bound Bound)

// RuleTable dispatches nodes to handlers by node kind. Kinds listed as
// ignored are skipped quietly; any other unknown named kind is logged.
type RuleTable struct {
	handlers map[string]Handler
	ignored  map[string]struct{}
}

func NewRuleTable(handlers map[string]Handler, ignored ...string) *RuleTable {
	r := &RuleTable{handlers: handlers, ignored: make(map[string]struct{}, len(ignored))}
	for _, kind := range ignored {
		r.ignored[kind] = struct{}{}
	}
	return r
}

func (r *RuleTable) dispatch(a *Analysis, node *sitter.Node, bound Bound) {
	if node == nil {
		return
	}
	kind := node.Kind()
	if handler, ok := r.handlers[kind]; ok {
		handler(a, node, bound)
		return
	}
	if _, ok := r.ignored[kind]; ok || !node.IsNamed() {
		return
	}
	slog.Debug("unrecognized node kind", "kind", kind, "line", node.StartPosition().Row+1)
}

// Bound is an immutable set of names bound by an enclosing construct.
type Bound struct {
	names map[string]struct{}
}

func (b Bound) Has(name string) bool {
	_, ok := b.names[name]
	return ok
}

// With returns a new set holding b's names plus names.
func (b Bound) With(names ...string) Bound {
	if len(names) == 0 {
		return b
	}
	next := make(map[string]struct{}, len(b.names)+len(names))
	for name := range b.names {
		next[name] = struct{}{}
	}
	for _, name := range names {
		next[name] = struct{}{}
	}
	return Bound{names: next}
}
