package runtime

import (
	"fmt"
	"slices"

	"execdoc/internal/engine/analysis"
	"execdoc/internal/engine/stdlib"

	"go.starlark.net/lib/json"
	"go.starlark.net/lib/math"
	"go.starlark.net/lib/time"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// Module is an importable host module.
type Module = starlarkstruct.Module

// registry returns the modules available to one engine, restricted to allow
// when it is non-empty.
func registry(plotter *stdlib.Plotter, allow []string) map[string]*Module {
	all := map[string]*Module{
		"math": math.Module,
		"json": json.Module,
		"time": time.Module,
		"data": stdlib.DataModule(),
		"plot": plotter.Module(),
	}
	if len(allow) == 0 {
		return all
	}
	modules := make(map[string]*Module, len(allow))
	for name, mod := range all {
		if slices.Contains(allow, name) {
			modules[name] = mod
		}
	}
	return modules
}

func (e *Engine) importAll(specs []analysis.ImportSpec) error {
	for _, spec := range specs {
		if err := e.importOne(spec); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) importOne(spec analysis.ImportSpec) error {
	if spec.Module == "__future__" {
		return nil
	}
	if spec.Relative {
		return fmt.Errorf("ImportError: attempted relative import with no known parent package")
	}
	mod, ok := e.modules[spec.Module]
	if !ok {
		return fmt.Errorf("ModuleNotFoundError: No module named '%s'", spec.Module)
	}
	if !spec.From {
		e.globals[spec.Binding()] = mod
		return nil
	}
	if spec.Wildcard {
		for name, member := range mod.Members {
			e.globals[name] = member
		}
		return nil
	}
	bound := make(starlark.StringDict, len(spec.Names))
	for _, n := range spec.Names {
		member, ok := mod.Members[n.Name]
		if !ok {
			return fmt.Errorf("ImportError: cannot import name '%s' from '%s'", n.Name, spec.Module)
		}
		name := n.Name
		if n.Alias != "" {
			name = n.Alias
		}
		bound[name] = member
	}
	for name, member := range bound {
		e.globals[name] = member
	}
	return nil
}
