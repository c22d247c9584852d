package analysis

import (
	"slices"

	"execdoc/internal/engine/parser"
	"execdoc/internal/schema"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ParseResult is the outcome of analysing one fragment. Program is nil when
// the fragment failed to parse, in which case every list is empty and Error
// is set. Lists keep first-seen order.
type ParseResult struct {
	Program  *Program
	Imports  []string
	Declares []schema.Declaration
	Assigns  []string
	Alters   []string
	Uses     []string
	Reads    []string
	Error    *schema.CodeError
}

// Apply copies the classified names onto chunk, merging imports with the
// ones the chunk already lists.
func (r *ParseResult) Apply(chunk *schema.CodeChunk) {
	chunk.Imports = MergeImports(chunk.Imports, r.Imports)
	chunk.Declares = r.Declares
	chunk.Assigns = r.Assigns
	chunk.Alters = r.Alters
	chunk.Uses = r.Uses
	chunk.Reads = r.Reads
	if r.Error != nil {
		chunk.Errors = []*schema.CodeError{r.Error}
	} else {
		chunk.Errors = nil
	}
}

// MergeImports appends discovered modules to existing ones, dropping
// duplicates. An empty string in existing freezes the list.
func MergeImports(existing, discovered []string) []string {
	if slices.Contains(existing, "") {
		return existing
	}
	merged := slices.Clone(existing)
	for _, module := range discovered {
		if !slices.Contains(merged, module) {
			merged = append(merged, module)
		}
	}
	return merged
}

// Analysis accumulates the names classified while walking one fragment.
// It is created per fragment and threaded through every handler.
type Analysis struct {
	tree  *parser.Tree
	rules *RuleTable

	imports  []string
	declares []schema.Declaration
	assigns  []string
	alters   []string
	uses     []string
	reads    []string
	seen     map[string]struct{}
}

func newAnalysis(tree *parser.Tree, rules *RuleTable) *Analysis {
	return &Analysis{tree: tree, rules: rules, seen: make(map[string]struct{})}
}

func (a *Analysis) visit(node *sitter.Node, bound Bound) {
	a.rules.dispatch(a, node, bound)
}

func (a *Analysis) text(node *sitter.Node) string {
	return a.tree.Text(node)
}

func (a *Analysis) isSeen(name string) bool {
	_, ok := a.seen[name]
	return ok
}

func (a *Analysis) addName(name string, target *[]string, bound Bound) {
	if name == "" || bound.Has(name) || a.isSeen(name) {
		return
	}
	a.seen[name] = struct{}{}
	*target = append(*target, name)
}

func (a *Analysis) addUse(name string, bound Bound) {
	a.addName(name, &a.uses, bound)
}

func (a *Analysis) addAssign(name string, bound Bound) {
	a.addName(name, &a.assigns, bound)
}

// addAlter records a mutation of name. A name seen only as a use is moved
// from uses to alters; names classified any other way are left alone.
func (a *Analysis) addAlter(name string) {
	if name == "" || slices.Contains(a.alters, name) {
		return
	}
	if a.isSeen(name) {
		i := slices.Index(a.uses, name)
		if i < 0 {
			return
		}
		a.uses = slices.Delete(a.uses, i, i+1)
	}
	a.seen[name] = struct{}{}
	a.alters = append(a.alters, name)
}

func (a *Analysis) addDeclaration(d schema.Declaration) bool {
	name := d.DeclaredName()
	if name == "" || a.isSeen(name) {
		return false
	}
	a.seen[name] = struct{}{}
	a.declares = append(a.declares, d)
	return true
}

func (a *Analysis) addImport(module string) {
	if module == "" || slices.Contains(a.imports, module) || a.isSeen(module) {
		return
	}
	a.seen[module] = struct{}{}
	a.imports = append(a.imports, module)
}

func (a *Analysis) addRead(filename string) {
	if filename != "" && !slices.Contains(a.reads, filename) {
		a.reads = append(a.reads, filename)
	}
}

func (a *Analysis) result(program *Program) *ParseResult {
	return &ParseResult{
		Program:  program,
		Imports:  nilIfEmpty(a.imports),
		Declares: a.declares,
		Assigns:  nilIfEmpty(a.assigns),
		Alters:   nilIfEmpty(a.alters),
		Uses:     nilIfEmpty(a.uses),
		Reads:    nilIfEmpty(a.reads),
	}
}

func nilIfEmpty(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	return names
}
