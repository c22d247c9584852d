package analysis

import (
	"sort"

	"execdoc/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// StatementKind says which runtime primitive a top-level statement needs.
type StatementKind int

const (
	// Evaluate statements are standalone expressions whose value is an output.
	Evaluate StatementKind = iota
	// Execute statements run for their effect only.
	Execute
	// Import statements bind host modules into scope.
	Import
)

func (k StatementKind) String() string {
	switch k {
	case Evaluate:
		return "evaluate"
	case Execute:
		return "execute"
	case Import:
		return "import"
	}
	return "unknown"
}

// Program is the executable form of a fragment: its top-level statements in
// source order, with type annotations removed.
type Program struct {
	Statements []Statement
}

type Statement struct {
	Kind    StatementKind
	Source  string
	Line    int
	Imports []ImportSpec
}

// ImportSpec describes one module bound by an import statement. For
// `import m as x` Alias is x; for `from m import a as b` Names holds {a b}.
type ImportSpec struct {
	Module   string
	Alias    string
	From     bool
	Relative bool
	Wildcard bool
	Names    []ImportName
}

type ImportName struct {
	Name  string
	Alias string
}

// Binding returns the scope name a plain import binds.
func (s ImportSpec) Binding() string {
	if s.Alias != "" {
		return s.Alias
	}
	return s.Module
}

func buildProgram(tree *parser.Tree) *Program {
	program := &Program{}
	for _, node := range parser.NamedChildren(tree.Root()) {
		program.Statements = append(program.Statements, classify(tree, node))
	}
	return program
}

func classify(tree *parser.Tree, node *sitter.Node) Statement {
	stmt := Statement{
		Kind:   Execute,
		Line:   int(node.StartPosition().Row) + 1,
		Source: lower(tree, node),
	}
	switch node.Kind() {
	case "import_statement":
		stmt.Kind = Import
		stmt.Imports = plainImports(tree, node)
	case "import_from_statement":
		stmt.Kind = Import
		stmt.Imports = []ImportSpec{fromImport(tree, node)}
	case "future_import_statement":
		stmt.Kind = Import
		stmt.Imports = []ImportSpec{{Module: "__future__", From: true}}
	case "expression_statement":
		stmt.Kind = Evaluate
		for _, child := range parser.NamedChildren(node) {
			switch child.Kind() {
			case "assignment", "augmented_assignment", "yield":
				stmt.Kind = Execute
			}
		}
	}
	return stmt
}

func plainImports(tree *parser.Tree, node *sitter.Node) []ImportSpec {
	var specs []ImportSpec
	for _, child := range parser.NamedChildren(node) {
		switch child.Kind() {
		case "dotted_name":
			specs = append(specs, ImportSpec{Module: tree.Text(child)})
		case "aliased_import":
			specs = append(specs, ImportSpec{
				Module: tree.Text(child.ChildByFieldName("name")),
				Alias:  tree.Text(child.ChildByFieldName("alias")),
			})
		}
	}
	return specs
}

func fromImport(tree *parser.Tree, node *sitter.Node) ImportSpec {
	module := node.ChildByFieldName("module_name")
	spec := ImportSpec{
		Module:   moduleName(tree, module),
		From:     true,
		Relative: module != nil && module.Kind() == "relative_import",
	}
	for _, child := range parser.NamedChildren(node) {
		if parser.SameNode(child, module) {
			continue
		}
		switch child.Kind() {
		case "dotted_name":
			spec.Names = append(spec.Names, ImportName{Name: tree.Text(child)})
		case "aliased_import":
			spec.Names = append(spec.Names, ImportName{
				Name:  tree.Text(child.ChildByFieldName("name")),
				Alias: tree.Text(child.ChildByFieldName("alias")),
			})
		case "wildcard_import":
			spec.Wildcard = true
		}
	}
	return spec
}

type edit struct {
	start, end uint
	text       string
}

// lower returns the source of node with parameter, return and variable
// annotations removed. An annotation without a value becomes pass.
func lower(tree *parser.Tree, node *sitter.Node) string {
	var edits []edit
	parser.Walk(node, func(n *sitter.Node) bool {
		switch n.Kind() {
		case "typed_parameter":
			children := parser.NamedChildren(n)
			if typ := n.ChildByFieldName("type"); typ != nil && len(children) > 0 {
				edits = append(edits, edit{start: children[0].EndByte(), end: typ.EndByte()})
			}
		case "typed_default_parameter":
			name, typ := n.ChildByFieldName("name"), n.ChildByFieldName("type")
			if name != nil && typ != nil {
				edits = append(edits, edit{start: name.EndByte(), end: typ.EndByte()})
			}
		case "function_definition":
			params, ret := n.ChildByFieldName("parameters"), n.ChildByFieldName("return_type")
			if params != nil && ret != nil {
				edits = append(edits, edit{start: params.EndByte(), end: ret.EndByte()})
			}
		case "assignment":
			left, typ := n.ChildByFieldName("left"), n.ChildByFieldName("type")
			if typ == nil {
				return true
			}
			if n.ChildByFieldName("right") == nil {
				edits = append(edits, edit{start: n.StartByte(), end: n.EndByte(), text: "pass"})
				return false
			}
			edits = append(edits, edit{start: left.EndByte(), end: typ.EndByte()})
		}
		return true
	})

	base := node.StartByte()
	src := []byte(tree.Text(node))
	if len(edits) == 0 {
		return string(src)
	}
	sort.Slice(edits, func(i, j int) bool { return edits[i].start > edits[j].start })
	for _, e := range edits {
		start, end := e.start-base, e.end-base
		out := make([]byte, 0, len(src)-int(end-start)+len(e.text))
		out = append(out, src[:start]...)
		out = append(out, e.text...)
		out = append(out, src[end:]...)
		src = out
	}
	return string(src)
}
