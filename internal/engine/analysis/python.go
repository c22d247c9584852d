package analysis

import (
	"strings"

	"execdoc/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

var pythonRules = NewRuleTable(map[string]Handler{
	"module":               visitChildren,
	"block":                visitChildren,
	"expression_statement": visitChildren,

	"import_statement":        analyzeImport,
	"import_from_statement":   analyzeFromImport,
	"future_import_statement": analyzeFutureImport,

	"assignment":           analyzeAssignment,
	"augmented_assignment": analyzeAugmentedAssignment,
	"named_expression":     analyzeNamedExpression,
	"function_definition":  analyzeFunction,
	"decorated_definition": analyzeDecorated,

	"identifier":       analyzeIdentifier,
	"attribute":        analyzeAttribute,
	"subscript":        analyzeSubscript,
	"call":             analyzeCall,
	"keyword_argument": analyzeKeywordArgument,
	"string":           analyzeString,
	"interpolation":    analyzeInterpolation,
	"lambda":           analyzeLambda,

	"list_comprehension":       analyzeComprehension,
	"set_comprehension":        analyzeComprehension,
	"dictionary_comprehension": analyzeComprehension,
	"generator_expression":     analyzeComprehension,

	"for_statement":  analyzeFor,
	"except_clause":  analyzeExceptClause,
	"except_group_clause": analyzeExceptClause,
	"with_statement": analyzeWith,

	"binary_operator":           visitChildren,
	"boolean_operator":          visitChildren,
	"comparison_operator":       visitChildren,
	"not_operator":              visitChildren,
	"unary_operator":            visitChildren,
	"conditional_expression":    visitChildren,
	"parenthesized_expression":  visitChildren,
	"concatenated_string":       visitChildren,
	"list":                      visitChildren,
	"tuple":                     visitChildren,
	"set":                       visitChildren,
	"dictionary":                visitChildren,
	"pair":                      visitChildren,
	"expression_list":           visitChildren,
	"pattern_list":              visitChildren,
	"tuple_pattern":             visitChildren,
	"list_pattern":              visitChildren,
	"list_splat":                visitChildren,
	"dictionary_splat":          visitChildren,
	"parenthesized_list_splat":  visitChildren,
	"argument_list":             visitChildren,
	"slice":                     visitChildren,
	"await":                     visitChildren,
	"if_statement":              visitChildren,
	"elif_clause":               visitChildren,
	"else_clause":               visitChildren,
	"while_statement":           visitChildren,
	"try_statement":             visitChildren,
	"finally_clause":            visitChildren,
	"return_statement":          visitChildren,
	"delete_statement":          visitChildren,
	"raise_statement":           visitChildren,
	"assert_statement":          visitChildren,
	"print_statement":           visitChildren,
	"exec_statement":            visitChildren,
},
	"comment", "integer", "float", "true", "false", "none", "ellipsis",
	"pass_statement", "break_statement", "continue_statement",
	"class_definition", "global_statement", "nonlocal_statement",
	"type", "string_start", "string_content", "string_end", "escape_sequence",
	"line_continuation",
)

func visitChildren(a *Analysis, node *sitter.Node, bound Bound) {
	for _, child := range parser.NamedChildren(node) {
		a.visit(child, bound)
	}
}

func analyzeIdentifier(a *Analysis, node *sitter.Node, bound Bound) {
	a.addUse(a.text(node), bound)
}

// attributeRoot follows x.y.z down to x.
func attributeRoot(node *sitter.Node) *sitter.Node {
	for node != nil && node.Kind() == "attribute" {
		node = node.ChildByFieldName("object")
	}
	return node
}

func analyzeAttribute(a *Analysis, node *sitter.Node, bound Bound) {
	root := attributeRoot(node)
	if root == nil {
		return
	}
	if root.Kind() == "identifier" {
		a.addUse(a.text(root), bound)
		return
	}
	a.visit(root, bound)
}

func analyzeSubscript(a *Analysis, node *sitter.Node, bound Bound) {
	a.subscript(node, bound)
}

// subscript analyses the index parts of node and records the root name of
// the indexed base as a use.
func (a *Analysis) subscript(node *sitter.Node, bound Bound) {
	value := node.ChildByFieldName("value")
	for _, part := range parser.NamedChildren(node) {
		if parser.SameNode(part, value) {
			continue
		}
		a.visit(part, bound)
	}
	if value == nil {
		return
	}

	switch value.Kind() {
	case "identifier":
		a.addUse(a.text(value), bound)
	case "attribute":
		analyzeAttribute(a, value, bound)
	case "subscript":
		a.subscript(value, bound)
	default:
		a.visit(value, bound)
	}
}

// analyzeCall records names passed as arguments. The callee itself is not a
// data dependency.
func analyzeCall(a *Analysis, node *sitter.Node, bound Bound) {
	a.visit(node.ChildByFieldName("arguments"), bound)
}

func analyzeKeywordArgument(a *Analysis, node *sitter.Node, bound Bound) {
	a.visit(node.ChildByFieldName("value"), bound)
}

func analyzeString(a *Analysis, node *sitter.Node, bound Bound) {
	for i := uint(0); i < node.ChildCount(); i++ {
		if child := node.Child(i); child != nil && child.Kind() == "interpolation" {
			a.visit(child, bound)
		}
	}
}

func analyzeInterpolation(a *Analysis, node *sitter.Node, bound Bound) {
	if expr := node.ChildByFieldName("expression"); expr != nil {
		a.visit(expr, bound)
		return
	}
	if children := parser.NamedChildren(node); len(children) > 0 {
		a.visit(children[0], bound)
	}
}

func analyzeLambda(a *Analysis, node *sitter.Node, bound Bound) {
	var names []string
	for _, param := range parser.NamedChildren(node.ChildByFieldName("parameters")) {
		switch param.Kind() {
		case "identifier":
			names = append(names, a.text(param))
		case "default_parameter":
			names = append(names, a.text(param.ChildByFieldName("name")))
			a.visit(param.ChildByFieldName("value"), bound)
		case "list_splat_pattern", "dictionary_splat_pattern":
			names = append(names, a.patternNames(param)...)
		}
	}
	a.visit(node.ChildByFieldName("body"), bound.With(names...))
}

// analyzeComprehension excludes the loop targets of every for clause from
// uses while analysing the element, iterables and conditions.
func analyzeComprehension(a *Analysis, node *sitter.Node, bound Bound) {
	var names []string
	children := parser.NamedChildren(node)
	for _, child := range children {
		if child.Kind() == "for_in_clause" {
			names = append(names, a.patternNames(child.ChildByFieldName("left"))...)
		}
	}
	inner := bound.With(names...)
	for _, child := range children {
		switch child.Kind() {
		case "for_in_clause":
			a.visit(child.ChildByFieldName("right"), inner)
		case "if_clause":
			visitChildren(a, child, inner)
		default:
			a.visit(child, inner)
		}
	}
}

// patternNames lists every identifier bound by a target pattern.
func (a *Analysis) patternNames(node *sitter.Node) []string {
	var names []string
	parser.Walk(node, func(n *sitter.Node) bool {
		switch n.Kind() {
		case "identifier":
			names = append(names, a.text(n))
			return false
		case "attribute", "subscript":
			return false
		}
		return true
	})
	return names
}

func analyzeFor(a *Analysis, node *sitter.Node, bound Bound) {
	a.assignTarget(node.ChildByFieldName("left"), bound, nil)
	a.visit(node.ChildByFieldName("right"), bound)
	a.visit(node.ChildByFieldName("body"), bound)
	a.visit(node.ChildByFieldName("alternative"), bound)
}

// analyzeExceptClause only looks at the handler body; the exception type and
// its alias are not data dependencies.
func analyzeExceptClause(a *Analysis, node *sitter.Node, bound Bound) {
	for _, child := range parser.NamedChildren(node) {
		if child.Kind() == "block" {
			a.visit(child, bound)
		}
	}
}

// analyzeWith records what the context managers use. An `as` target stays
// bound after the block, like a loop variable.
func analyzeWith(a *Analysis, node *sitter.Node, bound Bound) {
	for _, clause := range parser.NamedChildren(node) {
		if clause.Kind() != "with_clause" {
			continue
		}
		for _, item := range parser.NamedChildren(clause) {
			value := item.ChildByFieldName("value")
			if value == nil {
				continue
			}
			if value.Kind() == "as_pattern" {
				a.visit(parser.NamedChildren(value)[0], bound)
				if alias := value.ChildByFieldName("alias"); alias != nil {
					targets := parser.NamedChildren(alias)
					if len(targets) == 0 {
						a.addAssign(a.text(alias), bound)
					}
					for _, target := range targets {
						a.assignTarget(target, bound, nil)
					}
				}
				continue
			}
			a.visit(value, bound)
		}
	}
	a.visit(node.ChildByFieldName("body"), bound)
}

func analyzeDecorated(a *Analysis, node *sitter.Node, bound Bound) {
	a.visit(node.ChildByFieldName("definition"), bound)
}

func analyzeImport(a *Analysis, node *sitter.Node, _ Bound) {
	for _, child := range parser.NamedChildren(node) {
		switch child.Kind() {
		case "dotted_name":
			a.addImport(a.text(child))
		case "aliased_import":
			a.addImport(a.text(child.ChildByFieldName("name")))
		}
	}
}

func analyzeFromImport(a *Analysis, node *sitter.Node, _ Bound) {
	a.addImport(moduleName(a.tree, node.ChildByFieldName("module_name")))
}

func analyzeFutureImport(a *Analysis, _ *sitter.Node, _ Bound) {
	a.addImport("__future__")
}

// moduleName returns the module path of a from-import, without the leading
// dots of a relative import.
func moduleName(tree *parser.Tree, node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return strings.TrimLeft(tree.Text(node), ".")
}
