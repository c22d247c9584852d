package analysis

import (
	"execdoc/internal/engine/parser"
	"execdoc/internal/schema"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// analyzeAssignment classifies the target, then analyses the value. Chained
// assignments nest in the right field and are handled by recursion.
func analyzeAssignment(a *Analysis, node *sitter.Node, bound Bound) {
	a.assignTarget(node.ChildByFieldName("left"), bound, node.ChildByFieldName("type"))
	a.visit(node.ChildByFieldName("right"), bound)
}

func analyzeAugmentedAssignment(a *Analysis, node *sitter.Node, bound Bound) {
	a.addAlter(a.targetRoot(node.ChildByFieldName("left"), bound))
	a.visit(node.ChildByFieldName("right"), bound)
}

func analyzeNamedExpression(a *Analysis, node *sitter.Node, bound Bound) {
	a.addAssign(a.text(node.ChildByFieldName("name")), bound)
	a.visit(node.ChildByFieldName("value"), bound)
}

// assignTarget classifies one assignment target. A bare name becomes an
// assign, or a variable declaration when annotated. Attribute and index
// targets alter their root name.
func (a *Analysis) assignTarget(target *sitter.Node, bound Bound, annotation *sitter.Node) {
	if target == nil {
		return
	}
	switch target.Kind() {
	case "identifier":
		name := a.text(target)
		if annotation != nil {
			a.addDeclaration(schema.NewVariable(name, a.annotationShape(annotation)))
			return
		}
		a.addAssign(name, bound)
	case "attribute", "subscript":
		a.addAlter(a.targetRoot(target, bound))
	case "pattern_list", "tuple_pattern", "list_pattern", "tuple", "list",
		"expression_list", "parenthesized_expression", "list_splat_pattern", "list_splat":
		for _, child := range parser.NamedChildren(target) {
			a.assignTarget(child, bound, nil)
		}
	}
}

// targetRoot resolves a mutated target such as x[i].y[j] down to the name
// it changes, analysing the index parts along the way. A chain rooted in
// something other than a name, such as a call, is analysed for uses and
// yields "".
func (a *Analysis) targetRoot(node *sitter.Node, bound Bound) string {
	for node != nil {
		switch node.Kind() {
		case "identifier":
			return a.text(node)
		case "attribute":
			node = node.ChildByFieldName("object")
		case "subscript":
			value := node.ChildByFieldName("value")
			for _, part := range parser.NamedChildren(node) {
				if !parser.SameNode(part, value) {
					a.visit(part, bound)
				}
			}
			node = value
		case "parenthesized_expression":
			children := parser.NamedChildren(node)
			if len(children) != 1 {
				a.visit(node, bound)
				return ""
			}
			node = children[0]
		default:
			a.visit(node, bound)
			return ""
		}
	}
	return ""
}

// annotationShape maps an annotation to a validator. Only bare names such as
// int or str are recognised.
func (a *Analysis) annotationShape(annotation *sitter.Node) *schema.Validator {
	if annotation == nil {
		return nil
	}
	node := annotation
	if node.Kind() == "type" {
		children := parser.NamedChildren(node)
		if len(children) != 1 {
			return nil
		}
		node = children[0]
	}
	if node.Kind() != "identifier" {
		return nil
	}
	return schema.ShapeForAnnotation(a.text(node))
}
