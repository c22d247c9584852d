package analysis

import (
	"strconv"
	"strings"

	"execdoc/internal/engine/parser"
	"execdoc/internal/schema"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// analyzeFunction declares the function with its parameter descriptors. The
// body is not analysed: names bound inside it are local to the function.
func analyzeFunction(a *Analysis, node *sitter.Node, bound Bound) {
	name := a.text(node.ChildByFieldName("name"))
	if name == "" || a.isSeen(name) {
		return
	}

	fn := schema.NewFunction(name)
	fn.Returns = a.annotationShape(node.ChildByFieldName("return_type"))

	for _, param := range parser.NamedChildren(node.ChildByFieldName("parameters")) {
		if p := a.parameter(param, bound); p != nil {
			fn.Parameters = append(fn.Parameters, p)
		}
	}
	a.addDeclaration(fn)
}

func (a *Analysis) parameter(node *sitter.Node, bound Bound) *schema.Parameter {
	switch node.Kind() {
	case "identifier":
		p := schema.NewParameter(a.text(node))
		p.IsRequired = true
		return p
	case "typed_parameter":
		children := parser.NamedChildren(node)
		if len(children) == 0 {
			return nil
		}
		p := a.parameter(children[0], bound)
		if p != nil {
			p.Validator = a.annotationShape(node.ChildByFieldName("type"))
		}
		return p
	case "default_parameter", "typed_default_parameter":
		p := schema.NewParameter(a.text(node.ChildByFieldName("name")))
		p.Validator = a.annotationShape(node.ChildByFieldName("type"))
		value := node.ChildByFieldName("value")
		if literal, ok := a.literal(value); ok {
			p.Default = literal
		} else {
			a.visit(value, bound)
		}
		return p
	case "list_splat_pattern":
		p := schema.NewParameter(a.splatName(node))
		p.IsVariadic = true
		return p
	case "dictionary_splat_pattern":
		p := schema.NewParameter(a.splatName(node))
		p.IsExtensible = true
		return p
	}
	// keyword_separator and positional_separator carry no name.
	return nil
}

func (a *Analysis) splatName(node *sitter.Node) string {
	if id := parser.ChildOfKind(node, "identifier"); id != nil {
		return a.text(id)
	}
	return strings.TrimLeft(a.text(node), "*")
}

// literal returns the value of a number, string or named constant node.
func (a *Analysis) literal(node *sitter.Node) (any, bool) {
	if node == nil {
		return nil, false
	}
	switch node.Kind() {
	case "true":
		return true, true
	case "false":
		return false, true
	case "none":
		return nil, true
	case "integer":
		text := strings.ReplaceAll(a.text(node), "_", "")
		if strings.ContainsAny(text, "jJlL") {
			return nil, false
		}
		n, err := strconv.ParseInt(text, 0, 64)
		if err != nil {
			return nil, false
		}
		return n, true
	case "float":
		text := strings.ReplaceAll(a.text(node), "_", "")
		if strings.ContainsAny(text, "jJ") {
			return nil, false
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, false
		}
		return f, true
	case "string":
		return a.stringLiteral(node)
	}
	return nil, false
}

// stringLiteral returns the value of a plain string literal. Byte strings and
// strings with interpolations are not constants.
func (a *Analysis) stringLiteral(node *sitter.Node) (string, bool) {
	if node == nil || node.Kind() != "string" {
		return "", false
	}
	if parser.ChildOfKind(node, "interpolation") != nil {
		return "", false
	}
	start := parser.ChildOfKind(node, "string_start")
	end := parser.ChildOfKind(node, "string_end")
	if start == nil || end == nil {
		return "", false
	}
	prefix := strings.ToLower(strings.TrimRight(a.text(start), `'"`))
	if strings.ContainsAny(prefix, "bf") {
		return "", false
	}
	raw := string(a.tree.Source[start.EndByte():end.StartByte()])
	if strings.Contains(prefix, "r") {
		return raw, true
	}
	return unescape(raw), true
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for len(s) > 0 {
		if len(s) > 1 && s[0] == '\\' && (s[1] == '\'' || s[1] == '"') {
			b.WriteByte(s[1])
			s = s[2:]
			continue
		}
		r, _, tail, err := strconv.UnquoteChar(s, 0)
		if err != nil {
			b.WriteByte(s[0])
			s = s[1:]
			continue
		}
		b.WriteRune(r)
		s = tail
	}
	return b.String()
}
