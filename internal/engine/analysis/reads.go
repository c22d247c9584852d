package analysis

import (
	"strings"

	"execdoc/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// scanFileReads walks the whole tree, function bodies included, for calls to
// open() whose file name and mode are string literals and whose mode allows
// reading. Anything computed at run time is skipped.
func (a *Analysis) scanFileReads(root *sitter.Node) {
	parser.Walk(root, func(node *sitter.Node) bool {
		if node.Kind() != "call" {
			return true
		}
		fn := node.ChildByFieldName("function")
		if fn != nil && fn.Kind() == "identifier" && a.text(fn) == "open" {
			if filename, ok := a.openedForRead(node); ok {
				a.addRead(filename)
			}
		}
		return true
	})
}

func (a *Analysis) openedForRead(call *sitter.Node) (string, bool) {
	args := call.ChildByFieldName("arguments")
	if args == nil || args.Kind() != "argument_list" {
		return "", false
	}

	var positional []*sitter.Node
	keywords := make(map[string]*sitter.Node)
	for _, arg := range parser.NamedChildren(args) {
		switch arg.Kind() {
		case "keyword_argument":
			keywords[a.text(arg.ChildByFieldName("name"))] = arg.ChildByFieldName("value")
		case "list_splat", "dictionary_splat":
			return "", false
		default:
			positional = append(positional, arg)
		}
	}

	var filename string
	if len(positional) >= 1 {
		s, ok := a.stringLiteral(positional[0])
		if !ok {
			return "", false
		}
		filename = s
	}
	if len(positional) >= 2 {
		mode, ok := a.stringLiteral(positional[1])
		if !ok || !modeIsRead(mode) {
			return "", false
		}
	}
	if value, ok := keywords["file"]; ok {
		s, ok := a.stringLiteral(value)
		if !ok {
			return "", false
		}
		filename = s
	}
	if value, ok := keywords["mode"]; ok {
		mode, ok := a.stringLiteral(value)
		if !ok || !modeIsRead(mode) {
			return "", false
		}
	}
	return filename, filename != ""
}

// modeIsRead reports whether an open() mode allows reading. A missing mode
// defaults to "r" and never reaches here.
func modeIsRead(mode string) bool {
	return strings.ContainsAny(mode, "r+")
}
