package parser

import (
	"strings"
	"sync"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// Languages lists the programming language tags fragments may carry.
var Languages = []string{"py", "python"}

var python = sync.OnceValue(func() *sitter.Language {
	return sitter.NewLanguage(tree_sitter_python.Language())
})

// Python returns the shared Python grammar.
func Python() *sitter.Language {
	return python()
}

// IsSupportedLanguage reports whether tag names a supported language,
// ignoring case.
func IsSupportedLanguage(tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, lang := range Languages {
		if tag == lang {
			return true
		}
	}
	return false
}
