//go:build cgo

package coverage

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// extractTestNames parses a test file with tree-sitter and returns the
// names of top-level test functions.
func extractTestNames(source []byte) []string {
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		// Fall back to the lexical scan rather than dropping the file:
		// missing tests here would poison the coverage map's validity
		return scanTestNames(source)
	}

	root := tree.RootNode()
	var names []string

	for i := 0; i < int(root.ChildCount()); i++ {
		node := root.Child(i)
		if node == nil || node.Type() != "function_declaration" {
			continue
		}
		nameNode := node.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := string(source[nameNode.StartByte():nameNode.EndByte()])
		if isTestName(name) {
			names = append(names, name)
		}
	}

	return names
}
