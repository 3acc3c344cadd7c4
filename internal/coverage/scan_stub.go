//go:build !cgo

package coverage

// extractTestNames uses the lexical scan when tree-sitter is unavailable.
func extractTestNames(source []byte) []string {
	return scanTestNames(source)
}
