package coverage

import (
	"bufio"
	"bytes"
	"regexp"
)

var testFuncRe = regexp.MustCompile(`^func\s+(Test\w*)\s*\(`)

// scanTestNames extracts test function names with a line scan. Used as the
// discovery path for non-cgo builds and as a fallback when parsing fails.
func scanTestNames(source []byte) []string {
	var names []string

	scanner := bufio.NewScanner(bytes.NewReader(source))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		m := testFuncRe.FindSubmatch(scanner.Bytes())
		if m == nil {
			continue
		}
		name := string(m[1])
		if isTestName(name) {
			names = append(names, name)
		}
	}

	return names
}
