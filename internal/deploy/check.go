package deploy

import (
	"fmt"

	"github.com/dop251/goja/parser"
)

// CheckSyntax parses source as JavaScript without executing it, so obviously
// broken plugin files are rejected locally instead of failing opaquely inside
// the page. name is used in parse error positions.
func CheckSyntax(name, code string) error {
	if _, err := parser.ParseFile(nil, name, code, 0); err != nil {
		return fmt.Errorf("syntax check: %w", err)
	}
	return nil
}
