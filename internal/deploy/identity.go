// Package deploy resolves plugin identity for hot-reload and drives the
// create-or-reload deployment flow through a connected browser session.
package deploy

import (
	"regexp"
	"strings"
)

// scriptNameRe matches the conventional identity declaration embedded in
// plugin source: a single string-literal assignment to scriptName, in either
// the class-field form (`static scriptName = '...'`) or the constructor form
// (`this.scriptName = "..."`). Case-sensitive, single or double quotes.
var scriptNameRe = regexp.MustCompile(`(?:static\s+|this\.)?scriptName\s*=\s*['"]([^'"]+)['"]`)

// ExtractIdentity scans plugin source for its conventional identity
// declaration. Returns "" when absent; the caller must then fall back to
// always-create and lose hot-reload affinity.
func ExtractIdentity(code string) string {
	m := scriptNameRe.FindStringSubmatch(code)
	if m == nil {
		return ""
	}
	return m[1]
}

var (
	escaper = strings.NewReplacer(
		`\`, `\\`, // backslash first, before introducing new ones
		"`", "\\`",
		`$`, `\$`,
	)
	unescaper = strings.NewReplacer(
		`\\`, `\`,
		"\\`", "`",
		`\$`, `$`,
	)
)

// EscapeForTemplate escapes plugin source for splicing into a JavaScript
// template literal: backslash, backtick and dollar sign would otherwise
// terminate the literal or trigger interpolation in the page context.
func EscapeForTemplate(code string) string {
	return escaper.Replace(code)
}

// UnescapeFromTemplate reverses EscapeForTemplate.
func UnescapeFromTemplate(code string) string {
	return unescaper.Replace(code)
}
