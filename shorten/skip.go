package shorten

import (
	"regexp"
	"strings"
)

// Skips is a compiled set of skip patterns. A link matching any of them is
// never shortened.
type Skips []*regexp.Regexp

var globMetas = regexp.MustCompile(`[-/\\^$+?.()|[\]{}]`)

// CompileSkips compiles glob-like patterns where "*" matches any run of
// characters. Every pattern must match the whole link.
func CompileSkips(globs []string) Skips {
	skips := make(Skips, 0, len(globs))

	for _, glob := range globs {
		expr := globMetas.ReplaceAllString(glob, `\$0`)
		expr = strings.ReplaceAll(expr, "*", ".*?")
		skips = append(skips, regexp.MustCompile("^"+expr+"$"))
	}

	return skips
}

// Match checks if link matches any pattern
func (skips Skips) Match(link string) bool {
	for _, re := range skips {
		if re.MatchString(link) {
			return true
		}
	}

	return false
}
