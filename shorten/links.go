package shorten

import (
	"regexp"
	"strings"
)

var schemeRE = regexp.MustCompile(`(?i)^[a-z]+://\S+`)

// IsExternal checks if link points off-site: it must carry a scheme followed
// by "://". Data URIs and fragment references never qualify.
func IsExternal(link string) bool {
	if link == "" {
		return false
	}

	if strings.HasPrefix(link, "data:") || strings.HasPrefix(link, "#") {
		return false
	}

	return schemeRE.MatchString(link)
}

// Eligible checks if link should be sent for shortening
func Eligible(link string, skips Skips) bool {
	return IsExternal(link) && !skips.Match(link)
}
