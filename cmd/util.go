package cmd

import (
	"regexp"
	"strings"
)

// maxIdentFragment caps a single sanitized fragment so no one input (a long
// branch name, say) swallows the whole identifier. Composed names are
// additionally cut to the warehouse identifier limit in snapshotNames.
const maxIdentFragment = 60

var unsafeIdentChars = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

// sanitizeIdent reduces an arbitrary string (model name, git ref) to a safe
// lowercase identifier fragment, truncated to maxIdentFragment.
func sanitizeIdent(value string) string {
	s := strings.ToLower(unsafeIdentChars.ReplaceAllString(value, "_"))
	if len(s) > maxIdentFragment {
		s = s[:maxIdentFragment]
	}
	return s
}
