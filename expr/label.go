package expr

import "regexp"

// labelPattern is the lexical form shared by element labels and
// transformer/reservoir tokens: a JavaScript-style identifier.
var labelPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// ValidIdentifier reports whether s is a lexically valid label or
// token name: it must match ^[A-Za-z_$][A-Za-z0-9_$]*$.
func ValidIdentifier(s string) bool {
	return labelPattern.MatchString(s)
}
