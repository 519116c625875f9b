// Package normalize canonicalises user-typed identifiers before they are
// stored or compared.
package normalize

import "strings"

// Email trims surrounding whitespace and lower-cases an email address.
// Usernames are emails, so this is also the canonical username form.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace and collapses inner runs of spaces.
// Case is preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Token trims whitespace from an opaque token copied out of a link.
func Token(s string) string {
	return strings.TrimSpace(s)
}
