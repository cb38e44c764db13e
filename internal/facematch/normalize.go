package facematch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizePersonName normalizes a name for comparison (lowercase, no diacritics, spaces for dashes).
func NormalizePersonName(name string) string {
	name = RemoveDiacritics(name)
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", " ")
	return strings.Join(strings.Fields(name), " ")
}

// CleanDisplayName trims a user-entered name, collapses inner whitespace and
// puts it in NFC form. Case and diacritics are kept.
func CleanDisplayName(name string) string {
	return norm.NFC.String(strings.Join(strings.Fields(name), " "))
}

// NormalizeEmail lowercases and trims an email address so that lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NameFromEmail returns the local part of an email address, used as the
// display name when a profile has to be synthesized.
func NameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
