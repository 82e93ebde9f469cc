// Package nameutil normalizes profile names for lookups where the typed
// name may differ from the enrolled key in case or diacritics.
package nameutil

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

// Normalize normalizes a profile name for comparison (lowercase, no
// diacritics, trimmed).
func Normalize(name string) string {
	name = RemoveDiacritics(name)
	name = strings.ToLower(name)
	return strings.TrimSpace(name)
}

// Resolve returns the stored name matching the requested one. An exact match
// wins; otherwise a unique normalized match is accepted. Reports failure when
// nothing matches or the normalized form is ambiguous.
func Resolve(requested string, stored []string) (string, bool) {
	for _, s := range stored {
		if s == requested {
			return s, true
		}
	}

	want := Normalize(requested)
	var found string
	matches := 0
	for _, s := range stored {
		if Normalize(s) == want {
			found = s
			matches++
		}
	}
	if matches == 1 {
		return found, true
	}
	return "", false
}
