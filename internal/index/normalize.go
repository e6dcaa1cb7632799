package index

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize trims, lower-cases and NFC-composes a filename so that names
// copied from different filesystems compare equal.
func Normalize(name string) string {
	return norm.NFC.String(strings.ToLower(strings.TrimSpace(name)))
}

// StripExtension returns the part of name before its last ".". A name
// without a dot is returned unchanged.
func StripExtension(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return name
}

// Matches reports whether candidate names the same file as target, either
// exactly or ignoring the extension on both sides. Both arguments must
// already be normalized.
func Matches(candidate, target string) bool {
	if candidate == "" || target == "" {
		return false
	}
	if candidate == target {
		return true
	}
	stem := StripExtension(candidate)
	return stem != "" && stem == StripExtension(target)
}
