package fileutils

import (
	"path/filepath"
	"strings"
	"unicode"
)

// Sanitize reduces an untrusted metadata string to a filesystem-safe path
// segment. Letters, digits, spaces, hyphens, and underscores are kept;
// everything else (including path separators and reserved characters) is
// stripped. Empty or whitespace-only input yields "Unknown" so the segment
// is never empty.
func Sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}

	cleaned := strings.TrimSpace(b.String())
	if cleaned == "" {
		return "Unknown"
	}
	return cleaned
}

// CanonicalPath computes the deterministic library location for a gallery:
// libraryRoot/Artist/[Series/]filename. Artist and series are sanitized;
// the filename is preserved as-is since it comes from the staging area, not
// from user metadata.
func CanonicalPath(libraryRoot, artist, series, filename string) string {
	if series != "" {
		return filepath.Join(libraryRoot, Sanitize(artist), Sanitize(series), filename)
	}
	return filepath.Join(libraryRoot, Sanitize(artist), filename)
}
