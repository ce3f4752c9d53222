package backend

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

// driveLetterPattern matches the "/D:/" prefix left over after stripping the
// scheme from a Windows file URL (file://localhost/D:/Music -> /D:/Music).
var driveLetterPattern = regexp.MustCompile(`^/[A-Za-z]:(/|$)`)

// NormalizeLocation converts a stored track location into a comparable local
// path. Collection exports usually store locations as file:// URLs with
// percent-escaped segments, but plain paths show up too. The function is pure:
// the same input always yields the same output, and it never touches the
// filesystem.
//
// Behavior:
//   - input without a file scheme is returned trimmed, with separators
//     normalized to the platform style
//   - file URLs are unescaped; a non-loopback host is kept as a //host/path
//     network-share prefix; a leading slash before a drive letter is dropped
//   - malformed percent-escapes are passed through best-effort
func NormalizeLocation(raw string) string {
	loc := strings.TrimSpace(raw)
	if loc == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(loc), "file:") {
		return nativeSeparators(loc)
	}

	u, err := url.Parse(loc)
	if err != nil {
		// Not a parseable URL after all; fall back to stripping the scheme
		// by hand so a broken export still produces something comparable.
		trimmed := loc[len("file:"):]
		trimmed = strings.TrimPrefix(trimmed, "//")
		return nativeSeparators(unescapeBestEffort(trimmed))
	}

	path := unescapeBestEffort(u.Path)
	if host := u.Host; host != "" && !strings.EqualFold(host, "localhost") {
		// Network share, keep UNC style.
		path = "//" + host + path
	}
	// Strip leading slash for drive letters: /D:/Music -> D:/Music
	if driveLetterPattern.MatchString(path) {
		path = path[1:]
	}
	return nativeSeparators(path)
}

// unescapeBestEffort decodes percent-escapes, returning the input unchanged
// when it contains malformed sequences.
func unescapeBestEffort(s string) string {
	if dec, err := url.PathUnescape(s); err == nil {
		return dec
	}
	return s
}

// nativeSeparators rewrites both separator styles to the host platform's
// native one so equivalent Windows and POSIX spellings compare equal.
func nativeSeparators(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return filepath.FromSlash(p)
}

// pathKey is the case-folded normalized path used as the comparison identity
// for duplicate detection and cross-source reconciliation.
func pathKey(normalized string) string {
	return strings.ToLower(normalized)
}
