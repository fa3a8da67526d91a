// Package sanitize normalizes user-supplied names before they touch the
// filesystem. All stores that write JSON-per-file documents go through it.
package sanitize

import (
	"path/filepath"
	"strings"
)

func isAllowedRune(ch rune, allowSpaces bool) bool {
	switch {
	case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		return true
	case ch == '-' || ch == '_':
		return true
	case allowSpaces && ch == ' ':
		return true
	}
	return false
}

// Segment replaces every disallowed character with an underscore and trims
// surrounding whitespace.
func Segment(input string, allowSpaces bool) string {
	var sb strings.Builder
	sb.Grow(len(input))
	for _, ch := range input {
		if isAllowedRune(ch, allowSpaces) {
			sb.WriteRune(ch)
		} else {
			sb.WriteRune('_')
		}
	}
	return strings.TrimSpace(sb.String())
}

// Component sanitizes a single path component, substituting fallback when
// nothing usable remains.
func Component(input string, allowSpaces bool, fallback string) string {
	cleaned := Segment(input, allowSpaces)
	if cleaned == "" {
		return fallback
	}
	return cleaned
}

// WorkflowID derives a filesystem-safe workflow identifier from its name.
func WorkflowID(input string) string {
	return Component(input, true, "workflow")
}

// Extension strips everything but ASCII alphanumerics from an extension.
func Extension(input string) string {
	var sb strings.Builder
	for _, ch := range input {
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			sb.WriteRune(ch)
		}
	}
	return sb.String()
}

// Filename sanitizes stem and extension separately so "report.v1.pdf"
// keeps a usable extension.
func Filename(input string) string {
	base := filepath.Base(input)
	if base == "." || base == string(filepath.Separator) {
		base = ""
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	safeStem := Component(stem, true, "file")
	safeExt := Extension(strings.TrimPrefix(ext, "."))

	if safeExt == "" {
		return safeStem
	}
	return safeStem + "." + safeExt
}

// RelativePath rebuilds a relative path from sanitized segments, dropping
// empty, "." and ".." components so the result can never escape its root.
func RelativePath(input string) string {
	var parts []string
	for _, segment := range strings.FieldsFunc(input, func(r rune) bool {
		return r == '/' || r == '\\'
	}) {
		trimmed := strings.TrimSpace(segment)
		if trimmed == "" || trimmed == "." || trimmed == ".." {
			continue
		}
		cleaned := Segment(trimmed, true)
		if cleaned == "" {
			continue
		}
		parts = append(parts, cleaned)
	}
	return filepath.Join(parts...)
}

// MaskPhoneNumber hides all but the last four digits for logging.
func MaskPhoneNumber(input string) string {
	var digits strings.Builder
	for _, ch := range input {
		if ch >= '0' && ch <= '9' {
			digits.WriteRune(ch)
		}
	}
	d := digits.String()
	if len(d) <= 4 {
		return "***"
	}
	return "***" + d[len(d)-4:]
}
