package textutil

import (
	"strings"
	"unicode"
)

// maxFileNameRunes keeps names well below common 255-byte filesystem limits
// even for multi-byte titles.
const maxFileNameRunes = 120

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters and control characters are removed. Runs of whitespace collapse
// to a single space and the result is capped at maxFileNameRunes.
func SanitizeFileName(name string) string {
	name = fileNameReplacer.Replace(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.Join(strings.Fields(name), " ")
	name = strings.Trim(name, ". ")
	if runes := []rune(name); len(runes) > maxFileNameRunes {
		name = strings.TrimSpace(string(runes[:maxFileNameRunes]))
	}
	return name
}

// ClipFileName names a saved clip after its title, falling back to fallback
// when the title sanitizes to nothing. A non-empty span such as "1-05 - 2-10"
// is appended in brackets.
func ClipFileName(title, span, ext, fallback string) string {
	base := SanitizeFileName(title)
	if base == "" {
		base = fallback
	}
	if span = SanitizeFileName(span); span != "" {
		base += " [" + span + "]"
	}
	if ext = strings.TrimPrefix(ext, "."); ext != "" {
		base += "." + ext
	}
	return base
}
