package converter

import (
	"strings"
	"unicode"

	"github.com/james-see/als2hapax/pkg/rack"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxNameLength is the longest track name the Hapax displays
const MaxNameLength = rack.MaxNameLength

const fallbackName = "track"

// SanitizeName reduces a track or project name to the file-stem alphabet:
// ASCII letters, digits, space, '-', '_' and '.'. Accents are stripped,
// anything else becomes '-', and the result is trimmed and capped at
// MaxNameLength characters.
func SanitizeName(name string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Map(safeRune),
		norm.NFC,
	)
	out, _, err := transform.String(t, name)
	if err != nil {
		out = strings.Map(safeRune, name)
	}

	out = strings.Trim(out, " .")
	if len(out) > MaxNameLength {
		out = strings.TrimRight(out[:MaxNameLength], " .")
	}
	if out == "" {
		return fallbackName
	}
	return out
}

func safeRune(r rune) rune {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return r
	case r == ' ', r == '-', r == '_', r == '.':
		return r
	case r == '\t' || r == '\n' || r == '\r':
		return ' '
	default:
		return '-'
	}
}
