// Package cardkey builds the normalized identity key shared by catalog cards,
// market items and source listings.
package cardkey

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"card_market/internal/domain"
	"card_market/pkg/errcodes"
)

var (
	ErrInsufficientKeyData = domain.NewError(errcodes.DataError, "insufficient key data: set code and card number are empty")
	ErrMissingGame         = domain.NewError(errcodes.DataError, "insufficient key data: game is empty")
)

const separator = "|"

// languageCodes maps vendor language names to the ISO 639-1 codes used in keys.
var languageCodes = map[string]string{ //nolint:gochecknoglobals
	"english":    "en",
	"german":     "de",
	"deutsch":    "de",
	"french":     "fr",
	"français":   "fr",
	"italian":    "it",
	"spanish":    "es",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"russian":    "ru",
	"dutch":      "nl",
	"polish":     "pl",
}

// Parts are the raw identifying attributes of a card.
type Parts struct {
	Game     string
	SetCode  string
	Number   string
	Variant  string
	Finish   string
	Language string
}

// Build returns the normalized key for p.
// Empty optional parts are omitted together with their label.
func Build(p Parts) (string, error) {
	game := Normalize(p.Game)
	set := Normalize(p.SetCode)
	num := NormalizeNumber(p.Number)

	if set == "" && num == "" {
		return "", ErrInsufficientKeyData
	}
	if game == "" {
		return "", ErrMissingGame
	}

	labeled := []struct {
		label string
		value string
	}{
		{label: "game", value: game},
		{label: "set", value: set},
		{label: "num", value: num},
		{label: "var", value: Normalize(p.Variant)},
		{label: "fin", value: Normalize(p.Finish)},
		{label: "lang", value: Language(p.Language)},
	}

	segments := make([]string, 0, len(labeled))
	for _, l := range labeled {
		if l.value == "" {
			continue
		}
		segments = append(segments, l.label+":"+l.value)
	}

	return strings.Join(segments, separator), nil
}

// Language normalizes a language name or code. Known names become their
// two-letter code, so "English" and "en" build the same key.
func Language(name string) string {
	n := Normalize(name)
	if code, ok := languageCodes[n]; ok {
		return code
	}
	return n
}

// NormalizeNumber drops a "/total" suffix and leading zeros of the numeric prefix.
func NormalizeNumber(number string) string {
	if i := strings.IndexByte(number, '/'); i >= 0 {
		number = number[:i]
	}

	n := Normalize(number)

	digits := 0
	for digits < len(n) && n[digits] >= '0' && n[digits] <= '9' {
		digits++
	}
	if digits == 0 {
		return n
	}

	trimmed := strings.TrimLeft(n[:digits], "0")
	if trimmed == "" {
		trimmed = "0"
	}

	return trimmed + n[digits:]
}

// Normalize folds case, turns whitespace runs into a single dash and drops
// everything except letters, digits, dashes and dots.
func Normalize(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = cases.Fold().String(s)

	var b strings.Builder
	b.Grow(len(s))

	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '.':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('-')
		}
	}

	return strings.Trim(b.String(), "-")
}
