package sources

import (
	"strings"

	"card_market/internal/domain/entity"
	"card_market/internal/domain/service/cardkey"
)

// listingKey builds the normalized key from vendor fields, or "" when the
// vendor did not supply enough to build one.
func listingKey(p cardkey.Parts) string {
	key, err := cardkey.Build(p)
	if err != nil {
		return ""
	}
	return key
}

// queryKey is the key of the item a search was issued for.
func queryKey(q entity.SourceQuery) string {
	if q.NormalizedKey != "" {
		return q.NormalizedKey
	}
	return listingKey(cardkey.Parts{
		Game:     q.Category,
		SetCode:  q.SetCode,
		Number:   q.CardNumber,
		Variant:  q.Variant,
		Finish:   q.Finish,
		Language: q.Language,
	})
}

// titleMentions reports whether a free-text title names both the set code and
// the card number of q. Sources without structured card fields are only
// attributed to the queried item when this holds.
func titleMentions(title string, q entity.SourceQuery) bool {
	set := cardkey.Normalize(q.SetCode)
	num := cardkey.NormalizeNumber(q.CardNumber)
	if set == "" || num == "" {
		return false
	}

	var hasSet, hasNum bool
	for _, token := range strings.FieldsFunc(strings.ToLower(title), isTitleSeparator) {
		if cardkey.Normalize(token) == set {
			hasSet = true
		}
		if cardkey.NormalizeNumber(token) == num {
			hasNum = true
		}
	}

	return hasSet && hasNum
}

func isTitleSeparator(r rune) bool {
	switch r {
	case ' ', '\t', ',', '(', ')', '[', ']', '#', ':', ';', '|':
		return true
	default:
		return false
	}
}
