package sources

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"card_market/internal/domain/entity"
	"card_market/internal/domain/value"
)

// excludedKeywords mark listings that are not a single genuine card.
var excludedKeywords = []string{ //nolint:gochecknoglobals
	"bundle", "lot", "proxy", "damaged", "digital", "code card", "custom",
	"fake", "replica", "reprint", "orica", "playset", "empty box",
	"booster box", "sealed", "repack", "mystery", "art card", "jumbo",
}

var keywordPattern = buildKeywordPattern(excludedKeywords) //nolint:gochecknoglobals

// thousandsPattern matches comma-grouped integers such as 1,250 or 12,500,000.
var thousandsPattern = regexp.MustCompile(`^\d{1,3}(,\d{3})+$`) //nolint:gochecknoglobals

var gradePattern = regexp.MustCompile( //nolint:gochecknoglobals
	`(?i)\b(PSA|BGS|CGC|SGC|TAG|ACE|BECKETT)[\s-]*(?:GEM\s*(?:MINT|MT)\s*)?(10|[1-9](?:\.5)?)\b`,
)

func buildKeywordPattern(keywords []string) *regexp.Regexp {
	quoted := make([]string, 0, len(keywords))
	for _, k := range keywords {
		quoted = append(quoted, strings.ReplaceAll(regexp.QuoteMeta(k), " ", `\s+`))
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
}

// Screen returns the exclusion reason for a title, or "" when it passes.
func Screen(title string) string {
	m := keywordPattern.FindStringSubmatch(title)
	if m == nil {
		return ""
	}
	return "keyword:" + strings.Join(strings.Fields(strings.ToLower(m[1])), " ")
}

// ParseGrade extracts a grader and numeric grade. Titles without one are raw.
func ParseGrade(text string) value.Grade {
	m := gradePattern.FindStringSubmatch(text)
	if m == nil {
		return value.Grade{}
	}

	grader := strings.ToUpper(m[1])
	if grader == "BECKETT" {
		grader = "BGS"
	}

	return value.Grade{Grader: grader, Value: m[2]}
}

// ParseAmount reads a vendor price. Comma decimals are accepted, except
// that commas grouping whole thousands without a dot are separators.
// Unparsable or non-positive values report false.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), `"`))
	s = strings.TrimLeft(s, "$€£ ")
	s = strings.ReplaceAll(s, " ", "")

	switch comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, "."); {
	case comma >= 0 && dot >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case comma >= 0 && dot >= 0, comma >= 0 && thousandsPattern.MatchString(s):
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}

	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}

	return d, true
}

// applyRules runs the shared screen over a listing before its amount is used.
func applyRules(l entity.Listing, rawAmount string) entity.Listing {
	if reason := Screen(l.Title); reason != "" {
		l.Excluded = true
		l.ExcludeReason = reason
	}

	amount, ok := ParseAmount(rawAmount)
	l.Amount = amount
	if !ok && !l.Excluded {
		l.Excluded = true
		l.ExcludeReason = value.OutlierReasonInvalidAmount
	}

	if l.Grade.IsRaw() {
		l.Grade = ParseGrade(l.Title)
	}

	return l
}
