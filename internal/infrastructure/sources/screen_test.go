package sources

import (
	"testing"

	"github.com/stretchr/testify/require"

	"card_market/internal/domain/entity"
	"card_market/internal/domain/value"
)

func TestScreen(t *testing.T) {
	t.Parallel()

	tests := []struct {
		title string
		want  string
	}{
		{title: "Pikachu 025/198 SV1 Near Mint", want: ""},
		{title: "Pikachu SV1 PROXY card", want: "keyword:proxy"},
		{title: "Charizard Lot of 5", want: "keyword:lot"},
		{title: "Pokemon TCG Live CODE  CARD", want: "keyword:code card"},
		{title: "Pilot Pikachu promo", want: ""},
		{title: "Blue-Eyes orica holo", want: "keyword:orica"},
		{title: "Empty Box Scarlet Violet", want: "keyword:empty box"},
		{title: "Charizard slightly damaged corner", want: "keyword:damaged"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, Screen(tt.title), tt.title)
	}
}

func TestParseGrade(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want value.Grade
	}{
		{text: "Pikachu SV1 PSA 10 Gem Mint", want: value.Grade{Grader: "PSA", Value: "10"}},
		{text: "Charizard BGS 9.5", want: value.Grade{Grader: "BGS", Value: "9.5"}},
		{text: "cgc8 Umbreon", want: value.Grade{Grader: "CGC", Value: "8"}},
		{text: "PSA GEM MT 10", want: value.Grade{Grader: "PSA", Value: "10"}},
		{text: "Beckett 9", want: value.Grade{Grader: "BGS", Value: "9"}},
		{text: "Pikachu 025/198 raw NM", want: value.Grade{}},
		{text: "", want: value.Grade{}},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, ParseGrade(tt.text), tt.text)
	}
}

func TestParseAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{raw: "12.50", want: "12.5", wantOK: true},
		{raw: `"3,99"`, want: "3.99", wantOK: true},
		{raw: "€ 1.234,56", want: "1234.56", wantOK: true},
		{raw: "$1,234.56", want: "1234.56", wantOK: true},
		{raw: "$1,250", want: "1250", wantOK: true},
		{raw: "12,500,000", want: "12500000", wantOK: true},
		{raw: "1,25", want: "1.25", wantOK: true},
		{raw: "1250,5", want: "1250.5", wantOK: true},
		{raw: "0", wantOK: false},
		{raw: "-5", wantOK: false},
		{raw: "free", wantOK: false},
		{raw: "", wantOK: false},
		{raw: "null", wantOK: false},
	}

	for _, tt := range tests {
		rq := require.New(t)

		got, ok := ParseAmount(tt.raw)
		rq.Equal(tt.wantOK, ok, tt.raw)
		if tt.wantOK {
			rq.Equal(tt.want, got.String(), tt.raw)
		}
	}
}

func TestApplyRules(t *testing.T) {
	t.Parallel()
	rq := require.New(t)

	l := applyRules(entity.Listing{Title: "Pikachu proxy"}, "0")
	rq.True(l.Excluded)
	rq.Equal("keyword:proxy", l.ExcludeReason, "keyword screen runs before amount checks")

	l = applyRules(entity.Listing{Title: "Pikachu SV1 25"}, "abc")
	rq.True(l.Excluded)
	rq.Equal(value.OutlierReasonInvalidAmount, l.ExcludeReason)

	l = applyRules(entity.Listing{Title: "Pikachu SV1 25 PSA 9"}, "40")
	rq.False(l.Excluded)
	rq.Equal(value.Grade{Grader: "PSA", Value: "9"}, l.Grade)
	rq.Equal("40", l.Amount.String())
}

func TestTitleMentions(t *testing.T) {
	t.Parallel()

	q := entity.SourceQuery{Category: "pokemon", SetCode: "SV1", CardNumber: "025"}

	tests := []struct {
		title string
		want  bool
	}{
		{title: "Pikachu 025/198 SV1 Scarlet Violet", want: true},
		{title: "Pikachu #25 (sv1) holo", want: true},
		{title: "Pikachu 026/198 SV1", want: false},
		{title: "Pikachu 025/198 Base", want: false},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, titleMentions(tt.title, q), tt.title)
	}

	require.False(t, titleMentions("Pikachu", entity.SourceQuery{Category: "pokemon"}))
}
