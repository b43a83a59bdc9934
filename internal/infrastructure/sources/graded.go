package sources

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"card_market/internal/config"
	"card_market/internal/domain/entity"
	"card_market/internal/domain/service/cardkey"
	"card_market/internal/domain/value"
)

type gradedSalesResponse struct {
	Sales []gradedSale `json:"sales"`
}

type gradedSale struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Grade    string    `json:"grade"`
	Price    rawAmount `json:"price"`
	Currency string    `json:"currency"`
	SoldAt   string    `json:"soldAt"`
	Card     struct {
		Game     string `json:"game"`
		Set      string `json:"set"`
		Number   string `json:"number"`
		Variant  string `json:"variant"`
		Language string `json:"language"`
	} `json:"card"`
}

// GradedFeed reads sales of graded copies. Ungraded rows land in the raw bucket.
type GradedFeed struct {
	t        *transport
	pageSize int
	now      func() time.Time
}

func NewGradedFeed(cfg config.GradedFeed, logFieldMaxLen int) *GradedFeed {
	var auth authenticator
	if cfg.APIKey != "" {
		auth = staticToken(cfg.APIKey)
	}

	return &GradedFeed{
		t:        newTransport(value.SourceGradedFeed, cfg.Source(), auth, logFieldMaxLen),
		pageSize: cfg.PageSize,
		now:      time.Now,
	}
}

func (g *GradedFeed) Source() value.Source {
	return value.SourceGradedFeed
}

func (g *GradedFeed) Fetch(ctx context.Context, q entity.SourceQuery) ([]entity.Listing, error) {
	params := url.Values{}
	params.Set("game", q.Category)
	params.Set("set", q.SetCode)
	params.Set("number", q.CardNumber)
	if g.pageSize > 0 {
		params.Set("limit", strconv.Itoa(g.pageSize))
	}
	if !q.Since.IsZero() {
		params.Set("since", q.Since.UTC().Format(time.RFC3339))
	}

	var resp gradedSalesResponse
	if err := g.t.getJSON(ctx, "/v1/sales", params, &resp); err != nil {
		return nil, err
	}

	listings := make([]entity.Listing, 0, len(resp.Sales))
	for _, s := range resp.Sales {
		listings = append(listings, applyRules(entity.Listing{
			Source:     value.SourceGradedFeed,
			ExternalID: s.ID,
			Title:      s.Title,
			Currency:   strings.ToUpper(s.Currency),
			EventType:  value.EventTypeSale,
			ObservedAt: parseTime(s.SoldAt, g.now()),
			Grade:      ParseGrade(s.Grade),
			CanonicalKey: listingKey(cardkey.Parts{
				Game:     s.Card.Game,
				SetCode:  s.Card.Set,
				Number:   s.Card.Number,
				Variant:  s.Card.Variant,
				Language: s.Card.Language,
			}),
		}, s.Price.String()))
	}

	return listings, nil
}
