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

type cardmarketResponse struct {
	Articles []cardmarketArticle `json:"article"`
}

type cardmarketArticle struct {
	ID            int64     `json:"idArticle"`
	Price         rawAmount `json:"price"`
	Currency      string    `json:"currency"`
	Comments      string    `json:"comments"`
	LastEdited    string    `json:"lastEdited"`
	IsFoil        bool      `json:"isFoil"`
	IsReverseHolo bool      `json:"isReverseHolo"`
	Language      struct {
		Name string `json:"languageName"`
	} `json:"language"`
	Product struct {
		Name          string `json:"enName"`
		Game          string `json:"game"`
		ExpansionCode string `json:"expansionCode"`
		Number        string `json:"number"`
		Variant       string `json:"variant"`
	} `json:"product"`
}

// Cardmarket reads active marketplace listings. It is the primary source.
type Cardmarket struct {
	t        *transport
	pageSize int
	now      func() time.Time
}

func NewCardmarket(cfg config.Cardmarket, logFieldMaxLen int) *Cardmarket {
	var auth authenticator
	if cfg.AppToken != "" {
		auth = staticToken(cfg.AppToken)
	}

	return &Cardmarket{
		t:        newTransport(value.SourceCardmarket, cfg.Source(), auth, logFieldMaxLen),
		pageSize: cfg.PageSize,
		now:      time.Now,
	}
}

func (c *Cardmarket) Source() value.Source {
	return value.SourceCardmarket
}

func (c *Cardmarket) Fetch(ctx context.Context, q entity.SourceQuery) ([]entity.Listing, error) {
	params := url.Values{}
	params.Set("game", q.Category)
	params.Set("expansion", q.SetCode)
	params.Set("number", q.CardNumber)
	if q.Language != "" {
		params.Set("language", q.Language)
	}
	if c.pageSize > 0 {
		params.Set("maxResults", strconv.Itoa(c.pageSize))
	}

	var resp cardmarketResponse
	if err := c.t.getJSON(ctx, "/articles", params, &resp); err != nil {
		return nil, err
	}

	listings := make([]entity.Listing, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		listings = append(listings, c.toListing(a, q))
	}

	return listings, nil
}

func (c *Cardmarket) toListing(a cardmarketArticle, q entity.SourceQuery) entity.Listing {
	variant := a.Product.Variant
	if variant == "" && a.IsReverseHolo {
		variant = "reverse"
	}

	finish := ""
	if a.IsFoil {
		finish = "foil"
	}

	game := a.Product.Game
	if game == "" {
		game = q.Category
	}

	currency := a.Currency
	if currency == "" {
		currency = "EUR"
	}

	title := strings.TrimSpace(a.Product.Name + " " + a.Comments)

	return applyRules(entity.Listing{
		Source:     value.SourceCardmarket,
		ExternalID: strconv.FormatInt(a.ID, 10),
		Title:      title,
		Currency:   strings.ToUpper(currency),
		EventType:  value.EventTypeListing,
		ObservedAt: parseTime(a.LastEdited, c.now()),
		CanonicalKey: listingKey(cardkey.Parts{
			Game:     game,
			SetCode:  a.Product.ExpansionCode,
			Number:   a.Product.Number,
			Variant:  variant,
			Finish:   finish,
			Language: a.Language.Name,
		}),
	}, a.Price.String())
}

func parseTime(s string, fallback time.Time) time.Time {
	if s == "" {
		return fallback
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05-0700", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return fallback
}
