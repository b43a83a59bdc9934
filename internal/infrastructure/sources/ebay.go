package sources

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"card_market/internal/config"
	"card_market/internal/domain/entity"
	"card_market/internal/domain/value"
	"card_market/pkg/httpx"
	"card_market/pkg/logx"
)

const ebaySalesPath = "/buy/marketplace_insights/v1_beta/item_sales/search"

type ebaySalesResponse struct {
	ItemSales []ebayItemSale `json:"itemSales"`
}

type ebayItemSale struct {
	ItemID        string `json:"itemId"`
	Title         string `json:"title"`
	LastSoldDate  string `json:"lastSoldDate"`
	LastSoldPrice struct {
		Value    rawAmount `json:"value"`
		Currency string    `json:"currency"`
	} `json:"lastSoldPrice"`
}

// EbaySold reads completed sales. It is the secondary source.
type EbaySold struct {
	t             *transport
	marketplaceID string
	pageSize      int
	now           func() time.Time
}

func NewEbaySold(cfg config.EbaySold, logFieldMaxLen int) *EbaySold {
	tokenClient := &http.Client{
		Timeout: cfg.Timeout,
		Transport: httpx.NewLoggingRoundTripper(http.DefaultTransport,
			httpx.WithSensitiveDataMasker(logx.NewSensitiveDataMasker()),
			httpx.WithLogFieldMaxLen(logFieldMaxLen),
		),
	}

	auth := NewEbayAuthenticator(cfg.BaseURL, cfg.ClientID, cfg.ClientSecret, tokenClient)

	return &EbaySold{
		t:             newTransport(value.SourceEbaySold, cfg.Source(), auth, logFieldMaxLen),
		marketplaceID: cfg.MarketplaceID,
		pageSize:      cfg.PageSize,
		now:           time.Now,
	}
}

func (e *EbaySold) Source() value.Source {
	return value.SourceEbaySold
}

func (e *EbaySold) Fetch(ctx context.Context, q entity.SourceQuery) ([]entity.Listing, error) {
	params := url.Values{}
	params.Set("q", strings.Join(strings.Fields(strings.Join([]string{q.Name, q.SetCode, q.CardNumber}, " ")), " "))
	if e.pageSize > 0 {
		params.Set("limit", strconv.Itoa(e.pageSize))
	}
	if e.marketplaceID != "" {
		params.Set("marketplace_id", e.marketplaceID)
	}
	if !q.Since.IsZero() {
		params.Set("filter", "lastSoldDate:["+q.Since.UTC().Format(time.RFC3339)+"..]")
	}

	var resp ebaySalesResponse
	if err := e.t.getJSON(ctx, ebaySalesPath, params, &resp); err != nil {
		return nil, err
	}

	key := queryKey(q)

	listings := make([]entity.Listing, 0, len(resp.ItemSales))
	for _, s := range resp.ItemSales {
		l := entity.Listing{
			Source:     value.SourceEbaySold,
			ExternalID: s.ItemID + ":" + s.LastSoldDate,
			Title:      s.Title,
			Currency:   strings.ToUpper(s.LastSoldPrice.Currency),
			EventType:  value.EventTypeSale,
			ObservedAt: parseTime(s.LastSoldDate, e.now()),
		}
		if titleMentions(s.Title, q) {
			l.CanonicalKey = key
		}

		listings = append(listings, applyRules(l, s.LastSoldPrice.Value.String()))
	}

	return listings, nil
}
