package config

import "time"

type Sources struct {
	Cardmarket Cardmarket
	EbaySold   EbaySold
	GradedFeed GradedFeed
}

// Source holds the transport settings shared by every vendor adapter.
type Source struct {
	Enabled         bool
	BaseURL         string
	Timeout         time.Duration
	RequestInterval time.Duration
	PageSize        int
}

type Cardmarket struct {
	Enabled         bool          `env:"CARDMARKET_ENABLED" envDefault:"true"`
	BaseURL         string        `env:"CARDMARKET_BASE_URL" envDefault:"https://api.cardmarket.com/ws/v2.0/output.json"`
	AppToken        string        `env:"CARDMARKET_APP_TOKEN" json:"-"`
	Timeout         time.Duration `env:"CARDMARKET_TIMEOUT" envDefault:"15s"`
	RequestInterval time.Duration `env:"CARDMARKET_REQUEST_INTERVAL" envDefault:"1500ms"`
	PageSize        int           `env:"CARDMARKET_PAGE_SIZE" envDefault:"50"`
}

func (c Cardmarket) Source() Source {
	return Source{
		Enabled:         c.Enabled,
		BaseURL:         c.BaseURL,
		Timeout:         c.Timeout,
		RequestInterval: c.RequestInterval,
		PageSize:        c.PageSize,
	}
}

type EbaySold struct {
	Enabled         bool          `env:"EBAY_ENABLED" envDefault:"true"`
	BaseURL         string        `env:"EBAY_BASE_URL" envDefault:"https://api.ebay.com"`
	ClientID        string        `env:"EBAY_CLIENT_ID"`
	ClientSecret    string        `env:"EBAY_CLIENT_SECRET" json:"-"`
	MarketplaceID   string        `env:"EBAY_MARKETPLACE_ID" envDefault:"EBAY_US"`
	Timeout         time.Duration `env:"EBAY_TIMEOUT" envDefault:"15s"`
	RequestInterval time.Duration `env:"EBAY_REQUEST_INTERVAL" envDefault:"1s"`
	PageSize        int           `env:"EBAY_PAGE_SIZE" envDefault:"50"`
}

func (c EbaySold) Source() Source {
	return Source{
		Enabled:         c.Enabled,
		BaseURL:         c.BaseURL,
		Timeout:         c.Timeout,
		RequestInterval: c.RequestInterval,
		PageSize:        c.PageSize,
	}
}

type GradedFeed struct {
	Enabled         bool          `env:"GRADED_FEED_ENABLED" envDefault:"false"`
	BaseURL         string        `env:"GRADED_FEED_BASE_URL"`
	APIKey          string        `env:"GRADED_FEED_API_KEY" json:"-"`
	Timeout         time.Duration `env:"GRADED_FEED_TIMEOUT" envDefault:"10s"`
	RequestInterval time.Duration `env:"GRADED_FEED_REQUEST_INTERVAL" envDefault:"2s"`
	PageSize        int           `env:"GRADED_FEED_PAGE_SIZE" envDefault:"100"`
}

func (c GradedFeed) Source() Source {
	return Source{
		Enabled:         c.Enabled,
		BaseURL:         c.BaseURL,
		Timeout:         c.Timeout,
		RequestInterval: c.RequestInterval,
		PageSize:        c.PageSize,
	}
}
