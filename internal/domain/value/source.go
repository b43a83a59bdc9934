package value

import "fmt"

// Source names an external marketplace feeding price observations.
type Source string

const (
	SourceCardmarket Source = "cardmarket"
	SourceEbaySold   Source = "ebay_sold"
	SourceGradedFeed Source = "graded_feed"
)

func (s Source) String() string {
	return string(s)
}

type EventType string

const (
	EventTypeSale    EventType = "sale"
	EventTypeListing EventType = "listing"
)

func ParseSource(s string) (Source, error) {
	switch source := Source(s); source {
	case SourceCardmarket, SourceEbaySold, SourceGradedFeed:
		return source, nil
	default:
		return "", fmt.Errorf("unknown source %q", s)
	}
}
