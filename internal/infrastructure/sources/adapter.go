// Package sources holds one adapter per external marketplace. Vendor payload
// shapes never leave this package; every adapter emits entity.Listing.
package sources

import (
	"context"
	"fmt"

	"card_market/internal/config"
	"card_market/internal/domain/entity"
	"card_market/internal/domain/value"
	"card_market/pkg/contextx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

type Adapter interface {
	Source() value.Source
	Fetch(ctx context.Context, query entity.SourceQuery) ([]entity.Listing, error)
}

// Registry keeps adapters in registration order.
type Registry struct {
	adapters []Adapter
	index    map[value.Source]int
}

func NewRegistry() *Registry {
	return &Registry{index: make(map[value.Source]int)}
}

func (r *Registry) Register(a Adapter) error {
	if _, ok := r.index[a.Source()]; ok {
		return fmt.Errorf("source %s already registered", a.Source())
	}
	r.index[a.Source()] = len(r.adapters)
	r.adapters = append(r.adapters, a)
	return nil
}

func (r *Registry) Get(source value.Source) (Adapter, bool) {
	i, ok := r.index[source]
	if !ok {
		return nil, false
	}
	return r.adapters[i], true
}

func (r *Registry) All() []Adapter {
	return r.adapters
}

// FromConfig registers every enabled source in priority order.
func FromConfig(cfg config.Sources, logFieldMaxLen int) (*Registry, error) {
	r := NewRegistry()

	var adapters []Adapter
	if cfg.Cardmarket.Enabled {
		adapters = append(adapters, NewCardmarket(cfg.Cardmarket, logFieldMaxLen))
	}
	if cfg.EbaySold.Enabled {
		adapters = append(adapters, NewEbaySold(cfg.EbaySold, logFieldMaxLen))
	}
	if cfg.GradedFeed.Enabled {
		adapters = append(adapters, NewGradedFeed(cfg.GradedFeed, logFieldMaxLen))
	}

	for _, a := range adapters {
		if err := r.Register(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}
