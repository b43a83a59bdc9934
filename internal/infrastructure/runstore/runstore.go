// Package runstore keeps the latest summary of each pipeline stage in redis.
package runstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"card_market/internal/domain"
	"card_market/internal/domain/entity"
	"card_market/internal/domain/value"
	"card_market/pkg/errcodes"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals

const (
	keyPrefix  = "card_market:run:"
	defaultTTL = 7 * 24 * time.Hour
)

type Store struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewStore(client redis.Cmdable) *Store {
	return &Store{client: client, ttl: defaultTTL}
}

func (s *Store) WithTTL(ttl time.Duration) *Store {
	if ttl > 0 {
		s.ttl = ttl
	}
	return s
}

func latestKey(stage value.Stage) string {
	return keyPrefix + stage.String() + ":latest"
}

func (s *Store) Save(ctx context.Context, summary *entity.RunSummary) error {
	var (
		raw []byte
		err error
	)
	summary.Track(func(rs *entity.RunSummary) { raw, err = json.Marshal(rs) })
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	if err := s.client.Set(ctx, latestKey(summary.Stage), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis.Set: %w", err)
	}
	return nil
}

// Latest returns the most recent summary of stage, or a NoRunSummary error.
func (s *Store) Latest(ctx context.Context, stage value.Stage) (*entity.RunSummary, error) {
	raw, err := s.client.Get(ctx, latestKey(stage)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.NewError(errcodes.NoRunSummary, fmt.Sprintf("no %s run recorded", stage))
	}
	if err != nil {
		return nil, fmt.Errorf("redis.Get: %w", err)
	}

	var summary entity.RunSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to decode run summary")
	}
	return &summary, nil
}
