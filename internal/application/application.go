// Package application wires configuration, connectors, repositories and
// services into the pipeline runner and its operational servers.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"card_market/internal/config"
	"card_market/internal/domain/service/catalog"
	"card_market/internal/domain/service/ingest"
	"card_market/internal/domain/service/matching"
	"card_market/internal/domain/service/pipeline"
	"card_market/internal/domain/service/pricing"
	"card_market/internal/domain/value"
	"card_market/internal/infrastructure/notifier"
	"card_market/internal/infrastructure/persistence"
	"card_market/internal/infrastructure/runstore"
	"card_market/internal/infrastructure/sources"
	"card_market/internal/server"
	"card_market/internal/transport/bot"
	"card_market/internal/transport/bot/handler"
	"card_market/internal/worker"
	"card_market/pkg/application/connectors"
	"card_market/pkg/application/modules"
	"card_market/pkg/contextx"
	"card_market/pkg/logx"
	"card_market/pkg/middlewarex"
)

const (
	httpShutdownTimeout   = 10 * time.Second
	asynqShutdownTimeout  = 30 * time.Second
	httpReadHeaderTimeout = 5 * time.Second
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

type Application struct {
	cfg      config.Config
	postgres *connectors.Postgres
	redis    *connectors.Redis
}

func New(cfg config.Config) *Application {
	return &Application{
		cfg: cfg,
		postgres: &connectors.Postgres{
			DSN:             cfg.Postgres.DSN,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		},
		redis: &connectors.Redis{
			Username:           cfg.Redis.Username,
			Password:           cfg.Redis.Password,
			Address:            cfg.Redis.Address,
			DatabaseNumber:     cfg.Redis.DatabaseNumber,
			PoolSize:           cfg.Redis.PoolSize,
			MinIdleConnections: cfg.Redis.MinIdleConnections,
			MaxIdleConnections: cfg.Redis.MaxIdleConnections,
		},
	}
}

func (a *Application) Migrate(ctx context.Context) error {
	if err := persistence.Migrate(ctx, a.postgres.Client(ctx)); err != nil {
		return fmt.Errorf("persistence.Migrate: %w", err)
	}
	return nil
}

// Runner builds the stage runner over postgres, the enabled sources and the redis summary store.
func (a *Application) Runner(ctx context.Context) (*pipeline.Runner, error) {
	db := a.postgres.Client(ctx)
	p := a.cfg.Pipeline

	cards := persistence.NewCatalogCardRepository(db)
	items := persistence.NewMarketItemRepository(db)
	events := persistence.NewPriceEventRepository(db)
	reviews := persistence.NewReviewRepository(db)

	registry, err := sources.FromConfig(a.cfg.Sources, a.cfg.App.LogFieldMaxLen)
	if err != nil {
		return nil, fmt.Errorf("sources.FromConfig: %w", err)
	}
	adapters := lo.Map(registry.All(), func(s sources.Adapter, _ int) ingest.Adapter { return s })

	policy, err := policyFromConfig(p)
	if err != nil {
		return nil, err
	}

	keys := catalog.NewKeyService(cards, items).WithBatchSize(p.BatchSize)

	ingestion := ingest.NewService(items, events, persistence.NewUnmatchedRepository(db), adapters...).
		WithSeenTTL(p.SeenTTL).
		WithLookback(p.Window).
		WithBatchSize(p.BatchSize)

	matcher := matching.NewService(cards, items, persistence.NewCardMapRepository(db), reviews).
		WithBatchSize(p.BatchSize)

	aggregator := pricing.NewService(
		items,
		events,
		persistence.NewGradedPriceRepository(db),
		reviews,
		persistence.NewAggregationLogRepository(db),
	).
		WithPolicy(policy).
		WithWorkers(p.Workers).
		WithBatchSize(p.BatchSize)

	if a.cfg.Bot.Enabled() {
		alerts, err := notifier.NewTelegramBot(a.cfg.Bot.Token, a.cfg.Bot.ChatID)
		if err != nil {
			return nil, fmt.Errorf("notifier.NewTelegramBot: %w", err)
		}
		aggregator = aggregator.WithNotifier(alerts)
	}

	store := runstore.NewStore(a.redis.Client(ctx)).WithTTL(a.cfg.Redis.SummaryTTL)

	logger(ctx).Info("pipeline assembled",
		slog.Int("sources", len(adapters)),
		slog.Bool("alerts", a.cfg.Bot.Enabled()),
	)

	return pipeline.NewRunner(store).
		WithStage(value.StageKeys, keys.Refresh).
		WithStage(value.StageIngest, ingestion.Run).
		WithStage(value.StageMatch, matcher.Run).
		WithStage(value.StageAggregate, aggregator.Run), nil
}

// Serve runs the worker, the scheduler, the operator bot and the HTTP, probe
// and metric servers until ctx is done.
func (a *Application) Serve(ctx context.Context) error {
	if a.cfg.App.AutoMigrate {
		if err := a.Migrate(ctx); err != nil {
			return err
		}
	}

	runner, err := a.Runner(ctx)
	if err != nil {
		return err
	}

	asynqLogger, err := newAsynqLogger(a.cfg.App.LogLevel)
	if err != nil {
		return fmt.Errorf("newAsynqLogger: %w", err)
	}
	defer func() { _ = asynqLogger.Sync() }()

	schedules, err := worker.Schedules(a.cfg.Pipeline)
	if err != nil {
		return fmt.Errorf("worker.Schedules: %w", err)
	}

	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     a.cfg.Redis.Address,
		Username: a.cfg.Redis.Username,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DatabaseNumber,
	})
	defer func() {
		if err := client.Close(); err != nil {
			logger(ctx).Error("asynqClient.Close", logx.Error(err))
		}
	}()

	enqueuer := worker.NewEnqueuer(client, a.cfg.Pipeline.TaskTimeout)

	var operatorBot *bot.Bot
	if a.cfg.Bot.CommandsEnabled() {
		operatorBot, err = bot.New(a.cfg.Bot.Token, a.cfg.Bot.AdminID, handler.New(
			enqueuer,
			runstore.NewStore(a.redis.Client(ctx)),
			persistence.NewReviewRepository(a.postgres.Client(ctx)),
		))
		if err != nil {
			return fmt.Errorf("bot.New: %w", err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	asynqServer := modules.AsynqServer{
		RedisUsername:   a.cfg.Redis.Username,
		RedisPassword:   a.cfg.Redis.Password,
		RedisAddress:    a.cfg.Redis.Address,
		RedisDB:         a.cfg.Redis.DatabaseNumber,
		Concurrency:     a.cfg.Pipeline.WorkerConcurrency,
		ShutdownTimeout: asynqShutdownTimeout,
		Logger:          asynqLogger,
	}
	asynqServer.Run(ctx, g, modules.AsynqQueues{worker.QueueName: 1}, worker.NewHandler(runner).Handlers()...)
	asynqServer.RunScheduler(ctx, g, schedules...)

	modules.HTTPServer{ShutdownTimeout: httpShutdownTimeout}.Run(ctx, g, &http.Server{
		//nolint:exhaustruct
		Addr:              a.cfg.App.HTTPListenAddress,
		Handler:           a.router(ctx, enqueuer),
		ReadHeaderTimeout: httpReadHeaderTimeout,
	})

	if operatorBot != nil {
		g.Go(func() error { return operatorBot.Run(ctx) })
	}

	modules.ProbeServer{
		Name:          a.cfg.App.Name,
		Version:       a.cfg.App.Version,
		ListenAddress: a.cfg.App.ProbeListenAddress,
	}.Run(ctx, g)

	modules.MetricServer{ListenAddress: a.cfg.App.MetricsListenAddress}.Run(ctx, g)

	return g.Wait()
}

func (a *Application) router(ctx context.Context, enqueuer *worker.Enqueuer) http.Handler {
	db := a.postgres.Client(ctx)
	masker := logx.NewSensitiveDataMasker()

	r := chi.NewRouter()
	r.Use(
		middlewarex.TraceID,
		middlewarex.Logger,
		middlewarex.Recovery,
		middlewarex.RequestLogging(masker, a.cfg.App.LogFieldMaxLen),
		middlewarex.ResponseLogging(masker, a.cfg.App.LogFieldMaxLen),
	)

	server.NewServer(
		server.NewRunServer(enqueuer, runstore.NewStore(a.redis.Client(ctx))),
		server.NewReviewServer(
			persistence.NewReviewRepository(db),
			persistence.NewAggregationLogRepository(db),
			persistence.NewGradedPriceRepository(db),
		),
		server.NewMatchServer(
			persistence.NewCardMapRepository(db),
			persistence.NewUnmatchedRepository(db),
		),
	).RegisterRoutes(r)

	return r
}

// Close releases the connectors that were opened; unopened ones are skipped.
func (a *Application) Close(ctx context.Context) {
	a.postgres.Close(ctx)
	a.redis.Close(ctx)
}

func policyFromConfig(p config.Pipeline) (pricing.Policy, error) {
	priority := make([]value.Source, 0, len(p.SourcePriority))
	for _, raw := range p.SourcePriority {
		source, err := value.ParseSource(raw)
		if err != nil {
			return pricing.Policy{}, fmt.Errorf("PIPELINE_SOURCE_PRIORITY: %w", err)
		}
		priority = append(priority, source)
	}

	return pricing.Policy{
		OutlierK:            p.OutlierK,
		PrimaryWeight:       p.PrimaryWeight,
		SecondaryWeight:     p.SecondaryWeight,
		VolatilityThreshold: p.VolatilityThreshold,
		MinSourceSamples:    p.MinSourceSamples,
		Priority:            priority,
		Window:              p.Window,
	}, nil
}
