package modules

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"
)

type AsynqQueues map[string]int

type AsynqHandler struct {
	Pattern string
	Handle  func(context.Context, *asynq.Task) error
}

// AsynqSchedule is a periodic task registration; an empty Cron disables it.
type AsynqSchedule struct {
	Cron string
	Task *asynq.Task
	Opts []asynq.Option
}

type AsynqServer struct {
	RedisUsername   string
	RedisPassword   string
	RedisAddress    string
	RedisDB         int
	Concurrency     int
	ShutdownTimeout time.Duration
	Logger          asynq.Logger
}

func (s AsynqServer) redisConnection() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     s.RedisAddress,
		Username: s.RedisUsername,
		Password: s.RedisPassword,
		DB:       s.RedisDB,
	}
}

func (s AsynqServer) Run(
	ctx context.Context,
	g *errgroup.Group,
	queues AsynqQueues,
	handlers ...AsynqHandler,
) {
	g.Go(func() error {
		worker := asynq.NewServer(s.redisConnection(), asynq.Config{
			BaseContext:     func() context.Context { return ctx },
			Concurrency:     s.Concurrency,
			Queues:          queues,
			Logger:          s.Logger,
			ShutdownTimeout: s.ShutdownTimeout,
		})

		mux := asynq.NewServeMux()

		for _, h := range handlers {
			mux.HandleFunc(h.Pattern, h.Handle)
		}

		if err := worker.Start(mux); err != nil {
			return fmt.Errorf("asynqServer.Start: %w", err)
		}

		logger(ctx).Info("asynq server started", slog.String("redis-address", s.RedisAddress), slog.Int("redis-db", s.RedisDB))

		<-ctx.Done()

		worker.Shutdown()

		logger(ctx).Info("asynq server stopped", slog.String("redis-address", s.RedisAddress), slog.Int("redis-db", s.RedisDB))

		return nil
	})
}

func (s AsynqServer) RunScheduler(
	ctx context.Context,
	g *errgroup.Group,
	schedules ...AsynqSchedule,
) {
	g.Go(func() error {
		scheduler := asynq.NewScheduler(s.redisConnection(), &asynq.SchedulerOpts{
			Logger:   s.Logger,
			Location: time.UTC,
		})

		for _, sch := range schedules {
			if sch.Cron == "" {
				continue
			}

			entryID, err := scheduler.Register(sch.Cron, sch.Task, sch.Opts...)
			if err != nil {
				return fmt.Errorf("scheduler.Register(%s): %w", sch.Task.Type(), err)
			}

			logger(ctx).Info(
				"asynq task scheduled",
				slog.String("task", sch.Task.Type()),
				slog.String("cron", sch.Cron),
				slog.String("entry-id", entryID),
			)
		}

		if err := scheduler.Start(); err != nil {
			return fmt.Errorf("scheduler.Start: %w", err)
		}

		<-ctx.Done()

		scheduler.Shutdown()

		logger(ctx).Info("asynq scheduler stopped")

		return nil
	})
}
