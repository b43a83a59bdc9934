// Command pipeline runs pipeline stages once from the shell, outside the
// asynq worker.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"card_market/internal/application"
	"card_market/internal/config"
	"card_market/internal/domain/entity"
	"card_market/internal/domain/service/pipeline"
	"card_market/internal/domain/value"
	"card_market/pkg/contextx"
	"card_market/pkg/logx"
)

const allStages = "all"

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var app *application.Application

	root := &cobra.Command{
		Use:           "pipeline",
		Short:         "Card market price pipeline",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config.Load: %w", err)
			}

			log := logx.New(os.Stderr, cfg.App.LogLevel)
			slog.SetDefault(log)
			cmd.SetContext(contextx.WithLogger(cmd.Context(), log))

			app = application.New(cfg)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if app != nil {
				app.Close(cmd.Context())
			}
		},
	}

	root.AddCommand(
		newRunCommand(func() *application.Application { return app }),
		newMigrateCommand(func() *application.Application { return app }),
	)

	return root
}

func newRunCommand(app func() *application.Application) *cobra.Command {
	var opts entity.RunOptions

	cmd := &cobra.Command{
		Use:   "run <keys|ingest|match|aggregate|all>",
		Short: "Run one stage, or every stage in order, and print the summary",
		Args:  cobra.ExactArgs(1),
		Example: `  pipeline run ingest --category pokemon --limit 100
  pipeline run aggregate --force
  pipeline run all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			runner, err := app().Runner(ctx)
			if err != nil {
				return err
			}

			summaries, err := runStages(ctx, runner, args[0], opts)
			for _, s := range summaries {
				if encodeErr := json.NewEncoder(cmd.OutOrStdout()).Encode(s); encodeErr != nil {
					return fmt.Errorf("encode summary: %w", encodeErr)
				}
			}
			return err
		},
	}

	cmd.Flags().StringVar(&opts.Category, "category", "", "restrict the run to one game")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "max items to process, 0 for all")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "apply prices past the volatility gate")

	return cmd
}

func runStages(
	ctx context.Context,
	runner *pipeline.Runner,
	raw string,
	opts entity.RunOptions,
) ([]*entity.RunSummary, error) {
	if raw == allStages {
		return runner.RunAll(ctx, opts)
	}

	stage, err := value.ParseStage(raw)
	if err != nil {
		return nil, err
	}

	summary, err := runner.Run(ctx, stage, opts)
	if summary == nil {
		return nil, err
	}
	return []*entity.RunSummary{summary}, err
}

func newMigrateCommand(app func() *application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app().Migrate(cmd.Context())
		},
	}
}
