package cli

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/config"
	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/coord"
	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/telemetry"
)

func newLocalCmd(opts *globalOpts) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "local",
		Short: "Run the orchestrator and N workers in one process",
		Long: `Run a whole scoring group inside one process.

Workers talk to the orchestrator over in-memory channels. With
--workers 0 the process runs the standalone loop.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if workers < 0 {
				return errors.New("--workers must not be negative")
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			return runLocal(cmd.Context(), cfg, workers)
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "number of worker goroutines")

	return cmd
}

func runLocal(parent context.Context, cfg *config.Config, workers int) error {
	logger := telemetry.SetupLogger()
	logger.Info("starting fraudnode local", "workers", workers, "config", cfg)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	stopMetrics := serveMetrics(cfg, logger, cancel)
	defer stopMetrics()

	// Все роли делят одну модель, поэтому она грузится до старта группы.
	exec, err := loadExecutor(cfg, logger)
	if err != nil {
		return err
	}

	groups, err := coord.NewLocal(workers+1, nil)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for _, g := range groups[1:] {
		wg.Add(1)
		go func(g *coord.Group) {
			defer wg.Done()

			wlog := telemetry.WithRole(logger, g.Rank, g.Role().String())
			// Worker завершается по STOP от orchestrator'а, не по сигналу.
			if err := runRole(context.WithoutCancel(ctx), g, cfg, exec, wlog); err != nil {
				wlog.Error("worker stopped with error", "error", err)
			}
		}(g)
	}

	head := groups[0]
	runErr := runRole(ctx, head, cfg, exec, telemetry.WithRole(logger, head.Rank, head.Role().String()))

	for _, g := range groups {
		g.Close()
	}
	wg.Wait()

	if runErr != nil {
		return runErr
	}

	logger.Info("fraudnode local stopped")
	return nil
}
