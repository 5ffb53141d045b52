package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/config"
	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/coord"
	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/mq"
	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/telemetry"
	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/worker"
)

// errNoPlacement — rank и size не заданы ни флагами, ни launcher'ом.
var errNoPlacement = errors.New("rank and size are unknown: pass --rank and --size or start under a launcher")

func newNodeCmd(opts *globalOpts) *cobra.Command {
	var rank, size int

	cmd := &cobra.Command{
		Use:   "node",
		Short: "Run one process of a scoring group",
		Long: `Run one process of a scoring group coordinated over RabbitMQ.

Rank 0 is the orchestrator, ranks 1..size-1 are workers, size 1 runs
a single standalone loop. Rank and size come from --rank/--size or from
OMPI_COMM_WORLD_*, PMI_* or FRAUD_* variables set by a launcher.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			place, err := resolvePlacement(cmd, rank, size)
			if err != nil {
				return err
			}

			return runNode(cmd.Context(), cfg, place)
		},
	}

	cmd.Flags().IntVar(&rank, "rank", 0, "rank of this process (0 = orchestrator)")
	cmd.Flags().IntVar(&size, "size", 0, "number of processes in the group")

	return cmd
}

// resolvePlacement — флаги важнее переменных launcher'а.
func resolvePlacement(cmd *cobra.Command, rank, size int) (config.Placement, error) {
	rankSet := cmd.Flags().Changed("rank")
	sizeSet := cmd.Flags().Changed("size")

	switch {
	case rankSet && sizeSet:
		return config.Placement{Rank: rank, Size: size, Source: "flags"}, nil
	case rankSet || sizeSet:
		return config.Placement{}, errors.New("--rank and --size must be given together")
	}

	place, err := config.DiscoverPlacement()
	if err != nil {
		return config.Placement{}, err
	}
	if place.Source == "" {
		return config.Placement{}, errNoPlacement
	}
	return place, nil
}

func runNode(parent context.Context, cfg *config.Config, place config.Placement) error {
	role, err := coord.RoleFor(place.Rank, place.Size)
	if err != nil {
		return err
	}

	logger := telemetry.WithRole(telemetry.SetupLogger(), place.Rank, role.String())
	logger.Info("starting fraudnode", "size", place.Size, "placement", place.Source, "config", cfg)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	stopMetrics := serveMetrics(cfg, logger, cancel)
	defer stopMetrics()

	group, closeGroup, err := dialGroup(ctx, cfg, place, logger, cancel)
	if err != nil {
		return err
	}
	defer closeGroup()

	var exec *worker.Executor
	if role != coord.RoleOrchestrator {
		exec, err = loadExecutor(cfg, logger)
		if err != nil {
			logger.Error("failed to load model, aborting group", "error", err)
			if abortErr := group.Abort(context.WithoutCancel(ctx), err.Error()); abortErr != nil {
				logger.Warn("failed to broadcast abort", "error", abortErr)
			}
			return err
		}
	}

	if err := runRole(ctx, group, cfg, exec, logger); err != nil {
		return err
	}

	if cause := context.Cause(ctx); errors.Is(cause, coord.ErrGroupAborted) {
		return cause
	}

	logger.Info("fraudnode stopped")
	return nil
}

// dialGroup собирает Group процесса. Группа из одного процесса
// обходится без брокера.
func dialGroup(ctx context.Context, cfg *config.Config, place config.Placement, logger *slog.Logger, cancel context.CancelCauseFunc) (*coord.Group, func(), error) {
	if place.Size == 1 {
		groups, err := coord.NewLocal(1, nil)
		if err != nil {
			return nil, nil, err
		}
		return groups[0], func() { groups[0].Close() }, nil
	}

	if cfg.CoordTransport != config.TransportAMQP {
		return nil, nil, fmt.Errorf("node with size %d needs COORD_TRANSPORT=%s, use the local command for in-process groups",
			place.Size, config.TransportAMQP)
	}

	conn, err := mq.NewConnection(mq.ConnectionConfig{
		URL:    cfg.RabbitMQURL,
		Name:   fmt.Sprintf("fraudnode-%d", place.Rank),
		Logger: logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect to broker: %w", err)
	}

	group, err := coord.DialAMQP(ctx, coord.AMQPConfig{
		Conn:      conn,
		Namespace: cfg.CoordNamespace,
		Rank:      place.Rank,
		Size:      place.Size,
		OnAbort: func(sender int, reason string) {
			logger.Error("group aborted", "sender", sender, "reason", reason)
			cancel(fmt.Errorf("%w: rank %d: %s", coord.ErrGroupAborted, sender, reason))
		},
		Logger: logger,
	})
	if err != nil {
		conn.Close()
		return nil, nil, err
	}

	closeAll := func() {
		if err := group.Close(); err != nil {
			logger.Warn("failed to close group", "error", err)
		}
		conn.Close()
	}
	return group, closeAll, nil
}
