package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/config"
	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/coord"
	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/orchestrator"
	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/queue"
	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/scorer"
	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/standalone"
	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/worker"
)

const shutdownTimeout = 5 * time.Second

// newQueueClient создаёт клиент сервиса очередей. Клиентом владеет
// цикл, которому он передан: он же его и закрывает.
func newQueueClient(cfg *config.Config, logger *slog.Logger) *queue.Client {
	return queue.New(queue.Config{
		BaseURL:           cfg.MQServiceURL,
		TransactionsQueue: cfg.TransactionsQueue,
		ResultsQueue:      cfg.ResultsQueue,
		Timeout:           cfg.Timeout(),
		Logger:            logger,
	})
}

// loadExecutor загружает модель. Ошибка фатальна для всей группы.
func loadExecutor(cfg *config.Config, logger *slog.Logger) (*worker.Executor, error) {
	model, err := scorer.Load(cfg.ModelPath)
	if err != nil {
		return nil, err
	}
	logger.Info("model loaded", "path", cfg.ModelPath)

	return worker.NewExecutor(worker.ExecutorConfig{Scorer: model, Logger: logger}), nil
}

// runRole запускает цикл роли процесса и блокируется до его завершения.
// exec может быть nil для orchestrator'а.
func runRole(ctx context.Context, g *coord.Group, cfg *config.Config, exec *worker.Executor, logger *slog.Logger) error {
	switch g.Role() {
	case coord.RoleStandalone:
		loop, err := standalone.New(standalone.Config{
			Queue:        newQueueClient(cfg, logger),
			Executor:     exec,
			PollInterval: cfg.PollBackoff(),
			Logger:       logger,
		})
		if err != nil {
			return err
		}
		return loop.Run(ctx)

	case coord.RoleOrchestrator:
		o, err := orchestrator.New(orchestrator.Config{
			Queue:          newQueueClient(cfg, logger),
			Links:          g.Links(),
			PollInterval:   cfg.PollBackoff(),
			CollectTimeout: cfg.CollectWait(),
			Logger:         logger,
		})
		if err != nil {
			return err
		}
		return o.Run(ctx)

	case coord.RoleWorker:
		ep, err := g.Endpoint()
		if err != nil {
			return err
		}
		return worker.New(worker.Config{Endpoint: ep, Executor: exec, Logger: logger}).Run(ctx)

	default:
		return fmt.Errorf("%w: %s", coord.ErrWrongRole, g.Role())
	}
}

// newHealthMux — /healthz и /metrics.
func newHealthMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// serveMetrics поднимает /healthz и /metrics, если порт не "0".
// Возвращает функцию остановки сервера.
func serveMetrics(cfg *config.Config, logger *slog.Logger, onFail context.CancelCauseFunc) func() {
	if !cfg.MetricsEnabled() {
		return func() {}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           newHealthMux(),
		ReadHeaderTimeout: shutdownTimeout,
	}

	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			onFail(fmt.Errorf("metrics server: %w", err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("metrics server shutdown", "error", err)
		}
	}
}
