package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/coord"
	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/telemetry"
)

// Worker обслуживает один слот группы.
//
// Цикл:
//   - WAITING: блокирующий Receive на endpoint'е слота
//   - STOP → выход без ответа
//   - Task → PROCESSING: Executor, затем ровно один Reply с тем же RoundID
//
// Ошибка Receive или Send завершает Worker: дальнейшая связь со
// слотом невозможна, orchestrator подставит синтетический result.
type Worker struct {
	endpoint coord.Endpoint
	executor *Executor
	logger   *slog.Logger
}

// Config — конфигурация Worker.
type Config struct {
	// Endpoint — канал слота к orchestrator'у.
	Endpoint coord.Endpoint

	// Executor — обработчик задач.
	Executor *Executor

	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		endpoint: cfg.Endpoint,
		executor: cfg.Executor,
		logger:   telemetry.WithSlot(logger, cfg.Endpoint.Slot()),
	}
}

// Run обрабатывает сообщения до STOP.
//
// nil — получен STOP или отменён ctx. Ошибка — связь с orchestrator'ом
// потеряна.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker ready")

	for {
		msg, err := w.endpoint.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("worker interrupted")
				return nil
			}
			w.logger.Error("receive failed, worker terminating", "error", err)
			return fmt.Errorf("%w: receive: %w", ErrLinkFailed, err)
		}

		switch msg.Kind {
		case coord.KindStop:
			w.logger.Info("stop received, worker exiting")
			return nil

		case coord.KindTask:
			if err := w.handleTask(ctx, msg); err != nil {
				return err
			}

		default:
			w.logger.Warn("unknown message kind ignored", "kind", msg.Kind)
		}
	}
}

// handleTask обрабатывает task раунда и отправляет ответ.
func (w *Worker) handleTask(ctx context.Context, msg coord.Message) error {
	w.logger.Debug("task received",
		"round_id", msg.RoundID,
		"transaction_id", msg.Task.ID.OrUnknown(),
	)

	result := w.executor.Execute(msg.Task)

	if err := w.endpoint.Send(ctx, coord.Reply{RoundID: msg.RoundID, Result: result}); err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			w.logger.Info("worker interrupted while replying")
			return nil
		}
		w.logger.Error("send failed, worker terminating",
			"round_id", msg.RoundID,
			"error", err,
		)
		return fmt.Errorf("%w: send: %w", ErrLinkFailed, err)
	}

	return nil
}
