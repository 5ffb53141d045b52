package standalone

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/domain"
	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/telemetry"
)

const defaultPollInterval = time.Second

// ErrNoQueue — не задан клиент очереди.
var ErrNoQueue = errors.New("queue client is required")

// ErrNoExecutor — не задан обработчик задач.
var ErrNoExecutor = errors.New("executor is required")

// TaskQueue — внешняя очередь задач и результатов.
type TaskQueue interface {
	Pull(ctx context.Context, maxCount int) []domain.Task
	Push(ctx context.Context, results []domain.Result) bool
	Close() error
}

// TaskExecutor превращает задачу в result.
type TaskExecutor interface {
	Execute(task domain.Task) domain.Result
}

// Loop — цикл единственного процесса группы:
// pull(1) → transform → score → push([result]).
type Loop struct {
	queue        TaskQueue
	executor     TaskExecutor
	pollInterval time.Duration
	logger       *slog.Logger
}

// Config — конфигурация Loop.
type Config struct {
	Queue    TaskQueue
	Executor TaskExecutor

	// PollInterval — пауза после пустого pull (default: 1s).
	PollInterval time.Duration

	Logger *slog.Logger
}

// New создаёт Loop.
func New(cfg Config) (*Loop, error) {
	if cfg.Queue == nil {
		return nil, ErrNoQueue
	}
	if cfg.Executor == nil {
		return nil, ErrNoExecutor
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Loop{
		queue:        cfg.Queue,
		executor:     cfg.Executor,
		pollInterval: pollInterval,
		logger:       logger,
	}, nil
}

// Run обрабатывает задачи по одной до отмены ctx и закрывает клиент очереди.
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		if err := l.queue.Close(); err != nil {
			l.logger.Warn("failed to close queue client", "error", err)
		}
	}()

	l.logger.Info("standalone loop started", "poll_interval", l.pollInterval)

	for ctx.Err() == nil {
		if _, err := l.Step(ctx); err != nil {
			break
		}
	}

	l.logger.Info("standalone loop stopped")
	return nil
}

// Step выполняет одну итерацию. Возвращает results итерации или
// nil, если очередь пуста. Ошибка — только отмена ctx во время паузы.
func (l *Loop) Step(ctx context.Context) ([]domain.Result, error) {
	tasks := l.queue.Pull(ctx, 1)
	if len(tasks) == 0 {
		telemetry.EmptyPollsTotal.Inc()
		return nil, l.sleep(ctx)
	}
	telemetry.TasksPulledTotal.Add(float64(len(tasks)))

	if len(tasks) > 1 {
		l.logger.Error("queue returned more tasks than requested, processing all",
			"requested", 1,
			"received", len(tasks),
		)
	}

	results := make([]domain.Result, 0, len(tasks))
	for _, task := range tasks {
		results = append(results, l.executor.Execute(task))
	}

	if !l.queue.Push(context.WithoutCancel(ctx), results) {
		telemetry.PushesTotal.WithLabelValues(telemetry.OutcomeFailed).Inc()
		l.logger.Error("failed to push results, dropped", "results", len(results))
		return results, nil
	}

	telemetry.PushesTotal.WithLabelValues(telemetry.OutcomeOK).Inc()
	for _, r := range results {
		l.logger.Info("task processed",
			"transaction_id", r.TransactionID,
			"is_fraudulent", r.IsFraudulent,
			"confidence", r.Confidence,
		)
	}
	return results, nil
}

func (l *Loop) sleep(ctx context.Context) error {
	t := time.NewTimer(l.pollInterval)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
