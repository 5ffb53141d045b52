package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/coord"
	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/domain"
)

// Default configuration values.
const (
	defaultPollInterval = time.Second
)

// TaskQueue — внешняя очередь задач и результатов.
type TaskQueue interface {
	Pull(ctx context.Context, maxCount int) []domain.Task
	Push(ctx context.Context, results []domain.Result) bool
	Close() error
}

// TaskExecutor обрабатывает задачу в процессе orchestrator'а.
type TaskExecutor interface {
	Execute(task domain.Task) domain.Result
}

// Orchestrator раздаёт задачи worker-слотам раундами.
//
// Раунд: POLLING → DISPATCHING → COLLECTING → PUSHING. Раунды строго
// последовательны: следующий pull только после push предыдущего.
// Отмена ctx переводит в DRAINING: STOP всем слотам без ожидания,
// закрытие клиента очереди.
type Orchestrator struct {
	queue  TaskQueue
	links  []coord.Link
	inline TaskExecutor

	pollInterval   time.Duration
	collectTimeout time.Duration

	// carry — задачи, которые не поместились в слоты прошлого раунда.
	carry []domain.Task

	newRoundID func() string
	now        func() time.Time
	logger     *slog.Logger
}

// Config — конфигурация Orchestrator.
type Config struct {
	// Queue — клиент внешней очереди (обязательно).
	// Orchestrator закрывает его при завершении Run.
	Queue TaskQueue

	// Links — каналы к worker'ам в порядке слотов 1..W.
	Links []coord.Link

	// Inline обрабатывает задачи сам, если слотов нет.
	Inline TaskExecutor

	// PollInterval — пауза после пустого pull (default: 1s).
	PollInterval time.Duration

	// CollectTimeout — ожидание ответа одного слота; 0 — без ограничения.
	CollectTimeout time.Duration

	// RoundID генерирует идентификатор раунда (default: uuid).
	RoundID func() string

	// Clock — источник времени (default: time.Now).
	Clock func() time.Time

	Logger *slog.Logger
}

// New создаёт новый Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Queue == nil {
		return nil, ErrNoQueue
	}
	if len(cfg.Links) == 0 && cfg.Inline == nil {
		return nil, ErrNoSlots
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	collectTimeout := cfg.CollectTimeout
	if collectTimeout < 0 {
		collectTimeout = 0
	}

	roundID := cfg.RoundID
	if roundID == nil {
		roundID = uuid.NewString
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		queue:          cfg.Queue,
		links:          cfg.Links,
		inline:         cfg.Inline,
		pollInterval:   pollInterval,
		collectTimeout: collectTimeout,
		newRoundID:     roundID,
		now:            clock,
		logger:         logger,
	}, nil
}

// Slots возвращает число worker-слотов.
func (o *Orchestrator) Slots() int {
	return len(o.links)
}

// Run выполняет раунды до отмены ctx, затем останавливает worker'ов
// и закрывает клиент очереди. Возвращает nil при штатном завершении.
func (o *Orchestrator) Run(ctx context.Context) error {
	defer o.closeQueue()

	o.logger.Info("orchestrator started",
		"slots", len(o.links),
		"poll_interval", o.pollInterval,
		"collect_timeout", o.collectTimeout,
	)
	if len(o.links) == 0 {
		o.logger.Warn("no worker slots, scoring inline")
	}

	for {
		if ctx.Err() != nil {
			break
		}
		if _, err := o.RunRound(ctx); err != nil {
			break
		}
	}

	o.drain()
	return nil
}

// RunRound выполняет один раунд.
//
// Пустой pull: пауза PollInterval и (nil, nil). Отмена ctx во время
// паузы: (nil, ctx.Err()). Иначе — состояние завершённого раунда.
// Начатый раунд доводится до конца даже после отмены ctx: worker'ы
// отвечают настоящими results, и batch отправляется.
func (o *Orchestrator) RunRound(ctx context.Context) (*Round, error) {
	batch := o.poll(ctx)
	if len(batch) == 0 {
		return nil, o.sleep(ctx)
	}

	roundCtx := context.WithoutCancel(ctx)

	if len(o.links) == 0 {
		return o.runInline(roundCtx, batch), nil
	}

	round := o.dispatch(roundCtx, batch)
	o.collect(roundCtx, round)
	o.push(roundCtx, round)

	return round, nil
}

// sleep ждёт PollInterval или отмены ctx.
func (o *Orchestrator) sleep(ctx context.Context) error {
	t := time.NewTimer(o.pollInterval)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (o *Orchestrator) closeQueue() {
	if err := o.queue.Close(); err != nil {
		o.logger.Warn("failed to close queue client", "error", err)
	}
}
