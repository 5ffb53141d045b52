package worker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/domain"
	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/features"
	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/scorer"
	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/telemetry"
)

// Executor превращает Task в Result: transform, затем score.
//
// Execute никогда не возвращает ошибку: любая проблема с задачей
// становится деградированным Result.
//   - ошибка transform → is_fraudulent=-1, без текста ошибки
//   - ошибка или panic scorer'а → is_fraudulent=-1 и текст ошибки
//
// Executor используется и worker'ом, и standalone-циклом.
type Executor struct {
	transformer *features.Transformer
	scorer      scorer.Scorer
	logger      *slog.Logger
	now         func() time.Time
}

// ExecutorConfig — конфигурация Executor.
type ExecutorConfig struct {
	// Scorer — загруженная модель (обязательно).
	Scorer scorer.Scorer

	// Clock — источник времени для timestamp результата (default: time.Now).
	Clock func() time.Time

	Logger *slog.Logger
}

// NewExecutor создаёт Executor.
func NewExecutor(cfg ExecutorConfig) *Executor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Executor{
		transformer: features.NewTransformer(logger),
		scorer:      cfg.Scorer,
		logger:      logger,
		now:         clock,
	}
}

// Execute обрабатывает одну задачу.
func (e *Executor) Execute(task domain.Task) domain.Result {
	start := time.Now()
	defer func() {
		telemetry.ScoreDuration.Observe(time.Since(start).Seconds())
	}()

	logger := e.logger.With("transaction_id", task.ID.OrUnknown())

	vec, err := e.transformer.Transform(task)
	if err != nil {
		logger.Warn("feature transform failed", "error", err)
		telemetry.ResultsTotal.WithLabelValues(telemetry.OutcomeDegraded).Inc()
		return domain.NewDegradedResult(task.ID, "", e.now())
	}

	label, confidence, err := e.score(vec)
	if err != nil {
		logger.Error("prediction failed", "error", err)
		telemetry.ResultsTotal.WithLabelValues(telemetry.OutcomeDegraded).Inc()
		return domain.NewDegradedResult(task.ID, err.Error(), e.now())
	}

	logger.Debug("task scored", "is_fraudulent", label, "confidence", confidence)
	telemetry.ResultsTotal.WithLabelValues(telemetry.OutcomeScored).Inc()
	return domain.NewScoredResult(task.ID, label, confidence, e.now())
}

// score вызывает модель и превращает panic в ошибку.
func (e *Executor) score(vec domain.FeatureVector) (label int, confidence float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", scorer.ErrPrediction, r)
		}
	}()

	return e.scorer.Score(vec)
}
