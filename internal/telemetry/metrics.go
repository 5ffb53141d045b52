package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fraudnode"

// Метрики процесса. Регистрируются в prometheus.DefaultRegisterer
// и отдаются на /metrics.
var (
	// RoundsTotal — завершённые раунды orchestrator'а.
	RoundsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rounds_total",
		Help:      "Completed orchestrator rounds with at least one task.",
	})

	// EmptyPollsTotal — pull без задач.
	EmptyPollsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "empty_polls_total",
		Help:      "Pulls that returned no tasks.",
	})

	// TasksPulledTotal — задачи, полученные из очереди.
	TasksPulledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_pulled_total",
		Help:      "Tasks pulled from the transactions queue.",
	})

	// OverflowTasksTotal — задачи сверх числа слотов, перенесённые в следующий раунд.
	OverflowTasksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "overflow_tasks_total",
		Help:      "Tasks pulled beyond the number of worker slots and carried to the next round.",
	})

	// ResultsTotal — results по исходу: scored, degraded, synthesized.
	ResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "results_total",
		Help:      "Results produced, by outcome.",
	}, []string{"outcome"})

	// PushesTotal — отправки batch'ей по исходу: ok, failed.
	PushesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pushes_total",
		Help:      "Result batch pushes, by outcome.",
	}, []string{"outcome"})

	// StopsUndeliveredTotal — STOP, который не удалось доставить слоту.
	StopsUndeliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stops_undelivered_total",
		Help:      "STOP signals that could not be delivered to a worker slot.",
	})

	// RoundDuration — длительность раунда от dispatch до push.
	RoundDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "round_duration_seconds",
		Help:      "Time from dispatch to push of a round.",
		Buckets:   prometheus.DefBuckets,
	})

	// ScoreDuration — время transform + score одной задачи.
	ScoreDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "score_duration_seconds",
		Help:      "Time spent transforming and scoring a single task.",
		Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
	})
)

// Значения label outcome.
const (
	OutcomeScored      = "scored"
	OutcomeDegraded    = "degraded"
	OutcomeSynthesized = "synthesized"

	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)
