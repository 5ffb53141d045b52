package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/coord"
	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/domain"
	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/telemetry"
)

// width — сколько задач помещается в раунд.
func (o *Orchestrator) width() int {
	if len(o.links) == 0 {
		return 1
	}
	return len(o.links)
}

// poll — POLLING. Перенесённые задачи идут первыми, из очереди
// запрашивается только остаток до ширины раунда.
func (o *Orchestrator) poll(ctx context.Context) []domain.Task {
	batch := o.carry
	o.carry = nil

	want := o.width() - len(batch)
	if want > 0 {
		pulled := o.queue.Pull(ctx, want)
		telemetry.TasksPulledTotal.Add(float64(len(pulled)))

		if len(pulled) > want {
			o.logger.Error("queue returned more tasks than requested",
				"requested", want,
				"received", len(pulled),
			)
		}
		batch = append(batch, pulled...)
	}

	if len(batch) == 0 {
		telemetry.EmptyPollsTotal.Inc()
		o.logger.Debug("no tasks, backing off", "interval", o.pollInterval)
	}
	return batch
}

// split отрезает от batch задачи раунда. Остаток не теряется:
// он переносится в начало следующего раунда.
func (o *Orchestrator) split(batch []domain.Task) []domain.Task {
	k := min(len(batch), o.width())
	if len(batch) > k {
		o.carry = append([]domain.Task(nil), batch[k:]...)
		telemetry.OverflowTasksTotal.Add(float64(len(o.carry)))
		o.logger.Error("batch exceeds worker slots, carrying overflow to next round",
			"slots", o.width(),
			"batch", len(batch),
			"carried", len(o.carry),
		)
	}
	return batch[:k:k]
}

// dispatch — DISPATCHING. Задача i уходит слоту i+1. Если отправка
// не удалась, result слота сразу синтезируется, и раунд продолжается.
//
// ctx раунда не отменяется сигналом: прерывание замечает Run между
// раундами.
func (o *Orchestrator) dispatch(ctx context.Context, batch []domain.Task) *Round {
	round := newRound(o.newRoundID(), o.split(batch), o.now())
	round.Carried = len(o.carry)

	logger := telemetry.WithRoundID(o.logger, round.ID)
	logger.Debug("dispatching", "tasks", len(round.Tasks))

	for i, task := range round.Tasks {
		slot := i + 1
		if err := o.sendTask(ctx, o.links[i], coord.TaskMessage(round.ID, task)); err != nil {
			logger.Error("failed to send task to worker",
				"slot", slot,
				"transaction_id", task.ID.OrUnknown(),
				"error", err,
			)
			o.synthesize(round, slot)
		}
	}

	return round
}

// sendTask отправляет задачу слоту. CollectTimeout ограничивает и
// отправку: канал зависшего worker'а со временем переполняется.
func (o *Orchestrator) sendTask(ctx context.Context, link coord.Link, msg coord.Message) error {
	if o.collectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.collectTimeout)
		defer cancel()
	}

	err := link.Send(ctx, msg)
	if errors.Is(err, context.DeadlineExceeded) {
		return errSendTimeout(o.collectTimeout)
	}
	return err
}

// collect — COLLECTING. Ответы собираются строго в порядке слотов.
func (o *Orchestrator) collect(ctx context.Context, round *Round) {
	logger := telemetry.WithRoundID(o.logger, round.ID)

	for i := range round.Tasks {
		slot := i + 1
		if o.isSynthesized(round, slot) {
			continue
		}

		result, err := o.collectSlot(ctx, round, slot)
		if err != nil {
			logger.Error("failed to receive result from worker",
				"slot", slot,
				"transaction_id", round.Tasks[i].ID.OrUnknown(),
				"error", err,
			)
			o.synthesize(round, slot)
			continue
		}
		round.setResult(slot, result)
	}
}

// collectSlot ждёт ответ слота на текущий раунд. Ответы с чужим
// RoundID отбрасываются.
func (o *Orchestrator) collectSlot(ctx context.Context, round *Round, slot int) (domain.Result, error) {
	if o.collectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.collectTimeout)
		defer cancel()
	}

	link := o.links[slot-1]
	for {
		reply, err := link.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return domain.Result{}, errCollectTimeout(o.collectTimeout)
			}
			return domain.Result{}, err
		}

		if reply.RoundID != round.ID {
			o.logger.Warn("discarding stale reply",
				"slot", slot,
				"round_id", round.ID,
				"reply_round_id", reply.RoundID,
			)
			continue
		}
		return reply.Result, nil
	}
}

func (o *Orchestrator) synthesize(round *Round, slot int) {
	round.synthesize(slot, o.now())
	telemetry.ResultsTotal.WithLabelValues(telemetry.OutcomeSynthesized).Inc()
}

func (o *Orchestrator) isSynthesized(round *Round, slot int) bool {
	for _, s := range round.Synthesized {
		if s == slot {
			return true
		}
	}
	return false
}

// push — PUSHING. Без повторов: отклонённый batch теряется.
func (o *Orchestrator) push(ctx context.Context, round *Round) {
	round.Pushed = o.queue.Push(ctx, round.Results)

	outcome := telemetry.OutcomeOK
	if !round.Pushed {
		outcome = telemetry.OutcomeFailed
	}
	telemetry.PushesTotal.WithLabelValues(outcome).Inc()
	telemetry.RoundsTotal.Inc()
	telemetry.RoundDuration.Observe(time.Since(round.StartedAt).Seconds())

	logger := telemetry.WithRoundID(o.logger, round.ID)
	if !round.Pushed {
		logger.Error("failed to push results, batch dropped",
			"results", len(round.Results),
			"degraded", round.Degraded(),
		)
		return
	}
	logger.Info("round complete",
		"results", len(round.Results),
		"degraded", round.Degraded(),
		"synthesized", len(round.Synthesized),
		"carried", round.Carried,
	)
}

// runInline обрабатывает раунд без worker'ов.
func (o *Orchestrator) runInline(ctx context.Context, batch []domain.Task) *Round {
	round := newRound(o.newRoundID(), o.split(batch), o.now())
	round.Carried = len(o.carry)

	for i, task := range round.Tasks {
		round.setResult(i+1, o.inline.Execute(task))
	}

	o.push(ctx, round)
	return round
}

// drain — DRAINING. STOP отправляется каждому слоту без ожидания;
// недоставленный STOP только логируется.
func (o *Orchestrator) drain() {
	o.logger.Info("orchestrator shutting down, stopping workers", "slots", len(o.links))

	for _, link := range o.links {
		if !link.TrySend(coord.StopMessage()) {
			telemetry.StopsUndeliveredTotal.Inc()
			o.logger.Warn("failed to deliver stop to worker", "slot", link.Slot())
		}
	}

	if len(o.carry) > 0 {
		o.logger.Warn("carried tasks not processed before shutdown", "count", len(o.carry))
	}
}
