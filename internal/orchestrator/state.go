package orchestrator

import (
	"time"

	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/domain"
)

// Round — состояние одного раунда orchestrator'а.
//
// Позиция задачи в batch совпадает с номером слота: Tasks[i] отправлен
// слоту i+1, Results[i] — его результат. Другой корреляции между
// задачей и worker'ом нет.
type Round struct {
	// ID — идентификатор раунда, передаётся в каждом Message и
	// возвращается в Reply.
	ID string

	// Tasks — задачи, отправленные слотам.
	Tasks []domain.Task

	// Results — ровно один Result на каждую задачу Tasks.
	Results []domain.Result

	// Carried — задачи сверх числа слотов, перенесённые в следующий раунд.
	Carried int

	// Synthesized — слоты, за которые result подставлен orchestrator'ом.
	Synthesized []int

	// Pushed — batch принят сервисом очередей.
	Pushed bool

	// StartedAt — время начала dispatch.
	StartedAt time.Time
}

func newRound(id string, tasks []domain.Task, now time.Time) *Round {
	return &Round{
		ID:        id,
		Tasks:     tasks,
		Results:   make([]domain.Result, len(tasks)),
		StartedAt: now,
	}
}

// setResult сохраняет result слота.
func (r *Round) setResult(slot int, result domain.Result) {
	r.Results[slot-1] = result
}

// synthesize подставляет result для слота, который не ответил.
func (r *Round) synthesize(slot int, now time.Time) {
	r.Synthesized = append(r.Synthesized, slot)
	r.setResult(slot, domain.ReceiveFailedResult(r.Tasks[slot-1].ID, slot, now))
}

// Degraded возвращает число results без предсказания.
func (r *Round) Degraded() int {
	n := 0
	for _, res := range r.Results {
		if res.IsDegraded() {
			n++
		}
	}
	return n
}
