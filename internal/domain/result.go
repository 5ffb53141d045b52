package domain

import (
	"fmt"
	"time"
)

// Значения поля IsFraudulent.
const (
	LabelLegit      = 0
	LabelFraudulent = 1

	// LabelError — предсказание не получено (ошибка transform, scorer или связи).
	LabelError = -1
)

// Result — результат скоринга одной транзакции.
//
// Result создаётся ровно один раз на каждый отправленный worker'у Task,
// в том числе синтетически, если worker не ответил. После создания
// не изменяется.
type Result struct {
	// TransactionID — id исходной транзакции.
	TransactionID TransactionID `json:"transaction_id"`

	// Timestamp — время скоринга в ISO-8601.
	Timestamp string `json:"timestamp,omitempty"`

	// IsFraudulent — 0/1, либо LabelError.
	IsFraudulent int `json:"is_fraudulent"`

	// Confidence — вероятность предсказанного класса, [0, 1].
	Confidence float64 `json:"confidence"`

	// Error — текст ошибки (только для деградированных результатов).
	Error string `json:"error,omitempty"`
}

// FormatTimestamp форматирует время скоринга.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// NewScoredResult создаёт результат успешного предсказания.
func NewScoredResult(id TransactionID, label int, confidence float64, at time.Time) Result {
	return Result{
		TransactionID: id.OrUnknown(),
		Timestamp:     FormatTimestamp(at),
		IsFraudulent:  label,
		Confidence:    confidence,
	}
}

// NewDegradedResult создаёт результат без предсказания.
// errMsg может быть пустым (ошибка transform не несёт текста).
func NewDegradedResult(id TransactionID, errMsg string, at time.Time) Result {
	return Result{
		TransactionID: id.OrUnknown(),
		Timestamp:     FormatTimestamp(at),
		IsFraudulent:  LabelError,
		Confidence:    0.0,
		Error:         errMsg,
	}
}

// ReceiveFailedResult — синтетический результат для слота,
// от которого orchestrator не смог получить ответ.
func ReceiveFailedResult(id TransactionID, slot int, at time.Time) Result {
	return NewDegradedResult(id, fmt.Sprintf("Failed to receive result from worker %d", slot), at)
}

// IsDegraded возвращает true, если предсказание не получено.
func (r Result) IsDegraded() bool {
	return r.IsFraudulent == LabelError
}
