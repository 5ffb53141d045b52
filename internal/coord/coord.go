package coord

import (
	"context"
	"fmt"
	"io"

	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/domain"
)

// Kind — тип сообщения orchestrator → worker.
type Kind int

const (
	// KindTask — task текущего раунда, ожидается ровно один Reply.
	KindTask Kind = iota

	// KindStop — worker должен завершиться, ответ не ожидается.
	KindStop
)

func (k Kind) String() string {
	switch k {
	case KindTask:
		return "task"
	case KindStop:
		return "stop"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Message — сообщение orchestrator → worker.
type Message struct {
	Kind    Kind        `json:"kind"`
	RoundID string      `json:"round_id,omitempty"`
	Task    domain.Task `json:"task"`
}

// TaskMessage создаёт сообщение с task раунда.
func TaskMessage(roundID string, task domain.Task) Message {
	return Message{Kind: KindTask, RoundID: roundID, Task: task}
}

// StopMessage создаёт сигнал завершения.
func StopMessage() Message {
	return Message{Kind: KindStop}
}

// Reply — ответ worker → orchestrator.
// RoundID копируется из Message, на который отвечает worker.
type Reply struct {
	RoundID string        `json:"round_id"`
	Result  domain.Result `json:"result"`
}

// Link — канал orchestrator'а к одному worker-слоту.
//
// Ни один метод не должен блокироваться дольше, чем живёт ctx.
type Link interface {
	// Slot — номер слота (rank worker'а), начиная с 1.
	Slot() int

	// Send отправляет сообщение worker'у.
	Send(ctx context.Context, msg Message) error

	// TrySend отправляет сообщение без ожидания.
	// false — сообщение не доставлено.
	TrySend(msg Message) bool

	// Receive ждёт следующий ответ worker'а.
	Receive(ctx context.Context) (Reply, error)

	io.Closer
}

// Endpoint — канал worker'а к orchestrator'у.
type Endpoint interface {
	// Slot — номер слота, которому принадлежит endpoint.
	Slot() int

	// Receive ждёт следующее сообщение от orchestrator'а.
	Receive(ctx context.Context) (Message, error)

	// Send отправляет ответ orchestrator'у.
	Send(ctx context.Context, reply Reply) error

	io.Closer
}
