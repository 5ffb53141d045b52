package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения.
type MessageType string

// Типы сообщений.
const (
	MessageTypeTaskDispatch MessageType = "task.dispatch"
	MessageTypeTaskStop     MessageType = "task.stop"
	MessageTypeTaskResult   MessageType = "task.result"
	MessageTypeGroupAbort   MessageType = "group.abort"
)

// Message — конверт всех сообщений группы.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Sender — rank отправителя.
	Sender int `json:"sender"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload,omitempty"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage создаёт конверт с новым ID.
func NewMessage(msgType MessageType, sender int, payload any) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Sender:    sender,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// Publisher публикует сообщения группы.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Publish публикует сообщение в exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),
			string(routingKey),
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Transient,
				MessageId:    msg.ID,
				Type:         string(msg.Type),
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// PublishToSlot публикует сообщение в очередь tasks слота.
func (p *Publisher) PublishToSlot(ctx context.Context, t Topology, slot int, msg *Message) error {
	if err := t.checkSlot(slot); err != nil {
		return err
	}
	return p.Publish(ctx, t.SlotsExchange(), t.TasksKey(slot), msg)
}

// PublishResult публикует ответ worker'а слота.
func (p *Publisher) PublishResult(ctx context.Context, t Topology, slot int, msg *Message) error {
	if err := t.checkSlot(slot); err != nil {
		return err
	}
	return p.Publish(ctx, t.SlotsExchange(), t.ResultsKey(slot), msg)
}

// Broadcast публикует сигнал всем процессам группы.
func (p *Publisher) Broadcast(ctx context.Context, t Topology, msg *Message) error {
	return p.Publish(ctx, t.ControlExchange(), "", msg)
}
