package mq

import (
	"context"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Topology описывает объекты брокера для одной группы процессов.
//
// Для группы из N процессов и пространства имён ns:
//
//	ns.slots (direct)
//	├── ns.slot.<n>.tasks   [routing: slot.<n>.tasks]    consumer: worker n
//	└── ns.slot.<n>.results [routing: slot.<n>.results]  consumer: orchestrator
//	ns.control (fanout)
//	└── ns.control.<rank>   exclusive, consumer: процесс rank
type Topology struct {
	// Namespace — префикс всех имён (default: fraudmesh).
	Namespace string

	// Slots — число worker-слотов (N-1).
	Slots int
}

// DefaultNamespace — префикс имён по умолчанию.
const DefaultNamespace = "fraudmesh"

func (t Topology) ns() string {
	if t.Namespace == "" {
		return DefaultNamespace
	}
	return strings.TrimSuffix(t.Namespace, ".")
}

// SlotsExchange — direct exchange для tasks и results.
func (t Topology) SlotsExchange() Exchange {
	return Exchange(t.ns() + ".slots")
}

// ControlExchange — fanout exchange для групповых сигналов.
func (t Topology) ControlExchange() Exchange {
	return Exchange(t.ns() + ".control")
}

// TasksKey — routing key очереди tasks слота.
func (t Topology) TasksKey(slot int) RoutingKey {
	return RoutingKey(fmt.Sprintf("slot.%d.tasks", slot))
}

// ResultsKey — routing key очереди results слота.
func (t Topology) ResultsKey(slot int) RoutingKey {
	return RoutingKey(fmt.Sprintf("slot.%d.results", slot))
}

// TasksQueue — очередь, из которой читает worker слота.
func (t Topology) TasksQueue(slot int) Queue {
	return Queue(t.ns() + "." + string(t.TasksKey(slot)))
}

// ResultsQueue — очередь ответов слота.
func (t Topology) ResultsQueue(slot int) Queue {
	return Queue(t.ns() + "." + string(t.ResultsKey(slot)))
}

// ControlQueue — персональная очередь процесса для сигналов группы.
func (t Topology) ControlQueue(rank int) Queue {
	return Queue(fmt.Sprintf("%s.control.%d", t.ns(), rank))
}

func (t Topology) checkSlot(slot int) error {
	if slot < 1 || slot > t.Slots {
		return fmt.Errorf("%w: %d (slots: %d)", ErrInvalidSlot, slot, t.Slots)
	}
	return nil
}

// Setup объявляет exchanges и очереди всех слотов.
// Идемпотентна: каждый процесс группы может вызвать её при старте.
func (t Topology) Setup(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := t.declareExchanges(ch); err != nil {
			return err
		}
		return t.declareSlotQueues(ch)
	})
}

func (t Topology) declareExchanges(ch *amqp.Channel) error {
	exchanges := []struct {
		name Exchange
		kind string
	}{
		{t.SlotsExchange(), amqp.ExchangeDirect},
		{t.ControlExchange(), amqp.ExchangeFanout},
	}

	for _, ex := range exchanges {
		err := ch.ExchangeDeclare(
			string(ex.name), // name
			ex.kind,         // type
			true,            // durable
			false,           // auto-deleted
			false,           // internal
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}
	return nil
}

func (t Topology) declareSlotQueues(ch *amqp.Channel) error {
	for slot := 1; slot <= t.Slots; slot++ {
		bindings := []struct {
			queue Queue
			key   RoutingKey
		}{
			{t.TasksQueue(slot), t.TasksKey(slot)},
			{t.ResultsQueue(slot), t.ResultsKey(slot)},
		}

		for _, b := range bindings {
			if _, err := ch.QueueDeclare(
				string(b.queue), // name
				false,           // durable: содержимое имеет смысл только в рамках запуска
				false,           // delete when unused
				false,           // exclusive
				false,           // no-wait
				nil,             // arguments
			); err != nil {
				return fmt.Errorf("declare queue %s: %w", b.queue, err)
			}

			if err := ch.QueueBind(
				string(b.queue),
				string(b.key),
				string(t.SlotsExchange()),
				false,
				nil,
			); err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", b.queue, t.SlotsExchange(), err)
			}
		}
	}
	return nil
}

// DeclareControlQueue создаёт exclusive очередь процесса и привязывает
// её к control exchange. Очередь удаляется брокером вместе с соединением.
func (t Topology) DeclareControlQueue(ctx context.Context, conn *Connection, rank int) (Queue, error) {
	name := t.ControlQueue(rank)

	err := conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if _, err := ch.QueueDeclare(string(name), false, true, true, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", name, err)
		}
		if err := ch.QueueBind(string(name), "", string(t.ControlExchange()), false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", name, t.ControlExchange(), err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return name, nil
}

// PurgeSlots удаляет из очередей слотов сообщения предыдущих запусков.
// Вызывает только orchestrator, до первого раунда.
func (t Topology) PurgeSlots(ctx context.Context, conn *Connection) (int, error) {
	var total int

	err := conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		for slot := 1; slot <= t.Slots; slot++ {
			for _, q := range []Queue{t.TasksQueue(slot), t.ResultsQueue(slot)} {
				n, err := ch.QueuePurge(string(q), false)
				if err != nil {
					return fmt.Errorf("purge queue %s: %w", q, err)
				}
				total += n
			}
		}
		return nil
	})

	return total, err
}

// String возвращает описание топологии для логирования.
func (t Topology) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s (direct)\n", t.SlotsExchange())
	for slot := 1; slot <= t.Slots; slot++ {
		fmt.Fprintf(&b, "  %s [routing: %s]\n", t.TasksQueue(slot), t.TasksKey(slot))
		fmt.Fprintf(&b, "  %s [routing: %s]\n", t.ResultsQueue(slot), t.ResultsKey(slot))
	}
	fmt.Fprintf(&b, "%s (fanout)\n", t.ControlExchange())
	return b.String()
}
