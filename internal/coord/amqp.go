package coord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/mq"
)

const defaultTrySendTimeout = time.Second

// AMQPConfig — параметры группы поверх RabbitMQ.
type AMQPConfig struct {
	// Conn — открытое соединение с брокером.
	Conn *mq.Connection

	// Namespace — префикс имён exchanges и очередей.
	Namespace string

	Rank int
	Size int

	// OnAbort вызывается, когда другой процесс группы объявил аварийную
	// остановку.
	OnAbort func(sender int, reason string)

	// TrySendTimeout ограничивает TrySend (default: 1s).
	TrySendTimeout time.Duration

	Logger *slog.Logger
}

// abortPayload — payload сообщения group.abort.
type abortPayload struct {
	Reason string `json:"reason"`
}

// DialAMQP объявляет топологию и собирает Group процесса поверх брокера.
//
// Orchestrator при старте очищает очереди слотов от сообщений
// прошлых запусков.
func DialAMQP(ctx context.Context, cfg AMQPConfig) (*Group, error) {
	role, err := RoleFor(cfg.Rank, cfg.Size)
	if err != nil {
		return nil, err
	}
	if cfg.Conn == nil {
		return nil, fmt.Errorf("%w: nil broker connection", ErrInvalidTopology)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("rank", cfg.Rank, "role", role)

	trySendTimeout := cfg.TrySendTimeout
	if trySendTimeout <= 0 {
		trySendTimeout = defaultTrySendTimeout
	}

	topology := mq.Topology{Namespace: cfg.Namespace, Slots: cfg.Size - 1}
	if err := topology.Setup(ctx, cfg.Conn); err != nil {
		return nil, fmt.Errorf("setup topology: %w", err)
	}
	logger.Debug("topology declared", "topology", topology.String())

	pub := mq.NewPublisher(cfg.Conn, logger)

	runCtx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	run := func(c *mq.Consumer) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("consumer stopped", "error", err)
			}
		}()
	}

	var (
		links    []Link
		endpoint Endpoint
	)

	switch role {
	case RoleOrchestrator:
		purged, err := topology.PurgeSlots(ctx, cfg.Conn)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("purge slot queues: %w", err)
		}
		if purged > 0 {
			logger.Warn("discarded messages from previous run", "count", purged)
		}

		for slot := 1; slot < cfg.Size; slot++ {
			l := &amqpLink{
				slot:           slot,
				topology:       topology,
				pub:            pub,
				sender:         cfg.Rank,
				trySendTimeout: trySendTimeout,
				inbox:          make(chan replyOrErr, 1),
				done:           make(chan struct{}),
			}
			run(mq.NewConsumer(cfg.Conn, logger, mq.ConsumerConfig{
				Queue:   topology.ResultsQueue(slot),
				Handler: l.deliver,
			}))
			links = append(links, l)
		}

	case RoleWorker:
		e := &amqpEndpoint{
			slot:     cfg.Rank,
			topology: topology,
			pub:      pub,
			inbox:    make(chan Message, 1),
			done:     make(chan struct{}),
		}
		run(mq.NewConsumer(cfg.Conn, logger, mq.ConsumerConfig{
			Queue:   topology.TasksQueue(cfg.Rank),
			Handler: e.deliver,
		}))
		endpoint = e
	}

	if _, err := topology.DeclareControlQueue(ctx, cfg.Conn, cfg.Rank); err != nil {
		cancel()
		return nil, fmt.Errorf("declare control queue: %w", err)
	}
	run(mq.NewConsumer(cfg.Conn, logger, mq.ConsumerConfig{
		Queue: topology.ControlQueue(cfg.Rank),
		Declare: func(ctx context.Context) error {
			_, err := topology.DeclareControlQueue(ctx, cfg.Conn, cfg.Rank)
			return err
		},
		Handler: func(_ context.Context, d *mq.Delivery) error {
			if d.Message.Type != mq.MessageTypeGroupAbort || d.Message.Sender == cfg.Rank {
				return nil
			}
			p, err := mq.ParsePayload[abortPayload](&d.Message)
			if err != nil {
				return err
			}
			logger.Error("group abort received", "sender", d.Message.Sender, "reason", p.Reason)
			if cfg.OnAbort != nil {
				cfg.OnAbort(d.Message.Sender, p.Reason)
			}
			return nil
		},
	}))

	abort := func(ctx context.Context, reason string) error {
		msg := mq.NewMessage(mq.MessageTypeGroupAbort, cfg.Rank, abortPayload{Reason: reason})
		return pub.Broadcast(ctx, topology, msg)
	}

	g, err := NewGroup(cfg.Rank, cfg.Size, links, endpoint, abort)
	if err != nil {
		cancel()
		wg.Wait()
		return nil, err
	}
	g.closers = append(g.closers, func() error {
		cancel()
		wg.Wait()
		return nil
	})

	logger.Info("joined group", "size", cfg.Size, "namespace", cfg.Namespace)
	return g, nil
}

type replyOrErr struct {
	reply Reply
	err   error
}

// amqpLink — канал orchestrator'а к слоту: публикует в tasks очередь
// слота, читает results очередь слота.
type amqpLink struct {
	slot           int
	topology       mq.Topology
	pub            *mq.Publisher
	sender         int
	trySendTimeout time.Duration

	inbox chan replyOrErr
	done  chan struct{}
	once  sync.Once
}

func (l *amqpLink) Slot() int { return l.slot }

func (l *amqpLink) Send(ctx context.Context, msg Message) error {
	select {
	case <-l.done:
		return ErrLinkClosed
	default:
	}

	return l.pub.PublishToSlot(ctx, l.topology, l.slot, toEnvelope(msg, l.sender))
}

func (l *amqpLink) TrySend(msg Message) bool {
	ctx, cancel := context.WithTimeout(context.Background(), l.trySendTimeout)
	defer cancel()

	return l.Send(ctx, msg) == nil
}

func (l *amqpLink) Receive(ctx context.Context) (Reply, error) {
	select {
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	case <-l.done:
		return Reply{}, ErrLinkClosed
	case r := <-l.inbox:
		return r.reply, r.err
	}
}

func (l *amqpLink) Close() error {
	l.once.Do(func() { close(l.done) })
	return nil
}

// deliver — Handler consumer'а results очереди. Неразбираемый ответ
// передаётся в Receive как ошибка, чтобы orchestrator подставил
// синтетический result.
func (l *amqpLink) deliver(ctx context.Context, d *mq.Delivery) error {
	item := replyOrErr{}
	if d.Message.Type != mq.MessageTypeTaskResult {
		item.err = fmt.Errorf("%w: unexpected type %q from slot %d", ErrMalformedReply, d.Message.Type, l.slot)
	} else if reply, err := mq.ParsePayload[Reply](&d.Message); err != nil {
		item.err = fmt.Errorf("%w: %w", ErrMalformedReply, err)
	} else {
		item.reply = reply
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLinkClosed
	case l.inbox <- item:
		return nil
	}
}

// amqpEndpoint — канал worker'а: читает tasks очередь своего слота,
// публикует в results очередь.
type amqpEndpoint struct {
	slot     int
	topology mq.Topology
	pub      *mq.Publisher

	inbox chan Message
	done  chan struct{}
	once  sync.Once
}

func (e *amqpEndpoint) Slot() int { return e.slot }

func (e *amqpEndpoint) Receive(ctx context.Context) (Message, error) {
	select {
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case <-e.done:
		return Message{}, ErrLinkClosed
	case m := <-e.inbox:
		return m, nil
	}
}

func (e *amqpEndpoint) Send(ctx context.Context, reply Reply) error {
	select {
	case <-e.done:
		return ErrLinkClosed
	default:
	}

	msg := mq.NewMessage(mq.MessageTypeTaskResult, e.slot, reply)
	return e.pub.PublishResult(ctx, e.topology, e.slot, msg)
}

func (e *amqpEndpoint) Close() error {
	e.once.Do(func() { close(e.done) })
	return nil
}

func (e *amqpEndpoint) deliver(ctx context.Context, d *mq.Delivery) error {
	msg, err := fromEnvelope(&d.Message)
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrLinkClosed
	case e.inbox <- msg:
		return nil
	}
}

func toEnvelope(msg Message, sender int) *mq.Message {
	if msg.Kind == KindStop {
		return mq.NewMessage(mq.MessageTypeTaskStop, sender, nil)
	}
	return mq.NewMessage(mq.MessageTypeTaskDispatch, sender, msg)
}

func fromEnvelope(env *mq.Message) (Message, error) {
	switch env.Type {
	case mq.MessageTypeTaskStop:
		return StopMessage(), nil
	case mq.MessageTypeTaskDispatch:
		msg, err := mq.ParsePayload[Message](env)
		if err != nil {
			return Message{}, err
		}
		msg.Kind = KindTask
		return msg, nil
	default:
		return Message{}, fmt.Errorf("unexpected message type %q", env.Type)
	}
}
