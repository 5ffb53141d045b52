package coord

import (
	"context"
	"sync"
)

// pipe — пара буферизованных каналов одного слота внутри процесса.
type pipe struct {
	slot    int
	tasks   chan Message
	replies chan Reply

	done chan struct{}
	once sync.Once
}

// Один task раунда плюс STOP помещаются в буфер без ожидания worker'а.
const pipeBuffer = 2

func newPipe(slot int) *pipe {
	return &pipe{
		slot:    slot,
		tasks:   make(chan Message, pipeBuffer),
		replies: make(chan Reply, pipeBuffer),
		done:    make(chan struct{}),
	}
}

func (p *pipe) closed() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *pipe) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}

func (p *pipe) Slot() int { return p.slot }

type localLink struct{ *pipe }

func (l localLink) Send(ctx context.Context, msg Message) error {
	if l.closed() {
		return ErrLinkClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLinkClosed
	case l.tasks <- msg:
		return nil
	}
}

func (l localLink) TrySend(msg Message) bool {
	if l.closed() {
		return false
	}

	select {
	case l.tasks <- msg:
		return true
	default:
		return false
	}
}

func (l localLink) Receive(ctx context.Context) (Reply, error) {
	select {
	case r := <-l.replies:
		return r, nil
	default:
	}

	select {
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	case <-l.done:
		return Reply{}, ErrLinkClosed
	case r := <-l.replies:
		return r, nil
	}
}

type localEndpoint struct{ *pipe }

func (e localEndpoint) Receive(ctx context.Context) (Message, error) {
	// Сообщения, отправленные до Close, доставляются.
	select {
	case m := <-e.tasks:
		return m, nil
	default:
	}

	select {
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case <-e.done:
		return Message{}, ErrLinkClosed
	case m := <-e.tasks:
		return m, nil
	}
}

func (e localEndpoint) Send(ctx context.Context, reply Reply) error {
	if e.closed() {
		return ErrLinkClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrLinkClosed
	case e.replies <- reply:
		return nil
	}
}

// NewLocalPair создаёт связанные Link и Endpoint одного слота.
func NewLocalPair(slot int) (Link, Endpoint) {
	p := newPipe(slot)
	return localLink{p}, localEndpoint{p}
}

// NewLocal создаёт группу из size процессов внутри одного процесса ОС.
// Возвращает Group для каждого rank; groups[0] — orchestrator.
// abort может быть nil.
func NewLocal(size int, abort AbortFunc) ([]*Group, error) {
	if _, err := RoleFor(0, size); err != nil {
		return nil, err
	}

	links := make([]Link, 0, size-1)
	endpoints := make([]Endpoint, 0, size-1)
	for slot := 1; slot < size; slot++ {
		l, e := NewLocalPair(slot)
		links = append(links, l)
		endpoints = append(endpoints, e)
	}

	groups := make([]*Group, 0, size)

	head, err := NewGroup(0, size, links, nil, abort)
	if err != nil {
		return nil, err
	}
	groups = append(groups, head)

	for rank := 1; rank < size; rank++ {
		g, err := NewGroup(rank, size, nil, endpoints[rank-1], abort)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}

	return groups, nil
}
