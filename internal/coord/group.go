package coord

import (
	"context"
	"errors"
	"fmt"
)

// AbortFunc рассылает сигнал аварийной остановки всей группе.
type AbortFunc func(ctx context.Context, reason string) error

// Group — контекст координации одного процесса.
//
// Group создаётся явно при старте процесса и передаётся в
// конструкторы orchestrator'а и worker'а. Глобального состояния нет.
type Group struct {
	// Rank — номер процесса (0 — orchestrator).
	Rank int

	// Size — число процессов в группе.
	Size int

	links    []Link
	endpoint Endpoint
	abort    AbortFunc
	closers  []func() error
}

// Role возвращает роль процесса. Для Group, прошедшей конструктор,
// ошибка невозможна.
func (g *Group) Role() Role {
	role, _ := RoleFor(g.Rank, g.Size)
	return role
}

// Links возвращает каналы к worker'ам в порядке слотов 1..Size-1.
func (g *Group) Links() []Link {
	return g.links
}

// Endpoint возвращает канал worker'а к orchestrator'у.
func (g *Group) Endpoint() (Endpoint, error) {
	if g.endpoint == nil {
		return nil, fmt.Errorf("%w: %s has no endpoint", ErrWrongRole, g.Role())
	}
	return g.endpoint, nil
}

// Abort останавливает всю группу. Используется при фатальной ошибке
// инициализации в любом процессе.
func (g *Group) Abort(ctx context.Context, reason string) error {
	if g.abort == nil {
		return nil
	}
	return g.abort(ctx, reason)
}

// Close закрывает все каналы процесса.
func (g *Group) Close() error {
	var errs []error

	for _, l := range g.links {
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if g.endpoint != nil {
		if err := g.endpoint.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, fn := range g.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// NewGroup собирает Group из готовых каналов.
// Для orchestrator'а нужны links, для worker'а — endpoint.
func NewGroup(rank, size int, links []Link, endpoint Endpoint, abort AbortFunc) (*Group, error) {
	role, err := RoleFor(rank, size)
	if err != nil {
		return nil, err
	}

	switch role {
	case RoleOrchestrator:
		if len(links) != size-1 {
			return nil, fmt.Errorf("%w: orchestrator needs %d links, got %d", ErrInvalidTopology, size-1, len(links))
		}
		for i, l := range links {
			if l.Slot() != i+1 {
				return nil, fmt.Errorf("%w: link %d has slot %d", ErrInvalidTopology, i, l.Slot())
			}
		}
	case RoleWorker:
		if endpoint == nil {
			return nil, fmt.Errorf("%w: worker %d needs an endpoint", ErrInvalidTopology, rank)
		}
		if endpoint.Slot() != rank {
			return nil, fmt.Errorf("%w: endpoint slot %d for rank %d", ErrInvalidTopology, endpoint.Slot(), rank)
		}
	}

	return &Group{
		Rank:     rank,
		Size:     size,
		links:    links,
		endpoint: endpoint,
		abort:    abort,
	}, nil
}
