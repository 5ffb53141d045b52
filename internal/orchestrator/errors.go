package orchestrator

import (
	"errors"
	"fmt"
	"time"
)

// Ошибки оркестратора.
var (
	// ErrNoSlots — нет ни одного worker-слота и не задан Inline executor.
	ErrNoSlots = errors.New("no worker slots")

	// ErrNoQueue — не задан клиент очереди.
	ErrNoQueue = errors.New("queue client is required")

	// ErrCollectTimeout — слот не ответил за CollectTimeout.
	ErrCollectTimeout = errors.New("collect timeout")

	// ErrSendTimeout — слот не принял задачу за CollectTimeout.
	ErrSendTimeout = errors.New("send timeout")
)

func errCollectTimeout(d time.Duration) error {
	return fmt.Errorf("%w after %s", ErrCollectTimeout, d)
}

func errSendTimeout(d time.Duration) error {
	return fmt.Errorf("%w after %s", ErrSendTimeout, d)
}
