package mq

import "errors"

var (
	// ErrNoChannel — канал ещё не открыт или закрыт после разрыва.
	ErrNoChannel = errors.New("no amqp channel available")

	// ErrInvalidSlot — номер слота вне диапазона 1..slots.
	ErrInvalidSlot = errors.New("invalid slot")
)
