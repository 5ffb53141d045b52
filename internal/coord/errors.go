package coord

import "errors"

var (
	// ErrLinkClosed — link или endpoint закрыт.
	ErrLinkClosed = errors.New("coordination link closed")

	// ErrGroupAborted — другой процесс группы объявил аварийную остановку.
	ErrGroupAborted = errors.New("group aborted")

	// ErrInvalidTopology — некорректные rank/size.
	ErrInvalidTopology = errors.New("invalid group topology")

	// ErrWrongRole — операция недоступна для роли процесса.
	ErrWrongRole = errors.New("operation not available for role")

	// ErrMalformedReply — ответ worker'а не удалось разобрать.
	ErrMalformedReply = errors.New("malformed reply")
)
