package worker

import "errors"

// ErrLinkFailed — связь слота с orchestrator'ом потеряна.
var ErrLinkFailed = errors.New("worker link failed")
