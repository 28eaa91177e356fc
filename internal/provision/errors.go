package provision

import "errors"

// Ошибки развёртывания.
var (
	// ErrExchangeUnavailable — целевой обменник привязки не был объявлен.
	ErrExchangeUnavailable = errors.New("target exchange was not declared")

	// ErrQueueUnavailable — очередь не была объявлена, привязка пропущена.
	ErrQueueUnavailable = errors.New("queue was not declared")
)
