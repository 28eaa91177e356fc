package topology

import "errors"

// Ошибки валидации топологии.
var (
	// ErrEmptyName — у ресурса пустое имя.
	ErrEmptyName = errors.New("resource has empty name")

	// ErrDuplicateExchange — несколько обменников с одинаковым именем.
	ErrDuplicateExchange = errors.New("duplicate exchange name")

	// ErrDuplicateQueue — несколько очередей с одинаковым именем.
	ErrDuplicateQueue = errors.New("duplicate queue name")

	// ErrQueueNameCollision — очередь совпадает по имени с DLQ.
	ErrQueueNameCollision = errors.New("queue name collides with dead-letter queue")

	// ErrInvalidPriority — max-priority вне диапазона [1, 255].
	ErrInvalidPriority = errors.New("max priority must be between 1 and 255")

	// ErrInvalidTTL — TTL должен быть положительным.
	ErrInvalidTTL = errors.New("message ttl must be positive")

	// ErrInvalidMaxLength — max-length должен быть положительным.
	ErrInvalidMaxLength = errors.New("max length must be positive")

	// ErrInvalidExchangeKind — неподдерживаемый тип обменника.
	ErrInvalidExchangeKind = errors.New("exchange kind must be topic or direct")

	// ErrUnknownExchange — ссылка на необъявленный обменник.
	ErrUnknownExchange = errors.New("unknown exchange")

	// ErrEmptyRoutingKey — пустой ключ маршрутизации.
	ErrEmptyRoutingKey = errors.New("routing key is empty")

	// ErrInvalidOverflow — неподдерживаемая политика переполнения.
	ErrInvalidOverflow = errors.New("overflow policy must be reject-publish")
)

// ValidationError — ошибка валидации с контекстом ресурса.
type ValidationError struct {
	Resource string // имя ресурса, где произошла ошибка
	Field    string // поле, вызвавшее ошибку
	Message  string // описание ошибки
	Err      error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.Resource != "" {
		return e.Resource + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

func newValidationError(resource, field string, err error) *ValidationError {
	return &ValidationError{
		Resource: resource,
		Field:    field,
		Message:  field + ": " + err.Error(),
		Err:      err,
	}
}
