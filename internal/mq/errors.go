package mq

import "errors"

// Ошибки взаимодействия с брокером.
var (
	// ErrConnectivityExhausted — брокер недоступен после всех попыток.
	ErrConnectivityExhausted = errors.New("broker connectivity exhausted")

	// ErrConflict — ресурс уже существует с другими параметрами
	// (PRECONDITION_FAILED).
	ErrConflict = errors.New("declaration conflict")

	// ErrNotFound — ресурс не найден (NOT_FOUND).
	ErrNotFound = errors.New("resource not found")

	// ErrConnectionLost — соединение с брокером разорвано.
	ErrConnectionLost = errors.New("broker connection lost")
)
