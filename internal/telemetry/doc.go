// Package telemetry обеспечивает наблюдаемость развёртывания топологии.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики развёртывания и проверки
//
// Метрики регистрируются в переданном Registerer; команда watch
// отдаёт их на /metrics.
package telemetry
