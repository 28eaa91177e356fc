// Package scheduler периодически проверяет топологию на брокере.
//
// Watcher по cron-расписанию открывает соединение, пассивно проверяет
// все очереди и обменники и обновляет Prometheus-метрики. Ничего
// не создаёт: отсутствие ресурса только логируется на уровне WARN.
//
// Структура:
//   - scheduler.go — Watcher (Run, Tick)
//   - cron.go      — парсинг расписаний и вычисление следующего времени
//
// Использование:
//
//	w, err := scheduler.New(scheduler.Config{
//	    Definition: def,
//	    Connect:    connect,
//	    Schedule:   "@every 1m",
//	    Logger:     logger,
//	    Metrics:    metrics, // опционально
//	})
//
//	// Блокирует до отмены контекста
//	err = w.Run(ctx)
package scheduler
