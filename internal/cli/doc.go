// Package cli реализует команды topology-setup.
//
// # Обзор
//
// CLI разворачивает и проверяет топологию приоритетных очередей
// на RabbitMQ. Все команды, кроме show, сначала ждут готовности брокера.
//
// # Ключевые компоненты
//
// ## Deps
//
// Зависимости команд: конфигурация, логгер, Output, подключение к брокеру,
// метрики и (опционально) журнал прогонов. Создаются лениво через depsFn
// после парсинга PersistentFlags, в тестах подменяются целиком.
//
// ## Commands
//
//   - setup   — ожидание, развёртывание, проверка, отчёт (команда по умолчанию)
//   - verify  — ожидание и пассивная проверка, без объявлений
//   - show    — печать настроенной топологии без обращения к брокеру
//   - watch   — периодическая проверка по cron, /metrics и /healthz
//   - history — последние прогоны из журнала (нужен DB_URL)
//
// Отчёт выводится в stdout (текст или JSON с флагом --json),
// логи и сообщения — в stderr.
package cli
