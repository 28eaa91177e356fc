// Package topology описывает декларативную модель маршрутизации
// приоритетной очереди задач.
//
// Модель:
//   - ExchangeSpec   — обменник (topic или direct)
//   - QueueSpec      — приоритетная очередь (max-priority, TTL, max-length)
//   - DeadLetterSpec — единственная DLQ и её обменник
//   - Binding        — производная привязка очереди к обменнику
//
// Definition создаётся один раз при старте через New и дальше не меняется.
// Пакет не выполняет I/O: аргументы очередей и классификация маршрутов
// вычисляются из данных.
//
// Классификация: очередь, в имени которой есть подстрока "anomaly",
// привязывается к anomaly-exchange, все остальные — к priority-exchange.
package topology
