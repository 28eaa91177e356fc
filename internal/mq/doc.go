// Package mq — граница с брокером RabbitMQ.
//
// Структура:
//   - broker.go     — интерфейс Broker (declare/bind/passive-проверки)
//   - connection.go — реализация Broker поверх AMQP 0-9-1
//   - readiness.go  — ожидание готовности брокера с фиксированным интервалом
//   - mock.go       — in-memory брокер для тестов
//
// Все вызовы синхронные и идут через один канал. Исключение уровня канала
// (406, 404) закрывает канал на стороне брокера; Connection открывает новый
// канал перед следующим вызовом, поэтому ошибка одного ресурса не ломает
// остальные. Разрыв соединения возвращается как ErrConnectionLost.
package mq
