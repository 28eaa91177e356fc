// Package report форматирует итог прогона: топологию, результаты
// развёртывания и проверки.
//
// Чистые функции над данными, без обращения к брокеру. Поддерживаются
// два режима: текст (блок на каждую очередь, таблица обменников через
// text/tabwriter) и JSON (--json).
package report
