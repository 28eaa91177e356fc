// Package provision применяет топологию к брокеру и проверяет результат.
//
// # Порядок шагов
//
// Provisioner выполняет шаги строго по порядку:
//
//  1. exchanges — каждый обменник отдельно
//  2. DLQ — объявление очереди и привязка к dlq-exchange
//  3. приоритетные очереди — с аргументами из Definition.Arguments
//  4. bindings — для каждой успешно объявленной очереди
//
// Ошибка одного ресурса записывается в Report и не останавливает
// остальные шаги. Исключение — разрыв соединения: прогон завершается,
// уже обработанные ресурсы остаются в отчёте.
//
// # Проверка
//
// Verifier пассивно проверяет каждую очередь (приоритетные и DLQ) и каждый
// обменник. Ничего не создаёт и не исправляет.
//
// # Pipeline
//
// Pipeline связывает этапы: ожидание готовности → подключение →
// развёртывание → проверка. Без готовности брокера подключение
// и объявления не выполняются.
package provision
