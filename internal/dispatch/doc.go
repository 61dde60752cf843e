// Package dispatch реализует цикл публикации отложенных постов.
//
// Dispatcher периодически (по тику из main) проходит по очереди:
// забирает пост (claim), проверяет время и публикует либо возвращает
// в очередь. Guard — TryLock: перекрывающиеся тики пропускаются целиком.
//
// Структура:
//   - dispatcher.go — основной цикл (Tick) и работа с сессией
//   - policy.go     — retry-политика (лимит попыток, backoff)
//   - recurrence.go — cron-расписание повторяющихся постов
//
// Протокол claim/requeue:
//
// Пост убирается из очереди на время обработки (claim до publish).
// Именно это не даёт двум тикам опубликовать один пост дважды, даже
// если бы guard не сработал; guard лишь не даёт двум циклам гоняться
// за одним снимком очереди. Обратная сторона: падение процесса между
// claim и завершением publish теряет пост — at-most-once через границу
// краша, осознанный компромисс.
package dispatch
