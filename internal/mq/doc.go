// Package mq публикует события публикаций в RabbitMQ.
//
// События — опциональная наблюдаемость для внешних потребителей
// (уведомления, аналитика). Сервис работает и без RabbitMQ:
// при пустом AMQP_URL publisher не создаётся, а ошибка публикации
// события никогда не срывает сам dispatch-цикл.
//
// Структура:
//   - connection.go — соединение с reconnect
//   - topology.go   — exchange и очереди событий
//   - publisher.go  — публикация post.published / post.failed
package mq
