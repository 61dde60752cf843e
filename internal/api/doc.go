// Package api реализует HTTP API сервиса.
//
// Структура:
//   - handler.go          — Handler и его зависимости
//   - routes.go           — регистрация маршрутов
//   - dto.go              — структуры запросов/ответов
//   - auth_handler.go     — вход/выход/статус сессии Instagram
//   - generate_handler.go — генерация фото, промптов и текста
//   - photo_handler.go    — библиотека фотографий
//   - post_handler.go     — публикация, расписание, история
//   - middleware.go       — логирование и recovery
//   - response.go         — JSON-хелперы
//
// Все ответы — JSON вида {"data": ...} или {"error": {"code", "message"}}.
package api
