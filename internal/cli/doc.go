// Package cli реализует инструмент командной строки PostPilot.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с PostPilot API.
// Работает через HTTP, не импортирует внутренние пакеты сервиса.
// CLI используется для входа в аккаунт, генерации контента
// и управления отложенными публикациями.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для PostPilot API. Инкапсулирует все HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	posts, err := client.ListScheduled()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: postpilot post list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - auth: login, status, logout
//   - generate: photo, prompt, text
//   - photo: list
//   - post: publish, schedule, list, cancel, history
//
// Каждая группа создаётся через фабричную функцию (NewPostCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
