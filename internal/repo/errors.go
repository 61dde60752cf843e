package repo

import "errors"

// Общие ошибки репозиториев.
var (
	// ErrNotFound — запись не найдена в БД.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists — запись уже существует (конфликт уникальности).
	ErrAlreadyExists = errors.New("already exists")

	// ErrAlreadyClaimed — пост уже забран из очереди другим claim.
	// Не ошибка, а сигнал no-op: под guard'ом такого быть не должно,
	// но гонка переносится без падения.
	ErrAlreadyClaimed = errors.New("already claimed")

	// ErrMalformedRecord — запись в очереди не удалось декодировать.
	// Единственный случай, когда потеря данных допустима: повреждённую
	// запись нельзя безопасно переинтерпретировать.
	ErrMalformedRecord = errors.New("malformed record")
)
