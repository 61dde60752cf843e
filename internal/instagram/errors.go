package instagram

import "errors"

// Ошибки клиента Instagram.
var (
	// ErrAuthUnavailable — нет сохранённой сессии или вход не выполнен.
	ErrAuthUnavailable = errors.New("instagram auth unavailable")

	// ErrUploadFailed — загрузка медиа не удалась.
	ErrUploadFailed = errors.New("instagram upload failed")

	// ErrNoMedia — публиковать нечего: нет ни фото, ни видео.
	ErrNoMedia = errors.New("no media to publish")
)
