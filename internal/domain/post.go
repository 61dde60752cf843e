package domain

import (
	"time"
)

// PostStatus — статус поста.
type PostStatus string

// Статусы поста.
const (
	// PostStatusScheduled — пост ожидает публикации.
	PostStatusScheduled PostStatus = "scheduled"

	// PostStatusPublished — пост успешно опубликован.
	PostStatusPublished PostStatus = "published"

	// PostStatusFailed — публикация окончательно не удалась (retry исчерпан).
	PostStatusFailed PostStatus = "failed"
)

// PostIDLayout — формат ID поста: момент создания с наносекундной точностью.
// Наследует схему имён файлов старого хранилища (YYYYMMDD_HHMMSS),
// наносекунды добавлены для глобальной уникальности.
const PostIDLayout = "20060102_150405.000000000"

// NewPostID формирует ID поста из момента создания.
func NewPostID(createdAt time.Time) string {
	return createdAt.UTC().Format(PostIDLayout)
}

// ScheduledPost — отложенный пост, ожидающий публикации.
//
// Пост создаётся через API, сохраняется в очереди со статусом scheduled
// и забирается dispatcher'ом (claim), когда подходит scheduled_at.
// После успешной публикации пост превращается в HistoryRecord;
// при ошибке — возвращается в очередь без изменения статуса.
type ScheduledPost struct {
	// ID — уникальный идентификатор, производный от момента создания.
	ID string `json:"id"`

	// Caption — текст поста.
	Caption string `json:"caption"`

	// Photos — имена файлов фотографий в медиа-хранилище.
	// Порядок сохраняется (для альбомов).
	Photos []string `json:"photos"`

	// Videos — имена файлов видео в медиа-хранилище.
	Videos []string `json:"videos"`

	// ScheduledAt — момент, когда пост должен быть опубликован.
	// При создании строго позже CreatedAt.
	ScheduledAt time.Time `json:"scheduled_at"`

	// CreatedAt — момент создания поста.
	CreatedAt time.Time `json:"created_at"`

	// Username — аккаунт, от имени которого публикуется пост.
	Username string `json:"username"`

	// Status — статус поста. В очереди всегда scheduled;
	// published в очереди означает устаревшую запись и отбрасывается.
	Status PostStatus `json:"status"`

	// Recurrence — опциональное cron-выражение.
	// После успешной публикации в очередь ставится пост-преемник
	// на следующее время по расписанию.
	Recurrence string `json:"recurrence,omitempty"`

	// Attempts — количество неудачных попыток публикации.
	Attempts int `json:"attempts,omitempty"`

	// NextAttemptAt — не раньше этого момента можно повторять публикацию.
	// Заполняется backoff-политикой при requeue после ошибки.
	NextAttemptAt *time.Time `json:"next_attempt_at,omitempty"`

	// LastError — текст последней ошибки публикации.
	LastError string `json:"last_error,omitempty"`
}

// HasMedia возвращает true, если у поста есть хотя бы один медиа-файл.
func (p *ScheduledPost) HasMedia() bool {
	return len(p.Photos) > 0 || len(p.Videos) > 0
}

// IsRecurring возвращает true, если пост повторяющийся.
func (p *ScheduledPost) IsRecurring() bool {
	return p.Recurrence != ""
}

// Due возвращает true, если пост пора публиковать: scheduled_at наступил
// и backoff-окно после предыдущей неудачи (если было) закончилось.
func (p *ScheduledPost) Due(now time.Time) bool {
	if p.ScheduledAt.After(now) {
		return false
	}
	if p.NextAttemptAt != nil && p.NextAttemptAt.After(now) {
		return false
	}
	return true
}

// Successor создаёт пост-преемник для повторяющегося поста.
// Преемник наследует контент и расписание, счётчик попыток обнуляется.
func (p *ScheduledPost) Successor(scheduledAt, now time.Time) *ScheduledPost {
	return &ScheduledPost{
		ID:          NewPostID(now),
		Caption:     p.Caption,
		Photos:      p.Photos,
		Videos:      p.Videos,
		ScheduledAt: scheduledAt,
		CreatedAt:   now,
		Username:    p.Username,
		Status:      PostStatusScheduled,
		Recurrence:  p.Recurrence,
	}
}
