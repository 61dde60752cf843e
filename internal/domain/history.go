package domain

import "time"

// HistoryRecord — запись об итоге публикации поста.
//
// Записи append-only: после записи в историю они никогда не изменяются
// и не удаляются. Для каждого успешно опубликованного поста существует
// ровно одна запись со статусом published. Посты, исчерпавшие лимит
// попыток, оставляют запись со статусом failed (dead-letter виден
// только через историю — push-уведомлений об итоге публикации нет).
type HistoryRecord struct {
	// JobID — ID исходного поста из очереди.
	JobID string `json:"job_id"`

	// MediaID — идентификатор медиа, присвоенный платформой.
	// Пустой для записей со статусом failed.
	MediaID string `json:"id"`

	Caption string   `json:"caption"`
	Photos  []string `json:"photos"`
	Videos  []string `json:"videos"`

	// ScheduledAt — когда пост должен был быть опубликован.
	ScheduledAt time.Time `json:"scheduled_at"`

	// CreatedAt — когда пост был создан.
	CreatedAt time.Time `json:"created_at"`

	Username string `json:"username"`

	// Status — published или failed.
	Status PostStatus `json:"status"`

	// PublishedAt — момент публикации (для failed — момент отказа).
	PublishedAt time.Time `json:"published_at"`

	// Error — текст последней ошибки (только для failed).
	Error string `json:"error,omitempty"`
}

// NewHistoryRecord создаёт запись об успешной публикации.
func NewHistoryRecord(post *ScheduledPost, mediaID string, publishedAt time.Time) *HistoryRecord {
	return &HistoryRecord{
		JobID:       post.ID,
		MediaID:     mediaID,
		Caption:     post.Caption,
		Photos:      post.Photos,
		Videos:      post.Videos,
		ScheduledAt: post.ScheduledAt,
		CreatedAt:   post.CreatedAt,
		Username:    post.Username,
		Status:      PostStatusPublished,
		PublishedAt: publishedAt,
	}
}

// NewFailureRecord создаёт запись об окончательно неудавшейся публикации.
func NewFailureRecord(post *ScheduledPost, cause error, failedAt time.Time) *HistoryRecord {
	rec := &HistoryRecord{
		JobID:       post.ID,
		Caption:     post.Caption,
		Photos:      post.Photos,
		Videos:      post.Videos,
		ScheduledAt: post.ScheduledAt,
		CreatedAt:   post.CreatedAt,
		Username:    post.Username,
		Status:      PostStatusFailed,
		PublishedAt: failedAt,
	}
	if cause != nil {
		rec.Error = cause.Error()
	}
	return rec
}
