package api

import (
	"time"

	"github.com/avdeev/postpilot/internal/domain"
)

// Auth DTOs

// LoginRequest — запрос на вход в Instagram.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthStatusResponse — статус сессии.
type AuthStatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
}

// Generate DTOs

// GeneratePhotoRequest — запрос на генерацию изображения.
type GeneratePhotoRequest struct {
	Prompt string `json:"prompt"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Model  string `json:"model,omitempty"`
	Seed   int64  `json:"seed,omitempty"`
}

// GeneratePromptRequest — запрос на генерацию визуального промпта.
type GeneratePromptRequest struct {
	Topic string `json:"topic"`
}

// GeneratePromptResponse — сгенерированный промпт.
type GeneratePromptResponse struct {
	Prompt string `json:"prompt"`
}

// GenerateTextRequest — запрос на генерацию текста поста.
type GenerateTextRequest struct {
	Topic        string `json:"topic"`
	Size         string `json:"size,omitempty"` // short | medium | long
	AddHashtags  bool   `json:"add_hashtags,omitempty"`
	HashtagCount int    `json:"hashtag_count,omitempty"`
}

// GenerateTextResponse — сгенерированный текст.
type GenerateTextResponse struct {
	Caption string `json:"caption"`
}

// Post DTOs

// PublishNowRequest — запрос на немедленную публикацию.
type PublishNowRequest struct {
	Caption string   `json:"caption"`
	Photos  []string `json:"photos"`
	Videos  []string `json:"videos"`
}

// PublishNowResponse — результат немедленной публикации.
type PublishNowResponse struct {
	MediaID     string    `json:"media_id"`
	PublishedAt time.Time `json:"published_at"`
}

// SchedulePostRequest — запрос на отложенную публикацию.
type SchedulePostRequest struct {
	Caption     string    `json:"caption"`
	Photos      []string  `json:"photos"`
	Videos      []string  `json:"videos"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Recurrence  string    `json:"recurrence,omitempty"`
}

// PostResponse — отложенный пост.
type PostResponse struct {
	ID          string     `json:"id"`
	Caption     string     `json:"caption"`
	Photos      []string   `json:"photos"`
	Videos      []string   `json:"videos"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	CreatedAt   time.Time  `json:"created_at"`
	Username    string     `json:"username,omitempty"`
	Status      string     `json:"status"`
	Recurrence  string     `json:"recurrence,omitempty"`
	Attempts    int        `json:"attempts,omitempty"`
	NextAttempt *time.Time `json:"next_attempt_at,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

// PostFromDomain конвертирует domain.ScheduledPost в PostResponse.
func PostFromDomain(p *domain.ScheduledPost) PostResponse {
	return PostResponse{
		ID:          p.ID,
		Caption:     p.Caption,
		Photos:      p.Photos,
		Videos:      p.Videos,
		ScheduledAt: p.ScheduledAt,
		CreatedAt:   p.CreatedAt,
		Username:    p.Username,
		Status:      string(p.Status),
		Recurrence:  p.Recurrence,
		Attempts:    p.Attempts,
		NextAttempt: p.NextAttemptAt,
		LastError:   p.LastError,
	}
}

// HistoryItem — элемент объединённой истории: отложенный пост
// или итог публикации.
type HistoryItem struct {
	ID          string     `json:"id"`
	MediaID     string     `json:"media_id,omitempty"`
	Caption     string     `json:"caption"`
	Photos      []string   `json:"photos"`
	Videos      []string   `json:"videos"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	Username    string     `json:"username,omitempty"`
	Status      string     `json:"status"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// historyItemFromPost — элемент истории из поста, ожидающего публикации.
func historyItemFromPost(p *domain.ScheduledPost) HistoryItem {
	return HistoryItem{
		ID:          p.ID,
		Caption:     p.Caption,
		Photos:      p.Photos,
		Videos:      p.Videos,
		ScheduledAt: p.ScheduledAt,
		Username:    p.Username,
		Status:      string(p.Status),
		Error:       p.LastError,
	}
}

// historyItemFromRecord — элемент истории из записи об итоге публикации.
func historyItemFromRecord(rec *domain.HistoryRecord) HistoryItem {
	publishedAt := rec.PublishedAt
	return HistoryItem{
		ID:          rec.JobID,
		MediaID:     rec.MediaID,
		Caption:     rec.Caption,
		Photos:      rec.Photos,
		Videos:      rec.Videos,
		ScheduledAt: rec.ScheduledAt,
		Username:    rec.Username,
		Status:      string(rec.Status),
		PublishedAt: &publishedAt,
		Error:       rec.Error,
	}
}

// instant возвращает момент, по которому элемент сортируется в истории.
func (it HistoryItem) instant() time.Time {
	if it.PublishedAt != nil {
		return *it.PublishedAt
	}
	return it.ScheduledAt
}
