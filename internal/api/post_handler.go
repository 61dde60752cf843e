package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/avdeev/postpilot/internal/dispatch"
	"github.com/avdeev/postpilot/internal/domain"
	"github.com/avdeev/postpilot/internal/instagram"
)

// historyLimit — сколько записей истории отдаёт объединённый список.
const historyLimit = 200

// PublishNow немедленно публикует пост и записывает итог в историю.
// POST /api/v1/posts
func (h *Handler) PublishNow(w http.ResponseWriter, r *http.Request) {
	var req PublishNowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if len(req.Photos) == 0 && len(req.Videos) == 0 {
		BadRequest(w, "at least one photo or video is required")
		return
	}

	session, err := h.publisher.RestoreSession(r.Context())
	if err != nil {
		Unauthorized(w, "not logged in")
		return
	}

	now := time.Now().UTC()
	post := &domain.ScheduledPost{
		ID:          domain.NewPostID(now),
		Caption:     req.Caption,
		Photos:      req.Photos,
		Videos:      req.Videos,
		ScheduledAt: now,
		CreatedAt:   now,
		Username:    h.sessionUsername(),
		Status:      domain.PostStatusScheduled,
	}

	mediaID, err := h.publisher.PublishMedia(r.Context(), session, post.Caption, post.Photos, post.Videos)
	if err != nil {
		switch {
		case errors.Is(err, instagram.ErrAuthUnavailable):
			Unauthorized(w, "instagram session expired")
		case errors.Is(err, instagram.ErrNoMedia):
			BadRequest(w, "at least one photo or video is required")
		default:
			h.logger.Error("immediate publish failed", "post_id", post.ID, "error", err)
			Unavailable(w, "publish failed")
		}
		return
	}

	post.Status = domain.PostStatusPublished
	rec := domain.NewHistoryRecord(post, mediaID, now)
	if err := h.history.WriteRecord(r.Context(), rec); err != nil {
		// пост уже опубликован — ошибка истории не должна выглядеть как отказ
		h.logger.Error("history write failed for published post",
			"post_id", post.ID, "media_id", mediaID, "error", err)
	}

	Created(w, PublishNowResponse{MediaID: mediaID, PublishedAt: now})
}

// SchedulePost ставит пост в очередь отложенной публикации.
// POST /api/v1/posts/schedule
func (h *Handler) SchedulePost(w http.ResponseWriter, r *http.Request) {
	var req SchedulePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if len(req.Photos) == 0 && len(req.Videos) == 0 {
		BadRequest(w, "at least one photo or video is required")
		return
	}

	now := time.Now().UTC()
	if !req.ScheduledAt.After(now) {
		BadRequest(w, "scheduled_at must be in the future")
		return
	}

	if req.Recurrence != "" {
		if err := dispatch.ValidateCronExpr(req.Recurrence); err != nil {
			BadRequest(w, err.Error())
			return
		}
	}

	post := &domain.ScheduledPost{
		ID:          domain.NewPostID(now),
		Caption:     req.Caption,
		Photos:      req.Photos,
		Videos:      req.Videos,
		ScheduledAt: req.ScheduledAt.UTC(),
		CreatedAt:   now,
		Username:    h.sessionUsername(),
		Status:      domain.PostStatusScheduled,
		Recurrence:  req.Recurrence,
	}

	if err := h.queue.Enqueue(r.Context(), post); err != nil {
		if HandleRepoError(w, h.logger, err, "") {
			return
		}
	}

	h.logger.Info("post scheduled",
		"post_id", post.ID,
		"scheduled_at", post.ScheduledAt,
		"recurrence", post.Recurrence,
	)

	Created(w, PostFromDomain(post))
}

// ListScheduled возвращает посты, ожидающие публикации.
// GET /api/v1/posts/scheduled
func (h *Handler) ListScheduled(w http.ResponseWriter, r *http.Request) {
	posts, err := h.queue.ListPosts(r.Context())
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	result := make([]PostResponse, len(posts))
	for i := range posts {
		result[i] = PostFromDomain(&posts[i])
	}

	List(w, result, len(result))
}

// CancelScheduled отменяет отложенный пост.
// Отмена — это claim без публикации: пост атомарно убирается из
// очереди, и dispatcher его уже не увидит.
// DELETE /api/v1/posts/scheduled/{id}
func (h *Handler) CancelScheduled(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if _, err := h.queue.Claim(r.Context(), id); err != nil {
		if HandleRepoError(w, h.logger, err, "scheduled post not found") {
			return
		}
	}

	h.logger.Info("scheduled post cancelled", "post_id", id)

	NoContent(w)
}

// PostsHistory возвращает объединённую историю: ожидающие посты
// и итоги публикаций, новые первыми.
// GET /api/v1/posts/history
func (h *Handler) PostsHistory(w http.ResponseWriter, r *http.Request) {
	posts, err := h.queue.ListPosts(r.Context())
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	records, err := h.history.List(r.Context(), historyLimit)
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	items := make([]HistoryItem, 0, len(posts)+len(records))
	for i := range posts {
		items = append(items, historyItemFromPost(&posts[i]))
	}
	for i := range records {
		items = append(items, historyItemFromRecord(&records[i]))
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].instant().After(items[j].instant())
	})

	List(w, items, len(items))
}

// sessionUsername возвращает имя аккаунта из сохранённой сессии.
func (h *Handler) sessionUsername() string {
	session, err := h.sessions.Load()
	if err != nil {
		return ""
	}
	return session.Username
}
