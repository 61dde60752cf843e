package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/avdeev/postpilot/internal/domain"
	"github.com/avdeev/postpilot/internal/mq"
	"github.com/avdeev/postpilot/internal/repo"
	"github.com/avdeev/postpilot/internal/telemetry"
)

// ErrSessionUnavailable — в текущем цикле сессию получить не удалось.
// Восстановление сессии выполняется не чаще одного раза за цикл,
// поэтому остальные посты цикла получают эту ошибку и уходят в retry.
var ErrSessionUnavailable = errors.New("publisher session unavailable")

// Queue — очередь отложенных постов.
type Queue interface {
	// List возвращает снимок ID постов в очереди.
	List(ctx context.Context) ([]string, error)

	// Claim атомарно забирает пост из очереди.
	// Возвращает repo.ErrAlreadyClaimed, если пост уже забрали,
	// и repo.ErrMalformedRecord, если запись не распарсилась.
	Claim(ctx context.Context, id string) (*domain.ScheduledPost, error)

	// Requeue возвращает пост в очередь под исходным ID.
	Requeue(ctx context.Context, post *domain.ScheduledPost) error

	// Enqueue ставит новый пост в очередь (для постов-преемников).
	Enqueue(ctx context.Context, post *domain.ScheduledPost) error
}

// History — append-only история публикаций.
type History interface {
	WriteRecord(ctx context.Context, rec *domain.HistoryRecord) error
}

// Publisher публикует медиа во внешней платформе.
// Сессия — непрозрачное значение: dispatcher только кэширует её
// и передаёт обратно в PublishMedia.
type Publisher interface {
	RestoreSession(ctx context.Context) (any, error)
	PublishMedia(ctx context.Context, session any, caption string, photos, videos []string) (string, error)
}

// Config — зависимости Dispatcher'а.
type Config struct {
	Queue     Queue
	History   History
	Publisher Publisher

	// Events — опциональный publisher событий в RabbitMQ (может быть nil).
	Events *mq.Publisher

	Policy RetryPolicy
	Logger *slog.Logger
}

// Dispatcher выполняет циклы публикации отложенных постов.
type Dispatcher struct {
	queue     Queue
	history   History
	publisher Publisher
	events    *mq.Publisher
	policy    RetryPolicy
	logger    *slog.Logger

	// runMu — guard цикла: перекрывающиеся тики пропускаются.
	runMu sync.Mutex

	// session — закэшированная сессия публикации.
	// Живёт между циклами, сбрасывается при ошибке публикации
	// и через ResetSession (login/logout в API).
	sessionMu sync.Mutex
	session   any
}

// New создаёт Dispatcher.
func New(cfg Config) *Dispatcher {
	return &Dispatcher{
		queue:     cfg.Queue,
		history:   cfg.History,
		publisher: cfg.Publisher,
		events:    cfg.Events,
		policy:    cfg.Policy,
		logger:    cfg.Logger,
	}
}

// cycleState — состояние одного цикла.
type cycleState struct {
	// restoreTried — попытка восстановления сессии уже была.
	// RestoreSession вызывается не чаще одного раза за цикл.
	restoreTried bool
	restoreErr   error
}

// Tick выполняет один цикл публикации.
//
// Если предыдущий цикл ещё выполняется, тик пропускается целиком —
// без ожидания и без частичной обработки. Ошибка одного поста не
// прерывает обработку остальных; возвращается только ошибка,
// помешавшая получить снимок очереди.
func (d *Dispatcher) Tick(ctx context.Context) error {
	if !d.runMu.TryLock() {
		telemetry.DispatchSkipped.Inc()
		d.logger.Debug("previous dispatch cycle still running, tick skipped")
		return nil
	}
	defer d.runMu.Unlock()

	telemetry.DispatchTicks.Inc()
	now := time.Now().UTC()

	ids, err := d.queue.List(ctx)
	if err != nil {
		return fmt.Errorf("list scheduled posts: %w", err)
	}

	telemetry.QueueDepth.Set(float64(len(ids)))
	if len(ids) == 0 {
		return nil
	}

	d.logger.Debug("dispatch cycle started", "queued", len(ids))

	cycle := &cycleState{}
	var published, requeued int

	for _, id := range ids {
		post, err := d.queue.Claim(ctx, id)
		switch {
		case errors.Is(err, repo.ErrAlreadyClaimed):
			// пост забрал кто-то другой между List и Claim
			d.logger.Debug("post already claimed", "post_id", id)
			continue
		case errors.Is(err, repo.ErrMalformedRecord):
			telemetry.PostsDropped.Inc()
			d.logger.Error("malformed queue record dropped", "post_id", id, "error", err)
			continue
		case err != nil:
			d.logger.Error("claim failed", "post_id", id, "error", err)
			continue
		}

		if post.Status == domain.PostStatusPublished {
			// устаревшая запись: пост уже публиковался, дубль не нужен
			d.logger.Warn("claimed post already published, discarded", "post_id", id)
			continue
		}

		if !post.Due(now) {
			// не время: пост возвращается в очередь без изменений
			d.requeue(ctx, post)
			requeued++
			continue
		}

		if d.publishOne(ctx, cycle, post, now) {
			published++
		}
	}

	d.logger.Info("dispatch cycle completed",
		"queued", len(ids),
		"published", published,
		"requeued", requeued,
	)

	return nil
}

// publishOne публикует один пост. Возвращает true при успехе.
func (d *Dispatcher) publishOne(ctx context.Context, cycle *cycleState, post *domain.ScheduledPost, now time.Time) bool {
	session, err := d.currentSession(ctx, cycle)
	if err != nil {
		d.handleFailure(ctx, post, now, err)
		return false
	}

	mediaID, err := d.publisher.PublishMedia(ctx, session, post.Caption, post.Photos, post.Videos)
	if err != nil {
		// сессия могла протухнуть — следующий цикл восстановит заново
		d.clearSession()
		d.handleFailure(ctx, post, now, err)
		return false
	}

	post.Status = domain.PostStatusPublished

	rec := domain.NewHistoryRecord(post, mediaID, now)
	if err := d.history.WriteRecord(ctx, rec); err != nil {
		// Пост опубликован, но история не записалась. Возврат в очередь
		// привёл бы к дублю публикации, поэтому итог только логируется.
		d.logger.Error("history write failed for published post",
			"post_id", post.ID,
			"media_id", mediaID,
			"error", err,
		)
	}

	telemetry.PostsPublished.Inc()
	d.logger.Info("post published",
		"post_id", post.ID,
		"media_id", mediaID,
		"username", post.Username,
	)

	if d.events != nil {
		payload := mq.PostPublishedPayload{
			JobID:    post.ID,
			MediaID:  mediaID,
			Username: post.Username,
		}
		if err := d.events.PublishPostPublished(ctx, payload); err != nil {
			d.logger.Warn("failed to publish post.published event", "post_id", post.ID, "error", err)
		}
	}

	d.scheduleSuccessor(ctx, post, now)

	return true
}

// currentSession возвращает закэшированную сессию, при необходимости
// восстанавливая её — не чаще одного раза за цикл.
func (d *Dispatcher) currentSession(ctx context.Context, cycle *cycleState) (any, error) {
	d.sessionMu.Lock()
	cached := d.session
	d.sessionMu.Unlock()

	if cached != nil {
		return cached, nil
	}

	if cycle.restoreTried {
		if cycle.restoreErr != nil {
			return nil, cycle.restoreErr
		}
		return nil, ErrSessionUnavailable
	}
	cycle.restoreTried = true

	session, err := d.publisher.RestoreSession(ctx)
	if err != nil {
		cycle.restoreErr = fmt.Errorf("restore session: %w", err)
		return nil, cycle.restoreErr
	}

	d.sessionMu.Lock()
	d.session = session
	d.sessionMu.Unlock()

	return session, nil
}

func (d *Dispatcher) clearSession() {
	d.sessionMu.Lock()
	d.session = nil
	d.sessionMu.Unlock()
}

// ResetSession сбрасывает закэшированную сессию публикации.
// Вызывается из API при login/logout, чтобы следующий цикл
// начал с восстановления сессии с диска.
func (d *Dispatcher) ResetSession() {
	d.clearSession()
}

// handleFailure обрабатывает неудачную попытку публикации:
// пост либо возвращается в очередь с backoff-окном, либо
// (при исчерпании лимита) уходит в историю со статусом failed.
func (d *Dispatcher) handleFailure(ctx context.Context, post *domain.ScheduledPost, now time.Time, cause error) {
	telemetry.PublishFailures.Inc()

	post.Attempts++
	post.LastError = cause.Error()

	if d.policy.Exhausted(post.Attempts) {
		rec := domain.NewFailureRecord(post, cause, now)
		if err := d.history.WriteRecord(ctx, rec); err != nil {
			// отказ не записался — лучше вернуть пост в очередь, чем потерять
			d.logger.Error("failure record write failed, post requeued",
				"post_id", post.ID,
				"error", err,
			)
			d.requeue(ctx, post)
			return
		}

		telemetry.PostsDeadLettered.Inc()
		d.logger.Error("post failed permanently",
			"post_id", post.ID,
			"attempts", post.Attempts,
			"error", cause,
		)

		if d.events != nil {
			payload := mq.PostFailedPayload{
				JobID:    post.ID,
				Username: post.Username,
				Error:    cause.Error(),
				Attempts: post.Attempts,
			}
			if err := d.events.PublishPostFailed(ctx, payload); err != nil {
				d.logger.Warn("failed to publish post.failed event", "post_id", post.ID, "error", err)
			}
		}

		return
	}

	next := now.Add(d.policy.Delay(post.Attempts))
	post.NextAttemptAt = &next
	d.requeue(ctx, post)

	d.logger.Warn("publish failed, post will be retried",
		"post_id", post.ID,
		"attempt", post.Attempts,
		"next_attempt_at", next,
		"error", cause,
	)
}

// scheduleSuccessor ставит в очередь пост-преемник повторяющегося поста.
func (d *Dispatcher) scheduleSuccessor(ctx context.Context, post *domain.ScheduledPost, now time.Time) {
	if !post.IsRecurring() {
		return
	}

	next, err := NextOccurrence(post.Recurrence, now)
	if err != nil {
		d.logger.Error("invalid recurrence, successor not scheduled",
			"post_id", post.ID,
			"recurrence", post.Recurrence,
			"error", err,
		)
		return
	}

	// ID преемника — свежий момент, а не момент начала цикла:
	// два повторяющихся поста в одном тике не должны разделить ID
	succ := post.Successor(next, time.Now().UTC())
	if err := d.queue.Enqueue(ctx, succ); err != nil {
		d.logger.Error("failed to enqueue successor",
			"post_id", post.ID,
			"successor_id", succ.ID,
			"error", err,
		)
		return
	}

	d.logger.Info("recurring post rescheduled",
		"post_id", post.ID,
		"successor_id", succ.ID,
		"scheduled_at", next,
	)
}

func (d *Dispatcher) requeue(ctx context.Context, post *domain.ScheduledPost) {
	if err := d.queue.Requeue(ctx, post); err != nil {
		// ошибка одного поста не должна срывать обработку остальных
		d.logger.Error("requeue failed", "post_id", post.ID, "error", err)
	}
}
