package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avdeev/postpilot/internal/domain"
)

// QueueRepo — очередь отложенных постов (Job Store).
//
// Каждый пост — отдельная строка. Claim реализован одним
// DELETE ... RETURNING: забрать запись может ровно один вызов,
// остальные получают ErrAlreadyClaimed. Все операции безопасны
// при одновременных вызовах из API-хендлеров и dispatcher'а.
type QueueRepo struct {
	pool *pgxpool.Pool
}

// NewQueueRepo создаёт новый QueueRepo.
func NewQueueRepo(pool *pgxpool.Pool) *QueueRepo {
	return &QueueRepo{pool: pool}
}

const queueColumns = `id, caption, photos, videos, scheduled_at, created_at,
	       username, status, recurrence, attempts, next_attempt_at, last_error`

// Enqueue сохраняет новый пост в очереди.
func (r *QueueRepo) Enqueue(ctx context.Context, post *domain.ScheduledPost) error {
	photosJSON, videosJSON, err := marshalMedia(post)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO scheduled_posts (id, caption, photos, videos, scheduled_at, created_at,
		                             username, status, recurrence, attempts, next_attempt_at, last_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = r.pool.Exec(ctx, query,
		post.ID,
		post.Caption,
		photosJSON,
		videosJSON,
		post.ScheduledAt,
		post.CreatedAt,
		post.Username,
		post.Status,
		post.Recurrence,
		post.Attempts,
		post.NextAttemptAt,
		post.LastError,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert scheduled post: %w", err)
	}
	return nil
}

// List возвращает снимок ID всех постов в очереди в порядке хранения
// (порядок по id, то есть по моменту создания — не earliest-due-first).
// Изменения очереди после снятия снимка в него не попадают.
func (r *QueueRepo) List(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM scheduled_posts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list scheduled posts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan post id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListPosts возвращает все посты очереди целиком (для API).
func (r *QueueRepo) ListPosts(ctx context.Context) ([]domain.ScheduledPost, error) {
	query := `SELECT ` + queueColumns + ` FROM scheduled_posts ORDER BY scheduled_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list scheduled posts: %w", err)
	}
	defer rows.Close()

	var posts []domain.ScheduledPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	return posts, rows.Err()
}

// Claim атомарно забирает пост из очереди и возвращает его.
// Если записи уже нет, возвращает ErrAlreadyClaimed.
func (r *QueueRepo) Claim(ctx context.Context, id string) (*domain.ScheduledPost, error) {
	query := `DELETE FROM scheduled_posts WHERE id = $1 RETURNING ` + queueColumns
	post, err := scanPost(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAlreadyClaimed
	}
	return post, err
}

// Requeue возвращает пост в очередь под его исходным ID.
// Используется, когда время публикации ещё не наступило или
// попытка публикации не удалась.
func (r *QueueRepo) Requeue(ctx context.Context, post *domain.ScheduledPost) error {
	if err := r.Enqueue(ctx, post); err != nil {
		return fmt.Errorf("requeue post %s: %w", post.ID, err)
	}
	return nil
}

// --- Helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*domain.ScheduledPost, error) {
	var p domain.ScheduledPost
	var photosJSON, videosJSON []byte

	err := row.Scan(
		&p.ID,
		&p.Caption,
		&photosJSON,
		&videosJSON,
		&p.ScheduledAt,
		&p.CreatedAt,
		&p.Username,
		&p.Status,
		&p.Recurrence,
		&p.Attempts,
		&p.NextAttemptAt,
		&p.LastError,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, pgx.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("scan scheduled post: %w", err)
	}

	if err := json.Unmarshal(photosJSON, &p.Photos); err != nil {
		return nil, fmt.Errorf("%w: photos of post %s: %v", ErrMalformedRecord, p.ID, err)
	}
	if err := json.Unmarshal(videosJSON, &p.Videos); err != nil {
		return nil, fmt.Errorf("%w: videos of post %s: %v", ErrMalformedRecord, p.ID, err)
	}

	return &p, nil
}

func marshalMedia(post *domain.ScheduledPost) (photos, videos []byte, err error) {
	photos, err = json.Marshal(emptyIfNil(post.Photos))
	if err != nil {
		return nil, nil, fmt.Errorf("marshal photos: %w", err)
	}
	videos, err = json.Marshal(emptyIfNil(post.Videos))
	if err != nil {
		return nil, nil, fmt.Errorf("marshal videos: %w", err)
	}
	return photos, videos, nil
}

// emptyIfNil заменяет nil на пустой список, чтобы в jsonb лежал [], а не null.
func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
