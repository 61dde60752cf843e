package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avdeev/postpilot/internal/domain"
)

// HistoryRepo — история публикаций (History Store).
//
// Только append: записи никогда не обновляются и не удаляются.
// Читает историю только API-хендлер истории.
type HistoryRepo struct {
	pool *pgxpool.Pool
}

// NewHistoryRepo создаёт новый HistoryRepo.
func NewHistoryRepo(pool *pgxpool.Pool) *HistoryRepo {
	return &HistoryRepo{pool: pool}
}

// WriteRecord добавляет запись в историю.
func (r *HistoryRepo) WriteRecord(ctx context.Context, rec *domain.HistoryRecord) error {
	photosJSON, err := json.Marshal(emptyIfNil(rec.Photos))
	if err != nil {
		return fmt.Errorf("marshal photos: %w", err)
	}
	videosJSON, err := json.Marshal(emptyIfNil(rec.Videos))
	if err != nil {
		return fmt.Errorf("marshal videos: %w", err)
	}

	query := `
		INSERT INTO post_history (job_id, media_id, caption, photos, videos,
		                          scheduled_at, created_at, username, status, published_at, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = r.pool.Exec(ctx, query,
		rec.JobID,
		rec.MediaID,
		rec.Caption,
		photosJSON,
		videosJSON,
		rec.ScheduledAt,
		rec.CreatedAt,
		rec.Username,
		rec.Status,
		rec.PublishedAt,
		rec.Error,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Для каждого поста запись в истории ровно одна
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert history record: %w", err)
	}
	return nil
}

// List возвращает записи истории, новые первыми.
func (r *HistoryRepo) List(ctx context.Context, limit int) ([]domain.HistoryRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT job_id, media_id, caption, photos, videos,
		       scheduled_at, created_at, username, status, published_at, error
		FROM post_history
		ORDER BY published_at DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var records []domain.HistoryRecord
	for rows.Next() {
		var rec domain.HistoryRecord
		var photosJSON, videosJSON []byte

		err := rows.Scan(
			&rec.JobID,
			&rec.MediaID,
			&rec.Caption,
			&photosJSON,
			&videosJSON,
			&rec.ScheduledAt,
			&rec.CreatedAt,
			&rec.Username,
			&rec.Status,
			&rec.PublishedAt,
			&rec.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("scan history record: %w", err)
		}

		if err := json.Unmarshal(photosJSON, &rec.Photos); err != nil {
			return nil, fmt.Errorf("unmarshal photos: %w", err)
		}
		if err := json.Unmarshal(videosJSON, &rec.Videos); err != nil {
			return nil, fmt.Errorf("unmarshal videos: %w", err)
		}

		records = append(records, rec)
	}
	return records, rows.Err()
}
