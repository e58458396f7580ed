package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samirrijal/canopyviz/internal/core/domain"
)

// ThumbnailRepo implements ports.ThumbnailRepository.
type ThumbnailRepo struct {
	db *DB
}

func NewThumbnailRepo(db *DB) *ThumbnailRepo {
	return &ThumbnailRepo{db: db}
}

func (r *ThumbnailRepo) Insert(ctx context.Context, t *domain.Thumbnail) error {
	vis, err := json.Marshal(t.Vis)
	if err != nil {
		return fmt.Errorf("encode vis: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO thumbnails (id, dataset_id, masked, thumb_name, url, vis, dimensions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, t.ID, t.Dataset.ID, t.Dataset.Masked, t.ThumbName, t.URL, vis, t.Vis.Dimensions, t.CreatedAt)
	return err
}

func (r *ThumbnailRepo) List(ctx context.Context, limit int) ([]domain.Thumbnail, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, dataset_id, masked, thumb_name, url, vis, created_at
		FROM thumbnails ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var thumbs []domain.Thumbnail
	for rows.Next() {
		var t domain.Thumbnail
		var vis []byte
		if err := rows.Scan(&t.ID, &t.Dataset.ID, &t.Dataset.Masked, &t.ThumbName, &t.URL, &vis, &t.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(vis, &t.Vis); err != nil {
			return nil, fmt.Errorf("decode vis for thumbnail %s: %w", t.ID, err)
		}
		thumbs = append(thumbs, t)
	}
	return thumbs, rows.Err()
}
