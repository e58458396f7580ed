package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/canopyviz/internal/core/domain"
)

// LayerRepo implements ports.LayerRepository.
type LayerRepo struct {
	db *DB
}

func NewLayerRepo(db *DB) *LayerRepo {
	return &LayerRepo{db: db}
}

func (r *LayerRepo) Insert(ctx context.Context, l *domain.MapLayer) error {
	vis, err := json.Marshal(l.Vis)
	if err != nil {
		return fmt.Errorf("encode vis: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO map_layers (id, name, dataset_id, masked, map_name, tile_url, vis,
		                        center_lat, center_lon, zoom, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, l.ID, l.Name, l.Dataset.ID, l.Dataset.Masked, l.MapName, l.TileURL, vis,
		l.View.Center.Lat, l.View.Center.Lon, l.View.Zoom, l.CreatedAt)
	return err
}

const layerColumns = `id, name, dataset_id, masked, map_name, tile_url, vis,
	center_lat, center_lon, zoom, created_at`

func scanLayer(row pgx.Row) (*domain.MapLayer, error) {
	var l domain.MapLayer
	var vis []byte
	if err := row.Scan(&l.ID, &l.Name, &l.Dataset.ID, &l.Dataset.Masked, &l.MapName, &l.TileURL, &vis,
		&l.View.Center.Lat, &l.View.Center.Lon, &l.View.Zoom, &l.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(vis, &l.Vis); err != nil {
		return nil, fmt.Errorf("decode vis for layer %s: %w", l.ID, err)
	}
	return &l, nil
}

func (r *LayerRepo) GetByID(ctx context.Context, id string) (*domain.MapLayer, error) {
	l, err := scanLayer(r.db.Pool.QueryRow(ctx, `SELECT `+layerColumns+` FROM map_layers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("layer %s: %w", id, domain.ErrNotFound)
	}
	return l, err
}

func (r *LayerRepo) List(ctx context.Context, limit int) ([]domain.MapLayer, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+layerColumns+`
		FROM map_layers ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var layers []domain.MapLayer
	for rows.Next() {
		l, err := scanLayer(rows)
		if err != nil {
			return nil, err
		}
		layers = append(layers, *l)
	}
	return layers, rows.Err()
}
