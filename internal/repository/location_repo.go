package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"qr-lost-found/internal/model"
)

type LocationRepository struct {
	pool *pgxpool.Pool
}

func NewLocationRepository(pool *pgxpool.Pool) *LocationRepository {
	return &LocationRepository{pool: pool}
}

func (r *LocationRepository) List(ctx context.Context) ([]model.Location, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, address, phone, lat, lng FROM locations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	locations := make([]model.Location, 0)
	for rows.Next() {
		var loc model.Location
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.Address, &loc.Phone, &loc.Lat, &loc.Lng); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

func (r *LocationRepository) FindByID(ctx context.Context, id int64) (model.Location, error) {
	var loc model.Location
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, address, phone, lat, lng FROM locations WHERE id = $1`, id).
		Scan(&loc.ID, &loc.Name, &loc.Address, &loc.Phone, &loc.Lat, &loc.Lng)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Location{}, model.ErrLocationNotFound
	}
	if err != nil {
		return model.Location{}, fmt.Errorf("find location by id: %w", err)
	}
	return loc, nil
}
