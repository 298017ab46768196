package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"qr-lost-found/internal/model"
)

const itemColumns = `qr_code, user_id, name, owner_name, owner_email, status,
	       location_id, location_name, location_address, location_phone,
	       registered_at, reported_found_at, dropped_off_at, picked_up_at,
	       expires_at, updated_at`

type ItemRepository struct {
	pool *pgxpool.Pool
}

func NewItemRepository(pool *pgxpool.Pool) *ItemRepository {
	return &ItemRepository{pool: pool}
}

func (r *ItemRepository) Create(ctx context.Context, item model.Item) error {
	locID, locName, locAddress, locPhone := locationFields(item.Location)

	_, err := r.pool.Exec(ctx,
		`INSERT INTO items
		 (qr_code, user_id, name, owner_name, owner_email, status,
		  location_id, location_name, location_address, location_phone,
		  registered_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		item.QRCode, item.UserID, item.Name, item.OwnerName, item.OwnerEmail,
		item.Status, locID, locName, locAddress, locPhone,
		item.RegisteredAt, item.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return model.ErrItemAlreadyRegistered
	}
	if err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

func (r *ItemRepository) FindByQRCode(ctx context.Context, qrCode string) (model.Item, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM items WHERE qr_code = $1`, qrCode)

	item, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Item{}, model.ErrItemNotFound
	}
	if err != nil {
		return model.Item{}, fmt.Errorf("find item by qr code: %w", err)
	}
	return item, nil
}

func (r *ItemRepository) ListByOwner(ctx context.Context, userID string) ([]model.Item, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+itemColumns+` FROM items
		 WHERE user_id = $1 ORDER BY registered_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list items by owner: %w", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

// ListExpired returns dropped-off items whose pickup deadline has passed.
// The expiry sweep feeds these through the regular transition path.
func (r *ItemRepository) ListExpired(ctx context.Context, now time.Time) ([]model.Item, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+itemColumns+` FROM items
		 WHERE status = $1 AND expires_at <= $2
		 ORDER BY expires_at`, model.StatusDroppedOff, now)
	if err != nil {
		return nil, fmt.Errorf("list expired items: %w", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

// UpdateStatus writes a validated transition result. The WHERE clause pins
// the row to the status the transition was computed from, so of two racing
// writers exactly one wins; the loser sees ErrInvalidTransition and should
// re-read. All lifecycle-owned columns are written together in the one
// statement, never piecemeal.
func (r *ItemRepository) UpdateStatus(ctx context.Context, qrCode string, expected model.ItemStatus, item model.Item) error {
	locID, locName, locAddress, locPhone := locationFields(item.Location)

	tag, err := r.pool.Exec(ctx,
		`UPDATE items
		 SET status = $3, reported_found_at = $4, dropped_off_at = $5,
		     picked_up_at = $6, expires_at = $7,
		     location_id = $8, location_name = $9, location_address = $10,
		     location_phone = $11, updated_at = $12
		 WHERE qr_code = $1 AND status = $2`,
		qrCode, expected, item.Status,
		item.ReportedFoundAt, item.DroppedOffAt, item.PickedUpAt, item.ExpiresAt,
		locID, locName, locAddress, locPhone, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update item status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM items WHERE qr_code = $1)`, qrCode).Scan(&exists); err != nil {
			return fmt.Errorf("check item exists: %w", err)
		}
		if !exists {
			return model.ErrItemNotFound
		}
		return fmt.Errorf("%w: item status changed concurrently", model.ErrInvalidTransition)
	}

	return nil
}

func (r *ItemRepository) Delete(ctx context.Context, qrCode string, userID string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM items WHERE qr_code = $1 AND user_id = $2`, qrCode, userID)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrItemNotFound
	}
	return nil
}

func locationFields(loc *model.Location) (*int64, *string, *string, *string) {
	if loc == nil {
		return nil, nil, nil, nil
	}
	return &loc.ID, &loc.Name, &loc.Address, &loc.Phone
}

func scanItem(row pgx.Row) (model.Item, error) {
	var item model.Item
	var locID *int64
	var locName, locAddress, locPhone *string

	err := row.Scan(
		&item.QRCode, &item.UserID, &item.Name, &item.OwnerName, &item.OwnerEmail,
		&item.Status, &locID, &locName, &locAddress, &locPhone,
		&item.RegisteredAt, &item.ReportedFoundAt, &item.DroppedOffAt,
		&item.PickedUpAt, &item.ExpiresAt, &item.UpdatedAt)
	if err != nil {
		return model.Item{}, err
	}

	if locID != nil {
		item.Location = &model.Location{ID: *locID}
		if locName != nil {
			item.Location.Name = *locName
		}
		if locAddress != nil {
			item.Location.Address = *locAddress
		}
		if locPhone != nil {
			item.Location.Phone = *locPhone
		}
	}

	return item, nil
}

func collectItems(rows pgx.Rows) ([]model.Item, error) {
	items := make([]model.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
