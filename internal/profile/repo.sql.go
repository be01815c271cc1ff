package profile

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ensure implementation
var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const profileColumns = `id, user_id, display_name, currency, date_format, gst_percentage, tds_percentage, created_at, updated_at`

func (r *pgRepository) GetByUser(ctx context.Context, userID string) (Profile, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM user_profiles WHERE user_id = $1`, userID)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	return p, nil
}

func (r *pgRepository) Upsert(ctx context.Context, p Profile) (Profile, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	row := r.pool.QueryRow(ctx, `INSERT INTO user_profiles
(id, user_id, display_name, currency, date_format, gst_percentage, tds_percentage)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (user_id) DO UPDATE SET
display_name = EXCLUDED.display_name,
currency = EXCLUDED.currency,
date_format = EXCLUDED.date_format,
gst_percentage = EXCLUDED.gst_percentage,
tds_percentage = EXCLUDED.tds_percentage,
updated_at = now()
RETURNING `+profileColumns,
		p.ID, p.UserID, p.DisplayName, p.Currency, p.DateFormat, p.GSTPercentage, p.TDSPercentage)
	return scanProfile(row)
}

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	if err := row.Scan(&p.ID, &p.UserID, &p.DisplayName, &p.Currency, &p.DateFormat,
		&p.GSTPercentage, &p.TDSPercentage, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Profile{}, err
	}
	return p, nil
}
