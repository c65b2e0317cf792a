package doctors

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresCatalog reads the doctors table.
type PostgresCatalog struct {
	db rowQuerier
}

func NewPostgresCatalog(pool *pgxpool.Pool) *PostgresCatalog {
	if pool == nil {
		panic("doctors: pgx pool required")
	}
	return &PostgresCatalog{db: pool}
}

func (c *PostgresCatalog) List(ctx context.Context) ([]Doctor, error) {
	rows, err := c.db.Query(ctx, `SELECT id, name, specialty FROM doctors ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("doctors: list: %w", err)
	}
	defer rows.Close()

	var out []Doctor
	for rows.Next() {
		var d Doctor
		var specialty pgtype.Text
		if err := rows.Scan(&d.ID, &d.Name, &specialty); err != nil {
			return nil, fmt.Errorf("doctors: scan: %w", err)
		}
		d.Specialty = specialty.String
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("doctors: list: %w", err)
	}
	return out, nil
}

func (c *PostgresCatalog) Get(ctx context.Context, id string) (*Doctor, error) {
	var d Doctor
	var specialty pgtype.Text
	err := c.db.QueryRow(ctx, `SELECT id, name, specialty FROM doctors WHERE id = $1`, id).
		Scan(&d.ID, &d.Name, &specialty)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("doctors: get: %w", err)
	}
	d.Specialty = specialty.String
	return &d, nil
}
