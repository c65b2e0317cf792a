package patients

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores patients in the patients table.
type PostgresRepository struct {
	db pgxQuerier
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("patients: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithQuerier(db pgxQuerier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindByContact(ctx context.Context, contact string) (*Patient, error) {
	var p Patient
	var age pgtype.Int4
	var address pgtype.Text
	err := r.db.QueryRow(ctx, `
		SELECT id, name, contact_number, age, address, created_at, updated_at
		FROM patients
		WHERE contact_number = $1
	`, contact).Scan(&p.ID, &p.Name, &p.ContactNumber, &age, &address, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("patients: find by contact: %w", err)
	}
	if age.Valid {
		v := int(age.Int32)
		p.Age = &v
	}
	p.Address = address.String
	return &p, nil
}

func (r *PostgresRepository) Create(ctx context.Context, p *Patient) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO patients (id, name, contact_number, age, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.Name, p.ContactNumber, nullableInt(p.Age), nullableText(p.Address), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateContact
		}
		return fmt.Errorf("patients: insert: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, p *Patient) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE patients
		SET name = $2, age = $3, address = $4, updated_at = $5
		WHERE id = $1
	`, p.ID, p.Name, nullableInt(p.Age), nullableText(p.Address), p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("patients: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PostgresSequence keeps one counter row per day.
type PostgresSequence struct {
	db pgxQuerier
}

func NewPostgresSequence(pool *pgxpool.Pool) *PostgresSequence {
	if pool == nil {
		panic("patients: pgx pool required")
	}
	return &PostgresSequence{db: pool}
}

func (s *PostgresSequence) Next(ctx context.Context, day time.Time) (int64, error) {
	var value int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO patient_sequences (day, value) VALUES ($1::date, 1)
		ON CONFLICT (day) DO UPDATE SET value = patient_sequences.value + 1
		RETURNING value
	`, day.Format("2006-01-02")).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("patients: sequence: %w", err)
	}
	return value, nil
}

func nullableText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func nullableInt(v *int) pgtype.Int4 {
	if v == nil {
		return pgtype.Int4{}
	}
	return pgtype.Int4{Int32: int32(*v), Valid: true}
}
