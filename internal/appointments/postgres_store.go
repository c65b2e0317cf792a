package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/clinic-appointments/internal/slots"
)

const (
	// activeSlotIndex is the partial unique index enforcing one active
	// appointment per (doctor_id, appointment_date, slot).
	activeSlotIndex = "appointments_active_slot_idx"

	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists appointments in Postgres.
type PostgresStore struct {
	db pgxQuerier
}

// NewPostgresStore creates a store backed by a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

func newPostgresStoreWithQuerier(db pgxQuerier) *PostgresStore {
	if db == nil {
		panic("appointments: querier required")
	}
	return &PostgresStore{db: db}
}

const selectAppointmentColumns = `
	SELECT id::text, patient_name, age, contact_number, address, email, blood_pressure,
	       doctor_id, appointment_date, slot, scheduled_at, channel, status,
	       payment_status, payment_method, payment_id, order_id, payment_signature,
	       paid_at, refunded_at, created_at, updated_at
	FROM appointments
`

func (s *PostgresStore) QueryActiveByDoctorAndDate(ctx context.Context, doctorID string, date time.Time) ([]Appointment, error) {
	query := selectAppointmentColumns + `
		WHERE doctor_id = $1
		  AND appointment_date = $2::date
		  AND status = ANY($3)
		ORDER BY scheduled_at
	`
	rows, err := s.db.Query(ctx, query, doctorID, date.Format(DateLayout), statusStrings(ActiveStatuses()))
	if err != nil {
		return nil, classify("query active", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows, date.Location())
		if err != nil {
			return nil, err
		}
		out = append(out, *appt)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("query active", err)
	}
	return out, nil
}

func (s *PostgresStore) Insert(ctx context.Context, appt *Appointment) (string, error) {
	id := uuid.New()
	cols := flattenPayment(appt.Payment)
	query := `
		INSERT INTO appointments (
			id, patient_name, age, contact_number, address, email, blood_pressure,
			doctor_id, appointment_date, slot, scheduled_at, channel, status,
			payment_status, payment_method, payment_id, order_id, payment_signature,
			paid_at, refunded_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::date, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`
	_, err := s.db.Exec(ctx, query,
		id,
		appt.PatientName,
		nullableInt(appt.Age),
		nullableText(appt.ContactNumber),
		nullableText(appt.Address),
		nullableText(appt.Email),
		nullableText(appt.BloodPressure),
		appt.DoctorID,
		appt.Date.Format(DateLayout),
		string(appt.Slot),
		appt.ScheduledAt,
		string(appt.Channel),
		string(appt.Status),
		string(cols.Status),
		nullableText(cols.Method),
		nullableText(cols.PaymentID),
		nullableText(cols.OrderID),
		nullableText(cols.Signature),
		nullableTime(cols.PaidAt),
		nullableTime(cols.RefundedAt),
		appt.CreatedAt,
		appt.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch {
			case pgErr.Code == pgUniqueViolation && (pgErr.ConstraintName == "" || pgErr.ConstraintName == activeSlotIndex):
				return "", ErrSlotTaken
			case pgErr.Code == pgForeignKeyViolation:
				return "", fmt.Errorf("%w: %s", ErrUnknownDoctor, appt.DoctorID)
			}
		}
		return "", classify("insert", err)
	}
	return id.String(), nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Appointment, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	row := s.db.QueryRow(ctx, selectAppointmentColumns+` WHERE id = $1`, parsed)
	appt, err := scanAppointment(row, time.UTC)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return appt, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, from, to Status, payment Payment, updatedAt time.Time) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cols := flattenPayment(payment)
	query := `
		UPDATE appointments
		SET status = $3, payment_status = $4, refunded_at = $5, updated_at = $6
		WHERE id = $1 AND status = $2
	`
	tag, err := s.db.Exec(ctx, query, parsed, string(from), string(to), string(cols.Status), nullableTime(cols.RefundedAt), updatedAt)
	if err != nil {
		return classify("update status", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var current string
	err = s.db.QueryRow(ctx, `SELECT status FROM appointments WHERE id = $1`, parsed).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return classify("update status", err)
	}
	return ErrStatusChanged
}

func scanAppointment(row pgx.Row, loc *time.Location) (*Appointment, error) {
	var appt Appointment
	var age pgtype.Int4
	var contact, address, email, bp pgtype.Text
	var date time.Time
	var slot, channel, status, paymentStatus string
	var method, paymentID, orderID, signature pgtype.Text
	var paidAt, refundedAt pgtype.Timestamptz
	err := row.Scan(
		&appt.ID, &appt.PatientName, &age, &contact, &address, &email, &bp,
		&appt.DoctorID, &date, &slot, &appt.ScheduledAt, &channel, &status,
		&paymentStatus, &method, &paymentID, &orderID, &signature,
		&paidAt, &refundedAt, &appt.CreatedAt, &appt.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, classify("scan", err)
	}

	if age.Valid {
		v := int(age.Int32)
		appt.Age = &v
	}
	appt.ContactNumber = contact.String
	appt.Address = address.String
	appt.Email = email.String
	appt.BloodPressure = bp.String
	y, m, d := date.Date()
	appt.Date = time.Date(y, m, d, 0, 0, 0, 0, loc)
	appt.Slot = slots.Slot(slot)
	appt.Channel = Channel(channel)
	appt.Status = Status(status)

	payment, err := paymentFromColumns(paymentColumns{
		Status:     PaymentStatus(paymentStatus),
		Method:     method.String,
		PaymentID:  paymentID.String,
		OrderID:    orderID.String,
		Signature:  signature.String,
		PaidAt:     timePtr(paidAt),
		RefundedAt: timePtr(refundedAt),
	})
	if err != nil {
		return nil, err
	}
	appt.Payment = payment
	return &appt, nil
}

// classify wraps driver failures as retryable storage errors.
func classify(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

func statusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
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

func nullableTime(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func timePtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
