// Package patients keeps the patient register fed by bookings.
package patients

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/clinic-appointments/pkg/logging"
)

var (
	ErrNotFound         = errors.New("patients: not found")
	ErrDuplicateContact = errors.New("patients: contact number already registered")
	ErrContactRequired  = errors.New("patients: contact number required")
)

var tracer = otel.Tracer("clinic.internal.patients")

// Patient is a registered patient keyed by contact number.
type Patient struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	ContactNumber string    `json:"contactNumber"`
	Age           *int      `json:"age,omitempty"`
	Address       string    `json:"address,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Profile is what a booking knows about the patient.
type Profile struct {
	Name          string
	ContactNumber string
	Age           *int
	Address       string
}

// Repository stores patients.
type Repository interface {
	FindByContact(ctx context.Context, contact string) (*Patient, error)
	Create(ctx context.Context, p *Patient) error
	Update(ctx context.Context, p *Patient) error
}

// Sequence hands out the per-day registration counter. Values start at 1.
type Sequence interface {
	Next(ctx context.Context, day time.Time) (int64, error)
}

// FormatID renders prefix + YYYYMMDD + a four digit sequence.
func FormatID(prefix string, day time.Time, seq int64) string {
	return fmt.Sprintf("%s%s%04d", prefix, day.Format("20060102"), seq)
}

// Registry looks patients up by contact number and creates them on first booking.
type Registry struct {
	repo   Repository
	seq    Sequence
	prefix string
	loc    *time.Location
	now    func() time.Time
	logger *logging.Logger
}

func NewRegistry(repo Repository, seq Sequence, prefix string, logger *logging.Logger) *Registry {
	if repo == nil {
		panic("patients: repository required")
	}
	if seq == nil {
		panic("patients: sequence required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if prefix == "" {
		prefix = "RUBY"
	}
	return &Registry{repo: repo, seq: seq, prefix: prefix, loc: time.UTC, now: time.Now, logger: logger}
}

// WithLocation sets the zone used for the date part of new ids.
func (r *Registry) WithLocation(loc *time.Location) *Registry {
	if loc != nil {
		r.loc = loc
	}
	return r
}

func (r *Registry) WithClock(now func() time.Time) *Registry {
	if now != nil {
		r.now = now
	}
	return r
}

// Ensure returns the patient for p.ContactNumber, refreshing the stored
// profile, or registers a new one.
func (r *Registry) Ensure(ctx context.Context, p Profile) (*Patient, error) {
	ctx, span := tracer.Start(ctx, "patients.ensure")
	defer span.End()

	p.ContactNumber = strings.TrimSpace(p.ContactNumber)
	if p.ContactNumber == "" {
		return nil, ErrContactRequired
	}

	patient, err := r.upsert(ctx, p)
	if errors.Is(err, ErrDuplicateContact) {
		// Another booking registered the same contact between lookup and create.
		patient, err = r.upsert(ctx, p)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ensure failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("clinic.patient_id", patient.ID))
	return patient, nil
}

func (r *Registry) upsert(ctx context.Context, p Profile) (*Patient, error) {
	now := r.now()

	existing, err := r.repo.FindByContact(ctx, p.ContactNumber)
	switch {
	case err == nil:
		existing.Name = p.Name
		if p.Age != nil {
			existing.Age = p.Age
		}
		if p.Address != "" {
			existing.Address = p.Address
		}
		existing.UpdatedAt = now
		if err := r.repo.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("patients: update: %w", err)
		}
		return existing, nil
	case !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("patients: lookup: %w", err)
	}

	day := now.In(r.loc)
	seq, err := r.seq.Next(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("patients: next sequence: %w", err)
	}
	patient := &Patient{
		ID:            FormatID(r.prefix, day, seq),
		Name:          p.Name,
		ContactNumber: p.ContactNumber,
		Age:           p.Age,
		Address:       p.Address,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := r.repo.Create(ctx, patient); err != nil {
		if errors.Is(err, ErrDuplicateContact) {
			return nil, err
		}
		return nil, fmt.Errorf("patients: create: %w", err)
	}
	r.logger.Info("patient registered", "patient_id", patient.ID)
	return patient, nil
}
