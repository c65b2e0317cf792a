package appointments

import (
	"context"
	"time"
)

// Store persists appointments. Insert must fail with ErrSlotTaken when an
// active appointment already holds the same (doctor, date, slot).
type Store interface {
	QueryActiveByDoctorAndDate(ctx context.Context, doctorID string, date time.Time) ([]Appointment, error)
	Insert(ctx context.Context, appt *Appointment) (string, error)
	Get(ctx context.Context, id string) (*Appointment, error)
	UpdateStatus(ctx context.Context, id string, from, to Status, payment Payment, updatedAt time.Time) error
}
