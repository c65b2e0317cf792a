package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/clinic-appointments/internal/slots"
)

// SlotSet is a set of slot labels.
type SlotSet map[slots.Slot]struct{}

// Has reports whether s is in the set.
func (set SlotSet) Has(s slots.Slot) bool {
	_, ok := set[s]
	return ok
}

// Sorted returns the members in catalog order.
func (set SlotSet) Sorted(catalog *slots.Catalog) []slots.Slot {
	out := make([]slots.Slot, 0, len(set))
	for _, s := range catalog.All() {
		if set.Has(s) {
			out = append(out, s)
		}
	}
	return out
}

// Checker answers which slots of a doctor-day are already committed.
type Checker struct {
	store   Store
	timeout time.Duration
}

// NewChecker creates an availability checker. Every store call is bounded by timeout.
func NewChecker(store Store, timeout time.Duration) *Checker {
	if store == nil {
		panic("appointments: store required")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Checker{store: store, timeout: timeout}
}

// BookedSlots returns the slots held by active appointments of doctorID on date.
func (c *Checker) BookedSlots(ctx context.Context, doctorID string, date time.Time) (SlotSet, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	appts, err := c.store.QueryActiveByDoctorAndDate(ctx, doctorID, date)
	if err != nil {
		return nil, asStorageError("booked slots", err)
	}
	booked := make(SlotSet, len(appts))
	for _, appt := range appts {
		if appt.Status.IsActive() {
			booked[appt.Slot] = struct{}{}
		}
	}
	return booked, nil
}

// asStorageError makes sure a store failure carries ErrStorage.
func asStorageError(op string, err error) error {
	if errors.Is(err, ErrStorage) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
