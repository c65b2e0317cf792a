package appointments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps appointments in process. The active-slot rule is checked
// and applied under one lock so concurrent inserts cannot both succeed.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]*Appointment
	active map[slotKey]string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]*Appointment),
		active: make(map[slotKey]string),
	}
}

func (s *MemoryStore) QueryActiveByDoctorAndDate(ctx context.Context, doctorID string, date time.Time) ([]Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	day := date.Format(DateLayout)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Appointment
	for key, id := range s.active {
		if key.doctorID != doctorID || key.date != day {
			continue
		}
		out = append(out, *s.byID[id].clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (s *MemoryStore) Insert(ctx context.Context, appt *Appointment) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := keyOf(appt.DoctorID, appt.Date, appt.Slot)

	s.mu.Lock()
	defer s.mu.Unlock()

	if appt.Status.IsActive() {
		if _, taken := s.active[key]; taken {
			return "", ErrSlotTaken
		}
	}

	stored := appt.clone()
	stored.ID = uuid.NewString()
	s.byID[stored.ID] = stored
	if stored.Status.IsActive() {
		s.active[key] = stored.ID
	}
	return stored.ID, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	appt, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return appt.clone(), nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, id string, from, to Status, payment Payment, updatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	if appt.Status != from {
		return ErrStatusChanged
	}
	appt.Status = to
	appt.Payment = payment
	appt.UpdatedAt = updatedAt
	if !to.IsActive() {
		key := keyOf(appt.DoctorID, appt.Date, appt.Slot)
		if s.active[key] == id {
			delete(s.active, key)
		}
	}
	return nil
}
