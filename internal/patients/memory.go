package patients

import (
	"context"
	"sync"
)

// MemoryRepository keeps patients in process, keyed by contact number.
type MemoryRepository struct {
	mu        sync.Mutex
	byContact map[string]Patient
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byContact: make(map[string]Patient)}
}

func (r *MemoryRepository) FindByContact(ctx context.Context, contact string) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byContact[contact]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) Create(ctx context.Context, p *Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byContact[p.ContactNumber]; ok {
		return ErrDuplicateContact
	}
	r.byContact[p.ContactNumber] = *p
	return nil
}

func (r *MemoryRepository) Update(ctx context.Context, p *Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byContact[p.ContactNumber]; !ok {
		return ErrNotFound
	}
	r.byContact[p.ContactNumber] = *p
	return nil
}
