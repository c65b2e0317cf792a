// Package doctors exposes the read-only doctor catalog.
package doctors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var ErrNotFound = errors.New("doctors: not found")

// Doctor is a bookable doctor.
type Doctor struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty,omitempty"`
}

// Catalog lists doctors.
type Catalog interface {
	List(ctx context.Context) ([]Doctor, error)
	Get(ctx context.Context, id string) (*Doctor, error)
}

// StaticCatalog serves a fixed doctor list, used with the memory store.
type StaticCatalog struct {
	doctors []Doctor
	byID    map[string]Doctor
}

func NewStaticCatalog(list []Doctor) *StaticCatalog {
	c := &StaticCatalog{byID: make(map[string]Doctor, len(list))}
	for _, d := range list {
		c.doctors = append(c.doctors, d)
		c.byID[d.ID] = d
	}
	sort.Slice(c.doctors, func(i, j int) bool { return c.doctors[i].Name < c.doctors[j].Name })
	return c
}

// ParseStaticCatalog reads a JSON array of doctors.
func ParseStaticCatalog(raw string) (*StaticCatalog, error) {
	var list []Doctor
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			return nil, fmt.Errorf("doctors: parse catalog: %w", err)
		}
	}
	for _, d := range list {
		if d.ID == "" || d.Name == "" {
			return nil, fmt.Errorf("doctors: parse catalog: id and name required")
		}
	}
	return NewStaticCatalog(list), nil
}

func (c *StaticCatalog) List(ctx context.Context) ([]Doctor, error) {
	out := make([]Doctor, len(c.doctors))
	copy(out, c.doctors)
	return out, nil
}

func (c *StaticCatalog) Get(ctx context.Context, id string) (*Doctor, error) {
	d, ok := c.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}
