// Package slots defines the bookable time-of-day slots of a clinic day.
package slots

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Slot is a 12-hour display label such as "02:30 PM".
type Slot string

// ErrInvalidSlot is returned for labels that are not in "hh:mm AM|PM" form.
var ErrInvalidSlot = errors.New("slots: invalid slot label")

// Config describes the clinic day. The closing hour is itself a bookable slot.
type Config struct {
	OpenHour    int
	CloseHour   int
	StepMinutes int
}

// DefaultConfig is 09:00 AM through 05:00 PM in 30 minute steps.
func DefaultConfig() Config {
	return Config{OpenHour: 9, CloseHour: 17, StepMinutes: 30}
}

// Catalog is the fixed ordered slot sequence shared by every doctor and day.
type Catalog struct {
	slots []Slot
	index map[Slot]int
}

// NewCatalog builds the slot sequence for cfg.
func NewCatalog(cfg Config) (*Catalog, error) {
	if cfg.OpenHour < 0 || cfg.CloseHour > 23 || cfg.OpenHour >= cfg.CloseHour {
		return nil, fmt.Errorf("slots: invalid clinic hours %d-%d", cfg.OpenHour, cfg.CloseHour)
	}
	if cfg.StepMinutes <= 0 || cfg.StepMinutes > 24*60 {
		return nil, fmt.Errorf("slots: invalid step %d minutes", cfg.StepMinutes)
	}

	start := time.Duration(cfg.OpenHour) * time.Hour
	end := time.Duration(cfg.CloseHour) * time.Hour
	step := time.Duration(cfg.StepMinutes) * time.Minute

	c := &Catalog{index: make(map[Slot]int)}
	for offset := start; offset <= end; offset += step {
		label := Label(offset)
		c.index[label] = len(c.slots)
		c.slots = append(c.slots, label)
	}
	return c, nil
}

// MustCatalog is NewCatalog for configurations known to be valid.
func MustCatalog(cfg Config) *Catalog {
	c, err := NewCatalog(cfg)
	if err != nil {
		panic(err)
	}
	return c
}

// All returns a copy of the slots in chronological order.
func (c *Catalog) All() []Slot {
	out := make([]Slot, len(c.slots))
	copy(out, c.slots)
	return out
}

// Len is the number of slots in a day.
func (c *Catalog) Len() int {
	return len(c.slots)
}

// Index reports the catalog position of slot.
func (c *Catalog) Index(slot Slot) (int, bool) {
	i, ok := c.index[slot]
	return i, ok
}

// Contains reports whether slot is bookable.
func (c *Catalog) Contains(slot Slot) bool {
	_, ok := c.index[slot]
	return ok
}

// Label formats an offset from midnight as a 12-hour slot label.
func Label(offset time.Duration) Slot {
	total := int(offset / time.Minute)
	hour := (total / 60) % 24
	minute := total % 60

	period := "AM"
	if hour >= 12 {
		period = "PM"
	}
	display := hour % 12
	if display == 0 {
		display = 12
	}
	return Slot(fmt.Sprintf("%02d:%02d %s", display, minute, period))
}

// ToOffset converts a slot label to its offset from midnight.
// "12:00 AM" is midnight and "12:00 PM" is noon.
func ToOffset(slot Slot) (time.Duration, error) {
	clock, period, ok := strings.Cut(strings.TrimSpace(string(slot)), " ")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}
	hh, mm, ok := strings.Cut(clock, ":")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 1 || hour > 12 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || len(mm) != 2 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}

	switch strings.ToUpper(period) {
	case "AM":
		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour != 12 {
			hour += 12
		}
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}
	return time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute, nil
}

// ToOffsetMillis is ToOffset in milliseconds from midnight.
func ToOffsetMillis(slot Slot) (int64, error) {
	offset, err := ToOffset(slot)
	if err != nil {
		return 0, err
	}
	return offset.Milliseconds(), nil
}

// Combine returns local midnight of date, in date's own location, plus the slot offset.
func Combine(date time.Time, slot Slot) (time.Time, error) {
	offset, err := ToOffset(slot)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, date.Location()).Add(offset), nil
}
