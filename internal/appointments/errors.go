package appointments

import "errors"

var (
	// ErrSlotTaken is returned by a Store when an active appointment already holds the slot.
	ErrSlotTaken = errors.New("appointments: slot already booked")
	// ErrUnknownDoctor is returned when the doctor reference does not exist.
	ErrUnknownDoctor = errors.New("appointments: unknown doctor")
	// ErrNotFound is returned when no appointment has the requested id.
	ErrNotFound = errors.New("appointments: not found")
	// ErrStatusChanged is returned when a status update lost a race with another writer.
	ErrStatusChanged = errors.New("appointments: status changed concurrently")
	// ErrInvalidTransition is returned for lifecycle moves the state machine forbids.
	ErrInvalidTransition = errors.New("appointments: invalid status transition")
	// ErrStorage marks retryable storage failures (network, timeout, unavailable).
	ErrStorage = errors.New("appointments: storage unavailable")
)
