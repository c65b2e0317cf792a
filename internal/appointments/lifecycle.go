package appointments

import "time"

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusScheduled     Status = "Scheduled"
	StatusPaidScheduled Status = "Paid & Scheduled"
	StatusCancelled     Status = "Cancelled"
	StatusFailed        Status = "Failed"
	StatusRefunded      Status = "Refunded"
)

// transitions lists the moves available after creation. Terminal states have none.
var transitions = map[Status][]Status{
	StatusScheduled:     {StatusCancelled, StatusFailed},
	StatusPaidScheduled: {StatusCancelled, StatusRefunded},
	StatusCancelled:     nil,
	StatusFailed:        nil,
	StatusRefunded:      nil,
}

// ActiveStatuses are the states that hold a slot.
func ActiveStatuses() []Status {
	return []Status{StatusScheduled, StatusPaidScheduled}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsActive reports whether an appointment in s blocks its slot.
func (s Status) IsActive() bool {
	return s == StatusScheduled || s == StatusPaidScheduled
}

// IsTerminal reports whether s has no further transitions.
func (s Status) IsTerminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// CanTransition reports whether an appointment may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// paymentAfterTransition derives the payment record that accompanies a status move.
func paymentAfterTransition(p Payment, to Status, now time.Time) Payment {
	switch to {
	case StatusFailed:
		if _, pending := p.(OnlinePending); pending {
			return OnlineFailed{}
		}
	case StatusRefunded:
		if paid, ok := p.(OnlinePaid); ok {
			return OnlineRefunded{OnlinePaid: paid, RefundedAt: now}
		}
	}
	return p
}
