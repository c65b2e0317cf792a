package appointments

import (
	"strings"
	"time"
)

// PaymentAuthorization is the triple a payment gateway returns after checkout.
// Its signature must already be verified by the caller.
type PaymentAuthorization struct {
	PaymentID string `json:"paymentId"`
	OrderID   string `json:"orderId"`
	Signature string `json:"signature"`
}

// Complete reports whether all three fields are present.
func (a *PaymentAuthorization) Complete() bool {
	if a == nil {
		return false
	}
	return strings.TrimSpace(a.PaymentID) != "" &&
		strings.TrimSpace(a.OrderID) != "" &&
		strings.TrimSpace(a.Signature) != ""
}

// Empty reports whether no field is present.
func (a *PaymentAuthorization) Empty() bool {
	if a == nil {
		return true
	}
	return strings.TrimSpace(a.PaymentID) == "" &&
		strings.TrimSpace(a.OrderID) == "" &&
		strings.TrimSpace(a.Signature) == ""
}

// Correlation is the initial (status, payment) pair of a new appointment.
type Correlation struct {
	Status  Status
	Payment Payment
}

// Correlate decides the initial status and payment record.
//
//	clinic                    -> Scheduled, PayAtClinic
//	online + complete triple  -> Paid & Scheduled, Paid
//	online + anything else    -> Scheduled, Pending
//
// Online bookings without a complete triple are persisted as soft bookings.
func Correlate(channel Channel, auth *PaymentAuthorization, gateway string, now time.Time) Correlation {
	if channel != ChannelOnline {
		return Correlation{Status: StatusScheduled, Payment: ClinicPayment{}}
	}
	if !auth.Complete() {
		return Correlation{Status: StatusScheduled, Payment: OnlinePending{}}
	}
	return Correlation{
		Status: StatusPaidScheduled,
		Payment: OnlinePaid{
			Gateway:   gateway,
			PaymentID: strings.TrimSpace(auth.PaymentID),
			OrderID:   strings.TrimSpace(auth.OrderID),
			Signature: strings.TrimSpace(auth.Signature),
			PaidAt:    now,
		},
	}
}
