// Package appointments implements slot availability, the booking transaction
// and the appointment lifecycle.
package appointments

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/wolfman30/clinic-appointments/internal/slots"
)

// DateLayout is the wire and storage format of appointment dates.
const DateLayout = "2006-01-02"

// Channel is the consultation type.
type Channel string

const (
	ChannelOnline Channel = "online"
	ChannelClinic Channel = "clinic"
)

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	return c == ChannelOnline || c == ChannelClinic
}

// PaymentStatus is the payment state recorded on an appointment.
type PaymentStatus string

const (
	PaymentPaid        PaymentStatus = "Paid"
	PaymentPending     PaymentStatus = "Pending"
	PaymentFailed      PaymentStatus = "Failed"
	PaymentPayAtClinic PaymentStatus = "PayAtClinic"
	PaymentRefunded    PaymentStatus = "Refunded"
)

// Payment is the outcome of payment correlation. Each variant carries only the
// fields valid for that outcome.
type Payment interface {
	PaymentStatus() PaymentStatus
	Method() string
	isPayment()
}

// ClinicPayment is settled in person at the clinic.
type ClinicPayment struct{}

func (ClinicPayment) PaymentStatus() PaymentStatus { return PaymentPayAtClinic }
func (ClinicPayment) Method() string               { return "offline" }
func (ClinicPayment) isPayment()                   {}

// OnlinePending is an online booking whose payment has not been authorized.
type OnlinePending struct{}

func (OnlinePending) PaymentStatus() PaymentStatus { return PaymentPending }
func (OnlinePending) Method() string               { return "" }
func (OnlinePending) isPayment()                   {}

// OnlinePaid records a gateway authorization captured before commit.
type OnlinePaid struct {
	Gateway   string
	PaymentID string
	OrderID   string
	Signature string
	PaidAt    time.Time
}

func (OnlinePaid) PaymentStatus() PaymentStatus { return PaymentPaid }
func (p OnlinePaid) Method() string             { return p.Gateway }
func (OnlinePaid) isPayment()                   {}

// OnlineFailed is a pending online booking an administrator marked as failed.
type OnlineFailed struct{}

func (OnlineFailed) PaymentStatus() PaymentStatus { return PaymentFailed }
func (OnlineFailed) Method() string               { return "" }
func (OnlineFailed) isPayment()                   {}

// OnlineRefunded is a paid booking whose payment was returned.
type OnlineRefunded struct {
	OnlinePaid
	RefundedAt time.Time
}

func (OnlineRefunded) PaymentStatus() PaymentStatus { return PaymentRefunded }
func (OnlineRefunded) isPayment()                   {}

// Appointment is a booked (doctor, date, slot) for a patient.
type Appointment struct {
	ID            string
	PatientName   string
	Age           *int
	ContactNumber string
	Address       string
	Email         string
	BloodPressure string
	DoctorID      string
	Date          time.Time
	Slot          slots.Slot
	ScheduledAt   time.Time
	Channel       Channel
	Status        Status
	Payment       Payment
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// paymentColumns is the flattened form of a Payment used by JSON and SQL.
type paymentColumns struct {
	Status     PaymentStatus
	Method     string
	PaymentID  string
	OrderID    string
	Signature  string
	PaidAt     *time.Time
	RefundedAt *time.Time
}

func flattenPayment(p Payment) paymentColumns {
	if p == nil {
		return paymentColumns{}
	}
	cols := paymentColumns{Status: p.PaymentStatus(), Method: p.Method()}
	var paid *OnlinePaid
	switch v := p.(type) {
	case OnlinePaid:
		paid = &v
	case OnlineRefunded:
		paid = &v.OnlinePaid
		refundedAt := v.RefundedAt
		cols.RefundedAt = &refundedAt
	}
	if paid != nil {
		paidAt := paid.PaidAt
		cols.PaymentID = paid.PaymentID
		cols.OrderID = paid.OrderID
		cols.Signature = paid.Signature
		cols.PaidAt = &paidAt
	}
	return cols
}

func paymentFromColumns(c paymentColumns) (Payment, error) {
	switch c.Status {
	case PaymentPayAtClinic:
		return ClinicPayment{}, nil
	case PaymentPending:
		return OnlinePending{}, nil
	case PaymentFailed:
		return OnlineFailed{}, nil
	case PaymentPaid, PaymentRefunded:
		paid := OnlinePaid{
			Gateway:   c.Method,
			PaymentID: c.PaymentID,
			OrderID:   c.OrderID,
			Signature: c.Signature,
		}
		if c.PaidAt != nil {
			paid.PaidAt = *c.PaidAt
		}
		if c.Status == PaymentPaid {
			return paid, nil
		}
		refunded := OnlineRefunded{OnlinePaid: paid}
		if c.RefundedAt != nil {
			refunded.RefundedAt = *c.RefundedAt
		}
		return refunded, nil
	default:
		return nil, fmt.Errorf("appointments: unknown payment status %q", c.Status)
	}
}

type appointmentJSON struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Age           *int          `json:"age,omitempty"`
	ContactNumber string        `json:"contactNumber,omitempty"`
	Address       string        `json:"address,omitempty"`
	Email         string        `json:"email,omitempty"`
	BloodPressure string        `json:"bp,omitempty"`
	DoctorID      string        `json:"doctorId"`
	Date          string        `json:"preferredDate"`
	Slot          slots.Slot    `json:"preferredTime"`
	ScheduledAt   time.Time     `json:"appointmentDateTime"`
	Channel       Channel       `json:"appointmentType"`
	Status        Status        `json:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus,omitempty"`
	PaymentMethod string        `json:"paymentMethod,omitempty"`
	PaymentID     string        `json:"paymentId,omitempty"`
	OrderID       string        `json:"orderId,omitempty"`
	Signature     string        `json:"signature,omitempty"`
	PaidAt        *time.Time    `json:"paidAt,omitempty"`
	RefundedAt    *time.Time    `json:"refundedAt,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// MarshalJSON flattens the payment variant into the appointment document.
func (a Appointment) MarshalJSON() ([]byte, error) {
	cols := flattenPayment(a.Payment)
	return json.Marshal(appointmentJSON{
		ID:            a.ID,
		Name:          a.PatientName,
		Age:           a.Age,
		ContactNumber: a.ContactNumber,
		Address:       a.Address,
		Email:         a.Email,
		BloodPressure: a.BloodPressure,
		DoctorID:      a.DoctorID,
		Date:          a.Date.Format(DateLayout),
		Slot:          a.Slot,
		ScheduledAt:   a.ScheduledAt,
		Channel:       a.Channel,
		Status:        a.Status,
		PaymentStatus: cols.Status,
		PaymentMethod: cols.Method,
		PaymentID:     cols.PaymentID,
		OrderID:       cols.OrderID,
		Signature:     cols.Signature,
		PaidAt:        cols.PaidAt,
		RefundedAt:    cols.RefundedAt,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	})
}

func (a *Appointment) clone() *Appointment {
	cp := *a
	if a.Age != nil {
		age := *a.Age
		cp.Age = &age
	}
	return &cp
}

// slotKey identifies a (doctor, date, slot) tuple.
type slotKey struct {
	doctorID string
	date     string
	slot     slots.Slot
}

func keyOf(doctorID string, date time.Time, slot slots.Slot) slotKey {
	return slotKey{doctorID: doctorID, date: date.Format(DateLayout), slot: slot}
}
