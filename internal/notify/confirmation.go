package notify

import (
	"fmt"
	"strings"
)

// Confirmation describes a booked appointment for the patient email.
type Confirmation struct {
	PatientName   string
	Email         string
	Reference     string
	DoctorName    string
	Date          string
	Slot          string
	Channel       string
	Status        string
	PaymentStatus string
}

// ConfirmationMessage renders the booking confirmation email.
func ConfirmationMessage(c Confirmation) EmailMessage {
	doctor := c.DoctorName
	if doctor == "" {
		doctor = "your doctor"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", c.PatientName)
	fmt.Fprintf(&b, "Your %s appointment with %s is booked for %s at %s.\n\n", c.Channel, doctor, c.Date, c.Slot)
	fmt.Fprintf(&b, "Status: %s\n", c.Status)
	fmt.Fprintf(&b, "Payment: %s\n", c.PaymentStatus)
	fmt.Fprintf(&b, "Reference: %s\n", c.Reference)

	return EmailMessage{
		To:      c.Email,
		ToName:  c.PatientName,
		Subject: fmt.Sprintf("Your appointment on %s at %s", c.Date, c.Slot),
		Body:    b.String(),
	}
}
