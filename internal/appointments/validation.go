package appointments

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/wolfman30/clinic-appointments/internal/slots"
)

// FormErrorKey collects errors that do not belong to a single field.
const FormErrorKey = "_form"

const maxAge = 150

// FieldErrors maps request fields to user-facing messages.
type FieldErrors map[string][]string

func (f FieldErrors) add(field, msg string) {
	f[field] = append(f[field], msg)
}

// BookingRequest is the input of the booking transaction.
type BookingRequest struct {
	Name          string
	Age           *int
	ContactNumber string
	Address       string
	Email         string
	BloodPressure string
	DoctorID      string
	Date          time.Time
	Slot          slots.Slot
	Channel       Channel
	Payment       *PaymentAuthorization
}

func (r *BookingRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.ContactNumber = strings.TrimSpace(r.ContactNumber)
	r.Address = strings.TrimSpace(r.Address)
	r.Email = strings.TrimSpace(r.Email)
	r.BloodPressure = strings.TrimSpace(r.BloodPressure)
	r.DoctorID = strings.TrimSpace(r.DoctorID)
	r.Slot = slots.Slot(strings.TrimSpace(string(r.Slot)))
	if r.Channel == "" {
		r.Channel = ChannelClinic
	}
}

func validateRequest(r *BookingRequest, catalog *slots.Catalog) FieldErrors {
	errs := FieldErrors{}

	switch n := utf8.RuneCountInString(r.Name); {
	case n < 2:
		errs.add("name", "Name must be at least 2 characters.")
	case n > 100:
		errs.add("name", "Name must be 100 characters or less.")
	}
	if r.Age != nil {
		switch {
		case *r.Age <= 0:
			errs.add("age", "Age must be a positive number.")
		case *r.Age > maxAge:
			errs.add("age", "Age must be 150 or less.")
		}
	}
	if r.ContactNumber != "" && len(r.ContactNumber) < 10 {
		errs.add("contactNumber", "Contact number must be at least 10 digits.")
	}
	if utf8.RuneCountInString(r.Address) > 200 {
		errs.add("address", "Address must be 200 characters or less.")
	}
	if utf8.RuneCountInString(r.BloodPressure) > 20 {
		errs.add("bp", "BP value must be 20 characters or less.")
	}
	if r.Email != "" && !strings.Contains(r.Email, "@") {
		errs.add("email", "Invalid email address.")
	}
	if r.DoctorID == "" {
		errs.add("doctorId", "Please select a doctor.")
	}
	if r.Date.IsZero() {
		errs.add("preferredDate", "A date for the appointment is required.")
	}
	if r.Slot == "" {
		errs.add("preferredTime", "Please select a preferred time.")
	} else if !catalog.Contains(r.Slot) {
		errs.add("preferredTime", "The selected time is not a bookable slot.")
	}
	if !r.Channel.Valid() {
		errs.add("appointmentType", "Appointment type must be online or clinic.")
	}
	return errs
}
