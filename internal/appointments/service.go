package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/clinic-appointments/internal/doctors"
	"github.com/wolfman30/clinic-appointments/internal/notify"
	"github.com/wolfman30/clinic-appointments/internal/observability/metrics"
	"github.com/wolfman30/clinic-appointments/internal/patients"
	"github.com/wolfman30/clinic-appointments/internal/slots"
	"github.com/wolfman30/clinic-appointments/pkg/logging"
)

var tracer = otel.Tracer("clinic.internal.appointments")

// Outcome classifies a booking result.
type Outcome string

const (
	OutcomeBooked          Outcome = "booked"
	OutcomeConflict        Outcome = "conflict"
	OutcomeInvalid         Outcome = "invalid"
	OutcomePastAppointment Outcome = "past_appointment"
	OutcomeStorageError    Outcome = "storage_error"
)

const (
	maxSuggestions   = 3
	sideEffectBudget = 10 * time.Second
)

// Result is the answer of a booking attempt. Conflicts and validation
// failures are results, not errors.
type Result struct {
	Success       bool         `json:"success"`
	Appointment   *Appointment `json:"appointment,omitempty"`
	Message       string       `json:"message,omitempty"`
	Errors        FieldErrors  `json:"errors,omitempty"`
	SlotAvailable *bool        `json:"slotAvailable,omitempty"`
	Suggestions   []slots.Slot `json:"suggestions,omitempty"`
	Outcome       Outcome      `json:"-"`
}

// Retryable reports whether the same request may succeed later unchanged.
func (r Result) Retryable() bool {
	return r.Outcome == OutcomeStorageError
}

// PatientRegistry records the patient behind a booking.
type PatientRegistry interface {
	Ensure(ctx context.Context, p patients.Profile) (*patients.Patient, error)
}

// DoctorLookup resolves doctor display names for notifications.
type DoctorLookup interface {
	Get(ctx context.Context, id string) (*doctors.Doctor, error)
}

// TransitionRecorder keeps the history of status changes.
type TransitionRecorder interface {
	RecordTransition(ctx context.Context, event StatusEvent) error
}

// Service runs the booking transaction and lifecycle transitions.
type Service struct {
	store    Store
	checker  *Checker
	catalog  *slots.Catalog
	logger   *logging.Logger
	metrics  *metrics.BookingMetrics
	patients PatientRegistry
	doctors  DoctorLookup
	notifier notify.EmailSender
	audit    TransitionRecorder
	gateway  string
	timeout  time.Duration
	now      func() time.Time
}

func NewService(store Store, catalog *slots.Catalog, logger *logging.Logger) *Service {
	if store == nil {
		panic("appointments: store required")
	}
	if catalog == nil {
		panic("appointments: slot catalog required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		store:   store,
		catalog: catalog,
		logger:  logger,
		gateway: "razorpay",
		timeout: 5 * time.Second,
		now:     time.Now,
	}
	s.checker = NewChecker(store, s.timeout)
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// WithStorageTimeout bounds every store call made by the service.
func (s *Service) WithStorageTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
		s.checker = NewChecker(s.store, d)
	}
	return s
}

func (s *Service) WithPatientRegistry(r PatientRegistry) *Service {
	s.patients = r
	return s
}

func (s *Service) WithDoctors(d DoctorLookup) *Service {
	s.doctors = d
	return s
}

func (s *Service) WithNotifier(n notify.EmailSender) *Service {
	s.notifier = n
	return s
}

func (s *Service) WithMetrics(m *metrics.BookingMetrics) *Service {
	s.metrics = m
	return s
}

func (s *Service) WithAudit(a TransitionRecorder) *Service {
	s.audit = a
	return s
}

// WithGateway names the gateway recorded on paid appointments.
func (s *Service) WithGateway(name string) *Service {
	if name != "" {
		s.gateway = name
	}
	return s
}

// Catalog returns the slot catalog the service books against.
func (s *Service) Catalog() *slots.Catalog {
	return s.catalog
}

// BookedSlots returns the active slots of a doctor-day.
func (s *Service) BookedSlots(ctx context.Context, doctorID string, date time.Time) (SlotSet, error) {
	return s.checker.BookedSlots(ctx, doctorID, date)
}

// Book validates the request, checks availability, commits the appointment
// and runs best-effort side effects.
func (s *Service) Book(ctx context.Context, req BookingRequest) Result {
	started := time.Now()
	ctx, span := tracer.Start(ctx, "appointments.book")
	defer span.End()

	res := s.book(ctx, req)

	span.SetAttributes(
		attribute.String("clinic.doctor_id", req.DoctorID),
		attribute.String("clinic.slot", string(req.Slot)),
		attribute.String("clinic.channel", string(req.Channel)),
		attribute.String("clinic.booking_outcome", string(res.Outcome)),
	)
	if res.Outcome == OutcomeStorageError {
		span.SetStatus(codes.Error, "storage unavailable")
	}
	s.metrics.ObserveBooking(string(res.Outcome), time.Since(started).Seconds())
	return res
}

func (s *Service) book(ctx context.Context, req BookingRequest) Result {
	req.normalize()
	if errs := validateRequest(&req, s.catalog); len(errs) > 0 {
		return Result{
			Message: "Invalid form data. Please check the fields.",
			Errors:  errs,
			Outcome: OutcomeInvalid,
		}
	}

	now := s.now()
	date := midnight(req.Date)
	scheduledAt, err := slots.Combine(date, req.Slot)
	if err != nil {
		errs := FieldErrors{}
		errs.add("preferredTime", "The selected time is not a bookable slot.")
		return Result{Message: "Invalid form data. Please check the fields.", Errors: errs, Outcome: OutcomeInvalid}
	}
	if !scheduledAt.After(now) {
		errs := FieldErrors{}
		errs.add("preferredDate", "Cannot book an appointment in the past.")
		return Result{
			Message: "Cannot book an appointment in the past.",
			Errors:  errs,
			Outcome: OutcomePastAppointment,
		}
	}

	log := s.logger.With("doctor_id", req.DoctorID, "date", date.Format(DateLayout), "slot", string(req.Slot))

	if s.doctors != nil {
		lookupCtx, cancel := context.WithTimeout(ctx, s.timeout)
		_, err := s.doctors.Get(lookupCtx, req.DoctorID)
		cancel()
		switch {
		case errors.Is(err, doctors.ErrNotFound):
			log.Info("unknown doctor")
			return unknownDoctor()
		case err != nil:
			log.Error("doctor lookup failed", "error", err)
			return storageFailure()
		}
	}

	booked, err := s.checker.BookedSlots(ctx, req.DoctorID, date)
	if err != nil {
		log.Error("availability check failed", "error", err)
		return storageFailure()
	}
	if booked.Has(req.Slot) {
		log.Info("slot already booked")
		return s.conflict(req.Slot, booked, date, now)
	}

	corr := Correlate(req.Channel, req.Payment, s.gateway, now)
	appt := &Appointment{
		PatientName:   req.Name,
		Age:           req.Age,
		ContactNumber: req.ContactNumber,
		Address:       req.Address,
		Email:         req.Email,
		BloodPressure: req.BloodPressure,
		DoctorID:      req.DoctorID,
		Date:          date,
		Slot:          req.Slot,
		ScheduledAt:   scheduledAt,
		Channel:       req.Channel,
		Status:        corr.Status,
		Payment:       corr.Payment,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	insertCtx, cancel := context.WithTimeout(ctx, s.timeout)
	id, err := s.store.Insert(insertCtx, appt)
	cancel()
	switch {
	case errors.Is(err, ErrSlotTaken):
		log.Info("slot taken by a concurrent booking")
		latest, rerr := s.checker.BookedSlots(ctx, req.DoctorID, date)
		if rerr != nil {
			latest = booked
		}
		latest[req.Slot] = struct{}{}
		return s.conflict(req.Slot, latest, date, now)
	case errors.Is(err, ErrUnknownDoctor):
		return unknownDoctor()
	case err != nil:
		log.Error("appointment insert failed", "error", err)
		return storageFailure()
	}
	appt.ID = id

	log.Info("appointment booked", "appointment_id", id, "status", string(appt.Status), "payment_status", string(appt.Payment.PaymentStatus()))
	s.afterCommit(ctx, appt)

	available := true
	return Result{
		Success:       true,
		Appointment:   appt,
		Message:       bookedMessage(appt),
		SlotAvailable: &available,
		Outcome:       OutcomeBooked,
	}
}

func (s *Service) conflict(requested slots.Slot, booked SlotSet, date, now time.Time) Result {
	available := false
	res := Result{
		SlotAvailable: &available,
		Suggestions:   suggest(s.catalog, requested, booked, date, now, maxSuggestions),
		Outcome:       OutcomeConflict,
	}
	if len(res.Suggestions) == 0 {
		res.Message = "The selected time slot is no longer available and no later slots are free on this day."
	} else {
		res.Message = "The selected time slot is no longer available."
	}
	return res
}

func unknownDoctor() Result {
	errs := FieldErrors{}
	errs.add("doctorId", "The selected doctor does not exist.")
	return Result{Message: "Invalid form data. Please check the fields.", Errors: errs, Outcome: OutcomeInvalid}
}

func storageFailure() Result {
	errs := FieldErrors{}
	errs.add(FormErrorKey, "Could not save the appointment. Please try again.")
	return Result{
		Message: "Database Error: Failed to create appointment.",
		Errors:  errs,
		Outcome: OutcomeStorageError,
	}
}

func bookedMessage(appt *Appointment) string {
	switch appt.Payment.(type) {
	case OnlinePaid:
		return "Your payment was successful and appointment is scheduled."
	case OnlinePending:
		return "Appointment reserved. Payment is pending."
	default:
		return "Appointment created successfully!"
	}
}

// suggest returns up to limit free slots after requested that are still in
// the future. When requested is not in the catalog any free future slot is
// eligible.
func suggest(catalog *slots.Catalog, requested slots.Slot, booked SlotSet, date, now time.Time, limit int) []slots.Slot {
	all := catalog.All()
	start := 0
	if idx, ok := catalog.Index(requested); ok {
		start = idx + 1
	}

	var out []slots.Slot
	for _, candidate := range all[start:] {
		if len(out) == limit {
			break
		}
		if booked.Has(candidate) {
			continue
		}
		at, err := slots.Combine(date, candidate)
		if err != nil || !at.After(now) {
			continue
		}
		out = append(out, candidate)
	}
	return out
}

// afterCommit runs patient registration and the confirmation email. Failures
// are logged and counted, never returned.
func (s *Service) afterCommit(ctx context.Context, appt *Appointment) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectBudget)
	defer cancel()
	log := s.logger.With("appointment_id", appt.ID)

	if s.patients != nil && appt.ContactNumber != "" {
		_, err := s.patients.Ensure(ctx, patients.Profile{
			Name:          appt.PatientName,
			ContactNumber: appt.ContactNumber,
			Age:           appt.Age,
			Address:       appt.Address,
		})
		if err != nil {
			log.Warn("patient registry update failed", "error", err)
			s.metrics.ObserveSideEffectFailure("patient_registry")
		}
	}

	if s.notifier != nil && appt.Email != "" {
		msg := notify.ConfirmationMessage(notify.Confirmation{
			PatientName:   appt.PatientName,
			Email:         appt.Email,
			Reference:     appt.ID,
			DoctorName:    s.doctorName(ctx, appt.DoctorID),
			Date:          appt.Date.Format(DateLayout),
			Slot:          string(appt.Slot),
			Channel:       string(appt.Channel),
			Status:        string(appt.Status),
			PaymentStatus: string(appt.Payment.PaymentStatus()),
		})
		if err := s.notifier.Send(ctx, msg); err != nil {
			log.Warn("confirmation email failed", "error", err)
			s.metrics.ObserveSideEffectFailure("confirmation_email")
		}
	}
}

func (s *Service) doctorName(ctx context.Context, id string) string {
	if s.doctors == nil {
		return ""
	}
	d, err := s.doctors.Get(ctx, id)
	if err != nil || d == nil {
		return ""
	}
	return d.Name
}

// Get returns one appointment.
func (s *Service) Get(ctx context.Context, id string) (*Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	appt, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, asStorageError("get", err)
	}
	return appt, nil
}

// Transition moves an appointment to status to. actor is recorded in the
// audit trail.
func (s *Service) Transition(ctx context.Context, id string, to Status, actor string) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointments.transition")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.appointment_id", id), attribute.String("clinic.status_to", string(to)))

	appt, err := s.transition(ctx, id, to, actor)
	s.metrics.ObserveTransition(string(to), err == nil)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return appt, nil
}

func (s *Service) transition(ctx context.Context, id string, to Status, actor string) (*Appointment, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	appt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	from := appt.Status
	if !CanTransition(from, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	now := s.now()
	payment := paymentAfterTransition(appt.Payment, to, now)

	updateCtx, cancel := context.WithTimeout(ctx, s.timeout)
	err = s.store.UpdateStatus(updateCtx, id, from, to, payment, now)
	cancel()
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrStatusChanged) {
			return nil, err
		}
		return nil, asStorageError("update status", err)
	}

	appt.Status = to
	appt.Payment = payment
	appt.UpdatedAt = now
	s.logger.Info("appointment status changed", "appointment_id", id, "from", string(from), "to", string(to), "actor", actor)

	if s.audit != nil {
		event := StatusEvent{AppointmentID: id, From: from, To: to, Actor: actor, At: now}
		auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		err := s.audit.RecordTransition(auditCtx, event)
		cancel()
		if err != nil {
			s.logger.Warn("status audit failed", "appointment_id", id, "error", err)
			s.metrics.ObserveSideEffectFailure("status_audit")
		}
	}
	return appt, nil
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
