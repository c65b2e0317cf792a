package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	httpmiddleware "github.com/wolfman30/clinic-appointments/internal/http/middleware"
	"github.com/wolfman30/clinic-appointments/internal/slots"
	"github.com/wolfman30/clinic-appointments/pkg/logging"
)

// SignatureVerifier checks a gateway payment signature.
type SignatureVerifier interface {
	Verify(orderID, paymentID, signature string) error
}

// HistoryReader returns the status history of an appointment.
type HistoryReader interface {
	History(ctx context.Context, appointmentID string) ([]StatusEvent, error)
}

// Handler serves the booking, availability and admin appointment endpoints.
type Handler struct {
	service  *Service
	verifier SignatureVerifier
	history  HistoryReader
	loc      *time.Location
	logger   *logging.Logger
}

func NewHandler(service *Service, loc *time.Location, logger *logging.Logger) *Handler {
	if service == nil {
		panic("appointments: service required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, loc: loc, logger: logger}
}

// WithVerifier enables payment signature checks on online bookings.
func (h *Handler) WithVerifier(v SignatureVerifier) *Handler {
	h.verifier = v
	return h
}

func (h *Handler) WithHistory(r HistoryReader) *Handler {
	h.history = r
	return h
}

type bookingPayload struct {
	Name            string                `json:"name"`
	Age             *int                  `json:"age"`
	ContactNumber   string                `json:"contactNumber"`
	Address         string                `json:"address"`
	Email           string                `json:"email"`
	BloodPressure   string                `json:"bp"`
	DoctorID        string                `json:"doctorId"`
	PreferredDate   string                `json:"preferredDate"`
	PreferredTime   string                `json:"preferredTime"`
	AppointmentType string                `json:"appointmentType"`
	Payment         *PaymentAuthorization `json:"payment"`
}

// CreateAppointment handles POST /api/appointments.
func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var payload bookingPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		errs := FieldErrors{}
		errs.add(FormErrorKey, "Request body must be valid JSON.")
		writeJSON(w, http.StatusBadRequest, Result{Message: "Invalid request body.", Errors: errs})
		return
	}

	req := BookingRequest{
		Name:          payload.Name,
		Age:           payload.Age,
		ContactNumber: payload.ContactNumber,
		Address:       payload.Address,
		Email:         payload.Email,
		BloodPressure: payload.BloodPressure,
		DoctorID:      payload.DoctorID,
		Slot:          slots.Slot(payload.PreferredTime),
		Channel:       Channel(strings.ToLower(strings.TrimSpace(payload.AppointmentType))),
		Payment:       payload.Payment,
	}
	if raw := strings.TrimSpace(payload.PreferredDate); raw != "" {
		date, err := time.ParseInLocation(DateLayout, raw, h.loc)
		if err != nil {
			errs := FieldErrors{}
			errs.add("preferredDate", "Date must be in YYYY-MM-DD format.")
			writeJSON(w, http.StatusUnprocessableEntity, Result{Message: "Invalid form data. Please check the fields.", Errors: errs})
			return
		}
		req.Date = date
	}

	if req.Payment != nil && h.verifier == nil {
		// Unverifiable authorizations never mark an appointment paid.
		h.logger.Warn("payment details ignored, no signature verifier configured", "order_id", req.Payment.OrderID)
		req.Payment = nil
	}
	if req.Channel == ChannelOnline && req.Payment.Complete() {
		p := req.Payment
		if err := h.verifier.Verify(strings.TrimSpace(p.OrderID), strings.TrimSpace(p.PaymentID), strings.TrimSpace(p.Signature)); err != nil {
			h.logger.Warn("payment signature rejected", "order_id", p.OrderID, "error", err)
			errs := FieldErrors{}
			errs.add("payment", "Payment verification failed.")
			writeJSON(w, http.StatusPaymentRequired, Result{Message: "Payment verification failed. The appointment was not booked.", Errors: errs})
			return
		}
	}

	res := h.service.Book(r.Context(), req)
	writeJSON(w, statusForOutcome(res.Outcome), res)
}

func statusForOutcome(o Outcome) int {
	switch o {
	case OutcomeBooked:
		return http.StatusCreated
	case OutcomeConflict:
		return http.StatusConflict
	case OutcomeInvalid, OutcomePastAppointment:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusServiceUnavailable
	}
}

// ListSlots handles GET /api/slots.
func (h *Handler) ListSlots(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"slots": h.service.Catalog().All()})
}

// BookedSlots handles GET /api/doctors/{doctorID}/booked-slots?date=YYYY-MM-DD.
func (h *Handler) BookedSlots(w http.ResponseWriter, r *http.Request) {
	doctorID := chi.URLParam(r, "doctorID")
	raw := r.URL.Query().Get("date")
	date, err := time.ParseInLocation(DateLayout, raw, h.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date query parameter must be YYYY-MM-DD")
		return
	}

	booked, err := h.service.BookedSlots(r.Context(), doctorID, date)
	if err != nil {
		h.logger.Error("booked slots lookup failed", "doctor_id", doctorID, "date", raw, "error", err)
		writeError(w, http.StatusServiceUnavailable, "availability is temporarily unavailable")
		return
	}

	catalog := h.service.Catalog()
	available := make([]slots.Slot, 0, catalog.Len())
	for _, s := range catalog.All() {
		if !booked.Has(s) {
			available = append(available, s)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"doctorId":  doctorID,
		"date":      raw,
		"booked":    booked.Sorted(catalog),
		"available": available,
	})
}

// GetAppointment handles GET /admin/appointments/{appointmentID}.
func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "appointmentID")
	appt, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, id, err)
		return
	}

	response := map[string]any{"appointment": appt}
	if h.history != nil {
		ctx, cancel := context.WithTimeout(r.Context(), h.service.timeout)
		events, err := h.history.History(ctx, id)
		cancel()
		if err != nil {
			h.logger.Warn("status history lookup failed", "appointment_id", id, "error", err)
		} else {
			response["history"] = events
		}
	}
	writeJSON(w, http.StatusOK, response)
}

// UpdateStatus handles POST /admin/appointments/{appointmentID}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "appointmentID")
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	appt, err := h.service.Transition(r.Context(), id, Status(body.Status), httpmiddleware.AdminActor(r.Context()))
	if err != nil {
		h.writeServiceError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointment": appt})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, id string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "appointment not found")
	case errors.Is(err, ErrInvalidTransition):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrStatusChanged):
		writeError(w, http.StatusConflict, "appointment status changed, reload and retry")
	default:
		h.logger.Error("appointment request failed", "appointment_id", id, "error", err)
		writeError(w, http.StatusServiceUnavailable, "appointments are temporarily unavailable")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
