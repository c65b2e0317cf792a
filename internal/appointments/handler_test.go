package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	err   error
	calls int
}

func (s *stubVerifier) Verify(orderID, paymentID, signature string) error {
	s.calls++
	return s.err
}

type stubHistory struct {
	events []StatusEvent
	err    error
}

func (s stubHistory) History(context.Context, string) ([]StatusEvent, error) {
	return s.events, s.err
}

func newTestRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/appointments", h.CreateAppointment)
	r.Get("/api/slots", h.ListSlots)
	r.Get("/api/doctors/{doctorID}/booked-slots", h.BookedSlots)
	r.Get("/admin/appointments/{appointmentID}", h.GetAppointment)
	r.Post("/admin/appointments/{appointmentID}/status", h.UpdateStatus)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const clinicBody = `{"name":"Asha Rao","doctorId":"doc1","preferredDate":"2025-06-10","preferredTime":"02:30 PM","appointmentType":"clinic"}`

func TestHandler_CreateAppointment(t *testing.T) {
	router := newTestRouter(NewHandler(newTestService(NewMemoryStore()), nil, nil))

	rec := do(t, router, http.MethodPost, "/api/appointments", clinicBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, true, created["success"])
	assert.Equal(t, true, created["slotAvailable"])
	appt := created["appointment"].(map[string]any)
	assert.Equal(t, "Scheduled", appt["status"])
	assert.Equal(t, "PayAtClinic", appt["paymentStatus"])

	rec = do(t, router, http.MethodPost, "/api/appointments", clinicBody)
	require.Equal(t, http.StatusConflict, rec.Code)
	var conflict struct {
		Success       bool     `json:"success"`
		SlotAvailable *bool    `json:"slotAvailable"`
		Suggestions   []string `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conflict))
	assert.False(t, conflict.Success)
	require.NotNil(t, conflict.SlotAvailable)
	assert.False(t, *conflict.SlotAvailable)
	assert.Equal(t, []string{"03:00 PM", "03:30 PM", "04:00 PM"}, conflict.Suggestions)
}

func TestHandler_CreateAppointmentRejections(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantKey  string
	}{
		{name: "malformed json", body: `{`, wantCode: http.StatusBadRequest, wantKey: FormErrorKey},
		{name: "bad date", body: `{"name":"Asha","doctorId":"doc1","preferredDate":"10/06/2025","preferredTime":"02:30 PM"}`, wantCode: http.StatusUnprocessableEntity, wantKey: "preferredDate"},
		{name: "missing fields", body: `{"name":"Asha"}`, wantCode: http.StatusUnprocessableEntity, wantKey: "doctorId"},
		{name: "past", body: `{"name":"Asha","doctorId":"doc1","preferredDate":"2025-06-01","preferredTime":"02:30 PM"}`, wantCode: http.StatusUnprocessableEntity, wantKey: "preferredDate"},
	}
	router := newTestRouter(NewHandler(newTestService(NewMemoryStore()), nil, nil))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/appointments", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
			var body Result
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Contains(t, body.Errors, tt.wantKey)
		})
	}
}

func TestHandler_CreateAppointmentStorageFailure(t *testing.T) {
	svc := newTestService(failingStore{queryErr: errors.New("connection refused")})
	rec := do(t, newTestRouter(NewHandler(svc, nil, nil)), http.MethodPost, "/api/appointments", clinicBody)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), FormErrorKey)
}

const onlineBody = `{"name":"Asha Rao","doctorId":"doc1","preferredDate":"2025-06-10","preferredTime":"11:00 AM","appointmentType":"online",
	"payment":{"paymentId":"pay_1","orderId":"order_1","signature":"sig"}}`

func TestHandler_PaymentSignatureChecked(t *testing.T) {
	verifier := &stubVerifier{err: errors.New("mismatch")}
	store := &countingStore{Store: NewMemoryStore()}
	h := NewHandler(newTestService(store), nil, nil).WithVerifier(verifier)

	rec := do(t, newTestRouter(h), http.MethodPost, "/api/appointments", onlineBody)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Contains(t, rec.Body.String(), `"payment"`)
	assert.Equal(t, 1, verifier.calls)
	assert.Zero(t, store.inserts)

	verifier.err = nil
	rec = do(t, newTestRouter(h), http.MethodPost, "/api/appointments", onlineBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"Paid & Scheduled"`)
}

func TestHandler_PartialTripleSkipsVerification(t *testing.T) {
	verifier := &stubVerifier{err: errors.New("should not be called")}
	h := NewHandler(newTestService(NewMemoryStore()), nil, nil).WithVerifier(verifier)
	body := `{"name":"Asha Rao","doctorId":"doc1","preferredDate":"2025-06-10","preferredTime":"11:00 AM","appointmentType":"online","payment":{"orderId":"order_1"}}`

	rec := do(t, newTestRouter(h), http.MethodPost, "/api/appointments", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"paymentStatus":"Pending"`)
	assert.Zero(t, verifier.calls)
}

func TestHandler_ListSlots(t *testing.T) {
	rec := do(t, newTestRouter(NewHandler(newTestService(NewMemoryStore()), nil, nil)), http.MethodGet, "/api/slots", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Slots []string `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Slots, 17)
	assert.Equal(t, "09:00 AM", body.Slots[0])
	assert.Equal(t, "05:00 PM", body.Slots[16])
}

func TestHandler_BookedSlots(t *testing.T) {
	svc := newTestService(NewMemoryStore())
	require.True(t, svc.Book(context.Background(), clinicRequest("09:30 AM")).Success)
	router := newTestRouter(NewHandler(svc, nil, nil))

	rec := do(t, router, http.MethodGet, "/api/doctors/doc1/booked-slots?date=2025-06-10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		DoctorID  string   `json:"doctorId"`
		Booked    []string `json:"booked"`
		Available []string `json:"available"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "doc1", body.DoctorID)
	assert.Equal(t, []string{"09:30 AM"}, body.Booked)
	assert.Len(t, body.Available, 16)
	assert.NotContains(t, body.Available, "09:30 AM")

	rec = do(t, router, http.MethodGet, "/api/doctors/doc1/booked-slots?date=tomorrow", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_AdminGetAndTransition(t *testing.T) {
	svc := newTestService(NewMemoryStore())
	booked := svc.Book(context.Background(), clinicRequest("09:30 AM"))
	require.True(t, booked.Success)
	id := booked.Appointment.ID

	h := NewHandler(svc, nil, nil).WithHistory(stubHistory{events: []StatusEvent{{AppointmentID: id, From: StatusScheduled, To: StatusCancelled, Actor: "admin"}}})
	router := newTestRouter(h)

	rec := do(t, router, http.MethodGet, "/admin/appointments/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"history"`)

	rec = do(t, router, http.MethodPost, "/admin/appointments/"+id+"/status", `{"status":"Refunded"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, router, http.MethodPost, "/admin/appointments/"+id+"/status", `{"status":"Cancelled"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"Cancelled"`)

	rec = do(t, router, http.MethodPost, "/admin/appointments/"+id+"/status", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, "/admin/appointments/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_PaymentIgnoredWithoutVerifier(t *testing.T) {
	store := &countingStore{Store: NewMemoryStore()}
	h := NewHandler(newTestService(store), time.UTC, nil)
	body := `{"name":"Asha Rao","doctorId":"doc1","preferredDate":"2025-06-10","preferredTime":"11:00 AM","appointmentType":"online",
		"payment":{"paymentId":"fake","orderId":"fake","signature":"fake"}}`

	rec := do(t, newTestRouter(h), http.MethodPost, "/api/appointments", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"Scheduled"`)
	assert.Contains(t, rec.Body.String(), `"paymentStatus":"Pending"`)
	assert.NotContains(t, rec.Body.String(), `"paymentId":"fake"`)
	assert.Equal(t, 1, store.inserts)
}

type blockingHistory struct{}

func (blockingHistory) History(ctx context.Context, _ string) ([]StatusEvent, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestHandler_HistoryLookupIsBounded(t *testing.T) {
	svc := newTestService(NewMemoryStore()).WithStorageTimeout(50 * time.Millisecond)
	booked := svc.Book(context.Background(), clinicRequest("09:30 AM"))
	require.True(t, booked.Success)
	router := newTestRouter(NewHandler(svc, nil, nil).WithHistory(blockingHistory{}))

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- do(t, router, http.MethodGet, "/admin/appointments/"+booked.Appointment.ID, "")
	}()

	select {
	case rec := <-done:
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), `"history"`)
	case <-time.After(2 * time.Second):
		t.Fatal("history lookup was not bounded by the storage timeout")
	}
}
