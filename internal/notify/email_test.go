package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{FromEmail: "clinic@example.com"}, nil)
	assert.Nil(t, sender)
}

func TestNewSendGridSender_DefaultFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{APIKey: "test-key", FromEmail: "clinic@example.com"}, nil)
	require.NotNil(t, sender)
	assert.Equal(t, "Easy Appointment", sender.fromName)
}

func TestSendGridSender_SendNilClient(t *testing.T) {
	sender := &SendGridSender{}
	err := sender.Send(context.Background(), EmailMessage{To: "a@example.com", Subject: "s", Body: "b"})
	assert.Error(t, err)
}

func TestSendGridSender_SendPostsToAPI(t *testing.T) {
	var gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender := NewSendGridSender(SendGridConfig{APIKey: "sg-key", FromEmail: "clinic@example.com"}, nil).
		WithBaseURL(srv.URL)
	err := sender.Send(context.Background(), EmailMessage{To: "asha@example.com", ToName: "Asha", Subject: "Booked", Body: "see you"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer sg-key", gotAuth)
	assert.Contains(t, gotBody, "asha@example.com")
	assert.Contains(t, gotBody, "Booked")
}

func TestSendGridSender_SendErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	sender := NewSendGridSender(SendGridConfig{APIKey: "bad", FromEmail: "clinic@example.com"}, nil).
		WithBaseURL(srv.URL)
	err := sender.Send(context.Background(), EmailMessage{To: "asha@example.com", Subject: "s", Body: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestStubEmailSender_Send(t *testing.T) {
	sender := NewStubEmailSender(nil)
	assert.NoError(t, sender.Send(context.Background(), EmailMessage{To: "a@example.com", Subject: "s"}))
}

func TestConfirmationMessage(t *testing.T) {
	msg := ConfirmationMessage(Confirmation{
		PatientName:   "Asha Rao",
		Email:         "asha@example.com",
		Reference:     "appt-1",
		DoctorName:    "Dr. Mehta",
		Date:          "2025-06-10",
		Slot:          "03:00 PM",
		Channel:       "clinic",
		Status:        "Scheduled",
		PaymentStatus: "Pay at Clinic",
	})

	assert.Equal(t, "asha@example.com", msg.To)
	assert.Equal(t, "Asha Rao", msg.ToName)
	assert.Equal(t, "Your appointment on 2025-06-10 at 03:00 PM", msg.Subject)
	assert.True(t, strings.HasPrefix(msg.Body, "Hello Asha Rao,"))
	assert.Contains(t, msg.Body, "with Dr. Mehta")
	assert.Contains(t, msg.Body, "Reference: appt-1")
}

func TestConfirmationMessage_DefaultDoctor(t *testing.T) {
	msg := ConfirmationMessage(Confirmation{PatientName: "Ravi", Date: "2025-06-10", Slot: "09:00 AM"})
	assert.Contains(t, msg.Body, "with your doctor")
}
