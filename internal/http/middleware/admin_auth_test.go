package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func serveAdmin(t *testing.T, secret, header string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/admin/appointments/1", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	var actor string
	AdminJWT(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor = AdminActor(r.Context())
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, req)
	return rec, actor
}

func TestAdminJWT(t *testing.T) {
	valid := signedAdminToken(t, "secret", "front-desk", time.Now().Add(5*time.Minute))

	tests := []struct {
		name      string
		secret    string
		header    string
		wantCode  int
		wantActor string
	}{
		{name: "auth disabled", secret: "", header: "Bearer " + valid, wantCode: http.StatusUnauthorized},
		{name: "missing header", secret: "secret", wantCode: http.StatusUnauthorized},
		{name: "not bearer", secret: "secret", header: "Basic abc", wantCode: http.StatusUnauthorized},
		{name: "wrong key", secret: "other", header: "Bearer " + valid, wantCode: http.StatusUnauthorized},
		{name: "expired", secret: "secret", header: "Bearer " + signedAdminToken(t, "secret", "x", time.Now().Add(-time.Minute)), wantCode: http.StatusUnauthorized},
		{name: "no expiry", secret: "secret", header: "Bearer " + signedAdminTokenNoExpiry(t, "secret"), wantCode: http.StatusUnauthorized},
		{name: "valid", secret: "secret", header: "Bearer " + valid, wantCode: http.StatusOK, wantActor: "front-desk"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, actor := serveAdmin(t, tt.secret, tt.header)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantActor, actor)
		})
	}
}

func TestAdminActorDefaults(t *testing.T) {
	assert.Equal(t, "admin", AdminActor(context.Background()))
	ctx := context.WithValue(context.Background(), adminClaimsKey, jwt.RegisteredClaims{})
	assert.Equal(t, "admin", AdminActor(ctx))
}

func signedAdminToken(t *testing.T, secret, subject string, expires time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func signedAdminTokenNoExpiry(t *testing.T, secret string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "x"}).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
