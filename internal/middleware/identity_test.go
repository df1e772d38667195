package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"colorold/internal/domain"
)

func signToken(t *testing.T, secret []byte, method jwt.SigningMethod, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestIdentity(t *testing.T) {
	secret := []byte("test-secret")
	valid := signToken(t, secret, jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	expired := signToken(t, secret, jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	wrongKey := signToken(t, []byte("other"), jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	noExpiry := signToken(t, secret, jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "user-42"})

	tests := []struct {
		name       string
		secret     []byte
		auth       string
		wantStatus int
		want       domain.Identity
	}{
		{"guest", secret, "", http.StatusOK, domain.Identity{Key: "203.0.113.9"}},
		{"valid token", secret, "Bearer " + valid, http.StatusOK, domain.Identity{Key: "user-42", Authenticated: true}},
		{"expired token", secret, "Bearer " + expired, http.StatusUnauthorized, domain.Identity{}},
		{"wrong key", secret, "Bearer " + wrongKey, http.StatusUnauthorized, domain.Identity{}},
		{"missing expiry", secret, "Bearer " + noExpiry, http.StatusUnauthorized, domain.Identity{}},
		{"auth disabled", nil, "Bearer " + valid, http.StatusOK, domain.Identity{Key: "203.0.113.9"}},
		{"other scheme", secret, "Basic abc", http.StatusOK, domain.Identity{Key: "203.0.113.9"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got domain.Identity
			h := Identity(tc.secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = IdentityFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodPost, "/v1/restore", nil)
			req.RemoteAddr = "203.0.113.9:5000"
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if got != tc.want {
				t.Fatalf("identity = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestIdentityFromContextDefault(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := IdentityFromContext(req.Context()); got.Key != UnknownIP || got.Authenticated {
		t.Fatalf("identity = %+v", got)
	}
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://colorold.app"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/v1/restore", nil)
	req.Header.Set("Origin", "https://colorold.app")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "https://colorold.app" {
		t.Fatalf("preflight = %d %v", rec.Code, rec.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/usage", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTeapot || rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("disallowed origin = %d %v", rec.Code, rec.Header())
	}
}
