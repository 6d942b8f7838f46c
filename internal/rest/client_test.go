package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"vecta-client/internal/config"
	"vecta-client/internal/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

func newTestClient(baseURL string) *Client {
	return NewClient(config.BackendConfig{
		BaseURL:        baseURL,
		RequestTimeout: 5 * time.Second,
		FlagCacheTTL:   time.Minute,
	}, logger.NopLogger{})
}

func envelope(success bool, message string, data interface{}) []byte {
	raw, _ := json.Marshal(map[string]interface{}{
		"success": success,
		"message": message,
		"data":    data,
	})
	return raw
}

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": "user-1", "exp": expiresAt.Unix()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestLoginRetainsToken(t *testing.T) {
	token := signedToken(t, time.Now().Add(time.Hour))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var creds Credentials
		json.NewDecoder(r.Body).Decode(&creds)
		if creds.Email != "ana@example.com" {
			t.Errorf("email = %q", creds.Email)
		}
		w.Write(envelope(true, "ok", map[string]string{"token": token}))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	err := client.Login(context.Background(), Credentials{Email: "ana@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if client.Token() != token {
		t.Errorf("Token() = %q, want the login token", client.Token())
	}
	if !client.TokenValid() {
		t.Error("TokenValid() = false for a fresh token")
	}
}

func TestTokenValid(t *testing.T) {
	client := newTestClient("http://unused")

	if client.TokenValid() {
		t.Error("TokenValid() = true with no token")
	}

	client.SetToken("not-a-jwt")
	if client.TokenValid() {
		t.Error("TokenValid() = true for garbage")
	}

	client.SetToken(signedToken(t, time.Now().Add(-time.Minute)))
	if client.TokenValid() {
		t.Error("TokenValid() = true for an expired token")
	}

	client.SetToken(signedToken(t, time.Now().Add(time.Hour)))
	if !client.TokenValid() {
		t.Error("TokenValid() = false for a live token")
	}
}

func TestValidationErrorCarriesField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success":false,"message":"email is required","field":"email"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	err := client.Login(context.Background(), Credentials{})
	if err == nil {
		t.Fatal("Login() should fail")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d", apiErr.StatusCode)
	}
	if apiErr.Message != "email is required" || apiErr.Field != "email" {
		t.Errorf("APIError = %+v", apiErr)
	}
	if apiErr.Error() != "email is required" {
		t.Errorf("Error() = %q", apiErr.Error())
	}
}

func TestAPIErrorFallbackMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`<html>gateway exploded</html>`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GetFeatureFlags(context.Background())

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %T, want *APIError", err)
	}
	if apiErr.Error() != "something went wrong, please try again" {
		t.Errorf("Error() = %q, want the generic fallback", apiErr.Error())
	}
}

func TestAuthorizedRequestsCarryBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write(envelope(true, "ok", map[string]interface{}{"risk_tolerance": "balanced"}))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	client.SetToken("abc123")

	if _, err := client.GetCurrentProfile(context.Background()); err != nil {
		t.Fatalf("GetCurrentProfile() error = %v", err)
	}
	if gotAuth != "Bearer abc123" {
		t.Errorf("Authorization header = %q", gotAuth)
	}
}

func TestProfileIsCached(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write(envelope(true, "ok", map[string]interface{}{"risk_tolerance": "balanced"}))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	for i := 0; i < 3; i++ {
		profile, err := client.GetCurrentProfile(context.Background())
		if err != nil {
			t.Fatalf("GetCurrentProfile() error = %v", err)
		}
		if profile.RiskTolerance != "balanced" {
			t.Errorf("RiskTolerance = %q", profile.RiskTolerance)
		}
	}

	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("backend hits = %d, want 1 (cached afterwards)", n)
	}
}

func TestFeatureFlags(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/features" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write(envelope(true, "ok", map[string]bool{"scenario_modelling": true, "document_upload": false}))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	flags, err := client.GetFeatureFlags(context.Background())
	if err != nil {
		t.Fatalf("GetFeatureFlags() error = %v", err)
	}
	if !flags["scenario_modelling"] || flags["document_upload"] {
		t.Errorf("flags = %+v", flags)
	}
}

func TestLogoutDropsTokenEvenOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"success":false,"message":"token already revoked"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	client.SetToken("stale")

	if err := client.Logout(context.Background()); err == nil {
		t.Error("Logout() should surface the backend error")
	}
	if client.Token() != "" {
		t.Error("token should be dropped locally regardless of the backend answer")
	}
}

func TestUploadDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/documents/upload" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm() error = %v", err)
		}
		if r.FormValue("document_type") != "payslip" {
			t.Errorf("document_type = %q", r.FormValue("document_type"))
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile() error = %v", err)
		}
		file.Close()
		if header.Filename != "payslip.pdf" {
			t.Errorf("filename = %q", header.Filename)
		}
		w.Write(envelope(true, "ok", map[string]string{"url": "s3://vecta/docs/payslip.pdf"}))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result, err := client.UploadDocument(context.Background(), "payslip.pdf", "payslip",
		bytes.NewReader([]byte("%PDF-1.4 fake")))
	if err != nil {
		t.Fatalf("UploadDocument() error = %v", err)
	}
	if result.URL != "s3://vecta/docs/payslip.pdf" {
		t.Errorf("URL = %q", result.URL)
	}
}

func TestGetSessionSummary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/sessions/s-42/summary" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write(envelope(true, "ok", map[string]interface{}{
			"session_id":    "s-42",
			"summary":       "Discussed home purchase goals",
			"message_count": 12,
		}))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	summary, err := client.GetSessionSummary(context.Background(), "s-42")
	if err != nil {
		t.Fatalf("GetSessionSummary() error = %v", err)
	}
	if summary.SessionId != "s-42" || summary.MessageCount != 12 {
		t.Errorf("summary = %+v", summary)
	}
}
