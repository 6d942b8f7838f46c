package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"vecta-client/internal/config"
	"vecta-client/internal/model"
	"vecta-client/internal/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	gocache "github.com/patrickmn/go-cache"
)

// Envelope is the uniform response shape every Vecta REST endpoint returns.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// APIError carries the backend-provided message for a failed call. Field is
// set for validation errors so forms can map the error back onto an input.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
	Field      string `json:"field,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "something went wrong, please try again"
}

const (
	cacheKeyProfile = "current_profile"
	cacheKeyFlags   = "feature_flags"
)

// Client talks to the Vecta REST collaborators: auth, session summary,
// field history, profile, document upload and feature flags. It holds the
// bearer token for the authenticated user and short-caches the read-mostly
// endpoints.
type Client struct {
	baseURL string
	http    *http.Client
	logger  logger.ILogger
	cache   *gocache.Cache

	mu    sync.RWMutex
	token string
}

func NewClient(cfg config.BackendConfig, log logger.ILogger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		logger:  log,
		cache:   gocache.New(cfg.FlagCacheTTL, 10*time.Minute),
	}
}

// SetToken installs the bearer token used on authenticated calls.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// TokenValid reports whether a token is present and not yet expired. The
// signature is NOT verified here; only the backend holds the secret. This
// exists to stop the realtime client from reconnecting with a dead token.
func (c *Client) TokenValid() bool {
	token := c.Token()
	if token == "" {
		return false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		// No expiry claim: treat as valid and let the backend reject it.
		return err == nil
	}
	return exp.After(time.Now())
}

// --- Auth ---

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authData struct {
	Token string `json:"token"`
}

// Login authenticates and retains the returned bearer token.
func (c *Client) Login(ctx context.Context, creds Credentials) error {
	var data authData
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", creds, &data); err != nil {
		return err
	}
	c.SetToken(data.Token)
	return nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	return c.do(ctx, http.MethodPost, "/api/auth/register", req, nil)
}

// VerifyOTP exchanges a one-time code for a session token.
func (c *Client) VerifyOTP(ctx context.Context, email, code string) error {
	body := map[string]string{"email": email, "otp": code}
	var data authData
	if err := c.do(ctx, http.MethodPost, "/api/auth/verify-otp", body, &data); err != nil {
		return err
	}
	c.SetToken(data.Token)
	return nil
}

// Logout invalidates the token server-side and drops it locally either way.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	c.SetToken("")
	c.cache.Flush()
	return err
}

// --- Session & profile reads ---

type SessionSummary struct {
	SessionId    string    `json:"session_id"`
	Summary      string    `json:"summary"`
	MessageCount int       `json:"message_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (c *Client) GetSessionSummary(ctx context.Context, sessionId string) (*SessionSummary, error) {
	var out SessionSummary
	path := fmt.Sprintf("/api/sessions/%s/summary", sessionId)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type FieldHistoryEntry struct {
	Value     interface{} `json:"value"`
	Source    string      `json:"source,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func (c *Client) GetFieldHistory(ctx context.Context, field string) ([]FieldHistoryEntry, error) {
	var out []FieldHistoryEntry
	path := fmt.Sprintf("/api/profile/fields/%s/history", field)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCurrentProfile fetches the backend-held financial profile. Cached
// briefly; the realtime profile_update events are the fresh source anyway.
func (c *Client) GetCurrentProfile(ctx context.Context) (*model.FinancialProfile, error) {
	if cached, found := c.cache.Get(cacheKeyProfile); found {
		profile := cached.(model.FinancialProfile)
		return &profile, nil
	}

	var out model.FinancialProfile
	if err := c.do(ctx, http.MethodGet, "/api/profile/current", nil, &out); err != nil {
		return nil, err
	}
	c.cache.SetDefault(cacheKeyProfile, out)
	return &out, nil
}

// --- Feature flags ---

func (c *Client) GetFeatureFlags(ctx context.Context) (map[string]bool, error) {
	if cached, found := c.cache.Get(cacheKeyFlags); found {
		return cached.(map[string]bool), nil
	}

	var out map[string]bool
	if err := c.do(ctx, http.MethodGet, "/api/features", nil, &out); err != nil {
		return nil, err
	}
	c.cache.SetDefault(cacheKeyFlags, out)
	return out, nil
}

// --- Document upload ---

type UploadResult struct {
	URL string `json:"url"`
}

// UploadDocument posts the document as multipart form data and returns the
// storage URL the backend assigned. The caller follows up with a
// document_upload frame on the realtime channel.
func (c *Client) UploadDocument(ctx context.Context, filename, documentType string, content io.Reader) (*UploadResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("copy document content: %w", err)
	}
	if err := writer.WriteField("document_type", documentType); err != nil {
		return nil, fmt.Errorf("write document_type field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/documents/upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out UploadResult
	if err := c.decodeEnvelope(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Plumbing ---

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return c.decodeEnvelope(resp, out)
}

func (c *Client) authorize(req *http.Request) {
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// decodeEnvelope maps the backend envelope onto out. A non-success envelope
// or a non-2xx status surfaces the backend's literal message where there is
// one; otherwise a generic fallback.
func (c *Client) decodeEnvelope(resp *http.Response, out interface{}) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var envelope struct {
		Envelope
		Field string `json:"field,omitempty"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		c.logger.Warn("REST", "Unreadable response body", map[string]interface{}{
			"status": resp.StatusCode,
		})
		return &APIError{StatusCode: resp.StatusCode}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !envelope.Success {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    envelope.Message,
			Field:      envelope.Field,
		}
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}
