package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/tpln/gateway/internal/handler/dto"
	"github.com/tpln/gateway/internal/service"
	"github.com/tpln/gateway/internal/streamchat"
)

type stubMinter struct {
	mintErr  error
	upserted []streamchat.User
}

func (m *stubMinter) Mint(ctx context.Context, userID string) (string, error) {
	if m.mintErr != nil {
		return "", m.mintErr
	}
	return "signed-" + userID, nil
}

func (m *stubMinter) UpsertUser(ctx context.Context, user streamchat.User) error {
	m.upserted = append(m.upserted, user)
	return nil
}

func (m *stubMinter) APIKey() string  { return "public-key" }
func (m *stubMinter) Variant() string { return streamchat.VariantLive }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestTokenHandler(minter streamchat.Minter, expose bool) *TokenHandler {
	svc := service.NewTokenService(minter, nil, discardLogger())
	return NewTokenHandler(svc, discardLogger(), expose)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp
}

func TestTokenHandler_GetToken_UnrestrictedUserID(t *testing.T) {
	h := newTestTokenHandler(&stubMinter{}, false)

	for _, id := range []string{"jean dupont", "a+b@x.com", strings.Repeat("a", 65), "élodie"} {
		t.Run(id, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/get-token?userId="+url.QueryEscape(id), nil)
			rec := httptest.NewRecorder()

			h.GetToken(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
			}
			var resp dto.TokenResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Token != "signed-"+id || resp.UserID != id {
				t.Errorf("unexpected response: %+v", resp)
			}
		})
	}
}

func TestTokenHandler_GetToken(t *testing.T) {
	h := newTestTokenHandler(&stubMinter{}, false)

	tests := []struct {
		name  string
		query string
	}{
		{"userId param", "?userId=alice"},
		{"user param", "?user=alice"},
		{"userId wins over user", "?userId=alice&user=bob"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/get-token"+tt.query, nil)
			rec := httptest.NewRecorder()

			h.GetToken(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
			}

			var resp dto.TokenResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Token != "signed-alice" || resp.UserID != "alice" || resp.APIKey != "public-key" {
				t.Errorf("unexpected response: %+v", resp)
			}
		})
	}
}

func TestTokenHandler_MissingUserID(t *testing.T) {
	h := newTestTokenHandler(&stubMinter{}, false)

	tests := []struct {
		name    string
		handler http.HandlerFunc
		req     *http.Request
	}{
		{"get-token", h.GetToken, httptest.NewRequest(http.MethodGet, "/get-token", nil)},
		{"generate-token", h.GenerateToken, httptest.NewRequest(http.MethodPost, "/api/generate-token", strings.NewReader(`{"userName":"Ann"}`))},
		{"stream-token", h.StreamToken, httptest.NewRequest(http.MethodPost, "/api/stream-token", strings.NewReader(`{}`))},
		{"stream-token empty body", h.StreamToken, httptest.NewRequest(http.MethodPost, "/api/stream-token", nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler(rec, tt.req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", rec.Code)
			}
			if resp := decodeError(t, rec); resp.Code != "USER_ID_REQUIRED" {
				t.Errorf("expected USER_ID_REQUIRED, got %s", resp.Code)
			}
		})
	}
}

func TestTokenHandler_GenerateToken(t *testing.T) {
	h := newTestTokenHandler(&stubMinter{}, false)

	body := `{"userId":"u1","userName":"Ann"}`
	req := httptest.NewRequest(http.MethodPost, "/api/generate-token", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.GenerateToken(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp dto.GenerateTokenResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Token != "signed-u1" || resp.UserName != "Ann" || resp.UserRole != service.DefaultUserRole {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestTokenHandler_GenerateToken_RequiresName(t *testing.T) {
	h := newTestTokenHandler(&stubMinter{}, false)

	req := httptest.NewRequest(http.MethodPost, "/api/generate-token", strings.NewReader(`{"userId":"u1"}`))
	rec := httptest.NewRecorder()

	h.GenerateToken(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != "USER_NAME_REQUIRED" {
		t.Errorf("expected USER_NAME_REQUIRED, got %s", resp.Code)
	}
}

func TestTokenHandler_InvalidJSON(t *testing.T) {
	h := newTestTokenHandler(&stubMinter{}, false)

	req := httptest.NewRequest(http.MethodPost, "/api/stream-token", strings.NewReader(`{"userId":`))
	rec := httptest.NewRecorder()

	h.StreamToken(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != "INVALID_JSON" {
		t.Errorf("expected INVALID_JSON, got %s", resp.Code)
	}
}

func TestTokenHandler_StreamToken_Live(t *testing.T) {
	minter := &stubMinter{}
	h := newTestTokenHandler(minter, false)

	body := `{"userId":"u1","userName":"Ann","userEmail":"ann@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/stream-token", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.StreamToken(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["token"] != "signed-u1" || resp["apiKey"] != "public-key" || resp["userId"] != "u1" {
		t.Errorf("unexpected response: %v", resp)
	}
	if _, ok := resp["success"]; ok {
		t.Errorf("live response should not carry success: %v", resp)
	}
	if len(minter.upserted) != 1 || minter.upserted[0].Email != "ann@example.com" {
		t.Errorf("expected user to be upserted, got %+v", minter.upserted)
	}
}

func TestTokenHandler_StreamToken_Mock(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	h := newTestTokenHandler(streamchat.NewMock("public-key", func() time.Time { return now }), false)

	req := httptest.NewRequest(http.MethodPost, "/api/stream-token", strings.NewReader(`{"userId":"u1"}`))
	rec := httptest.NewRecorder()

	h.StreamToken(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["token"] != "mock_token_u1_1700000000000" || resp["success"] != true {
		t.Errorf("unexpected response: %v", resp)
	}
	if _, ok := resp["apiKey"]; ok {
		t.Errorf("mock response should not carry apiKey: %v", resp)
	}
}

func TestTokenHandler_MintFailure(t *testing.T) {
	tests := []struct {
		name        string
		expose      bool
		wantMessage string
	}{
		{"details hidden", false, "An internal error occurred"},
		{"details exposed", true, "failed to generate token: signing key rejected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestTokenHandler(&stubMinter{mintErr: errors.New("signing key rejected")}, tt.expose)

			req := httptest.NewRequest(http.MethodGet, "/get-token?userId=u1", nil)
			rec := httptest.NewRecorder()

			h.GetToken(rec, req)

			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("expected status 500, got %d", rec.Code)
			}
			resp := decodeError(t, rec)
			if resp.Code != "TOKEN_GENERATION_FAILED" {
				t.Errorf("expected TOKEN_GENERATION_FAILED, got %s", resp.Code)
			}
			if resp.Error != tt.wantMessage {
				t.Errorf("expected message %q, got %q", tt.wantMessage, resp.Error)
			}
		})
	}
}

func TestTokenHandler_Info(t *testing.T) {
	h := newTestTokenHandler(&stubMinter{}, false)
	h.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	rec := httptest.NewRecorder()

	h.Info(rec, req)

	var resp dto.InfoResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ok" || resp.APIKey != "public-key" || resp.Mode != streamchat.VariantLive {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.Timestamp != "2024-05-01T12:00:00Z" {
		t.Errorf("unexpected timestamp: %s", resp.Timestamp)
	}
}
