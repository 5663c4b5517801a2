package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tpln/gateway/internal/handler/dto"
)

func TestHandler_Hello(t *testing.T) {
	rec := httptest.NewRecorder()
	New().Hello(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var response map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["message"] != "TPLN gateway" || response["version"] != Version {
		t.Errorf("unexpected body: %v", response)
	}
}

func TestHandler_Fallbacks(t *testing.T) {
	h := New()
	tests := []struct {
		name     string
		serve    http.HandlerFunc
		wantCode int
		wantErr  string
	}{
		{"not found", h.NotFound, http.StatusNotFound, "NOT_FOUND"},
		{"method not allowed", h.MethodNotAllowed, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.serve(rec, httptest.NewRequest(http.MethodPost, "/nowhere", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d", tt.wantCode, rec.Code)
			}
			var body dto.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if body.Code != tt.wantErr || body.Error == "" {
				t.Errorf("unexpected error body: %+v", body)
			}
		})
	}
}

func TestDecodeJSON_EmptyBody(t *testing.T) {
	var v dto.GenerateTokenRequest
	req := httptest.NewRequest(http.MethodPost, "/", http.NoBody)
	if err := decodeJSON(req, &v); err != nil {
		t.Fatalf("expected empty body to decode, got %v", err)
	}
	if v.UserID != "" {
		t.Errorf("expected zero value, got %+v", v)
	}
}

func TestInternalMessage(t *testing.T) {
	err := errTest("db down")
	if got := internalMessage(err, true); got != "db down" {
		t.Errorf("exposed message = %q", got)
	}
	if got := internalMessage(err, false); got == "db down" {
		t.Error("expected details to be hidden")
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
