package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/tpln/gateway/internal/handler/dto"
	"github.com/tpln/gateway/internal/service"
	"github.com/tpln/gateway/internal/streamchat"
)

// TokenHandler serves every chat token route.
type TokenHandler struct {
	svc          *service.TokenService
	logger       *slog.Logger
	exposeErrors bool
	now          func() time.Time
}

// NewTokenHandler creates a new TokenHandler. exposeErrors includes internal error
// details in 500 responses and is meant for development only.
func NewTokenHandler(svc *service.TokenService, logger *slog.Logger, exposeErrors bool) *TokenHandler {
	return &TokenHandler{
		svc:          svc,
		logger:       logger,
		exposeErrors: exposeErrors,
		now:          time.Now,
	}
}

// GetToken handles GET /get-token?userId= (or ?user=).
func (h *TokenHandler) GetToken(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := q.Get("userId")
	if userID == "" {
		userID = q.Get("user")
	}

	res, err := h.svc.Issue(r.Context(), service.IssueInput{UserID: userID})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TokenResponse{
		Token:  res.Token,
		APIKey: res.APIKey,
		UserID: res.UserID,
	})
}

// GenerateToken handles POST /api/generate-token.
func (h *TokenHandler) GenerateToken(w http.ResponseWriter, r *http.Request) {
	var req dto.GenerateTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	res, err := h.svc.Issue(r.Context(), service.IssueInput{
		UserID:      req.UserID,
		UserName:    req.UserName,
		UserRole:    req.UserRole,
		RequireName: true,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.GenerateTokenResponse{
		Token:    res.Token,
		UserID:   res.UserID,
		UserName: res.UserName,
		UserRole: res.UserRole,
	})
}

// StreamToken handles POST /api/stream-token. Live tokens also register the user.
func (h *TokenHandler) StreamToken(w http.ResponseWriter, r *http.Request) {
	var req dto.StreamTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	res, err := h.svc.Issue(r.Context(), service.IssueInput{
		UserID:    req.UserID,
		UserName:  req.UserName,
		UserEmail: req.UserEmail,
		Upsert:    true,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("token_issued", "user_id", res.UserID, "variant", res.Variant)

	if res.Variant == streamchat.VariantMock {
		writeJSON(w, http.StatusOK, dto.TokenResponse{Token: res.Token, UserID: res.UserID, Success: true})
		return
	}
	writeJSON(w, http.StatusOK, dto.TokenResponse{Token: res.Token, APIKey: res.APIKey, UserID: res.UserID})
}

// Info handles the token test routes.
func (h *TokenHandler) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.InfoResponse{
		Message:   "Chat token API is up",
		APIKey:    h.svc.APIKey(),
		Mode:      h.svc.Variant(),
		Status:    "ok",
		Timestamp: h.now().UTC().Format(time.RFC3339Nano),
	})
}

// handleServiceError maps service errors to HTTP responses.
func (h *TokenHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrUserIDRequired):
		writeError(w, http.StatusBadRequest, "USER_ID_REQUIRED", "userId is required")
	case errors.Is(err, service.ErrUserNameRequired):
		writeError(w, http.StatusBadRequest, "USER_NAME_REQUIRED", "userId and userName are required")
	case errors.Is(err, service.ErrTokenGeneration):
		h.logger.Error("token_generation_failed", "error", err)
		writeError(w, http.StatusInternalServerError, "TOKEN_GENERATION_FAILED", internalMessage(err, h.exposeErrors))
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", internalMessage(err, h.exposeErrors))
	}
}
