// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tpln/gateway/internal/metrics"
	"github.com/tpln/gateway/internal/streamchat"
)

// Token errors.
var (
	ErrUserIDRequired   = errors.New("userId is required")
	ErrUserNameRequired = errors.New("userName is required")
	ErrTokenGeneration  = errors.New("failed to generate token")
)

// DefaultUserRole is assigned when a request names no role.
const DefaultUserRole = "user"

// TokenService issues chat tokens.
type TokenService struct {
	minter  streamchat.Minter
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewTokenService creates a new TokenService.
func NewTokenService(minter streamchat.Minter, recorder metrics.Recorder, logger *slog.Logger) *TokenService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenService{minter: minter, metrics: recorder, logger: logger}
}

// IssueInput defines input for issuing a token.
type IssueInput struct {
	UserID    string
	UserName  string
	UserEmail string
	UserRole  string
	// RequireName rejects requests without a UserName.
	RequireName bool
	// Upsert registers the user on the chat platform after minting (live minters only).
	Upsert bool
}

// IssueResult is an issued token and the identity it was issued for.
type IssueResult struct {
	Token    string
	UserID   string
	UserName string
	UserRole string
	APIKey   string
	Variant  string
}

// Issue mints a token. The user id is only checked for presence.
func (s *TokenService) Issue(ctx context.Context, input IssueInput) (*IssueResult, error) {
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	userName := strings.TrimSpace(input.UserName)
	if input.RequireName && userName == "" {
		return nil, ErrUserNameRequired
	}

	role := strings.TrimSpace(input.UserRole)
	if role == "" {
		role = DefaultUserRole
	}

	variant := s.minter.Variant()
	start := time.Now()

	token, err := s.minter.Mint(ctx, userID)
	if err != nil {
		s.metrics.IncTokenFailed(variant)
		return nil, fmt.Errorf("%w: %w", ErrTokenGeneration, err)
	}

	if input.Upsert && variant == streamchat.VariantLive {
		user := streamchat.NewUser(userID, userName, strings.TrimSpace(input.UserEmail))
		if err := s.minter.UpsertUser(ctx, user); err != nil {
			s.metrics.IncTokenFailed(variant)
			return nil, fmt.Errorf("%w: %w", ErrTokenGeneration, err)
		}
	}

	s.metrics.IncTokenIssued(variant)
	s.metrics.ObserveTokenDuration(variant, time.Since(start))
	s.logger.Debug("token issued", "user_id", userID, "variant", variant)

	return &IssueResult{
		Token:    token,
		UserID:   userID,
		UserName: userName,
		UserRole: role,
		APIKey:   s.minter.APIKey(),
		Variant:  variant,
	}, nil
}

// APIKey returns the public chat API key.
func (s *TokenService) APIKey() string {
	return s.minter.APIKey()
}

// Variant returns the minting variant, live or mock.
func (s *TokenService) Variant() string {
	return s.minter.Variant()
}
