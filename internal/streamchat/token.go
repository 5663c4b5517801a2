// Package streamchat issues user tokens for the chat platform and keeps
// its user directory in sync.
package streamchat

import (
	"context"
	"errors"
	"fmt"
	"time"

	stream "github.com/GetStream/stream-chat-go/v6"
	"github.com/golang-jwt/jwt/v5"
)

// Token variants, used as metric labels and in logs.
const (
	VariantLive = "live"
	VariantMock = "mock"
)

var (
	// ErrMissingUserID is returned when a token is requested without a user id.
	ErrMissingUserID = errors.New("user id is required")
	// ErrMissingSecret is returned when a live client has no API secret.
	ErrMissingSecret = errors.New("api secret is required")
	// ErrUpsertUnsupported is returned by minters that cannot register users.
	ErrUpsertUnsupported = errors.New("user upsert not supported")
)

// Minter issues chat tokens for a user id.
type Minter interface {
	Mint(ctx context.Context, userID string) (string, error)
	UpsertUser(ctx context.Context, user User) error
	APIKey() string
	Variant() string
}

// userAPI is the part of the vendor SDK used for user management.
type userAPI interface {
	UpsertUser(ctx context.Context, user *stream.User) (*stream.UpsertUserResponse, error)
}

// Client signs tokens with the application secret.
// Tokens are HS256 JWTs carrying a user_id claim, matching the vendor SDK's createToken.
type Client struct {
	apiKey string
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	users  userAPI
}

// Option configures a Client.
type Option func(*Client)

// WithTTL sets an expiry on issued tokens. Zero issues non-expiring tokens.
func WithTTL(ttl time.Duration) Option {
	return func(c *Client) { c.ttl = ttl }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func withUserAPI(api userAPI) Option {
	return func(c *Client) { c.users = api }
}

// New creates a live Client. The vendor SDK client is created once and shared.
func New(apiKey, apiSecret string, opts ...Option) (*Client, error) {
	if apiSecret == "" {
		return nil, ErrMissingSecret
	}

	c := &Client{
		apiKey: apiKey,
		secret: []byte(apiSecret),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.users == nil {
		sdk, err := stream.NewClient(apiKey, apiSecret)
		if err != nil {
			return nil, fmt.Errorf("create chat client: %w", err)
		}
		c.users = sdk
	}

	return c, nil
}

// CreateToken signs a token for userID. A zero expiresAt produces a token without exp/iat.
func (c *Client) CreateToken(userID string, expiresAt time.Time) (string, error) {
	if userID == "" {
		return "", ErrMissingUserID
	}

	claims := jwt.MapClaims{"user_id": userID}
	if !expiresAt.IsZero() {
		claims["exp"] = expiresAt.Unix()
		claims["iat"] = c.now().Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Mint issues a token honoring the configured TTL.
func (c *Client) Mint(ctx context.Context, userID string) (string, error) {
	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}
	return c.CreateToken(userID, expiresAt)
}

// UpsertUser creates or updates the user on the chat platform.
func (c *Client) UpsertUser(ctx context.Context, user User) error {
	if user.ID == "" {
		return ErrMissingUserID
	}
	if _, err := c.users.UpsertUser(ctx, user.toSDK()); err != nil {
		return fmt.Errorf("upsert chat user: %w", err)
	}
	return nil
}

// VerifyToken parses a token signed by this client and returns its user id.
func (c *Client) VerifyToken(tokenString string) (string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(c.now))
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}

	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return "", ErrMissingUserID
	}
	return userID, nil
}

// APIKey returns the public API key clients connect with.
func (c *Client) APIKey() string { return c.apiKey }

// Variant returns VariantLive.
func (c *Client) Variant() string { return VariantLive }

// MockMinter simulates tokens for local development: mock_token_<userId>_<unix-ms>.
type MockMinter struct {
	apiKey string
	now    func() time.Time
}

// NewMock creates a MockMinter. A nil clock uses time.Now.
func NewMock(apiKey string, now func() time.Time) *MockMinter {
	if now == nil {
		now = time.Now
	}
	return &MockMinter{apiKey: apiKey, now: now}
}

// Mint returns a simulated token.
func (m *MockMinter) Mint(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", ErrMissingUserID
	}
	return fmt.Sprintf("mock_token_%s_%d", userID, m.now().UnixMilli()), nil
}

// UpsertUser is not available without the vendor.
func (m *MockMinter) UpsertUser(ctx context.Context, user User) error {
	return ErrUpsertUnsupported
}

// APIKey returns the configured key, possibly empty.
func (m *MockMinter) APIKey() string { return m.apiKey }

// Variant returns VariantMock.
func (m *MockMinter) Variant() string { return VariantMock }
