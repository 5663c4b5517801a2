// Package identity talks to the auth provider's admin API.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	auth "github.com/supabase-community/auth-go"
	"github.com/supabase-community/auth-go/types"

	"github.com/tpln/gateway/internal/model"
)

const (
	// ClientTimeout is the total request timeout.
	ClientTimeout = 15 * time.Second
	// DialTimeout is the connection timeout.
	DialTimeout = 5 * time.Second

	authPath = "/auth/v1"
)

var (
	// ErrNotConfigured is returned when the provider URL or service key is missing.
	ErrNotConfigured = errors.New("auth provider not configured")
	// ErrUserNotFound is returned when no user matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when creating a user whose email is already registered.
	ErrUserExists = errors.New("user already registered")
)

// APIError is a non-2xx response from the provider.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("auth provider returned %d: %s", e.Status, e.Message)
}

// Client is an admin client authenticated with the service-role key.
type Client struct {
	admin auth.Client
}

// NewHTTPClient creates an HTTP client with bounded timeouts that does not follow redirects.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: ClientTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   5 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
			MaxIdleConns:          20,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// New creates a Client for the project at baseURL. A nil httpClient uses NewHTTPClient.
func New(baseURL, serviceKey string, httpClient *http.Client) (*Client, error) {
	if baseURL == "" || serviceKey == "" {
		return nil, ErrNotConfigured
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid auth provider url: %w", err)
	}
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}

	admin := auth.New("", serviceKey).
		WithCustomAuthURL(strings.TrimRight(baseURL, "/") + authPath).
		WithToken(serviceKey).
		WithClient(*httpClient)
	return &Client{admin: admin}, nil
}

func toModel(u types.User) model.User {
	return model.User{ID: u.ID.String(), Email: u.Email, CreatedAt: u.CreatedAt}
}

// ListUsers returns the users of the first provider page.
func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := c.admin.AdminListUsers()
	if err != nil {
		return nil, fmt.Errorf("list users: %w", apiError(err))
	}

	users := make([]model.User, 0, len(resp.Users))
	for _, u := range resp.Users {
		users = append(users, toModel(u))
	}
	return users, nil
}

// FindUserByEmail returns the user whose email matches, ignoring case.
func (c *Client) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	users, err := c.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].HasEmail(email) {
			return &users[i], nil
		}
	}
	return nil, ErrUserNotFound
}

// CreateUser creates a confirmed user with the given password.
func (c *Client) CreateUser(ctx context.Context, email, password string) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := c.admin.AdminCreateUser(types.AdminCreateUserRequest{
		Email:        email,
		Password:     &password,
		EmailConfirm: true,
	})
	if err != nil {
		err = apiError(err)
		var apiErr *APIError
		if errors.As(err, &apiErr) && isAlreadyRegistered(apiErr) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	u := toModel(resp.User)
	return &u, nil
}

// UpdatePassword sets a new password for the user id.
func (c *Client) UpdatePassword(ctx context.Context, userID, password string) error {
	id, err := uuid.Parse(userID)
	if err != nil {
		return ErrUserNotFound
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.admin.AdminUpdateUser(types.AdminUpdateUserRequest{UserID: id, Password: password}); err != nil {
		err = apiError(err)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return ErrUserNotFound
		}
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// Ping checks the provider's health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.admin.HealthCheck(); err != nil {
		return apiError(err)
	}
	return nil
}

// The SDK reports provider failures as "response status code <n>: <body>".
var statusErrRe = regexp.MustCompile(`(?s)^response status code (\d+)(?::\s*(.*))?$`)

// apiError turns an SDK status error into an *APIError. Other errors pass through.
func apiError(err error) error {
	m := statusErrRe.FindStringSubmatch(err.Error())
	if m == nil {
		return err
	}
	status, convErr := strconv.Atoi(m[1])
	if convErr != nil {
		return err
	}

	var payload struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
		Error            string `json:"error"`
	}
	_ = json.Unmarshal([]byte(m[2]), &payload)

	msg := firstNonEmpty(payload.Msg, payload.Message, payload.ErrorDescription, payload.Error)
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{Status: status, Message: msg}
}

func isAlreadyRegistered(err *APIError) bool {
	if err.Status != http.StatusUnprocessableEntity && err.Status != http.StatusConflict {
		return false
	}
	return strings.Contains(strings.ToLower(err.Message), "already")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
