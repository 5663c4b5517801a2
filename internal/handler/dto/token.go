// Package dto provides Data Transfer Objects for API requests and responses.
package dto

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// GenerateTokenRequest is the body of POST /api/generate-token.
type GenerateTokenRequest struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	UserRole string `json:"userRole,omitempty"`
}

// GenerateTokenResponse is returned by POST /api/generate-token.
type GenerateTokenResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	UserRole string `json:"userRole"`
}

// StreamTokenRequest is the body of POST /api/stream-token.
type StreamTokenRequest struct {
	UserID    string `json:"userId"`
	UserName  string `json:"userName,omitempty"`
	UserEmail string `json:"userEmail,omitempty"`
}

// TokenResponse is returned by GET /get-token and POST /api/stream-token.
// Success is only set for simulated tokens.
type TokenResponse struct {
	Token   string `json:"token"`
	APIKey  string `json:"apiKey,omitempty"`
	UserID  string `json:"userId"`
	Success bool   `json:"success,omitempty"`
}

// InfoResponse is returned by the token test endpoints.
type InfoResponse struct {
	Message   string `json:"message"`
	APIKey    string `json:"apiKey"`
	Mode      string `json:"mode"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}
