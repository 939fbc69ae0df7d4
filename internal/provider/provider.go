package provider

import "context"

// TokenStatus is the per-token delivery outcome reported by an endpoint.
type TokenStatus string

const (
	TokenDelivered   TokenStatus = "DELIVERED"
	TokenInvalid     TokenStatus = "INVALID"
	TokenRateLimited TokenStatus = "RATE_LIMITED"
	// TokenUnknown marks a token the endpoint did not mention in any of its
	// result lists.
	TokenUnknown TokenStatus = "UNKNOWN"
)

// BatchRequest is one outbound push carrying shared content for a list of
// delivery tokens registered at the same endpoint.
type BatchRequest struct {
	NotificationID string   `json:"notificationId"`
	Title          string   `json:"title"`
	Body           string   `json:"body"`
	TargetURL      string   `json:"targetUrl"`
	Tokens         []string `json:"tokens"`
}

// BatchResult classifies every requested token. Tokens the endpoint left
// unmentioned are present with TokenUnknown, so callers can branch
// exhaustively.
type BatchResult struct {
	Statuses map[string]TokenStatus
}

// StatusOf returns the classification for a token, defaulting to unknown.
func (r *BatchResult) StatusOf(token string) TokenStatus {
	if r == nil || r.Statuses == nil {
		return TokenUnknown
	}
	status, ok := r.Statuses[token]
	if !ok {
		return TokenUnknown
	}
	return status
}

// Provider is the outbound push delivery port.
type Provider interface {
	SendBatch(ctx context.Context, endpoint string, req BatchRequest) (*BatchResult, error)
}
