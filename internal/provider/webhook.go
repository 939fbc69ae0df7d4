package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultWebhookTimeout = 10 * time.Second

type webhookResponse struct {
	SuccessfulTokens  []string `json:"successfulTokens"`
	InvalidTokens     []string `json:"invalidTokens"`
	RateLimitedTokens []string `json:"rateLimitedTokens"`
}

// WebhookProvider posts batched pushes to each recipient's registered
// delivery endpoint and maps the endpoint's three token lists onto per-token
// statuses.
type WebhookProvider struct {
	client *resty.Client
}

func NewWebhookProvider() *WebhookProvider {
	client := resty.New()
	client.SetTimeout(defaultWebhookTimeout)
	client.SetRetryCount(0)

	return &WebhookProvider{client: client}
}

func NewWebhookProviderWithClient(client *resty.Client) (*WebhookProvider, error) {
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}
	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultWebhookTimeout)
	}
	client.SetRetryCount(0)

	return &WebhookProvider{client: client}, nil
}

func (p *WebhookProvider) SendBatch(ctx context.Context, endpoint string, req BatchRequest) (*BatchResult, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}

	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("delivery endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid delivery endpoint: %w", err)
	}
	if len(req.Tokens) == 0 {
		return nil, fmt.Errorf("at least one delivery token is required")
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post(trimmedEndpoint)
	if err != nil {
		return nil, &ProviderError{
			Message:   "delivery request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &ProviderError{
			Message:   "endpoint returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return nil, &ProviderError{
			StatusCode: statusCode,
			Message:    endpointErrorMessage(statusCode, strings.TrimSpace(response.String())),
			Transient:  isTransientHTTPStatus(statusCode),
		}
	}

	var body webhookResponse
	if err := json.Unmarshal(response.Body(), &body); err != nil {
		return nil, &ProviderError{
			StatusCode: statusCode,
			Message:    "endpoint returned malformed response body",
			Transient:  true,
			Cause:      err,
		}
	}

	return classifyTokens(req.Tokens, body), nil
}

// classifyTokens folds the endpoint's three lists into one status per
// requested token; tokens absent from all lists stay unknown.
func classifyTokens(requested []string, body webhookResponse) *BatchResult {
	statuses := make(map[string]TokenStatus, len(requested))
	for _, token := range requested {
		statuses[token] = TokenUnknown
	}

	apply := func(tokens []string, status TokenStatus) {
		for _, token := range tokens {
			if _, ok := statuses[token]; ok {
				statuses[token] = status
			}
		}
	}

	apply(body.SuccessfulTokens, TokenDelivered)
	apply(body.InvalidTokens, TokenInvalid)
	apply(body.RateLimitedTokens, TokenRateLimited)

	return &BatchResult{Statuses: statuses}
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func endpointErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("endpoint returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}
