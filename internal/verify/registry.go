package verify

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultRegistryTimeout = 5 * time.Second

type registryResponse struct {
	Valid bool `json:"valid"`
}

// HTTPKeyRegistry queries the upstream key registry API for app key
// membership.
type HTTPKeyRegistry struct {
	client  *resty.Client
	baseURL string
}

func NewHTTPKeyRegistry(baseURL string) (*HTTPKeyRegistry, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("key registry url is required")
	}

	client := resty.New()
	client.SetTimeout(defaultRegistryTimeout)
	client.SetRetryCount(0)

	return &HTTPKeyRegistry{client: client, baseURL: trimmed}, nil
}

func (r *HTTPKeyRegistry) IsRegistered(ctx context.Context, fid uint64, key ed25519.PublicKey) (bool, error) {
	if r == nil || r.client == nil {
		return false, fmt.Errorf("key registry is not initialized")
	}

	response, err := r.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"fid": strconv.FormatUint(fid, 10),
			"key": "0x" + hex.EncodeToString(key),
		}).
		Get(r.baseURL + "/v1/appKeys/validate")
	if err != nil {
		return false, fmt.Errorf("key registry request failed: %w", err)
	}
	if response.StatusCode() != http.StatusOK {
		return false, fmt.Errorf("key registry returned status %d", response.StatusCode())
	}

	var body registryResponse
	if err := json.Unmarshal(response.Body(), &body); err != nil {
		return false, fmt.Errorf("key registry returned malformed body: %w", err)
	}

	return body.Valid, nil
}
