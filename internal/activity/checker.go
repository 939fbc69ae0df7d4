package activity

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

const requestTimeout = 5 * time.Second

// HTTPChecker asks the voting backend whether a recipient already cast
// today's vote. The backend owns the voting data; this process never does.
type HTTPChecker struct {
	client *resty.Client
}

func NewHTTPChecker(baseURL string) (*HTTPChecker, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("voting backend base url is required")
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(requestTimeout).
		SetHeader("Accept", "application/json")

	return &HTTPChecker{client: client}, nil
}

type voteStatusResponse struct {
	Voted bool `json:"voted"`
}

func (c *HTTPChecker) HasVotedToday(ctx context.Context, fid uint64, day time.Time) (bool, error) {
	var body voteStatusResponse

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("fid", strconv.FormatUint(fid, 10)).
		SetQueryParam("date", day.UTC().Format("2006-01-02")).
		SetResult(&body).
		Get("/api/votes/status")
	if err != nil {
		return false, fmt.Errorf("vote status request failed: %w", err)
	}
	if resp.IsError() {
		return false, fmt.Errorf("vote status request failed with status %d", resp.StatusCode())
	}

	return body.Voted, nil
}
