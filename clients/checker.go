package clients

import (
	"context"
	"fmt"
	"time"

	"upload-index/models"

	"github.com/go-resty/resty/v2"
)

// DefaultCheckTimeout bounds a single HEAD request
const DefaultCheckTimeout = 10 * time.Second

// URLChecker client for probing published URLs
type URLChecker struct {
	client *resty.Client
}

// NewURLChecker creates a new checker with the given per-request timeout
func NewURLChecker(timeout time.Duration) *URLChecker {
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}

	client := resty.New()
	client.SetDisableWarn(true)
	client.SetTimeout(timeout)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))

	return &URLChecker{client: client}
}

// Check issues a HEAD request for rawURL
func (c *URLChecker) Check(ctx context.Context, rawURL string) models.URLStatus {
	resp, err := c.client.R().
		SetContext(ctx).
		Head(rawURL)
	if err != nil {
		return models.URLStatus{URL: rawURL, Err: fmt.Errorf("failed to reach %s: %w", rawURL, err)}
	}

	status := models.URLStatus{URL: rawURL, StatusCode: resp.StatusCode()}
	if !resp.IsSuccess() {
		status.Err = fmt.Errorf("unexpected status %d", resp.StatusCode())
	}

	return status
}

// CheckAll checks urls one after another, stopping early if ctx is cancelled
func (c *URLChecker) CheckAll(ctx context.Context, urls []string) ([]models.URLStatus, error) {
	results := make([]models.URLStatus, 0, len(urls))
	for _, u := range urls {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, c.Check(ctx, u))
	}

	return results, nil
}
