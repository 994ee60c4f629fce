package loadgen

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// client talks to the food-waste API.
type client struct {
	rc *resty.Client
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{
		rc: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetRetryCount(0).
			SetHeader("Content-Type", "application/json"),
	}
}

func (c *client) health(ctx context.Context) error {
	resp, err := c.rc.R().SetContext(ctx).Get("/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode())
	}
	return nil
}

// submit posts one batch and returns the response status.
func (c *client) submit(ctx context.Context, b Batch, async bool, location string) (int, error) { //nolint:gocritic // hugeParam
	req := c.rc.R().
		SetContext(ctx).
		SetQueryParam("session_id", b.SessionID).
		SetBody(b.Body)
	if async {
		req.SetQueryParam("async", "true")
	}
	if location != "" {
		req.SetQueryParam("location", location)
	}
	resp, err := req.Post("/food-waste")
	if err != nil {
		return 0, err
	}
	return resp.StatusCode(), nil
}

func (c *client) aggregate(ctx context.Context, hours float64) ([]Total, error) {
	var out struct {
		Totals []Total `json:"totals"`
	}
	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParam("hours", strconv.FormatFloat(hours, 'f', -1, 64)).
		SetResult(&out).
		Get("/food-waste/aggregate")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("aggregate failed with status %d: %s", resp.StatusCode(), resp.String())
	}
	return out.Totals, nil
}
