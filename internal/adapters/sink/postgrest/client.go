// Package postgrest is a sink for Supabase and other PostgREST endpoints.
package postgrest

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/okian/wastesync/internal/adapters/sink"
	"github.com/okian/wastesync/internal/domain/model"
)

const (
	restPath       = "/rest/v1"
	defaultTimeout = 10 * time.Second
)

// Client talks to the PostgREST API of a Supabase project.
type Client struct {
	http *resty.Client
}

// New builds a Client for baseURL authenticated with key.
// Retries are disabled: each batch is sent once.
func New(baseURL, key string, opts ...Option) *Client {
	o := options{timeout: defaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")+restPath).
		SetTimeout(o.timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("apikey", key).
		SetHeader("Authorization", "Bearer "+key).
		SetRetryCount(0)
	if o.transport != nil {
		rc.SetTransport(o.transport)
	}
	if o.debug {
		rc.SetDebug(true)
	}
	return &Client{http: rc}
}

// APIError is the error body PostgREST returns.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type row struct {
	ID           json.RawMessage `json:"id"`
	FoodName     string          `json:"food_name"`
	DisposalMass float64         `json:"disposal_mass"`
	Location     *string         `json:"location"`
	SessionID    *string         `json:"session_id"`
	CreatedAt    time.Time       `json:"created_at"`
}

func (r row) stored() model.StoredRecord {
	out := model.StoredRecord{
		Record: model.Record{
			FoodName:     r.FoodName,
			DisposalMass: r.DisposalMass,
		},
		ID:        idString(r.ID),
		CreatedAt: r.CreatedAt,
	}
	if r.Location != nil {
		out.Location = *r.Location
	}
	if r.SessionID != nil {
		out.SessionID = *r.SessionID
	}
	return out
}

// idString accepts numeric and text primary keys.
func idString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if string(raw) == "null" {
		return ""
	}
	return string(raw)
}

// Insert posts the batch in one request and returns the inserted rows.
func (c *Client) Insert(ctx context.Context, table string, records []model.Record) ([]model.StoredRecord, error) {
	var rows []row
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody(records).
		SetResult(&rows).
		SetError(&APIError{}).
		Post(table)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sink.ErrInsert, err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, fmt.Errorf("%w: %w", sink.ErrInsert, err)
	}
	return toStored(rows), nil
}

// Ping selects a single id from table.
func (c *Client) Ping(ctx context.Context, table string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("select", "id").
		SetQueryParam("limit", "1").
		SetError(&APIError{}).
		Get(table)
	if err != nil {
		return fmt.Errorf("%w: %w", sink.ErrPing, err)
	}
	if err := checkResponse(resp); err != nil {
		return fmt.Errorf("%w: %w", sink.ErrPing, err)
	}
	return nil
}

// Recent returns rows created at or after since, newest first.
func (c *Client) Recent(ctx context.Context, table string, since time.Time, limit int) ([]model.StoredRecord, error) {
	var rows []row
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("select", "*").
		SetQueryParam("created_at", "gte."+since.UTC().Format(time.RFC3339)).
		SetQueryParam("order", "created_at.desc").
		SetResult(&rows).
		SetError(&APIError{})
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}
	resp, err := req.Get(table)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sink.ErrRead, err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, fmt.Errorf("%w: %w", sink.ErrRead, err)
	}
	return toStored(rows), nil
}

func toStored(rows []row) []model.StoredRecord {
	out := make([]model.StoredRecord, len(rows))
	for i, r := range rows {
		out[i] = r.stored()
	}
	return out
}

func checkResponse(resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}
	if apiErr, ok := resp.Error().(*APIError); ok && apiErr != nil && apiErr.Message != "" {
		return fmt.Errorf("status %d: %w", resp.StatusCode(), apiErr)
	}
	return fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String())
}
