// Package sensorapi fetches per-minute sensor aggregates from the upstream
// monitoring API.
package sensorapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/02loveslollipop/ward-monitor/internal/series"
)

const (
	DefaultKeyHeader = "x-api-key"
	DefaultLimit     = 60

	OrderDesc = "desc"
	OrderAsc  = "asc"
)

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %s", e.Status)
}

// Response is the upstream payload for one sensor.
type Response struct {
	Data []series.RawSample `json:"data"`
}

// Query bounds the sample set fetched per request.
type Query struct {
	Order string
	Limit int
}

// Client talks to the upstream sensor API.
type Client struct {
	baseURL   string
	apiKey    string
	keyHeader string
	http      *http.Client
}

// NewClient constructs a client. A nil httpClient gets a 10 second timeout.
func NewClient(baseURL, apiKey, keyHeader string, httpClient *http.Client) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("sensorapi: empty base url")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("sensorapi: invalid base url: %w", err)
	}
	if keyHeader == "" {
		keyHeader = DefaultKeyHeader
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		keyHeader: keyHeader,
		http:      httpClient,
	}, nil
}

// FetchSamples retrieves the raw minute aggregates published under path.
func (c *Client) FetchSamples(ctx context.Context, path string, q Query) ([]series.RawSample, error) {
	if q.Order != OrderAsc {
		q.Order = OrderDesc
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}

	params := url.Values{}
	params.Set("order", q.Order)
	params.Set("limit", strconv.Itoa(q.Limit))
	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/") + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(c.keyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	var payload Response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return payload.Data, nil
}
