// Package betmatic is the REST client for the Betmatic betting platform:
// session login and token refresh, competition and bookmaker lookup, and bet
// notification submission.
package betmatic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jcleary-au/racewatch/internal/domain"
)

const (
	loginPath        = "/account/login/"
	refreshPath      = "/account/refresh_token/"
	competitionsPath = "/betting/competitions/"
	bookmakersPath   = "/betting/bookmakers/"
	betsPath         = "/betting/bets/"
)

// APIError is a non-2xx response from the platform.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("betmatic api error %d: %s", e.StatusCode, e.Body)
}

// IsRetryable reports whether the retry policy should try again.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Unwrap maps well-known statuses onto domain sentinels.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ErrUnauthorized
	case http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case http.StatusNotFound:
		return domain.ErrNotFound
	}
	return nil
}

// Client is the low-level Betmatic API client. It carries no session state;
// authenticated calls take the token explicitly and Session layers the
// refresh logic on top.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Betmatic client for the given API root, e.g.
// "https://betmatic.app/api".
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login exchanges credentials for an opaque session token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp tokenResponse
	err := c.do(ctx, http.MethodPost, loginPath, "", loginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return "", fmt.Errorf("betmatic: login: %w", err)
	}
	if resp.Token == "" {
		return "", fmt.Errorf("betmatic: login succeeded but no token returned: %w", domain.ErrUnauthorized)
	}
	return resp.Token, nil
}

// Refresh exchanges a still-valid token for a fresh one.
func (c *Client) Refresh(ctx context.Context, token string) (string, error) {
	var resp tokenResponse
	err := c.do(ctx, http.MethodPost, refreshPath, token, refreshRequest{Token: token}, &resp)
	if err != nil {
		return "", fmt.Errorf("betmatic: refresh token: %w", err)
	}
	if resp.Token == "" {
		return "", fmt.Errorf("betmatic: refresh succeeded but no token returned: %w", domain.ErrUnauthorized)
	}
	return resp.Token, nil
}

// ListCompetitions returns the platform competitions within the given date
// window (YYYY-MM-DD, inclusive).
func (c *Client) ListCompetitions(ctx context.Context, token, dateFrom, dateTo string) ([]Competition, error) {
	params := url.Values{}
	params.Set("date_from", dateFrom)
	params.Set("date_to", dateTo)

	var comps []Competition
	err := c.do(ctx, http.MethodGet, competitionsPath+"?"+params.Encode(), token, nil, &comps)
	if err != nil {
		return nil, fmt.Errorf("betmatic: list competitions: %w", err)
	}
	return comps, nil
}

// ListBookmakers returns all bookmakers known to the platform.
func (c *Client) ListBookmakers(ctx context.Context, token string) ([]Bookmaker, error) {
	var books []Bookmaker
	err := c.do(ctx, http.MethodGet, bookmakersPath, token, nil, &books)
	if err != nil {
		return nil, fmt.Errorf("betmatic: list bookmakers: %w", err)
	}
	return books, nil
}

// CreateBet submits a bet notification.
func (c *Client) CreateBet(ctx context.Context, token string, req BetRequest) (BetResponse, error) {
	var resp BetResponse
	err := c.do(ctx, http.MethodPost, betsPath, token, req, &resp)
	if err != nil {
		return BetResponse{}, fmt.Errorf("betmatic: create bet: %w", err)
	}
	return resp, nil
}

// do sends one JSON request. A non-empty token is attached as a "Token"
// authorization header, matching the platform's scheme.
func (c *Client) do(ctx context.Context, method, path, token string, payload, result any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
