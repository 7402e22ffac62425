// Package betwatch is the GraphQL client for the Betwatch race-odds API. It
// fetches races with bookmaker fixed win prices and Betfair exchange prices,
// handling pagination and classifying transport errors for the retry layer.
package betwatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jcleary-au/racewatch/internal/domain"
)

// pageLimit stays under the provider's 100-row cap.
const pageLimit = 95

// pageDelay spaces out paginated requests within one fetch.
const pageDelay = 300 * time.Millisecond

// APIError is a non-2xx response or a GraphQL-level error from the provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("betwatch api error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable reports whether the retry policy should try again: server
// errors and rate limiting are transient, other client errors and
// authentication failures are not.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Unwrap maps well-known statuses onto domain sentinels so callers can use
// errors.Is.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ErrUnauthorized
	case http.StatusTooManyRequests:
		return domain.ErrRateLimited
	}
	return nil
}

// Client is the Betwatch GraphQL API client.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger.With(slog.String("component", "betwatch")) }
}

// NewClient creates a Betwatch client for the given GraphQL endpoint.
func NewClient(endpoint, apiKey string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		logger: slog.Default().With(slog.String("component", "betwatch")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetRaces fetches all races for the given date (YYYY-MM-DD), server-filtered
// by race type and location. It pages through the full result set, pausing
// briefly between pages to stay polite to the API.
func (c *Client) GetRaces(ctx context.Context, date string, types, locations []string) ([]domain.Race, error) {
	var races []domain.Race
	offset := 0

	for {
		payload := buildRacesPayload(date, types, locations, pageLimit, offset)
		c.logger.DebugContext(ctx, "fetching page", slog.String("query", payload.String()))

		batch, err := c.execute(ctx, payload)
		if err != nil {
			return nil, fmt.Errorf("betwatch: get races (offset %d): %w", offset, err)
		}

		for _, ar := range batch {
			race, ok := ar.toDomain()
			if !ok {
				c.logger.WarnContext(ctx, "dropping race with unparseable start time",
					slog.String("race_id", ar.ID),
					slog.String("start_time", ar.StartTime),
				)
				continue
			}
			races = append(races, race)
		}

		// A short page means the last page.
		if len(batch) < pageLimit {
			return races, nil
		}
		offset += pageLimit

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pageDelay):
		}
	}
}

// execute posts one GraphQL payload and decodes the response, surfacing
// GraphQL-level errors as *APIError.
func (c *Client) execute(ctx context.Context, payload queryPayload) ([]apiRace, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	var gql graphqlResponse
	if err := json.Unmarshal(respBody, &gql); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(gql.Errors) > 0 {
		msgs := make([]string, 0, len(gql.Errors))
		for _, e := range gql.Errors {
			msgs = append(msgs, e.Message)
		}
		msg := strings.Join(msgs, "; ")
		// Authentication failures must not be retried.
		if strings.Contains(msg, "Authentication failed") {
			return nil, &APIError{StatusCode: http.StatusUnauthorized, Message: msg}
		}
		return nil, &APIError{StatusCode: http.StatusBadGateway, Message: msg}
	}

	if gql.Data == nil {
		return nil, &APIError{StatusCode: http.StatusBadGateway, Message: "response missing data field"}
	}

	return gql.Data.Races, nil
}
