package betwatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jcleary-au/racewatch/internal/domain"
)

func raceJSON(id string, number int) map[string]any {
	return map[string]any{
		"id":        id,
		"meeting":   map[string]any{"id": "m1", "location": "VIC", "track": "Sandown Park", "type": "Greyhound", "date": "2026-08-28"},
		"name":      fmt.Sprintf("Race %d", number),
		"number":    number,
		"status":    "Open",
		"startTime": "2026-08-28T09:30:00Z",
		"runners":   []any{},
	}
}

func TestGetRaces_SinglePage(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-KEY")
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"races": []any{raceJSON("r1", 1), raceJSON("r2", 2)}},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "test-key")
	races, err := c.GetRaces(context.Background(), "2026-08-28", []string{"Greyhound"}, []string{"VIC"})
	if err != nil {
		t.Fatalf("GetRaces: %v", err)
	}
	if len(races) != 2 {
		t.Fatalf("len(races) = %d, want 2", len(races))
	}
	if gotKey != "test-key" {
		t.Errorf("X-API-KEY = %q, want %q", gotKey, "test-key")
	}
	if races[0].Meeting.Track != "Sandown Park" {
		t.Errorf("track = %q", races[0].Meeting.Track)
	}
}

func TestGetRaces_Paginates(t *testing.T) {
	var offsets []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload queryPayload
		json.NewDecoder(r.Body).Decode(&payload)
		offset := int(payload.Variables["offset"].(float64))
		offsets = append(offsets, offset)

		var batch []any
		if offset == 0 {
			for i := 0; i < pageLimit; i++ {
				batch = append(batch, raceJSON(fmt.Sprintf("r%d", i), i+1))
			}
		} else {
			batch = []any{raceJSON("last", 1)}
		}
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"races": batch}})
	}))
	defer server.Close()

	c := NewClient(server.URL, "k")
	races, err := c.GetRaces(context.Background(), "2026-08-28", nil, nil)
	if err != nil {
		t.Fatalf("GetRaces: %v", err)
	}
	if len(races) != pageLimit+1 {
		t.Errorf("len(races) = %d, want %d", len(races), pageLimit+1)
	}
	if len(offsets) != 2 || offsets[1] != pageLimit {
		t.Errorf("offsets = %v, want [0 %d]", offsets, pageLimit)
	}
}

func TestGetRaces_AuthErrorNotRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"errors": []any{map[string]any{"message": "Authentication failed."}},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "bad-key")
	_, err := c.GetRaces(context.Background(), "2026-08-28", nil, nil)
	if err == nil {
		t.Fatal("GetRaces returned nil error")
	}
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("err = %v, want domain.ErrUnauthorized", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.IsRetryable() {
		t.Error("auth error reported as retryable")
	}
}

func TestGetRaces_ServerErrorRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(server.URL, "k")
	_, err := c.GetRaces(context.Background(), "2026-08-28", nil, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if !apiErr.IsRetryable() {
		t.Error("500 reported as non-retryable")
	}
}

func TestGetRaces_DropsUnparseableStartTime(t *testing.T) {
	bad := raceJSON("bad", 1)
	bad["startTime"] = "not-a-time"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"races": []any{bad, raceJSON("good", 2)}},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "k")
	races, err := c.GetRaces(context.Background(), "2026-08-28", nil, nil)
	if err != nil {
		t.Fatalf("GetRaces: %v", err)
	}
	if len(races) != 1 || races[0].ID != "good" {
		t.Errorf("races = %+v, want only the parseable race", races)
	}
}
