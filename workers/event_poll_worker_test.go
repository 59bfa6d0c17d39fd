package workers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"merchant-onboarding-system/engine"
	"merchant-onboarding-system/models"
)

// stubCatalog is the only port an unmatchable event reaches: an empty
// catalog makes every event type invalid, a non-nil err simulates storage
// being down.
type stubCatalog struct{ err error }

func (s stubCatalog) EventByName(context.Context, string) (*models.CatalogEvent, error) {
	return nil, s.err
}
func (s stubCatalog) ActiveTasksByEvent(context.Context, string) ([]models.Task, error) {
	return nil, nil
}
func (s stubCatalog) TaskByID(context.Context, string) (*models.Task, error)      { return nil, nil }
func (s stubCatalog) TasksForMission(context.Context, string) ([]models.Task, error) {
	return nil, nil
}
func (s stubCatalog) MissionByID(context.Context, string) (*models.Mission, error) { return nil, nil }
func (s stubCatalog) RewardsForMission(context.Context, string) ([]models.Reward, error) {
	return nil, nil
}

// activityFeed serves one fixed record on every poll and captures the
// `since` cursor of each request.
func activityFeed(t *testing.T) (*httptest.Server, func() []string) {
	t.Helper()

	var mu sync.Mutex
	var sinceSeen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		sinceSeen = append(sinceSeen, r.URL.Query().Get("since"))
		mu.Unlock()

		_ = json.NewEncoder(w).Encode(map[string]any{
			"activity": []map[string]any{{
				"merchant_id": "shop-123",
				"event_type":  "never_registered_type",
				"occurred_at": time.Now().UTC().Format(time.RFC3339),
			}},
		})
	}))
	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), sinceSeen...)
	}
}

func pollOnce(t *testing.T, cat stubCatalog, duration time.Duration) []string {
	t.Helper()

	srv, since := activityFeed(t)
	defer srv.Close()

	client := &EventPollClient{
		BaseURL:    srv.URL,
		Token:      "service-token",
		HTTPClient: srv.Client(),
		Engine:     engine.New(cat, nil, nil, nil, nil, nil),
	}

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()
	PollActivity(ctx, client, 10*time.Millisecond)

	seen := since()
	if len(seen) < 2 {
		t.Fatalf("expected at least 2 polls, got %d", len(seen))
	}
	return seen
}

func TestPollActivityDropsInvalidRecords(t *testing.T) {
	// The feed always replays a record with an unregistered event type.
	// Dropping it must advance the cursor instead of re-polling the same
	// window forever.
	seen := pollOnce(t, stubCatalog{}, 200*time.Millisecond)

	first, err := time.Parse(time.RFC3339, seen[0])
	if err != nil {
		t.Fatalf("first since param %q: %v", seen[0], err)
	}
	second, err := time.Parse(time.RFC3339, seen[1])
	if err != nil {
		t.Fatalf("second since param %q: %v", seen[1], err)
	}
	if !second.After(first) {
		t.Fatalf("cursor stuck at %s after an invalid record", seen[0])
	}
}

func TestPollActivityHoldsCursorOnStorageFailure(t *testing.T) {
	// A catalog lookup failure is transient; the same window must be
	// retried on every tick.
	seen := pollOnce(t, stubCatalog{err: errors.New("connection refused")}, 200*time.Millisecond)

	for i, s := range seen {
		if s != seen[0] {
			t.Fatalf("cursor advanced past a failed batch: poll %d since %q, want %q", i, s, seen[0])
		}
	}
}
