// workers/event_poll_worker.go
package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"merchant-onboarding-system/engine"
)

// EventPollClient pulls platform activity from the sync service for
// deployments where the platform cannot push webhooks at us. Delivery is
// at-least-once: the engine's event-log idempotency makes redelivered
// batches harmless, so the cursor only advances after a full batch.
// Records the engine rejects as invalid are dropped instead of holding the
// cursor; they would fail identically on every redelivery.
type EventPollClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Engine     *engine.Engine
}

func NewEventPollClient(eng *engine.Engine) *EventPollClient {
	baseURL := os.Getenv("SYNC_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("SYNC_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("ONBOARDING_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("ONBOARDING_SERVICE_TOKEN environment variable is required for event polling")
	}

	return &EventPollClient{
		BaseURL: baseURL,
		Token:   token,
		Engine:  eng,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// activityRecord is one platform activity row from the feed.
type activityRecord struct {
	MerchantID string         `json:"merchant_id"`
	EventType  string         `json:"event_type"`
	Properties map[string]any `json:"properties"`
	OccurredAt time.Time      `json:"occurred_at"`
}

func (c *EventPollClient) GetActivitySince(ctx context.Context, since time.Time) ([]activityRecord, error) {
	u, err := url.Parse(fmt.Sprintf("%s/api/v1/public/activity", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := u.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call sync service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("sync service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Activity []activityRecord `json:"activity"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode sync service response: %w", err)
	}

	return response.Activity, nil
}

// PollActivity runs the poll loop until the context is cancelled.
func PollActivity(ctx context.Context, client *EventPollClient, pollInterval time.Duration) {
	log.Println("Starting platform activity polling…")
	lastSyncTime := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Activity polling stopped.")
			return
		case <-ticker.C:
			batchStart := time.Now().UTC()

			records, err := client.GetActivitySince(ctx, lastSyncTime)
			if err != nil {
				log.Printf("❌ Error polling activity: %v", err)
				continue
			}
			if len(records) == 0 {
				continue
			}

			log.Printf("📥 Received %d activity record(s) from sync service.", len(records))

			failed := 0
			dropped := 0
			for _, rec := range records {
				ev := engine.Event{
					PlayerExternalID: rec.MerchantID,
					EventType:        rec.EventType,
					Properties:       rec.Properties,
					Timestamp:        rec.OccurredAt,
				}
				if _, err := client.Engine.ProcessEvent(ctx, ev); err != nil {
					if errors.Is(err, engine.ErrInvalidEvent) {
						// Malformed records never become valid on replay;
						// log and drop so the cursor can move past them.
						dropped++
						log.Printf("⚠️ Dropping invalid activity (merchant=%s, type=%s): %v",
							rec.MerchantID, rec.EventType, err)
						continue
					}
					// Transient failures hold the cursor so the batch is
					// retried next tick.
					failed++
					log.Printf("❌ Failed to process activity (merchant=%s, type=%s): %v",
						rec.MerchantID, rec.EventType, err)
				}
			}

			if failed > 0 {
				log.Printf("⚠️ %d/%d activity record(s) failed; retrying window next tick", failed, len(records))
				continue
			}

			lastSyncTime = batchStart
			log.Printf("✅ Processed %d activity record(s) (%d dropped).", len(records), dropped)
		}
	}
}
