// workers/merchant_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"merchant-onboarding-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MerchantProfile matches the JSON response of the platform sync service.
type MerchantProfile struct {
	ID        string    `json:"id"`
	StoreName string    `json:"store_name"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GetMerchantChangesResponse is the top-level structure of the sync
// service response.
type GetMerchantChangesResponse struct {
	Merchants []MerchantProfile `json:"merchants"`
}

// MerchantSyncWorker keeps the local players table in step with the
// platform's merchant directory, so dashboards show store names and emails
// before the merchant's first processed event. Players are still created
// lazily by the engine when an event arrives first; this worker only fills
// in profile fields.
type MerchantSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string
	endpointPath string
	serviceToken string
	httpClient   *http.Client
}

func NewMerchantSyncWorker(db *gorm.DB, syncServiceBaseURL, endpointPath, serviceToken string) *MerchantSyncWorker {
	return &MerchantSyncWorker{
		db:           db,
		interval:     1 * time.Minute,
		baseURL:      syncServiceBaseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (w *MerchantSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Merchant Sync Worker (sync-service → players)…")
	go w.run(ctx)
}

func (w *MerchantSyncWorker) run(ctx context.Context) {
	// Initial sync backfills from the beginning of time.
	if err := w.syncBatch(ctx, time.Time{}); err != nil {
		log.Printf("⚠️ Initial merchant sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.syncBatch(ctx, w.getLastSyncTime()); err != nil {
				log.Printf("❌ Merchant sync batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Merchant Sync Worker stopped")
			return
		}
	}
}

// getLastSyncTime finds the most recent UpdatedAt in the local players
// table; incremental fetches only ask for changes after it.
func (w *MerchantSyncWorker) getLastSyncTime() time.Time {
	var lastTime time.Time
	err := w.db.Raw("SELECT MAX(updated_at) FROM players WHERE deleted_at IS NULL").Scan(&lastTime).Error
	if err != nil || lastTime.IsZero() {
		return time.Unix(0, 0)
	}
	return lastTime
}

// syncBatch fetches merchant changes and upserts them into players keyed
// on the external id.
func (w *MerchantSyncWorker) syncBatch(ctx context.Context, since time.Time) error {
	sinceStr := since.UTC().Format(time.RFC3339)

	base, err := url.Parse(w.baseURL)
	if err != nil {
		return fmt.Errorf("invalid sync service URL %q: %w", w.baseURL, err)
	}
	endpointURL := base.JoinPath(w.endpointPath)
	q := endpointURL.Query()
	q.Set("since", sinceStr)
	endpointURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", endpointURL.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create sync request: %w", err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request to sync service failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("sync service non-200 response: %d — %s", resp.StatusCode, string(body))
	}

	var response GetMerchantChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode sync service response: %w", err)
	}

	if len(response.Merchants) == 0 {
		return nil
	}

	log.Printf("[SYNC] 📥 Processing %d merchant profile(s)…", len(response.Merchants))

	var upsertCount, errorCount int
	for _, m := range response.Merchants {
		player := models.Player{
			ID:         uuid.NewString(),
			ExternalID: m.ID,
			StoreName:  m.StoreName,
			Email:      m.Email,
		}

		// Profile fields only — never the counters, which are owned by
		// the engine's atomic increments.
		if err := w.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"store_name", "email", "updated_at"}),
		}).Create(&player).Error; err != nil {
			errorCount++
			log.Printf("[SYNC] ⚠️ Failed to upsert player (external_id=%q, store=%q): %v",
				m.ID, m.StoreName, err)
		} else {
			upsertCount++
		}
	}

	log.Printf("[SYNC] ✅ Synced %d merchant(s) (%d upserted, %d errors)",
		len(response.Merchants), upsertCount, errorCount)
	return nil
}
