//go:build integration
// +build integration

package http_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/canopyops/geoscene/internal/adapters/http"
	"github.com/canopyops/geoscene/internal/adapters/postgres"
	"github.com/canopyops/geoscene/internal/core/domain"
	"github.com/canopyops/geoscene/internal/core/usecases"
	"github.com/canopyops/geoscene/internal/pkg/config"
)

// setupTestDB connects to the test database with a writable pool so tests
// can seed rows.
func setupTestDB(t *testing.T) *postgres.DB {
	cfg, err := config.Load("geoscene-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	pool, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}

	db := &postgres.DB{Pool: pool}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		t.Skipf("test database not available: %v", err)
	}

	t.Cleanup(func() {
		pool.Exec(context.Background(), "DELETE FROM shipment_journeys WHERE tracking_id LIKE 'IT-%'")
		pool.Exec(context.Background(), "DELETE FROM geo_points WHERE id LIKE 'it-%'")
		pool.Close()
	})
	return db
}

func setupTestDeps(t *testing.T, db *postgres.DB) *http.Dependencies {
	journeys := postgres.NewJourneyRepo(db)
	points := postgres.NewPointRepo(db)
	ctrl, host := mountScene(t, "pk.integration")

	return &http.Dependencies{
		Scene:     ctrl,
		Engines:   host,
		Snapshots: usecases.NewSnapshotService(points, journeys, nil, nil, nil, ctrl, usecases.SnapshotOptions{}),
		Journeys:  usecases.NewJourneyService(journeys, 50),
		DB:        db,
	}
}

func seedTestJourney(t *testing.T, db *postgres.DB, trackingID, status string, updatedAt time.Time) {
	ctx := context.Background()
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO shipment_journeys (tracking_id, carrier, status, updated_at)
		VALUES ($1, 'UPS', $2, $3)
		ON CONFLICT (tracking_id) DO UPDATE SET status = $2, updated_at = $3`,
		trackingID, status, updatedAt,
	)
	if err != nil {
		t.Fatalf("seed journey: %v", err)
	}
	_, err = db.Pool.Exec(ctx, `
		INSERT INTO shipment_waypoints (tracking_id, lat, lon, city, state, event_type, occurred_at)
		VALUES ($1, 30.27, -97.74, 'Austin', 'TX', 'picked_up', $2),
		       ($1, 39.74, -104.99, 'Denver', 'CO', 'arrived', $3)`,
		trackingID, updatedAt.Add(-30*time.Hour), updatedAt,
	)
	if err != nil {
		t.Fatalf("seed waypoints: %v", err)
	}
}

func seedTestPoint(t *testing.T, db *postgres.DB, id, category, name string) {
	_, err := db.Pool.Exec(context.Background(), `
		INSERT INTO geo_points (id, category, name, city, state, lat, lon, revenue, order_count)
		VALUES ($1, $2, $3, 'Chicago', 'IL', 41.88, -87.63, 1200, 12)
		ON CONFLICT (id) DO NOTHING`,
		id, category, name,
	)
	if err != nil {
		t.Fatalf("seed point: %v", err)
	}
}

func TestListJourneys_Integration_WithRealDB(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := setupTestDB(t)
	now := time.Now().UTC().Truncate(time.Second)
	seedTestJourney(t, db, "IT-001", "in_transit", now)
	seedTestJourney(t, db, "IT-002", "out_for_delivery", now.Add(-time.Minute))
	seedTestJourney(t, db, "IT-003", "delivered", now.Add(time.Minute))

	app := setupApp(setupTestDeps(t, db))

	req := httptest.NewRequest("GET", "/v1/journeys?limit=100", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data []usecases.JourneySummary `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}

	seen := map[string]usecases.JourneySummary{}
	for _, j := range result.Data {
		seen[j.TrackingID] = j
	}
	if _, ok := seen["IT-003"]; ok {
		t.Error("delivered journeys must not be listed")
	}
	j, ok := seen["IT-001"]
	if !ok {
		t.Fatal("expected IT-001 in the active list")
	}
	if j.Waypoints != 2 || j.OriginCity != "Austin" || j.DestinationCity != "Denver" {
		t.Errorf("unexpected journey %+v", j)
	}
	if j.TransitLabel != "1 day" {
		t.Errorf("expected a 1 day transit, got %q", j.TransitLabel)
	}
}

func TestGetJourney_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := setupTestDB(t)
	seedTestJourney(t, db, "IT-010", "delivered", time.Now().UTC())
	app := setupApp(setupTestDeps(t, db))

	req := httptest.NewRequest("GET", "/v1/journeys/IT-010", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var j usecases.JourneySummary
	json.NewDecoder(resp.Body).Decode(&j)
	if j.Status != domain.StatusDelivered {
		t.Errorf("expected delivered, got %s", j.Status)
	}
	if j.Color != "" {
		t.Errorf("inactive journeys carry no map colour, got %q", j.Color)
	}

	req = httptest.NewRequest("GET", "/v1/journeys/IT-missing", nil)
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestRefresh_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := setupTestDB(t)
	seedTestPoint(t, db, "it-store-1", "store", "Loop Store")
	app := setupApp(setupTestDeps(t, db))

	req := httptest.NewRequest("POST", "/v1/scene/refresh", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var summary domain.SceneSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if summary.FeatureCounts["stores"] < 1 {
		t.Errorf("expected at least the seeded store, got %+v", summary)
	}
}
