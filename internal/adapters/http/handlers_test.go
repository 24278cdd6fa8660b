package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handlers "github.com/canopyops/geoscene/internal/adapters/http"
	"github.com/canopyops/geoscene/internal/adapters/stylegl"
	"github.com/canopyops/geoscene/internal/core/domain"
	"github.com/canopyops/geoscene/internal/core/scene"
	"github.com/canopyops/geoscene/internal/core/usecases"
)

// --- Mock PointRepository ---

type mockPointRepo struct {
	listFn func(ctx context.Context, category domain.Category) ([]domain.GeoPoint, error)
}

func (m *mockPointRepo) ListByCategory(ctx context.Context, category domain.Category) ([]domain.GeoPoint, error) {
	if m.listFn != nil {
		return m.listFn(ctx, category)
	}
	return nil, nil
}

// --- Mock JourneyRepository ---

type mockJourneyRepo struct {
	listActiveFn func(ctx context.Context, limit int) ([]domain.ShipmentJourney, error)
	getFn        func(ctx context.Context, trackingID string) (*domain.ShipmentJourney, error)
}

func (m *mockJourneyRepo) ListActive(ctx context.Context, limit int) ([]domain.ShipmentJourney, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockJourneyRepo) GetByTrackingID(ctx context.Context, trackingID string) (*domain.ShipmentJourney, error) {
	if m.getFn != nil {
		return m.getFn(ctx, trackingID)
	}
	return nil, nil
}

// --- Helpers ---

func journeys(n int) []domain.ShipmentJourney {
	t0 := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	out := make([]domain.ShipmentJourney, n)
	for i := range out {
		out[i] = domain.ShipmentJourney{
			TrackingID: fmt.Sprintf("T%02d", i),
			Carrier:    "FedEx",
			Status:     domain.StatusInTransit,
			Waypoints: []domain.Waypoint{
				{City: "Austin", Position: domain.Coordinate{Lon: -97.74, Lat: 30.27}, Timestamp: t0},
				{City: "Denver", Position: domain.Coordinate{Lon: -104.99, Lat: 39.74}, Timestamp: t0.Add(5 * time.Hour)},
			},
		}
	}
	return out
}

// mountScene mounts a controller on the built-in style. An empty token leaves
// the scene errored.
func mountScene(t *testing.T, token string) (*scene.Controller, *stylegl.Host) {
	t.Helper()
	host := stylegl.NewHost(stylegl.Options{Camera: scene.DefaultCamera})
	ctrl := scene.NewController(host.Factory(), scene.Options{
		AccessToken:   token,
		Registry:      scene.NewRegistry(""),
		ResetDuration: 10 * time.Millisecond,
	})
	_ = ctrl.Mount(context.Background())
	t.Cleanup(ctrl.Unmount)

	if token == "" {
		return ctrl, host
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		state, err := ctrl.State()
		if state == scene.StateReady {
			return ctrl, host
		}
		if err != nil {
			t.Fatalf("scene failed to load: %v", err)
		}
		if time.Now().After(deadline) {
			t.Fatalf("scene stuck in %s", state)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func makeDeps(t *testing.T, token string, points *mockPointRepo, repo *mockJourneyRepo) *handlers.Dependencies {
	t.Helper()
	if points == nil {
		points = &mockPointRepo{}
	}
	if repo == nil {
		repo = &mockJourneyRepo{}
	}
	ctrl, host := mountScene(t, token)
	return &handlers.Dependencies{
		Scene:   ctrl,
		Engines: host,
		Snapshots: usecases.NewSnapshotService(points, repo, nil, nil, nil, ctrl, usecases.SnapshotOptions{
			JourneyLimit: 10,
			ArcSegments:  4,
		}),
		Journeys: usecases.NewJourneyService(repo, 10),
		MapToken: token,
	}
}

func setupApp(deps *handlers.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	handlers.SetupRoutes(app, deps)
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, []byte, map[string][]string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data, resp.Header
}

func decode(t *testing.T, data []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
}

// --- Tests ---

func TestHealthHandler(t *testing.T) {
	app := setupApp(makeDeps(t, "pk.test", nil, nil))

	status, body, _ := do(t, app, "GET", "/v1/health", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var resp map[string]any
	decode(t, body, &resp)
	if resp["status"] != "healthy" {
		t.Errorf("expected healthy, got %v", resp["status"])
	}
	if resp["scene"] != "ready" {
		t.Errorf("expected the scene state, got %v", resp["scene"])
	}
}

func TestReadyHandler_NoDatabase(t *testing.T) {
	app := setupApp(makeDeps(t, "pk.test", nil, nil))

	status, body, _ := do(t, app, "GET", "/v1/ready", "")
	if status != 503 {
		t.Fatalf("expected 503 without a database, got %d", status)
	}
	var resp struct {
		Checks map[string]string `json:"checks"`
	}
	decode(t, body, &resp)
	if resp.Checks["scene"] != "ready" {
		t.Errorf("expected a ready scene, got %q", resp.Checks["scene"])
	}
	if resp.Checks["database"] != "not configured" {
		t.Errorf("unexpected database check %q", resp.Checks["database"])
	}
}

func TestSceneHandler_ReadyState(t *testing.T) {
	app := setupApp(makeDeps(t, "pk.test", nil, nil))

	status, body, _ := do(t, app, "GET", "/v1/scene", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var v struct {
		State      string                      `json:"state"`
		Visibility domain.LayerVisibilityState `json:"visibility"`
	}
	decode(t, body, &v)
	if v.State != "ready" {
		t.Errorf("expected ready, got %s", v.State)
	}
	for _, g := range domain.LayerGroups {
		if !v.Visibility[g] {
			t.Errorf("group %s should start visible", g)
		}
	}
}

func TestSceneStyleHandler_ServesInstalledLayers(t *testing.T) {
	app := setupApp(makeDeps(t, "pk.test", nil, nil))

	status, body, _ := do(t, app, "GET", "/v1/scene/style", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var doc struct {
		Version int `json:"version"`
		Layers  []struct {
			ID string `json:"id"`
		} `json:"layers"`
	}
	decode(t, body, &doc)
	if doc.Version != 8 {
		t.Errorf("expected style version 8, got %d", doc.Version)
	}
	found := map[string]bool{}
	for _, l := range doc.Layers {
		found[l.ID] = true
	}
	for _, id := range []string{scene.LayerImagery, scene.LayerStoresPoint, scene.LayerJourneyLine} {
		if !found[id] {
			t.Errorf("style is missing layer %s", id)
		}
	}
}

func TestSceneStyleHandler_ErroredScene(t *testing.T) {
	app := setupApp(makeDeps(t, "", nil, nil))

	status, body, _ := do(t, app, "GET", "/v1/scene/style", "")
	if status != 503 {
		t.Fatalf("expected 503, got %d", status)
	}
	var resp struct {
		Code        string `json:"code"`
		Explanation struct {
			Title string `json:"title"`
		} `json:"explanation"`
	}
	decode(t, body, &resp)
	if resp.Code != "scene_unavailable" {
		t.Errorf("expected scene_unavailable, got %q", resp.Code)
	}
	if resp.Explanation.Title == "" {
		t.Error("expected an explanation title")
	}
}

func TestViewportHandler(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		app := setupApp(makeDeps(t, "pk.test", nil, nil))
		status, body, headers := do(t, app, "GET", "/v1/scene/viewport", "")
		if status != 200 {
			t.Fatalf("expected 200, got %d", status)
		}
		if !strings.Contains(string(body), "mapboxgl.accessToken") {
			t.Error("viewport should start the map client")
		}
		if got := strings.Join(headers["X-Frame-Options"], ""); got != "SAMEORIGIN" {
			t.Errorf("expected SAMEORIGIN framing, got %q", got)
		}
	})

	t.Run("errored", func(t *testing.T) {
		app := setupApp(makeDeps(t, "", nil, nil))
		status, body, _ := do(t, app, "GET", "/v1/scene/viewport", "")
		if status != 503 {
			t.Fatalf("expected 503, got %d", status)
		}
		if strings.Contains(string(body), "mapboxgl.accessToken") {
			t.Error("errored viewport must not start the map client")
		}
	})
}

func TestSetVisibilityHandler(t *testing.T) {
	deps := makeDeps(t, "pk.test", nil, nil)
	app := setupApp(deps)

	status, body, _ := do(t, app, "PUT", "/v1/scene/visibility", `{"stores": false}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	vis := deps.Scene.Visibility()
	if vis[domain.GroupStores] {
		t.Error("stores should be hidden")
	}
	if !vis[domain.GroupCustomers] {
		t.Error("groups missing from the body must keep their visibility")
	}

	status, _, _ = do(t, app, "PUT", "/v1/scene/visibility", `{"weather": true}`)
	if status != 400 {
		t.Errorf("expected 400 for an unknown group, got %d", status)
	}
}

func TestSetLoadingHandler(t *testing.T) {
	deps := makeDeps(t, "pk.test", nil, nil)
	app := setupApp(deps)

	if status, _, _ := do(t, app, "PUT", "/v1/scene/loading", `{}`); status != 400 {
		t.Errorf("expected 400 without isLoading, got %d", status)
	}
	if status, _, _ := do(t, app, "PUT", "/v1/scene/loading", `{"isLoading": false}`); status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if deps.Scene.View().Loading {
		t.Error("loading flag should be cleared")
	}
}

func TestZoomHandler(t *testing.T) {
	deps := makeDeps(t, "pk.test", nil, nil)
	app := setupApp(deps)

	status, body, _ := do(t, app, "POST", "/v1/scene/zoom", `{"zoom": 12}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var resp struct {
		Zoom       float64          `json:"zoom"`
		Atmosphere scene.Atmosphere `json:"atmosphere"`
	}
	decode(t, body, &resp)
	if resp.Zoom != 12 {
		t.Errorf("expected zoom 12, got %v", resp.Zoom)
	}
	if resp.Atmosphere != scene.AtmosphereAt(12) {
		t.Errorf("atmosphere %+v does not follow zoom", resp.Atmosphere)
	}

	for _, bad := range []string{`{}`, `{"zoom": -1}`, `{"zoom": 30}`} {
		if status, _, _ := do(t, app, "POST", "/v1/scene/zoom", bad); status != 400 {
			t.Errorf("%s: expected 400, got %d", bad, status)
		}
	}
}

func TestResetViewHandler(t *testing.T) {
	app := setupApp(makeDeps(t, "pk.test", nil, nil))
	if status, _, _ := do(t, app, "POST", "/v1/scene/reset-view", ""); status != 202 {
		t.Errorf("expected 202 on a ready scene, got %d", status)
	}

	errored := setupApp(makeDeps(t, "", nil, nil))
	if status, _, _ := do(t, errored, "POST", "/v1/scene/reset-view", ""); status != 409 {
		t.Errorf("expected 409 on an errored scene, got %d", status)
	}
}

func TestSceneEventHandler_ClickOpensPopup(t *testing.T) {
	deps := makeDeps(t, "pk.test", nil, nil)
	app := setupApp(deps)

	click := fmt.Sprintf(`{"type":"click","layer":%q,"properties":{"name":"Loop Store","city":"Chicago","state":"IL","revenue":1200},"lngLat":[-87.63,41.88]}`, scene.LayerStoresPoint)
	status, body, _ := do(t, app, "POST", "/v1/scene/events", click)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var resp struct {
		Popup *scene.Popup `json:"popup"`
	}
	decode(t, body, &resp)
	if resp.Popup == nil {
		t.Fatal("expected a popup")
	}
	if resp.Popup.Kind != scene.PopupStore || resp.Popup.Title != "Loop Store" {
		t.Errorf("unexpected popup %+v", resp.Popup)
	}
	if resp.Popup.Subtitle != "Chicago, IL" {
		t.Errorf("expected the city subtitle, got %q", resp.Popup.Subtitle)
	}

	if status, _, _ := do(t, app, "DELETE", "/v1/scene/popup", ""); status != 204 {
		t.Errorf("expected 204, got %d", status)
	}
	if deps.Scene.View().Popup != nil {
		t.Error("popup should be closed")
	}
}

func TestSceneEventHandler_Rejections(t *testing.T) {
	app := setupApp(makeDeps(t, "pk.test", nil, nil))

	if status, _, _ := do(t, app, "POST", "/v1/scene/events", `{"type":"drag"}`); status != 400 {
		t.Errorf("expected 400 for an unsupported type, got %d", status)
	}
	if status, _, _ := do(t, app, "POST", "/v1/scene/events", `{"type":"click","lngLat":[500,0]}`); status != 400 {
		t.Errorf("expected 400 for an invalid position, got %d", status)
	}

	errored := setupApp(makeDeps(t, "", nil, nil))
	if status, _, _ := do(t, errored, "POST", "/v1/scene/events", `{"type":"click"}`); status != 503 {
		t.Errorf("expected 503 on an errored scene, got %d", status)
	}
}

func TestRefreshAndSourceHandlers(t *testing.T) {
	points := &mockPointRepo{listFn: func(ctx context.Context, category domain.Category) ([]domain.GeoPoint, error) {
		if category != domain.CategoryStore {
			return nil, nil
		}
		return []domain.GeoPoint{{
			ID:       "s1",
			Name:     "Loop Store",
			Category: domain.CategoryStore,
			Position: domain.Coordinate{Lon: -87.63, Lat: 41.88},
		}}, nil
	}}
	repo := &mockJourneyRepo{listActiveFn: func(ctx context.Context, limit int) ([]domain.ShipmentJourney, error) {
		return journeys(2), nil
	}}
	app := setupApp(makeDeps(t, "pk.test", points, repo))

	status, body, _ := do(t, app, "POST", "/v1/scene/refresh", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	status, body, _ = do(t, app, "GET", "/v1/scene/sources/stores", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var fc struct {
		Type     string `json:"type"`
		Features []any  `json:"features"`
	}
	decode(t, body, &fc)
	if fc.Type != "FeatureCollection" || len(fc.Features) != 1 {
		t.Errorf("unexpected stores collection %s", body)
	}

	status, body, _ = do(t, app, "GET", "/v1/scene/sources/journey-lines", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	decode(t, body, &fc)
	if len(fc.Features) != 2 {
		t.Errorf("expected 2 journey lines, got %d", len(fc.Features))
	}

	if status, _, _ := do(t, app, "GET", "/v1/scene/sources/rivers", ""); status != 404 {
		t.Errorf("expected 404 for an unknown source, got %d", status)
	}
}

func TestRefreshHandler_NotConfigured(t *testing.T) {
	deps := makeDeps(t, "pk.test", nil, nil)
	deps.Snapshots = nil
	app := setupApp(deps)

	if status, _, _ := do(t, app, "POST", "/v1/scene/refresh", ""); status != 503 {
		t.Errorf("expected 503, got %d", status)
	}
}

func TestListJourneysHandler_Pagination(t *testing.T) {
	repo := &mockJourneyRepo{listActiveFn: func(ctx context.Context, limit int) ([]domain.ShipmentJourney, error) {
		return journeys(5), nil
	}}
	app := setupApp(makeDeps(t, "pk.test", nil, repo))

	status, body, headers := do(t, app, "GET", "/v1/journeys?offset=2&limit=2", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var resp struct {
		Data       []usecases.JourneySummary `json:"data"`
		Pagination handlers.Pagination       `json:"pagination"`
	}
	decode(t, body, &resp)
	if resp.Pagination.Total != 5 || len(resp.Data) != 2 {
		t.Fatalf("unexpected page %+v", resp.Pagination)
	}
	if resp.Data[0].TrackingID != "T02" || resp.Data[0].Color == "" {
		t.Errorf("unexpected first journey %+v", resp.Data[0])
	}

	link := strings.Join(headers["Link"], ", ")
	for _, rel := range []string{`rel="first"`, `rel="prev"`, `rel="next"`, `rel="last"`} {
		if !strings.Contains(link, rel) {
			t.Errorf("Link header %q is missing %s", link, rel)
		}
	}
}

func TestGetJourneyHandler(t *testing.T) {
	repo := &mockJourneyRepo{
		listActiveFn: func(ctx context.Context, limit int) ([]domain.ShipmentJourney, error) {
			return journeys(3), nil
		},
		getFn: func(ctx context.Context, trackingID string) (*domain.ShipmentJourney, error) {
			for _, j := range journeys(3) {
				if j.TrackingID == trackingID {
					return &j, nil
				}
			}
			return nil, nil
		},
	}
	app := setupApp(makeDeps(t, "pk.test", nil, repo))

	status, body, _ := do(t, app, "GET", "/v1/journeys/T01", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var j usecases.JourneySummary
	decode(t, body, &j)
	if j.TrackingID != "T01" || j.OriginCity != "Austin" {
		t.Errorf("unexpected journey %+v", j)
	}

	if status, _, _ := do(t, app, "GET", "/v1/journeys/NOPE", ""); status != 404 {
		t.Errorf("expected 404, got %d", status)
	}
}

func TestGraphQLHandler(t *testing.T) {
	deps := makeDeps(t, "pk.test", nil, nil)
	app := setupApp(deps)

	query := `{"query":"{ scene { state visibility { group visible } } layers(group: \"stores\") { id interactive } }"}`
	status, body, _ := do(t, app, "POST", "/graphql", query)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var resp struct {
		Data struct {
			Scene struct {
				State string `json:"state"`
			} `json:"scene"`
			Layers []struct {
				ID          string `json:"id"`
				Interactive bool   `json:"interactive"`
			} `json:"layers"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	decode(t, body, &resp)
	if len(resp.Errors) > 0 {
		t.Fatalf("graphql errors: %v", resp.Errors)
	}
	if resp.Data.Scene.State != "ready" {
		t.Errorf("expected ready, got %q", resp.Data.Scene.State)
	}
	if len(resp.Data.Layers) == 0 {
		t.Fatal("expected store layers")
	}
	for _, l := range resp.Data.Layers {
		if !strings.HasPrefix(l.ID, "stores-") {
			t.Errorf("layer %s is not in the stores group", l.ID)
		}
	}

	mutation := `{"query":"mutation { setVisibility(group: \"traffic\", visible: false) { state } }"}`
	if status, _, _ := do(t, app, "POST", "/graphql", mutation); status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if deps.Scene.Visibility()[domain.GroupTraffic] {
		t.Error("traffic should be hidden after the mutation")
	}
}

func TestWebSocket_RequiresUpgrade(t *testing.T) {
	app := setupApp(makeDeps(t, "pk.test", nil, nil))
	if status, _, _ := do(t, app, "GET", "/ws", ""); status != fiber.StatusUpgradeRequired {
		t.Errorf("expected 426, got %d", status)
	}
}

func TestETag_RevalidatesSources(t *testing.T) {
	app := setupApp(makeDeps(t, "pk.test", nil, nil))

	status, _, headers := do(t, app, "GET", "/v1/scene/sources/customers", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	etag := strings.Join(headers["Etag"], "")
	if !strings.HasPrefix(etag, `W/"`) {
		t.Fatalf("expected a weak ETag, got %q", etag)
	}

	req := httptest.NewRequest("GET", "/v1/scene/sources/customers", nil)
	req.Header.Set("If-None-Match", `"other", `+strings.TrimPrefix(etag, "W/"))
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusNotModified {
		t.Errorf("expected 304, got %d", resp.StatusCode)
	}

	if _, _, headers := do(t, app, "GET", "/v1/scene", ""); len(headers["Etag"]) != 0 {
		t.Error("live scene state must not carry an ETag")
	}
}
