package usecases_test

import (
	"context"
	"errors"
	"net/netip"
	"sync"

	"github.com/canopyops/geoscene/internal/core/domain"
	"github.com/canopyops/geoscene/internal/core/scene"
)

// --- Mock PointRepository ---

type mockPointRepo struct {
	listFn func(ctx context.Context, cat domain.Category) ([]domain.GeoPoint, error)
}

func (m *mockPointRepo) ListByCategory(ctx context.Context, cat domain.Category) ([]domain.GeoPoint, error) {
	if m.listFn != nil {
		return m.listFn(ctx, cat)
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

// --- Mock CacheService ---

var errCacheMiss = errors.New("cache miss")

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
	gets int
}

func newMockCache() *mockCache { return &mockCache{data: map[string][]byte{}} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	v, ok := m.data[key]
	if !ok {
		return nil, errCacheMiss
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	published []domain.SceneSummary
}

func (m *mockPublisher) PublishSceneUpdated(ctx context.Context, s domain.SceneSummary) error {
	m.published = append(m.published, s)
	return nil
}

// --- Mock GeoResolver ---

type mockGeo struct {
	lookupFn func(addr netip.Addr) (domain.Coordinate, string, bool)
}

func (m *mockGeo) Lookup(addr netip.Addr) (domain.Coordinate, string, bool) {
	if m.lookupFn != nil {
		return m.lookupFn(addr)
	}
	return domain.Coordinate{}, "", false
}

// --- Recording SceneSink ---

type recordingSink struct {
	snapshots []scene.Snapshot
	loading   []bool
	applyErr  error
}

func (r *recordingSink) ApplySnapshot(s scene.Snapshot) error {
	if r.applyErr != nil {
		return r.applyErr
	}
	r.snapshots = append(r.snapshots, s)
	return nil
}

func (r *recordingSink) SetLoading(loading bool) { r.loading = append(r.loading, loading) }
