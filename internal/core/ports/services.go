package ports

import (
	"context"
	"net/netip"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/canopyops/geoscene/internal/core/domain"
)

// ListenerID identifies a listener registered on a RenderEngine.
type ListenerID uint64

// RenderEngine is a stateful map renderer. Exactly one owner mutates it.
type RenderEngine interface {
	// Load starts loading the base style. It returns immediately; completion
	// is signalled through an EventLoad or EventError listener.
	Load(ctx context.Context) error

	On(event domain.EngineEventType, fn func(domain.EngineEvent)) ListenerID
	Off(id ListenerID)

	HasSource(name string) bool
	AddSource(spec domain.SourceSpec) error
	SetSourceData(name string, data *geojson.FeatureCollection) error

	HasLayer(id string) bool
	AddLayer(spec domain.LayerSpec) error
	SetLayoutProperty(layerID, name string, value any) error
	SetPaintProperty(layerID, name string, value any) error
	SetFog(fog domain.Fog) error

	EaseTo(camera domain.Camera, duration time.Duration) error

	// Remove releases the engine. Every later call is a no-op.
	Remove()
}

// EventPublisher publishes scene events to a message broker.
type EventPublisher interface {
	PublishSceneUpdated(ctx context.Context, summary domain.SceneSummary) error
}

// EventSubscriber subscribes to upstream back-office change events.
type EventSubscriber interface {
	SubscribeChanges(ctx context.Context, handler func(ctx context.Context, subject string) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// GeoResolver resolves an IP address to an approximate location.
type GeoResolver interface {
	Lookup(addr netip.Addr) (loc domain.Coordinate, city string, ok bool)
}
