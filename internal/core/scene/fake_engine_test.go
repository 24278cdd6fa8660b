package scene_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/canopyops/geoscene/internal/core/domain"
	"github.com/canopyops/geoscene/internal/core/ports"
)

// fakeEngine records every mutation. Load does not signal; tests fire events
// explicitly with emit, from loadFn when the signal belongs to loading.
type fakeEngine struct {
	mu        sync.Mutex
	nextID    ports.ListenerID
	listeners map[ports.ListenerID]listener
	sources   map[string]domain.SourceSpec
	layers    map[string]domain.LayerSpec
	data      map[string]*geojson.FeatureCollection
	calls     []string
	fog       *domain.Fog
	removed   bool

	loadFn func(ctx context.Context) error
}

type listener struct {
	event domain.EngineEventType
	fn    func(domain.EngineEvent)
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		listeners: make(map[ports.ListenerID]listener),
		sources:   make(map[string]domain.SourceSpec),
		layers:    make(map[string]domain.LayerSpec),
		data:      make(map[string]*geojson.FeatureCollection),
	}
}

func (e *fakeEngine) record(format string, args ...any) {
	e.calls = append(e.calls, fmt.Sprintf(format, args...))
}

func (e *fakeEngine) Load(ctx context.Context) error {
	if e.loadFn != nil {
		return e.loadFn(ctx)
	}
	return nil
}

func (e *fakeEngine) On(event domain.EngineEventType, fn func(domain.EngineEvent)) ports.ListenerID {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	e.listeners[e.nextID] = listener{event: event, fn: fn}
	return e.nextID
}

func (e *fakeEngine) Off(id ports.ListenerID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.listeners, id)
}

func (e *fakeEngine) emit(ev domain.EngineEvent) {
	e.mu.Lock()
	var fns []func(domain.EngineEvent)
	for _, l := range e.listeners {
		if l.event == ev.Type {
			fns = append(fns, l.fn)
		}
	}
	e.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (e *fakeEngine) listenerCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners)
}

func (e *fakeEngine) HasSource(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.sources[name]
	return ok
}

func (e *fakeEngine) AddSource(spec domain.SourceSpec) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.sources[spec.Name]; ok {
		return fmt.Errorf("source %s already exists", spec.Name)
	}
	e.sources[spec.Name] = spec
	e.record("addSource %s", spec.Name)
	return nil
}

func (e *fakeEngine) SetSourceData(name string, fc *geojson.FeatureCollection) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.sources[name]; !ok {
		return fmt.Errorf("no source %s", name)
	}
	e.data[name] = fc
	e.record("setData %s %d", name, len(fc.Features))
	return nil
}

func (e *fakeEngine) HasLayer(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.layers[id]
	return ok
}

func (e *fakeEngine) AddLayer(spec domain.LayerSpec) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.layers[spec.ID]; ok {
		return fmt.Errorf("layer %s already exists", spec.ID)
	}
	e.layers[spec.ID] = spec
	e.record("addLayer %s", spec.ID)
	return nil
}

func (e *fakeEngine) SetLayoutProperty(layerID, name string, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.layers[layerID]
	if !ok {
		return fmt.Errorf("no layer %s", layerID)
	}
	l.Layout[name] = value
	e.record("layout %s %s=%v", layerID, name, value)
	return nil
}

func (e *fakeEngine) SetPaintProperty(layerID, name string, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.layers[layerID]
	if !ok {
		return fmt.Errorf("no layer %s", layerID)
	}
	l.Paint[name] = value
	e.record("paint %s %s", layerID, name)
	return nil
}

func (e *fakeEngine) SetFog(fog domain.Fog) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fog = &fog
	e.record("fog")
	return nil
}

func (e *fakeEngine) EaseTo(camera domain.Camera, d time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("easeTo %.4f,%.4f z%.1f %s", camera.Center.Lon, camera.Center.Lat, camera.Zoom, d)
	return nil
}

func (e *fakeEngine) Remove() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.removed = true
}

// callsWithPrefix returns recorded calls starting with prefix.
func (e *fakeEngine) callsWithPrefix(prefix string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for _, c := range e.calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			out = append(out, c)
		}
	}
	return out
}

func (e *fakeEngine) resetCalls() {
	e.mu.Lock()
	e.calls = nil
	e.mu.Unlock()
}
