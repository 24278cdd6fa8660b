package stylegl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/canopyops/geoscene/internal/core/domain"
	"github.com/canopyops/geoscene/internal/core/ports"
)

var (
	ErrNoSource    = errors.New("stylegl: no such source")
	ErrNoLayer     = errors.New("stylegl: no such layer")
	ErrDuplicate   = errors.New("stylegl: already exists")
	ErrNotLoaded   = errors.New("stylegl: style is not done loading")
	ErrWrongType   = errors.New("stylegl: source does not accept data")
	ErrLoadStarted = errors.New("stylegl: load already started")
)

// Options configures an Engine.
type Options struct {
	AccessToken string
	StyleURL    string
	// Fetcher loads the base style. Nil starts from FallbackStyle.
	Fetcher StyleFetcher
	Camera  domain.Camera
	Logger  *slog.Logger
}

type listener struct {
	id    ports.ListenerID
	event domain.EngineEventType
	fn    func(domain.EngineEvent)
}

// Engine implements ports.RenderEngine over a style document. Listeners are
// always invoked without the engine lock held.
type Engine struct {
	opts Options
	log  *slog.Logger

	mu        sync.RWMutex
	doc       *Document
	loaded    bool
	started   bool
	removed   bool
	seq       uint64
	nextID    ports.ListenerID
	listeners []listener
	subs      map[*subscriber]struct{}
}

// New creates an engine. Nothing is fetched until Load.
func New(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{
		opts: opts,
		log:  opts.Logger.With("component", "stylegl"),
		subs: make(map[*subscriber]struct{}),
	}
}

// Factory returns a constructor bound to shared options, with the token
// supplied per engine.
func Factory(opts Options) func(accessToken string) (ports.RenderEngine, error) {
	return func(accessToken string) (ports.RenderEngine, error) {
		o := opts
		o.AccessToken = accessToken
		return New(o), nil
	}
}

// Load fetches the base style in the background and signals EventLoad, or a
// fatal EventError followed by nothing when the token is rejected.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	if e.removed {
		e.mu.Unlock()
		return nil
	}
	if e.started {
		e.mu.Unlock()
		return ErrLoadStarted
	}
	e.started = true
	e.mu.Unlock()

	go e.load(context.WithoutCancel(ctx))
	return nil
}

func (e *Engine) load(ctx context.Context) {
	doc := FallbackStyle()
	if e.opts.Fetcher != nil && e.opts.StyleURL != "" {
		base, err := e.opts.Fetcher.FetchStyle(ctx, e.opts.StyleURL, e.opts.AccessToken)
		switch {
		case errors.Is(err, ErrUnauthorized):
			e.emit(domain.EngineEvent{Type: domain.EventError, Message: err.Error(), Fatal: true})
			return
		case err != nil:
			e.log.Warn("base style unavailable, using fallback", "error", err)
			e.emit(domain.EngineEvent{Type: domain.EventError, Message: err.Error()})
		default:
			doc = base
		}
	}

	e.mu.Lock()
	if e.removed {
		e.mu.Unlock()
		return
	}
	cam := e.opts.Camera
	doc.Center = [2]float64{cam.Center.Lon, cam.Center.Lat}
	doc.Zoom, doc.Pitch, doc.Bearing = cam.Zoom, cam.Pitch, cam.Bearing
	e.doc = doc
	e.loaded = true
	e.broadcastLocked(Op{Type: OpStyle})
	e.mu.Unlock()

	e.emit(domain.EngineEvent{Type: domain.EventLoad, Zoom: cam.Zoom})
}

// On registers fn for event.
func (e *Engine) On(event domain.EngineEventType, fn func(domain.EngineEvent)) ports.ListenerID {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	if !e.removed {
		e.listeners = append(e.listeners, listener{id: e.nextID, event: event, fn: fn})
	}
	return e.nextID
}

// Off unregisters a listener. Unknown ids are ignored.
func (e *Engine) Off(id ports.ListenerID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, l := range e.listeners {
		if l.id == id {
			e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
			return
		}
	}
}

func (e *Engine) emit(ev domain.EngineEvent) {
	if ev.Occurred.IsZero() {
		ev.Occurred = time.Now()
	}
	e.mu.RLock()
	var fns []func(domain.EngineEvent)
	for _, l := range e.listeners {
		if l.event == ev.Type {
			fns = append(fns, l.fn)
		}
	}
	e.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Dispatch delivers a viewer interaction. Pointer events naming a layer the
// style lacks are treated as hitting empty map.
func (e *Engine) Dispatch(ev domain.EngineEvent) error {
	e.mu.Lock()
	if e.removed {
		e.mu.Unlock()
		return nil
	}
	if !e.loaded {
		e.mu.Unlock()
		return ErrNotLoaded
	}
	switch ev.Type {
	case domain.EventClick, domain.EventMouseEnter, domain.EventMouseLeave:
		if ev.Layer != "" && e.layerIndexLocked(ev.Layer) < 0 {
			ev.Layer, ev.Feature = "", nil
		}
	case domain.EventZoom:
		e.doc.Zoom = ev.Zoom
	case domain.EventError:
	default:
		e.mu.Unlock()
		return fmt.Errorf("stylegl: event %q cannot be dispatched", ev.Type)
	}
	e.mu.Unlock()

	e.emit(ev)
	return nil
}

// HasSource reports whether the style declares name.
func (e *Engine) HasSource(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.doc == nil {
		return false
	}
	_, ok := e.doc.Sources[name]
	return ok
}

// AddSource declares a source.
func (e *Engine) AddSource(spec domain.SourceSpec) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil || e.removed {
		return err
	}
	if _, ok := e.doc.Sources[spec.Name]; ok {
		return fmt.Errorf("source %s: %w", spec.Name, ErrDuplicate)
	}
	src := sourceFromSpec(spec)
	e.doc.Sources[spec.Name] = src
	e.broadcastLocked(Op{Type: OpAddSource, Source: spec.Name, Value: src})
	return nil
}

// SetSourceData replaces the data of a GeoJSON source.
func (e *Engine) SetSourceData(name string, data *geojson.FeatureCollection) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil || e.removed {
		return err
	}
	src, ok := e.doc.Sources[name]
	if !ok {
		return fmt.Errorf("source %s: %w", name, ErrNoSource)
	}
	if src.Type != domain.SourceGeoJSON {
		return fmt.Errorf("source %s: %w", name, ErrWrongType)
	}
	src.Data = data
	e.doc.Sources[name] = src
	e.broadcastLocked(Op{Type: OpSetData, Source: name, Value: data})
	return nil
}

// HasLayer reports whether the style has a layer with id.
func (e *Engine) HasLayer(id string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.layerIndexLocked(id) >= 0
}

// AddLayer appends a layer on top of the style.
func (e *Engine) AddLayer(spec domain.LayerSpec) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil || e.removed {
		return err
	}
	if e.layerIndexLocked(spec.ID) >= 0 {
		return fmt.Errorf("layer %s: %w", spec.ID, ErrDuplicate)
	}
	if spec.Source != "" {
		if _, ok := e.doc.Sources[spec.Source]; !ok {
			return fmt.Errorf("layer %s: source %s: %w", spec.ID, spec.Source, ErrNoSource)
		}
	}
	if spec.Paint == nil {
		spec.Paint = map[string]any{}
	}
	if spec.Layout == nil {
		spec.Layout = map[string]any{}
	}
	e.doc.Layers = append(e.doc.Layers, spec)
	e.broadcastLocked(Op{Type: OpAddLayer, Layer: spec.ID, Value: cloneLayer(spec)})
	return nil
}

// SetLayoutProperty sets one layout property of a layer.
func (e *Engine) SetLayoutProperty(layerID, name string, value any) error {
	return e.setProperty(OpSetLayout, layerID, name, value)
}

// SetPaintProperty sets one paint property of a layer.
func (e *Engine) SetPaintProperty(layerID, name string, value any) error {
	return e.setProperty(OpSetPaint, layerID, name, value)
}

func (e *Engine) setProperty(op OpType, layerID, name string, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil || e.removed {
		return err
	}
	i := e.layerIndexLocked(layerID)
	if i < 0 {
		return fmt.Errorf("layer %s: %w", layerID, ErrNoLayer)
	}
	l := &e.doc.Layers[i]
	props := l.Paint
	if op == OpSetLayout {
		if l.Layout == nil {
			l.Layout = map[string]any{}
		}
		props = l.Layout
	} else if props == nil {
		l.Paint = map[string]any{}
		props = l.Paint
	}
	props[name] = value
	e.broadcastLocked(Op{Type: op, Layer: layerID, Name: name, Value: value})
	return nil
}

// SetFog replaces the style fog.
func (e *Engine) SetFog(fog domain.Fog) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyLocked(); err != nil || e.removed {
		return err
	}
	e.doc.Fog = &fog
	e.broadcastLocked(Op{Type: OpSetFog, Value: fog})
	return nil
}

// EaseTo moves the camera. Viewers animate over duration.
func (e *Engine) EaseTo(camera domain.Camera, duration time.Duration) error {
	e.mu.Lock()
	if err := e.readyLocked(); err != nil || e.removed {
		e.mu.Unlock()
		return err
	}
	e.doc.Center = [2]float64{camera.Center.Lon, camera.Center.Lat}
	e.doc.Zoom, e.doc.Pitch, e.doc.Bearing = camera.Zoom, camera.Pitch, camera.Bearing
	e.broadcastLocked(Op{Type: OpEaseTo, Value: camera, DurationMS: duration.Milliseconds()})
	e.mu.Unlock()

	// Callers may hold their own locks while easing; listeners run later.
	go e.emit(domain.EngineEvent{Type: domain.EventZoom, Zoom: camera.Zoom})
	return nil
}

// Remove releases the engine and closes every subscription.
func (e *Engine) Remove() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return
	}
	e.removed = true
	e.listeners = nil
	e.broadcastLocked(Op{Type: OpRemove})
	for s := range e.subs {
		s.close()
	}
	e.subs = nil
}

// Loaded reports whether the base style finished loading.
func (e *Engine) Loaded() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.loaded && !e.removed
}

// StyleJSON renders the current style document.
func (e *Engine) StyleJSON() ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.doc == nil {
		return nil, ErrNotLoaded
	}
	return json.Marshal(e.doc)
}

// LayerIDs returns layer ids in paint order.
func (e *Engine) LayerIDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.doc == nil {
		return nil
	}
	ids := make([]string, len(e.doc.Layers))
	for i, l := range e.doc.Layers {
		ids[i] = l.ID
	}
	return ids
}

// SourceNames returns declared source names, sorted.
func (e *Engine) SourceNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.doc == nil {
		return nil
	}
	names := make([]string, 0, len(e.doc.Sources))
	for n := range e.doc.Sources {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (e *Engine) readyLocked() error {
	if e.removed {
		return nil
	}
	if !e.loaded {
		return ErrNotLoaded
	}
	return nil
}

func (e *Engine) layerIndexLocked(id string) int {
	if e.doc == nil {
		return -1
	}
	for i, l := range e.doc.Layers {
		if l.ID == id {
			return i
		}
	}
	return -1
}
