// Package scene owns the map scene: which sources and layers exist, when data
// may be pushed into the render engine, and how engine events turn into popup,
// cursor and atmosphere state.
package scene

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/canopyops/geoscene/internal/core/domain"
	"github.com/canopyops/geoscene/internal/core/ports"
	"github.com/canopyops/geoscene/internal/pkg/metrics"
)

// State is the scene lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateErrored:
		return "errored"
	default:
		return "uninitialized"
	}
}

// MarshalText renders the state by name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// DefaultCamera frames the continental United States.
var DefaultCamera = domain.Camera{
	Center:  domain.Coordinate{Lat: 39.8283, Lon: -98.5795},
	Zoom:    3.5,
	Pitch:   35,
	Bearing: 0,
}

// DefaultResetDuration is the reset-view animation length.
const DefaultResetDuration = 2 * time.Second

// EngineFactory creates a render engine authenticated with accessToken.
type EngineFactory func(accessToken string) (ports.RenderEngine, error)

// Options configures a Controller.
type Options struct {
	AccessToken   string
	Registry      *Registry
	DefaultView   domain.Camera
	ResetDuration time.Duration
	Logger        *slog.Logger
}

// Controller drives one render engine through its lifecycle. Source updates
// that arrive before the engine is ready are queued, keeping only the latest
// collection per source, and are applied in receive order once it loads.
type Controller struct {
	factory  EngineFactory
	registry *Registry
	view     domain.Camera
	reset    time.Duration
	token    string
	log      *slog.Logger

	mu         sync.Mutex
	engine     ports.RenderEngine
	listeners  []ports.ListenerID
	generation uint64
	mounted    bool
	detached   bool
	state      State
	err        error

	pending      map[string]*geojson.FeatureCollection
	pendingOrder []string
	data         map[string]*geojson.FeatureCollection

	visibility domain.LayerVisibilityState
	zoom       float64
	atmosphere Atmosphere
	popup      *Popup
	cursor     string
	loading    bool
	diagnostic string
	updatedAt  time.Time
}

// NewController creates an unmounted controller.
func NewController(factory EngineFactory, opts Options) *Controller {
	if opts.Registry == nil {
		opts.Registry = NewRegistry("")
	}
	if opts.DefaultView == (domain.Camera{}) {
		opts.DefaultView = DefaultCamera
	}
	if opts.ResetDuration <= 0 {
		opts.ResetDuration = DefaultResetDuration
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Controller{
		factory:    factory,
		registry:   opts.Registry,
		view:       opts.DefaultView,
		reset:      opts.ResetDuration,
		token:      opts.AccessToken,
		log:        opts.Logger.With("component", "scene"),
		pending:    make(map[string]*geojson.FeatureCollection),
		data:       make(map[string]*geojson.FeatureCollection),
		visibility: domain.AllVisible(),
		zoom:       opts.DefaultView.Zoom,
		atmosphere: AtmosphereAt(opts.DefaultView.Zoom),
		loading:    true,
	}
}

// Registry returns the scene declaration.
func (c *Controller) Registry() *Registry { return c.registry }

// Mount creates the engine, registers listeners and starts loading. Without an
// access token no engine is created and the scene enters StateErrored.
// Mounting an already mounted controller is a no-op.
func (c *Controller) Mount(ctx context.Context) error {
	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		return nil
	}
	c.mounted = true
	c.detached = false
	c.generation++
	gen := c.generation

	if strings.TrimSpace(c.token) == "" {
		c.failLocked(ErrMissingAccessToken)
		c.mu.Unlock()
		return ErrMissingAccessToken
	}

	engine, err := c.factory(c.token)
	if err != nil {
		err = fmt.Errorf("create render engine: %w", err)
		c.failLocked(err)
		c.mu.Unlock()
		return err
	}
	c.engine = engine
	c.setStateLocked(StateUninitialized)
	// Data applied to a previous engine is replayed into the new one.
	for _, src := range c.registry.Sources() {
		fc, ok := c.data[src.Name]
		if _, queued := c.pending[src.Name]; ok && !queued {
			c.pendingOrder = append(c.pendingOrder, src.Name)
			c.pending[src.Name] = fc
		}
	}
	c.listeners = []ports.ListenerID{
		engine.On(domain.EventLoad, c.guard(gen, c.onLoad)),
		engine.On(domain.EventError, c.guard(gen, c.onError)),
		engine.On(domain.EventClick, c.guard(gen, c.onClick)),
		engine.On(domain.EventMouseEnter, c.guard(gen, c.onMouseEnter)),
		engine.On(domain.EventMouseLeave, c.guard(gen, c.onMouseLeave)),
		engine.On(domain.EventZoom, c.guard(gen, c.onZoom)),
	}
	c.mu.Unlock()

	// Engines may signal load synchronously, so the lock must not be held.
	if err := engine.Load(ctx); err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.generation == gen {
			err = fmt.Errorf("load base style: %w", err)
			c.failLocked(err)
		}
		return err
	}
	return nil
}

// Unmount detaches every listener, then releases the engine. Updates arriving
// afterwards are discarded until the next Mount.
func (c *Controller) Unmount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mounted {
		return
	}
	c.generation++
	if c.engine != nil {
		for _, id := range c.listeners {
			c.engine.Off(id)
		}
		c.engine.Remove()
	}
	c.engine = nil
	c.listeners = nil
	c.mounted = false
	c.detached = true
	c.err = nil
	c.popup = nil
	c.cursor = ""
	c.pending = make(map[string]*geojson.FeatureCollection)
	c.pendingOrder = nil
	c.setStateLocked(StateUninitialized)
	c.log.Info("scene unmounted")
}

func (c *Controller) guard(gen uint64, fn func(domain.EngineEvent)) func(domain.EngineEvent) {
	return func(ev domain.EngineEvent) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.generation != gen || c.engine == nil {
			return
		}
		fn(ev)
	}
}

func (c *Controller) onLoad(domain.EngineEvent) {
	if c.state != StateUninitialized {
		return
	}
	if err := c.registry.Install(c.engine); err != nil {
		c.log.Warn("install scene layers", "error", err)
		c.diagnostic = err.Error()
	}
	c.setStateLocked(StateReady)

	for _, g := range domain.LayerGroups {
		c.applyGroupLocked(g, c.visibility[g])
	}
	c.applyAtmosphereLocked()

	for _, name := range c.pendingOrder {
		c.applyLocked(name, c.pending[name])
	}
	flushed := len(c.pendingOrder)
	c.pending = make(map[string]*geojson.FeatureCollection)
	c.pendingOrder = nil
	c.log.Info("scene ready", "flushed_sources", flushed)
}

// onError separates empty-message noise, which engines emit for aborted
// tile requests, from errors that carry a description. A fatal error before
// Ready means the engine will never load.
func (c *Controller) onError(ev domain.EngineEvent) {
	msg := strings.TrimSpace(ev.Message)
	if ev.Fatal && c.state == StateUninitialized {
		metrics.RenderErrors.WithLabelValues("fatal").Inc()
		if msg == "" {
			msg = "no reason given"
		}
		c.pending = make(map[string]*geojson.FeatureCollection)
		c.pendingOrder = nil
		c.failLocked(fmt.Errorf("%w: %s", ErrEngineLoad, firstLine(msg)))
		return
	}
	if msg == "" {
		metrics.RenderErrors.WithLabelValues("transient").Inc()
		c.log.Debug("transient render noise")
		return
	}
	metrics.RenderErrors.WithLabelValues("descriptive").Inc()
	c.diagnostic = firstLine(msg)
	c.log.Warn("render error", "message", c.diagnostic)
}

func (c *Controller) onClick(ev domain.EngineEvent) {
	if ev.Layer == "" || ev.Feature == nil {
		c.popup = nil
		return
	}
	layer, ok := c.registry.Layer(ev.Layer)
	if !ok || !layer.Interactive() {
		c.popup = nil
		return
	}
	p := layer.Popup(ev.Feature.Properties)
	p.Layer = layer.ID
	p.Anchor = anchor(ev)
	c.popup = &p
	metrics.PopupsOpened.WithLabelValues(string(p.Kind)).Inc()
}

func (c *Controller) onMouseEnter(ev domain.EngineEvent) {
	if layer, ok := c.registry.Layer(ev.Layer); ok && layer.Interactive() {
		c.cursor = "pointer"
	}
}

func (c *Controller) onMouseLeave(domain.EngineEvent) {
	c.cursor = ""
}

func (c *Controller) onZoom(ev domain.EngineEvent) {
	c.zoomLocked(ev.Zoom)
}

// Update replaces the data of one source. Before the engine is ready the
// collection is queued, superseding any earlier queued value for the source.
// After Unmount the collection is dropped and ErrNotReady returned.
func (c *Controller) Update(source string, fc *geojson.FeatureCollection) error {
	if !c.registry.HasDataSource(source) {
		return fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}
	if fc == nil {
		fc = geojson.NewFeatureCollection()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.detached:
		metrics.SceneUpdates.WithLabelValues(source, "discarded").Inc()
		return ErrNotReady
	case c.state == StateReady:
		c.applyLocked(source, fc)
	case c.state == StateErrored:
		metrics.SceneUpdates.WithLabelValues(source, "discarded").Inc()
	default:
		if _, queued := c.pending[source]; !queued {
			c.pendingOrder = append(c.pendingOrder, source)
		}
		c.pending[source] = fc
		metrics.SceneUpdates.WithLabelValues(source, "queued").Inc()
	}
	return nil
}

// Snapshot is one collection per source.
type Snapshot map[string]*geojson.FeatureCollection

// ApplySnapshot updates every source in the snapshot in registry order.
func (c *Controller) ApplySnapshot(s Snapshot) error {
	for _, src := range c.registry.Sources() {
		fc, ok := s[src.Name]
		if !ok {
			continue
		}
		if err := c.Update(src.Name, fc); err != nil {
			return err
		}
	}
	c.mu.Lock()
	c.updatedAt = time.Now()
	c.mu.Unlock()
	return nil
}

func (c *Controller) applyLocked(source string, fc *geojson.FeatureCollection) {
	if err := c.engine.SetSourceData(source, fc); err != nil {
		c.log.Warn("set source data", "source", source, "error", err)
		return
	}
	c.data[source] = fc
	metrics.SceneUpdates.WithLabelValues(source, "applied").Inc()
	metrics.SceneFeatures.WithLabelValues(source).Set(float64(len(fc.Features)))
}

// SetVisibility applies the groups named in v. Groups absent from v keep
// their current visibility; setting a group to its current value does nothing.
func (c *Controller) SetVisibility(v domain.LayerVisibilityState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for g, visible := range v {
		if !g.Valid() {
			continue
		}
		if cur, ok := c.visibility[g]; ok && cur == visible {
			continue
		}
		c.visibility[g] = visible
		if c.state == StateReady {
			c.applyGroupLocked(g, visible)
		}
	}
}

func (c *Controller) applyGroupLocked(g domain.LayerGroup, visible bool) {
	value := "none"
	if visible {
		value = "visible"
	}
	for _, id := range c.registry.GroupLayers(g) {
		if !c.engine.HasLayer(id) {
			continue
		}
		if err := c.engine.SetLayoutProperty(id, "visibility", value); err != nil {
			c.log.Warn("set layer visibility", "layer", id, "error", err)
		}
	}
}

// Visibility returns the current visibility of every group.
func (c *Controller) Visibility() domain.LayerVisibilityState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visibility.Clone()
}

// ZoomChanged recomputes the atmosphere for a new zoom level.
func (c *Controller) ZoomChanged(zoom float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zoomLocked(zoom)
}

func (c *Controller) zoomLocked(zoom float64) {
	c.zoom = zoom
	next := AtmosphereAt(zoom)
	if next == c.atmosphere {
		return
	}
	c.atmosphere = next
	if c.state == StateReady {
		c.applyAtmosphereLocked()
	}
}

func (c *Controller) applyAtmosphereLocked() {
	if !c.engine.HasLayer(LayerImagery) {
		return
	}
	if err := c.atmosphere.apply(c.engine); err != nil {
		c.log.Warn("apply atmosphere", "error", err)
	}
}

// ResetView animates the camera back to the default view.
func (c *Controller) ResetView() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady {
		return ErrNotReady
	}
	return c.engine.EaseTo(c.view, c.reset)
}

// ClosePopup dismisses the open popup, if any.
func (c *Controller) ClosePopup() {
	c.mu.Lock()
	c.popup = nil
	c.mu.Unlock()
}

// SetLoading records whether the embedding UI is still fetching data.
func (c *Controller) SetLoading(loading bool) {
	c.mu.Lock()
	c.loading = loading
	c.mu.Unlock()
}

// SourceData returns the collection last applied to source.
func (c *Controller) SourceData(source string) (*geojson.FeatureCollection, error) {
	if !c.registry.HasDataSource(source) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if fc, ok := c.data[source]; ok {
		return fc, nil
	}
	return geojson.NewFeatureCollection(), nil
}

// State returns the lifecycle state and, when errored, the cause.
func (c *Controller) State() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.err
}

// ErrorView explains why the map is unavailable. ok is false unless errored.
func (c *Controller) ErrorView() (Explanation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateErrored || c.err == nil {
		return Explanation{}, false
	}
	return explain(c.err), true
}

// View is a read-only snapshot of the controller.
type View struct {
	State          State                       `json:"state"`
	Error          string                      `json:"error,omitempty"`
	Diagnostic     string                      `json:"diagnostic,omitempty"`
	Loading        bool                        `json:"isLoading"`
	Visibility     domain.LayerVisibilityState `json:"visibility"`
	Zoom           float64                     `json:"zoom"`
	Atmosphere     Atmosphere                  `json:"atmosphere"`
	Popup          *Popup                      `json:"popup"`
	Cursor         string                      `json:"cursor"`
	PendingSources []string                    `json:"pendingSources"`
	FeatureCounts  map[string]int              `json:"featureCounts"`
	UpdatedAt      *time.Time                  `json:"updatedAt,omitempty"`
}

// View returns the current controller state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := View{
		State:          c.state,
		Diagnostic:     c.diagnostic,
		Loading:        c.loading,
		Visibility:     c.visibility.Clone(),
		Zoom:           c.zoom,
		Atmosphere:     c.atmosphere,
		Cursor:         c.cursor,
		PendingSources: append([]string{}, c.pendingOrder...),
		FeatureCounts:  make(map[string]int, len(c.data)),
	}
	if c.err != nil {
		v.Error = c.err.Error()
	}
	if c.popup != nil {
		p := *c.popup
		v.Popup = &p
	}
	for name, fc := range c.data {
		v.FeatureCounts[name] = len(fc.Features)
	}
	if !c.updatedAt.IsZero() {
		t := c.updatedAt
		v.UpdatedAt = &t
	}
	return v
}

func (c *Controller) failLocked(err error) {
	c.err = err
	c.setStateLocked(StateErrored)
	c.log.Error("scene unavailable", "error", err)
}

func (c *Controller) setStateLocked(s State) {
	c.state = s
	metrics.SceneState.Set(float64(s))
}

func anchor(ev domain.EngineEvent) *domain.Coordinate {
	if ev.Position != nil {
		p := *ev.Position
		return &p
	}
	if ev.Feature == nil || ev.Feature.Geometry == nil {
		return nil
	}
	p := domain.CoordinateFromPoint(ev.Feature.Geometry.Bound().Center())
	return &p
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
