package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/netip"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/paulmach/orb/geojson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/canopyops/geoscene/internal/core/domain"
	"github.com/canopyops/geoscene/internal/core/features"
	"github.com/canopyops/geoscene/internal/core/ports"
	"github.com/canopyops/geoscene/internal/core/scene"
	"github.com/canopyops/geoscene/internal/pkg/metrics"
	"github.com/canopyops/geoscene/internal/pkg/telemetry"
)

// SceneSink receives rebuilt source data.
type SceneSink interface {
	ApplySnapshot(s scene.Snapshot) error
	SetLoading(loading bool)
}

// sourceForCategory maps a point category to the scene source it feeds.
var sourceForCategory = map[domain.Category]string{
	domain.CategoryCustomer: scene.SourceCustomers,
	domain.CategoryShipping: scene.SourceShipping,
	domain.CategoryStore:    scene.SourceStores,
	domain.CategoryTraffic:  scene.SourceTraffic,
}

var sourceOrder = []string{
	scene.SourceCustomers, scene.SourceShipping, scene.SourceStores, scene.SourceTraffic,
	scene.SourceFacilities, scene.SourceJourneyLines, scene.SourceJourneyPoints,
}

// SnapshotOptions tunes a SnapshotService.
type SnapshotOptions struct {
	JourneyLimit int
	ArcSegments  int
	CacheTTL     time.Duration
	L1Size       int
	Facilities   []domain.Facility
	Logger       *slog.Logger
}

// SnapshotService fetches the back-office snapshot, builds feature
// collections and pushes the sources whose content changed into the scene.
//
// Builds are looked up in three tiers: the identity memo, an in-process LRU
// and the shared cache, all keyed by content fingerprint.
type SnapshotService struct {
	points    ports.PointRepository
	journeys  ports.JourneyRepository
	geo       ports.GeoResolver
	cache     ports.CacheService
	publisher ports.EventPublisher
	sink      SceneSink
	opts      SnapshotOptions
	log       *slog.Logger
	tracer    trace.Tracer

	memo       *features.Memo
	l1Points   *expirable.LRU[string, *geojson.FeatureCollection]
	l1Journeys *expirable.LRU[string, features.JourneyCollections]
	facilities *geojson.FeatureCollection

	mu            sync.Mutex
	lastPoints    map[domain.Category]canonicalPoints
	lastJourneys  canonicalJourneys
	pushedKeys    map[string]string
	last          domain.SceneSummary
	facilitiesSet bool

	trigger chan string
}

type canonicalPoints struct {
	key    string
	points []domain.GeoPoint
}

type canonicalJourneys struct {
	key      string
	journeys []domain.ShipmentJourney
}

// NewSnapshotService wires a snapshot service. geo, cache and publisher may
// be nil.
func NewSnapshotService(
	points ports.PointRepository,
	journeys ports.JourneyRepository,
	geo ports.GeoResolver,
	cache ports.CacheService,
	publisher ports.EventPublisher,
	sink SceneSink,
	opts SnapshotOptions,
) *SnapshotService {
	if opts.JourneyLimit <= 0 {
		opts.JourneyLimit = 50
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.L1Size <= 0 {
		opts.L1Size = 64
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	jopts := features.JourneyOptions{ArcSegments: opts.ArcSegments}
	return &SnapshotService{
		points:     points,
		journeys:   journeys,
		geo:        geo,
		cache:      cache,
		publisher:  publisher,
		sink:       sink,
		opts:       opts,
		log:        opts.Logger.With("component", "snapshot"),
		tracer:     telemetry.Tracer("geoscene/snapshot"),
		memo:       features.NewMemo(jopts),
		l1Points:   expirable.NewLRU[string, *geojson.FeatureCollection](opts.L1Size, nil, opts.CacheTTL),
		l1Journeys: expirable.NewLRU[string, features.JourneyCollections](opts.L1Size, nil, opts.CacheTTL),
		facilities: features.BuildFacilities(opts.Facilities),
		lastPoints: make(map[domain.Category]canonicalPoints),
		pushedKeys: make(map[string]string),
		trigger:    make(chan string, 1),
	}
}

// Refresh runs one fetch → enrich → build → push cycle. trigger labels what
// caused it ("tick", "event", "manual").
func (s *SnapshotService) Refresh(ctx context.Context, trigger string) (domain.SceneSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := s.tracer.Start(ctx, telemetry.SpanSnapshotRefresh,
		trace.WithAttributes(attribute.String(telemetry.AttrTrigger, trigger)))
	defer span.End()

	start := time.Now()
	s.sink.SetLoading(true)
	defer s.sink.SetLoading(false)

	pointSets, journeys, err := s.fetch(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch")
		metrics.SnapshotErrors.WithLabelValues("fetch").Inc()
		return domain.SceneSummary{}, err
	}

	buildCtx, buildSpan := s.tracer.Start(ctx, telemetry.SpanSnapshotBuild)
	snap := make(scene.Snapshot)
	summary := domain.SceneSummary{FeatureCounts: make(map[string]int)}

	for _, cat := range domain.Categories {
		source := sourceForCategory[cat]
		fc, key := s.pointsCollection(buildCtx, cat, pointSets[cat])
		summary.FeatureCounts[source] = len(fc.Features)
		if key == "" || s.pushedKeys[source] != key {
			snap[source] = fc
		}
	}

	jc, jkey := s.journeyCollections(buildCtx, journeys)
	summary.FeatureCounts[scene.SourceJourneyLines] = len(jc.Lines.Features)
	summary.FeatureCounts[scene.SourceJourneyPoints] = len(jc.Waypoints.Features)
	summary.JourneyCount = len(journeys)
	if jkey == "" || s.pushedKeys[scene.SourceJourneyLines] != jkey {
		snap[scene.SourceJourneyLines] = jc.Lines
		snap[scene.SourceJourneyPoints] = jc.Waypoints
	}

	if !s.facilitiesSet {
		snap[scene.SourceFacilities] = s.facilities
	}
	summary.FeatureCounts[scene.SourceFacilities] = len(s.facilities.Features)
	total := 0
	for _, n := range summary.FeatureCounts {
		total += n
	}
	buildSpan.SetAttributes(
		attribute.Int(telemetry.AttrJourneyCount, len(journeys)),
		attribute.Int(telemetry.AttrFeatureCount, total),
	)
	buildSpan.End()

	_, applySpan := s.tracer.Start(ctx, telemetry.SpanSceneApply)
	err = s.sink.ApplySnapshot(snap)
	applySpan.End()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "apply")
		metrics.SnapshotErrors.WithLabelValues("apply").Inc()
		return domain.SceneSummary{}, fmt.Errorf("apply snapshot: %w", err)
	}

	for _, cat := range domain.Categories {
		s.pushedKeys[sourceForCategory[cat]] = s.lastPoints[cat].key
	}
	s.pushedKeys[scene.SourceJourneyLines] = jkey
	s.facilitiesSet = true

	for _, name := range sourceOrder {
		if _, ok := snap[name]; ok {
			summary.RebuiltSources = append(summary.RebuiltSources, name)
		}
	}
	summary.RefreshedAt = time.Now().UTC()
	summary.Duration = time.Since(start)
	s.last = summary
	metrics.SnapshotDuration.Observe(summary.Duration.Seconds())

	if s.publisher != nil && len(summary.RebuiltSources) > 0 {
		if err := s.publisher.PublishSceneUpdated(ctx, summary); err != nil {
			s.log.Warn("publish scene updated", "error", err)
		}
	}
	s.log.Info("snapshot refreshed",
		"trigger", trigger,
		"rebuilt", summary.RebuiltSources,
		"journeys", summary.JourneyCount,
		"duration_ms", summary.Duration.Milliseconds(),
	)
	return summary, nil
}

// LastSummary returns the summary of the last successful refresh.
func (s *SnapshotService) LastSummary() domain.SceneSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Trigger requests a refresh from Run without blocking. Requests coalesce.
func (s *SnapshotService) Trigger(reason string) {
	select {
	case s.trigger <- reason:
	default:
	}
}

// Run refreshes immediately, then on every tick and trigger until ctx ends.
func (s *SnapshotService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.refreshLogged(ctx, "startup")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshLogged(ctx, "tick")
		case reason := <-s.trigger:
			s.refreshLogged(ctx, reason)
		}
	}
}

func (s *SnapshotService) refreshLogged(ctx context.Context, trigger string) {
	if _, err := s.Refresh(ctx, trigger); err != nil {
		s.log.Error("snapshot refresh failed", "trigger", trigger, "error", err)
	}
}

func (s *SnapshotService) fetch(ctx context.Context) (map[domain.Category][]domain.GeoPoint, []domain.ShipmentJourney, error) {
	ctx, span := s.tracer.Start(ctx, telemetry.SpanSnapshotFetch)
	defer span.End()

	sets := make(map[domain.Category][]domain.GeoPoint, len(domain.Categories))
	for _, cat := range domain.Categories {
		pts, err := s.points.ListByCategory(ctx, cat)
		if err != nil {
			return nil, nil, fmt.Errorf("list %s points: %w", cat, err)
		}
		if cat == domain.CategoryTraffic {
			pts = s.locateTraffic(pts)
		}
		sets[cat] = pts
	}

	journeys, err := s.journeys.ListActive(ctx, s.opts.JourneyLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("list journeys: %w", err)
	}
	return sets, journeys, nil
}

// locateTraffic fills missing visitor coordinates from the client IP. Points
// that still have no usable position are dropped.
func (s *SnapshotService) locateTraffic(points []domain.GeoPoint) []domain.GeoPoint {
	out := points[:0:0]
	for _, p := range points {
		if !p.Position.IsZero() && p.Position.Valid() {
			out = append(out, p)
			continue
		}
		if s.geo == nil || p.ClientIP == "" {
			continue
		}
		addr, err := netip.ParseAddr(p.ClientIP)
		if err != nil {
			continue
		}
		loc, city, ok := s.geo.Lookup(addr)
		if !ok {
			continue
		}
		p.Position = loc
		if p.City == "" {
			p.City = city
		}
		p.Precision = domain.PrecisionIPGeolocation
		out = append(out, p)
	}
	return out
}

func (s *SnapshotService) pointsCollection(ctx context.Context, cat domain.Category, points []domain.GeoPoint) (*geojson.FeatureCollection, string) {
	source := sourceForCategory[cat]
	key, err := features.PointsKey(cat, points)
	if err != nil {
		s.log.Warn("fingerprint points", "category", cat, "error", err)
	}
	if prev, ok := s.lastPoints[cat]; ok && err == nil && prev.key == key {
		points = prev.points
	}
	s.lastPoints[cat] = canonicalPoints{key: key, points: points}

	if fc, ok := s.memo.CachedPoints(cat, points); ok {
		recordBuild(ctx, source, "memo")
		return fc, key
	}
	if key != "" {
		if fc, ok := s.l1Points.Get(key); ok {
			recordBuild(ctx, source, "l1")
			s.memo.SeedPoints(cat, points, fc)
			return fc, key
		}
		if fc := s.cachedCollection(ctx, key); fc != nil {
			recordBuild(ctx, source, "cache")
			s.l1Points.Add(key, fc)
			s.memo.SeedPoints(cat, points, fc)
			return fc, key
		}
	}

	fc, _ := s.memo.Points(cat, points)
	recordBuild(ctx, source, "built")
	if key != "" {
		s.l1Points.Add(key, fc)
		s.store(ctx, key, fc)
	}
	return fc, key
}

func (s *SnapshotService) journeyCollections(ctx context.Context, journeys []domain.ShipmentJourney) (features.JourneyCollections, string) {
	const source = scene.SourceJourneyLines
	key, err := features.JourneysKey(journeys, s.memo.Options())
	if err != nil {
		s.log.Warn("fingerprint journeys", "error", err)
	}
	if err == nil && s.lastJourneys.key == key && s.lastJourneys.journeys != nil {
		journeys = s.lastJourneys.journeys
	}
	s.lastJourneys = canonicalJourneys{key: key, journeys: journeys}

	if out, ok := s.memo.CachedJourneys(journeys); ok {
		recordBuild(ctx, source, "memo")
		return out, key
	}
	if key != "" {
		if out, ok := s.l1Journeys.Get(key); ok {
			recordBuild(ctx, source, "l1")
			s.memo.SeedJourneys(journeys, out)
			return out, key
		}
		if out, ok := s.cachedJourneys(ctx, key); ok {
			recordBuild(ctx, source, "cache")
			s.l1Journeys.Add(key, out)
			s.memo.SeedJourneys(journeys, out)
			return out, key
		}
	}

	out, _ := s.memo.Journeys(journeys)
	recordBuild(ctx, source, "built")
	if key != "" {
		s.l1Journeys.Add(key, out)
		s.store(ctx, key, out)
	}
	return out, key
}

// recordBuild counts where a source's features came from and notes it on
// the build span.
func recordBuild(ctx context.Context, source, result string) {
	metrics.FeatureBuilds.WithLabelValues(source, result).Inc()
	trace.SpanFromContext(ctx).AddEvent("features", trace.WithAttributes(
		attribute.String(telemetry.AttrSource, source),
		attribute.String(telemetry.AttrCacheResult, result),
	))
}

func (s *SnapshotService) cachedCollection(ctx context.Context, key string) *geojson.FeatureCollection {
	if s.cache == nil {
		return nil
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		metrics.CacheMisses.WithLabelValues("features").Inc()
		return nil
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil
	}
	metrics.CacheHits.WithLabelValues("features").Inc()
	return fc
}

func (s *SnapshotService) cachedJourneys(ctx context.Context, key string) (features.JourneyCollections, bool) {
	if s.cache == nil {
		return features.JourneyCollections{}, false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		metrics.CacheMisses.WithLabelValues("journeys").Inc()
		return features.JourneyCollections{}, false
	}
	var out features.JourneyCollections
	if err := json.Unmarshal(data, &out); err != nil || out.Lines == nil || out.Waypoints == nil {
		return features.JourneyCollections{}, false
	}
	metrics.CacheHits.WithLabelValues("journeys").Inc()
	return out, true
}

func (s *SnapshotService) store(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, int(s.opts.CacheTTL.Seconds())); err != nil {
		s.log.Debug("cache set", "key", key, "error", err)
	}
}
