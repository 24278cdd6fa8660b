package features

import (
	"sync"

	"github.com/paulmach/orb/geojson"

	"github.com/canopyops/geoscene/internal/core/domain"
)

// Memo rebuilds a collection only when the identity of its input slice
// changes. Re-rendering with the same backing array (zoom, pan, hover) is a
// lookup.
type Memo struct {
	mu       sync.Mutex
	opts     JourneyOptions
	points   map[domain.Category]pointEntry
	journeys *journeyEntry
}

type pointEntry struct {
	in  []domain.GeoPoint
	out *geojson.FeatureCollection
}

type journeyEntry struct {
	in  []domain.ShipmentJourney
	out JourneyCollections
}

// NewMemo creates an empty memo.
func NewMemo(opts JourneyOptions) *Memo {
	return &Memo{opts: opts, points: make(map[domain.Category]pointEntry)}
}

// Points returns the collection for a category, rebuilding it when points is
// a different slice than last time. rebuilt reports whether work was done.
func (m *Memo) Points(cat domain.Category, points []domain.GeoPoint) (fc *geojson.FeatureCollection, rebuilt bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.points[cat]; ok && sameSlice(e.in, points) {
		return e.out, false
	}
	fc = BuildPoints(points, MaxRevenue(points))
	m.points[cat] = pointEntry{in: points, out: fc}
	return fc, true
}

// Journeys is Points for the journey set.
func (m *Memo) Journeys(journeys []domain.ShipmentJourney) (out JourneyCollections, rebuilt bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.journeys != nil && sameSlice(m.journeys.in, journeys) {
		return m.journeys.out, false
	}
	out = BuildJourneys(journeys, m.opts)
	m.journeys = &journeyEntry{in: journeys, out: out}
	return out, true
}

// CachedPoints returns the collection built from exactly this slice, if any.
func (m *Memo) CachedPoints(cat domain.Category, points []domain.GeoPoint) (*geojson.FeatureCollection, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.points[cat]; ok && sameSlice(e.in, points) {
		return e.out, true
	}
	return nil, false
}

// SeedPoints records a collection built elsewhere for points.
func (m *Memo) SeedPoints(cat domain.Category, points []domain.GeoPoint, fc *geojson.FeatureCollection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points[cat] = pointEntry{in: points, out: fc}
}

// CachedJourneys returns the collections built from exactly this slice, if any.
func (m *Memo) CachedJourneys(journeys []domain.ShipmentJourney) (JourneyCollections, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.journeys != nil && sameSlice(m.journeys.in, journeys) {
		return m.journeys.out, true
	}
	return JourneyCollections{}, false
}

// SeedJourneys records collections built elsewhere for journeys.
func (m *Memo) SeedJourneys(journeys []domain.ShipmentJourney, out JourneyCollections) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.journeys = &journeyEntry{in: journeys, out: out}
}

// Options returns the journey build options.
func (m *Memo) Options() JourneyOptions { return m.opts }

// Reset drops every cached build.
func (m *Memo) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points = make(map[domain.Category]pointEntry)
	m.journeys = nil
}

// sameSlice compares slice identity: same length and same backing array.
func sameSlice[T any](a, b []T) bool {
	if len(a) != len(b) || cap(a) != cap(b) {
		return false
	}
	if len(a) == 0 {
		return (a == nil) == (b == nil)
	}
	return &a[0] == &b[0]
}
