package features_test

import (
	"testing"

	"github.com/paulmach/orb"

	"github.com/canopyops/geoscene/internal/core/domain"
	"github.com/canopyops/geoscene/internal/core/features"
)

func TestMemo_RebuildsOnlyOnNewSlice(t *testing.T) {
	m := features.NewMemo(features.JourneyOptions{})
	points := []domain.GeoPoint{{ID: "c1", Category: domain.CategoryCustomer}}

	first, rebuilt := m.Points(domain.CategoryCustomer, points)
	if !rebuilt {
		t.Fatal("first call must build")
	}
	again, rebuilt := m.Points(domain.CategoryCustomer, points)
	if rebuilt {
		t.Error("same slice must not rebuild")
	}
	if again != first {
		t.Error("expected the cached collection")
	}

	fresh := append([]domain.GeoPoint(nil), points...)
	if _, rebuilt := m.Points(domain.CategoryCustomer, fresh); !rebuilt {
		t.Error("a new slice must rebuild")
	}
}

func TestMemo_JourneysAndReset(t *testing.T) {
	m := features.NewMemo(features.JourneyOptions{ArcSegments: 4})
	journeys := []domain.ShipmentJourney{journeyWith("a", 3)}

	out, rebuilt := m.Journeys(journeys)
	if !rebuilt {
		t.Fatal("first call must build")
	}
	line, ok := out.Lines.Features[0].Geometry.(orb.LineString)
	if !ok {
		t.Fatalf("expected a LineString, got %T", out.Lines.Features[0].Geometry)
	}
	if len(line) != 5 {
		t.Errorf("expected 5 arc points for 4 segments, got %d", len(line))
	}
	if _, rebuilt := m.Journeys(journeys); rebuilt {
		t.Error("same slice must not rebuild")
	}
	m.Reset()
	if _, rebuilt := m.Journeys(journeys); !rebuilt {
		t.Error("reset must force a rebuild")
	}
}

func TestFingerprint_ContentEquality(t *testing.T) {
	a := []domain.GeoPoint{{ID: "x", Metrics: domain.PointMetrics{Revenue: 10}}}
	b := []domain.GeoPoint{{ID: "x", Metrics: domain.PointMetrics{Revenue: 10}}}
	c := []domain.GeoPoint{{ID: "x", Metrics: domain.PointMetrics{Revenue: 11}}}

	ka, _ := features.PointsKey(domain.CategoryStore, a)
	kb, _ := features.PointsKey(domain.CategoryStore, b)
	kc, _ := features.PointsKey(domain.CategoryStore, c)
	if ka != kb {
		t.Errorf("equal content produced different keys: %s vs %s", ka, kb)
	}
	if ka == kc {
		t.Error("different content produced the same key")
	}
}

func TestMemo_SeedAndCached(t *testing.T) {
	m := features.NewMemo(features.JourneyOptions{})
	points := []domain.GeoPoint{{ID: "s1", Category: domain.CategoryStore}}

	if _, ok := m.CachedPoints(domain.CategoryStore, points); ok {
		t.Fatal("empty memo must miss")
	}
	seeded := features.BuildPoints(points, 0)
	m.SeedPoints(domain.CategoryStore, points, seeded)
	got, ok := m.CachedPoints(domain.CategoryStore, points)
	if !ok || got != seeded {
		t.Error("expected the seeded collection")
	}
	if fc, rebuilt := m.Points(domain.CategoryStore, points); rebuilt || fc != seeded {
		t.Error("seeded slice must not rebuild")
	}

	journeys := []domain.ShipmentJourney{journeyWith("j", 2)}
	m.SeedJourneys(journeys, features.BuildJourneys(journeys, m.Options()))
	if _, ok := m.CachedJourneys(journeys); !ok {
		t.Error("expected seeded journeys")
	}
}
