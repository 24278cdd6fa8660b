package domain_test

import (
	"testing"
	"time"

	"github.com/canopyops/geoscene/internal/core/domain"
)

func TestTransit(t *testing.T) {
	t0 := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		name      string
		elapsed   time.Duration
		wantDays  int
		wantLabel string
	}{
		{"fifty hours", 50 * time.Hour, 2, "2 days"},
		{"exactly a day", 24 * time.Hour, 1, "1 day"},
		{"five hours", 5*time.Hour + 30*time.Minute, 0, "5 hours"},
		{"one hour", time.Hour, 0, "1 hour"},
		{"minutes", 20 * time.Minute, 0, "under 1 hour"},
		{"same instant", 0, 0, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			j := domain.ShipmentJourney{Waypoints: []domain.Waypoint{
				{Timestamp: t0},
				{Timestamp: t0.Add(tc.elapsed)},
			}}
			d := j.Transit()
			if d.Days != tc.wantDays {
				t.Errorf("days = %d, want %d", d.Days, tc.wantDays)
			}
			if d.Label() != tc.wantLabel {
				t.Errorf("label = %q, want %q", d.Label(), tc.wantLabel)
			}
		})
	}
}

func TestTransit_NoWaypoints(t *testing.T) {
	var j domain.ShipmentJourney
	if d := j.Transit(); d != (domain.TransitDuration{}) {
		t.Errorf("expected zero duration, got %+v", d)
	}
	if _, ok := j.Origin(); ok {
		t.Error("empty journey has no origin")
	}
	if j.Renderable() {
		t.Error("empty journey is not renderable")
	}
}

func TestGeoPrecision_IsPrecise(t *testing.T) {
	precise := map[domain.GeoPrecision]bool{
		domain.PrecisionDeviceReported: true,
		domain.PrecisionIPGeolocation:  true,
		domain.PrecisionEdgeHeader:     false,
		domain.PrecisionCityCentroid:   false,
		domain.PrecisionAggregate:      false,
		domain.PrecisionUnknown:        false,
		"":                             false,
	}
	for tag, want := range precise {
		if got := tag.IsPrecise(); got != want {
			t.Errorf("%q.IsPrecise() = %v, want %v", tag, got, want)
		}
	}
}

func TestCoordinate_Valid(t *testing.T) {
	if !(domain.Coordinate{Lat: 90, Lon: -180}).Valid() {
		t.Error("boundary coordinate should be valid")
	}
	if (domain.Coordinate{Lat: 91, Lon: 0}).Valid() {
		t.Error("latitude 91 should be invalid")
	}
}
