package scene_test

import (
	"testing"

	"github.com/paulmach/orb/geojson"

	"github.com/canopyops/geoscene/internal/core/scene"
)

func popupFor(t *testing.T, layer string, props geojson.Properties) scene.Popup {
	t.Helper()
	l, ok := scene.NewRegistry("").Layer(layer)
	if !ok || !l.Interactive() {
		t.Fatalf("layer %s is not interactive", layer)
	}
	return l.Popup(props)
}

func row(p scene.Popup, label string) string {
	for _, r := range p.Rows {
		if r.Label == label {
			return r.Value
		}
	}
	return ""
}

func TestPopups_VariantPerLayer(t *testing.T) {
	tests := []struct {
		layer string
		props geojson.Properties
		kind  scene.PopupKind
	}{
		{scene.LayerStoresPoint, geojson.Properties{"name": "Loop"}, scene.PopupStore},
		{scene.LayerCustomersPoint, geojson.Properties{"name": "Ada"}, scene.PopupCustomer},
		{scene.LayerShippingPoint, geojson.Properties{"city": "Austin"}, scene.PopupShipping},
		{scene.LayerTrafficPoint, geojson.Properties{"isPrecise": true}, scene.PopupTraffic},
		{scene.LayerTrafficCityPoint, geojson.Properties{"visitors": 40.0}, scene.PopupTrafficCity},
		{scene.LayerFacilitiesPoint, geojson.Properties{"name": "DC-1"}, scene.PopupFacility},
		{scene.LayerJourneyLine, geojson.Properties{"trackingId": "1Z"}, scene.PopupJourneyLine},
		{scene.LayerJourneyPoint, geojson.Properties{"stopNumber": 2.0, "totalStops": 3.0}, scene.PopupJourneyPoint},
	}
	for _, tt := range tests {
		t.Run(tt.layer, func(t *testing.T) {
			if got := popupFor(t, tt.layer, tt.props).Kind; got != tt.kind {
				t.Errorf("kind = %s, want %s", got, tt.kind)
			}
		})
	}
}

func TestPopups_EmptyPropertiesDoNotPanic(t *testing.T) {
	r := scene.NewRegistry("")
	for _, id := range r.InteractiveLayers() {
		l, _ := r.Layer(id)
		p := l.Popup(geojson.Properties{})
		if p.Title == "" {
			t.Errorf("layer %s produced an untitled popup", id)
		}
	}
}

func TestPopups_StoreFormatting(t *testing.T) {
	p := popupFor(t, scene.LayerStoresPoint, geojson.Properties{
		"name": "Loop", "city": "Chicago", "state": "IL",
		"revenue": 1234567.891, "orderCount": 1500.0, "customerCount": 3,
	})
	if v := row(p, "Revenue"); v != "$1,234,567.89" {
		t.Errorf("revenue = %q", v)
	}
	if v := row(p, "Orders"); v != "1,500" {
		t.Errorf("orders = %q", v)
	}
	if v := row(p, "Customers"); v != "3" {
		t.Errorf("customers = %q", v)
	}
}

func TestPopups_TrafficFallsBackToCityVariant(t *testing.T) {
	p := popupFor(t, scene.LayerTrafficPoint, geojson.Properties{"isPrecise": false, "city": "Reno", "visitors": 7.0})
	if p.Kind != scene.PopupTrafficCity || p.Title != "Reno" {
		t.Errorf("unexpected popup %+v", p)
	}
}

func TestPopups_JourneyEndpoints(t *testing.T) {
	origin := popupFor(t, scene.LayerJourneyPoint, geojson.Properties{"isOrigin": true, "city": "San Francisco"})
	if origin.Subtitle != "Origin" {
		t.Errorf("subtitle = %q", origin.Subtitle)
	}
	line := popupFor(t, scene.LayerJourneyLine, geojson.Properties{
		"trackingId": "1Z999", "fromCity": "Denver", "toCity": "New York", "distanceKm": 2620.4,
		"transitLabel": "2 days", "color": "#ff6b6b",
	})
	if v := row(line, "Leg"); v != "Denver → New York" {
		t.Errorf("leg = %q", v)
	}
	if v := row(line, "Distance"); v != "2620 km" {
		t.Errorf("distance = %q", v)
	}
	if line.Accent != "#ff6b6b" {
		t.Errorf("accent = %q", line.Accent)
	}
}
