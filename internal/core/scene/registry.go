package scene

import (
	"fmt"

	"github.com/canopyops/geoscene/internal/core/domain"
	"github.com/canopyops/geoscene/internal/core/ports"
)

// Source names.
const (
	SourceImagery       = "imagery"
	SourceCustomers     = "customers"
	SourceShipping      = "shipping"
	SourceStores        = "stores"
	SourceTraffic       = "traffic"
	SourceFacilities    = "facilities"
	SourceJourneyLines  = "journey-lines"
	SourceJourneyPoints = "journey-points"
)

// DefaultImageryURL is the satellite raster tile template used when none is
// configured.
const DefaultImageryURL = "mapbox://mapbox.satellite"

// Layer ids.
const (
	LayerImagery = "imagery"

	LayerCustomersHeat  = "customers-heat"
	LayerCustomersGlow  = "customers-glow"
	LayerCustomersPoint = "customers-point"

	LayerShippingHeat  = "shipping-heat"
	LayerShippingGlow  = "shipping-glow"
	LayerShippingPoint = "shipping-point"

	LayerStoresGlow  = "stores-glow"
	LayerStoresPulse = "stores-pulse"
	LayerStoresPoint = "stores-point"

	LayerTrafficHeat      = "traffic-heat"
	LayerTrafficGlow      = "traffic-glow"
	LayerTrafficPoint     = "traffic-point"
	LayerTrafficCityPoint = "traffic-city-point"
	LayerTrafficCityLabel = "traffic-city-label"

	LayerFacilitiesGlow  = "facilities-glow"
	LayerFacilitiesPoint = "facilities-point"
	LayerFacilitiesLabel = "facilities-label"

	LayerJourneyLineGlow  = "journey-line-glow"
	LayerJourneyLine      = "journey-line"
	LayerJourneyPointGlow = "journey-point-glow"
	LayerJourneyPoint     = "journey-point"
)

// Layer is a registered layer with its owning group. Layers with a Popup are
// interactive: they take pointer events and open a detail panel on click.
type Layer struct {
	domain.LayerSpec
	Group domain.LayerGroup
	Popup PopupBuilder
}

// Interactive reports whether the layer handles pointer events.
func (l Layer) Interactive() bool { return l.Popup != nil }

// Registry is the static declaration of every source and layer in the scene.
// Layers are kept in paint order, bottom first.
type Registry struct {
	sources []domain.SourceSpec
	layers  []Layer
	byID    map[string]int
	groups  map[domain.LayerGroup][]string
}

// NewRegistry declares the scene. imageryURL is the raster tile source for the
// base layer.
func NewRegistry(imageryURL string) *Registry {
	if imageryURL == "" {
		imageryURL = DefaultImageryURL
	}
	r := &Registry{
		byID:   make(map[string]int),
		groups: make(map[domain.LayerGroup][]string),
	}

	r.sources = []domain.SourceSpec{
		{Name: SourceImagery, Type: domain.SourceRaster, URL: imageryURL, TileSize: 256},
		{Name: SourceCustomers, Type: domain.SourceGeoJSON},
		{Name: SourceShipping, Type: domain.SourceGeoJSON},
		{Name: SourceStores, Type: domain.SourceGeoJSON},
		{Name: SourceTraffic, Type: domain.SourceGeoJSON},
		{Name: SourceFacilities, Type: domain.SourceGeoJSON},
		{Name: SourceJourneyLines, Type: domain.SourceGeoJSON},
		{Name: SourceJourneyPoints, Type: domain.SourceGeoJSON},
	}

	r.add("", nil, domain.LayerSpec{
		ID: LayerImagery, Type: domain.LayerRaster, Source: SourceImagery,
		Paint: map[string]any{
			"raster-brightness-max": brightnessMin,
			"raster-saturation":     saturationMin,
			"raster-fade-duration":  0,
		},
	})

	r.heatGroup(domain.GroupCustomers, SourceCustomers, heatStyle{
		heat: LayerCustomersHeat, glow: LayerCustomersGlow, point: LayerCustomersPoint,
		color: "#a855f7", r: 168, g: 85, b: 247, popup: buildCustomerPopup,
	}, nil)
	r.heatGroup(domain.GroupShipping, SourceShipping, heatStyle{
		heat: LayerShippingHeat, glow: LayerShippingGlow, point: LayerShippingPoint,
		color: "#22c55e", r: 34, g: 197, b: 94, popup: buildShippingPopup, byIntensity: true,
	}, nil)
	r.storeGroup()
	r.trafficGroup()
	r.facilityGroup()
	r.journeyGroup()

	return r
}

func (r *Registry) add(g domain.LayerGroup, popup PopupBuilder, spec domain.LayerSpec) {
	if spec.Layout == nil {
		spec.Layout = map[string]any{}
	}
	if _, ok := spec.Layout["visibility"]; !ok {
		spec.Layout["visibility"] = "visible"
	}
	r.byID[spec.ID] = len(r.layers)
	r.layers = append(r.layers, Layer{LayerSpec: spec, Group: g, Popup: popup})
	if g != "" {
		r.groups[g] = append(r.groups[g], spec.ID)
	}
}

type heatStyle struct {
	heat, glow, point string
	color             string
	r, g, b           int
	popup             PopupBuilder
	byIntensity       bool
}

// heatGroup declares a heatmap at low zoom handing off to glowing points.
func (r *Registry) heatGroup(g domain.LayerGroup, source string, s heatStyle, filter []any) {
	weight := any(1)
	radius := any(byZoom(0, 4, 14, 10))
	if s.byIntensity {
		weight = coalesce("intensity", 0.5)
		radius = byZoom(0, byProp("intensity", 0, 3, 1, 8), 14, byProp("intensity", 0, 6, 1, 14))
	}

	r.add(g, nil, domain.LayerSpec{
		ID: s.heat, Type: domain.LayerHeatmap, Source: source, Filter: filter, MaxZoom: 12,
		Paint: map[string]any{
			"heatmap-weight":    weight,
			"heatmap-intensity": byZoom(0, 0.6, 9, 2),
			"heatmap-color":     heatColor(s.r, s.g, s.b),
			"heatmap-radius":    byZoom(0, 6, 9, 24),
			"heatmap-opacity":   byZoom(7, 0.9, 12, 0),
		},
	})
	r.add(g, nil, domain.LayerSpec{
		ID: s.glow, Type: domain.LayerCircle, Source: source, Filter: filter, MinZoom: 6,
		Paint: map[string]any{
			"circle-color":   s.color,
			"circle-radius":  byZoom(6, 6, 14, 22),
			"circle-blur":    1,
			"circle-opacity": byZoom(6, 0, 9, 0.45),
		},
	})
	r.add(g, s.popup, domain.LayerSpec{
		ID: s.point, Type: domain.LayerCircle, Source: source, Filter: filter, MinZoom: 6,
		Paint: map[string]any{
			"circle-color":        s.color,
			"circle-radius":       radius,
			"circle-stroke-color": "#ffffff",
			"circle-stroke-width": 1,
			"circle-opacity":      byZoom(6, 0, 8, 1),
		},
	})
}

func (r *Registry) storeGroup() {
	const color = "#3b82f6"
	g := domain.GroupStores
	r.add(g, nil, domain.LayerSpec{
		ID: LayerStoresGlow, Type: domain.LayerCircle, Source: SourceStores,
		Paint: map[string]any{
			"circle-color":   color,
			"circle-radius":  byZoom(0, 10, 12, 36),
			"circle-blur":    1,
			"circle-opacity": 0.35,
		},
	})
	r.add(g, nil, domain.LayerSpec{
		ID: LayerStoresPulse, Type: domain.LayerCircle, Source: SourceStores,
		Paint: map[string]any{
			"circle-color":          "rgba(0,0,0,0)",
			"circle-radius":         byZoom(0, 7, 12, 20),
			"circle-stroke-color":   color,
			"circle-stroke-width":   2,
			"circle-stroke-opacity": 0.6,
		},
	})
	r.add(g, buildStorePopup, domain.LayerSpec{
		ID: LayerStoresPoint, Type: domain.LayerCircle, Source: SourceStores,
		Paint: map[string]any{
			"circle-color":        color,
			"circle-radius":       byZoom(0, 4, 12, 9),
			"circle-stroke-color": "#ffffff",
			"circle-stroke-width": 2,
		},
	})
}

// trafficGroup splits visitors by location precision: precise fixes render
// as individual points, city-level estimates aggregate into sized circles.
func (r *Registry) trafficGroup() {
	precise := isSet("isPrecise")
	aggregate := eq(coalesce("isPrecise", false), false)

	r.heatGroup(domain.GroupTraffic, SourceTraffic, heatStyle{
		heat: LayerTrafficHeat, glow: LayerTrafficGlow, point: LayerTrafficPoint,
		color: "#f59e0b", r: 245, g: 158, b: 11, popup: buildTrafficPopup,
	}, precise)

	g := domain.GroupTraffic
	r.add(g, buildTrafficCityPopup, domain.LayerSpec{
		ID: LayerTrafficCityPoint, Type: domain.LayerCircle, Source: SourceTraffic, Filter: aggregate,
		Paint: map[string]any{
			"circle-color":        "rgba(245,158,11,0.35)",
			"circle-radius":       byProp("visitors", 1, 8, 10, 16, 100, 28, 1000, 44),
			"circle-stroke-color": "#f59e0b",
			"circle-stroke-width": 1.5,
		},
	})
	r.add(g, nil, domain.LayerSpec{
		ID: LayerTrafficCityLabel, Type: domain.LayerSymbol, Source: SourceTraffic, Filter: aggregate,
		Layout: map[string]any{
			"text-field":            []any{"to-string", coalesce("visitors", 0)},
			"text-size":             12,
			"text-allow-overlap":    true,
			"text-ignore-placement": true,
		},
		Paint: map[string]any{
			"text-color":      "#ffffff",
			"text-halo-color": "rgba(0,0,0,0.6)",
			"text-halo-width": 1,
		},
	})
}

func (r *Registry) facilityGroup() {
	const color = "#14b8a6"
	g := domain.GroupFacilities
	r.add(g, nil, domain.LayerSpec{
		ID: LayerFacilitiesGlow, Type: domain.LayerCircle, Source: SourceFacilities,
		Paint: map[string]any{
			"circle-color":   color,
			"circle-radius":  byZoom(0, 8, 12, 28),
			"circle-blur":    1,
			"circle-opacity": 0.4,
		},
	})
	r.add(g, buildFacilityPopup, domain.LayerSpec{
		ID: LayerFacilitiesPoint, Type: domain.LayerCircle, Source: SourceFacilities,
		Paint: map[string]any{
			"circle-color":        color,
			"circle-radius":       byZoom(0, 4, 12, 8),
			"circle-stroke-color": "#ffffff",
			"circle-stroke-width": 2,
		},
	})
	r.add(g, nil, domain.LayerSpec{
		ID: LayerFacilitiesLabel, Type: domain.LayerSymbol, Source: SourceFacilities, MinZoom: 5,
		Layout: map[string]any{
			"text-field":  coalesce("name", ""),
			"text-size":   11,
			"text-offset": []any{0, 1.4},
			"text-anchor": "top",
		},
		Paint: map[string]any{
			"text-color":      "#ccfbf1",
			"text-halo-color": "rgba(0,0,0,0.7)",
			"text-halo-width": 1,
		},
	})
}

func (r *Registry) journeyGroup() {
	g := domain.GroupJourneys
	color := coalesce("color", "#ffffff")
	endpoint := []any{"any", isSet("isOrigin"), isSet("isDestination")}

	r.add(g, nil, domain.LayerSpec{
		ID: LayerJourneyLineGlow, Type: domain.LayerLine, Source: SourceJourneyLines,
		Layout: map[string]any{"line-cap": "round", "line-join": "round"},
		Paint: map[string]any{
			"line-color":   color,
			"line-width":   byZoom(0, 4, 10, 12),
			"line-blur":    4,
			"line-opacity": 0.35,
		},
	})
	r.add(g, buildJourneyLinePopup, domain.LayerSpec{
		ID: LayerJourneyLine, Type: domain.LayerLine, Source: SourceJourneyLines,
		Layout: map[string]any{"line-cap": "round", "line-join": "round"},
		Paint: map[string]any{
			"line-color":   color,
			"line-width":   byZoom(0, 1.5, 10, 4),
			"line-opacity": 0.9,
		},
	})
	r.add(g, nil, domain.LayerSpec{
		ID: LayerJourneyPointGlow, Type: domain.LayerCircle, Source: SourceJourneyPoints,
		Paint: map[string]any{
			"circle-color":   color,
			"circle-radius":  when(endpoint, 14, 9),
			"circle-blur":    1,
			"circle-opacity": 0.4,
		},
	})
	r.add(g, buildJourneyPointPopup, domain.LayerSpec{
		ID: LayerJourneyPoint, Type: domain.LayerCircle, Source: SourceJourneyPoints,
		Paint: map[string]any{
			"circle-color":        color,
			"circle-radius":       when(endpoint, 6, 3.5),
			"circle-stroke-color": "#ffffff",
			"circle-stroke-width": when(endpoint, 2.5, 1),
		},
	})
}

// Sources returns every declared source in install order.
func (r *Registry) Sources() []domain.SourceSpec {
	return append([]domain.SourceSpec(nil), r.sources...)
}

// Layers returns every declared layer in paint order.
func (r *Registry) Layers() []Layer {
	return append([]Layer(nil), r.layers...)
}

// Layer looks a layer up by id.
func (r *Registry) Layer(id string) (Layer, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Layer{}, false
	}
	return r.layers[i], true
}

// GroupLayers returns the ids of every layer owned by g.
func (r *Registry) GroupLayers(g domain.LayerGroup) []string {
	return r.groups[g]
}

// InteractiveLayers returns the ids of every layer that takes pointer events.
func (r *Registry) InteractiveLayers() []string {
	var ids []string
	for _, l := range r.layers {
		if l.Interactive() {
			ids = append(ids, l.ID)
		}
	}
	return ids
}

// HasDataSource reports whether name is a GeoJSON source data can be pushed to.
func (r *Registry) HasDataSource(name string) bool {
	for _, s := range r.sources {
		if s.Name == name {
			return s.Type == domain.SourceGeoJSON
		}
	}
	return false
}

// Install adds every source and layer the engine does not already have.
// Calling it again on the same engine changes nothing.
func (r *Registry) Install(e ports.RenderEngine) error {
	for _, s := range r.sources {
		if e.HasSource(s.Name) {
			continue
		}
		if err := e.AddSource(s); err != nil {
			return fmt.Errorf("add source %s: %w", s.Name, err)
		}
	}
	for _, l := range r.layers {
		if e.HasLayer(l.ID) {
			continue
		}
		if err := e.AddLayer(cloneSpec(l.LayerSpec)); err != nil {
			return fmt.Errorf("add layer %s: %w", l.ID, err)
		}
	}
	return nil
}

// cloneSpec copies the top-level paint and layout maps so engines may mutate
// them without touching the registry.
func cloneSpec(s domain.LayerSpec) domain.LayerSpec {
	paint := make(map[string]any, len(s.Paint))
	for k, v := range s.Paint {
		paint[k] = v
	}
	layout := make(map[string]any, len(s.Layout))
	for k, v := range s.Layout {
		layout[k] = v
	}
	s.Paint, s.Layout = paint, layout
	return s
}
