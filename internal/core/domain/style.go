package domain

import (
	"time"

	"github.com/paulmach/orb/geojson"
)

// SourceType is a style-spec source type.
type SourceType string

const (
	SourceGeoJSON SourceType = "geojson"
	SourceRaster  SourceType = "raster"
)

// SourceSpec declares a named data source. GeoJSON sources start empty.
type SourceSpec struct {
	Name     string     `json:"name"`
	Type     SourceType `json:"type"`
	URL      string     `json:"url,omitempty"`
	TileSize int        `json:"tileSize,omitempty"`
}

// LayerKind is a style-spec layer type.
type LayerKind string

const (
	LayerHeatmap LayerKind = "heatmap"
	LayerCircle  LayerKind = "circle"
	LayerLine    LayerKind = "line"
	LayerSymbol  LayerKind = "symbol"
	LayerRaster  LayerKind = "raster"
)

// LayerSpec is one rendering pass bound to a source by name.
type LayerSpec struct {
	ID          string         `json:"id"`
	Type        LayerKind      `json:"type"`
	Source      string         `json:"source,omitempty"`
	SourceLayer string         `json:"source-layer,omitempty"`
	Filter      []any          `json:"filter,omitempty"`
	Paint       map[string]any `json:"paint,omitempty"`
	Layout      map[string]any `json:"layout,omitempty"`
	MinZoom     float64        `json:"minzoom,omitempty"`
	MaxZoom     float64        `json:"maxzoom,omitempty"`
}

// Camera is a view position.
type Camera struct {
	Center  Coordinate `json:"center"`
	Zoom    float64    `json:"zoom"`
	Pitch   float64    `json:"pitch"`
	Bearing float64    `json:"bearing"`
}

// Fog is the style-spec fog block.
type Fog struct {
	Color         string     `json:"color"`
	HighColor     string     `json:"high-color"`
	SpaceColor    string     `json:"space-color"`
	HorizonBlend  float64    `json:"horizon-blend"`
	StarIntensity float64    `json:"star-intensity"`
	Range         [2]float64 `json:"range"`
}

// EngineEventType identifies a signal raised by a render engine.
type EngineEventType string

const (
	EventLoad       EngineEventType = "load"
	EventError      EngineEventType = "error"
	EventClick      EngineEventType = "click"
	EventMouseEnter EngineEventType = "mouseenter"
	EventMouseLeave EngineEventType = "mouseleave"
	EventZoom       EngineEventType = "zoom"
)

// EngineEvent is delivered to listeners registered on a render engine.
// Layer is empty for events that hit no interactive layer. Fatal marks an
// error after which the engine will never load.
type EngineEvent struct {
	Type     EngineEventType  `json:"type"`
	Layer    string           `json:"layer,omitempty"`
	Feature  *geojson.Feature `json:"feature,omitempty"`
	Position *Coordinate      `json:"position,omitempty"`
	Zoom     float64          `json:"zoom,omitempty"`
	Message  string           `json:"message,omitempty"`
	Fatal    bool             `json:"fatal,omitempty"`
	Occurred time.Time        `json:"occurred"`
}
