// Package stylegl is a server-side render engine that maintains a Mapbox GL
// style document and streams every mutation to connected viewers.
package stylegl

import (
	"github.com/paulmach/orb/geojson"

	"github.com/canopyops/geoscene/internal/core/domain"
)

// Document is a style-spec v8 document.
type Document struct {
	Version int                `json:"version"`
	Name    string             `json:"name,omitempty"`
	Sprite  string             `json:"sprite,omitempty"`
	Glyphs  string             `json:"glyphs,omitempty"`
	Sources map[string]Source  `json:"sources"`
	Layers  []domain.LayerSpec `json:"layers"`
	Fog     *domain.Fog        `json:"fog,omitempty"`
	Center  [2]float64         `json:"center"`
	Zoom    float64            `json:"zoom"`
	Pitch   float64            `json:"pitch"`
	Bearing float64            `json:"bearing"`
	Meta    map[string]any     `json:"metadata,omitempty"`
}

// Source is a style-spec source entry.
type Source struct {
	Type     domain.SourceType          `json:"type"`
	URL      string                     `json:"url,omitempty"`
	Tiles    []string                   `json:"tiles,omitempty"`
	TileSize int                        `json:"tileSize,omitempty"`
	Data     *geojson.FeatureCollection `json:"data,omitempty"`
}

// FallbackStyle is the minimal dark base used when no base style can be
// fetched.
func FallbackStyle() *Document {
	return &Document{
		Version: 8,
		Name:    "geoscene-dark",
		Sources: map[string]Source{},
		Layers: []domain.LayerSpec{{
			ID:    "background",
			Type:  "background",
			Paint: map[string]any{"background-color": "#05070d"},
		}},
	}
}

func sourceFromSpec(s domain.SourceSpec) Source {
	src := Source{Type: s.Type, TileSize: s.TileSize}
	switch s.Type {
	case domain.SourceGeoJSON:
		src.Data = geojson.NewFeatureCollection()
	case domain.SourceRaster:
		src.URL = s.URL
	}
	return src
}

// cloneLayer copies the property maps so streamed ops never alias the
// document.
func cloneLayer(l domain.LayerSpec) domain.LayerSpec {
	paint := make(map[string]any, len(l.Paint))
	for k, v := range l.Paint {
		paint[k] = v
	}
	layout := make(map[string]any, len(l.Layout))
	for k, v := range l.Layout {
		layout[k] = v
	}
	l.Paint, l.Layout = paint, layout
	return l
}
