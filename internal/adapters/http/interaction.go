package http

import (
	"fmt"

	"github.com/paulmach/orb/geojson"

	"github.com/canopyops/geoscene/internal/core/domain"
	"github.com/canopyops/geoscene/internal/core/scene"
)

// maxZoom is the deepest zoom level viewers can reach.
const maxZoom = 24

// interaction is a viewer event, sent over REST or the WebSocket.
type interaction struct {
	Type       string         `json:"type"`
	Layer      string         `json:"layer,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	LngLat     *[2]float64    `json:"lngLat,omitempty"`
	Zoom       float64        `json:"zoom,omitempty"`
	Message    string         `json:"message,omitempty"`
}

// event converts the interaction into an engine event.
func (in interaction) event() (domain.EngineEvent, error) {
	ev := domain.EngineEvent{
		Type:    domain.EngineEventType(in.Type),
		Layer:   in.Layer,
		Zoom:    in.Zoom,
		Message: in.Message,
	}
	switch ev.Type {
	case domain.EventClick, domain.EventMouseEnter, domain.EventMouseLeave, domain.EventError:
	case domain.EventZoom:
		if in.Zoom < 0 || in.Zoom > maxZoom {
			return ev, fmt.Errorf("zoom must be between 0 and %d", maxZoom)
		}
	default:
		return ev, fmt.Errorf("unsupported event type %q", in.Type)
	}

	if in.LngLat != nil {
		pos := domain.Coordinate{Lon: in.LngLat[0], Lat: in.LngLat[1]}
		if !pos.Valid() {
			return ev, fmt.Errorf("lngLat out of range")
		}
		ev.Position = &pos
	}
	if in.Layer != "" {
		f := &geojson.Feature{Type: "Feature", Properties: geojson.Properties(in.Properties)}
		if f.Properties == nil {
			f.Properties = geojson.Properties{}
		}
		if ev.Position != nil {
			f.Geometry = ev.Position.Point()
		}
		ev.Feature = f
	}
	return ev, nil
}

// interactionResult is what a viewer needs to render after an event.
type interactionResult struct {
	Type       string           `json:"type"`
	Popup      *scene.Popup     `json:"popup"`
	Cursor     string           `json:"cursor"`
	Zoom       float64          `json:"zoom"`
	Atmosphere scene.Atmosphere `json:"atmosphere"`
}

func resultFrom(v scene.View) interactionResult {
	return interactionResult{
		Type:       "state",
		Popup:      v.Popup,
		Cursor:     v.Cursor,
		Zoom:       v.Zoom,
		Atmosphere: v.Atmosphere,
	}
}
