package scene

import (
	"fmt"

	"github.com/canopyops/geoscene/internal/core/domain"
	"github.com/canopyops/geoscene/internal/core/ports"
)

// Atmosphere is the zoom-driven look of the base imagery: muted and foggy at
// continental scale, vivid up close.
type Atmosphere struct {
	Brightness float64 `json:"brightness"`
	Saturation float64 `json:"saturation"`
	FogOpacity float64 `json:"fogOpacity"`
}

const (
	brightnessMin, brightnessMax = 0.55, 1.0
	saturationMin, saturationMax = -0.7, -0.1
	fogMin, fogMax               = 0.25, 0.85
)

func clamp(v, lo, hi float64) float64 { return min(max(v, lo), hi) }

// AtmosphereAt derives the atmosphere for a zoom level. Brightness and
// saturation are non-decreasing in zoom, fog opacity is non-increasing.
func AtmosphereAt(zoom float64) Atmosphere {
	z := clamp(zoom, 0, 22)
	return Atmosphere{
		Brightness: clamp(brightnessMin+0.05*z, brightnessMin, brightnessMax),
		Saturation: clamp(saturationMin+0.06*z, saturationMin, saturationMax),
		FogOpacity: clamp(fogMax-0.05*z, fogMin, fogMax),
	}
}

// Fog renders the atmosphere as a style fog block.
func (a Atmosphere) Fog() domain.Fog {
	return domain.Fog{
		Color:         fmt.Sprintf("rgba(12,16,28,%.3f)", a.FogOpacity),
		HighColor:     fmt.Sprintf("rgba(36,58,110,%.3f)", a.FogOpacity),
		SpaceColor:    "rgb(4,6,14)",
		HorizonBlend:  0.04 + 0.06*a.FogOpacity,
		StarIntensity: 0.6 * a.FogOpacity,
		Range:         [2]float64{0.8, 8},
	}
}

func (a Atmosphere) apply(e ports.RenderEngine) error {
	if err := e.SetPaintProperty(LayerImagery, "raster-brightness-max", a.Brightness); err != nil {
		return err
	}
	if err := e.SetPaintProperty(LayerImagery, "raster-saturation", a.Saturation); err != nil {
		return err
	}
	return e.SetFog(a.Fog())
}
