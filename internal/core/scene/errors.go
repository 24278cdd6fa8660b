package scene

import "errors"

var (
	// ErrMissingAccessToken means the map provider token is not configured.
	// The scene stays in StateErrored until it is remounted with a token.
	ErrMissingAccessToken = errors.New("scene: map access token is not configured")

	// ErrUnknownSource is returned for updates naming a source the registry
	// does not declare.
	ErrUnknownSource = errors.New("scene: unknown source")

	// ErrNotReady is returned by operations that need a loaded engine.
	ErrNotReady = errors.New("scene: map is not ready")

	// ErrEngineLoad means the engine reported that it will never load,
	// typically because the provider rejected the access token.
	ErrEngineLoad = errors.New("scene: map engine failed to load")
)

// Explanation is the static error view shown in place of the map.
type Explanation struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Hint   string `json:"hint,omitempty"`
}

func explain(err error) Explanation {
	if errors.Is(err, ErrMissingAccessToken) {
		return Explanation{
			Title:  "Map unavailable",
			Detail: "No map access token is configured, so the map cannot be displayed.",
			Hint:   "Set GEOSCENE_MAPBOX_ACCESS_TOKEN (or mapbox.access_token in config.yaml) and restart the service.",
		}
	}
	if errors.Is(err, ErrEngineLoad) {
		return Explanation{
			Title:  "Map unavailable",
			Detail: "The map provider refused to serve the base style: " + err.Error(),
			Hint:   "Check that GEOSCENE_MAPBOX_ACCESS_TOKEN is valid and allowed to read the configured style, then restart the service.",
		}
	}
	return Explanation{
		Title:  "Map unavailable",
		Detail: "The map failed to start: " + err.Error(),
	}
}
