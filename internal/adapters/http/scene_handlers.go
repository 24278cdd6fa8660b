package http

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/canopyops/geoscene/internal/adapters/stylegl"
	"github.com/canopyops/geoscene/internal/core/domain"
	"github.com/canopyops/geoscene/internal/core/scene"
)

// sceneResponse is the scene view plus the last refresh summary.
type sceneResponse struct {
	scene.View
	LastRefresh *domain.SceneSummary `json:"lastRefresh,omitempty"`
}

// SceneHandler returns the current scene state.
func SceneHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		resp := sceneResponse{View: deps.Scene.View()}
		if deps.Snapshots != nil {
			if last := deps.Snapshots.LastSummary(); !last.RefreshedAt.IsZero() {
				resp.LastRefresh = &last
			}
		}
		return c.JSON(resp)
	}
}

// sceneUnavailable answers 503 with the static explanation of an errored scene.
func sceneUnavailable(c *fiber.Ctx, ex scene.Explanation) error {
	body := apiError(c, fiber.StatusServiceUnavailable, "scene_unavailable", ex.Detail)
	body.Explanation = ex
	return c.Status(fiber.StatusServiceUnavailable).JSON(body)
}

// liveEngine returns the loaded engine or writes the reason it is missing.
func liveEngine(c *fiber.Ctx, deps *Dependencies) (*stylegl.Engine, error) {
	if ex, ok := deps.Scene.ErrorView(); ok {
		return nil, sceneUnavailable(c, ex)
	}
	if deps.Engines == nil {
		return nil, errUnavailable(c, "map is not mounted")
	}
	e, ok := deps.Engines.Current()
	if !ok {
		return nil, errUnavailable(c, "map is not mounted")
	}
	return e, nil
}

// SceneStyleHandler returns the live style document viewers load.
func SceneStyleHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		e, err := liveEngine(c, deps)
		if e == nil {
			return err
		}
		data, err := e.StyleJSON()
		if errors.Is(err, stylegl.ErrNotLoaded) {
			c.Set(fiber.HeaderRetryAfter, "1")
			return errUnavailable(c, "map style is still loading")
		}
		if err != nil {
			return errInternal(c, err.Error())
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(data)
	}
}

// SceneSourceHandler returns the collection last applied to a source.
func SceneSourceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fc, err := deps.Scene.SourceData(c.Params("name"))
		if errors.Is(err, scene.ErrUnknownSource) {
			return errNotFound(c, fmt.Sprintf("unknown source %q", c.Params("name")))
		}
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(fc)
	}
}

// SetVisibilityHandler toggles layer groups. Groups missing from the body
// keep their visibility.
func SetVisibilityHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body map[string]bool
		if err := c.BodyParser(&body); err != nil {
			return errBadRequest(c, "body must be an object of group: boolean")
		}
		v := make(domain.LayerVisibilityState, len(body))
		for name, visible := range body {
			g := domain.LayerGroup(name)
			if !g.Valid() {
				return errBadRequest(c, fmt.Sprintf("unknown layer group %q", name))
			}
			v[g] = visible
		}
		deps.Scene.SetVisibility(v)
		return c.JSON(deps.Scene.Visibility())
	}
}

// SetLoadingHandler sets the loading overlay flag.
func SetLoadingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body struct {
			IsLoading *bool `json:"isLoading"`
		}
		if err := c.BodyParser(&body); err != nil || body.IsLoading == nil {
			return errBadRequest(c, "isLoading is required")
		}
		deps.Scene.SetLoading(*body.IsLoading)
		return c.JSON(fiber.Map{"isLoading": *body.IsLoading})
	}
}

// ZoomHandler reports a viewer zoom change and returns the new atmosphere.
func ZoomHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body struct {
			Zoom *float64 `json:"zoom"`
		}
		if err := c.BodyParser(&body); err != nil || body.Zoom == nil {
			return errBadRequest(c, "zoom is required")
		}
		if *body.Zoom < 0 || *body.Zoom > maxZoom {
			return errBadRequest(c, fmt.Sprintf("zoom must be between 0 and %d", maxZoom))
		}

		dispatched := false
		if deps.Engines != nil {
			if e, ok := deps.Engines.Current(); ok && e.Loaded() {
				dispatched = e.Dispatch(domain.EngineEvent{Type: domain.EventZoom, Zoom: *body.Zoom}) == nil
			}
		}
		if !dispatched {
			deps.Scene.ZoomChanged(*body.Zoom)
		}
		v := deps.Scene.View()
		return c.JSON(fiber.Map{"zoom": v.Zoom, "atmosphere": v.Atmosphere})
	}
}

// ResetViewHandler eases the camera back to the default view.
func ResetViewHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := deps.Scene.ResetView()
		if errors.Is(err, scene.ErrNotReady) {
			return errConflict(c, "map is not ready")
		}
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "easing"})
	}
}

// SceneEventHandler delivers a viewer interaction to the engine and returns
// the resulting popup and cursor.
func SceneEventHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in interaction
		if err := c.BodyParser(&in); err != nil {
			return errBadRequest(c, "invalid event body")
		}
		ev, err := in.event()
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		e, err := liveEngine(c, deps)
		if e == nil {
			return err
		}
		if err := e.Dispatch(ev); err != nil {
			if errors.Is(err, stylegl.ErrNotLoaded) {
				return errConflict(c, "map is not ready")
			}
			return errBadRequest(c, err.Error())
		}
		return c.JSON(resultFrom(deps.Scene.View()))
	}
}

// ClosePopupHandler dismisses the open popup.
func ClosePopupHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		deps.Scene.ClosePopup()
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// RefreshHandler runs one snapshot refresh synchronously.
func RefreshHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Snapshots == nil {
			return errUnavailable(c, "snapshot refresh is not configured")
		}
		summary, err := deps.Snapshots.Refresh(c.UserContext(), "manual")
		if err != nil {
			LoggerFromCtx(c.UserContext()).Error("manual refresh failed", "error", err)
			return errInternal(c, "refresh failed")
		}
		return c.JSON(summary)
	}
}
