package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/canopyops/geoscene/internal/adapters/stylegl"
	"github.com/canopyops/geoscene/internal/pkg/metrics"
)

const wsPingInterval = 30 * time.Second

// wsOp wraps one engine op for the socket.
type wsOp struct {
	Type string     `json:"type"`
	Op   stylegl.Op `json:"op"`
}

// WebSocketHandler streams engine ops to a viewer and feeds its interaction
// events back into the engine.
//
// Server messages: {"type":"hello"}, {"type":"op","op":{...}},
// {"type":"state",...} after each interaction, {"type":"error"},
// {"type":"resync"} when the stream ended, {"type":"unavailable"} for an
// errored scene. Client messages are interaction events.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		log := slog.Default().With("component", "ws", "remote", c.RemoteAddr().String())
		log.Debug("ws client connected")

		var mu sync.Mutex
		writeJSON := func(v any) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		if ex, ok := deps.Scene.ErrorView(); ok {
			_ = writeJSON(fiber.Map{"type": "unavailable", "explanation": ex})
			return
		}
		var engine *stylegl.Engine
		ok := false
		if deps.Engines != nil {
			engine, ok = deps.Engines.Current()
		}
		if !ok {
			_ = writeJSON(fiber.Map{"type": "unavailable", "error": "map is not mounted"})
			return
		}

		sub := engine.Subscribe(stylegl.DefaultBuffer)
		defer sub.Close()
		_ = writeJSON(fiber.Map{"type": "hello", "loaded": engine.Loaded(), "style": "/v1/scene/style"})

		done := make(chan struct{})

		// Forward ops until the stream ends, then ask the viewer to resync.
		go func() {
			for {
				select {
				case op, ok := <-sub.C:
					if !ok {
						reason := "engine removed"
						if sub.Lagged() {
							reason = "viewer lagged"
						}
						_ = writeJSON(fiber.Map{"type": "resync", "reason": reason})
						mu.Lock()
						_ = c.WriteMessage(websocket.CloseMessage,
							websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason))
						mu.Unlock()
						return
					}
					if err := writeJSON(wsOp{Type: "op", Op: op}); err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		// Keep-alive ping
		go func() {
			ticker := time.NewTicker(wsPingInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var in interaction
			if err := json.Unmarshal(msg, &in); err != nil {
				_ = writeJSON(fiber.Map{"type": "error", "error": "invalid JSON"})
				continue
			}
			ev, err := in.event()
			if err != nil {
				_ = writeJSON(fiber.Map{"type": "error", "error": err.Error()})
				continue
			}
			if err := engine.Dispatch(ev); err != nil {
				_ = writeJSON(fiber.Map{"type": "error", "error": err.Error()})
				continue
			}
			_ = writeJSON(resultFrom(deps.Scene.View()))
		}

		close(done)
		log.Debug("ws client disconnected")
	}
}
