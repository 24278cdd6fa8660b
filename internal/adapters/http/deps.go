package http

import (
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/canopyops/geoscene/internal/adapters/postgres"
	"github.com/canopyops/geoscene/internal/adapters/stylegl"
	"github.com/canopyops/geoscene/internal/adapters/valkey"
	"github.com/canopyops/geoscene/internal/core/scene"
	"github.com/canopyops/geoscene/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Scene     *scene.Controller
	Engines   *stylegl.Host
	Snapshots *usecases.SnapshotService
	Journeys  *usecases.JourneyService

	// MapToken is handed to browser viewports so they can load imagery tiles.
	MapToken string

	NATS  *nats.Conn
	DB    *postgres.DB
	Cache *valkey.Cache

	// Logger is the base for request-scoped loggers. Nil uses slog.Default.
	Logger *slog.Logger
}
