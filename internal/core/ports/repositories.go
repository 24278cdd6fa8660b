package ports

import (
	"context"

	"github.com/canopyops/geoscene/internal/core/domain"
)

// PointRepository reads plottable points from the back-office database.
type PointRepository interface {
	// ListByCategory returns the current point set for one category.
	ListByCategory(ctx context.Context, category domain.Category) ([]domain.GeoPoint, error)
}

// JourneyRepository reads tracked shipment journeys. Waypoints must come back
// in ascending timestamp order.
type JourneyRepository interface {
	ListActive(ctx context.Context, limit int) ([]domain.ShipmentJourney, error)
	GetByTrackingID(ctx context.Context, trackingID string) (*domain.ShipmentJourney, error)
}
