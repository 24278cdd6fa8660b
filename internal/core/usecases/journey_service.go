package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/canopyops/geoscene/internal/core/domain"
	"github.com/canopyops/geoscene/internal/core/features"
	"github.com/canopyops/geoscene/internal/core/ports"
)

// ErrJourneyNotFound is returned for unknown tracking ids.
var ErrJourneyNotFound = errors.New("journey not found")

// JourneySummary is the list view of one tracked shipment.
type JourneySummary struct {
	TrackingID      string                `json:"tracking_id"`
	Carrier         string                `json:"carrier"`
	Status          domain.ShipmentStatus `json:"status"`
	Color           string                `json:"color"`
	Waypoints       int                   `json:"waypoints"`
	Renderable      bool                  `json:"renderable"`
	OriginCity      string                `json:"origin_city,omitempty"`
	DestinationCity string                `json:"destination_city,omitempty"`
	TransitHours    float64               `json:"transit_hours"`
	TransitLabel    string                `json:"transit_label,omitempty"`
	LastEventAt     *time.Time            `json:"last_event_at,omitempty"`
}

// JourneyService lists tracked shipments with the same colours the map uses.
type JourneyService struct {
	journeys ports.JourneyRepository
	limit    int
}

// NewJourneyService creates a new JourneyService. limit must match the
// scene's journey limit so colour indexes line up.
func NewJourneyService(journeys ports.JourneyRepository, limit int) *JourneyService {
	if limit <= 0 {
		limit = 50
	}
	return &JourneyService{journeys: journeys, limit: limit}
}

// List returns a page of active journeys and the total count.
func (s *JourneyService) List(ctx context.Context, limit, offset int) ([]JourneySummary, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	all, err := s.journeys.ListActive(ctx, s.limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list journeys: %w", err)
	}
	total := len(all)
	if offset >= total {
		return []JourneySummary{}, total, nil
	}
	end := min(offset+limit, total)

	out := make([]JourneySummary, 0, end-offset)
	for i := offset; i < end; i++ {
		out = append(out, summarize(all[i], i))
	}
	return out, total, nil
}

// Get returns one journey by tracking id. Journeys outside the active set get
// no colour.
func (s *JourneyService) Get(ctx context.Context, trackingID string) (*JourneySummary, error) {
	if trackingID == "" {
		return nil, fmt.Errorf("tracking id is required")
	}

	all, err := s.journeys.ListActive(ctx, s.limit)
	if err != nil {
		return nil, fmt.Errorf("list journeys: %w", err)
	}
	for i, j := range all {
		if j.TrackingID == trackingID {
			sum := summarize(j, i)
			return &sum, nil
		}
	}

	j, err := s.journeys.GetByTrackingID(ctx, trackingID)
	if err != nil {
		return nil, fmt.Errorf("get journey: %w", err)
	}
	if j == nil {
		return nil, ErrJourneyNotFound
	}
	sum := summarize(*j, -1)
	return &sum, nil
}

func summarize(j domain.ShipmentJourney, index int) JourneySummary {
	transit := j.Transit()
	sum := JourneySummary{
		TrackingID:   j.TrackingID,
		Carrier:      j.Carrier,
		Status:       j.Status,
		Waypoints:    len(j.Waypoints),
		Renderable:   j.Renderable(),
		TransitHours: transit.Hours,
		TransitLabel: transit.Label(),
	}
	if index >= 0 {
		sum.Color = features.JourneyColor(index)
	}
	if first, ok := j.Origin(); ok {
		last, _ := j.Destination()
		sum.OriginCity = first.City
		sum.DestinationCity = last.City
		if !last.Timestamp.IsZero() {
			ts := last.Timestamp
			sum.LastEventAt = &ts
		}
	}
	return sum
}
