package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/canopyops/geoscene/internal/core/domain"
)

// JourneyRepo implements ports.JourneyRepository.
type JourneyRepo struct {
	db *DB
}

func NewJourneyRepo(db *DB) *JourneyRepo {
	return &JourneyRepo{db: db}
}

const journeyColumns = `
	j.tracking_id, COALESCE(j.carrier, ''), j.status,
	COALESCE(j.customer_name, ''), COALESCE(j.customer_email, ''), COALESCE(j.customer_phone, ''),
	COALESCE(j.shipping_address, ''), COALESCE(j.order_number, ''), COALESCE(j.order_total, 0),
	COALESCE(j.store_name, '')`

// ListActive returns journeys that have not been delivered, most recently
// updated first, with their waypoints. The order is stable so journey colours
// stay put between refreshes.
func (r *JourneyRepo) ListActive(ctx context.Context, limit int) ([]domain.ShipmentJourney, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+journeyColumns+`
		FROM shipment_journeys j
		WHERE j.status <> 'delivered'
		ORDER BY j.updated_at DESC, j.tracking_id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query journeys: %w", err)
	}
	defer rows.Close()

	var journeys []domain.ShipmentJourney
	for rows.Next() {
		j, err := scanJourney(rows)
		if err != nil {
			return nil, err
		}
		journeys = append(journeys, j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(journeys) == 0 {
		return journeys, nil
	}

	ids := make([]string, len(journeys))
	for i, j := range journeys {
		ids[i] = j.TrackingID
	}
	waypoints, err := r.waypoints(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range journeys {
		journeys[i].Waypoints = waypoints[journeys[i].TrackingID]
	}
	return journeys, nil
}

// GetByTrackingID returns one journey regardless of status, or nil when the
// tracking id is unknown.
func (r *JourneyRepo) GetByTrackingID(ctx context.Context, trackingID string) (*domain.ShipmentJourney, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT `+journeyColumns+`
		FROM shipment_journeys j
		WHERE j.tracking_id = $1
	`, trackingID)
	j, err := scanJourney(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	waypoints, err := r.waypoints(ctx, []string{trackingID})
	if err != nil {
		return nil, err
	}
	j.Waypoints = waypoints[trackingID]
	return &j, nil
}

func (r *JourneyRepo) waypoints(ctx context.Context, ids []string) (map[string][]domain.Waypoint, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT tracking_id, lat, lon, COALESCE(city, ''), COALESCE(state, ''),
		       COALESCE(postal, ''), COALESCE(event_type, ''), occurred_at
		FROM shipment_waypoints
		WHERE tracking_id = ANY($1)
		ORDER BY tracking_id, occurred_at, id
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("query waypoints: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.Waypoint, len(ids))
	for rows.Next() {
		var (
			id string
			w  domain.Waypoint
			ts time.Time
		)
		if err := rows.Scan(&id, &w.Position.Lat, &w.Position.Lon, &w.City, &w.State,
			&w.Postal, &w.EventType, &ts); err != nil {
			return nil, fmt.Errorf("scan waypoint: %w", err)
		}
		w.Timestamp = ts.UTC()
		out[id] = append(out[id], w)
	}
	return out, rows.Err()
}

func scanJourney(row pgx.Row) (domain.ShipmentJourney, error) {
	var (
		j      domain.ShipmentJourney
		status string
		o      domain.OrderContext
	)
	err := row.Scan(&j.TrackingID, &j.Carrier, &status,
		&o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
		&o.ShippingAddress, &o.OrderNumber, &o.OrderTotal, &o.StoreName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return j, err
		}
		return j, fmt.Errorf("scan journey: %w", err)
	}
	j.Status = domain.ShipmentStatus(status)
	if o != (domain.OrderContext{}) {
		j.Order = &o
	}
	return j, nil
}
