package postgres

import (
	"context"
	"fmt"

	"github.com/canopyops/geoscene/internal/core/domain"
)

// PointRepo implements ports.PointRepository with pgx.
type PointRepo struct {
	db *DB
}

// NewPointRepo creates a new PointRepo.
func NewPointRepo(db *DB) *PointRepo {
	return &PointRepo{db: db}
}

// ListByCategory returns the current points for one category ordered by id.
// Traffic rows may carry no coordinates; those come back with a zero
// Position and their client IP so the caller can locate them.
func (r *PointRepo) ListByCategory(ctx context.Context, category domain.Category) ([]domain.GeoPoint, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, COALESCE(name, ''), COALESCE(city, ''), COALESCE(state, ''),
		       lat, lon,
		       revenue, order_count, customer_count, visitors,
		       COALESCE(geo_precision, ''), COALESCE(host(client_ip), ''),
		       COALESCE(channel, ''), COALESCE(source, ''), COALESCE(campaign, ''), COALESCE(referrer, ''),
		       page_views, product_views, cart_adds, purchases, session_revenue
		FROM geo_points
		WHERE category = $1
		ORDER BY id
	`, string(category))
	if err != nil {
		return nil, fmt.Errorf("query %s points: %w", category, err)
	}
	defer rows.Close()

	var out []domain.GeoPoint
	for rows.Next() {
		var (
			p        domain.GeoPoint
			lat, lon *float64
			prec     string
			attr     domain.Attribution
			sess     domain.SessionActivity
		)
		if err := rows.Scan(
			&p.ID, &p.Name, &p.City, &p.State,
			&lat, &lon,
			&p.Metrics.Revenue, &p.Metrics.OrderCount, &p.Metrics.CustomerCount, &p.Metrics.Visitors,
			&prec, &p.ClientIP,
			&attr.Channel, &attr.Source, &attr.Campaign, &attr.Referrer,
			&sess.PageViews, &sess.ProductViews, &sess.CartAdds, &sess.Purchases, &sess.SessionRevenue,
		); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		p.Category = category
		p.Precision = domain.GeoPrecision(prec)
		if lat != nil && lon != nil {
			p.Position = domain.Coordinate{Lat: *lat, Lon: *lon}
		}
		if attr != (domain.Attribution{}) {
			p.Attribution = &attr
		}
		if category == domain.CategoryTraffic {
			p.Session = &sess
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
