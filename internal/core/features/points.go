package features

import (
	"math"

	"github.com/paulmach/orb/geojson"

	"github.com/canopyops/geoscene/internal/core/domain"
)

const (
	// NeutralIntensity is used for every point when the set has no revenue.
	NeutralIntensity = 0.5

	// intensityFloor keeps zero-revenue points visible.
	intensityFloor = 0.2
)

// Intensity normalises revenue against the set maximum into [0.2, 1.0].
func Intensity(revenue, maxRevenue float64) float64 {
	if maxRevenue <= 0 {
		return NeutralIntensity
	}
	if revenue < 0 {
		revenue = 0
	}
	return math.Min(revenue/maxRevenue+intensityFloor, 1.0)
}

// MaxRevenue returns the largest revenue in points, or 0 for an empty set.
func MaxRevenue(points []domain.GeoPoint) float64 {
	var m float64
	for _, p := range points {
		if p.Metrics.Revenue > m {
			m = p.Metrics.Revenue
		}
	}
	return m
}

// BuildPoints converts points of a single category into a feature collection.
// The mapping is 1:1 and preserves input order.
func BuildPoints(points []domain.GeoPoint, maxRevenue float64) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Features = make([]*geojson.Feature, 0, len(points))
	for _, p := range points {
		fc.Append(pointFeature(p, maxRevenue))
	}
	return fc
}

func pointFeature(p domain.GeoPoint, maxRevenue float64) *geojson.Feature {
	f := geojson.NewFeature(p.Position.Point())
	f.ID = p.ID

	customers := 0
	if p.Metrics.CustomerCount != nil {
		customers = *p.Metrics.CustomerCount
	}
	precision := p.Precision
	if precision == "" {
		precision = domain.PrecisionUnknown
	}

	f.Properties = geojson.Properties{
		PropID:            p.ID,
		PropName:          p.Name,
		PropCategory:      string(p.Category),
		PropCity:          p.City,
		PropState:         p.State,
		PropRevenue:       p.Metrics.Revenue,
		PropOrderCount:    p.Metrics.OrderCount,
		PropCustomerCount: customers,
		PropVisitors:      p.Metrics.Visitors,
		PropIntensity:     Intensity(p.Metrics.Revenue, maxRevenue),
		PropIsPrecise:     precision.IsPrecise(),
		PropGeoPrecision:  string(precision),
	}

	var attr domain.Attribution
	if p.Attribution != nil {
		attr = *p.Attribution
	}
	f.Properties[PropChannel] = attr.Channel
	f.Properties[PropSource] = attr.Source
	f.Properties[PropCampaign] = attr.Campaign
	f.Properties[PropReferrer] = attr.Referrer

	var sess domain.SessionActivity
	if p.Session != nil {
		sess = *p.Session
	}
	f.Properties[PropPageViews] = sess.PageViews
	f.Properties[PropProductViews] = sess.ProductViews
	f.Properties[PropCartAdds] = sess.CartAdds
	f.Properties[PropPurchases] = sess.Purchases
	f.Properties[PropSessionRevenue] = sess.SessionRevenue

	return f
}

// BuildFacilities converts the fixed facility list into point features.
func BuildFacilities(facilities []domain.Facility) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Features = make([]*geojson.Feature, 0, len(facilities))
	for _, fac := range facilities {
		f := geojson.NewFeature(fac.Position.Point())
		f.ID = fac.ID
		f.Properties = geojson.Properties{
			PropID:    fac.ID,
			PropName:  fac.Name,
			PropKind:  fac.Kind,
			PropCity:  fac.City,
			PropState: fac.State,
		}
		fc.Append(f)
	}
	return fc
}
