package domain

// Category selects which layer group and styling rules apply to a GeoPoint.
type Category string

const (
	CategoryStore    Category = "store"
	CategoryShipping Category = "shipping"
	CategoryCustomer Category = "customer"
	CategoryTraffic  Category = "traffic"
)

// Categories lists every point category in render order.
var Categories = []Category{CategoryCustomer, CategoryShipping, CategoryStore, CategoryTraffic}

// GeoPrecision records how a coordinate was derived.
type GeoPrecision string

const (
	PrecisionDeviceReported GeoPrecision = "browser_gps"
	PrecisionIPGeolocation  GeoPrecision = "ipinfo"
	PrecisionEdgeHeader     GeoPrecision = "edge_header"
	PrecisionCityCentroid   GeoPrecision = "city_centroid_backfill"
	PrecisionAggregate      GeoPrecision = "aggregate"
	PrecisionUnknown        GeoPrecision = "unknown"
)

// IsPrecise reports whether the coordinate can be drawn as a pinpoint.
// Every other tag, including an empty one, means same-city clustering.
func (p GeoPrecision) IsPrecise() bool {
	return p == PrecisionDeviceReported || p == PrecisionIPGeolocation
}

// PointMetrics carries the commercial figures attached to a point.
type PointMetrics struct {
	Revenue       float64 `json:"revenue"`
	OrderCount    int     `json:"order_count"`
	CustomerCount *int    `json:"customer_count,omitempty"`
	Visitors      int     `json:"visitors,omitempty"` // traffic aggregates
}

// Attribution describes where a traffic session came from.
type Attribution struct {
	Channel  string `json:"channel,omitempty"`
	Source   string `json:"source,omitempty"`
	Campaign string `json:"campaign,omitempty"`
	Referrer string `json:"referrer,omitempty"`
}

// SessionActivity summarises what a traffic session did on the storefront.
type SessionActivity struct {
	PageViews      int     `json:"page_views"`
	ProductViews   int     `json:"product_views"`
	CartAdds       int     `json:"cart_adds"`
	Purchases      int     `json:"purchases"`
	SessionRevenue float64 `json:"session_revenue"`
}

// GeoPoint is a single plottable, location-bound fact. It is rebuilt on every
// fetch cycle and never mutated once handed to the feature builder.
type GeoPoint struct {
	ID          string           `json:"id"`
	Name        string           `json:"name,omitempty"`
	City        string           `json:"city,omitempty"`
	State       string           `json:"state,omitempty"`
	Position    Coordinate       `json:"position"`
	Category    Category         `json:"category"`
	Metrics     PointMetrics     `json:"metrics"`
	Attribution *Attribution     `json:"attribution,omitempty"`
	Session     *SessionActivity `json:"session,omitempty"`
	Precision   GeoPrecision     `json:"geo_precision,omitempty"`
	ClientIP    string           `json:"-"` // used only to resolve missing traffic coordinates
}
