package features

import (
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/canopyops/geoscene/internal/core/domain"
	"github.com/canopyops/geoscene/internal/pkg/geospatial"
)

// Palette is the fixed journey colour cycle.
var Palette = []string{
	"#22d3ee", // cyan
	"#a78bfa", // violet
	"#f472b6", // pink
	"#34d399", // emerald
	"#fbbf24", // amber
	"#60a5fa", // blue
	"#f87171", // red
	"#a3e635", // lime
}

// JourneyColor returns the palette colour for the journey at index i of the
// input slice.
func JourneyColor(i int) string {
	if i < 0 {
		i = -i
	}
	return Palette[i%len(Palette)]
}

// JourneyCollections holds the two renderable outputs of a journey set.
type JourneyCollections struct {
	Lines     *geojson.FeatureCollection
	Waypoints *geojson.FeatureCollection
}

// JourneyOptions tunes journey conversion.
type JourneyOptions struct {
	ArcSegments int
}

// BuildJourneys emits one arc feature per consecutive waypoint pair and one
// point feature per waypoint. Journeys with fewer than two waypoints are
// skipped. Colour is assigned by position in the input slice, skipped
// journeys included, so it stays stable across renders of the same slice.
func BuildJourneys(journeys []domain.ShipmentJourney, opts JourneyOptions) JourneyCollections {
	out := JourneyCollections{
		Lines:     geojson.NewFeatureCollection(),
		Waypoints: geojson.NewFeatureCollection(),
	}

	for idx, j := range journeys {
		if !j.Renderable() {
			continue
		}
		meta := journeyMeta(j, JourneyColor(idx))
		n := len(j.Waypoints)

		for i := 0; i < n-1; i++ {
			from, to := j.Waypoints[i], j.Waypoints[i+1]
			arc := geospatial.Arc(from.Position.Point(), to.Position.Point(), opts.ArcSegments)

			f := geojson.NewFeature(arc)
			f.Properties = meta.Clone()
			f.Properties[PropSegmentIndex] = i
			f.Properties[PropFromCity] = from.City
			f.Properties[PropToCity] = to.City
			f.Properties[PropDistanceKm] = geospatial.DistanceKm(from.Position.Point(), to.Position.Point())
			out.Lines.Append(f)
		}

		for i, wp := range j.Waypoints {
			f := geojson.NewFeature(wp.Position.Point())
			f.Properties = meta.Clone()
			f.Properties[PropIsOrigin] = i == 0
			f.Properties[PropIsDestination] = i == n-1
			f.Properties[PropStopNumber] = i + 1
			f.Properties[PropTotalStops] = n
			f.Properties[PropCity] = wp.City
			f.Properties[PropState] = wp.State
			f.Properties[PropPostal] = wp.Postal
			f.Properties[PropEventType] = wp.EventType
			f.Properties[PropTimestamp] = formatTime(wp.Timestamp)
			out.Waypoints.Append(f)
		}
	}
	return out
}

func journeyMeta(j domain.ShipmentJourney, color string) geojson.Properties {
	transit := j.Transit()
	var order domain.OrderContext
	if j.Order != nil {
		order = *j.Order
	}
	origin, _ := j.Origin()
	dest, _ := j.Destination()

	return geojson.Properties{
		PropTrackingID:      j.TrackingID,
		PropStatus:          string(j.Status),
		PropCarrier:         j.Carrier,
		PropColor:           color,
		PropTransitHours:    transit.Hours,
		PropTransitDays:     transit.Days,
		PropTransitLabel:    transit.Label(),
		PropCustomerName:    order.CustomerName,
		PropCustomerEmail:   order.CustomerEmail,
		PropCustomerPhone:   order.CustomerPhone,
		PropShippingAddress: order.ShippingAddress,
		PropOrderNumber:     order.OrderNumber,
		PropOrderTotal:      order.OrderTotal,
		PropStoreName:       order.StoreName,
		PropOriginCity:      origin.City,
		PropDestinationCity: dest.City,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
