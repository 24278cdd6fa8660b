package scene

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/canopyops/geoscene/internal/core/domain"
	f "github.com/canopyops/geoscene/internal/core/features"
)

// PopupKind tags the detail panel variant shown for a clicked feature.
type PopupKind string

const (
	PopupStore        PopupKind = "store"
	PopupCustomer     PopupKind = "customer"
	PopupShipping     PopupKind = "shipping"
	PopupTraffic      PopupKind = "traffic"
	PopupTrafficCity  PopupKind = "traffic-city"
	PopupFacility     PopupKind = "facility"
	PopupJourneyPoint PopupKind = "journey-point"
	PopupJourneyLine  PopupKind = "journey-line"
)

// PopupRow is one labelled value in a popup.
type PopupRow struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Popup is the detail panel for a clicked feature.
type Popup struct {
	Kind     PopupKind          `json:"kind"`
	Layer    string             `json:"layer"`
	Title    string             `json:"title"`
	Subtitle string             `json:"subtitle,omitempty"`
	Accent   string             `json:"accent,omitempty"`
	Rows     []PopupRow         `json:"rows"`
	Anchor   *domain.Coordinate `json:"anchor,omitempty"`
}

// PopupBuilder renders a popup from a feature's properties. Properties may
// arrive decoded from JSON, so numbers are read through the Must helpers.
type PopupBuilder func(props geojson.Properties) Popup

type rows []PopupRow

func (r *rows) add(label, value string) {
	if value == "" {
		return
	}
	*r = append(*r, PopupRow{Label: label, Value: value})
}

func place(props geojson.Properties) string {
	city := props.MustString(f.PropCity, "")
	state := props.MustString(f.PropState, "")
	switch {
	case city != "" && state != "":
		return city + ", " + state
	case city != "":
		return city
	default:
		return state
	}
}

func attribution(r *rows, props geojson.Properties) {
	r.add("Channel", humanize(props.MustString(f.PropChannel, "")))
	r.add("Source", props.MustString(f.PropSource, ""))
	r.add("Campaign", props.MustString(f.PropCampaign, ""))
	r.add("Referrer", props.MustString(f.PropReferrer, ""))
}

func buildStorePopup(props geojson.Properties) Popup {
	var r rows
	r.add("Revenue", money(props.MustFloat64(f.PropRevenue, 0)))
	r.add("Orders", count(props.MustInt(f.PropOrderCount, 0)))
	r.add("Customers", count(props.MustInt(f.PropCustomerCount, 0)))
	return Popup{Kind: PopupStore, Title: props.MustString(f.PropName, "Store"), Subtitle: place(props), Accent: "#3b82f6", Rows: r}
}

func buildCustomerPopup(props geojson.Properties) Popup {
	var r rows
	r.add("Lifetime revenue", money(props.MustFloat64(f.PropRevenue, 0)))
	r.add("Orders", count(props.MustInt(f.PropOrderCount, 0)))
	attribution(&r, props)
	return Popup{Kind: PopupCustomer, Title: props.MustString(f.PropName, "Customer"), Subtitle: place(props), Accent: "#a855f7", Rows: r}
}

func buildShippingPopup(props geojson.Properties) Popup {
	var r rows
	r.add("Revenue", money(props.MustFloat64(f.PropRevenue, 0)))
	r.add("Shipments", count(props.MustInt(f.PropOrderCount, 0)))
	r.add("Intensity", fmt.Sprintf("%.0f%%", props.MustFloat64(f.PropIntensity, 0)*100))
	title := place(props)
	if title == "" {
		title = props.MustString(f.PropName, "Shipping destination")
	}
	return Popup{Kind: PopupShipping, Title: title, Accent: "#22c55e", Rows: r}
}

func buildTrafficPopup(props geojson.Properties) Popup {
	if !props.MustBool(f.PropIsPrecise, false) {
		return buildTrafficCityPopup(props)
	}
	var r rows
	r.add("Location", humanize(props.MustString(f.PropGeoPrecision, "")))
	r.add("Page views", count(props.MustInt(f.PropPageViews, 0)))
	r.add("Product views", count(props.MustInt(f.PropProductViews, 0)))
	r.add("Cart adds", count(props.MustInt(f.PropCartAdds, 0)))
	r.add("Purchases", count(props.MustInt(f.PropPurchases, 0)))
	if rev := props.MustFloat64(f.PropSessionRevenue, 0); rev > 0 {
		r.add("Session revenue", money(rev))
	}
	attribution(&r, props)
	return Popup{Kind: PopupTraffic, Title: "Live visitor", Subtitle: place(props), Accent: "#f59e0b", Rows: r}
}

func buildTrafficCityPopup(props geojson.Properties) Popup {
	var r rows
	r.add("Visitors", count(props.MustInt(f.PropVisitors, 0)))
	r.add("Location", humanize(props.MustString(f.PropGeoPrecision, "")))
	title := place(props)
	if title == "" {
		title = "Visitors"
	}
	return Popup{Kind: PopupTrafficCity, Title: title, Subtitle: "City-level estimate", Accent: "#f59e0b", Rows: r}
}

func buildFacilityPopup(props geojson.Properties) Popup {
	var r rows
	r.add("Type", humanize(props.MustString(f.PropKind, "")))
	return Popup{Kind: PopupFacility, Title: props.MustString(f.PropName, "Facility"), Subtitle: place(props), Accent: "#14b8a6", Rows: r}
}

func journeyRows(r *rows, props geojson.Properties) {
	r.add("Carrier", strings.ToUpper(props.MustString(f.PropCarrier, "")))
	r.add("Status", humanize(props.MustString(f.PropStatus, "")))
	r.add("In transit", props.MustString(f.PropTransitLabel, ""))
	r.add("Order", props.MustString(f.PropOrderNumber, ""))
	if total := props.MustFloat64(f.PropOrderTotal, 0); total > 0 {
		r.add("Order total", money(total))
	}
	r.add("Customer", props.MustString(f.PropCustomerName, ""))
	r.add("Ship to", props.MustString(f.PropShippingAddress, ""))
	r.add("Store", props.MustString(f.PropStoreName, ""))
}

func buildJourneyLinePopup(props geojson.Properties) Popup {
	var r rows
	from := props.MustString(f.PropFromCity, "")
	to := props.MustString(f.PropToCity, "")
	if from != "" || to != "" {
		r.add("Leg", from+" → "+to)
	}
	if d := props.MustFloat64(f.PropDistanceKm, 0); d > 0 {
		r.add("Distance", fmt.Sprintf("%.0f km", d))
	}
	journeyRows(&r, props)
	p := Popup{
		Kind:   PopupJourneyLine,
		Title:  props.MustString(f.PropTrackingID, "Shipment"),
		Accent: props.MustString(f.PropColor, ""),
		Rows:   r,
	}
	origin, dest := props.MustString(f.PropOriginCity, ""), props.MustString(f.PropDestinationCity, "")
	if origin != "" && dest != "" {
		p.Subtitle = origin + " → " + dest
	}
	return p
}

func buildJourneyPointPopup(props geojson.Properties) Popup {
	var r rows
	stop := fmt.Sprintf("Stop %d of %d", props.MustInt(f.PropStopNumber, 0), props.MustInt(f.PropTotalStops, 0))
	switch {
	case props.MustBool(f.PropIsOrigin, false):
		stop = "Origin"
	case props.MustBool(f.PropIsDestination, false):
		stop = "Destination"
	}
	r.add("Stop", stop)
	r.add("Event", humanize(props.MustString(f.PropEventType, "")))
	r.add("Time", props.MustString(f.PropTimestamp, ""))
	r.add("Postal code", props.MustString(f.PropPostal, ""))
	r.add("Tracking", props.MustString(f.PropTrackingID, ""))
	journeyRows(&r, props)
	title := place(props)
	if title == "" {
		title = "Waypoint"
	}
	return Popup{Kind: PopupJourneyPoint, Title: title, Subtitle: stop, Accent: props.MustString(f.PropColor, ""), Rows: r}
}
