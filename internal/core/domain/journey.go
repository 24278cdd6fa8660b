package domain

import (
	"fmt"
	"math"
	"time"
)

// ShipmentStatus is the carrier-reported state of a shipment.
type ShipmentStatus string

const (
	StatusPreTransit     ShipmentStatus = "pre_transit"
	StatusInTransit      ShipmentStatus = "in_transit"
	StatusOutForDelivery ShipmentStatus = "out_for_delivery"
	StatusDelivered      ShipmentStatus = "delivered"
	StatusAlert          ShipmentStatus = "alert"
)

// Waypoint is one tracked location event along a shipment's path.
type Waypoint struct {
	Position  Coordinate `json:"position"`
	City      string     `json:"city,omitempty"`
	State     string     `json:"state,omitempty"`
	Postal    string     `json:"postal,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	EventType string     `json:"event_type,omitempty"`
}

// OrderContext is display-only order data attached to a journey.
type OrderContext struct {
	CustomerName    string  `json:"customer_name,omitempty"`
	CustomerEmail   string  `json:"customer_email,omitempty"`
	CustomerPhone   string  `json:"customer_phone,omitempty"`
	ShippingAddress string  `json:"shipping_address,omitempty"`
	OrderNumber     string  `json:"order_number,omitempty"`
	OrderTotal      float64 `json:"order_total,omitempty"`
	StoreName       string  `json:"store_name,omitempty"`
}

// ShipmentJourney is the tracked route of one shipment. Waypoints arrive in
// ascending timestamp order; nothing downstream re-sorts them.
type ShipmentJourney struct {
	TrackingID string         `json:"tracking_id"`
	Carrier    string         `json:"carrier,omitempty"`
	Status     ShipmentStatus `json:"status"`
	Waypoints  []Waypoint     `json:"waypoints"`
	Order      *OrderContext  `json:"order,omitempty"`
}

// Renderable reports whether the journey has enough waypoints to draw a path.
func (j ShipmentJourney) Renderable() bool {
	return len(j.Waypoints) >= 2
}

// Origin returns the first waypoint.
func (j ShipmentJourney) Origin() (Waypoint, bool) {
	if len(j.Waypoints) == 0 {
		return Waypoint{}, false
	}
	return j.Waypoints[0], true
}

// Destination returns the last waypoint.
func (j ShipmentJourney) Destination() (Waypoint, bool) {
	if len(j.Waypoints) == 0 {
		return Waypoint{}, false
	}
	return j.Waypoints[len(j.Waypoints)-1], true
}

// TransitDuration is the elapsed time between the first and last waypoint.
type TransitDuration struct {
	Hours float64 `json:"hours"`
	Days  int     `json:"days"`
}

// Transit computes the journey's transit duration. Days is floor(hours/24)
// once at least a full day has elapsed, zero otherwise.
func (j ShipmentJourney) Transit() TransitDuration {
	first, ok := j.Origin()
	if !ok {
		return TransitDuration{}
	}
	last, _ := j.Destination()
	if first.Timestamp.IsZero() || last.Timestamp.IsZero() {
		return TransitDuration{}
	}
	hours := last.Timestamp.Sub(first.Timestamp).Hours()
	if hours < 0 {
		hours = 0
	}
	d := TransitDuration{Hours: hours}
	if hours >= 24 {
		d.Days = int(math.Floor(hours / 24))
	}
	return d
}

// Label renders the duration for popups: "2 days", "5 hours", or "".
func (d TransitDuration) Label() string {
	switch {
	case d.Days == 1:
		return "1 day"
	case d.Days > 1:
		return fmt.Sprintf("%d days", d.Days)
	case d.Hours >= 1:
		h := int(math.Floor(d.Hours))
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	case d.Hours > 0:
		return "under 1 hour"
	}
	return ""
}
