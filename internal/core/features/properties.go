// Package features turns domain snapshots into GeoJSON feature collections.
// Every feature it emits carries the complete property set for its kind, with
// missing values defaulted, so nothing downstream branches on absent keys.
package features

// Point feature properties.
const (
	PropID            = "id"
	PropName          = "name"
	PropCategory      = "category"
	PropCity          = "city"
	PropState         = "state"
	PropRevenue       = "revenue"
	PropOrderCount    = "orderCount"
	PropCustomerCount = "customerCount"
	PropVisitors      = "visitors"
	PropIntensity     = "intensity"
	PropIsPrecise     = "isPrecise"
	PropGeoPrecision  = "geoPrecision"

	PropChannel  = "channel"
	PropSource   = "source"
	PropCampaign = "campaign"
	PropReferrer = "referrer"

	PropPageViews      = "pageViews"
	PropProductViews   = "productViews"
	PropCartAdds       = "cartAdds"
	PropPurchases      = "purchases"
	PropSessionRevenue = "sessionRevenue"
)

// Journey feature properties (shared by segments and waypoints).
const (
	PropTrackingID      = "trackingId"
	PropStatus          = "status"
	PropCarrier         = "carrier"
	PropColor           = "color"
	PropTransitHours    = "transitHours"
	PropTransitDays     = "transitDays"
	PropTransitLabel    = "transitLabel"
	PropCustomerName    = "customerName"
	PropCustomerEmail   = "customerEmail"
	PropCustomerPhone   = "customerPhone"
	PropShippingAddress = "shippingAddress"
	PropOrderNumber     = "orderNumber"
	PropOrderTotal      = "orderTotal"
	PropStoreName       = "storeName"
	PropOriginCity      = "originCity"
	PropDestinationCity = "destinationCity"

	PropSegmentIndex = "segmentIndex"
	PropFromCity     = "fromCity"
	PropToCity       = "toCity"
	PropDistanceKm   = "distanceKm"

	PropIsOrigin      = "isOrigin"
	PropIsDestination = "isDestination"
	PropStopNumber    = "stopNumber"
	PropTotalStops    = "totalStops"
	PropPostal        = "postal"
	PropEventType     = "eventType"
	PropTimestamp     = "timestamp"
)

// Facility feature properties.
const (
	PropKind = "kind"
)
