package domain

// LayerGroup names one logical data category on the map.
type LayerGroup string

const (
	GroupCustomers  LayerGroup = "customers"
	GroupShipping   LayerGroup = "shipping"
	GroupStores     LayerGroup = "stores"
	GroupTraffic    LayerGroup = "traffic"
	GroupFacilities LayerGroup = "facilities"
	GroupJourneys   LayerGroup = "journeys"
)

// LayerGroups lists every toggleable group.
var LayerGroups = []LayerGroup{GroupCustomers, GroupShipping, GroupStores, GroupTraffic, GroupFacilities, GroupJourneys}

// Valid reports whether g is a known layer group.
func (g LayerGroup) Valid() bool {
	for _, known := range LayerGroups {
		if g == known {
			return true
		}
	}
	return false
}

// GroupForCategory maps a point category to the layer group that renders it.
func GroupForCategory(c Category) LayerGroup {
	switch c {
	case CategoryCustomer:
		return GroupCustomers
	case CategoryShipping:
		return GroupShipping
	case CategoryStore:
		return GroupStores
	case CategoryTraffic:
		return GroupTraffic
	}
	return ""
}

// LayerVisibilityState maps a layer group to whether it is shown. It is owned
// by the embedding UI; the scene only reacts to it.
type LayerVisibilityState map[LayerGroup]bool

// Clone returns an independent copy.
func (s LayerVisibilityState) Clone() LayerVisibilityState {
	out := make(LayerVisibilityState, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// AllVisible returns a state with every group switched on.
func AllVisible() LayerVisibilityState {
	s := make(LayerVisibilityState, len(LayerGroups))
	for _, g := range LayerGroups {
		s[g] = true
	}
	return s
}
