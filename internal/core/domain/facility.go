package domain

// Facility is a fixed reference location (cultivation site, lab, distribution
// hub). It is static configuration, never user data.
type Facility struct {
	ID       string     `json:"id" mapstructure:"id"`
	Name     string     `json:"name" mapstructure:"name"`
	Kind     string     `json:"kind" mapstructure:"kind"`
	City     string     `json:"city,omitempty" mapstructure:"city"`
	State    string     `json:"state,omitempty" mapstructure:"state"`
	Position Coordinate `json:"position" mapstructure:"position"`
}
