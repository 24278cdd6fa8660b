package domain

import "time"

// SceneSummary describes one applied refresh.
type SceneSummary struct {
	RefreshedAt    time.Time      `json:"refreshed_at"`
	FeatureCounts  map[string]int `json:"feature_counts"`
	JourneyCount   int            `json:"journey_count"`
	RebuiltSources []string       `json:"rebuilt_sources,omitempty"`
	Duration       time.Duration  `json:"duration"`
}
