package telemetry

// Span and attribute names used for instrumentation.
const (
	SpanSnapshotRefresh = "snapshot.refresh"
	SpanSnapshotFetch   = "snapshot.fetch"
	SpanSnapshotBuild   = "snapshot.build"
	SpanSceneApply      = "scene.apply"

	AttrTrigger      = "geoscene.trigger"
	AttrSource       = "geoscene.source"
	AttrFeatureCount = "geoscene.feature_count"
	AttrJourneyCount = "geoscene.journey_count"
	AttrCacheResult  = "geoscene.cache_result"
)
