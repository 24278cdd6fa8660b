package features

import (
	"encoding/json"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/canopyops/geoscene/internal/core/domain"
)

// Fingerprint hashes the content of a snapshot. Equal content gives equal
// fingerprints across processes, which makes it usable as a cache key.
func Fingerprint(v any) (uint64, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(data), nil
}

// PointsKey is the cache key for a category's built collection.
func PointsKey(cat domain.Category, points []domain.GeoPoint) (string, error) {
	h, err := Fingerprint(points)
	if err != nil {
		return "", err
	}
	return "features:points:" + string(cat) + ":" + strconv.FormatUint(h, 16), nil
}

// JourneysKey is the cache key for a built journey set.
func JourneysKey(journeys []domain.ShipmentJourney, opts JourneyOptions) (string, error) {
	h, err := Fingerprint(journeys)
	if err != nil {
		return "", err
	}
	return "features:journeys:" + strconv.Itoa(opts.ArcSegments) + ":" + strconv.FormatUint(h, 16), nil
}
