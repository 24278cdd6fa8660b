// Package geoip resolves visitor IP addresses to approximate city positions
// from a MaxMind-format database (GeoLite2-City, ipinfo lite).
package geoip

import (
	"fmt"
	"net"
	"net/netip"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/oschwald/maxminddb-golang"

	"github.com/canopyops/geoscene/internal/core/domain"
)

// record is the subset of a City database entry the resolver reads.
type record struct {
	City struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"city"`
	Location struct {
		Latitude  float64 `maxminddb:"latitude"`
		Longitude float64 `maxminddb:"longitude"`
	} `maxminddb:"location"`
}

type reader interface {
	Lookup(ip net.IP, result any) error
	Close() error
}

type result struct {
	loc  domain.Coordinate
	city string
	ok   bool
}

// Resolver implements ports.GeoResolver. Lookups are memoised per address.
type Resolver struct {
	db    reader
	cache *lru.Cache[netip.Addr, result]
}

// Open loads the database at path.
func Open(path string) (*Resolver, error) {
	db, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip db: %w", err)
	}
	return newResolver(db), nil
}

func newResolver(db reader) *Resolver {
	cache, _ := lru.New[netip.Addr, result](4096)
	return &Resolver{db: db, cache: cache}
}

// Lookup returns the position and English city name for addr. Private,
// loopback and unspecified addresses never resolve.
func (r *Resolver) Lookup(addr netip.Addr) (domain.Coordinate, string, bool) {
	if !addr.IsValid() || addr.IsPrivate() || addr.IsLoopback() || addr.IsUnspecified() {
		return domain.Coordinate{}, "", false
	}
	addr = addr.Unmap()
	if res, ok := r.cache.Get(addr); ok {
		return res.loc, res.city, res.ok
	}

	var rec record
	res := result{}
	if err := r.db.Lookup(net.IP(addr.AsSlice()), &rec); err == nil {
		loc := domain.Coordinate{Lat: rec.Location.Latitude, Lon: rec.Location.Longitude}
		if !loc.IsZero() && loc.Valid() {
			res = result{loc: loc, city: rec.City.Names["en"], ok: true}
		}
	}
	r.cache.Add(addr, res)
	return res.loc, res.city, res.ok
}

// Close releases the database.
func (r *Resolver) Close() error {
	return r.db.Close()
}
