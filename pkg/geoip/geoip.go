// Package geoip looks up the location of IP addresses in a MaxMind City
// database. A missing or unusable database degrades to Null, which finds
// nothing.
package geoip

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/oschwald/geoip2-golang"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geolocate/pkg/geocode"
)

// Radius policy, in meters.
const (
	// RegionRadius is used for regions the geocoder does not know.
	RegionRadius = 5000000.0
	// SubdivisionRadius caps lookups resolved to a state or province.
	SubdivisionRadius = 1000000.0
	// CityRadius caps lookups resolved to a city.
	CityRadius = 25000.0
)

// Scores of a lookup result.
const (
	CityScore   = 0.9
	RegionScore = 0.3
)

const noDatabaseAge = -1

// cityRadii overrides CityRadius for large metro areas, keyed by GeoNames id.
var cityRadii = map[int]float64{
	1850147: 50000, // Tokyo
	1816670: 40000, // Beijing
	1796236: 40000, // Shanghai
	2643743: 40000, // London
	524901:  40000, // Moscow
	5128581: 40000, // New York
	5368361: 40000, // Los Angeles
	3448439: 40000, // São Paulo
	1275339: 35000, // Mumbai
	2988507: 20000, // Paris
}

// ErrDegraded is matched by every *DegradedError.
var ErrDegraded = eris.New("geoip database degraded")

// DegradedError reports why a database could not be opened.
type DegradedError struct {
	Path   string
	Reason string
	Err    error
}

func (e *DegradedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("geoip: %s (%q)", e.Reason, e.Path)
	}
	return fmt.Sprintf("geoip: %s (%q): %v", e.Reason, e.Path, e.Err)
}

func (e *DegradedError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrDegraded) hold for any DegradedError.
func (e *DegradedError) Is(target error) bool { return target == ErrDegraded }

// Record is the result of a successful lookup.
type Record struct {
	Lat          float64
	Lon          float64
	Radius       float64
	RegionRadius float64
	RegionCode   string
	RegionName   string
	CityID       int
	City         bool
	Score        float64
}

// DB is an IP geolocation database.
type DB interface {
	// Lookup returns nil for invalid, private, loopback and unknown addresses.
	Lookup(ip string) *Record
	// Age is the database age in days, or -1 without a database.
	Age() int
	Close() error
}

type cityReader interface {
	City(ip net.IP) (*geoip2.City, error)
	Close() error
}

// Reader is a DB backed by a MaxMind City database.
type Reader struct {
	db       cityReader
	geocoder *geocode.Geocoder
	built    time.Time
}

// Open opens the City database at path. Failures are *DegradedError.
func Open(path string, geocoder *geocode.Geocoder) (*Reader, error) {
	if path == "" {
		return nil, &DegradedError{Path: path, Reason: "no database configured"}
	}
	if _, err := os.Stat(path); err != nil {
		return nil, &DegradedError{Path: path, Reason: "database file missing", Err: err}
	}
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, &DegradedError{Path: path, Reason: "database file invalid", Err: err}
	}
	meta := db.Metadata()
	if !strings.Contains(meta.DatabaseType, "City") {
		db.Close() //nolint:errcheck
		return nil, &DegradedError{Path: path, Reason: fmt.Sprintf("unsupported database type %q", meta.DatabaseType)}
	}
	return newReader(db, geocoder, time.Unix(int64(meta.BuildEpoch), 0)), nil
}

func newReader(db cityReader, geocoder *geocode.Geocoder, built time.Time) *Reader {
	return &Reader{db: db, geocoder: geocoder, built: built}
}

// OpenOrNull opens the database at path, logging a warning and returning
// Null when it is unusable.
func OpenOrNull(path string, geocoder *geocode.Geocoder) DB {
	r, err := Open(path, geocoder)
	if err != nil {
		zap.L().Warn("geoip: database unavailable, ip lookups disabled",
			zap.String("path", path),
			zap.Error(err),
		)
		return Null{}
	}
	return r
}

// Lookup implements DB.
func (r *Reader) Lookup(ip string) *Record {
	addr := parsePublicIP(ip)
	if addr == nil {
		return nil
	}
	city, err := r.db.City(addr)
	if err != nil {
		zap.L().Debug("geoip: lookup failed", zap.String("ip", ip), zap.Error(err))
		return nil
	}
	return r.record(city)
}

func (r *Reader) record(city *geoip2.City) *Record {
	code := strings.ToUpper(city.Country.IsoCode)
	if code == "" {
		return nil
	}
	rec := &Record{
		Lat:        city.Location.Latitude,
		Lon:        city.Location.Longitude,
		RegionCode: code,
		RegionName: city.Country.Names["en"],
		CityID:     int(city.City.GeoNameID),
		City:       city.City.GeoNameID != 0,
		Score:      RegionScore,
	}
	if rec.City {
		rec.Score = CityScore
	}
	if region, ok := r.region(code); ok && region.Name != "" {
		rec.RegionName = region.Name
	}
	if rec.RegionName == "" {
		rec.RegionName = code
	}
	rec.Radius, rec.RegionRadius = r.Radius(code, len(city.Subdivisions) > 0, rec.CityID)
	return rec
}

func (r *Reader) region(code string) (*geocode.Region, bool) {
	if r.geocoder == nil {
		return nil, false
	}
	return r.geocoder.RegionForCode(code)
}

// Radius returns the accuracy radius of a lookup and the radius of its
// region. Unknown regions use RegionRadius. A subdivision narrows the radius
// to SubdivisionRadius and a city to its city radius, never beyond the
// region radius.
func (r *Reader) Radius(code string, subdivision bool, cityID int) (radius, regionRadius float64) {
	regionRadius = RegionRadius
	if region, ok := r.region(code); ok {
		regionRadius = region.Radius()
	}
	radius = regionRadius
	if subdivision {
		radius = SubdivisionRadius
	}
	if cityID != 0 {
		radius = CityRadius
		if override, ok := cityRadii[cityID]; ok {
			radius = override
		}
	}
	return min(radius, regionRadius), regionRadius
}

// Age implements DB.
func (r *Reader) Age() int {
	if r.built.IsZero() {
		return noDatabaseAge
	}
	return int(time.Since(r.built).Hours() / 24)
}

// Close implements DB.
func (r *Reader) Close() error {
	return eris.Wrap(r.db.Close(), "geoip: close")
}

// Null is the DB used when no database is available.
type Null struct{}

// Lookup implements DB.
func (Null) Lookup(string) *Record { return nil }

// Age implements DB.
func (Null) Age() int { return noDatabaseAge }

// Close implements DB.
func (Null) Close() error { return nil }

func parsePublicIP(s string) net.IP {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsMulticast() {
		return nil
	}
	return ip
}
