// Package geo provides pure geodesic math on WGS84 coordinates.
// All functions are total over well-formed numeric input: degenerate
// coordinates (including the 0,0 no-fix sentinel) produce degenerate but
// valid results, never errors.
package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// EarthRadiusMeters is the mean Earth radius used for great-circle distances.
const EarthRadiusMeters = 6371000.0

// ErrInvalidCoordinate is returned when a coordinate string cannot be parsed.
var ErrInvalidCoordinate = errors.New("invalid coordinate provided")

// Coordinate is a WGS84 position in decimal degrees. Value type, passed by
// value, never mutated.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Sentinel is the coordinate substituted while no geolocation fix is
// available. It is treated as a normal, if degenerate, input.
var Sentinel = Coordinate{}

// ParseCoordinate parses a "lat,lon" string into a Coordinate. Latitude
// must be within [-90, 90] and longitude within [-180, 180].
func ParseCoordinate(s string) (Coordinate, error) {
	parts := strings.Split(s, ",")
	if len(parts) < 2 {
		return Coordinate{}, ErrInvalidCoordinate
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coordinate{}, ErrInvalidCoordinate
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coordinate{}, ErrInvalidCoordinate
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Coordinate{}, ErrInvalidCoordinate
	}
	return Coordinate{Lat: lat, Lon: lon}, nil
}

// Distance returns the haversine great-circle distance between a and b in
// meters. Symmetric; Distance(a, a) == 0.
func Distance(a, b Coordinate) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	rLat1 := radians(a.Lat)
	rLat2 := radians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// Bearing returns the initial compass bearing from a to b in degrees,
// normalized to [0, 360). 0 is true north, increasing clockwise.
func Bearing(a, b Coordinate) float64 {
	rLat1 := radians(a.Lat)
	rLat2 := radians(b.Lat)
	dLon := radians(b.Lon - a.Lon)

	y := math.Sin(dLon) * math.Cos(rLat2)
	x := math.Cos(rLat1)*math.Sin(rLat2) -
		math.Sin(rLat1)*math.Cos(rLat2)*math.Cos(dLon)

	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// WebMercator converts a WGS84 coordinate (EPSG:4326) to a planar
// EPSG:3857 point for the radar map view and for storage, which keys
// positions as planar geometry the same way during migrations.
func WebMercator(c Coordinate) geom.Point {
	f := wgs84.EPSG().Transform(4326, 3857)
	x, y, _ := f(c.Lon, c.Lat, 0)
	point, err := geom.NewPoint(geom.Coordinates{
		XY: geom.XY{X: x, Y: y},
	})
	if err != nil {
		// Non-finite projection output. Degenerate but valid, per the
		// package contract.
		return geom.NewEmptyPoint(geom.DimXY)
	}
	return point
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
