package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// Points are always built in EPSG:4326 with X = longitude and Y = latitude,
// the axis order GeoJSON expects. Projection to EPSG:3857 is only done on request.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// ParseDegrees parses a decimal-degree value such as "40.3428".
// Surrounding whitespace is ignored. NaN and infinities are rejected.
func ParseDegrees(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, ErrInvalidCoordinates
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidCoordinates
	}
	return v, nil
}

// ValidLatLon reports whether lat/lon lie within the WGS84 range.
func ValidLatLon(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Point4326 creates a 2D point from a latitude and longitude.
func Point4326(lat, lon float64) geom.Point {
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: lon, Y: lat},
		Type: geom.DimXY,
	})
}

// Point3857 projects a latitude/longitude to Web Mercator.
func Point3857(lat, lon float64) geom.Point {
	x, y := To3857(lat, lon)
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: x, Y: y},
		Type: geom.DimXY,
	})
}

// To3857 converts EPSG:4326 degrees to EPSG:3857 metres.
func To3857(lat, lon float64) (x, y float64) {
	f := wgs84.EPSG().Transform(4326, 3857)
	x, y, _ = f(lon, lat, 0)
	return x, y
}
