// Package mapview describes the initial map view and serves the map page.
package mapview

import (
	"errors"
	"fmt"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/potamap/potamap/internal/config"
	"github.com/potamap/potamap/internal/geo"
)

// ErrInvalidView is wrapped by every Validate failure.
var ErrInvalidView = errors.New("invalid map view")

// View is the map state the page starts from.
type View struct {
	CenterLat float64 `json:"centerLat"`
	CenterLon float64 `json:"centerLon"`
	Zoom      int     `json:"zoom"`

	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`

	TileURL            string `json:"tileUrl"`
	ZoomControl        bool   `json:"zoomControl"`
	AttributionControl bool   `json:"attributionControl"`
}

// DefaultView covers the contiguous United States.
func DefaultView() View {
	return View{
		CenterLat: 37.8,
		CenterLon: -96,
		Zoom:      4,
		South:     24.396308,
		West:      -124.848974,
		North:     49.384358,
		East:      -66.885444,
		TileURL:   config.DefaultTileURL,
	}
}

// FromConfig builds a View from the map settings. Controls stay disabled.
func FromConfig(c config.MapConfig) View {
	return View{
		CenterLat: c.CenterLat,
		CenterLon: c.CenterLon,
		Zoom:      c.Zoom,
		South:     c.South,
		West:      c.West,
		North:     c.North,
		East:      c.East,
		TileURL:   c.TileURL,
	}
}

// Validate checks the center, bounds, zoom and tile URL.
func (v View) Validate() error {
	if !geo.ValidLatLon(v.CenterLat, v.CenterLon) {
		return fmt.Errorf("%w: center (%g, %g) out of range", ErrInvalidView, v.CenterLat, v.CenterLon)
	}
	if !geo.ValidLatLon(v.South, v.West) || !geo.ValidLatLon(v.North, v.East) {
		return fmt.Errorf("%w: bounds out of range", ErrInvalidView)
	}
	if v.South >= v.North || v.West >= v.East {
		return fmt.Errorf("%w: bounds SW (%g, %g) NE (%g, %g) are inverted or empty",
			ErrInvalidView, v.South, v.West, v.North, v.East)
	}
	if v.Zoom < 0 {
		return fmt.Errorf("%w: negative zoom %d", ErrInvalidView, v.Zoom)
	}
	if strings.TrimSpace(v.TileURL) == "" {
		return fmt.Errorf("%w: empty tile URL", ErrInvalidView)
	}
	return nil
}

// Envelope returns the bounds in EPSG:4326 (X = longitude).
func (v View) Envelope() geom.Envelope {
	return geom.Envelope{}.
		ExpandToIncludeXY(geom.XY{X: v.West, Y: v.South}).
		ExpandToIncludeXY(geom.XY{X: v.East, Y: v.North})
}

// Contains reports whether the coordinate lies inside the bounds.
func (v View) Contains(lat, lon float64) bool {
	return v.Envelope().Contains(geom.XY{X: lon, Y: lat})
}
