// pkg/core/marker.go
package core

import "time"

// MarkerStyle is the visual styling of a circular point marker.
type MarkerStyle struct {
	Radius      int     `json:"radius"`
	FillColor   string  `json:"fillColor"`
	Color       string  `json:"color"`
	Weight      int     `json:"weight"`
	Opacity     float64 `json:"opacity"`
	FillOpacity float64 `json:"fillOpacity"`
}

// Marker is one rendered spot joined to its park.
type Marker struct {
	Reference string      `json:"reference"`
	Lat       float64     `json:"lat"`
	Lon       float64     `json:"lon"`
	Style     MarkerStyle `json:"style"`
	Popup     string      `json:"popup"`

	ParkName  string `json:"parkName"`
	Activator string `json:"activator"`
	Frequency string `json:"frequency"`
	Mode      string `json:"mode"`
	Time      string `json:"time"`
	Comments  string `json:"comments"`
}

// MarkerSet is the complete collection of markers produced by one refresh cycle.
// A set is never patched; each successful cycle replaces it wholesale.
type MarkerSet struct {
	Seq         uint64    `json:"seq"`
	GeneratedAt time.Time `json:"generatedAt"`
	Markers     []Marker  `json:"markers"`
}

// Len returns the number of markers in the set.
func (s MarkerSet) Len() int {
	return len(s.Markers)
}
