// pkg/core/park.go
package core

import "math"

// Park is a reference catalog entry describing a named point of interest.
// Latitude and Longitude are nil when the feed carried no usable value.
type Park struct {
	Reference    string   `json:"reference"`
	Name         string   `json:"name"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	LocationDesc string   `json:"locationDesc"`
}

// HasPosition reports whether both coordinates are present and finite.
func (p Park) HasPosition() bool {
	return finite(p.Latitude) && finite(p.Longitude)
}

// Position returns the park coordinates. Only meaningful when HasPosition is true.
func (p Park) Position() (lat, lon float64) {
	if !p.HasPosition() {
		return 0, 0
	}
	return *p.Latitude, *p.Longitude
}

func finite(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}
