// pkg/core/spot.go
package core

import "time"

// Spot is a time-stamped report of activity at a park, taken from the live feed.
// Spots are transient and live for a single refresh cycle.
type Spot struct {
	SpotID    int64     `json:"spotId,omitempty"`
	Reference string    `json:"reference"`
	Activator string    `json:"activator"`
	Frequency string    `json:"frequency"`
	Mode      string    `json:"mode"`
	SpotTime  time.Time `json:"spotTime"` // zero when absent or unparsable
	Comments  string    `json:"comments,omitempty"`
}
