package feed

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/potamap/potamap/internal/geo"
	"github.com/potamap/potamap/pkg/core"
)

// text accepts a JSON string, number, bool or null and keeps its textual form.
// The upstream feeds are not consistent about quoting numeric fields.
// Fractional numbers are written in their shortest form, so 14074.0 reads
// as "14074"; integer tokens are kept digit for digit.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = text(s)
		return nil
	}
	*t = text(normalizeNumber(b))
	return nil
}

func normalizeNumber(b []byte) string {
	if !bytes.ContainsAny(b, ".eE") {
		return string(b)
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil || math.IsInf(v, 0) {
		return string(b)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type parkRecord struct {
	Reference    text `json:"reference"`
	Name         text `json:"name"`
	Latitude     text `json:"latitude"`
	Longitude    text `json:"longitude"`
	LocationDesc text `json:"locationDesc"`
}

func (r parkRecord) toPark() core.Park {
	return core.Park{
		Reference:    string(r.Reference),
		Name:         string(r.Name),
		Latitude:     degrees(string(r.Latitude)),
		Longitude:    degrees(string(r.Longitude)),
		LocationDesc: string(r.LocationDesc),
	}
}

// degrees returns nil for anything that is not a finite number.
func degrees(s string) *float64 {
	v, err := geo.ParseDegrees(s)
	if err != nil {
		return nil
	}
	return &v
}

type spotRecord struct {
	SpotID    text `json:"spotId"`
	Reference text `json:"reference"`
	Activator text `json:"activator"`
	Frequency text `json:"frequency"`
	Mode      text `json:"mode"`
	SpotTime  text `json:"spotTime"`
	Comments  text `json:"comments"`
}

func (r spotRecord) toSpot() core.Spot {
	id, _ := strconv.ParseInt(string(r.SpotID), 10, 64)
	return core.Spot{
		SpotID:    id,
		Reference: string(r.Reference),
		Activator: string(r.Activator),
		Frequency: string(r.Frequency),
		Mode:      string(r.Mode),
		SpotTime:  ParseSpotTime(string(r.SpotTime)),
		Comments:  string(r.Comments),
	}
}

var spotTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Epoch milliseconds outside years 1..9999 are rejected.
var (
	minSpotMillis = float64(time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli())
	maxSpotMillis = float64(time.Date(9999, 12, 31, 23, 59, 59, 999e6, time.UTC).UnixMilli())
)

// ParseSpotTime accepts epoch milliseconds or an ISO-8601 timestamp.
// Timestamps without a zone are UTC. Unparsable input, and numbers that are
// not finite or fall outside years 1..9999, yield the zero time.
func ParseSpotTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if ms, err := strconv.ParseFloat(s, 64); err == nil || math.IsInf(ms, 0) {
		if math.IsNaN(ms) || ms < minSpotMillis || ms > maxSpotMillis {
			return time.Time{}
		}
		return time.UnixMilli(int64(ms)).UTC()
	}
	for _, layout := range spotTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
