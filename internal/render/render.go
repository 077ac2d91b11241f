// Package render joins spots to the park catalog and builds map markers.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/potamap/potamap/pkg/core"
)

// Placeholder substitutes missing popup values.
const Placeholder = "N/A"

// TimeLayout is the popup time-of-day format.
const TimeLayout = "3:04:05 PM"

// DefaultStyle is the styling applied to every spot marker.
var DefaultStyle = core.MarkerStyle{
	Radius:      10,
	FillColor:   "#FF0000",
	Color:       "#FFFFFF",
	Weight:      2,
	Opacity:     1,
	FillOpacity: 0.9,
}

var popupTemplate = template.Must(template.New("popup").Parse(
	`<strong>{{.ParkName}}</strong><br>` +
		`Activator: {{.Activator}}<br>` +
		`Frequency: {{.Frequency}} kHz<br>` +
		`Mode: {{.Mode}}<br>` +
		`Time: {{.Time}}<br>` +
		`Comments: {{.Comments}}`,
))

// Lookup resolves a park reference.
type Lookup interface {
	Get(reference string) (core.Park, bool)
}

// Joined is a spot matched to a park with a usable position.
type Joined struct {
	Spot core.Spot
	Park core.Park
}

// Filter keeps the spots whose reference resolves to a park with both
// coordinates present and finite. Everything else is dropped silently.
func Filter(spots []core.Spot, parks Lookup) []Joined {
	out := make([]Joined, 0, len(spots))
	for _, s := range spots {
		p, ok := parks.Get(s.Reference)
		if !ok || !p.HasPosition() {
			continue
		}
		out = append(out, Joined{Spot: s, Park: p})
	}
	return out
}

// Renderer builds markers with a fixed style and a popup per spot.
type Renderer struct {
	loc   *time.Location
	style core.MarkerStyle
}

// New creates a Renderer that formats popup times in loc.
// A nil loc means time.Local.
func New(loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.Local
	}
	return &Renderer{loc: loc, style: DefaultStyle}
}

// Render builds the full marker list for one refresh cycle.
func (r *Renderer) Render(spots []core.Spot, parks Lookup) ([]core.Marker, error) {
	joined := Filter(spots, parks)
	markers := make([]core.Marker, 0, len(joined))
	for _, j := range joined {
		m, err := r.marker(j)
		if err != nil {
			return nil, err
		}
		markers = append(markers, m)
	}
	return markers, nil
}

func (r *Renderer) marker(j Joined) (core.Marker, error) {
	lat, lon := j.Park.Position()
	m := core.Marker{
		Reference: j.Spot.Reference,
		Lat:       lat,
		Lon:       lon,
		Style:     r.style,
		ParkName:  j.Park.Name,
		Activator: j.Spot.Activator,
		Frequency: j.Spot.Frequency,
		Mode:      j.Spot.Mode,
		Time:      r.FormatTime(j.Spot.SpotTime),
		Comments:  orPlaceholder(j.Spot.Comments),
	}

	var buf bytes.Buffer
	if err := popupTemplate.Execute(&buf, m); err != nil {
		return core.Marker{}, fmt.Errorf("render popup for %s: %w", j.Spot.Reference, err)
	}
	m.Popup = buf.String()
	return m, nil
}

// FormatTime renders the local time of day, or the placeholder for a zero time.
func (r *Renderer) FormatTime(t time.Time) string {
	if t.IsZero() {
		return Placeholder
	}
	return t.In(r.loc).Format(TimeLayout)
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}
