package render

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/potamap/potamap/pkg/core"
)

type mapLookup map[string]core.Park

func (m mapLookup) Get(ref string) (core.Park, bool) {
	p, ok := m[ref]
	return p, ok
}

func ptr(v float64) *float64 { return &v }

func rockyMtn() core.Park {
	return core.Park{Reference: "K-0001", Name: "Rocky Mtn", Latitude: ptr(40.0), Longitude: ptr(-105.0)}
}

func spot(ref string) core.Spot {
	return core.Spot{
		Reference: ref,
		Activator: "W1AW",
		Frequency: "14074",
		Mode:      "FT8",
		SpotTime:  time.Date(2024, 5, 1, 18, 22, 10, 0, time.UTC),
		Comments:  "QRV",
	}
}

func TestRender_RoundTrip(t *testing.T) {
	r := New(time.UTC)

	markers, err := r.Render([]core.Spot{spot("K-0001")}, mapLookup{"K-0001": rockyMtn()})
	require.NoError(t, err)
	require.Len(t, markers, 1)

	m := markers[0]
	assert.Equal(t, 40.0, m.Lat)
	assert.Equal(t, -105.0, m.Lon)
	assert.Equal(t, "K-0001", m.Reference)
	assert.Contains(t, m.Popup, "Rocky Mtn")
	assert.Contains(t, m.Popup, "<strong>Rocky Mtn</strong>")
	assert.Contains(t, m.Popup, "Activator: W1AW")
	assert.Contains(t, m.Popup, "Frequency: 14074 kHz")
	assert.Contains(t, m.Popup, "Mode: FT8")
	assert.Contains(t, m.Popup, "Time: 6:22:10 PM")
	assert.Contains(t, m.Popup, "Comments: QRV")
	assert.Equal(t, DefaultStyle, m.Style)
}

func TestRender_UnknownReferenceSkipped(t *testing.T) {
	r := New(time.UTC)

	markers, err := r.Render([]core.Spot{spot("K-9999"), spot("K-0001")}, mapLookup{"K-0001": rockyMtn()})
	require.NoError(t, err)
	require.Len(t, markers, 1)
	assert.Equal(t, "K-0001", markers[0].Reference)
}

func TestRender_IncompleteCoordinatesSkipped(t *testing.T) {
	parks := mapLookup{
		"K-0010": {Reference: "K-0010", Name: "no lat", Longitude: ptr(-100)},
		"K-0011": {Reference: "K-0011", Name: "no lon", Latitude: ptr(40)},
		"K-0012": {Reference: "K-0012", Name: "nan", Latitude: ptr(math.NaN()), Longitude: ptr(-100)},
		"K-0013": {Reference: "K-0013", Name: "inf", Latitude: ptr(40), Longitude: ptr(math.Inf(1))},
	}
	spots := []core.Spot{spot("K-0010"), spot("K-0011"), spot("K-0012"), spot("K-0013")}

	markers, err := New(time.UTC).Render(spots, parks)
	require.NoError(t, err)
	assert.Empty(t, markers)
}

func TestRender_ZeroCoordinateKept(t *testing.T) {
	parks := mapLookup{"K-0020": {Reference: "K-0020", Name: "Null Island", Latitude: ptr(0), Longitude: ptr(0)}}

	markers, err := New(time.UTC).Render([]core.Spot{spot("K-0020")}, parks)
	require.NoError(t, err)
	assert.Len(t, markers, 1)
}

func TestRender_MissingCommentsUsesPlaceholder(t *testing.T) {
	s := spot("K-0001")
	s.Comments = ""

	markers, err := New(time.UTC).Render([]core.Spot{s}, mapLookup{"K-0001": rockyMtn()})
	require.NoError(t, err)
	require.Len(t, markers, 1)
	assert.Contains(t, markers[0].Popup, "N/A")
	assert.Equal(t, Placeholder, markers[0].Comments)
}

func TestRender_BlankCommentsKeptAsIs(t *testing.T) {
	s := spot("K-0001")
	s.Comments = "   "

	markers, err := New(time.UTC).Render([]core.Spot{s}, mapLookup{"K-0001": rockyMtn()})
	require.NoError(t, err)
	require.Len(t, markers, 1)
	assert.Equal(t, "   ", markers[0].Comments)
	assert.NotContains(t, markers[0].Popup, "Comments: N/A")
}

func TestRender_PopupIsEscaped(t *testing.T) {
	s := spot("K-0001")
	s.Comments = `<script>alert("x")</script>`

	markers, err := New(time.UTC).Render([]core.Spot{s}, mapLookup{"K-0001": rockyMtn()})
	require.NoError(t, err)
	require.Len(t, markers, 1)
	assert.NotContains(t, markers[0].Popup, "<script>")
	assert.Contains(t, markers[0].Popup, "&lt;script&gt;")
}

func TestRender_MultipleSpotsSamePark(t *testing.T) {
	a, b := spot("K-0001"), spot("K-0001")
	b.Activator = "K1ABC"

	markers, err := New(time.UTC).Render([]core.Spot{a, b}, mapLookup{"K-0001": rockyMtn()})
	require.NoError(t, err)
	assert.Len(t, markers, 2)
}

func TestRender_Empty(t *testing.T) {
	markers, err := New(nil).Render(nil, mapLookup{})
	require.NoError(t, err)
	assert.NotNil(t, markers)
	assert.Empty(t, markers)
}

func TestFormatTime(t *testing.T) {
	denver, err := time.LoadLocation("America/Denver")
	require.NoError(t, err)

	ts := time.Date(2024, 5, 1, 18, 22, 10, 0, time.UTC)
	assert.Equal(t, "6:22:10 PM", New(time.UTC).FormatTime(ts))
	assert.Equal(t, "12:22:10 PM", New(denver).FormatTime(ts))
	assert.Equal(t, Placeholder, New(time.UTC).FormatTime(time.Time{}))
}

func TestFilter(t *testing.T) {
	parks := mapLookup{
		"K-0001": rockyMtn(),
		"K-0002": {Reference: "K-0002", Name: "no coords"},
	}

	joined := Filter([]core.Spot{spot("K-0001"), spot("K-0002"), spot("K-0003")}, parks)
	require.Len(t, joined, 1)
	assert.Equal(t, "Rocky Mtn", joined[0].Park.Name)
	assert.Equal(t, "W1AW", joined[0].Spot.Activator)
}
