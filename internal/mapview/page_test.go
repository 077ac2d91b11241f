package mapview

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/potamap/potamap/internal/render"
)

func TestNewPage_RejectsInvalidView(t *testing.T) {
	v := DefaultView()
	v.Zoom = -3
	_, err := NewPage(v, DefaultEndpoints)
	assert.ErrorIs(t, err, ErrInvalidView)
}

func TestPage_Render(t *testing.T) {
	p, err := NewPage(DefaultView(), DefaultEndpoints)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, p.Render(&buf, render.DefaultStyle))
	html := buf.String()

	assert.Contains(t, html, "<title>POTA Spots</title>")
	assert.Contains(t, html, "leaflet@1.9.4")
	assert.Contains(t, html, `"centerLat":37.8`)
	assert.Contains(t, html, `"zoom":4`)
	assert.Contains(t, html, `"zoomControl":false`)
	assert.Contains(t, html, `"attributionControl":false`)
	assert.Contains(t, html, `"south":24.396308`)
	assert.Contains(t, html, `"east":-66.885444`)
	assert.Contains(t, html, `"fillColor":"#FF0000"`)
	assert.Contains(t, html, `"markers":"/api/markers"`)
	assert.Contains(t, html, `"ws":"/ws"`)
	assert.Contains(t, html, "tile.openstreetmap.org")
}

func TestPage_RenderTwiceIsStable(t *testing.T) {
	p, err := NewPage(DefaultView(), DefaultEndpoints)
	require.NoError(t, err)

	var a, b bytes.Buffer
	require.NoError(t, p.Render(&a, render.DefaultStyle))
	require.NoError(t, p.Render(&b, render.DefaultStyle))
	assert.Equal(t, a.String(), b.String())
}

func TestPage_ReconnectResetsSequenceGuard(t *testing.T) {
	p, err := NewPage(DefaultView(), DefaultEndpoints)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, p.Render(&buf, render.DefaultStyle))
	html := buf.String()

	// the snapshot sent after a reconnect must never be ignored as older
	assert.Contains(t, html, "sock.onopen = function () { shownSeq = -1; };")
	assert.Contains(t, html, "set.seq < shownSeq")
	assert.Less(t, strings.Index(html, "sock.onopen"), strings.Index(html, "sock.onmessage"))
}
