package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/potamap/potamap/internal/catalog"
	"github.com/potamap/potamap/internal/hub"
	"github.com/potamap/potamap/internal/mapview"
	"github.com/potamap/potamap/internal/markers"
	"github.com/potamap/potamap/internal/render"
	"github.com/potamap/potamap/pkg/core"
	"github.com/potamap/potamap/pkg/streaming"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func ptr(v float64) *float64 { return &v }

type fixture struct {
	store   *markers.Store
	catalog *catalog.Catalog
	hub     *hub.Hub
	router  *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	page, err := mapview.NewPage(mapview.DefaultView(), mapview.DefaultEndpoints)
	require.NoError(t, err)

	f := &fixture{store: markers.NewStore(), catalog: catalog.New()}
	f.hub, err = hub.New(logger, f.store.Current)
	require.NoError(t, err)
	t.Cleanup(f.hub.Close)
	f.store.Subscribe(f.hub.PublishMarkers)

	f.router = NewRouter(Dependencies{
		Page:    page,
		Style:   render.DefaultStyle,
		Store:   f.store,
		Catalog: f.catalog,
		Hub:     f.hub,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "# metrics\n")
		}),
		Logger: logger,
	})
	return f
}

func (f *fixture) populate(t *testing.T) {
	t.Helper()
	f.catalog.Load([]core.Park{{Reference: "K-0001", Name: "Rocky Mtn", Latitude: ptr(40), Longitude: ptr(-105)}})
	rendered, err := render.New(time.UTC).Render([]core.Spot{{
		Reference: "K-0001", Activator: "W1AW", Frequency: "14074", Mode: "FT8",
		SpotTime: time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC),
	}}, f.catalog)
	require.NoError(t, err)
	_, err = f.store.Apply(f.store.Next(), rendered)
	require.NoError(t, err)
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestIndex(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "leaflet")
}

func TestMarkers_EmptyInitially(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/markers")
	require.Equal(t, http.StatusOK, rec.Code)

	var set core.MarkerSet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &set))
	assert.Equal(t, uint64(0), set.Seq)
	assert.Empty(t, set.Markers)
	assert.Contains(t, rec.Body.String(), `"markers":[]`)
}

func TestMarkers_Populated(t *testing.T) {
	f := newFixture(t)
	f.populate(t)

	rec := f.get(t, "/api/markers")
	require.Equal(t, http.StatusOK, rec.Code)

	var set core.MarkerSet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &set))
	require.Len(t, set.Markers, 1)
	assert.Equal(t, 40.0, set.Markers[0].Lat)
	assert.Equal(t, -105.0, set.Markers[0].Lon)
	assert.Contains(t, set.Markers[0].Popup, "Rocky Mtn")
}

func TestMarkersGeoJSON(t *testing.T) {
	f := newFixture(t)
	f.populate(t)

	rec := f.get(t, "/api/markers.geojson")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "1", rec.Header().Get("X-Marker-Seq"))

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "Point", fc.Features[0].Geometry.Type)
	assert.Equal(t, []float64{-105, 40}, fc.Features[0].Geometry.Coordinates)
	assert.Equal(t, "Rocky Mtn", fc.Features[0].Properties["parkName"])
	assert.Equal(t, true, fc.Features[0].Properties["inView"])
}

func TestMarkersGeoJSON_WebMercator(t *testing.T) {
	f := newFixture(t)
	f.populate(t)

	rec := f.get(t, "/api/markers.geojson?crs=3857")
	require.Equal(t, http.StatusOK, rec.Code)

	var fc struct {
		Features []struct {
			Geometry struct {
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))
	require.Len(t, fc.Features, 1)
	xy := fc.Features[0].Geometry.Coordinates
	require.Len(t, xy, 2)
	assert.InDelta(t, -11688546.5, xy[0], 1)
	assert.InDelta(t, 4865942.3, xy[1], 1)
}

func TestMarkersGeoJSON_BadCRS(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/markers.geojson?crs=27700")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarkersGeoJSON_Empty(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/markers.geojson")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"FeatureCollection"`)
}

func TestPark(t *testing.T) {
	f := newFixture(t)
	f.populate(t)

	rec := f.get(t, "/api/parks/K-0001")
	require.Equal(t, http.StatusOK, rec.Code)
	var p core.Park
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "Rocky Mtn", p.Name)

	rec = f.get(t, "/api/parks/K-9999")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthcheck(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/healthcheck")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	f.populate(t)
	rec = f.get(t, "/healthcheck")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"markers":1`)
	assert.Contains(t, rec.Body.String(), `"dispatched":1`)
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# metrics")
}

func TestWebSocket_PushesSnapshotAndUpdates(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	conn, _, err := ws.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() core.MarkerSet {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		set, err := streaming.DecodeMarkers(data)
		require.NoError(t, err)
		return set
	}

	snap := read()
	assert.Equal(t, uint64(0), snap.Seq)

	f.populate(t)
	update := read()
	assert.Equal(t, uint64(1), update.Seq)
	require.Len(t, update.Markers, 1)
	assert.Equal(t, "K-0001", update.Markers[0].Reference)
}

func TestMarkersGeoJSON_ViewFilter(t *testing.T) {
	f := newFixture(t)
	f.catalog.Load([]core.Park{
		{Reference: "K-0001", Name: "Rocky Mtn", Latitude: ptr(40), Longitude: ptr(-105)},
		{Reference: "K-0002", Name: "Denali", Latitude: ptr(63.3), Longitude: ptr(-150.5)},
	})
	rendered, err := render.New(time.UTC).Render([]core.Spot{
		{Reference: "K-0001", Activator: "W1AW"},
		{Reference: "K-0002", Activator: "KL7AA"},
	}, f.catalog)
	require.NoError(t, err)
	_, err = f.store.Apply(f.store.Next(), rendered)
	require.NoError(t, err)

	type collection struct {
		Features []struct {
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}

	var all collection
	rec := f.get(t, "/api/markers.geojson")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	require.Len(t, all.Features, 2)
	assert.Equal(t, false, all.Features[1].Properties["inView"])

	var inView collection
	rec = f.get(t, "/api/markers.geojson?view=1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inView))
	require.Len(t, inView.Features, 1)
	assert.Equal(t, "K-0001", inView.Features[0].Properties["reference"])
}
