// Package server exposes the map page and the current marker set over HTTP.
package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/potamap/potamap/internal/catalog"
	"github.com/potamap/potamap/internal/geo"
	"github.com/potamap/potamap/internal/mapview"
	"github.com/potamap/potamap/internal/markers"
	"github.com/potamap/potamap/pkg/core"
)

// Dependencies groups the components served by the router.
// Hub and Metrics are optional.
type Dependencies struct {
	Page    *mapview.Page
	Style   core.MarkerStyle
	Store   *markers.Store
	Catalog *catalog.Catalog
	Hub     http.Handler
	Metrics http.Handler
	Logger  *slog.Logger
}

type server struct {
	Dependencies
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Dependencies) *gin.Engine {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	s := &server{Dependencies: d}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(d.Logger))

	router.GET("/", s.index)
	router.GET("/api/markers", s.markers)
	router.GET("/api/markers.geojson", s.markersGeoJSON)
	router.GET("/api/parks/:reference", s.park)
	router.GET("/healthcheck", s.healthcheck)
	if d.Hub != nil {
		router.GET(mapview.DefaultEndpoints.WebSocket, gin.WrapH(d.Hub))
	}
	if d.Metrics != nil {
		router.GET("/metrics", gin.WrapH(d.Metrics))
	}

	return router
}

func (s *server) index(c *gin.Context) {
	var buf bytes.Buffer
	if err := s.Page.Render(&buf, s.Style); err != nil {
		s.Logger.Error("Failed to render map page", "error", err)
		c.String(http.StatusInternalServerError, "internal error")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (s *server) markers(c *gin.Context) {
	c.JSON(http.StatusOK, s.Store.Current())
}

func (s *server) markersGeoJSON(c *gin.Context) {
	var project func(lat, lon float64) geom.Point
	switch crs := c.DefaultQuery("crs", "4326"); crs {
	case "4326", "EPSG:4326":
		project = geo.Point4326
	case "3857", "EPSG:3857":
		project = geo.Point3857
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported crs " + crs})
		return
	}

	// ?view=1 keeps only markers inside the page's initial bounds
	onlyInView := c.Query("view") == "1"
	view := s.Page.View()

	set := s.Store.Current()
	fc := make(geom.GeoJSONFeatureCollection, 0, set.Len())
	for _, m := range set.Markers {
		inView := view.Contains(m.Lat, m.Lon)
		if onlyInView && !inView {
			continue
		}
		fc = append(fc, geom.GeoJSONFeature{
			Geometry: project(m.Lat, m.Lon).AsGeometry(),
			Properties: map[string]interface{}{
				"reference": m.Reference,
				"parkName":  m.ParkName,
				"activator": m.Activator,
				"frequency": m.Frequency,
				"mode":      m.Mode,
				"time":      m.Time,
				"comments":  m.Comments,
				"popup":     m.Popup,
				"inView":    inView,
			},
		})
	}

	body, err := json.Marshal(fc)
	if err != nil {
		s.Logger.Error("Failed to encode GeoJSON", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "encoding failed"})
		return
	}
	c.Header("X-Marker-Seq", strconv.FormatUint(set.Seq, 10))
	c.Data(http.StatusOK, "application/geo+json", body)
}

func (s *server) park(c *gin.Context) {
	ref := c.Param("reference")
	p, ok := s.Catalog.Get(ref)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown reference", "reference": ref})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *server) healthcheck(c *gin.Context) {
	if !s.Catalog.Loaded() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unavailable",
			"catalog": false,
		})
		return
	}
	set := s.Store.Current()
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"catalog":    true,
		"parks":      s.Catalog.Len(),
		"markers":    set.Len(),
		"seq":        set.Seq,
		"dispatched": s.Store.Latest(),
	})
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"remote", c.ClientIP(),
		)
	}
}
