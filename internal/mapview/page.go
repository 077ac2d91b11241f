package mapview

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"

	"github.com/potamap/potamap/pkg/core"
)

//go:embed web/index.html
var webFS embed.FS

// Endpoints the page talks to.
type Endpoints struct {
	Markers   string `json:"markers"`
	WebSocket string `json:"ws"`
}

// DefaultEndpoints matches the routes registered by the server.
var DefaultEndpoints = Endpoints{Markers: "/api/markers", WebSocket: "/ws"}

// Page renders the Leaflet map page.
type Page struct {
	tmpl      *template.Template
	view      View
	endpoints Endpoints
}

type pageData struct {
	Title     string
	View      template.JS
	Style     template.JS
	Endpoints template.JS
}

// NewPage parses the embedded template for view. The view must be valid.
func NewPage(view View, endpoints Endpoints) (*Page, error) {
	if err := view.Validate(); err != nil {
		return nil, err
	}
	tmpl, err := template.ParseFS(webFS, "web/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse map page: %w", err)
	}
	return &Page{tmpl: tmpl, view: view, endpoints: endpoints}, nil
}

// View returns the view the page was built with.
func (p *Page) View() View {
	return p.view
}

// Render writes the page for the given marker style. The template is rendered
// to a buffer first so a failure never leaves a half-written response.
func (p *Page) Render(w io.Writer, style core.MarkerStyle) error {
	data := pageData{Title: "POTA Spots"}

	var err error
	if data.View, err = marshalTemplateJS(p.view); err != nil {
		return err
	}
	if data.Style, err = marshalTemplateJS(style); err != nil {
		return err
	}
	if data.Endpoints, err = marshalTemplateJS(p.endpoints); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("render map page: %w", err)
	}
	_, err = buf.WriteTo(w)
	return err
}

// marshalTemplateJS encodes value as JSON tagged as safe JavaScript.
func marshalTemplateJS(value any) (template.JS, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encode page data: %w", err)
	}
	return template.JS(payload), nil
}
