// Package viewer renders the in-browser certificate viewer. The PDF is
// shown through an embed service first, then the raw file, then a link.
package viewer

import (
	"embed"
	"html/template"
	"io"
	"net/url"
	"strings"
	"time"
)

// DefaultEmbedBase is the external document viewer.
const DefaultEmbedBase = "https://docs.google.com/viewer"

//go:embed templates/viewer.html
var templateFS embed.FS

// Document is what the viewer needs to know about a certificate.
type Document struct {
	Code    string
	Title   string
	FileURL string
}

type page struct {
	Document
	EmbedURL      string
	TimeoutMillis int64
}

type Viewer struct {
	tmpl      *template.Template
	embedBase string
	timeout   time.Duration
}

func New(embedBase string) (*Viewer, error) {
	if embedBase == "" {
		embedBase = DefaultEmbedBase
	}
	tmpl, err := template.ParseFS(templateFS, "templates/viewer.html")
	if err != nil {
		return nil, err
	}
	return &Viewer{tmpl: tmpl, embedBase: strings.TrimRight(embedBase, "?"), timeout: 8 * time.Second}, nil
}

// EmbedURL wraps fileURL in the embed service URL.
func (v *Viewer) EmbedURL(fileURL string) string {
	q := url.Values{}
	q.Set("url", fileURL)
	q.Set("embedded", "true")
	return v.embedBase + "?" + q.Encode()
}

// Render writes the viewer page for doc. A document without a file gets
// the fallback message only.
func (v *Viewer) Render(w io.Writer, doc Document) error {
	if doc.Title == "" {
		doc.Title = "Certificate of Analysis " + doc.Code
	}
	p := page{Document: doc, TimeoutMillis: v.timeout.Milliseconds()}
	if doc.FileURL != "" {
		p.EmbedURL = v.EmbedURL(doc.FileURL)
	}
	return v.tmpl.Execute(w, p)
}
