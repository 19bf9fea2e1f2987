// Package secure builds the Content-Security-Policy and the hardening
// headers once at startup and attaches them to every response.
package secure

import (
	"net/http"
	"strings"

	"github.com/dmitrijs2005/yelpcamp/internal/server/pipeline"
)

const (
	Self         = "'self'"
	UnsafeInline = "'unsafe-inline'"
	Blob         = "blob:"
	Data         = "data:"
)

// Directive is one CSP directive and its ordered source list. An empty
// list renders as 'none'.
type Directive struct {
	Name    string
	Sources []string
}

// Policy is immutable once built by NewPolicy.
type Policy struct {
	directives []Directive
	headers    http.Header
}

type Options struct {
	// ImageOrigins are added to img-src, e.g. the public URL of the
	// image host.
	ImageOrigins []string
	Production   bool
}

var (
	scriptSrcURLs = []string{
		"https://code.jquery.com/",
		"https://maxcdn.bootstrapcdn.com/",
		"https://stackpath.bootstrapcdn.com/",
		"https://api.tiles.mapbox.com/",
		"https://api.mapbox.com/",
		"https://kit.fontawesome.com/",
		"https://cdnjs.cloudflare.com/",
		"https://cdn.jsdelivr.net",
	}
	styleSrcURLs = []string{
		"https://code.jquery.com/",
		"https://maxcdn.bootstrapcdn.com/",
		"https://kit-free.fontawesome.com/",
		"https://stackpath.bootstrapcdn.com/",
		"https://api.mapbox.com/",
		"https://api.tiles.mapbox.com/",
		"https://fonts.googleapis.com/",
		"https://use.fontawesome.com/",
	}
	connectSrcURLs = []string{
		"https://code.jquery.com/",
		"https://maxcdn.bootstrapcdn.com/",
		"https://api.mapbox.com/",
		"https://a.tiles.mapbox.com/",
		"https://b.tiles.mapbox.com/",
		"https://events.mapbox.com/",
	}
)

// DefaultDirectives returns the allow-list used by the site. The returned
// slices are fresh copies.
func DefaultDirectives(imageOrigins ...string) []Directive {
	img := []string{Self, Blob, Data, "https://images.unsplash.com/"}
	img = append(img, imageOrigins...)

	return []Directive{
		{Name: "default-src"},
		{Name: "connect-src", Sources: append([]string{Self}, connectSrcURLs...)},
		{Name: "script-src", Sources: append([]string{UnsafeInline, Self}, scriptSrcURLs...)},
		{Name: "style-src", Sources: append([]string{Self, UnsafeInline}, styleSrcURLs...)},
		{Name: "worker-src", Sources: []string{Self, Blob}},
		{Name: "object-src"},
		{Name: "img-src", Sources: img},
		{Name: "font-src", Sources: []string{Self}},
		{Name: "base-uri", Sources: []string{Self}},
		{Name: "form-action", Sources: []string{Self}},
		{Name: "frame-ancestors", Sources: []string{Self}},
		{Name: "script-src-attr", Sources: nil},
	}
}

func NewPolicy(opts Options) *Policy {
	return newPolicy(DefaultDirectives(opts.ImageOrigins...), opts.Production)
}

func newPolicy(directives []Directive, production bool) *Policy {
	h := http.Header{}
	h.Set("Content-Security-Policy", render(directives))
	h.Set("Cross-Origin-Opener-Policy", "same-origin")
	h.Set("Cross-Origin-Resource-Policy", "same-origin")
	h.Set("Origin-Agent-Cluster", "?1")
	h.Set("Referrer-Policy", "no-referrer")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-DNS-Prefetch-Control", "off")
	h.Set("X-Download-Options", "noopen")
	h.Set("X-Frame-Options", "SAMEORIGIN")
	h.Set("X-Permitted-Cross-Domain-Policies", "none")
	h.Set("X-XSS-Protection", "0")
	if production {
		h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
	}

	return &Policy{directives: directives, headers: h}
}

func render(directives []Directive) string {
	parts := make([]string, 0, len(directives))
	for _, d := range directives {
		sources := "'none'"
		if len(d.Sources) > 0 {
			sources = strings.Join(d.Sources, " ")
		}
		parts = append(parts, d.Name+" "+sources)
	}
	return strings.Join(parts, "; ")
}

// ContentSecurityPolicy returns the rendered CSP header value.
func (p *Policy) ContentSecurityPolicy() string {
	return p.headers.Get("Content-Security-Policy")
}

// Apply writes the policy headers to h.
func (p *Policy) Apply(h http.Header) {
	for k, v := range p.headers {
		h[k] = append([]string(nil), v...)
	}
}

// Stage returns the pipeline stage that applies the policy. The headers
// are set before anything downstream runs, so error responses carry them
// too.
func (p *Policy) Stage() pipeline.Stage {
	return pipeline.Header("secure", p.Apply)
}
