package core

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
)

// siteFixture serves sitemap documents and pages from memory and counts the
// requests made for every path.
type siteFixture struct {
	srv *httptest.Server

	mu   sync.Mutex
	docs map[string]string
	hits map[string]int
}

func newSiteFixture(t *testing.T) *siteFixture {
	t.Helper()
	f := &siteFixture{
		docs: make(map[string]string),
		hits: make(map[string]int),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *siteFixture) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.hits[r.URL.Path]++
	body, ok := f.docs[r.URL.Path]
	f.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	_, _ = io.WriteString(w, body)
}

func (f *siteFixture) url(path string) string {
	return f.srv.URL + path
}

func (f *siteFixture) set(path, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[path] = body
}

func (f *siteFixture) hitCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func urlSet(locs ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">` + "\n")
	for _, loc := range locs {
		fmt.Fprintf(&b, "  <url>\n    <loc>\n      %s\n    </loc>\n  </url>\n", loc)
	}
	b.WriteString("</urlset>\n")
	return b.String()
}

func sitemapIndex(locs ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">` + "\n")
	for _, loc := range locs {
		fmt.Fprintf(&b, "  <sitemap>\n    <loc> %s </loc>\n  </sitemap>\n", loc)
	}
	b.WriteString("</sitemapindex>\n")
	return b.String()
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
