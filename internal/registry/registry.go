package registry

import (
	"net/url"
	"strings"
	"sync"

	"github.com/jaeles-project/sitesearch/internal/netutil"
	"github.com/jaeles-project/sitesearch/stringset"
)

// URLRegistry tracks page URLs by a canonical form, so that trivially
// different spellings of the same page (host case, default port, fragment,
// query parameter order) are recognised as one.
type URLRegistry struct {
	once   sync.Once
	filter *stringset.StringFilter
}

func NewURLRegistry() *URLRegistry {
	return &URLRegistry{}
}

func (r *URLRegistry) ensure() {
	r.once.Do(func() {
		r.filter = stringset.NewStringFilter()
	})
}

// Duplicate reports whether raw was registered before, registering it otherwise.
func (r *URLRegistry) Duplicate(raw string) bool {
	key := CanonicalKey(raw)
	if key == "" {
		return false
	}
	r.ensure()
	return r.filter.Duplicate(key)
}

func (r *URLRegistry) Len() int {
	r.ensure()
	return r.filter.Len()
}

func CanonicalKey(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	parsed.Fragment = ""
	parsed.RawFragment = ""
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = normalizeHost(parsed)
	parsed.Path = netutil.NormalizePathComponent(parsed.Path)
	parsed.RawPath = ""

	if parsed.RawQuery != "" {
		parsed.RawQuery = netutil.NormalizeQuery(parsed.RawQuery)
	}

	return netutil.NormalizeDisplayURL(parsed.String())
}

func normalizeHost(u *url.URL) string {
	if u == nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	port := u.Port()
	if port == "" {
		return host
	}
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		return host
	}
	return host + ":" + port
}
