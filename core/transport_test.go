package core

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransportDefaults(t *testing.T) {
	transport, err := NewTransport(TransportOptions{})
	require.NoError(t, err)

	assert.Equal(t, 6, transport.MaxConnsPerHost)
	assert.Equal(t, DefaultTimeout*time.Second, transport.ResponseHeaderTimeout)
	assert.Nil(t, transport.Proxy)
}

func TestNewTransportProxy(t *testing.T) {
	transport, err := NewTransport(TransportOptions{Proxy: "http://127.0.0.1:8080", MaxConnsPerHost: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, transport.MaxIdleConnsPerHost)

	req, err := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	require.NoError(t, err)
	proxyURL, err := transport.Proxy(req)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", proxyURL.Host)

	_, err = NewTransport(TransportOptions{Proxy: "://bad"})
	assert.Error(t, err)
}

func TestSearcherRoutesSitemapsAndPagesThroughProxy(t *testing.T) {
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Host != "sitesearch.test" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Path == "/sitemap.xml" {
			_, _ = io.WriteString(w, urlSet("http://sitesearch.test/p"))
			return
		}
		_, _ = io.WriteString(w, "needle needle")
	}))
	defer proxy.Close()

	s := NewSearcher(Options{
		Concurrency: 1,
		Logger:      quietLogger(),
		Session:     SessionConfig{Proxy: proxy.URL},
	})
	got, err := s.Search(context.Background(), "http://sitesearch.test/sitemap.xml", "needle").Collect()
	require.NoError(t, err)
	assert.Equal(t, []SearchResult{{URL: "http://sitesearch.test/p", Count: 2}}, got)
}
