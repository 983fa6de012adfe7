package core

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageSessionSendsConfiguredRequest(t *testing.T) {
	headers := make(chan http.Header, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
		_, _ = io.WriteString(w, "hello world")
	}))
	defer srv.Close()

	s, err := NewPageSession(SessionConfig{
		Timeout:   5 * time.Second,
		UserAgent: "sitesearch-test/1.0",
		Cookie:    "session=abc",
		Headers:   []string{"X-Api-Key: secret", "malformed", ": empty"},
	})
	require.NoError(t, err)

	body, err := s.Get(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	assert.Equal(t, "hello world", body)

	got := <-headers
	assert.Equal(t, "sitesearch-test/1.0", got.Get("User-Agent"))
	assert.Equal(t, "session=abc", got.Get("Cookie"))
	assert.Equal(t, "secret", got.Get("X-Api-Key"))
}

func TestPageSessionRevisitsTheSameURL(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = io.WriteString(w, "again")
	}))
	defer srv.Close()

	s, err := NewPageSession(SessionConfig{})
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := s.Get(context.Background(), srv.URL)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestPageSessionReportsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "needle", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s, err := NewPageSession(SessionConfig{})
	require.NoError(t, err)

	body, err := s.Get(context.Background(), srv.URL)
	assert.Empty(t, body)
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusInternalServerError, fetchErr.StatusCode)
	assert.Equal(t, srv.URL, fetchErr.URL)
}

func TestPageSessionRejectsBadProxy(t *testing.T) {
	_, err := NewPageSession(SessionConfig{Proxy: "://not a proxy"})
	assert.Error(t, err)
}

func TestPageSessionHonoursCancelledContext(t *testing.T) {
	s, err := NewPageSession(SessionConfig{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Get(ctx, "http://127.0.0.1:1/")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPageSessionReadsLargeBodies(t *testing.T) {
	page := strings.Repeat("x", 11<<20) + "needle"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, page)
	}))
	defer srv.Close()

	s, err := NewPageSession(SessionConfig{})
	require.NoError(t, err)

	body, err := s.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, body, len(page))
	assert.Equal(t, 1, CountOccurrences(body, "needle"))
}

func TestPageSessionAcceptsEvery2xxStatus(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusNonAuthoritativeInfo, http.StatusPartialContent} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, "needle")
		}))

		s, err := NewPageSession(SessionConfig{})
		require.NoError(t, err)

		body, err := s.Get(context.Background(), srv.URL)
		srv.Close()
		require.NoError(t, err, "status %d", status)
		assert.Equal(t, "needle", body)
	}
}

func TestPageSessionRejectsClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, "needle")
	}))
	defer srv.Close()

	s, err := NewPageSession(SessionConfig{})
	require.NoError(t, err)

	body, err := s.Get(context.Background(), srv.URL)
	assert.Empty(t, body)
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
}

func TestPageSessionUsesProxy(t *testing.T) {
	hosts := make(chan string, 1)
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hosts <- r.URL.Host
		_, _ = io.WriteString(w, "via proxy")
	}))
	defer proxy.Close()

	s, err := NewPageSession(SessionConfig{Proxy: proxy.URL})
	require.NoError(t, err)

	body, err := s.Get(context.Background(), "http://sitesearch.test/page")
	require.NoError(t, err)
	assert.Equal(t, "via proxy", body)
	assert.Equal(t, "sitesearch.test", <-hosts)
}
