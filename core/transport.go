package core

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

// TransportOptions configures the HTTP transport shared by the connections of
// one client.
type TransportOptions struct {
	Timeout time.Duration
	// MaxConnsPerHost bounds the open connections to a single host. Zero
	// keeps the browser-like default of 6.
	MaxConnsPerHost int
	Proxy           string
}

// NewTransport returns a transport with browser-like connection limits.
func NewTransport(opts TransportOptions) (*http.Transport, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout * time.Second
	}
	maxConns := opts.MaxConnsPerHost
	if maxConns <= 0 {
		maxConns = 6
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   maxConns,
		MaxConnsPerHost:       maxConns,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: timeout,
		ForceAttemptHTTP2:     true,
	}

	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("parse proxy %s: %w", opts.Proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	return transport, nil
}
