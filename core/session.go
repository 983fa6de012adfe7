package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/extensions"
	"golang.org/x/net/publicsuffix"
)

// Session fetches the text of pages. A session is owned by a single worker
// and is never shared between goroutines.
type Session interface {
	Get(ctx context.Context, pageURL string) (string, error)
}

type SessionFactory func() (Session, error)

// SessionConfig captures the request options applied to every page fetch.
type SessionConfig struct {
	Timeout time.Duration
	// UserAgent is "web" or "mobi" for a random browser user agent, or a
	// literal User-Agent value.
	UserAgent string
	Proxy     string
	Cookie    string
	Headers   []string
	// TextOnly counts matches in the visible text of HTML pages instead of
	// the raw response body.
	TextOnly bool
}

// PageSession is a Session backed by its own colly collector, with its own
// transport and cookie jar.
type PageSession struct {
	c        *colly.Collector
	textOnly bool

	body   []byte
	status int
}

func NewPageSession(cfg SessionConfig) (*PageSession, error) {
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
		colly.DetectCharset(),
		colly.ParseHTTPErrorResponse(),
		colly.MaxBodySize(0),
	)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout * time.Second
	}
	c.SetRequestTimeout(timeout)

	transport, err := NewTransport(TransportOptions{Timeout: timeout, MaxConnsPerHost: 1, Proxy: cfg.Proxy})
	if err != nil {
		return nil, err
	}
	c.WithTransport(transport)

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	c.SetCookieJar(jar)

	switch ua := cfg.UserAgent; {
	case ua == "mobi":
		extensions.RandomMobileUserAgent(c)
	case ua == "web":
		extensions.RandomUserAgent(c)
	case ua != "":
		c.UserAgent = ua
	}

	if cfg.Cookie != "" {
		cookie := cfg.Cookie
		c.OnRequest(func(r *colly.Request) {
			r.Headers.Set("Cookie", cookie)
		})
	}

	for _, h := range cfg.Headers {
		headerArgs := strings.SplitN(h, ":", 2)
		if len(headerArgs) != 2 {
			continue
		}
		headerKey := strings.TrimSpace(headerArgs[0])
		headerValue := strings.TrimSpace(headerArgs[1])
		if headerKey == "" {
			continue
		}
		c.OnRequest(func(r *colly.Request) {
			r.Headers.Set(headerKey, headerValue)
		})
	}

	s := &PageSession{c: c, textOnly: cfg.TextOnly}
	c.OnResponse(func(r *colly.Response) {
		s.body = r.Body
		s.status = r.StatusCode
	})
	c.OnError(func(r *colly.Response, _ error) {
		if r != nil {
			s.status = r.StatusCode
		}
	})
	return s, nil
}

// Get fetches pageURL. A transport failure or a non-2xx answer is returned as
// a *FetchError.
func (s *PageSession) Get(ctx context.Context, pageURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.body, s.status = nil, 0
	if err := s.c.Visit(pageURL); err != nil {
		return "", &FetchError{URL: pageURL, StatusCode: s.status, Err: err}
	}
	if s.status < 200 || s.status > 299 {
		return "", &FetchError{URL: pageURL, StatusCode: s.status, Err: errors.New(http.StatusText(s.status))}
	}

	if !s.textOnly {
		return string(s.body), nil
	}
	return visibleText(s.body)
}

func visibleText(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()
	return doc.Text(), nil
}
