package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jaeles-project/sitesearch/internal/registry"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Options configures a Searcher. The zero value searches with
// DefaultConcurrency workers and logs to Logger.
type Options struct {
	Concurrency int
	Timeout     time.Duration
	Logger      logrus.FieldLogger
	Stats       *SearchStats
	Session     SessionConfig
	// NewSession builds the session of each worker. It defaults to a
	// PageSession configured from Session.
	NewSession SessionFactory
	// SitemapClient is used to download sitemap documents.
	SitemapClient *http.Client
	// Unique skips page URLs that were already searched during the run.
	Unique bool
}

type Searcher struct {
	concurrency   int
	logger        logrus.FieldLogger
	stats         *SearchStats
	newSession    SessionFactory
	sitemapClient *http.Client
	userAgent     string
	unique        bool
}

func NewSearcher(opts Options) *Searcher {
	s := &Searcher{
		concurrency:   opts.Concurrency,
		logger:        opts.Logger,
		stats:         opts.Stats,
		newSession:    opts.NewSession,
		sitemapClient: opts.SitemapClient,
		unique:        opts.Unique,
	}
	if s.concurrency <= 0 {
		s.concurrency = DefaultConcurrency
	}
	if s.logger == nil {
		s.logger = Logger
	}
	if s.stats == nil {
		s.stats = NewSearchStats()
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout * time.Second
	}
	sessionCfg := opts.Session
	if sessionCfg.Timeout <= 0 {
		sessionCfg.Timeout = timeout
	}
	if s.newSession == nil {
		s.newSession = func() (Session, error) {
			return NewPageSession(sessionCfg)
		}
	}
	if s.sitemapClient == nil {
		client := &http.Client{Timeout: timeout}
		if transport, err := NewTransport(TransportOptions{Timeout: timeout, Proxy: sessionCfg.Proxy}); err == nil {
			client.Transport = transport
		}
		s.sitemapClient = client
	}
	if ua := sessionCfg.UserAgent; ua != "web" && ua != "mobi" {
		s.userAgent = ua
	}
	return s
}

// SearchInSite searches every page listed by the sitemap at sitemapLocation
// for searchString, using concurrency workers and default options.
func SearchInSite(ctx context.Context, sitemapLocation, searchString string, concurrency int) *Results {
	return NewSearcher(Options{Concurrency: concurrency}).Search(ctx, sitemapLocation, searchString)
}

func (s *Searcher) Stats() *SearchStats {
	return s.stats
}

// Search starts the search in the background and returns its result stream.
// The stream ends once every worker has stopped; Results.Err then reports a
// fatal sitemap error or the context error.
func (s *Searcher) Search(ctx context.Context, sitemapLocation, searchString string) *Results {
	results := newResults()
	go func() {
		results.finish(s.run(ctx, sitemapLocation, searchString, results))
	}()
	return results
}

func (s *Searcher) run(ctx context.Context, sitemapLocation, searchString string, results *Results) error {
	walker := NewSitemapWalker(ctx, sitemapLocation, WalkerOptions{
		Client:    s.sitemapClient,
		UserAgent: s.userAgent,
		Logger:    s.logger,
		Stats:     s.stats,
	})
	cursor := NewSafeSequence(walker)
	defer cursor.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = cursor.Close()
	})
	defer stop()

	var seen *registry.URLRegistry
	if s.unique {
		seen = registry.NewURLRegistry()
	}

	err := s.runPool(ctx, func(ctx context.Context) error {
		return s.work(ctx, cursor, searchString, seen, results)
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// runPool runs worker concurrency times in parallel and waits for all of
// them. A single worker runs on the calling goroutine.
func (s *Searcher) runPool(ctx context.Context, worker func(context.Context) error) error {
	if s.concurrency == 1 {
		return worker(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < s.concurrency; i++ {
		g.Go(func() error {
			return worker(gctx)
		})
	}
	return g.Wait()
}

// work pulls page URLs from cursor until it is exhausted. Page failures are
// logged and skipped; a cursor failure closes the cursor and is returned.
func (s *Searcher) work(ctx context.Context, cursor *SafeSequence, searchString string, seen *registry.URLRegistry, results *Results) error {
	session, err := s.newSession()
	if err != nil {
		_ = cursor.Close()
		return fmt.Errorf("create session: %w", err)
	}

	for ctx.Err() == nil {
		pageURL, err := cursor.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			_ = cursor.Close()
			return err
		}

		if seen != nil && seen.Duplicate(pageURL) {
			s.logger.Debugf("Skipping duplicate page: %s", pageURL)
			continue
		}

		text, err := session.Get(ctx, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Warnf("Failed to search %s: %v", pageURL, err)
			s.stats.RecordFailure(pageURL)
			continue
		}
		s.stats.IncrementPagesSearched()

		count := CountOccurrences(text, searchString)
		if count == 0 {
			continue
		}
		s.logger.Infof("Search string found %d time(s) in %s", count, pageURL)
		s.stats.IncrementMatches()
		results.put(SearchResult{URL: pageURL, Count: count})
	}
	return nil
}

// CountOccurrences returns the number of non-overlapping, case sensitive
// occurrences of needle in text.
func CountOccurrences(text, needle string) int {
	if needle == "" {
		return 0
	}
	return strings.Count(text, needle)
}
