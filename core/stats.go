package core

import (
	"sync"
	"sync/atomic"
	"time"
)

type SearchStats struct {
	sitemaps      int64
	pagesSearched int64
	matches       int64
	errors        int64

	failedMu sync.Mutex
	failed   []string
}

func NewSearchStats() *SearchStats {
	return &SearchStats{}
}

func (s *SearchStats) IncrementSitemaps() {
	atomic.AddInt64(&s.sitemaps, 1)
}

func (s *SearchStats) IncrementPagesSearched() {
	atomic.AddInt64(&s.pagesSearched, 1)
}

func (s *SearchStats) IncrementMatches() {
	atomic.AddInt64(&s.matches, 1)
}

// RecordFailure counts a page that could not be searched and remembers its URL.
func (s *SearchStats) RecordFailure(pageURL string) {
	atomic.AddInt64(&s.errors, 1)
	s.failedMu.Lock()
	s.failed = append(s.failed, pageURL)
	s.failedMu.Unlock()
}

func (s *SearchStats) GetSitemaps() int64 {
	return atomic.LoadInt64(&s.sitemaps)
}

func (s *SearchStats) GetPagesSearched() int64 {
	return atomic.LoadInt64(&s.pagesSearched)
}

func (s *SearchStats) GetMatches() int64 {
	return atomic.LoadInt64(&s.matches)
}

func (s *SearchStats) GetErrors() int64 {
	return atomic.LoadInt64(&s.errors)
}

// FailedURLs returns a copy of the failed page URLs in the order they failed.
func (s *SearchStats) FailedURLs() []string {
	s.failedMu.Lock()
	defer s.failedMu.Unlock()
	out := make([]string, len(s.failed))
	copy(out, s.failed)
	return out
}

func (s *SearchStats) GetRPS(elapsed time.Duration) float64 {
	seconds := elapsed.Seconds()
	if seconds <= 0 {
		return 0
	}
	return float64(s.GetPagesSearched()) / seconds
}
