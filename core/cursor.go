package core

import (
	"io"
	"sync"
	"sync/atomic"
)

// SafeSequence shares a single-consumer URLSequence between goroutines. Every
// URL of the underlying sequence is handed to exactly one caller of Next.
type SafeSequence struct {
	mu        sync.Mutex
	seq       URLSequence
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func NewSafeSequence(seq URLSequence) *SafeSequence {
	return &SafeSequence{seq: seq}
}

// Next advances the underlying sequence under the lock. It returns io.EOF once
// the sequence is exhausted or the wrapper was closed.
func (s *SafeSequence) Next() (string, error) {
	if s.closed.Load() {
		return "", io.EOF
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return "", io.EOF
	}
	return s.seq.Next()
}

// Close releases the underlying sequence. It does not wait for an in-flight
// Next, so a blocked sitemap request is aborted rather than awaited.
func (s *SafeSequence) Close() error {
	s.closed.Store(true)
	s.closeOnce.Do(func() {
		s.closeErr = s.seq.Close()
	})
	return s.closeErr
}
