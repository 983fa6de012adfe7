package core

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceSequence is deliberately unsafe for concurrent use.
type sliceSequence struct {
	items  []string
	pos    int
	closes int
}

func (s *sliceSequence) Next() (string, error) {
	if s.pos >= len(s.items) {
		return "", io.EOF
	}
	item := s.items[s.pos]
	runtime.Gosched()
	s.pos++
	return item, nil
}

func (s *sliceSequence) Close() error {
	s.closes++
	return nil
}

type failingSequence struct{ err error }

func (s failingSequence) Next() (string, error) { return "", s.err }
func (s failingSequence) Close() error          { return nil }

// blockingSequence blocks in Next until it is closed.
type blockingSequence struct {
	entered  chan struct{}
	released chan struct{}
	once     sync.Once
}

func (s *blockingSequence) Next() (string, error) {
	close(s.entered)
	<-s.released
	return "", io.EOF
}

func (s *blockingSequence) Close() error {
	s.once.Do(func() { close(s.released) })
	return nil
}

func numbered(n int) []string {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf("https://example.com/page/%d", i)
	}
	return items
}

func TestSafeSequenceDeliversEveryItemExactlyOnce(t *testing.T) {
	for _, callers := range []int{1, 2, 8, 32} {
		t.Run(fmt.Sprintf("callers=%d", callers), func(t *testing.T) {
			want := numbered(500)
			seq := NewSafeSequence(&sliceSequence{items: append([]string(nil), want...)})

			var mu sync.Mutex
			var got []string
			var wg sync.WaitGroup
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					var mine []string
					for {
						item, err := seq.Next()
						if errors.Is(err, io.EOF) {
							break
						}
						if !assert.NoError(t, err) {
							return
						}
						mine = append(mine, item)
					}
					mu.Lock()
					got = append(got, mine...)
					mu.Unlock()
				}()
			}
			wg.Wait()

			sort.Strings(got)
			sort.Strings(want)
			assert.Equal(t, want, got)
		})
	}
}

func TestSafeSequenceCloseSignalsExhaustion(t *testing.T) {
	inner := &sliceSequence{items: numbered(10)}
	seq := NewSafeSequence(inner)

	first, err := seq.Next()
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/page/0", first)

	require.NoError(t, seq.Close())
	require.NoError(t, seq.Close())
	assert.Equal(t, 1, inner.closes)

	for i := 0; i < 5; i++ {
		item, err := seq.Next()
		assert.ErrorIs(t, err, io.EOF)
		assert.Empty(t, item)
	}
	assert.Equal(t, 1, inner.pos, "closed sequence must not be advanced")
}

func TestSafeSequencePropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	seq := NewSafeSequence(failingSequence{err: boom})

	_, err := seq.Next()
	assert.ErrorIs(t, err, boom)
}

func TestSafeSequenceCloseDoesNotWaitForNext(t *testing.T) {
	inner := &blockingSequence{entered: make(chan struct{}), released: make(chan struct{})}
	seq := NewSafeSequence(inner)

	done := make(chan error, 1)
	go func() {
		_, err := seq.Next()
		done <- err
	}()
	<-inner.entered

	closed := make(chan struct{})
	go func() {
		_ = seq.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked behind an in-flight Next")
	}

	select {
	case err := <-done:
		assert.ErrorIs(t, err, io.EOF)
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not return after Close")
	}

	_, err := seq.Next()
	assert.ErrorIs(t, err, io.EOF)
}
