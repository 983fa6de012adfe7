package core

import "sync"

// SearchResult is a page that contains the search string at least once.
type SearchResult struct {
	URL   string `json:"url"`
	Count int    `json:"count"`
}

// Results is the stream of matches of one search. Workers append to it from
// any goroutine; a single reader drains it with Next until the stream ends.
//
//	for results.Next() {
//		fmt.Println(results.Result().URL)
//	}
//	err := results.Err()
type Results struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []SearchResult
	ended   bool
	err     error
	current SearchResult
}

func newResults() *Results {
	r := &Results{}
	r.cond = sync.NewCond(&r.mu)
	return r
}

func (r *Results) put(res SearchResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended {
		return
	}
	r.items = append(r.items, res)
	r.cond.Signal()
}

// finish marks the end of the stream. Only the first call has an effect.
func (r *Results) finish(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended {
		return
	}
	r.ended = true
	r.err = err
	r.cond.Broadcast()
}

// Next blocks until a result is available or the stream has ended. It returns
// false at the end of the stream, and keeps returning false afterwards.
func (r *Results) Next() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for len(r.items) == 0 && !r.ended {
		r.cond.Wait()
	}
	if len(r.items) == 0 {
		r.current = SearchResult{}
		return false
	}
	r.current = r.items[0]
	r.items[0] = SearchResult{}
	r.items = r.items[1:]
	return true
}

// Result returns the result read by the last successful call to Next.
func (r *Results) Result() SearchResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Err returns the error that ended the stream early, if any. It is only
// meaningful once Next has returned false.
func (r *Results) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Collect drains the stream.
func (r *Results) Collect() ([]SearchResult, error) {
	var out []SearchResult
	for r.Next() {
		out = append(out, r.Result())
	}
	return out, r.Err()
}
