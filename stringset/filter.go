package stringset

import "sync"

// StringFilter remembers the strings it has seen. It is safe for concurrent use.
type StringFilter struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewStringFilter() *StringFilter {
	return &StringFilter{seen: make(map[string]struct{})}
}

// Duplicate reports whether s was seen before, recording it otherwise.
func (f *StringFilter) Duplicate(s string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.seen[s]; ok {
		return true
	}
	f.seen[s] = struct{}{}
	return false
}

func (f *StringFilter) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}
