package core

import (
	"encoding/xml"
	"fmt"
)

// InvalidSitemapError is returned when a sitemap document's root element is
// neither a sitemap index nor a URL set.
type InvalidSitemapError struct {
	Location string
	Root     xml.Name
}

func (e *InvalidSitemapError) Error() string {
	root := e.Root.Local
	if e.Root.Space != "" {
		root = "{" + e.Root.Space + "}" + e.Root.Local
	}
	if root == "" {
		return fmt.Sprintf("invalid sitemap %s: no root element", e.Location)
	}
	return fmt.Sprintf("invalid sitemap %s: unexpected root element %s", e.Location, root)
}

// FetchError describes a transport level failure, or a non-2xx answer, while
// retrieving a sitemap document or a page.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
