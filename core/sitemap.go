package core

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/mitchellh/go-homedir"
	sitemap "github.com/oxffaa/gopher-parse-sitemap"
	"github.com/sirupsen/logrus"
)

// URLSequence is a lazily produced, finite stream of page URLs. Next returns
// io.EOF once the stream is exhausted. Implementations are not required to be
// safe for concurrent use; wrap them in a SafeSequence to share them.
type URLSequence interface {
	Next() (string, error)
	Close() error
}

type WalkerOptions struct {
	Client    *http.Client
	UserAgent string
	Logger    logrus.FieldLogger
	Stats     *SearchStats
}

type sitemapKind int

const (
	kindIndex sitemapKind = iota + 1
	kindURLSet
)

type sitemapFrame struct {
	location string
	kind     sitemapKind
	locs     []string
	pos      int
}

func (f *sitemapFrame) add(loc string) {
	if loc = strings.TrimSpace(loc); loc != "" {
		f.locs = append(f.locs, loc)
	}
}

// SitemapWalker yields the page URLs of a sitemap, descending depth first into
// every sitemap referenced by a sitemap index. Documents are loaded only when
// the walk reaches them.
type SitemapWalker struct {
	ctx       context.Context
	cancel    context.CancelFunc
	root      string
	client    *http.Client
	userAgent string
	logger    logrus.FieldLogger
	stats     *SearchStats

	started bool
	stack   []*sitemapFrame
	err     error
	closed  atomic.Bool
}

func NewSitemapWalker(ctx context.Context, location string, opts WalkerOptions) *SitemapWalker {
	ctx, cancel := context.WithCancel(ctx)

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout * time.Second}
	}
	var logger logrus.FieldLogger = Logger
	if opts.Logger != nil {
		logger = opts.Logger
	}

	return &SitemapWalker{
		ctx:       ctx,
		cancel:    cancel,
		root:      strings.TrimSpace(location),
		client:    client,
		userAgent: opts.UserAgent,
		logger:    logger,
		stats:     opts.Stats,
	}
}

// Next returns the next page URL, io.EOF when the walk is over or the walker
// was closed, or the error that stopped the walk. Errors are sticky.
func (w *SitemapWalker) Next() (string, error) {
	if w.closed.Load() {
		return "", io.EOF
	}
	if w.err != nil {
		return "", w.err
	}
	if !w.started {
		w.started = true
		if err := w.push(w.root); err != nil {
			return w.fail(err)
		}
	}

	for len(w.stack) > 0 {
		top := w.stack[len(w.stack)-1]
		if top.pos >= len(top.locs) {
			w.stack = w.stack[:len(w.stack)-1]
			continue
		}
		loc := top.locs[top.pos]
		top.pos++

		if top.kind == kindURLSet {
			w.logger.Debugf("Location: %s", loc)
			return loc, nil
		}
		w.logger.Debugf("Sitemap URL: %s", loc)
		if err := w.push(loc); err != nil {
			return w.fail(err)
		}
	}
	return "", io.EOF
}

// Close stops the walk and aborts an in-flight sitemap request. It is safe to
// call from any goroutine, including while Next is running.
func (w *SitemapWalker) Close() error {
	w.closed.Store(true)
	w.cancel()
	return nil
}

func (w *SitemapWalker) fail(err error) (string, error) {
	w.stack = nil
	if w.closed.Load() || w.ctx.Err() != nil {
		return "", io.EOF
	}
	w.err = err
	return "", err
}

func (w *SitemapWalker) push(location string) error {
	frame, err := w.load(location)
	if err != nil {
		return err
	}
	w.stack = append(w.stack, frame)
	return nil
}

func (w *SitemapWalker) load(location string) (*sitemapFrame, error) {
	body, err := w.read(location)
	if err != nil {
		return nil, err
	}

	root, err := rootElement(body)
	if err != nil {
		return nil, fmt.Errorf("parse sitemap %s: %w", location, err)
	}

	// Only the root is matched with its namespace. Entries below it are
	// picked up by local name, whatever namespace they carry.
	frame := &sitemapFrame{location: location}
	switch {
	case root.Space == SitemapNamespace && root.Local == sitemapIndexTag:
		w.logger.Debugf("Processing sitemap index: %s", location)
		frame.kind = kindIndex
		err = sitemap.ParseIndex(bytes.NewReader(body), func(e sitemap.IndexEntry) error {
			frame.add(e.GetLocation())
			return nil
		})
	case root.Space == SitemapNamespace && root.Local == urlSetTag:
		w.logger.Debugf("Processing sitemap: %s", location)
		frame.kind = kindURLSet
		err = sitemap.Parse(bytes.NewReader(body), func(e sitemap.Entry) error {
			frame.add(e.GetLocation())
			return nil
		})
	default:
		return nil, &InvalidSitemapError{Location: location, Root: root}
	}
	if err != nil {
		return nil, fmt.Errorf("parse sitemap %s: %w", location, err)
	}

	if w.stats != nil {
		w.stats.IncrementSitemaps()
	}
	return frame, nil
}

// read loads a sitemap document from disk, falling back to an HTTP GET when
// the location cannot be opened as a file.
func (w *SitemapWalker) read(location string) ([]byte, error) {
	data, err := readLocalFile(location)
	if err != nil {
		var pathErr *fs.PathError
		if !errors.As(err, &pathErr) {
			return nil, err
		}
		if data, err = w.fetch(location); err != nil {
			return nil, err
		}
	}
	return decompress(data)
}

func (w *SitemapWalker) fetch(location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(w.ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, &FetchError{URL: location, Err: err}
	}
	if w.userAgent != "" {
		req.Header.Set("User-Agent", w.userAgent)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: location, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{
			URL:        location,
			StatusCode: resp.StatusCode,
			Err:        errors.New(http.StatusText(resp.StatusCode)),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: location, Err: err}
	}
	return data, nil
}

func readLocalFile(location string) ([]byte, error) {
	path := strings.TrimPrefix(location, "file://")
	if expanded, err := homedir.Expand(path); err == nil {
		path = expanded
	}
	return os.ReadFile(path)
}

var gzipMagic = []byte{0x1f, 0x8b}

func decompress(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, gzipMagic) {
		return data, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gunzip sitemap: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("gunzip sitemap: %w", err)
	}
	return out, nil
}

// rootElement returns the namespace-qualified name of the document's first
// element, or the zero Name for a document without one.
func rootElement(body []byte) (xml.Name, error) {
	decoder := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			return xml.Name{}, nil
		}
		if err != nil {
			return xml.Name{}, err
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name, nil
		}
	}
}
