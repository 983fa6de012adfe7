package core

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/jaeles-project/sitesearch/internal/netutil"
	"github.com/jaeles-project/sitesearch/stringset"
	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
)

// FormatResult renders a result as "<unescaped-url>,<count>", or as a JSON
// object when jsonOutput is set.
func FormatResult(res SearchResult, jsonOutput bool) string {
	display := SearchResult{URL: netutil.Unescape(res.URL), Count: res.Count}
	if jsonOutput {
		if data, err := jsoniter.MarshalToString(display); err == nil {
			return data
		}
	}
	return display.URL + "," + strconv.Itoa(display.Count)
}

// Output prints results to a writer and optionally appends them to a file.
// Lines already present in the file are not written again.
type Output struct {
	mu         sync.Mutex
	w          io.Writer
	f          *os.File
	filter     *stringset.StringFilter
	jsonOutput bool
}

func NewOutput(w io.Writer, jsonOutput bool) *Output {
	return &Output{w: w, jsonOutput: jsonOutput}
}

// NewOutputPath is like NewOutput but also appends every line to filePath.
func NewOutputPath(w io.Writer, filePath string, jsonOutput bool) (*Output, error) {
	expanded, err := homedir.Expand(filePath)
	if err != nil {
		return nil, fmt.Errorf("expand output path: %w", err)
	}
	abspath, err := filepath.Abs(expanded)
	if err != nil {
		return nil, fmt.Errorf("resolve output path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abspath), os.ModePerm); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.OpenFile(abspath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}

	out := &Output{
		w:          w,
		f:          f,
		filter:     stringset.NewStringFilter(),
		jsonOutput: jsonOutput,
	}
	out.loadExisting(abspath)
	return out, nil
}

func (o *Output) Write(res SearchResult) {
	msg := FormatResult(res, o.jsonOutput)

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.w != nil {
		fmt.Fprintln(o.w, msg)
	}
	if o.f == nil {
		return
	}
	if o.filter != nil && o.filter.Duplicate(msg) {
		return
	}
	_, _ = o.f.WriteString(msg + "\n")
}

func (o *Output) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.f != nil {
		_ = o.f.Close()
		o.f = nil
	}
}

func (o *Output) loadExisting(path string) {
	reader, err := os.Open(path)
	if err != nil {
		return
	}
	defer reader.Close()

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		_ = o.filter.Duplicate(line)
	}
}
