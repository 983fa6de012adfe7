package config

import "time"

// SearchConfig captures the options that shape the search itself.
type SearchConfig struct {
	SitemapURL   string
	SearchString string
	Verbosity    int
	Concurrency  int
	Timeout      time.Duration
	UserAgent    string
	Proxy        string
	Cookie       string
	Headers      []string
	TextOnly     bool
	Unique       bool
}

// RuntimeOptions captures how results are reported.
type RuntimeOptions struct {
	JSONOutput  bool
	OutputFile  string
	ShowVersion bool
	StatsEvery  time.Duration
}
