package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	MinVerbosity = 0
	MaxVerbosity = 2
)

var (
	ErrMissingArgs       = errors.New("sitemap_url and search_str are required")
	ErrEmptySearchString = errors.New("search string must not be empty")
)

type Loader struct {
	cmd *cobra.Command
}

func NewLoader(cmd *cobra.Command) Loader {
	return Loader{cmd: cmd}
}

// Load reads the command flags and the two positional arguments.
func (l Loader) Load(args []string) (SearchConfig, RuntimeOptions, error) {
	flags := l.cmd.Flags()
	var cfg SearchConfig
	var runtime RuntimeOptions

	getBool := func(name string) (bool, error) {
		v, err := flags.GetBool(name)
		if err != nil {
			return false, fmt.Errorf("get bool %s: %w", name, err)
		}
		return v, nil
	}
	getInt := func(name string) (int, error) {
		v, err := flags.GetInt(name)
		if err != nil {
			return 0, fmt.Errorf("get int %s: %w", name, err)
		}
		return v, nil
	}
	getString := func(name string) (string, error) {
		v, err := flags.GetString(name)
		if err != nil {
			return "", fmt.Errorf("get string %s: %w", name, err)
		}
		return v, nil
	}

	var err error

	if runtime.ShowVersion, err = getBool("version"); err != nil {
		return cfg, runtime, err
	}
	if runtime.JSONOutput, err = getBool("json"); err != nil {
		return cfg, runtime, err
	}
	if runtime.OutputFile, err = getString("output"); err != nil {
		return cfg, runtime, err
	}
	runtime.OutputFile = strings.TrimSpace(runtime.OutputFile)
	if runtime.StatsEvery, err = durationFromFlags(flags, "stats-interval", time.Second); err != nil {
		return cfg, runtime, err
	}
	if runtime.ShowVersion {
		return cfg, runtime, nil
	}

	if len(args) < 2 {
		return cfg, runtime, ErrMissingArgs
	}
	cfg.SitemapURL = strings.TrimSpace(args[0])
	cfg.SearchString = args[1]
	if cfg.SearchString == "" {
		return cfg, runtime, ErrEmptySearchString
	}

	if cfg.Verbosity, err = getInt("verbose"); err != nil {
		return cfg, runtime, err
	}
	if cfg.Verbosity < MinVerbosity || cfg.Verbosity > MaxVerbosity {
		return cfg, runtime, fmt.Errorf("invalid verbose level %d: choose from %d to %d", cfg.Verbosity, MinVerbosity, MaxVerbosity)
	}
	if cfg.Concurrency, err = getInt("concurrency"); err != nil {
		return cfg, runtime, err
	}
	if cfg.Concurrency < 1 {
		return cfg, runtime, fmt.Errorf("invalid concurrency %d: must be at least 1", cfg.Concurrency)
	}
	if cfg.Timeout, err = durationFromFlags(flags, "timeout", time.Second); err != nil {
		return cfg, runtime, err
	}
	if cfg.UserAgent, err = getString("user-agent"); err != nil {
		return cfg, runtime, err
	}
	if lower := strings.ToLower(cfg.UserAgent); lower == "web" || lower == "mobi" {
		cfg.UserAgent = lower
	}
	if cfg.Proxy, err = getString("proxy"); err != nil {
		return cfg, runtime, err
	}
	if cfg.Cookie, err = getString("cookie"); err != nil {
		return cfg, runtime, err
	}
	if cfg.Headers, err = flags.GetStringArray("header"); err != nil {
		return cfg, runtime, fmt.Errorf("get headers: %w", err)
	}
	if cfg.TextOnly, err = getBool("text-only"); err != nil {
		return cfg, runtime, err
	}
	if cfg.Unique, err = getBool("unique"); err != nil {
		return cfg, runtime, err
	}

	return cfg, runtime, nil
}

func durationFromFlags(flags *pflag.FlagSet, name string, unit time.Duration) (time.Duration, error) {
	v, err := flags.GetInt(name)
	if err != nil {
		return 0, fmt.Errorf("get int %s: %w", name, err)
	}
	return time.Duration(v) * unit, nil
}
