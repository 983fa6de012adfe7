package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

const (
	VerbosityErrors = 0
	VerbosityInfo   = 1
	VerbosityDebug  = 2
)

type Options struct {
	// Verbosity is 0 for errors only, 1 for matches, warnings and the run
	// summary, 2 for every sitemap and location visited.
	Verbosity int
	Output    io.Writer
}

func Configure(logger *logrus.Logger, opts Options) {
	if logger == nil {
		return
	}
	target := opts.Output
	if target == nil {
		target = os.Stderr
	}
	logger.SetOutput(target)
	logger.SetLevel(Level(opts.Verbosity))
}

// Level maps a verbosity to a logrus level. Out of range values are clamped.
func Level(verbosity int) logrus.Level {
	switch {
	case verbosity <= VerbosityErrors:
		return logrus.ErrorLevel
	case verbosity == VerbosityInfo:
		return logrus.InfoLevel
	default:
		return logrus.DebugLevel
	}
}
