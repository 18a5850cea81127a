package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Config holds the logging flags shared by both binaries.
type Config struct {
	level      string
	format     string
	output     string
	quiet      bool
	stacktrace bool
}

// Flags returns the CLI flags bound to c. defaultOutput is the value used
// when --log-output is not given.
func (c *Config) Flags(defaultOutput string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Category:    "logging",
			Sources:     cli.EnvVars("HEARTH_LOG_LEVEL"),
			Usage:       "Set log level [debug|info|warn|error]",
			Value:       "info",
			Destination: &c.level,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Category:    "logging",
			Sources:     cli.EnvVars("HEARTH_LOG_FORMAT"),
			Usage:       "Set log format [console|json]",
			Value:       "console",
			Destination: &c.format,
		},
		&cli.StringFlag{
			Name:        "log-output",
			Category:    "logging",
			Sources:     cli.EnvVars("HEARTH_LOG_OUTPUT"),
			Usage:       "Set log output ('-', 'stdout', 'stderr' or a file path)",
			Value:       defaultOutput,
			Destination: &c.output,
		},
		&cli.BoolFlag{
			Name:        "log-quiet",
			Category:    "logging",
			Sources:     cli.EnvVars("HEARTH_LOG_QUIET"),
			Usage:       "Quiet mode (no log output)",
			Destination: &c.quiet,
		},
		&cli.BoolFlag{
			Name:        "log-stacktrace",
			Category:    "logging",
			Sources:     cli.EnvVars("HEARTH_LOG_STACKTRACE"),
			Usage:       "Show stacktrace (console format only)",
			Destination: &c.stacktrace,
		},
	}
}

// LogValue implements slog.LogValuer.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("level", c.level),
		slog.String("format", c.format),
		slog.String("output", c.output),
	)
}

// Configure installs the default logger. The returned closer is always
// non-nil and safe to call.
func (c *Config) Configure() (func(), error) {
	closer := func() {}
	if c.quiet {
		Quiet()
		return closer, nil
	}

	formats := map[string]Format{
		"console": FormatConsole,
		"json":    FormatJSON,
	}
	format, ok := formats[c.format]
	if !ok {
		return closer, goerr.New("invalid log format", goerr.V("format", c.format))
	}

	levels := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	level, ok := levels[c.level]
	if !ok {
		return closer, goerr.New("invalid log level", goerr.V("level", c.level))
	}

	var output io.Writer
	switch c.output {
	case "stdout", "-", "":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		path := filepath.Clean(c.output)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return closer, goerr.Wrap(err, "failed to create log directory", goerr.V("path", path))
		}
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
		if err != nil {
			return closer, goerr.Wrap(err, "failed to open log file", goerr.V("path", path))
		}
		output = f
		closer = func() { _ = f.Close() }
	}

	SetDefault(New(output, level, format, c.stacktrace))
	return closer, nil
}
