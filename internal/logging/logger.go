package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/wire"
	"github.com/trebuchet-org/treb-bootstrap/internal/domain/config"
)

// LevelEnvVar overrides the log level unless --debug is set
const LevelEnvVar = "TREB_LOG_LEVEL"

var LoggingSet = wire.NewSet(
	NewLogger,
)

// NewLogger creates the stderr logger for a run
func NewLogger(cfg *config.RuntimeConfig) *slog.Logger {
	return New(os.Stderr, cfg)
}

// New builds a text logger writing to w. Every line of a dry run carries
// dry_run=true and, once a network is selected, its name.
func New(w io.Writer, cfg *config.RuntimeConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       levelFromEnv(),
		ReplaceAttr: replaceAttr(cfg.Debug),
	}
	if cfg.Debug {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
	}

	log := slog.New(slog.NewTextHandler(w, opts))
	if cfg.Network != nil && cfg.Network.Name != "" {
		log = log.With("network", cfg.Network.Name)
	}
	if cfg.DryRun {
		log = log.With("dry_run", true)
	}
	return log
}

// ParseLevel accepts slog's level names plus "warning"
func ParseLevel(s string) (slog.Level, bool) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "warning") {
		return slog.LevelWarn, true
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, false
	}
	return level, true
}

func levelFromEnv() slog.Level {
	level, _ := ParseLevel(os.Getenv(LevelEnvVar))
	return level
}

// replaceAttr drops timestamps outside debug mode and trims source paths
func replaceAttr(debug bool) func([]string, slog.Attr) slog.Attr {
	return func(_ []string, a slog.Attr) slog.Attr {
		switch a.Key {
		case slog.TimeKey:
			if !debug {
				return slog.Attr{}
			}
		case slog.SourceKey:
			if source, ok := a.Value.Any().(*slog.Source); ok {
				source.File = shortPath(source.File)
			}
		}
		return a
	}
}

// shortPath keeps the path from the module's internal/ or cli/ directory,
// else the parent directory and file name.
func shortPath(file string) string {
	file = filepath.ToSlash(file)
	for _, root := range []string{"/internal/", "/cli/"} {
		if idx := strings.LastIndex(file, root); idx != -1 {
			return file[idx+1:]
		}
	}
	dir, name := filepath.Split(file)
	if parent := filepath.Base(dir); parent != "." && parent != "/" && dir != "" {
		return parent + "/" + name
	}
	return name
}
