package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	coreconfig "github.com/m3rciful/combogate/core/config"
)

const defaultMaxSizeMB = 50

// settings is the resolved form of coreconfig.LoggingConfig.
type settings struct {
	format     format
	order      []string
	level      slog.Level
	profile    string
	sampleKeep int
	sampleOf   int
	logging    coreconfig.LoggingConfig
}

func settingsFrom(cfg *coreconfig.Config) settings {
	s := settings{
		format:     formatJSON,
		order:      defaultKeyOrder,
		level:      slog.LevelInfo,
		profile:    "prod",
		sampleKeep: 1,
		sampleOf:   50,
	}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging
	s.logging = lc

	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		s.profile = p
	}
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.format = formatText
	case "json":
	default:
		if s.profile == "debug" || s.profile == "dev" {
			s.format = formatText
		}
	}
	switch strings.ToLower(strings.TrimSpace(lc.Level)) {
	case "debug":
		s.level = slog.LevelDebug
	case "warn", "warning":
		s.level = slog.LevelWarn
	case "error":
		s.level = slog.LevelError
	}
	if order := splitKeys(lc.KeysOrder); len(order) > 0 {
		s.order = order
	}
	if spec := strings.TrimSpace(lc.DebugSample); spec != "" {
		if keep, of, ok := parseRatio(spec); ok {
			s.sampleKeep, s.sampleOf = keep, of
		}
	}
	return s
}

func splitKeys(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "default" {
		return nil
	}
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// openSinks returns stdout plus a rotating file when a log dir is set. A
// file that cannot be prepared is reported on stderr and skipped.
func openSinks(s settings) ([]io.Writer, []io.Closer) {
	sinks := []io.Writer{os.Stdout}
	dir := strings.TrimSpace(s.logging.Dir)
	name := strings.TrimSpace(s.logging.BotFile)
	if dir == "" || name == "" {
		return sinks, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "logger: log dir %s: %v\n", dir, err)
		return sinks, nil
	}
	maxSize := s.logging.MaxSizeMB
	if maxSize <= 0 {
		maxSize = defaultMaxSizeMB
	}
	file := &lumberjack.Logger{
		Filename:   filepath.Join(dir, name),
		MaxSize:    maxSize,
		MaxBackups: s.logging.MaxBackups,
		MaxAge:     s.logging.MaxAgeDays,
		Compress:   s.logging.Compress,
	}
	return append(sinks, file), []io.Closer{file}
}
