// Package logging configures the process-wide zerolog logger used by
// cmd/codymapperd and cmd/codyc, with the same env-override and profile
// structure regardless of which binary is running.
package logging

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

const (
	EnvLogLevel     = "CODY_LOG_LEVEL"
	EnvLogTimestamp = "CODY_LOG_TIMESTAMP"
	EnvLogNoColor   = "CODY_LOG_NOCOLOR"
	EnvLogBypass    = "CODY_LOG_BYPASS"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

type config struct {
	Level     zerolog.Level
	Timestamp bool
	NoColor   bool
	Bypass    bool
}

var (
	configureOnce sync.Once
	logger        zerolog.Logger
)

// ConfigureRuntime configures the shared logger for the two demo
// binaries. Safe to call more than once; only the first call takes
// effect.
func ConfigureRuntime() {
	Configure(ProfileRuntime)
}

// ConfigureTests configures the shared logger for package tests that
// want readable, timestamp-free output.
func ConfigureTests() {
	Configure(ProfileTest)
}

func Configure(profile Profile) {
	configureOnce.Do(func() {
		cfg := defaultConfig(profile)
		applyEnvOverrides(&cfg)
		logger = build(cfg)
	})
}

// Logger returns the process-wide logger, configuring it for
// ProfileRuntime on first use if nothing has configured it yet.
func Logger() zerolog.Logger {
	ConfigureRuntime()
	return logger
}

func build(cfg config) zerolog.Logger {
	if cfg.Bypass {
		return zerolog.Nop()
	}

	out := os.Stderr
	var writer zerolog.ConsoleWriter
	if cfg.NoColor || !isatty.IsTerminal(out.Fd()) {
		writer = zerolog.ConsoleWriter{Out: out, NoColor: true}
	} else {
		writer = zerolog.ConsoleWriter{Out: colorable.NewColorable(out)}
	}
	if !cfg.Timestamp {
		writer.PartsExclude = []string{zerolog.TimestampFieldName}
	}

	zerolog.SetGlobalLevel(cfg.Level)
	l := zerolog.New(writer).With().Logger()
	if cfg.Timestamp {
		l = l.With().Timestamp().Logger()
	}
	return l
}

func defaultConfig(profile Profile) config {
	switch profile {
	case ProfileTest:
		return config{Level: zerolog.DebugLevel, Timestamp: false}
	default:
		return config{Level: zerolog.InfoLevel, Timestamp: true}
	}
}

func applyEnvOverrides(cfg *config) {
	if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	if v, ok := parseBool(os.Getenv(EnvLogTimestamp)); ok {
		cfg.Timestamp = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogBypass)); ok {
		cfg.Bypass = v
	}
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace", "diagnostics":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "disable", "off", "none", "inactive":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
