// Package config loads mkbbr settings from an optional YAML file.
package config

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"mkbbr/bbr"
)

// LogLevel is a zap level that decodes from a name or an integer.
type LogLevel zapcore.Level

// UnmarshalYAML accepts debug/info/warn/error or the numeric zap level.
func (l *LogLevel) UnmarshalYAML(value *yaml.Node) error {
	var i int
	if err := value.Decode(&i); err == nil {
		*l = LogLevel(i)
		return nil
	}

	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("log_level must be a string (debug/info/warn/error) or integer (-1..2)")
	}
	lvl, err := ParseLogLevel(s)
	if err != nil {
		return err
	}
	*l = lvl
	return nil
}

func (l LogLevel) MarshalYAML() (interface{}, error) {
	return zapcore.Level(l).String(), nil
}

// ParseLogLevel maps a level name to a LogLevel.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevel(zapcore.DebugLevel), nil
	case "info", "":
		return LogLevel(zapcore.InfoLevel), nil
	case "warn", "warning":
		return LogLevel(zapcore.WarnLevel), nil
	case "error":
		return LogLevel(zapcore.ErrorLevel), nil
	}
	return LogLevel(zapcore.InfoLevel), fmt.Errorf("unknown log level %q", s)
}

// SyncMode wraps bbr.SyncPolicy for YAML decoding.
type SyncMode bbr.SyncPolicy

func (m *SyncMode) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("sync must be a string (table/replica/none)")
	}
	p, err := bbr.ParseSyncPolicy(s)
	if err != nil {
		return err
	}
	*m = SyncMode(p)
	return nil
}

func (m SyncMode) MarshalYAML() (interface{}, error) {
	return bbr.SyncPolicy(m).String(), nil
}

// Settings holds the tunables of a run. Positional arguments (target and
// table locations) are not part of the file.
type Settings struct {
	LogLevel LogLevel `yaml:"log_level"`
	Sync     SyncMode `yaml:"sync"`
	// Truncate opens regular files with O_TRUNC, discarding previous content.
	Truncate       bool   `yaml:"truncate"`
	UI             bool   `yaml:"ui"`
	MetricsFile    string `yaml:"metrics_file"`
	MaxSeekSectors uint64 `yaml:"max_seek_sectors"`
}

// Default returns the settings used when no file is given.
func Default() *Settings {
	return &Settings{
		LogLevel: LogLevel(zapcore.InfoLevel),
		Sync:     SyncMode(bbr.SyncTable),
		Truncate: true,
	}
}

// Load reads path on top of Default. An empty path returns Default.
func Load(path string) (*Settings, error) {
	s := Default()
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return s, nil
}

// Validate checks value ranges.
func (s *Settings) Validate() error {
	lvl := zapcore.Level(s.LogLevel)
	if lvl < zapcore.DebugLevel || lvl > zapcore.ErrorLevel {
		return fmt.Errorf("log_level %d out of range", int(lvl))
	}
	switch bbr.SyncPolicy(s.Sync) {
	case bbr.SyncTable, bbr.SyncReplica, bbr.SyncNone:
	default:
		return fmt.Errorf("invalid sync policy %d", int(s.Sync))
	}
	if s.MaxSeekSectors > bbr.DefaultMaxSeekSectors {
		return fmt.Errorf("max_seek_sectors %d exceeds %d", s.MaxSeekSectors, bbr.DefaultMaxSeekSectors)
	}
	return nil
}
