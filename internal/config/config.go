// Package config manages wapbox daemon configuration using koanf/v2.
//
// Supports YAML files and environment variables, layered over built-in
// defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// -------------------------------------------------------------------------
// Configuration Structures
// -------------------------------------------------------------------------

// Config holds the complete wapbox configuration.
type Config struct {
	Wapbox  WapboxConfig  `koanf:"wapbox"`
	Admin   AdminConfig   `koanf:"admin"`
	Log     LogConfig     `koanf:"log"`
	Timers  TimersConfig  `koanf:"timers"`
	URLMap  URLMapConfig  `koanf:"urlmap"`
	Syslog  SyslogConfig  `koanf:"syslog"`
}

// WapboxConfig holds the WSP/WTP listen address and the bearerbox
// control channel address (spec.md Section 6 "Configuration").
type WapboxConfig struct {
	// Addr is the listen address for the WSP/WTP service (e.g., ":9201").
	Addr string `koanf:"addr"`
	// BearerboxHost is the bearerbox control-channel hostname.
	BearerboxHost string `koanf:"bearerbox_host"`
	// BearerboxPort is the bearerbox control-channel TCP port.
	BearerboxPort int `koanf:"bearerbox_port"`
	// DeviceHome is the destination DEVICE:home maps to (spec.md Section 6).
	DeviceHome string `koanf:"device_home"`
}

// AdminConfig holds the admin/inspection HTTP endpoint configuration.
type AdminConfig struct {
	// Addr is the HTTP listen address for the admin/metrics endpoint.
	Addr string `koanf:"addr"`
	// MetricsPath is the URL path for the Prometheus metrics endpoint.
	MetricsPath string `koanf:"metrics_path"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// SyslogConfig holds the syslog mirroring configuration (spec.md
// Section 6 "syslog-level").
type SyslogConfig struct {
	// Level is "none" or a log level string; "none" disables syslog.
	Level string `koanf:"level"`
}

// TimersConfig holds the periodic-task intervals (spec.md Section 6
// "heartbeat-freq", "timer-freq").
type TimersConfig struct {
	// HeartbeatFreq is how often a heartbeat message is sent to the
	// bearerbox.
	HeartbeatFreq time.Duration `koanf:"heartbeat_freq"`
	// TimerFreq is the timer wheel's internal tick granularity hint.
	TimerFreq time.Duration `koanf:"timer_freq"`
}

// URLMapRule is one ordered rewrite rule (spec.md Section 6 "URL
// mapping"): exact-prefix when Prefix is true (Src* -> Dst*, tail
// appended), verbatim replacement otherwise.
type URLMapRule struct {
	Src    string `koanf:"src"`
	Dst    string `koanf:"dst"`
	Prefix bool   `koanf:"prefix"`
}

// URLMapConfig holds the ordered URL rewrite rule list.
type URLMapConfig struct {
	Rules []URLMapRule `koanf:"rules"`
}

// -------------------------------------------------------------------------
// Defaults
// -------------------------------------------------------------------------

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Wapbox: WapboxConfig{
			Addr:          ":9201",
			BearerboxHost: "localhost",
			BearerboxPort: 9002,
		},
		Admin: AdminConfig{
			Addr:        ":9100",
			MetricsPath: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Syslog: SyslogConfig{
			Level: "none",
		},
		Timers: TimersConfig{
			HeartbeatFreq: 60 * time.Second,
			TimerFreq:     1 * time.Second,
		},
	}
}

// -------------------------------------------------------------------------
// Loader
// -------------------------------------------------------------------------

// envPrefix is the environment variable prefix for wapbox configuration.
// Variables are named WAPBOX_<section>_<key>, e.g., WAPBOX_ADMIN_ADDR.
const envPrefix = "WAPBOX_"

// mapURLMaxKeys is the greatest number of indexed map-url-N entries
// Load will look for in the raw koanf tree; the rules found are appended
// after the structured urlmap.rules list (spec.md Section 6: "map-url-max: int,
// map-url: \"src dst\", map-url-N: ... for 0..max").
const mapURLMaxKeys = 64

// Load reads configuration from a YAML file at path, overlays environment
// variable overrides (WAPBOX_ prefix), and merges on top of
// DefaultConfig(). Missing fields inherit defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config from %s: %w", path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.URLMap.Rules = append(cfg.URLMap.Rules, parseIndexedMapURLRules(k)...)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config from %s: %w", path, err)
	}

	return cfg, nil
}

// parseIndexedMapURLRules reads the legacy "map-url", "map-url-0",
// "map-url-1", ... style keys (spec.md Section 6). Load appends the
// rules returned here after any structured urlmap.rules entries.
// Each value is "src dst"; src ending in "*" denotes a prefix rule.
func parseIndexedMapURLRules(k *koanf.Koanf) []URLMapRule {
	var rules []URLMapRule

	if v := k.String("map-url"); v != "" {
		if r, ok := parseMapURLValue(v); ok {
			rules = append(rules, r)
		}
	}
	for i := 0; i < mapURLMaxKeys; i++ {
		key := "map-url-" + strconv.Itoa(i)
		v := k.String(key)
		if v == "" {
			continue
		}
		if r, ok := parseMapURLValue(v); ok {
			rules = append(rules, r)
		}
	}
	return rules
}

func parseMapURLValue(v string) (URLMapRule, bool) {
	parts := strings.Fields(v)
	if len(parts) != 2 {
		return URLMapRule{}, false
	}
	src, dst := parts[0], parts[1]
	prefix := strings.HasSuffix(src, "*")
	if prefix {
		src = strings.TrimSuffix(src, "*")
		dst = strings.TrimSuffix(dst, "*")
	}
	return URLMapRule{Src: src, Dst: dst, Prefix: prefix}, true
}

// envKeyMapper transforms WAPBOX_ADMIN_ADDR -> admin.addr. Only the first
// underscore separates section from key, so WAPBOX_ADMIN_METRICS_PATH
// maps to admin.metrics_path.
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.Replace(s, "_", ".", 1)
}

// loadDefaults marshals the default config into koanf as the base layer.
func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"wapbox.addr":           defaults.Wapbox.Addr,
		"wapbox.bearerbox_host": defaults.Wapbox.BearerboxHost,
		"wapbox.bearerbox_port": defaults.Wapbox.BearerboxPort,
		"wapbox.device_home":    defaults.Wapbox.DeviceHome,
		"admin.addr":            defaults.Admin.Addr,
		"admin.metrics_path":    defaults.Admin.MetricsPath,
		"log.level":             defaults.Log.Level,
		"log.format":            defaults.Log.Format,
		"syslog.level":          defaults.Syslog.Level,
		"timers.heartbeat_freq": defaults.Timers.HeartbeatFreq.String(),
		"timers.timer_freq":     defaults.Timers.TimerFreq.String(),
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Validation
// -------------------------------------------------------------------------

// Validation errors.
var (
	ErrEmptyWapboxAddr        = errors.New("wapbox.addr must not be empty")
	ErrEmptyBearerboxHost     = errors.New("wapbox.bearerbox_host must not be empty")
	ErrInvalidBearerboxPort   = errors.New("wapbox.bearerbox_port must be between 1 and 65535")
	ErrInvalidHeartbeatFreq   = errors.New("timers.heartbeat_freq must be > 0")
	ErrInvalidTimerFreq       = errors.New("timers.timer_freq must be > 0")
	ErrInvalidURLMapRule      = errors.New("urlmap rule must have both src and dst")
)

// Validate checks the configuration for logical errors.
// Returns the first validation error encountered.
func Validate(cfg *Config) error {
	if cfg.Wapbox.Addr == "" {
		return ErrEmptyWapboxAddr
	}
	if cfg.Wapbox.BearerboxHost == "" {
		return ErrEmptyBearerboxHost
	}
	if cfg.Wapbox.BearerboxPort < 1 || cfg.Wapbox.BearerboxPort > 65535 {
		return ErrInvalidBearerboxPort
	}
	if cfg.Timers.HeartbeatFreq <= 0 {
		return ErrInvalidHeartbeatFreq
	}
	if cfg.Timers.TimerFreq <= 0 {
		return ErrInvalidTimerFreq
	}
	for i, r := range cfg.URLMap.Rules {
		if r.Src == "" || r.Dst == "" {
			return fmt.Errorf("urlmap.rules[%d]: %w", i, ErrInvalidURLMapRule)
		}
	}
	return nil
}

// -------------------------------------------------------------------------
// Log Level Parsing
// -------------------------------------------------------------------------

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
