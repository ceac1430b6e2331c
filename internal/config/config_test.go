package config_test

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pruiz/wapbox/internal/config"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "wapbox.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()

	if cfg.Wapbox.Addr != ":9201" {
		t.Errorf("Wapbox.Addr = %q, want %q", cfg.Wapbox.Addr, ":9201")
	}
	if cfg.Wapbox.BearerboxHost != "localhost" {
		t.Errorf("Wapbox.BearerboxHost = %q, want %q", cfg.Wapbox.BearerboxHost, "localhost")
	}
	if cfg.Wapbox.BearerboxPort != 9002 {
		t.Errorf("Wapbox.BearerboxPort = %d, want %d", cfg.Wapbox.BearerboxPort, 9002)
	}
	if cfg.Admin.Addr != ":9100" {
		t.Errorf("Admin.Addr = %q, want %q", cfg.Admin.Addr, ":9100")
	}
	if cfg.Admin.MetricsPath != "/metrics" {
		t.Errorf("Admin.MetricsPath = %q, want %q", cfg.Admin.MetricsPath, "/metrics")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "json")
	}
	if cfg.Timers.HeartbeatFreq != 60*time.Second {
		t.Errorf("Timers.HeartbeatFreq = %v, want %v", cfg.Timers.HeartbeatFreq, 60*time.Second)
	}
	if cfg.Timers.TimerFreq != 1*time.Second {
		t.Errorf("Timers.TimerFreq = %v, want %v", cfg.Timers.TimerFreq, 1*time.Second)
	}

	if err := config.Validate(cfg); err != nil {
		t.Errorf("DefaultConfig() failed validation: %v", err)
	}
}

func TestLoadFromYAML(t *testing.T) {
	t.Parallel()

	yamlContent := `
wapbox:
  addr: ":9301"
  bearerbox_host: "bb.example.internal"
  bearerbox_port: 9003
admin:
  addr: ":9400"
  metrics_path: "/custom-metrics"
log:
  level: "debug"
  format: "text"
timers:
  heartbeat_freq: "30s"
  timer_freq: "500ms"
`

	path := writeTemp(t, yamlContent)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	if cfg.Wapbox.Addr != ":9301" {
		t.Errorf("Wapbox.Addr = %q, want %q", cfg.Wapbox.Addr, ":9301")
	}
	if cfg.Wapbox.BearerboxHost != "bb.example.internal" {
		t.Errorf("Wapbox.BearerboxHost = %q, want %q", cfg.Wapbox.BearerboxHost, "bb.example.internal")
	}
	if cfg.Wapbox.BearerboxPort != 9003 {
		t.Errorf("Wapbox.BearerboxPort = %d, want %d", cfg.Wapbox.BearerboxPort, 9003)
	}
	if cfg.Admin.Addr != ":9400" {
		t.Errorf("Admin.Addr = %q, want %q", cfg.Admin.Addr, ":9400")
	}
	if cfg.Admin.MetricsPath != "/custom-metrics" {
		t.Errorf("Admin.MetricsPath = %q, want %q", cfg.Admin.MetricsPath, "/custom-metrics")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
	if cfg.Timers.HeartbeatFreq != 30*time.Second {
		t.Errorf("Timers.HeartbeatFreq = %v, want %v", cfg.Timers.HeartbeatFreq, 30*time.Second)
	}
	if cfg.Timers.TimerFreq != 500*time.Millisecond {
		t.Errorf("Timers.TimerFreq = %v, want %v", cfg.Timers.TimerFreq, 500*time.Millisecond)
	}
}

func TestLoadMergesDefaults(t *testing.T) {
	t.Parallel()

	yamlContent := `
wapbox:
  addr: ":9999"
log:
  level: "warn"
`

	path := writeTemp(t, yamlContent)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	if cfg.Wapbox.Addr != ":9999" {
		t.Errorf("Wapbox.Addr = %q, want %q", cfg.Wapbox.Addr, ":9999")
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "warn")
	}

	if cfg.Wapbox.BearerboxHost != "localhost" {
		t.Errorf("Wapbox.BearerboxHost = %q, want default %q", cfg.Wapbox.BearerboxHost, "localhost")
	}
	if cfg.Admin.Addr != ":9100" {
		t.Errorf("Admin.Addr = %q, want default %q", cfg.Admin.Addr, ":9100")
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want default %q", cfg.Log.Format, "json")
	}
}

func TestLoadMapURLLegacyKeys(t *testing.T) {
	t.Parallel()

	yamlContent := `
wapbox:
  addr: ":9201"
map-url: "DEVICE:home http://origin.example/home"
map-url-0: "/wap/* http://origin.example/*"
map-url-1: "/legacy http://origin.example/legacy-handler"
`

	path := writeTemp(t, yamlContent)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	if len(cfg.URLMap.Rules) != 3 {
		t.Fatalf("URLMap.Rules count = %d, want 3", len(cfg.URLMap.Rules))
	}

	if cfg.URLMap.Rules[1].Src != "/wap/" || !cfg.URLMap.Rules[1].Prefix {
		t.Errorf("URLMap.Rules[1] = %+v, want prefix rule for /wap/", cfg.URLMap.Rules[1])
	}
}

func TestValidateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*config.Config)
		wantErr error
	}{
		{
			name: "empty wapbox addr",
			modify: func(cfg *config.Config) {
				cfg.Wapbox.Addr = ""
			},
			wantErr: config.ErrEmptyWapboxAddr,
		},
		{
			name: "empty bearerbox host",
			modify: func(cfg *config.Config) {
				cfg.Wapbox.BearerboxHost = ""
			},
			wantErr: config.ErrEmptyBearerboxHost,
		},
		{
			name: "bearerbox port out of range",
			modify: func(cfg *config.Config) {
				cfg.Wapbox.BearerboxPort = 0
			},
			wantErr: config.ErrInvalidBearerboxPort,
		},
		{
			name: "bearerbox port too large",
			modify: func(cfg *config.Config) {
				cfg.Wapbox.BearerboxPort = 70000
			},
			wantErr: config.ErrInvalidBearerboxPort,
		},
		{
			name: "zero heartbeat freq",
			modify: func(cfg *config.Config) {
				cfg.Timers.HeartbeatFreq = 0
			},
			wantErr: config.ErrInvalidHeartbeatFreq,
		},
		{
			name: "zero timer freq",
			modify: func(cfg *config.Config) {
				cfg.Timers.TimerFreq = 0
			},
			wantErr: config.ErrInvalidTimerFreq,
		},
		{
			name: "incomplete urlmap rule",
			modify: func(cfg *config.Config) {
				cfg.URLMap.Rules = []config.URLMapRule{{Src: "/foo"}}
			},
			wantErr: config.ErrInvalidURLMapRule,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.DefaultConfig()
			tt.modify(cfg)

			err := config.Validate(cfg)
			if err == nil {
				t.Fatal("Validate() returned nil, want error")
			}

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  slog.Level
	}{
		{input: "debug", want: slog.LevelDebug},
		{input: "DEBUG", want: slog.LevelDebug},
		{input: "info", want: slog.LevelInfo},
		{input: "warn", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "unknown", want: slog.LevelInfo},
		{input: "", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got := config.ParseLogLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoadNonexistentFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load("/nonexistent/path/wapbox.yml")
	if err == nil {
		t.Fatal("Load() returned nil error for nonexistent file")
	}
}
