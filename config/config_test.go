package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadEmbeddedDefaults(t *testing.T) {
	m := &Manager{viper: viper.New()}
	if err := m.Load(""); err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg := m.Get()
	if cfg.Daemon.SampleInterval.Seconds() != 1 {
		t.Errorf("sample_interval = %v, want 1s", cfg.Daemon.SampleInterval)
	}
	if cfg.RawTrace.CacheSizeLimit != 10_000 {
		t.Errorf("cache_size_limit = %d, want 10000", cfg.RawTrace.CacheSizeLimit)
	}
	if cfg.Daemon.DeviceCount != 4 {
		t.Errorf("device_count = %d, want 4", cfg.Daemon.DeviceCount)
	}
}

func TestLoadCreatesFileWhenMissing(t *testing.T) {
	m := &Manager{viper: viper.New()}
	path := t.TempDir() + "/config.yaml"

	if err := m.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg := m.Get(); cfg.Logging.MaxBackups != 5 {
		t.Errorf("max_backups = %d, want 5", cfg.Logging.MaxBackups)
	}
}

func TestValidateRejectsOutOfRangeValues(t *testing.T) {
	cfg := &Config{
		Daemon:   DaemonConfig{SampleInterval: 0, MaxSessions: 10, DeviceCount: 4},
		RawTrace: RawTraceConfig{TaskNumMax: 10, CacheSizeLimit: 10_000},
		Logging:  LoggingConfig{Level: "bogus", MaxFileSize: 10},
	}
	errs := cfg.Validate()
	if len(errs) != 2 {
		t.Fatalf("expected 2 validation errors (interval, level), got %d: %v", len(errs), errs)
	}
}

func TestValidateRejectsZeroDeviceCount(t *testing.T) {
	cfg := &Config{
		Daemon:   DaemonConfig{SampleInterval: time.Second, MaxSessions: 10, DeviceCount: 0},
		RawTrace: RawTraceConfig{TaskNumMax: 10, CacheSizeLimit: 10_000},
		Logging:  LoggingConfig{Level: "info", MaxFileSize: 10},
	}
	errs := cfg.Validate()
	if len(errs) != 1 {
		t.Fatalf("expected 1 validation error (device_count), got %d: %v", len(errs), errs)
	}
}
