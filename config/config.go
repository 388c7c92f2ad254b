// Package config provides configuration management for the xpum data-
// logic daemon.
package config

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yaml
var defaultConfig embed.FS

// Config holds all daemon configuration.
type Config struct {
	Daemon     DaemonConfig     `mapstructure:"daemon"`
	Enablement EnablementConfig `mapstructure:"enablement"`
	RawTrace   RawTraceConfig   `mapstructure:"raw_trace"`
	DumpFile   DumpFileConfig   `mapstructure:"dump_file"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// DaemonConfig holds process-lifetime settings.
type DaemonConfig struct {
	// SampleInterval is the dump-file writer's tick interval.
	SampleInterval time.Duration `mapstructure:"sample_interval"`
	// MaxSessions records the session count (MAX_STATISTICS_SESSION_NUM).
	// It is only validated: the bound in use is datalogic.MaxSessions.
	MaxSessions int `mapstructure:"max_sessions"`
	// DeviceCount is the number of physical devices the query facade's
	// device index recognizes, unrelated to MaxSessions.
	DeviceCount int `mapstructure:"device_count"`
}

// EnablementConfig holds the enablement filter's startup settings.
type EnablementConfig struct {
	// Metrics is the XPUM_METRICS-style comma/hyphen-range spec. Empty
	// means "read from the XPUM_METRICS environment variable instead".
	Metrics string `mapstructure:"metrics"`
}

// RawTraceConfig holds the raw-trace manager's bounds.
type RawTraceConfig struct {
	// TaskNumMax is the concurrent trace-task slot count.
	TaskNumMax int `mapstructure:"task_num_max"`
	// CacheSizeLimit is the per-(task, family) row cap before auto-stop.
	CacheSizeLimit int `mapstructure:"cache_size_limit"`
}

// DumpFileConfig holds the CSV dump-file writer's defaults. Neither
// field is read by dumpfile.Writer, which takes the path and
// Options.ShowDate from each Start call.
type DumpFileConfig struct {
	// Directory is the configured dump-file directory.
	Directory string `mapstructure:"directory"`
	// ShowDate is the configured ISO-8601-over-epoch-millis choice.
	ShowDate bool `mapstructure:"show_date"`
}

// LoggingConfig holds logging-related settings.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `mapstructure:"level"`
	// ToFile enables logging to a file.
	ToFile bool `mapstructure:"to_file"`
	// FilePath is the path to the log file (relative to config dir if not absolute).
	FilePath string `mapstructure:"file_path"`
	// MaxFileSize is the maximum log file size in megabytes before rotation.
	MaxFileSize int `mapstructure:"max_file_size_mb"`
	// MaxAge is the maximum age of log files in days.
	MaxAge int `mapstructure:"max_age"`
	// MaxBackups is the maximum number of old log files to retain.
	MaxBackups int `mapstructure:"max_backups"`
}

// MetricsConfig holds the operational Prometheus endpoint's settings.
type MetricsConfig struct {
	// Enabled exposes the /metrics endpoint.
	Enabled bool `mapstructure:"enabled"`
	// ListenAddress is the address the /metrics endpoint binds to.
	ListenAddress string `mapstructure:"listen_address"`
}

// Manager handles configuration loading.
type Manager struct {
	mu       sync.RWMutex
	config   *Config
	viper    *viper.Viper
	filePath string
}

var (
	instance *Manager
	once     sync.Once
)

// GetManager returns the singleton configuration manager instance.
func GetManager() *Manager {
	once.Do(func() {
		instance = &Manager{
			viper: viper.New(),
		}
	})
	return instance
}

// Load loads the configuration from the specified file path. If the
// file doesn't exist, it creates a default configuration from the
// embedded template; an empty path loads the embedded template
// directly without writing anything to disk.
func (m *Manager) Load(configPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.filePath = configPath
	m.viper.SetConfigType("yaml")
	m.setDefaults()

	if configPath != "" {
		m.viper.SetConfigFile(configPath)
		if err := m.viper.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				if err := m.createDefaultConfig(configPath); err != nil {
					return fmt.Errorf("failed to create default config: %w", err)
				}
				if err := m.viper.ReadInConfig(); err != nil {
					return fmt.Errorf("failed to read newly created config: %w", err)
				}
			} else {
				return fmt.Errorf("failed to read config: %w", err)
			}
		}
	} else {
		data, err := defaultConfig.ReadFile("config.yaml")
		if err != nil {
			return fmt.Errorf("failed to read embedded config: %w", err)
		}
		if err := m.viper.ReadConfig(newByteReader(data)); err != nil {
			return fmt.Errorf("failed to parse embedded config: %w", err)
		}
	}

	m.config = &Config{}
	if err := m.viper.Unmarshal(m.config); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "xpum"), nil
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

func (m *Manager) setDefaults() {
	m.viper.SetDefault("daemon.sample_interval", time.Second)
	m.viper.SetDefault("daemon.max_sessions", 10)
	m.viper.SetDefault("daemon.device_count", 4)

	m.viper.SetDefault("enablement.metrics", "")

	m.viper.SetDefault("raw_trace.task_num_max", 10)
	m.viper.SetDefault("raw_trace.cache_size_limit", 10_000)

	m.viper.SetDefault("dump_file.directory", "dumps")
	m.viper.SetDefault("dump_file.show_date", true)

	m.viper.SetDefault("logging.level", "info")
	m.viper.SetDefault("logging.to_file", true)
	m.viper.SetDefault("logging.file_path", "logs/xpum.log")
	m.viper.SetDefault("logging.max_file_size_mb", 10)
	m.viper.SetDefault("logging.max_age", 7)
	m.viper.SetDefault("logging.max_backups", 5)

	m.viper.SetDefault("metrics.enabled", true)
	m.viper.SetDefault("metrics.listen_address", ":9400")
}

// createDefaultConfig creates a default configuration file from the
// embedded template.
func (m *Manager) createDefaultConfig(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := defaultConfig.ReadFile("config.yaml")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// byteReader implements io.Reader for []byte, so viper can read the
// embedded default config without a temporary file.
type byteReader struct {
	data []byte
	pos  int
}

func newByteReader(data []byte) *byteReader {
	return &byteReader{data: data}
}

func (r *byteReader) Read(p []byte) (n int, err error) {
	if r.pos >= len(r.data) {
		return 0, fmt.Errorf("EOF")
	}
	n = copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() []error {
	var errs []error

	if c.Daemon.SampleInterval < 100*time.Millisecond {
		errs = append(errs, fmt.Errorf("daemon.sample_interval must be at least 100ms"))
	}
	if c.Daemon.MaxSessions < 1 {
		errs = append(errs, fmt.Errorf("daemon.max_sessions must be at least 1"))
	}
	if c.Daemon.DeviceCount < 1 {
		errs = append(errs, fmt.Errorf("daemon.device_count must be at least 1"))
	}
	if c.RawTrace.TaskNumMax < 1 {
		errs = append(errs, fmt.Errorf("raw_trace.task_num_max must be at least 1"))
	}
	if c.RawTrace.CacheSizeLimit < 1 {
		errs = append(errs, fmt.Errorf("raw_trace.cache_size_limit must be at least 1"))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		errs = append(errs, fmt.Errorf("invalid log level: %s", c.Logging.Level))
	}
	if c.Logging.MaxFileSize < 1 {
		errs = append(errs, fmt.Errorf("logging.max_file_size_mb must be at least 1"))
	}

	return errs
}
