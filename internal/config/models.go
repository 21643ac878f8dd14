package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/smoogipooo/osu--Background-Overlay/internal/logger"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	LogLevel string `json:"log_level" yaml:"log_level"`

	// Target process lookup, tried in order
	ProcessNames  []string      `json:"process_names" yaml:"process_names"`
	PollInterval  time.Duration `json:"poll_interval" yaml:"poll_interval"`
	SearchBackoff time.Duration `json:"search_backoff" yaml:"search_backoff"`

	// Coordinator and input timings
	Debounce    time.Duration `json:"debounce" yaml:"debounce"`
	FocusSettle time.Duration `json:"focus_settle" yaml:"focus_settle"`
	KeySettle   time.Duration `json:"key_settle" yaml:"key_settle"`

	// Skin layout
	SkinsDir       string `json:"skins_dir" yaml:"skins_dir"`
	BackgroundName string `json:"background_name" yaml:"background_name"`
	BackupPrefix   string `json:"backup_prefix" yaml:"backup_prefix"`
	JPEGQuality    int    `json:"jpeg_quality" yaml:"jpeg_quality"`

	// WallpaperPath overrides the OS wallpaper lookup. Required where the OS
	// exposes no wallpaper setting.
	WallpaperPath string `json:"wallpaper_path" yaml:"wallpaper_path"`

	// StatusPort enables the local status API when non-zero
	StatusPort int `json:"status_port" yaml:"status_port"`
}

// Defaults returns the default configuration
func Defaults() *Config {
	return &Config{
		LogLevel:       "info",
		ProcessNames:   []string{"osu!", "osu!test"},
		PollInterval:   100 * time.Millisecond,
		SearchBackoff:  time.Second,
		Debounce:       time.Second,
		FocusSettle:    100 * time.Millisecond,
		KeySettle:      100 * time.Millisecond,
		SkinsDir:       "Skins",
		BackgroundName: "menu-background.jpg",
		BackupPrefix:   "BGOBackup_",
		JPEGQuality:    95,
	}
}

// Validate checks the configuration for values the components cannot work with
func (c *Config) Validate() error {
	if !logger.ValidLevel(c.LogLevel) {
		return fmt.Errorf("invalid log_level: %q", c.LogLevel)
	}
	if len(c.ProcessNames) == 0 {
		return fmt.Errorf("process_names must not be empty")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if c.SearchBackoff < 0 || c.Debounce < 0 || c.FocusSettle < 0 || c.KeySettle < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	if c.BackgroundName == "" || c.BackupPrefix == "" || c.SkinsDir == "" {
		return fmt.Errorf("skins_dir, background_name and backup_prefix must be set")
	}
	if strings.ContainsAny(c.BackgroundName, `/\`) {
		return fmt.Errorf("background_name must be a file name, got %q", c.BackgroundName)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg_quality must be between 1 and 100")
	}
	if c.StatusPort < 0 || c.StatusPort > 65535 {
		return fmt.Errorf("invalid status_port: %d", c.StatusPort)
	}
	return nil
}

// Manager handles configuration
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configFile string) (*Manager, error) {
	actualConfigPath := configFile
	if actualConfigPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		actualConfigPath = filepath.Join(homeDir, ".config", "bgoverlay", "config.yaml")
	}

	m := &Manager{
		configPath: actualConfigPath,
	}

	// Try to read config file
	if err := m.load(); err != nil {
		if os.IsNotExist(err) {
			// Config file not found, create it with defaults
			logger.WithComponent("config").Info().
				Str("path", m.configPath).
				Msg("Config file not found, creating new config")
			m.config = Defaults()
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Strs("process_names", m.config.ProcessNames).
		Msg("Config loaded")

	return m, nil
}

// load reads the configuration from disk. Keys missing from the file keep
// their default values.
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", m.configPath, err)
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return Defaults()
	}

	cfg := *m.config
	cfg.ProcessNames = append([]string(nil), m.config.ProcessNames...)
	return &cfg
}

// Save saves the current configuration to disk
func (m *Manager) Save() error {
	cfg := m.Get()

	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return err
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Config saved")
	return nil
}

// Update replaces the entire configuration
func (m *Manager) Update(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return m.Save()
}

// Set parses value according to the type of key and stores it in memory.
// Call Save to persist.
func (m *Manager) Set(key, value string) error {
	cfg := m.Get()

	switch key {
	case "log_level":
		validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
		if !validLevels[value] {
			return fmt.Errorf("invalid log level: %s (use: debug, info, warn, error)", value)
		}
		cfg.LogLevel = value
	case "process_names":
		var names []string
		for _, n := range strings.Split(value, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
		cfg.ProcessNames = names
	case "poll_interval", "search_backoff", "debounce", "focus_settle", "key_settle":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %s", value)
		}
		switch key {
		case "poll_interval":
			cfg.PollInterval = d
		case "search_backoff":
			cfg.SearchBackoff = d
		case "debounce":
			cfg.Debounce = d
		case "focus_settle":
			cfg.FocusSettle = d
		case "key_settle":
			cfg.KeySettle = d
		}
	case "jpeg_quality", "status_port":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid number: %s", value)
		}
		if key == "jpeg_quality" {
			cfg.JPEGQuality = n
		} else {
			cfg.StatusPort = n
		}
	case "skins_dir":
		cfg.SkinsDir = value
	case "background_name":
		cfg.BackgroundName = value
	case "backup_prefix":
		cfg.BackupPrefix = value
	case "wallpaper_path":
		cfg.WallpaperPath = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Lookup returns the YAML representation of a single key
func (m *Manager) Lookup(key string) (string, error) {
	data, err := yaml.Marshal(m.Get())
	if err != nil {
		return "", err
	}
	var fields map[string]interface{}
	if err := yaml.Unmarshal(data, &fields); err != nil {
		return "", err
	}
	v, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("configuration key not found: %s", key)
	}
	if list, ok := v.([]interface{}); ok {
		parts := make([]string, len(list))
		for i, item := range list {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ","), nil
	}
	return fmt.Sprint(v), nil
}

// SetLogLevel sets the log level in memory
func (m *Manager) SetLogLevel(level string) {
	m.mu.Lock()
	m.config.LogLevel = level
	m.mu.Unlock()
}

// SetStatusPort sets the status API port in memory
func (m *Manager) SetStatusPort(port int) {
	m.mu.Lock()
	m.config.StatusPort = port
	m.mu.Unlock()
}

// GetConfigPath returns the path to the config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}
