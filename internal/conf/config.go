// config.go: settings for the BoxLens capture-to-inventory service.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

//go:embed config.yaml
var configFiles embed.FS

// LogConfig defines the configuration for a log file
type LogConfig struct {
	Enabled     bool         // true to enable this log
	Path        string       // path to log file
	Rotation    RotationType // rotation type
	MaxSize     int64        // max size in bytes for RotationSize
	RotationDay string       // day of the week for RotationWeekly
}

// RotationType defines the log rotation type
type RotationType string

const (
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationSize   RotationType = "size"
)

// MainSettings contains the main application settings
type MainSettings struct {
	Name string    // name of this node, can be used to identify the source
	Log  LogConfig // main application log settings
}

// VisionSettings contains settings for the external vision-understanding service
type VisionSettings struct {
	Endpoint      string // base URL of the vision service
	APIKey        string // bearer token for the vision service
	Model         string // model identifier sent with each request
	Timeout       int    // request timeout in seconds
	MaxImageSize  int64  // maximum accepted image payload in bytes
	MaxDetections int    // cap on detected items taken from one response
	Debug         bool   // true to enable vision client debug logging
}

// SQLiteSettings contains settings for the SQLite database
type SQLiteSettings struct {
	Enabled bool   // true to enable SQLite
	Path    string // path to SQLite database
}

// MySQLSettings contains settings for the MySQL database
type MySQLSettings struct {
	Enabled  bool   // true to enable MySQL
	Username string // MySQL username
	Password string // MySQL password
	Database string // MySQL database name
	Host     string // MySQL host
	Port     string // MySQL port
}

// OutputSettings contains settings for the persistence layer
type OutputSettings struct {
	SQLite SQLiteSettings
	MySQL  MySQLSettings
}

// WebServerSettings contains settings for the HTTP API
type WebServerSettings struct {
	Enabled bool   // true to enable the web server
	Port    string // port for the web server
	Debug   bool   // true to enable web server debug logging
	Log     LogConfig
}

// PipelineSettings bounds the analysis pipeline
type PipelineSettings struct {
	MaxConcurrent int64 // maximum number of captures analyzed concurrently
}

// BroadcastSettings tunes the status notification broadcaster
type BroadcastSettings struct {
	ChannelBuffer  int // per-subscriber channel buffer size
	SnapshotTTL    int // seconds a terminal capture status lingers in the poll snapshot
	Debug          bool
}

// PushSettings configures optional forwarding of terminal pipeline
// events to an external notification gateway (shoutrrr URL).
type PushSettings struct {
	Enabled bool   // true to forward completed/error events
	URL     string // shoutrrr service URL, e.g. "generic+https://..."
}

// SentrySettings contains settings for error telemetry
type SentrySettings struct {
	Enabled     bool   // true to enable Sentry error reporting
	DSN         string // Sentry project DSN
	Environment string // deployment environment tag
}

// Settings contains all configuration options for the service
type Settings struct {
	Debug bool // true to enable debug mode

	Main      MainSettings
	Vision    VisionSettings
	Output    OutputSettings
	WebServer WebServerSettings
	Pipeline  PipelineSettings
	Broadcast BroadcastSettings
	Push      PushSettings
	Sentry    SentrySettings
}

// settingsInstance is the current settings instance
var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	// Set default values for each configuration parameter
	// function defined in defaults.go
	setDefaultConfig()

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, create config with defaults
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded default config to the first config path.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	defaultConfig, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return fmt.Errorf("error reading embedded default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, defaultConfig, 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	log.Printf("Created default config file at %s", configPath)
	return viper.ReadInConfig()
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, initializing it if necessary
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			_, err := Load()
			if err != nil {
				log.Fatalf("Error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}

// SetTestSettings installs a settings instance directly, for tests.
func SetTestSettings(settings *Settings) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	once.Do(func() {})
	settingsInstance = settings
}

// SaveSettings saves the current settings to the configuration file.
func SaveSettings() error {
	settingsMutex.RLock()
	settingsCopy := *settingsInstance
	settingsMutex.RUnlock()

	configPath, err := FindConfigFile()
	if err != nil {
		return fmt.Errorf("error finding config file: %w", err)
	}

	if err := SaveYAMLConfig(configPath, &settingsCopy); err != nil {
		return fmt.Errorf("error saving config: %w", err)
	}

	log.Printf("Settings saved successfully to %s", configPath)
	return nil
}

// SaveYAMLConfig updates the YAML configuration file with new settings.
// It overwrites the existing file, not preserving comments or structure.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	// Write to a temporary file first for an atomic replace
	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary config file: %w", err)
	}
	tempName := tempFile.Name()

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		os.Remove(tempName)
		return fmt.Errorf("error writing temporary config file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("error closing temporary config file: %w", err)
	}

	if err := os.Rename(tempName, configPath); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("error replacing config file: %w", err)
	}

	return nil
}

// FindConfigFile returns the path of the first existing config file
// in the default config paths.
func FindConfigFile() (string, error) {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return "", fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		configPath := filepath.Join(path, "config.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}
	}

	return "", fmt.Errorf("no config file found in: %v", configPaths)
}

// GetDefaultConfigPaths returns the default config file locations,
// in priority order.
func GetDefaultConfigPaths() ([]string, error) {
	var paths []string

	if dir := os.Getenv("BOXLENS_CONFIG_DIR"); dir != "" {
		paths = append(paths, dir)
	}

	configDir, err := os.UserConfigDir()
	if err == nil {
		paths = append(paths, filepath.Join(configDir, "boxlens"))
	}

	paths = append(paths, ".")

	if len(paths) == 0 {
		return nil, fmt.Errorf("no config paths available")
	}

	return paths, nil
}

// GetBasePath resolves a relative directory against the first config
// path, creating it if needed. Absolute paths are returned as-is.
func GetBasePath(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}

	configPaths, err := GetDefaultConfigPaths()
	if err != nil || len(configPaths) == 0 {
		return dir
	}

	basePath := filepath.Join(configPaths[0], dir)
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		log.Printf("Error creating directory %s: %v", basePath, err)
		return dir
	}
	return basePath
}
