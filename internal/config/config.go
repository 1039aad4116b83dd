package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"cuppasync/internal/utils"

	_ "embed"
)

var configOnce sync.Once

var globalConfig *Config

var customConfigPath string // Custom config path set via --config flag

//go:embed config.sample.yaml
var sampleConfig []byte

const (
	CONFIG_DIR_PATH  = "cuppasync"
	CONFIG_FILE_PATH = "config.yaml"
	CONFIG_DIR_PERM  = 0755
	CONFIG_FILE_PERM = 0600
)

// Defaults applied to empty fields.
const (
	DefaultTable         = "offline_mutations"
	DefaultAPIKeyHeader  = "apikey"
	DefaultStorage       = "sqlite"
	DefaultMaxRetries    = 3
	DefaultSource        = "probe"
	DefaultProbeInterval = 15 * time.Second
	DefaultStyle         = "auto"
	DefaultProfile       = "default"
)

// Config is the application configuration.
type Config struct {
	Remote        RemoteConfig        `yaml:"remote"`
	Profile       string              `yaml:"profile" validate:"omitempty,max=64"`
	Storage       StorageConfig       `yaml:"storage"`
	Sync          SyncConfig          `yaml:"sync"`
	Connectivity  ConnectivityConfig  `yaml:"connectivity"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Conflict      ConflictConfig      `yaml:"conflict"`
	UserID        string              `yaml:"user_id"`
}

// RemoteConfig locates the remote mutation log.
type RemoteConfig struct {
	BaseURL      string        `yaml:"base_url" validate:"omitempty,url"`
	Table        string        `yaml:"table" validate:"omitempty,max=63"`
	APIKeyHeader string        `yaml:"api_key_header"`
	Timeout      time.Duration `yaml:"timeout" validate:"gte=0"`
	APIKey       string        `yaml:"api_key"`
	AccessToken  string        `yaml:"access_token"`
}

// StorageConfig selects where the queue is persisted.
type StorageConfig struct {
	Backend string `yaml:"backend" validate:"oneof=sqlite file memory"`
	Path    string `yaml:"path"`
}

// SyncConfig holds retry and scheduling policy.
type SyncConfig struct {
	MaxRetries             int  `yaml:"max_retries" validate:"gte=1,lte=100"`
	DrainOnStart           bool `yaml:"drain_on_start"`
	BackgroundAfterEnqueue bool `yaml:"background_after_enqueue"`
}

// ConnectivityConfig selects the reachability source of the watch daemon.
type ConnectivityConfig struct {
	Source     string        `yaml:"source" validate:"oneof=probe file manual"`
	ProbeURL   string        `yaml:"probe_url" validate:"omitempty,url"`
	Interval   time.Duration `yaml:"interval" validate:"gte=0"`
	StatusFile string        `yaml:"status_file"`
}

// NotificationsConfig controls toast rendering.
type NotificationsConfig struct {
	Style string `yaml:"style" validate:"oneof=auto plain fancy quiet"`
}

// ConflictConfig selects a merge strategy per operation. Operations not
// listed use the default merge.
type ConflictConfig struct {
	Strategies map[string]string `yaml:"strategies" validate:"dive,keys,required,endkeys,oneof=merge prefer_remote prefer_local"`
}

// ApplyDefaults fills empty fields with their defaults and expands paths.
func (c *Config) ApplyDefaults() error {
	if c.Remote.Table == "" {
		c.Remote.Table = DefaultTable
	}
	if c.Remote.APIKeyHeader == "" {
		c.Remote.APIKeyHeader = DefaultAPIKeyHeader
	}
	if c.Profile == "" {
		c.Profile = DefaultProfile
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = DefaultStorage
	}
	if c.Sync.MaxRetries == 0 {
		c.Sync.MaxRetries = DefaultMaxRetries
	}
	if c.Connectivity.Source == "" {
		c.Connectivity.Source = DefaultSource
	}
	if c.Connectivity.Interval == 0 {
		c.Connectivity.Interval = DefaultProbeInterval
	}
	if c.Notifications.Style == "" {
		c.Notifications.Style = DefaultStyle
	}

	if c.Storage.Path == "" && c.Storage.Backend != "memory" {
		dir, err := utils.DataDir()
		if err != nil {
			return fmt.Errorf("failed to resolve data directory: %w", err)
		}
		c.Storage.Path = filepath.Join(dir, defaultStorageFile(c.Storage.Backend))
	}

	var err error
	if c.Storage.Path, err = utils.ExpandPath(c.Storage.Path); err != nil {
		return fmt.Errorf("failed to expand storage.path: %w", err)
	}
	if c.Connectivity.StatusFile, err = utils.ExpandPath(c.Connectivity.StatusFile); err != nil {
		return fmt.Errorf("failed to expand connectivity.status_file: %w", err)
	}
	return nil
}

func defaultStorageFile(backend string) string {
	if backend == "file" {
		return "queue"
	}
	return "queue.db"
}

// ProbeTarget returns the URL the probe source polls.
func (c *Config) ProbeTarget() string {
	if c.Connectivity.ProbeURL != "" {
		return c.Connectivity.ProbeURL
	}
	return c.Remote.BaseURL
}

func (c Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}

	if c.Storage.Backend != "memory" && c.Storage.Path == "" {
		return utils.ErrInvalidConfig("storage.path", fmt.Sprintf("required for the %s backend", c.Storage.Backend))
	}

	if c.Connectivity.Source == "file" && c.Connectivity.StatusFile == "" {
		return utils.ErrInvalidConfig("connectivity.status_file", "required for the file source")
	}

	return nil
}

// SetCustomConfigPath sets a custom config path to use instead of the default user config directory.
// If path is empty or ".", it uses "./cuppasync/config.yaml" (current directory).
// If path is a directory, it looks for "config.yaml" inside it.
// If path is a file, it uses that file directly.
// This must be called before GetConfig() is called for the first time.
func SetCustomConfigPath(path string) {
	if path == "" || path == "." {
		customConfigPath = filepath.Join(".", CONFIG_DIR_PATH, CONFIG_FILE_PATH)
	} else {
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			customConfigPath = filepath.Join(path, CONFIG_FILE_PATH)
		} else {
			customConfigPath = path
		}
	}
}

// GetConfig loads the configuration once per process and exits on error.
func GetConfig() *Config {
	configOnce.Do(func() {
		config, err := loadUserOrSampleConfig()
		if err != nil {
			log.Fatal(err)
		}
		globalConfig = config
	})
	return globalConfig
}

func loadUserOrSampleConfig() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("config path couldn't be retrieved: %w", err)
	}
	configData, err := configDataFromPath(configPath)
	if err != nil {
		return nil, err
	}
	return ParseConfig(configData, configPath)
}

// GetConfigPath returns the active config file path.
func GetConfigPath() (string, error) {
	if customConfigPath != "" {
		// Returned even if missing so the config can be created there.
		return customConfigPath, nil
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config dir: %w", err)
	}
	return filepath.Join(dir, CONFIG_DIR_PATH, CONFIG_FILE_PATH), nil
}

// Load reads, defaults and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, utils.ErrConfigFileNotFound(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig decodes YAML config data. path is only used in messages.
func ParseConfig(configData []byte, configPath string) (*Config, error) {
	var configObj Config
	dec := yaml.NewDecoder(bytes.NewReader(configData))
	dec.KnownFields(true)
	if err := dec.Decode(&configObj); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid YAML in config file %s: %w", configPath, err)
	}

	if err := configObj.ApplyDefaults(); err != nil {
		return nil, err
	}
	if err := configObj.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return &configObj, nil
}

// Sample returns the embedded sample configuration.
func Sample() []byte {
	return sampleConfig
}

func createConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), CONFIG_DIR_PERM)
}

// WriteConfigFile writes data to configPath, creating its directory.
func WriteConfigFile(configPath string, data []byte) error {
	if err := createConfigDir(configPath); err != nil {
		return err
	}
	return os.WriteFile(configPath, data, CONFIG_FILE_PERM)
}

// WriteSample writes the sample config to configPath unless a file exists.
func WriteSample(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config already exists at %s", configPath)
	}
	return WriteConfigFile(configPath, sampleConfig)
}

func configDataFromPath(configPath string) ([]byte, error) {
	configData, err := os.ReadFile(configPath)
	if err == nil {
		return configData, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	fmt.Fprintln(os.Stderr, "No config exists at", configPath)
	if term.IsTerminal(int(os.Stdin.Fd())) && utils.PromptYesNo("Do you want to copy config sample to "+configPath+"?") {
		if err := WriteConfigFile(configPath, sampleConfig); err != nil {
			return nil, fmt.Errorf("failed to write config sample: %w", err)
		}
	}
	return sampleConfig, nil
}
