package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Configuration keys. Each one can be set through the environment, the
// optional config file, or the matching command line flag.
const (
	KeyConfigFile   = "CONFIG_FILE"
	KeyInputPath    = "INPUT_PATH"
	KeyResultsPath  = "RESULTS_PATH"
	KeyWorkspaceDir = "WORKSPACE_DIR"
	KeyBaseBranches = "BASE_BRANCHES"
	KeyGitBinary    = "GIT_BINARY"
	KeyGitTimeout   = "GIT_TIMEOUT"
	KeyLockTimeout  = "LOCK_TIMEOUT"
	KeyLogLevel     = "LOG_LEVEL"
	KeyDBEnabled    = "DATABASE_ENABLED"
)

// ErrInvalidConfig is returned when a setting is missing or unusable
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all configuration for the application
type Config struct {
	InputPath    string
	ResultsPath  string
	WorkspaceDir string
	BaseBranches []string
	GitBinary    string
	GitTimeout   time.Duration
	LockTimeout  time.Duration
	LogLevel     string
	Database     DatabaseConfig
}

// DatabaseConfig holds the optional Postgres results sink settings
type DatabaseConfig struct {
	Enabled         bool
	User            string
	Password        string
	Name            string
	Host            string
	Port            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns the lib/pq connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s port=%s host=%s sslmode=%s",
		d.User, d.Password, d.Name, d.Port, d.Host, d.SSLMode,
	)
}

// NewConfig creates a new Config instance
func NewConfig() *Config {
	return &Config{}
}

// SetDefaults registers the default value of every optional setting
func SetDefaults() {
	viper.SetDefault(KeyConfigFile, ".env")
	viper.SetDefault(KeyResultsPath, "pr_commits_results.csv")
	viper.SetDefault(KeyWorkspaceDir, "./repos")
	viper.SetDefault(KeyBaseBranches, "main,master")
	viper.SetDefault(KeyGitBinary, "git")
	viper.SetDefault(KeyGitTimeout, "30m")
	viper.SetDefault(KeyLockTimeout, "5s")
	viper.SetDefault(KeyLogLevel, "info")
	viper.SetDefault(KeyDBEnabled, false)
	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", "5432")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 5)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "5m")
}

// Load loads configuration from the environment and the optional config file
func (c *Config) Load() error {
	SetDefaults()
	viper.AutomaticEnv()

	// Read the config file only if it exists
	if configFile := viper.GetString(KeyConfigFile); configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			viper.SetConfigFile(configFile)
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read config file: %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	// Required fields
	c.InputPath = viper.GetString(KeyInputPath)
	if c.InputPath == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidConfig, KeyInputPath)
	}

	c.ResultsPath = viper.GetString(KeyResultsPath)
	c.WorkspaceDir = viper.GetString(KeyWorkspaceDir)
	c.GitBinary = viper.GetString(KeyGitBinary)
	c.LogLevel = viper.GetString(KeyLogLevel)
	if c.ResultsPath == "" || c.WorkspaceDir == "" {
		return fmt.Errorf("%w: %s and %s cannot be empty", ErrInvalidConfig, KeyResultsPath, KeyWorkspaceDir)
	}

	c.BaseBranches = splitList(viper.GetString(KeyBaseBranches))
	if len(c.BaseBranches) == 0 {
		return fmt.Errorf("%w: %s cannot be empty", ErrInvalidConfig, KeyBaseBranches)
	}

	var err error
	if c.GitTimeout, err = duration(KeyGitTimeout); err != nil {
		return err
	}
	if c.LockTimeout, err = duration(KeyLockTimeout); err != nil {
		return err
	}

	return c.loadDatabase()
}

func (c *Config) loadDatabase() error {
	c.Database = DatabaseConfig{
		Enabled:      viper.GetBool(KeyDBEnabled),
		User:         viper.GetString("POSTGRES_USER"),
		Password:     viper.GetString("POSTGRES_PASSWORD"),
		Name:         viper.GetString("POSTGRES_DB"),
		Host:         viper.GetString("POSTGRES_HOST"),
		Port:         viper.GetString("POSTGRES_PORT"),
		SSLMode:      viper.GetString("POSTGRES_SSLMODE"),
		MaxOpenConns: viper.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: viper.GetInt("DB_MAX_IDLE_CONNS"),
	}
	if !c.Database.Enabled {
		return nil
	}

	if c.Database.User == "" || c.Database.Name == "" {
		return fmt.Errorf("%w: POSTGRES_USER and POSTGRES_DB are required when %s is set", ErrInvalidConfig, KeyDBEnabled)
	}

	var err error
	c.Database.ConnMaxLifetime, err = duration("DB_CONN_MAX_LIFETIME")
	return err
}

func duration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: %s cannot be negative", ErrInvalidConfig, key)
	}
	return d, nil
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
