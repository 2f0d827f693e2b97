// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// savegamesMarker must appear somewhere in the watched directory's
// path (case-insensitive). It is a guard against accidentally running
// savekeeper in an arbitrary directory and backing up the wrong files.
const savegamesMarker = "savegames"

// Config holds the application configuration.
type Config struct {
	App    AppConfig
	Logger LoggerConfig
	Watch  WatchConfig
	Backup BackupConfig
	Server ServerConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// WatchConfig holds save directory watching configuration.
type WatchConfig struct {
	// Dir is the save directory to protect (default: current working
	// directory). Its path must contain the "savegames" marker.
	Dir string
	// SaveExtension is the save file extension without the leading
	// dot (default: baronysave).
	SaveExtension string
	// SettleDelay is how long a save must stay unchanged before the
	// fallback watcher reports it (default: 100ms).
	SettleDelay time.Duration
	// SuppressionWindow is how long change events are ignored after a
	// restore (default: 500ms).
	SuppressionWindow time.Duration
}

// BackupConfig holds backup store configuration.
type BackupConfig struct {
	// DirName is the backup directory name inside the watched
	// directory (default: backups).
	DirName string
	// MaxPerSave bounds how many backups are retained per save
	// (default: 1000).
	MaxPerSave int
	// MaxRetries and RetryDelay bound the shared-read gate used while
	// the game still holds a save open (defaults: 20 and 50ms).
	MaxRetries int
	RetryDelay time.Duration
}

// ServerConfig holds the local control API configuration.
type ServerConfig struct {
	// Port enables the control API when non-empty (default: disabled).
	Port         string
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
}

// SavePattern returns the glob watched save names must match.
func (c *Config) SavePattern() string {
	return "*." + c.Watch.SaveExtension
}

// BackupDir returns the absolute backup directory path.
func (c *Config) BackupDir() string {
	return filepath.Join(c.Watch.Dir, c.Backup.DirName)
}

// APIEnabled reports whether the control API should be served.
func (c *Config) APIEnabled() bool {
	return c.Server.Port != ""
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	// Define command-line flags.
	env := flag.String("env", "", "Environment (development, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	watchDir := flag.String("watch-dir", "", "Save directory to protect (default: current directory)")
	saveExt := flag.String("save-ext", "", "Save file extension without the dot (default: baronysave)")
	backupDirName := flag.String("backup-dir", "", "Backup directory name inside the save directory (default: backups)")
	maxBackups := flag.String("max-backups", "", "Maximum retained backups per save (default: 1000)")
	maxRetries := flag.String("max-retries", "", "Maximum attempts to read a locked save (default: 20)")
	retryDelay := flag.String("retry-delay", "", "Delay between locked-save read attempts (default: 50ms)")
	settleDelay := flag.String("settle-delay", "", "How long a save must stay unchanged before backup (default: 100ms)")
	suppressionWindow := flag.String("suppression-window", "", "How long change events are ignored after a restore (default: 500ms)")
	apiPort := flag.String("api-port", "", "Control API port (default: disabled)")
	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	// Build config with proper precedence.
	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Watch: WatchConfig{
			Dir:           getConfigValue(*watchDir, "WATCH_DIR", "."),
			SaveExtension: strings.TrimPrefix(getConfigValue(*saveExt, "SAVE_EXT", "baronysave"), "."),
		},
		Backup: BackupConfig{
			DirName:    getConfigValue(*backupDirName, "BACKUP_DIR", "backups"),
			MaxPerSave: getIntConfigValue(*maxBackups, "MAX_BACKUPS", 1000),
			MaxRetries: getIntConfigValue(*maxRetries, "MAX_RETRIES", 20),
		},
		Server: ServerConfig{
			Port: getConfigValue(*apiPort, "API_PORT", ""),
		},
	}

	// Parse durations.
	var err error
	if cfg.Backup.RetryDelay, err = getDurationConfigValue(*retryDelay, "RETRY_DELAY", "50ms"); err != nil {
		return nil, err
	}
	if cfg.Watch.SettleDelay, err = getDurationConfigValue(*settleDelay, "SETTLE_DELAY", "100ms"); err != nil {
		return nil, err
	}
	if cfg.Watch.SuppressionWindow, err = getDurationConfigValue(*suppressionWindow, "SUPPRESSION_WINDOW", "500ms"); err != nil {
		return nil, err
	}
	if cfg.Server.ReadTimeout, err = getDurationConfigValue("", "SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.WriteTimeout, err = getDurationConfigValue("", "SERVER_WRITE_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.IdleTimeout, err = getDurationConfigValue("", "SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, err
	}

	// Expand the watch directory to an absolute path.
	if err := cfg.expandWatchDir(); err != nil {
		return nil, fmt.Errorf("invalid watch directory: %w", err)
	}

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Watch.SaveExtension == "" {
		return errors.New("save extension cannot be empty")
	}
	if strings.ContainsAny(c.Watch.SaveExtension, `*?[]/\`) {
		return fmt.Errorf("invalid save extension: %s", c.Watch.SaveExtension)
	}

	if c.Backup.DirName == "" || strings.ContainsAny(c.Backup.DirName, `/\`) {
		return fmt.Errorf("invalid backup directory name: %s", c.Backup.DirName)
	}
	if c.Backup.MaxPerSave <= 0 {
		return fmt.Errorf("max backups per save must be positive, got %d", c.Backup.MaxPerSave)
	}
	if c.Backup.MaxRetries <= 0 {
		return fmt.Errorf("max retries must be positive, got %d", c.Backup.MaxRetries)
	}

	// Refuse to guard a directory that doesn't look like a save
	// directory; backing up (and restoring over) arbitrary files is
	// worse than not starting.
	if !strings.Contains(strings.ToLower(c.Watch.Dir), savegamesMarker) {
		return fmt.Errorf("watch directory %s does not contain the %q marker; refusing to start", c.Watch.Dir, savegamesMarker)
	}

	return nil
}

// expandWatchDir expands ~ and makes the watch directory absolute.
func (c *Config) expandWatchDir() error {
	path := c.Watch.Dir

	if path == "" || path == "." {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		c.Watch.Dir = wd
		return nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	c.Watch.Dir = filepath.Clean(path)
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getDurationConfigValue returns a duration from flag, env var, or default.
func getDurationConfigValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	strValue := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", envKey, strValue, err)
	}
	return d, nil
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Strip surrounding quotes if present.
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			os.Setenv(key, value) //nolint:errcheck // Setting env vars rarely fails
		}
	}

	return scanner.Err()
}
