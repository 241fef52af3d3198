// Package config handles launcher settings: the optional config file next to
// the launcher, a .env file, and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/trxui/trxloader/internal/layout"
	"github.com/trxui/trxloader/internal/update"
)

// Environment variables consulted after the config file is read.
const (
	EnvConfig     = "TRXLOADER_CONFIG"
	EnvReleaseURL = "TRXLOADER_RELEASE_URL"
	EnvLogLevel   = "TRXLOADER_LOG_LEVEL"
	EnvLogFile    = "TRXLOADER_LOG_FILE"
	EnvInstallDir = "TRXLOADER_INSTALL_DIR"
)

// DefaultLogFile is the log file name, relative to the launcher directory.
const DefaultLogFile = "loader_log.txt"

// LogConsole as the log file sends log output to stderr only.
const LogConsole = "console"

// fileNames are searched for in the launcher directory, in order.
var fileNames = []string{
	"trxloader.yaml",
	"trxloader.yml",
	"trxloader.toml",
	"trxloader.json",
}

// Duration is a time.Duration written as a string such as "2s" or "10m".
type Duration time.Duration

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// DownloadConfig controls artifact downloads.
type DownloadConfig struct {
	Attempts   int      `yaml:"attempts" toml:"attempts" json:"attempts"`
	RetryDelay Duration `yaml:"retry_delay" toml:"retry_delay" json:"retry_delay"`
	Timeout    Duration `yaml:"timeout" toml:"timeout" json:"timeout"` // Per attempt
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level" toml:"level" json:"level"`
	File  string `yaml:"file" toml:"file" json:"file"` // Relative to the launcher directory, or "console"
}

// Config holds the launcher settings. The set of preserved user paths is
// fixed and deliberately absent.
type Config struct {
	InstallDir     string         `yaml:"install_dir" toml:"install_dir" json:"install_dir"`
	Executable     string         `yaml:"executable" toml:"executable" json:"executable"`
	VersionFile    string         `yaml:"version_file" toml:"version_file" json:"version_file"`
	BackupDir      string         `yaml:"backup_dir" toml:"backup_dir" json:"backup_dir"`
	ReleaseURL     string         `yaml:"release_url" toml:"release_url" json:"release_url"`
	UserAgent      string         `yaml:"user_agent" toml:"user_agent" json:"user_agent"`
	GitHubToken    string         `yaml:"github_token,omitempty" toml:"github_token,omitempty" json:"github_token,omitempty"`
	RequestTimeout Duration       `yaml:"request_timeout" toml:"request_timeout" json:"request_timeout"`
	Download       DownloadConfig `yaml:"download" toml:"download" json:"download"`
	Log            LogConfig      `yaml:"log" toml:"log" json:"log"`

	// Path is the file the settings were read from, empty for defaults.
	Path string `yaml:"-" toml:"-" json:"-"`
}

// Default returns the settings used when no config file exists.
func Default() *Config {
	return &Config{
		InstallDir:     layout.DefaultInstallDir,
		Executable:     layout.DefaultExecutable,
		VersionFile:    layout.DefaultVersionFile,
		BackupDir:      layout.DefaultBackupDir,
		ReleaseURL:     update.DefaultReleaseURL,
		UserAgent:      update.DefaultUserAgent,
		RequestTimeout: Duration(update.DefaultRequestTimeout),
		Download: DownloadConfig{
			Attempts:   update.DefaultAttempts,
			RetryDelay: Duration(update.DefaultRetryDelay),
			Timeout:    Duration(update.DefaultAttemptTimeout),
		},
		Log: LogConfig{
			Level: "info",
			File:  DefaultLogFile,
		},
	}
}

// Layout builds the filesystem layout these settings describe.
func (c *Config) Layout(launcherDir string) (layout.Layout, error) {
	return layout.New(launcherDir, c.InstallDir, c.BackupDir, c.Executable, c.VersionFile)
}

// LogPath returns the absolute log file path, or LogConsole.
func (c *Config) LogPath(launcherDir string) string {
	if c.Log.File == "" || c.Log.File == LogConsole {
		return LogConsole
	}
	if filepath.IsAbs(c.Log.File) {
		return c.Log.File
	}
	return filepath.Join(launcherDir, c.Log.File)
}

// Find locates the config file. An explicit path must exist. Otherwise the
// TRXLOADER_CONFIG variable and then the launcher directory are searched. An
// empty result with a nil error means no config file is present.
func Find(explicitPath, launcherDir string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("specified config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	if envPath := os.Getenv(EnvConfig); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
		log.Warnf("%s points to missing file %s, ignoring", EnvConfig, envPath)
	}

	for _, name := range fileNames {
		path := filepath.Join(launcherDir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", nil
}

// LoadEnvFile loads dir/.env into the process environment. Variables that
// are already set win. A missing file is not an error.
func LoadEnvFile(dir string) (bool, error) {
	path := filepath.Join(dir, ".env")
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return true, nil
}

// Load reads the settings from path over the defaults, applies environment
// overrides and validates the result. An empty path yields the defaults with
// overrides applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		format := detectFormat(path, content)
		if format == FormatUnknown {
			return nil, fmt.Errorf("unable to detect file format for %s", path)
		}

		if err := parse(content, format, cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		cfg.Path = path
	}

	cfg.applyEnv()

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv overrides settings from TRXLOADER_* variables.
func (c *Config) applyEnv() {
	overrides := []struct {
		env   string
		field *string
	}{
		{EnvReleaseURL, &c.ReleaseURL},
		{EnvLogLevel, &c.Log.Level},
		{EnvLogFile, &c.Log.File},
		{EnvInstallDir, &c.InstallDir},
	}

	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.field = v
		}
	}
}
