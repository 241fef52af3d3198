package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// ValidationError represents an invalid config setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks every setting and reports all problems at once.
func Validate(c *Config) error {
	var errors []string

	check := func(err error) {
		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	check(validateReleaseURL(c.ReleaseURL))
	check(validateName("executable", c.Executable))
	check(validateName("version_file", c.VersionFile))
	if c.Executable != "" && c.Executable == c.VersionFile {
		check(ValidationError{Field: "version_file", Message: "must differ from executable"})
	}
	check(validateDir("install_dir", c.InstallDir))
	check(validateDir("backup_dir", c.BackupDir))

	if c.RequestTimeout <= 0 {
		check(ValidationError{Field: "request_timeout", Message: "must be positive"})
	}
	if c.Download.Attempts < 1 {
		check(ValidationError{Field: "download.attempts", Message: "must be at least 1"})
	}
	if c.Download.RetryDelay < 0 {
		check(ValidationError{Field: "download.retry_delay", Message: "must not be negative"})
	}
	if c.Download.Timeout <= 0 {
		check(ValidationError{Field: "download.timeout", Message: "must be positive"})
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		check(ValidationError{Field: "log.level", Message: fmt.Sprintf("unknown level '%s'", c.Log.Level)})
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func validateReleaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ValidationError{
			Field:   "release_url",
			Message: fmt.Sprintf("invalid URL '%s' (must be an absolute http or https URL)", raw),
		}
	}
	return nil
}

// validateName checks a file name that lives directly in the install directory.
func validateName(field, name string) error {
	if name == "" {
		return ValidationError{Field: field, Message: "is required"}
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return ValidationError{Field: field, Message: fmt.Sprintf("'%s' must be a plain file name", name)}
	}
	return nil
}

func validateDir(field, dir string) error {
	if dir == "" {
		return ValidationError{Field: field, Message: "is required"}
	}
	if filepath.Clean(dir) == "." {
		return ValidationError{Field: field, Message: "must not be the launcher directory"}
	}
	return nil
}
