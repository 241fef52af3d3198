// Package logging configures logrus for the launcher.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Console as the log path keeps output on stderr.
const Console = "console"

// Init parses and sets the log level and output of the standard logger and
// tags every entry with a fresh run id. The returned closer releases the log
// file and must be called on exit.
func Init(logLevel string, logPath string) (io.Closer, error) {
	return Setup(log.StandardLogger(), logLevel, logPath)
}

// Setup configures logger the way Init configures the standard logger.
func Setup(logger *log.Logger, logLevel string, logPath string) (io.Closer, error) {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		logger.Errorf("Failed parsing log-level %s: %s", logLevel, err)
		return nil, err
	}

	var closer io.Closer = nopCloser{}
	logger.SetOutput(os.Stderr)
	if logPath != "" && logPath != Console {
		lumberjackLogger := &lumberjack.Logger{
			// Log file absolute path, os agnostic
			Filename:   filepath.ToSlash(logPath),
			MaxSize:    5, // MB
			MaxBackups: 3,
			MaxAge:     30, // days
		}
		logger.SetOutput(lumberjackLogger)
		closer = lumberjackLogger
	}

	logger.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(level)
	logger.ReplaceHooks(make(log.LevelHooks))
	logger.AddHook(NewRunHook(uuid.NewString()))
	return closer, nil
}

// RunHook adds a run field to every entry so interleaved runs can be told
// apart in a shared log file.
type RunHook struct {
	id string
}

// NewRunHook creates a hook tagging entries with id
func NewRunHook(id string) *RunHook {
	return &RunHook{id: id}
}

// Levels set the supported levels for this hook
func (h *RunHook) Levels() []log.Level {
	return log.AllLevels
}

// Fire adds the run id to entry.Data
func (h *RunHook) Fire(entry *log.Entry) error {
	entry.Data["run"] = h.id
	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
