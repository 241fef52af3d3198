package cmd

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/trxui/trxloader/internal/backup"
	"github.com/trxui/trxloader/internal/config"
	"github.com/trxui/trxloader/internal/layout"
	"github.com/trxui/trxloader/internal/logging"
	"github.com/trxui/trxloader/internal/types"
	"github.com/trxui/trxloader/internal/update"
)

// app is the state shared by commands that work on an installation.
type app struct {
	fs     afero.Fs
	cfg    *config.Config
	layout layout.Layout
	logs   io.Closer
}

// newApp resolves the launcher directory, loads settings, sets up logging
// and builds the layout.
func newApp() (*app, error) {
	dir := launcherDir
	if dir == "" {
		var err error
		if dir, err = layout.LauncherDir(); err != nil {
			return nil, err
		}
		// An explicit directory is trusted as is.
		if err := layout.CheckNotInTemp(dir, os.TempDir()); err != nil {
			return nil, err
		}
	}

	loadedEnv, err := config.LoadEnvFile(dir)
	if err != nil {
		return nil, err
	}

	path, err := config.Find(configPath, dir)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Flags beat the file and the environment
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFile != "" {
		cfg.Log.File = logFile
	}

	logs, err := logging.Init(cfg.Log.Level, cfg.LogPath(dir))
	if err != nil {
		return nil, err
	}

	l, err := cfg.Layout(dir)
	if err != nil {
		_ = logs.Close()
		return nil, err
	}

	log.Infof("trxloader %s starting in %s", buildInfo.version, l.LauncherDir)
	if cfg.Path != "" {
		log.Debugf("config loaded from %s", cfg.Path)
	}
	if loadedEnv {
		log.Debugf("environment loaded from %s", dir)
	}

	return &app{
		fs:     afero.NewOsFs(),
		cfg:    cfg,
		layout: l,
		logs:   logs,
	}, nil
}

// Close releases the log file.
func (a *app) Close() {
	if err := a.logs.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
	}
}

func (a *app) area() *backup.Area {
	return backup.NewArea(a.fs, a.layout.BackupDir, types.PreservedPathSet)
}

// updater wires the update pipeline from the settings.
func (a *app) updater(progress update.ProgressFunc) *update.Updater {
	client := update.NewReleaseClient(a.cfg.ReleaseURL).
		WithUserAgent(a.cfg.UserAgent).
		WithTimeout(a.cfg.RequestTimeout.Std()).
		WithToken(a.cfg.GitHubToken)

	downloader := update.NewHTTPDownloader(a.fs).
		WithUserAgent(a.cfg.UserAgent).
		WithRetry(a.cfg.Download.Attempts, a.cfg.Download.RetryDelay.Std()).
		WithAttemptTimeout(a.cfg.Download.Timeout.Std())

	installer := update.NewDirInstaller(a.fs, a.layout.InstallDir, a.area()).
		WithProgress(progress)

	return update.NewUpdater(a.fs, a.layout, client, downloader, installer).
		WithProgress(progress)
}
