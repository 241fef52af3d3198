// Package layout describes where the launcher keeps the installed application,
// its version marker and the transient backup area, and performs the one-time
// relocation of legacy top-level user folders.
package layout

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Default names relative to the launcher directory.
const (
	DefaultInstallDir  = "Bin"
	DefaultExecutable  = "TRX.exe"
	DefaultVersionFile = "ver.bin"
	DefaultBackupDir   = "temp_backup_data"
)

// ErrRunningFromTemp is returned when the launcher sits inside the system
// temporary directory, which is where archive viewers unpack files they open.
var ErrRunningFromTemp = errors.New("cannot run from within an archive, extract it first")

// Layout is the filesystem contract of one installation.
// All paths are absolute once built by New.
type Layout struct {
	LauncherDir string // Directory holding the launcher binary
	InstallDir  string // InstallationRoot, receives the unpacked release
	BackupDir   string // BackupArea, sibling of InstallDir
	Executable  string // Main executable, relative to InstallDir
	VersionFile string // Version marker, relative to InstallDir
}

// New builds a layout rooted at launcherDir. Relative installDir and backupDir
// are resolved against launcherDir; empty values fall back to the defaults.
func New(launcherDir, installDir, backupDir, executable, versionFile string) (Layout, error) {
	if launcherDir == "" {
		return Layout{}, fmt.Errorf("launcher directory is required")
	}
	abs, err := filepath.Abs(launcherDir)
	if err != nil {
		return Layout{}, fmt.Errorf("failed to resolve launcher directory: %w", err)
	}

	l := Layout{
		LauncherDir: abs,
		InstallDir:  resolve(abs, installDir, DefaultInstallDir),
		BackupDir:   resolve(abs, backupDir, DefaultBackupDir),
		Executable:  orDefault(executable, DefaultExecutable),
		VersionFile: orDefault(versionFile, DefaultVersionFile),
	}

	if l.InstallDir == l.BackupDir {
		return Layout{}, fmt.Errorf("install and backup directories must differ: %s", l.InstallDir)
	}
	if within(l.InstallDir, l.BackupDir) || within(l.BackupDir, l.InstallDir) {
		return Layout{}, fmt.Errorf("install directory %s and backup directory %s must not be nested", l.InstallDir, l.BackupDir)
	}
	return l, nil
}

// ExecutablePath returns the absolute path of the main executable.
func (l Layout) ExecutablePath() string {
	return filepath.Join(l.InstallDir, l.Executable)
}

// VersionPath returns the absolute path of the version marker file.
func (l Layout) VersionPath() string {
	return filepath.Join(l.InstallDir, l.VersionFile)
}

// LauncherDir returns the directory of the running executable with symlinks
// resolved.
func LauncherDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get launcher path: %w", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve launcher path: %w", err)
	}

	return filepath.Dir(exe), nil
}

// CheckNotInTemp returns ErrRunningFromTemp when dir lies inside tempDir.
func CheckNotInTemp(dir, tempDir string) error {
	if tempDir == "" {
		return nil
	}
	d, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	t, err := filepath.Abs(tempDir)
	if err != nil {
		return err
	}
	if d == t || within(t, d) {
		return ErrRunningFromTemp
	}
	return nil
}

func resolve(base, p, def string) string {
	p = orDefault(p, def)
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// within reports whether child is strictly below parent.
func within(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
