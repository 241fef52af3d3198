package update

import (
	"fmt"

	"github.com/trxui/trxloader/internal/types"
)

// Stage identifies where release resolution failed.
type Stage string

const (
	StageMetadataFetch Stage = "metadata fetch"
	StageAssetsFetch   Stage = "assets fetch"
	StageFieldMissing  Stage = "field missing"
)

// ReleaseResolutionError reports that the latest release could not be
// resolved to a version and a download URL.
type ReleaseResolutionError struct {
	Stage Stage
	Field string // Set for StageFieldMissing
	URL   string
	Err   error
}

func (e *ReleaseResolutionError) Error() string {
	if e.Stage == StageFieldMissing {
		return fmt.Sprintf("release resolution failed: %s %q missing in response from %s", e.Stage, e.Field, e.URL)
	}
	return fmt.Sprintf("release resolution failed: %s %s: %v", e.Stage, e.URL, e.Err)
}

func (e *ReleaseResolutionError) Unwrap() error {
	return e.Err
}

// DownloadError reports that an artifact could not be fetched after
// exhausting all attempts.
type DownloadError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download of %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// InstallError reports a filesystem failure while replacing the installation.
// BackupDir is set when the failure happened after user data was parked, in
// which case that directory holds the authoritative copy of it.
type InstallError struct {
	Phase     types.Phase
	BackupDir string
	Err       error
}

func (e *InstallError) Error() string {
	if e.BackupDir != "" {
		return fmt.Sprintf("install failed while %s (user data kept in %s): %v", e.Phase, e.BackupDir, e.Err)
	}
	return fmt.Sprintf("install failed while %s: %v", e.Phase, e.Err)
}

func (e *InstallError) Unwrap() error {
	return e.Err
}

// VersionIOError reports a failure reading or writing the version marker.
type VersionIOError struct {
	Op   string // "read" or "write"
	Path string
	Err  error
}

func (e *VersionIOError) Error() string {
	return fmt.Sprintf("failed to %s version file %s: %v", e.Op, e.Path, e.Err)
}

func (e *VersionIOError) Unwrap() error {
	return e.Err
}
