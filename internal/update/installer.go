package update

import (
	"fmt"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/trxui/trxloader/internal/backup"
	"github.com/trxui/trxloader/internal/types"
)

// DirInstaller replaces the contents of an installation directory with a
// release archive while keeping the user's preserved paths.
//
// One Apply runs these phases in order:
//  1. backing-up: a backup area left by an interrupted run is deleted and
//     preserved paths are moved into a fresh one
//  2. wiping: everything left in the install directory is removed
//  3. extracting: the archive is unpacked into the now empty directory
//  4. restoring: preserved paths are merged back
//  5. committing: the backup area is removed
//
// A failure in phase 1 moves parked paths back and leaves the installation as
// it was. A failure in phases 2 to 4 leaves the backup area in place as the
// authoritative copy of the user's data; Area.Recover puts it back, and the
// next Apply deletes it.
type DirInstaller struct {
	fs       afero.Fs
	root     string
	area     *backup.Area
	progress ProgressFunc
}

// NewDirInstaller creates an installer for the directory root
func NewDirInstaller(fs afero.Fs, root string, area *backup.Area) *DirInstaller {
	return &DirInstaller{
		fs:   fs,
		root: root,
		area: area,
	}
}

// WithProgress sets a callback invoked as each phase starts
func (i *DirInstaller) WithProgress(fn ProgressFunc) *DirInstaller {
	i.progress = fn
	return i
}

// Apply installs the archive at archivePath. Errors are *InstallError.
func (i *DirInstaller) Apply(archivePath string) error {
	// 1. Park user data
	i.report(types.PhaseBackingUp)
	if err := i.backup(); err != nil {
		return &InstallError{Phase: types.PhaseBackingUp, Err: err}
	}

	// 2. Wipe what is left
	i.report(types.PhaseWiping)
	if err := i.wipe(); err != nil {
		return i.fail(types.PhaseWiping, err)
	}

	// 3. Unpack the release
	i.report(types.PhaseExtracting)
	n, err := Extract(i.fs, archivePath, i.root)
	if err != nil {
		return i.fail(types.PhaseExtracting, err)
	}
	log.Infof("extracted %d files into %s", n, i.root)

	// 4. Bring user data back
	i.report(types.PhaseRestoring)
	if err := i.area.MergeBack(i.root); err != nil {
		return i.fail(types.PhaseRestoring, err)
	}

	// 5. Drop the backup area
	i.report(types.PhaseCommitting)
	if err := i.area.Discard(); err != nil {
		return &InstallError{Phase: types.PhaseCommitting, Err: err}
	}

	return nil
}

func (i *DirInstaller) backup() error {
	if err := i.area.Reset(); err != nil {
		return err
	}

	moved, err := i.area.Relocate(i.root)
	if err != nil {
		// Nothing has been deleted yet, so put back what was moved.
		var result *multierror.Error
		result = multierror.Append(result, err)
		if rbErr := i.area.MergeBack(i.root); rbErr != nil {
			result = multierror.Append(result, fmt.Errorf("rollback failed: %w", rbErr))
		} else if dErr := i.area.Discard(); dErr != nil {
			result = multierror.Append(result, dErr)
		}
		return result.ErrorOrNil()
	}

	log.Infof("parked %d preserved path(s) in %s", len(moved), i.area.Dir())
	return nil
}

// wipe removes every entry directly under the install directory, creating
// the directory if it does not exist.
func (i *DirInstaller) wipe() error {
	if err := i.fs.MkdirAll(i.root, 0755); err != nil {
		return fmt.Errorf("failed to create install directory: %w", err)
	}

	entries, err := afero.ReadDir(i.fs, i.root)
	if err != nil {
		return fmt.Errorf("failed to read install directory: %w", err)
	}

	var result *multierror.Error
	for _, entry := range entries {
		if err := i.fs.RemoveAll(filepath.Join(i.root, entry.Name())); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to remove %s: %w", entry.Name(), err))
		}
	}
	return result.ErrorOrNil()
}

func (i *DirInstaller) fail(phase types.Phase, err error) error {
	log.Errorf("install failed while %s, user data remains in %s", phase, i.area.Dir())
	return &InstallError{Phase: phase, BackupDir: i.area.Dir(), Err: err}
}

func (i *DirInstaller) report(phase types.Phase) {
	log.Debugf("install phase: %s", phase)
	if i.progress != nil {
		i.progress(phase)
	}
}
