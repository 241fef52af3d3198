package update

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/trxui/trxloader/internal/layout"
	"github.com/trxui/trxloader/internal/types"
)

// staleRemover is implemented by fetchers that can clean up downloads left
// behind by earlier runs.
type staleRemover interface {
	RemoveStale() (int, error)
}

// Updater runs the update cycle: migrate legacy folders, read the stored
// version, resolve the latest release, decide, and when needed download and
// install it and record the new version. Each stage returns early on error.
type Updater struct {
	fs        afero.Fs
	layout    layout.Layout
	store     *VersionStore
	resolver  ReleaseResolver
	fetcher   Fetcher
	applier   Applier
	preserved types.PathSet
	progress  ProgressFunc
}

// NewUpdater wires an updater for the given layout
func NewUpdater(fs afero.Fs, l layout.Layout, resolver ReleaseResolver, fetcher Fetcher, applier Applier) *Updater {
	return &Updater{
		fs:        fs,
		layout:    l,
		store:     NewVersionStore(fs, l.VersionPath()),
		resolver:  resolver,
		fetcher:   fetcher,
		applier:   applier,
		preserved: types.PreservedPathSet,
	}
}

// WithProgress sets a callback invoked as each stage starts
func (u *Updater) WithProgress(fn ProgressFunc) *Updater {
	u.progress = fn
	return u
}

// Store returns the version store the updater reads and writes
func (u *Updater) Store() *VersionStore {
	return u.store
}

// Check resolves the latest release and decides whether an update is needed
// without downloading anything. Apart from the one-time migration it changes
// nothing on disk, so repeated calls return the same result.
func (u *Updater) Check(ctx context.Context) (*Result, error) {
	u.report(types.PhaseChecking)

	migrated, err := layout.Migrate(u.fs, u.layout, u.preserved.Dirs())
	if err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	stored, err := u.store.Read()
	if err != nil {
		return nil, err
	}

	present, err := u.executablePresent()
	if err != nil {
		return nil, err
	}

	release, err := u.resolver.GetLatest(ctx)
	if err != nil {
		return nil, err
	}

	d := Decide(stored, release.Version, present)
	if d.IntegrityForced {
		log.Warnf("%s is missing, reinstalling %s", u.layout.ExecutablePath(), d.Latest)
	}
	log.Infof("installed version %q, latest %q, update needed: %t", d.Stored, d.Latest, d.NeedsUpdate)

	return &Result{
		Stored:          d.Stored,
		Latest:          d.Latest,
		DownloadURL:     release.DownloadURL,
		IntegrityForced: d.IntegrityForced,
		UpdateNeeded:    d.NeedsUpdate,
		Migrated:        migrated,
	}, nil
}

// Run performs a full update cycle. When the installed version is current it
// returns after the check with Result.Updated false.
func (u *Updater) Run(ctx context.Context) (*Result, error) {
	result, err := u.Check(ctx)
	if err != nil {
		return nil, err
	}
	if !result.UpdateNeeded {
		return result, nil
	}

	if err := u.install(ctx, result); err != nil {
		return result, err
	}

	if err := u.store.Write(result.Latest); err != nil {
		return result, err
	}
	result.Updated = true
	log.Infof("updated to %s", result.Latest)

	return result, nil
}

// install downloads the release archive and applies it. The archive is
// removed afterwards whether or not the install succeeded.
func (u *Updater) install(ctx context.Context, result *Result) (err error) {
	if sr, ok := u.fetcher.(staleRemover); ok {
		if n, rmErr := sr.RemoveStale(); rmErr != nil {
			log.Warnf("failed to clean up old downloads: %v", rmErr)
		} else if n > 0 {
			log.Debugf("removed %d old download(s)", n)
		}
	}

	u.report(types.PhaseDownloading)
	archive, err := u.fetcher.Fetch(ctx, result.DownloadURL)
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := u.fs.Remove(archive); rmErr != nil {
			rmErr = fmt.Errorf("failed to remove downloaded archive %s: %w", archive, rmErr)
			if err == nil {
				log.Warn(rmErr)
				return
			}
			err = multierror.Append(err, rmErr)
		}
	}()

	u.report(types.PhaseInstalling)
	return u.applier.Apply(archive)
}

func (u *Updater) executablePresent() (bool, error) {
	info, err := u.fs.Stat(u.layout.ExecutablePath())
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", u.layout.ExecutablePath(), err)
	}
	return info.Mode().IsRegular(), nil
}

func (u *Updater) report(phase types.Phase) {
	if u.progress != nil {
		u.progress(phase)
	}
}
