// Package backup parks user-owned paths outside the installation root while
// an update replaces the shipped files, and merges them back afterwards.
package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/trxui/trxloader/internal/types"
)

// Entry describes one preserved path currently held in a backup area.
type Entry struct {
	Name    string         `json:"name" yaml:"name"`
	Kind    types.PathKind `json:"kind" yaml:"kind"`
	Size    int64          `json:"size" yaml:"size"`
	ModTime time.Time      `json:"mod_time" yaml:"mod_time"`
}

// Area is the temporary holding directory of a single update transaction.
// It is exclusively owned by the running transaction.
type Area struct {
	fs    afero.Fs
	dir   string
	paths types.PathSet
}

// NewArea creates a backup area rooted at dir that manages the given paths.
func NewArea(fs afero.Fs, dir string, paths types.PathSet) *Area {
	return &Area{
		fs:    fs,
		dir:   dir,
		paths: paths,
	}
}

// Dir returns the backup area path.
func (a *Area) Dir() string {
	return a.dir
}

// Exists reports whether the backup area is present on disk, which outside
// of a running transaction means a previous update was interrupted.
func (a *Area) Exists() (bool, error) {
	return afero.DirExists(a.fs, a.dir)
}

// Reset deletes any stale backup area left by a crashed run and creates an
// empty one.
func (a *Area) Reset() error {
	if err := a.fs.RemoveAll(a.dir); err != nil {
		return fmt.Errorf("failed to remove stale backup area: %w", err)
	}
	if err := a.fs.MkdirAll(a.dir, 0755); err != nil {
		return fmt.Errorf("failed to create backup area: %w", err)
	}
	return nil
}

// Relocate moves every preserved path present under root into the backup
// area. Moving rather than copying guarantees that a later wipe of root
// cannot touch user data. It returns the paths that were moved. An invalid
// path set is rejected before anything is moved.
func (a *Area) Relocate(root string) (types.PathSet, error) {
	if err := a.paths.Validate(); err != nil {
		return nil, fmt.Errorf("invalid preserved paths: %w", err)
	}

	var moved types.PathSet

	for _, p := range a.paths {
		src := filepath.Join(root, p.Name)

		present, err := a.present(src, p.Kind)
		if err != nil {
			return moved, err
		}
		if !present {
			continue
		}

		if err := a.fs.Rename(src, filepath.Join(a.dir, p.Name)); err != nil {
			return moved, fmt.Errorf("failed to move %s into backup area: %w", p.Name, err)
		}
		log.Debugf("backup: parked %s %s", p.Kind, p.Name)
		moved = append(moved, p)
	}

	return moved, nil
}

// MergeBack returns the parked paths to root.
//
// Directories end up as the union of the user's tree and whatever the new
// release shipped under the same name, the shipped copy winning when both
// contain the same file. Files are copied over any shipped file of the same
// name, so the user's copy wins.
func (a *Area) MergeBack(root string) error {
	for _, p := range a.paths {
		src := filepath.Join(a.dir, p.Name)
		dst := filepath.Join(root, p.Name)

		present, err := a.present(src, p.Kind)
		if err != nil {
			return err
		}
		if !present {
			continue
		}

		if p.Kind.IsDir() {
			err = a.restoreDir(src, dst)
		} else {
			err = a.restoreFile(src, dst)
		}
		if err != nil {
			return fmt.Errorf("failed to restore %s: %w", p.Name, err)
		}
		log.Debugf("backup: restored %s %s", p.Kind, p.Name)
	}

	return nil
}

// Discard removes the backup area and everything left in it.
func (a *Area) Discard() error {
	if err := a.fs.RemoveAll(a.dir); err != nil {
		return fmt.Errorf("failed to remove backup area: %w", err)
	}
	return nil
}

// Recover merges a backup area left by an interrupted update back into root
// and removes it. It returns the paths that were found in the area.
func (a *Area) Recover(root string) ([]Entry, error) {
	entries, err := a.List()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return entries, a.Discard()
	}

	if err := a.fs.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create install directory: %w", err)
	}
	if err := a.MergeBack(root); err != nil {
		return nil, err
	}
	return entries, a.Discard()
}

// List returns the preserved paths currently held in the backup area,
// sorted by name. A missing area yields an empty list.
func (a *Area) List() ([]Entry, error) {
	exists, err := a.Exists()
	if err != nil {
		return nil, fmt.Errorf("failed to stat backup area: %w", err)
	}
	if !exists {
		return []Entry{}, nil
	}

	entries := []Entry{}
	for _, p := range a.paths {
		info, err := a.fs.Stat(filepath.Join(a.dir, p.Name))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to stat %s: %w", p.Name, err)
		}

		size := info.Size()
		if info.IsDir() {
			size, err = dirSize(a.fs, filepath.Join(a.dir, p.Name))
			if err != nil {
				return nil, err
			}
		}

		entries = append(entries, Entry{
			Name:    p.Name,
			Kind:    p.Kind,
			Size:    size,
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})

	return entries, nil
}

// restoreDir moves src to dst when dst is absent. Otherwise the shipped
// tree at dst is merged over src and the combined tree takes dst's place.
func (a *Area) restoreDir(src, dst string) error {
	info, err := a.fs.Stat(dst)
	switch {
	case os.IsNotExist(err):
		return a.fs.Rename(src, dst)
	case err != nil:
		return err
	case !info.IsDir():
		return fmt.Errorf("release ships a file where a directory is preserved: %s", dst)
	}

	if err := Merge(a.fs, dst, src); err != nil {
		return err
	}
	if err := a.fs.RemoveAll(dst); err != nil {
		return err
	}
	return a.fs.Rename(src, dst)
}

func (a *Area) restoreFile(src, dst string) error {
	info, err := a.fs.Stat(src)
	if err != nil {
		return err
	}
	return copyFile(a.fs, src, dst, info.Mode().Perm())
}

// present reports whether path exists with the expected kind. An entry of
// the wrong kind is ignored, as are missing ones.
func (a *Area) present(path string, kind types.PathKind) (bool, error) {
	info, err := a.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() != kind.IsDir() {
		log.Warnf("backup: %s is not a %s, leaving it alone", path, kind)
		return false, nil
	}
	return true, nil
}

func dirSize(fs afero.Fs, dir string) (int64, error) {
	var size int64
	err := afero.Walk(fs, dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			size += info.Size()
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to measure %s: %w", dir, err)
	}
	return size, nil
}
