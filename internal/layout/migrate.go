package layout

import (
	"fmt"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Migrate moves legacy user folders that older releases kept next to the
// launcher into the installation root. A folder is moved only when it exists
// at the top level and the installation root has no entry of that name yet;
// otherwise the legacy copy is left untouched so newer data is never
// overwritten. The installation root is created if missing.
//
// It returns the names that were moved.
func Migrate(fs afero.Fs, l Layout, names []string) ([]string, error) {
	if err := fs.MkdirAll(l.InstallDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create install directory: %w", err)
	}

	var moved []string
	for _, name := range names {
		src := filepath.Join(l.LauncherDir, name)
		dst := filepath.Join(l.InstallDir, name)

		isDir, err := afero.DirExists(fs, src)
		if err != nil {
			return moved, fmt.Errorf("failed to stat %s: %w", src, err)
		}
		if !isDir {
			continue
		}

		exists, err := afero.Exists(fs, dst)
		if err != nil {
			return moved, fmt.Errorf("failed to stat %s: %w", dst, err)
		}
		if exists {
			log.Debugf("migration: %s already present in install directory, leaving %s in place", name, src)
			continue
		}

		log.Infof("migration: moving %s to %s", src, dst)
		if err := fs.Rename(src, dst); err != nil {
			return moved, fmt.Errorf("failed to move %s: %w", name, err)
		}
		moved = append(moved, name)
	}

	return moved, nil
}
