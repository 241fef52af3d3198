package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Merge copies the tree at src into dst. Files overwrite same-named files in
// dst, missing directories are created, and nothing in dst is ever deleted.
// Entries that are neither regular files nor directories are skipped.
func Merge(fs afero.Fs, src, dst string) error {
	info, err := fs.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat merge source: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("merge source is not a directory: %s", src)
	}

	if err := fs.MkdirAll(dst, info.Mode().Perm()|0700); err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	entries, err := afero.ReadDir(fs, src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}

	for _, entry := range entries {
		s := filepath.Join(src, entry.Name())
		d := filepath.Join(dst, entry.Name())

		switch {
		case entry.IsDir():
			if err := Merge(fs, s, d); err != nil {
				return err
			}
		case entry.Mode().IsRegular():
			if err := copyFile(fs, s, d, entry.Mode().Perm()); err != nil {
				return err
			}
		default:
			log.Debugf("merge: skipping %s (mode %s)", s, entry.Mode())
		}
	}

	return nil
}

// copyFile writes src over dst, creating dst if needed.
func copyFile(fs afero.Fs, src, dst string, perm os.FileMode) error {
	in, err := fs.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	out, err := fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", dst, err)
	}

	return fs.Chmod(dst, perm)
}
