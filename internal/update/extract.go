package update

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Extract unpacks the zip archive at archivePath into dest and returns the
// number of files written. Nothing in dest is overwritten: an entry that
// collides with an existing file is an error, as is an entry whose path
// would land outside dest. Symbolic links are skipped.
func Extract(fs afero.Fs, archivePath, dest string) (int, error) {
	f, err := fs.Open(archivePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat archive: %w", err)
	}

	r, err := zip.NewReader(f, info.Size())
	if err != nil {
		return 0, fmt.Errorf("failed to read archive: %w", err)
	}

	if err := fs.MkdirAll(dest, 0755); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dest, err)
	}

	buf := make([]byte, 64*1024) // Reused for every entry
	written := 0

	for _, zf := range r.File {
		target, err := entryPath(dest, zf.Name)
		if err != nil {
			return written, err
		}
		if target == "" {
			continue
		}

		mode := zf.Mode()
		switch {
		case mode.IsDir():
			if err := fs.MkdirAll(target, 0755); err != nil {
				return written, fmt.Errorf("failed to create %s: %w", target, err)
			}
		case mode&os.ModeSymlink != 0:
			log.Warnf("extract: skipping symbolic link %s", zf.Name)
		default:
			if err := fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return written, fmt.Errorf("failed to create %s: %w", filepath.Dir(target), err)
			}
			if err := extractFile(fs, zf, target, buf); err != nil {
				return written, fmt.Errorf("extract %s: %w", zf.Name, err)
			}
			written++
		}
	}

	return written, nil
}

// entryPath maps an archive entry name to a path under dest. Archives built
// on Windows may use backslashes. An empty result means the entry names dest
// itself.
func entryPath(dest, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.ReplaceAll(name, `\`, "/")))
	if clean == "." {
		return "", nil
	}
	if filepath.IsAbs(clean) || filepath.VolumeName(clean) != "" ||
		clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q escapes the install directory", name)
	}
	return filepath.Join(dest, clean), nil
}

func extractFile(fs afero.Fs, zf *zip.File, target string, buf []byte) error {
	rc, err := zf.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	perm := zf.Mode().Perm()
	if perm == 0 {
		perm = 0644
	}

	out, err := fs.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}

	if _, err := io.CopyBuffer(out, rc, buf); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
