package update

import (
	"os"

	"github.com/spf13/afero"
)

// Version is an opaque release token such as a git tag. Versions are only
// ever compared for equality.
type Version string

// NoneInstalled is the stored version when nothing is installed.
const NoneInstalled Version = "0"

// String returns the token.
func (v Version) String() string {
	return string(v)
}

// Differs reports whether v and other are different tokens.
func (v Version) Differs(other Version) bool {
	return v != other
}

// Decision is the outcome of comparing the installed and latest versions.
type Decision struct {
	Stored          Version // As read from the marker file
	Effective       Version // Stored, or NoneInstalled when the executable is missing
	Latest          Version
	IntegrityForced bool
	NeedsUpdate     bool
}

// Decide compares stored against latest. When the main executable is missing
// the stored version is treated as NoneInstalled, which forces an update even
// if the tokens match.
func Decide(stored, latest Version, executablePresent bool) Decision {
	d := Decision{
		Stored:    stored,
		Effective: stored,
		Latest:    latest,
	}
	if !executablePresent {
		d.Effective = NoneInstalled
		d.IntegrityForced = stored != NoneInstalled
	}
	d.NeedsUpdate = latest.Differs(d.Effective)
	return d
}

// VersionStore persists the installed version in a marker file whose entire
// content is the token. It assumes a single writer.
type VersionStore struct {
	fs   afero.Fs
	path string
}

// NewVersionStore creates a store for the marker file at path.
func NewVersionStore(fs afero.Fs, path string) *VersionStore {
	return &VersionStore{fs: fs, path: path}
}

// Path returns the marker file path.
func (s *VersionStore) Path() string {
	return s.path
}

// Read returns the stored version, or NoneInstalled if the marker is absent.
func (s *VersionStore) Read() (Version, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return NoneInstalled, nil
		}
		return "", &VersionIOError{Op: "read", Path: s.path, Err: err}
	}
	return Version(data), nil
}

// Write replaces the marker content with v.
func (s *VersionStore) Write(v Version) error {
	if err := afero.WriteFile(s.fs, s.path, []byte(v), 0644); err != nil {
		return &VersionIOError{Op: "write", Path: s.path, Err: err}
	}
	return nil
}
