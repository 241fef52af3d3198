package update

import (
	"context"
	"fmt"
	"strings"

	"github.com/trxui/trxloader/internal/types"
)

// Release is a resolved release: its version token and where to fetch it.
type Release struct {
	Version     Version // tag_name of the release
	AssetsURL   string  // assets_url of the release
	DownloadURL string  // browser_download_url of the first asset
}

// Result describes one update check or update cycle.
type Result struct {
	Stored          Version  `json:"stored" yaml:"stored"`                                 // Version recorded in the marker file
	Latest          Version  `json:"latest" yaml:"latest"`                                 // Version published as latest
	DownloadURL     string   `json:"download_url,omitempty" yaml:"download_url,omitempty"` // Artifact URL of the latest release
	IntegrityForced bool     `json:"integrity_forced" yaml:"integrity_forced"`             // Executable missing, stored version ignored
	UpdateNeeded    bool     `json:"update_needed" yaml:"update_needed"`                   // Latest differs from the effective stored version
	Updated         bool     `json:"updated" yaml:"updated"`                               // A new release was installed
	Migrated        []string `json:"migrated,omitempty" yaml:"migrated,omitempty"`         // Legacy folders moved into the install directory
}

// ProgressFunc receives the phase an update cycle has entered.
type ProgressFunc func(phase types.Phase)

// ReleaseResolver resolves the latest published release
type ReleaseResolver interface {
	GetLatest(ctx context.Context) (*Release, error)
}

// Fetcher downloads an artifact to a local temporary file
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Applier replaces the installation with the contents of an archive
type Applier interface {
	Apply(archivePath string) error
}

// String renders the result for a terminal.
func (r *Result) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Installed: %s\n", r.Stored)
	fmt.Fprintf(&b, "Latest:    %s\n", r.Latest)
	if r.IntegrityForced {
		b.WriteString("Executable missing, reinstall required\n")
	}
	switch {
	case r.Updated:
		fmt.Fprintf(&b, "Updated to %s\n", r.Latest)
	case r.UpdateNeeded:
		b.WriteString("Update available\n")
	default:
		b.WriteString("Up to date\n")
	}
	if len(r.Migrated) > 0 {
		fmt.Fprintf(&b, "Migrated:  %s\n", strings.Join(r.Migrated, ", "))
	}
	return b.String()
}
