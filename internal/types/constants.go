// Package types provides type-safe constants shared by the launcher packages.
//
// This package centralizes the enumerated types used throughout the codebase:
// the set of user-owned paths that survive every update, the kind of each
// such path, and the progress phases an update cycle reports.
package types

import (
	"fmt"
	"strings"
)

// PathKind tells whether a preserved path is a directory or a regular file.
type PathKind string

const (
	// PathKindDir indicates a preserved directory, merged back after extraction.
	PathKindDir PathKind = "dir"
	// PathKindFile indicates a preserved file, copied back over the shipped one.
	PathKindFile PathKind = "file"
)

// Validate checks if the PathKind is a valid value.
func (k PathKind) Validate() error {
	switch k {
	case PathKindDir, PathKindFile:
		return nil
	case "":
		return fmt.Errorf("path kind is required")
	default:
		return fmt.Errorf("invalid path kind '%s' (must be dir or file)", k)
	}
}

// String returns the string representation of the PathKind.
func (k PathKind) String() string {
	return string(k)
}

// IsDir returns true if the path kind is a directory.
func (k PathKind) IsDir() bool {
	return k == PathKindDir
}

// PreservedPath names one user-owned entry directly under the installation root.
type PreservedPath struct {
	Name string   `json:"name" yaml:"name"`
	Kind PathKind `json:"kind" yaml:"kind"`
}

// PathSet is an ordered list of preserved paths.
type PathSet []PreservedPath

// Dirs returns the names of the directory entries in order.
func (s PathSet) Dirs() []string {
	return s.names(PathKindDir)
}

func (s PathSet) names(kind PathKind) []string {
	var out []string
	for _, p := range s {
		if p.Kind == kind {
			out = append(out, p.Name)
		}
	}
	return out
}

// Validate checks every entry for a known kind and a plain, unique name.
func (s PathSet) Validate() error {
	seen := make(map[string]bool, len(s))
	for i, p := range s {
		if err := p.Kind.Validate(); err != nil {
			return fmt.Errorf("preserved[%d]: %w", i, err)
		}
		if p.Name == "" || p.Name == "." || p.Name == ".." || strings.ContainsAny(p.Name, `/\`) {
			return fmt.Errorf("preserved[%d]: invalid name %q", i, p.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("preserved[%d]: duplicate name %q", i, p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// PreservedPathSet enumerates the paths under the installation root that
// belong to the user rather than to the shipped application.
var PreservedPathSet = PathSet{
	{Name: "AutoExec", Kind: PathKindDir},
	{Name: "DLLs", Kind: PathKindDir},
	{Name: "Icons", Kind: PathKindDir},
	{Name: "SavedTabs", Kind: PathKindDir},
	{Name: "Scripts", Kind: PathKindDir},
	{Name: "TRXLogos", Kind: PathKindDir},
	{Name: "SeliwareAPI.dll", Kind: PathKindFile},
	{Name: "TRX_Settings.json", Kind: PathKindFile},
	{Name: "key.dat", Kind: PathKindFile},
}

// Phase is a coarse progress step reported while the launcher works.
type Phase string

const (
	PhaseChecking    Phase = "checking"
	PhaseDownloading Phase = "downloading"
	PhaseInstalling  Phase = "installing"
	PhaseStarting    Phase = "starting"

	// Installer sub-phases, reported while PhaseInstalling is active.
	PhaseBackingUp  Phase = "backing-up"
	PhaseWiping     Phase = "wiping"
	PhaseExtracting Phase = "extracting"
	PhaseRestoring  Phase = "restoring"
	PhaseCommitting Phase = "committing"
)

// String returns the string representation of the Phase.
func (p Phase) String() string {
	return string(p)
}

// Label returns the capitalized text a shell shows for the phase,
// e.g. "Downloading".
func (p Phase) Label() string {
	s := strings.ReplaceAll(string(p), "-", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// IsInstallStep returns true for the installer sub-phases.
func (p Phase) IsInstallStep() bool {
	switch p {
	case PhaseBackingUp, PhaseWiping, PhaseExtracting, PhaseRestoring, PhaseCommitting:
		return true
	}
	return false
}
