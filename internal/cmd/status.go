package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/trxui/trxloader/internal/backup"
	"github.com/trxui/trxloader/internal/output"
	"github.com/trxui/trxloader/internal/types"
	"github.com/trxui/trxloader/internal/update"
)

// Status describes an installation as found on disk. Preserved lists the
// preserved paths present in the install directory, Backup the ones left in
// the backup area by an interrupted update.
type Status struct {
	LauncherDir       string         `json:"launcher_dir" yaml:"launcher_dir"`
	InstallDir        string         `json:"install_dir" yaml:"install_dir"`
	Installed         update.Version `json:"installed" yaml:"installed"`
	ExecutablePresent bool           `json:"executable_present" yaml:"executable_present"`
	Preserved         []string       `json:"preserved" yaml:"preserved"`
	Backup            []backup.Entry `json:"backup,omitempty" yaml:"backup,omitempty"`
	BackupDir         string         `json:"backup_dir" yaml:"backup_dir"`
}

// String renders the status for a terminal.
func (s *Status) String() string {
	var b strings.Builder

	installed := s.Installed.String()
	if s.Installed == update.NoneInstalled {
		installed = "none"
	}
	fmt.Fprintf(&b, "Launcher:   %s\n", s.LauncherDir)
	fmt.Fprintf(&b, "Install:    %s\n", s.InstallDir)
	fmt.Fprintf(&b, "Version:    %s\n", installed)

	executable := "present"
	if !s.ExecutablePresent {
		executable = "missing (next start reinstalls)"
	}
	fmt.Fprintf(&b, "Executable: %s\n", executable)

	preserved := "none"
	if len(s.Preserved) > 0 {
		preserved = strings.Join(s.Preserved, ", ")
	}
	fmt.Fprintf(&b, "User data:  %s\n", preserved)

	if len(s.Backup) > 0 {
		fmt.Fprintf(&b, "\nAn interrupted update left user data in %s:\n", s.BackupDir)
		for _, e := range s.Backup {
			fmt.Fprintf(&b, "  %-20s %-4s %8d bytes  %s\n", e.Name, e.Kind, e.Size, e.ModTime.Format("2006-01-02 15:04"))
		}
		b.WriteString("Run 'trxloader recover' to restore it.\n")
	}
	return b.String()
}

func newStatusCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of the installation",
		Long: `Status shows the installed version, whether the application executable is
present, which user data exists, and whether an interrupted update left data
in the backup area. Nothing is contacted over the network.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			status, err := collectStatus(a)
			if err != nil {
				return err
			}
			return output.NewWriter(cmd.OutOrStdout(), f).Write(status)
		},
	}

	outputFlag(cmd, &format)
	return cmd
}

func collectStatus(a *app) (*Status, error) {
	stored, err := update.NewVersionStore(a.fs, a.layout.VersionPath()).Read()
	if err != nil {
		return nil, err
	}

	info, err := a.fs.Stat(a.layout.ExecutablePath())
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat %s: %w", a.layout.ExecutablePath(), err)
	}

	preserved := []string{}
	for _, p := range types.PreservedPathSet {
		ok, err := afero.Exists(a.fs, filepath.Join(a.layout.InstallDir, p.Name))
		if err != nil {
			return nil, err
		}
		if ok {
			preserved = append(preserved, p.Name)
		}
	}

	entries, err := a.area().List()
	if err != nil {
		return nil, err
	}

	return &Status{
		LauncherDir:       a.layout.LauncherDir,
		InstallDir:        a.layout.InstallDir,
		Installed:         stored,
		ExecutablePresent: info != nil && info.Mode().IsRegular(),
		Preserved:         preserved,
		Backup:            entries,
		BackupDir:         a.layout.BackupDir,
	}, nil
}
