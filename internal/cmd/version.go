package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/trxui/trxloader/internal/output"
)

// VersionInfo describes the launcher build.
type VersionInfo struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit" yaml:"commit"`
	Date    string `json:"date" yaml:"date"`
	Go      string `json:"go" yaml:"go"`
	OS      string `json:"os" yaml:"os"`
	Arch    string `json:"arch" yaml:"arch"`
}

func (v VersionInfo) String() string {
	return fmt.Sprintf("trxloader version %s (commit %s, built %s, %s %s/%s)\n",
		v.Version, v.Commit, v.Date, v.Go, v.OS, v.Arch)
}

func newVersionCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show launcher version information",
		Long: `Display the launcher build. Use 'trxloader check' to see the installed and
latest application versions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}
			return output.NewWriter(cmd.OutOrStdout(), f).Write(VersionInfo{
				Version: buildInfo.version,
				Commit:  buildInfo.commit,
				Date:    buildInfo.date,
				Go:      runtime.Version(),
				OS:      runtime.GOOS,
				Arch:    runtime.GOARCH,
			})
		},
	}

	outputFlag(cmd, &format)
	return cmd
}
