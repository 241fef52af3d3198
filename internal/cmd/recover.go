package cmd

import (
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/trxui/trxloader/internal/interactive"
)

func newRecoverCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Restore user data left behind by an interrupted update",
		Long: `If an update fails after your scripts and settings were moved aside, they
stay in the backup area next to the install directory. Recover merges them
back into the install directory and removes the backup area.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			return runRecover(a, interactive.NewPrompter(), yes, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func runRecover(a *app, prompter *interactive.Prompter, yes bool, out io.Writer) error {
	area := a.area()

	entries, err := area.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(out, "Nothing to recover.")
		return nil
	}

	_, _ = fmt.Fprintf(out, "Found in %s:\n", area.Dir())
	for _, e := range entries {
		_, _ = fmt.Fprintf(out, "  %s (%s)\n", e.Name, e.Kind)
	}

	if !yes && !prompter.Confirm(fmt.Sprintf("Restore into %s?", a.layout.InstallDir), true) {
		_, _ = fmt.Fprintln(out, "Aborted.")
		return nil
	}

	restored, err := area.Recover(a.layout.InstallDir)
	if err != nil {
		return fmt.Errorf("recovery failed: %w", err)
	}

	log.Infof("recovered %d path(s) from %s", len(restored), area.Dir())
	_, _ = fmt.Fprintf(out, "Restored %d item(s).\n", len(restored))
	return nil
}
