package cmd

import (
	"github.com/spf13/cobra"

	"github.com/trxui/trxloader/internal/output"
)

func newCheckCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check whether an update is available",
		Long: `Check compares the installed version with the latest release without
downloading or installing anything.

Examples:
  trxloader check            # Human readable summary
  trxloader check -o json    # Machine readable result`,
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

			result, err := a.updater(nil).Check(cmd.Context())
			if err != nil {
				return err
			}
			return output.NewWriter(cmd.OutOrStdout(), f).Write(result)
		},
	}

	outputFlag(cmd, &format)
	return cmd
}
