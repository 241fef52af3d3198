package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/trxui/trxloader/internal/interactive"
	"github.com/trxui/trxloader/internal/launch"
	"github.com/trxui/trxloader/internal/output"
	"github.com/trxui/trxloader/internal/types"
)

var (
	// Global flags
	configPath  string
	launcherDir string
	logLevel    string
	logFile     string
	quiet       bool

	// Root command flags
	noLaunch bool
)

// buildInfo is set by Execute.
var buildInfo = struct {
	version string
	commit  string
	date    string
}{"dev", "none", "unknown"}

// Execute runs the command line. Errors are logged and reported to the user
// before being returned.
func Execute(version, commit, date string) error {
	buildInfo.version, buildInfo.commit, buildInfo.date = version, commit, date

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := NewRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		log.Errorf("%v", err)
		interactive.NewPrompter().Fatal(err, hints(err)...)
	}
	return err
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "trxloader",
		Short: "Keep TRX up to date and start it",
		Long: `trxloader checks for a newer TRX release, installs it while keeping your
scripts, settings and other user data, then starts TRX.

Settings are read from trxloader.yaml (or .yml, .toml, .json) next to the
launcher, a .env file in the same directory, and TRXLOADER_* environment
variables.`,
		Version:       buildInfo.version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()
			return runLaunch(cmd.Context(), a, cmd.OutOrStdout())
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&launcherDir, "launcher-dir", "", "Directory to manage (default: directory of the launcher executable)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", `Log file, or "console" for stderr`)
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only report the main steps")

	rootCmd.Flags().BoolVar(&noLaunch, "no-launch", false, "Update without starting the application")

	// Add subcommands
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newRecoverCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"trace", "debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	return rootCmd
}

// runLaunch updates the installation when needed and starts the application.
func runLaunch(ctx context.Context, a *app, stdout io.Writer) error {
	progress := output.NewProgress(stdout, quiet)

	result, err := a.updater(progress.Report).Run(ctx)
	if err != nil {
		return err
	}
	if result.Updated {
		_, _ = fmt.Fprintf(stdout, "Updated to %s\n", result.Latest)
	}

	if noLaunch {
		return nil
	}

	progress.Report(types.PhaseStarting)
	if _, err := launch.Start(a.layout.ExecutablePath(), a.layout.InstallDir); err != nil {
		return err
	}
	return nil
}

// outputFlag registers the -o flag on cmd.
func outputFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "output", "o", "text", "Output format: text, json, yaml")
	_ = cmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return output.Formats(), cobra.ShellCompDirectiveNoFileComp
	})
}

// isCanceled reports whether err stems from an interrupt.
func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
