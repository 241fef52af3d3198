package cmd

import (
	"errors"
	"fmt"

	"github.com/trxui/trxloader/internal/layout"
	"github.com/trxui/trxloader/internal/update"
)

// hints returns what the user can do about err.
func hints(err error) []string {
	var (
		resolveErr *update.ReleaseResolutionError
		downErr    *update.DownloadError
		installErr *update.InstallError
		versionErr *update.VersionIOError
	)

	switch {
	case isCanceled(err):
		return []string{"Interrupted. Run the launcher again to finish."}
	case errors.Is(err, layout.ErrRunningFromTemp):
		return []string{"Extract the archive to a folder and start the launcher from there."}
	case errors.As(err, &resolveErr):
		return []string{"Could not find the latest release. Check your internet connection and try again."}
	case errors.As(err, &downErr):
		return []string{fmt.Sprintf("The download failed %d time(s). Check your internet connection and try again.", downErr.Attempts)}
	case errors.As(err, &installErr):
		if installErr.BackupDir == "" {
			return []string{"Nothing was changed. Close TRX if it is running and try again."}
		}
		return []string{
			fmt.Sprintf("Your scripts and settings are safe in %s.", installErr.BackupDir),
			"Run 'trxloader recover' to put them back before starting the launcher again; the next update deletes that folder.",
		}
	case errors.As(err, &versionErr):
		return []string{"Check that the install directory is writable."}
	}
	return nil
}
