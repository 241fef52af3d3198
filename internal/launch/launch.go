// Package launch hands control over to the installed application.
package launch

import (
	"fmt"
	"os/exec"

	log "github.com/sirupsen/logrus"
)

// Start runs the executable at path with dir as its working directory and
// returns its process id without waiting for it to exit.
func Start(path, dir string, args ...string) (int, error) {
	cmd := exec.Command(path, args...)
	cmd.Dir = dir

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start %s: %w", path, err)
	}

	pid := cmd.Process.Pid
	log.Infof("started %s (pid %d)", path, pid)

	// The launcher exits right after, the child must outlive it.
	if err := cmd.Process.Release(); err != nil {
		log.Warnf("failed to release process %d: %v", pid, err)
	}
	return pid, nil
}
