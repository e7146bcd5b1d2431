//go:build !windows

package processstate

import (
	stdErrors "errors"
	"os"
	"syscall"

	"github.com/core-tools/hsu-mdnsadvertise/pkg/errors"
)

// IsProcessRunning probes pid with signal 0. EPERM means the process exists
// but belongs to someone else.
func IsProcessRunning(pid int) (bool, error) {
	if pid <= 0 {
		return false, errors.NewValidationError("PID must be positive", nil).WithContext("pid", pid)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false, errors.NewProcessError("failed to find process", err).WithContext("pid", pid)
	}

	err = process.Signal(syscall.Signal(0))
	switch {
	case err == nil:
		return true, nil
	case stdErrors.Is(err, os.ErrProcessDone), stdErrors.Is(err, syscall.ESRCH):
		return false, nil
	case stdErrors.Is(err, syscall.EPERM):
		return true, nil
	}
	return false, errors.NewProcessError("failed to signal process", err).WithContext("pid", pid)
}
