//go:build !windows

package supervise

import (
	"os"
	"syscall"
)

// sigtermExitCode is the conventional shell exit status for SIGTERM.
const sigtermExitCode = 128 + int(syscall.SIGTERM)

// terminateChild asks the child to exit gracefully.
func terminateChild(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}

// expectedExit reports whether the child's exit status corresponds to the
// graceful termination signal this supervisor itself issues.
func expectedExit(ps *os.ProcessState) bool {
	if ps == nil {
		return false
	}
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return ws.Signal() == syscall.SIGTERM
	}
	return ps.ExitCode() == sigtermExitCode
}
