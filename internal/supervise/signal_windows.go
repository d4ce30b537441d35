//go:build windows

package supervise

import "os"

// No SIGTERM on Windows; Kill is the only termination path.
func terminateChild(p *os.Process) error {
	return p.Kill()
}

// expectedExit is always false on Windows. Supervisor-initiated kills are
// consumed inside terminate and never reach classification, so any exit seen
// here is self-initiated: clean when zero, fatal otherwise. Treating code 1
// as a restart would respawn a crashing child forever.
func expectedExit(ps *os.ProcessState) bool {
	return false
}
