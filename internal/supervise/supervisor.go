// Package supervise owns the lifecycle of the external supervisor binary:
// spawn, watch the configuration for staleness, restart on change, and report
// unexpected exits. One supervisor, one child, single machine.
package supervise

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"llamate/internal/config"
	"llamate/internal/render"
	"llamate/internal/watch"
)

// State of the supervised session.
type State int

const (
	StateStarting State = iota
	StateRunning
	StateStopping
	StateRestarting
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateRestarting:
		return "restarting"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Status is a point-in-time snapshot for operators and the status API.
type Status struct {
	State     string    `json:"state"`
	PID       int       `json:"pid,omitempty"`
	Restarts  int       `json:"restarts"`
	ExitCode  int       `json:"exit_code"`
	StartedAt time.Time `json:"started_at,omitempty"`
}

// Options configures a Supervisor.
type Options struct {
	Paths     config.Paths
	Settings  *config.SettingsStore
	Models    render.Lister
	Port      int      // listen port for the child
	Public    bool     // bind 0.0.0.0 instead of loopback
	ExtraArgs []string // operator args forwarded verbatim (minus managed flags)

	PollInterval    time.Duration // watcher interval, default watch.DefaultInterval
	GracefulTimeout time.Duration // SIGTERM wait, default 5s
	KillTimeout     time.Duration // post-Kill wait, default 2s

	Events Events // optional lifecycle hooks
	Log    zerolog.Logger
}

// Supervisor runs the restart loop around the external child process.
type Supervisor struct {
	opts   Options
	events Events
	log    zerolog.Logger

	mu       sync.Mutex
	state    State
	pid      int
	restarts int
	exitCode int
	started  time.Time
}

func New(opts Options) *Supervisor {
	if opts.GracefulTimeout <= 0 {
		opts.GracefulTimeout = 5 * time.Second
	}
	if opts.KillTimeout <= 0 {
		opts.KillTimeout = 2 * time.Second
	}
	ev := opts.Events
	if ev == nil {
		ev = noopEvents{}
	}
	return &Supervisor{opts: opts, events: ev, log: opts.Log, state: StateStarting}
}

// Status returns a snapshot of the current session.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{State: s.state.String(), Restarts: s.restarts, ExitCode: s.exitCode}
	if s.state == StateRunning || s.state == StateRestarting || s.state == StateStopping {
		st.PID = s.pid
		st.StartedAt = s.started
	}
	return st
}

func (s *Supervisor) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	s.events.ChildUp(st == StateRunning)
}

// BuildArgs assembles the child command line: managed flags first, then the
// operator's forwarded args with managed flags filtered out.
func (s *Supervisor) BuildArgs() []string {
	host := "127.0.0.1"
	if s.opts.Public {
		host = "0.0.0.0"
	}
	args := []string{
		"--config", s.opts.Paths.SwapConfigFile,
		"--listen", fmt.Sprintf("%s:%d", host, s.opts.Port),
	}
	return append(args, FilterArgs(s.opts.ExtraArgs)...)
}

// FilterArgs drops the flags this supervisor manages itself (--port with its
// value, --public) so the child never sees conflicting duplicates.
func FilterArgs(args []string) []string {
	var out []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--port":
			i++ // skip value too
		case "--public":
		default:
			out = append(out, args[i])
		}
	}
	return out
}

// Run drives the restart loop until the child exits fatally or ctx is
// cancelled by the operator. Watcher-triggered restarts are the only way the
// child is restarted; a crashing child is never retried.
func (s *Supervisor) Run(ctx context.Context) error {
	// First render is fatal on failure: without a document there is nothing
	// to serve.
	if err := s.refresh(); err != nil {
		return fmt.Errorf("render initial config: %w", err)
	}
	fresh := true
	for {
		// A failed pre-restart refresh left a possibly missing or stale
		// document behind; only then is a re-check worth the read.
		if !fresh {
			s.ensureDocument()
		}

		cmd := exec.Command(s.opts.Paths.SwapBin(), s.BuildArgs()...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		s.setState(StateStarting)
		if err := cmd.Start(); err != nil {
			s.setState(StateTerminated)
			return fmt.Errorf("start %s: %w", s.opts.Paths.SwapBin(), err)
		}
		s.mu.Lock()
		s.pid = cmd.Process.Pid
		s.started = time.Now()
		s.mu.Unlock()
		s.setState(StateRunning)
		s.log.Info().Int("pid", cmd.Process.Pid).Msg("child process started")

		waitCh := make(chan error, 1)
		go func() { waitCh <- cmd.Wait() }()

		stopWatch := make(chan struct{})
		w := watch.New(s.opts.Paths.SwapConfigFile, s.opts.Paths.ModelsDir, s.opts.PollInterval, s.log)
		changes := w.Run(stopWatch)

		again, renderedOK, err := s.superviseOnce(ctx, cmd, waitCh, changes, stopWatch)
		if !again {
			return err
		}
		fresh = renderedOK
	}
}

// superviseOnce blocks on one child session. It reports whether the loop
// should spawn a fresh child and whether the pre-restart render succeeded.
func (s *Supervisor) superviseOnce(ctx context.Context, cmd *exec.Cmd, waitCh chan error, changes <-chan watch.Change, stopWatch chan struct{}) (again, renderedOK bool, err error) {
	for {
		select {
		case <-ctx.Done():
			// Operator interrupt: the Watcher dies with the process, the
			// child is terminated like any restart.
			close(stopWatch)
			s.setState(StateStopping)
			s.log.Info().Msg("stopping child process")
			s.terminate(cmd, waitCh)
			s.setState(StateTerminated)
			return false, false, nil

		case change, ok := <-changes:
			if !ok {
				// watcher gone without a change; keep waiting on the child
				changes = nil
				continue
			}
			s.setState(StateRestarting)
			s.log.Info().Str("reason", change.Reason).Msg("restarting child process")
			// Re-render first so the new child sees the latest state. A
			// failed render is a warning: restart with the previous document.
			rerr := s.refresh()
			if rerr != nil {
				s.log.Warn().Err(rerr).Msg("failed to update config before restart, keeping previous document")
			}
			s.terminate(cmd, waitCh)
			s.mu.Lock()
			s.restarts++
			s.mu.Unlock()
			s.events.Restarted()
			return true, rerr == nil, nil

		case werr := <-waitCh:
			close(stopWatch)
			return s.childExited(cmd, werr)
		}
	}
}

// childExited classifies a self-initiated child exit.
func (s *Supervisor) childExited(cmd *exec.Cmd, werr error) (again, renderedOK bool, err error) {
	code := cmd.ProcessState.ExitCode()
	s.mu.Lock()
	s.exitCode = code
	s.mu.Unlock()

	if expectedExit(cmd.ProcessState) {
		// Terminated by the graceful signal: part of the restart flow.
		s.log.Info().Msg("child terminated for restart")
		rerr := s.refresh()
		if rerr != nil {
			s.log.Warn().Err(rerr).Msg("failed to update config before restart, keeping previous document")
		}
		s.mu.Lock()
		s.restarts++
		s.mu.Unlock()
		s.events.Restarted()
		return true, rerr == nil, nil
	}
	s.setState(StateTerminated)
	if werr == nil || code == 0 {
		s.log.Info().Msg("child exited cleanly")
		return false, false, nil
	}
	// Any other exit is fatal: restarting would only mask a persistently
	// broken configuration.
	s.log.Error().Int("code", code).Msg("child exited unexpectedly")
	return false, false, ErrChildExit(code)
}

// terminate stops the child: graceful signal with a bounded wait, then a
// force-kill with a further bounded wait. Never blocks indefinitely.
func (s *Supervisor) terminate(cmd *exec.Cmd, waitCh <-chan error) {
	if cmd.Process == nil {
		return
	}
	if err := terminateChild(cmd.Process); err != nil {
		s.log.Warn().Err(err).Msg("failed to signal child process")
	}
	select {
	case <-waitCh:
		return
	case <-time.After(s.opts.GracefulTimeout):
	}
	s.log.Warn().Int("pid", cmd.Process.Pid).Msg("child did not exit in time, force killing")
	if err := cmd.Process.Kill(); err != nil {
		s.log.Warn().Err(err).Msg("failed to kill child process")
	}
	select {
	case <-waitCh:
	case <-time.After(s.opts.KillTimeout):
		s.log.Error().Int("pid", cmd.Process.Pid).Msg("failed to kill child process, giving up")
	}
}

// refresh re-renders and re-persists the supervisor document.
func (s *Supervisor) refresh() error {
	st, err := s.opts.Settings.Load()
	if err != nil {
		s.events.Rendered(false)
		return err
	}
	if err := render.Refresh(s.opts.Paths, st, s.opts.Models); err != nil {
		s.events.Rendered(false)
		return err
	}
	s.events.Rendered(true)
	return nil
}

// ensureDocument recreates the document when it is missing or unparseable.
// Both are recoverable at startup; a warning is logged either way.
func (s *Supervisor) ensureDocument() {
	path := s.opts.Paths.SwapConfigFile
	b, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Msg("cannot read config file")
		}
		s.log.Warn().Str("file", path).Msg("config file missing, rendering a fresh one")
		if rerr := s.refresh(); rerr != nil {
			s.log.Warn().Err(rerr).Msg("failed to render config file")
		}
		return
	}
	var probe any
	if err := yaml.Unmarshal(b, &probe); err != nil {
		s.log.Warn().Err(err).Str("file", path).Msg("config file is invalid, rendering a fresh one")
		if rerr := s.refresh(); rerr != nil {
			s.log.Warn().Err(rerr).Msg("failed to render config file")
		}
	}
}
