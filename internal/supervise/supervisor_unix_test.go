//go:build !windows

package supervise

import (
	"context"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"llamate/internal/config"
	"llamate/internal/store"
	"llamate/pkg/types"
)

// harness sets up a temp home with one model and a fake llama-swap binary.
func harness(t *testing.T, script string) (Options, *store.ModelStore) {
	t.Helper()
	p, err := config.NewPaths(t.TempDir())
	if err != nil {
		t.Fatalf("paths: %v", err)
	}
	if err := p.EnsureDirs(); err != nil {
		t.Fatalf("dirs: %v", err)
	}
	if err := os.WriteFile(p.SwapBin(), []byte(script), 0o755); err != nil {
		t.Fatalf("write fake binary: %v", err)
	}
	models := store.NewModelStore(p.ModelsDir)
	if err := models.Save("m1", types.ModelRecord{ArtifactFile: "m1.gguf", Args: map[string]string{}}); err != nil {
		t.Fatalf("seed model: %v", err)
	}
	return Options{
		Paths:           p,
		Settings:        config.NewSettingsStore(p),
		Models:          models,
		Port:            18080,
		PollInterval:    30 * time.Millisecond,
		GracefulTimeout: 2 * time.Second,
		KillTimeout:     2 * time.Second,
		Log:             zerolog.Nop(),
	}, models
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestRunCleanExit(t *testing.T) {
	opts, _ := harness(t, "#!/bin/sh\nexit 0\n")
	s := New(opts)
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("clean exit should not error: %v", err)
	}
	if s.Status().State != "terminated" {
		t.Fatalf("state: %+v", s.Status())
	}
}

func TestRunUnexpectedExitIsFatal(t *testing.T) {
	opts, _ := harness(t, "#!/bin/sh\nexit 7\n")
	s := New(opts)
	err := s.Run(context.Background())
	code, ok := IsChildExit(err)
	if !ok || code != 7 {
		t.Fatalf("expected child exit 7, got %v", err)
	}
	// Crash loops are not retried.
	if s.Status().Restarts != 0 {
		t.Fatalf("must not restart on crash: %+v", s.Status())
	}
}

func TestRunWritesInitialDocument(t *testing.T) {
	opts, _ := harness(t, "#!/bin/sh\nexit 0\n")
	s := New(opts)
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(opts.Paths.SwapConfigFile); err != nil {
		t.Fatalf("document not rendered: %v", err)
	}
}

func TestRestartOnModelChange(t *testing.T) {
	opts, models := harness(t, "#!/bin/sh\nexec sleep 30\n")
	s := New(opts)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	waitFor(t, "child running", func() bool { return s.Status().State == "running" })

	// Mutating a model record must be picked up and trigger one restart.
	if err := models.Save("m1", types.ModelRecord{ArtifactFile: "m1.gguf", Args: map[string]string{"ctx-size": "4096"}}); err != nil {
		t.Fatalf("mutate model: %v", err)
	}
	waitFor(t, "restart", func() bool { return s.Status().Restarts >= 1 })
	waitFor(t, "child running again", func() bool {
		st := s.Status()
		return st.State == "running" && st.Restarts >= 1
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("interrupt should stop cleanly: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("supervisor did not stop on interrupt")
	}
}

func TestInterruptTerminatesChild(t *testing.T) {
	opts, _ := harness(t, "#!/bin/sh\nexec sleep 30\n")
	s := New(opts)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	waitFor(t, "child running", func() bool { return s.Status().State == "running" })
	pid := s.Status().PID
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("stop: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("supervisor did not stop")
	}
	// The child must actually be gone.
	waitFor(t, "child gone", func() bool { return processGone(pid) })
}

// processGone probes pid with signal 0, which checks existence without
// affecting the process.
func processGone(pid int) bool {
	return syscall.Kill(pid, 0) != nil
}

func TestForceKillFallback(t *testing.T) {
	// Child ignores the graceful signal; the supervisor must fall back to a
	// force-kill within the bounded timeouts instead of blocking forever.
	script := "#!/bin/sh\ntrap '' TERM\nwhile true; do sleep 1; done\n"
	opts, _ := harness(t, script)
	opts.GracefulTimeout = 200 * time.Millisecond
	opts.KillTimeout = 2 * time.Second
	s := New(opts)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	waitFor(t, "child running", func() bool { return s.Status().State == "running" })
	start := time.Now()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("stop: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("supervisor blocked on unkillable child")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("termination took too long: %v", elapsed)
	}
}

type countingEvents struct {
	mu           sync.Mutex
	restarts     int
	renders      int
	renderErrors int
}

func (c *countingEvents) Restarted() {
	c.mu.Lock()
	c.restarts++
	c.mu.Unlock()
}

func (c *countingEvents) Rendered(ok bool) {
	c.mu.Lock()
	if ok {
		c.renders++
	} else {
		c.renderErrors++
	}
	c.mu.Unlock()
}

func (c *countingEvents) ChildUp(bool) {}

func (c *countingEvents) counts() (int, int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.restarts, c.renders, c.renderErrors
}

func TestRestartRendersExactlyOnce(t *testing.T) {
	opts, models := harness(t, "#!/bin/sh\nexec sleep 30\n")
	ev := &countingEvents{}
	opts.Events = ev
	s := New(opts)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	waitFor(t, "child running", func() bool { return s.Status().State == "running" })
	if err := models.Save("m1", types.ModelRecord{ArtifactFile: "m1.gguf", Args: map[string]string{"threads": "4"}}); err != nil {
		t.Fatalf("mutate model: %v", err)
	}
	waitFor(t, "restart", func() bool { return s.Status().Restarts >= 1 })
	waitFor(t, "child running again", func() bool { return s.Status().State == "running" })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("stop: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("supervisor did not stop")
	}

	// One render at startup plus exactly one before the restart; the fresh
	// document must not be re-rendered again when the loop respawns.
	restarts, renders, renderErrors := ev.counts()
	if restarts != 1 {
		t.Fatalf("restarts = %d, want 1", restarts)
	}
	if renders != 2 {
		t.Fatalf("renders = %d, want 2", renders)
	}
	if renderErrors != 0 {
		t.Fatalf("render errors = %d", renderErrors)
	}
}

func TestExpectedExitClassification(t *testing.T) {
	cmd := exec.Command("/bin/sh", "-c", "kill -TERM $$")
	_ = cmd.Run()
	if !expectedExit(cmd.ProcessState) {
		t.Fatalf("SIGTERM exit should be expected")
	}

	cmd = exec.Command("/bin/sh", "-c", "exit 7")
	_ = cmd.Run()
	if expectedExit(cmd.ProcessState) {
		t.Fatalf("exit 7 should not be expected")
	}

	cmd = exec.Command("/bin/sh", "-c", "exit 0")
	_ = cmd.Run()
	if expectedExit(cmd.ProcessState) {
		t.Fatalf("clean exit is not a signal exit")
	}
}
