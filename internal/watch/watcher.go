// Package watch detects on-disk configuration staleness by polling mtimes.
//
// Polling (instead of OS file-change notification) is deliberate: it is the
// simplest behavior that is correct on every platform, at the cost of up to
// one interval of detection latency.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultInterval is the poll period between change checks.
const DefaultInterval = 5 * time.Second

// Change describes the first detected configuration change.
type Change struct {
	Reason string // e.g. "config file changed", "model file removed"
	Path   string
}

// Watcher polls the main rendered config file and every per-model file for
// create/modify/delete. It signals at most once per run: the first detected
// change is sent and the loop exits, expecting a fresh start after restart.
type Watcher struct {
	mainFile  string
	modelsDir string
	interval  time.Duration
	log       zerolog.Logger

	// last observed state; nil mainMTime means the file does not exist yet
	mainMTime   *time.Time
	modelMTimes map[string]time.Time
}

func New(mainFile, modelsDir string, interval time.Duration, log zerolog.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{
		mainFile:  mainFile,
		modelsDir: modelsDir,
		interval:  interval,
		log:       log,
	}
}

// Run captures a fresh baseline and starts the poll loop in the background.
// The returned channel receives exactly one Change and is then closed; it is
// also closed without a value when stop is signalled first.
func (w *Watcher) Run(stop <-chan struct{}) <-chan Change {
	w.baseline()
	ch := make(chan Change, 1)
	go w.loop(stop, ch)
	return ch
}

func (w *Watcher) baseline() {
	w.mainMTime = nil
	if t, err := mtime(w.mainFile); err == nil {
		w.mainMTime = &t
	} else {
		w.log.Info().Str("file", w.mainFile).Msg("config file does not exist, waiting for creation")
	}
	w.modelMTimes, _ = scanModels(w.modelsDir)
}

func (w *Watcher) loop(stop <-chan struct{}, ch chan<- Change) {
	defer close(ch)
	sleep := w.interval
	for {
		select {
		case <-stop:
			return
		case <-time.After(sleep):
		}
		change, err := w.poll()
		if err != nil {
			// Transient filesystem errors must never kill the watcher;
			// back off and retry.
			w.log.Warn().Err(err).Msg("error while watching config files")
			sleep = 4 * w.interval
			continue
		}
		sleep = w.interval
		if change != nil {
			w.log.Info().Str("reason", change.Reason).Str("path", change.Path).Msg("configuration change detected")
			ch <- *change
			return
		}
	}
}

// poll runs one tick of the state machine and reports the first transition
// that counts as a change, updating the baseline as it goes.
func (w *Watcher) poll() (*Change, error) {
	// Main file: created and modified are changes. Deleted is a waiting
	// state, not a change; the file may be mid-rewrite.
	cur, err := mtime(w.mainFile)
	switch {
	case err == nil && w.mainMTime == nil:
		w.mainMTime = &cur
		return &Change{Reason: "config file created", Path: w.mainFile}, nil
	case err == nil && !cur.Equal(*w.mainMTime):
		w.mainMTime = &cur
		return &Change{Reason: "config file changed", Path: w.mainFile}, nil
	case err != nil && os.IsNotExist(err) && w.mainMTime != nil:
		w.log.Info().Str("file", w.mainFile).Msg("config file deleted, waiting for recreation")
		w.mainMTime = nil
	case err != nil && !os.IsNotExist(err):
		return nil, err
	}

	// Per-model files: created, modified and deleted are all changes.
	current, err := scanModels(w.modelsDir)
	if err != nil {
		return nil, err
	}
	for path, t := range current {
		prev, tracked := w.modelMTimes[path]
		if !tracked || !t.Equal(prev) {
			w.modelMTimes = current
			return &Change{Reason: "model file changed", Path: path}, nil
		}
	}
	if len(current) < len(w.modelMTimes) {
		var removed string
		for path := range w.modelMTimes {
			if _, ok := current[path]; !ok {
				removed = path
				break
			}
		}
		w.modelMTimes = current
		return &Change{Reason: "model file removed", Path: removed}, nil
	}
	w.modelMTimes = current
	return nil, nil
}

func mtime(path string) (time.Time, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return fi.ModTime(), nil
}

// scanModels maps every model YAML file to its mtime. A missing directory is
// an empty result, not an error.
func scanModels(dir string) (map[string]time.Time, error) {
	out := map[string]time.Time{}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, fmt.Errorf("read models dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			return nil, err
		}
		out[filepath.Join(dir, e.Name())] = fi.ModTime()
	}
	return out, nil
}
