package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

const watcherYAML = `
server:
  log_level: info
providers:
  stt: {name: openai}
  llm: {name: openai}
`

const watcherYAMLDebug = `
server:
  log_level: debug
providers:
  stt: {name: openai}
  llm: {name: openai}
`

// writeConfig writes content and nudges the mtime forward so the watcher's
// mtime check cannot miss a same-tick rewrite.
func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}
}

func TestWatcherDetectsChange(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "earshot.yaml")
	writeConfig(t, path, watcherYAML)

	var mu sync.Mutex
	var gotNew *Config
	changed := make(chan struct{}, 1)

	w, err := NewWatcher(path, func(_, new *Config) {
		mu.Lock()
		gotNew = new
		mu.Unlock()
		changed <- struct{}{}
	}, WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	if w.Current().Server.LogLevel != LogInfo {
		t.Fatalf("initial log level = %q", w.Current().Server.LogLevel)
	}

	writeConfig(t, path, watcherYAMLDebug)

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher never reported the change")
	}

	mu.Lock()
	defer mu.Unlock()
	if gotNew.Server.LogLevel != LogDebug {
		t.Errorf("reloaded log level = %q", gotNew.Server.LogLevel)
	}
	if w.Current().Server.LogLevel != LogDebug {
		t.Errorf("Current() log level = %q", w.Current().Server.LogLevel)
	}
}

func TestWatcherKeepsOldConfigOnInvalidEdit(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "earshot.yaml")
	writeConfig(t, path, watcherYAML)

	w, err := NewWatcher(path, func(_, _ *Config) {
		t.Error("onChange fired for an invalid config")
	}, WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	writeConfig(t, path, "server:\n  log_level: shouting\n")

	// Give the poller a few rounds to pick the edit up.
	time.Sleep(100 * time.Millisecond)

	if w.Current().Server.LogLevel != LogInfo {
		t.Errorf("Current() log level = %q, want the pre-edit info", w.Current().Server.LogLevel)
	}
}

func TestWatcherInitialLoadFailure(t *testing.T) {
	t.Parallel()

	if _, err := NewWatcher(filepath.Join(t.TempDir(), "absent.yaml"), nil); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "earshot.yaml")
	writeConfig(t, path, watcherYAML)

	w, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.Stop()
	w.Stop()
}
