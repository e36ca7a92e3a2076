package data

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func waitEvent(t *testing.T, w *Watcher, timeout time.Duration) (string, bool) {
	t.Helper()
	select {
	case path := <-w.Events():
		return path, true
	case err := <-w.Errors():
		t.Fatalf("watcher error: %v", err)
		return "", false
	case <-time.After(timeout):
		return "", false
	}
}

func TestWatcherNotifiesOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "track.json")
	writeFile(t, path, `[]`)

	w, err := NewWatcher(50 * time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	writeFile(t, path, `[{"position": 1, "score": 0.5}]`)

	got, ok := waitEvent(t, w, 2*time.Second)
	if !ok {
		t.Fatal("no event after write")
	}
	abs, _ := filepath.Abs(path)
	if got != abs {
		t.Errorf("event path = %q, want %q", got, abs)
	}
}

func TestWatcherCoalescesBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "track.json")
	writeFile(t, path, `[]`)

	w, err := NewWatcher(100 * time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	for i := 0; i < 5; i++ {
		writeFile(t, path, `[]`)
		time.Sleep(10 * time.Millisecond)
	}

	if _, ok := waitEvent(t, w, 2*time.Second); !ok {
		t.Fatal("no event after burst")
	}
	// The burst fits one debounce window, so there is no second event.
	if path, ok := waitEvent(t, w, 300*time.Millisecond); ok {
		t.Errorf("unexpected second event for %q", path)
	}
}

func TestWatcherIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "track.json")
	sibling := filepath.Join(dir, "other.json")
	writeFile(t, watched, `[]`)
	writeFile(t, sibling, `[]`)

	w, err := NewWatcher(50 * time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := w.Watch(watched); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	writeFile(t, sibling, `[{"position": 1, "score": 0.5}]`)

	if path, ok := waitEvent(t, w, 300*time.Millisecond); ok {
		t.Errorf("unexpected event for sibling: %q", path)
	}
}

func TestWatcherRenameReplace(t *testing.T) {
	// Editors and pipelines replace files by writing a temp file and
	// renaming it over the target; the directory watch must still notice.
	dir := t.TempDir()
	path := filepath.Join(dir, "track.json")
	writeFile(t, path, `[]`)

	w, err := NewWatcher(50 * time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	tmp := filepath.Join(dir, "track.json.tmp")
	writeFile(t, tmp, `[{"position": 2, "score": 0.3}]`)
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	if _, ok := waitEvent(t, w, 2*time.Second); !ok {
		t.Fatal("no event after rename replace")
	}
}

func TestWatcherWatchMissing(t *testing.T) {
	w, err := NewWatcher(50 * time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	err = w.Watch(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, ErrPathNotExist) {
		t.Errorf("Watch missing = %v, want ErrPathNotExist", err)
	}
}

func TestWatcherClose(t *testing.T) {
	w, err := NewWatcher(50 * time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	if err := w.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	// Channels are closed after Close.
	if _, ok := <-w.Events(); ok {
		t.Error("events channel should be closed")
	}
	// Close twice is fine.
	if err := w.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	if err := w.Watch("."); !errors.Is(err, ErrWatcherClosed) {
		t.Errorf("Watch after close = %v, want ErrWatcherClosed", err)
	}
}
