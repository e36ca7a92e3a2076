package data

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Errors returned by watcher operations.
var (
	ErrWatcherClosed = errors.New("watcher is closed")
	ErrPathNotExist  = errors.New("path does not exist")
)

// Watcher monitors track data files for changes and coalesces rapid
// rewrites into a single notification per path. It watches each file's
// parent directory rather than the file itself, because editors and
// pipelines typically replace files by rename, which would silently drop
// a direct file watch.
type Watcher struct {
	fsw   *fsnotify.Watcher
	delay time.Duration

	mu      sync.Mutex
	files   map[string]bool
	dirs    map[string]bool
	pending map[string]*time.Timer
	closed  bool

	events  chan string
	errs    chan error
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// NewWatcher creates a watcher. Changes within the delay window are
// coalesced; a non-positive delay gets a 100ms default.
func NewWatcher(delay time.Duration) (*Watcher, error) {
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:     fsw,
		delay:   delay,
		files:   make(map[string]bool),
		dirs:    make(map[string]bool),
		pending: make(map[string]*time.Timer),
		events:  make(chan string, 16),
		errs:    make(chan error, 16),
		closeCh: make(chan struct{}),
	}

	w.wg.Add(1)
	go w.processLoop()

	return w, nil
}

// Watch registers a data file. The file must exist.
func (w *Watcher) Watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return ErrPathNotExist
		}
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}

	dir := filepath.Dir(abs)
	if !w.dirs[dir] {
		if err := w.fsw.Add(dir); err != nil {
			return err
		}
		w.dirs[dir] = true
	}

	w.files[abs] = true
	return nil
}

// Events returns the channel of changed file paths. Closed by Close.
func (w *Watcher) Events() <-chan string {
	return w.events
}

// Errors returns the channel of watcher errors. Closed by Close.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Close stops the watcher and closes its channels.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	close(w.closeCh)
	w.wg.Wait()

	close(w.events)
	close(w.errs)

	return w.fsw.Close()
}

// Flush fires all pending notifications immediately. Test hook.
func (w *Watcher) Flush() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path, timer := range w.pending {
		timer.Stop()
		paths = append(paths, path)
	}
	w.mu.Unlock()

	for _, path := range paths {
		w.fire(path)
	}
}

func (w *Watcher) processLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.sendError(err)
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
		return
	}

	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || !w.files[abs] {
		return
	}

	if timer, exists := w.pending[abs]; exists {
		timer.Reset(w.delay)
		return
	}
	w.pending[abs] = time.AfterFunc(w.delay, func() {
		w.fire(abs)
	})
}

// fire delivers one coalesced notification. Sends happen under the mutex
// with a closed check, so they strictly precede the channel close in
// Close.
func (w *Watcher) fire(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	delete(w.pending, path)
	if w.closed {
		return
	}

	select {
	case w.events <- path:
	default:
		// queue full, drop; the next change re-notifies
	}
}

func (w *Watcher) sendError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	select {
	case w.errs <- err:
	default:
	}
}
