package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ayato-h/albumdrop/tool"
)

// pendingFile tracks one file that is still being written. It lives from the
// first create/write event until the size has been stable long enough, then
// the file is emitted and the entry dropped.
type pendingFile struct {
	size        int64
	stableSince time.Time
	timer       *time.Timer
}

// Watcher observes one root directory recursively.
type Watcher struct {
	fsw  *fsnotify.Watcher
	cfg  Config
	root string

	events   chan Event
	stopChan chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	pending map[string]*pendingFile
	closed  bool
}

// New creates a watcher for root and registers root and every existing
// subdirectory with fsnotify. Call Start to begin processing.
func New(root string, cfg Config) (*Watcher, error) {
	cfg.setDefaults()

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat watch root: %w", err)
	}
	if !info.IsDir() {
		return nil, ErrNotADirectory
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		fsw:      fsw,
		cfg:      cfg,
		root:     root,
		events:   make(chan Event, 100),
		stopChan: make(chan struct{}),
		pending:  make(map[string]*pendingFile),
	}

	if err := w.addRecursive(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Start launches the event loop.
func (w *Watcher) Start() {
	go w.loop()
	tool.DefaultLogger.Debugf("[Watcher] Watching %s (quiet=%s poll=%s)", w.root, w.cfg.QuietPeriod, w.cfg.PollInterval)
}

// Events returns the settled/removed event stream. Closed on Stop.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Stop releases the fsnotify handle and cancels every pending settle timer.
// Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)

		w.mu.Lock()
		w.closed = true
		for _, p := range w.pending {
			if p.timer != nil {
				p.timer.Stop()
			}
		}
		w.pending = nil
		w.mu.Unlock()

		if err := w.fsw.Close(); err != nil {
			tool.DefaultLogger.Errorf("[Watcher] Failed to close fsnotify handle: %v", err)
		}
		close(w.events)
		tool.DefaultLogger.Debugf("[Watcher] Stopped watching %s", w.root)
	})
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.stopChan:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			tool.DefaultLogger.Errorf("[Watcher] fsnotify error on %s: %v", w.root, err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return // dotfiles: editor temp files, .DS_Store and friends
	}

	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.mu.Lock()
		if p, ok := w.pending[event.Name]; ok {
			if p.timer != nil {
				p.timer.Stop()
			}
			delete(w.pending, event.Name)
		}
		w.emit(Event{Path: event.Name, Op: OpRemoved, Timestamp: time.Now()})
		w.mu.Unlock()

	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		info, err := os.Stat(event.Name)
		if err != nil {
			return // gone already, a remove event will follow
		}
		if info.IsDir() {
			// New subdirectory: extend the watch so files dropped inside
			// it are picked up too.
			if event.Op&fsnotify.Create != 0 {
				if err := w.addRecursive(event.Name); err != nil {
					tool.DefaultLogger.Warnf("[Watcher] Failed to watch new subdirectory %s: %v", event.Name, err)
				}
			}
			return
		}
		w.track(event.Name, info.Size())
	}
}

// track records write activity for path and (re)arms the settle poller.
func (w *Watcher) track(path string, size int64) {
	now := time.Now()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	p, exists := w.pending[path]
	if !exists {
		p = &pendingFile{size: size, stableSince: now}
		w.pending[path] = p
		p.timer = time.AfterFunc(w.cfg.PollInterval, func() { w.poll(path) })
		return
	}
	if p.size != size {
		p.size = size
		p.stableSince = now
	}
}

// poll is one settle tick for path. It reschedules itself until the size has
// been stable for the whole quiet period, then emits exactly one settled
// event. Runs on a timer goroutine so it never parks the event loop.
func (w *Watcher) poll(path string) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	p, ok := w.pending[path]
	if !ok {
		w.mu.Unlock()
		return
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		delete(w.pending, path)
		w.mu.Unlock()
		return
	}

	now := time.Now()
	if info.Size() != p.size {
		p.size = info.Size()
		p.stableSince = now
	}

	if now.Sub(p.stableSince) >= w.cfg.QuietPeriod {
		delete(w.pending, path)
		w.emit(Event{Path: path, Op: OpSettled, Size: p.size, Timestamp: now})
		w.mu.Unlock()
		return
	}
	p.timer = time.AfterFunc(w.cfg.PollInterval, func() { w.poll(path) })
	w.mu.Unlock()
}

// emit pushes an event without ever blocking a timer or the event loop.
// Caller holds w.mu, so the closed check is reliable.
func (w *Watcher) emit(ev Event) {
	if w.closed {
		return
	}
	select {
	case w.events <- ev:
	default:
		tool.DefaultLogger.Warnf("[Watcher] Event channel full, dropping %s for %s", ev.Op, ev.Path)
	}
}

func (w *Watcher) addRecursive(path string) error {
	if err := w.fsw.Add(path); err != nil {
		return fmt.Errorf("failed to add watch path %s: %w", path, err)
	}
	return filepath.Walk(path, func(subPath string, info os.FileInfo, err error) error {
		if err != nil {
			tool.DefaultLogger.Warnf("[Watcher] Error walking %s: %v", subPath, err)
			return nil
		}
		if !info.IsDir() || subPath == path {
			return nil
		}
		if strings.HasPrefix(filepath.Base(subPath), ".") {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(subPath); addErr != nil {
			tool.DefaultLogger.Warnf("[Watcher] Failed to add subdirectory %s: %v", subPath, addErr)
		}
		return nil
	})
}
