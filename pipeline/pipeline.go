// Package pipeline collapses settled-file signals into single ingest calls.
// Two independent safeguards: a per-path debounce window (rapid re-signals
// merge, last writer wins) and a cooldown suppression set (a just-ingested
// path is refused for a while, which tolerates watcher back-ends that
// redeliver events after the OS touches the file again).
package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	ttlworker "github.com/FloatTech/ttl"

	"github.com/ayato-h/albumdrop/tool"
	"github.com/ayato-h/albumdrop/types"
)

// imageExtensions is the only file name gate; anything else is dropped here,
// silently, before validation ever runs.
var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
}

// Ingester is the upload-and-persist collaborator.
type Ingester interface {
	Ingest(ctx context.Context, path, albumID string) (types.IngestResult, error)
}

// Config contains the pipeline timing knobs.
type Config struct {
	// DebounceWindow merges repeated ready-signals for one path. Default 500ms.
	DebounceWindow time.Duration
	// Cooldown is how long a just-ingested path stays suppressed. Default 10s.
	Cooldown time.Duration
}

func (c *Config) setDefaults() {
	if c.DebounceWindow <= 0 {
		c.DebounceWindow = 500 * time.Millisecond
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 10 * time.Second
	}
}

type pendingSignal struct {
	albumID string
	timer   *time.Timer
}

// Pipeline is safe for concurrent use from any number of session watchers.
type Pipeline struct {
	cfg      Config
	ingester Ingester

	mu      sync.Mutex
	pending map[string]*pendingSignal
	// suppressed maps path -> cooldown deadline. The deadline is the value,
	// not the cache entry's lifetime: the cache refreshes an entry's expiry
	// on every read, so reads during the cooldown would otherwise keep a
	// hammered path suppressed forever. The TTL only garbage-collects
	// entries nobody asks about anymore.
	suppressed *ttlworker.Cache[string, time.Time]

	sinkMu sync.RWMutex
	sink   func(types.IngestResult)
}

func New(cfg Config, ing Ingester) *Pipeline {
	cfg.setDefaults()
	return &Pipeline{
		cfg:        cfg,
		ingester:   ing,
		pending:    make(map[string]*pendingSignal),
		suppressed: ttlworker.NewCache[string, time.Time](cfg.Cooldown),
	}
}

// OnIngested registers a success sink, typically the realtime broadcast.
func (p *Pipeline) OnIngested(fn func(types.IngestResult)) {
	p.sinkMu.Lock()
	p.sink = fn
	p.sinkMu.Unlock()
}

// Enqueue feeds one settled path into the pipeline. Non-image names and
// suppressed paths are dropped without error.
func (p *Pipeline) Enqueue(path, albumID string) {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := imageExtensions[ext]; !ok {
		tool.DefaultLogger.Debugf("[Pipeline] Ignoring non-image file %s", path)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if time.Now().Before(p.suppressed.Get(path)) {
		tool.DefaultLogger.Debugf("[Pipeline] Path in cooldown, dropping %s", path)
		return
	}

	if sig, ok := p.pending[path]; ok {
		// Rapid re-signal: restart the window, keep the latest album.
		sig.albumID = albumID
		sig.timer.Reset(p.cfg.DebounceWindow)
		return
	}

	sig := &pendingSignal{albumID: albumID}
	sig.timer = time.AfterFunc(p.cfg.DebounceWindow, func() { p.fire(path) })
	p.pending[path] = sig
}

// fire runs when a path's debounce window elapses with no further signal.
// It marks the cooldown and hands the file to the ingester on its own
// goroutine, so a slow upload never delays other paths.
func (p *Pipeline) fire(path string) {
	p.mu.Lock()
	sig, ok := p.pending[path]
	if !ok {
		p.mu.Unlock()
		return
	}
	delete(p.pending, path)
	if time.Now().Before(p.suppressed.Get(path)) {
		p.mu.Unlock()
		return
	}
	p.suppressed.Set(path, time.Now().Add(p.cfg.Cooldown))
	albumID := sig.albumID
	p.mu.Unlock()

	go p.runIngest(path, albumID)
}

// runIngest contains the per-file failure isolation: whatever goes wrong with
// this file is logged and stops here, never reaching the watcher or session.
func (p *Pipeline) runIngest(path, albumID string) {
	result, err := p.ingester.Ingest(context.Background(), path, albumID)
	if err != nil {
		tool.DefaultLogger.Errorf("[Pipeline] Ingest failed for %s: %v", path, err)
		return
	}
	tool.DefaultLogger.Infof("[Pipeline] Ingested %s -> %s", path, result.RemoteURL)

	p.sinkMu.RLock()
	sink := p.sink
	p.sinkMu.RUnlock()
	if sink != nil {
		sink(result)
	}
}

// Reset drops every pending debounce and the whole suppression set. Used by
// the registry's full-state reset.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, sig := range p.pending {
		sig.timer.Stop()
	}
	p.pending = make(map[string]*pendingSignal)
	// The TTL cache has no clear-all, so swap in a fresh one. Destroy stops
	// the old cache's gc goroutine, otherwise every reset would leak one.
	old := p.suppressed
	p.suppressed = ttlworker.NewCache[string, time.Time](p.cfg.Cooldown)
	old.Destroy()
}
