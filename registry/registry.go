// Package registry issues, stores, validates and revokes ephemeral drop
// sessions. One active session per username; minting a new one kills the old
// credentials and the old watcher synchronously.
package registry

import (
	"crypto/subtle"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ayato-h/albumdrop/tool"
	"github.com/ayato-h/albumdrop/types"
)

// Stopper is whatever per-session resource the watch factory hands back,
// usually a directory watcher. The registry owns its lifecycle.
type Stopper interface {
	Stop()
}

// StartWatchFunc starts watching a freshly created session's root directory.
type StartWatchFunc func(sess types.Session) (Stopper, error)

// Config wires the registry's collaborators.
type Config struct {
	// StartWatch is called for every created session. Optional; sessions
	// without a watcher are allowed (credential-only use, tests).
	StartWatch StartWatchFunc
	// OnReset runs during RevokeAll after every watcher is stopped, used to
	// clear the pipeline's suppression state.
	OnReset func()
}

type entry struct {
	sess types.Session
	stop Stopper
}

// Registry is the session table. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*entry // keyed by username
	cfg      Config
}

func New(cfg Config) *Registry {
	return &Registry{
		sessions: make(map[string]*entry),
		cfg:      cfg,
	}
}

// CreateSession mints credentials for username scoped to rootDir and albumID.
// An existing session for the same username is overwritten and its watcher
// stopped before the new credentials become visible, so there is no window
// where both passwords authenticate.
func (r *Registry) CreateSession(username, rootDir, albumID string) (types.Session, error) {
	if username == "" {
		return types.Session{}, fmt.Errorf("username is required")
	}

	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return types.Session{}, fmt.Errorf("%w: %s", ErrInvalidDirectory, rootDir)
	}
	if resolved, rerr := filepath.EvalSymlinks(abs); rerr == nil {
		abs = resolved
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return types.Session{}, fmt.Errorf("%w: %s", ErrInvalidDirectory, rootDir)
	}

	sess := types.Session{
		ID:        tool.GenerateRandomUUID(),
		Username:  username,
		Password:  tool.GenerateSessionPassword(),
		RootDir:   abs,
		AlbumID:   albumID,
		CreatedAt: time.Now(),
	}

	var stop Stopper
	if r.cfg.StartWatch != nil {
		stop, err = r.cfg.StartWatch(sess)
		if err != nil {
			return types.Session{}, fmt.Errorf("failed to start watcher for %s: %w", abs, err)
		}
	}

	r.mu.Lock()
	old := r.sessions[username]
	r.sessions[username] = &entry{sess: sess, stop: stop}
	r.mu.Unlock()

	if old != nil {
		tool.DefaultLogger.Infof("[Registry] Session for %s replaced, old credentials revoked", username)
		if old.stop != nil {
			old.stop.Stop()
		}
	}
	tool.DefaultLogger.Infof("[Registry] Session created: user=%s dir=%s album=%s", username, abs, albumID)
	return sess, nil
}

// Authenticate checks the password for username and returns the confined root
// directory. Comparison is constant time; a missing user burns the same
// comparison against a dummy value.
func (r *Registry) Authenticate(username, password string) (string, error) {
	r.mu.RLock()
	e, ok := r.sessions[username]
	var stored string
	if ok {
		stored = e.sess.Password
	}
	r.mu.RUnlock()

	if !ok {
		subtle.ConstantTimeCompare([]byte(password), []byte("no-such-session--"))
		return "", ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(stored)) != 1 {
		return "", ErrInvalidCredentials
	}
	return e.sess.RootDir, nil
}

// Lookup returns the session for username.
func (r *Registry) Lookup(username string) (types.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[username]
	if !ok {
		return types.Session{}, false
	}
	return e.sess, true
}

// List returns every active session.
func (r *Registry) List() []types.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.Session, 0, len(r.sessions))
	for _, e := range r.sessions {
		out = append(out, e.sess)
	}
	return out
}

// Revoke removes one session and stops its watcher. In-flight ingests for
// files that already settled are allowed to complete.
func (r *Registry) Revoke(username string) {
	r.mu.Lock()
	e := r.sessions[username]
	delete(r.sessions, username)
	r.mu.Unlock()

	if e != nil && e.stop != nil {
		e.stop.Stop()
	}
}

// RevokeAll clears every session and stops every watcher. Idempotent, calling
// it on an empty registry is a no-op.
func (r *Registry) RevokeAll() {
	r.mu.Lock()
	entries := r.sessions
	r.sessions = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range entries {
		if e.stop != nil {
			e.stop.Stop()
		}
	}
	if r.cfg.OnReset != nil {
		r.cfg.OnReset()
	}
	if len(entries) > 0 {
		tool.DefaultLogger.Infof("[Registry] Reset: revoked %d session(s)", len(entries))
	}
}
