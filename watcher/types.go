// Package watcher observes one directory tree per drop session and turns the
// raw fsnotify event storm into settled-file signals: a file is forwarded only
// once its size has held still for the configured quiet period. One watcher
// per session, owned by the session registry.
package watcher

import "time"

// Op describes what happened to a path.
type Op uint8

const (
	// OpSettled means the file finished being written: its size has been
	// stable for the whole quiet period.
	OpSettled Op = iota + 1
	// OpRemoved means the file was deleted or renamed away. Removed files
	// are never uploaded or retried.
	OpRemoved
)

func (op Op) String() string {
	switch op {
	case OpSettled:
		return "SETTLED"
	case OpRemoved:
		return "REMOVED"
	default:
		return "UNKNOWN"
	}
}

// Event is one settled-file or removal signal.
type Event struct {
	Path      string
	Op        Op
	Size      int64 // final size for settled events, 0 for removals
	Timestamp time.Time
}

// Config contains watcher timing knobs.
type Config struct {
	// QuietPeriod is how long a file's size must stay unchanged before it
	// counts as settled. Default 1s.
	QuietPeriod time.Duration

	// PollInterval is the size-check tick while a file is pending.
	// Default 100ms.
	PollInterval time.Duration
}

func (c *Config) setDefaults() {
	if c.QuietPeriod <= 0 {
		c.QuietPeriod = time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 100 * time.Millisecond
	}
}
