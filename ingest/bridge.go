// Package ingest is the validate -> upload -> persist unit for one settled
// file. Errors here belong to the file alone; callers log them and move on.
package ingest

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/ayato-h/albumdrop/store"
	"github.com/ayato-h/albumdrop/tool"
	"github.com/ayato-h/albumdrop/types"
	"github.com/ayato-h/albumdrop/upload"
)

// allowedTypes is the content allow-list, matched by sniffing, not extension.
var allowedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

const defaultMaxSize = 10 * 1024 * 1024 // 10 MiB

// Config contains bridge limits.
type Config struct {
	// UploadTimeout bounds every upload call. A timed-out upload is a
	// failed upload: logged, skipped, nothing persisted. Default 60s.
	UploadTimeout time.Duration
	// MaxFileSize in bytes. Default 10 MiB.
	MaxFileSize int64
}

func (c *Config) setDefaults() {
	if c.UploadTimeout <= 0 {
		c.UploadTimeout = 60 * time.Second
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = defaultMaxSize
	}
}

// Bridge owns no durable state; durability is the store's problem, the remote
// copy is the uploader's.
type Bridge struct {
	uploader upload.Uploader
	store    store.Store
	cfg      Config
}

func New(up upload.Uploader, st store.Store, cfg Config) *Bridge {
	cfg.setDefaults()
	return &Bridge{uploader: up, store: st, cfg: cfg}
}

// Ingest validates, uploads and persists one file. The local file is never
// deleted or moved; a vanished local copy after a successful upload is an
// accepted asymmetry, the remote asset stays.
func (b *Bridge) Ingest(ctx context.Context, path, albumID string) (types.IngestResult, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return types.IngestResult{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if !typeAllowed(mtype) {
		return types.IngestResult{}, fmt.Errorf("%w: got %s", ErrUnsupportedType, mtype.String())
	}

	info, err := os.Stat(path)
	if err != nil {
		return types.IngestResult{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.Size() > b.cfg.MaxFileSize {
		return types.IngestResult{}, fmt.Errorf("%w: %d bytes", ErrTooLarge, info.Size())
	}

	upCtx, cancel := context.WithTimeout(ctx, b.cfg.UploadTimeout)
	defer cancel()
	remoteURL, err := b.uploader.Upload(upCtx, path, mtype.String())
	if err != nil {
		return types.IngestResult{}, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	// One atomic unit: photo row + counter bump. Not retried; if the album
	// was deleted meanwhile the uploaded asset is simply orphaned remotely.
	if _, err := b.store.AddPhoto(ctx, albumID, remoteURL, ""); err != nil {
		return types.IngestResult{}, fmt.Errorf("failed to persist photo for %s: %w", path, err)
	}

	tool.DefaultLogger.Infof("[Ingest] %s uploaded to album %s", path, albumID)
	return types.IngestResult{LocalPath: path, RemoteURL: remoteURL, AlbumID: albumID}, nil
}

func typeAllowed(mtype *mimetype.MIME) bool {
	for _, allowed := range allowedTypes {
		if mtype.Is(allowed) {
			return true
		}
	}
	return false
}
