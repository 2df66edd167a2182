package main

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayato-h/albumdrop/ingest"
	"github.com/ayato-h/albumdrop/pipeline"
	"github.com/ayato-h/albumdrop/registry"
	"github.com/ayato-h/albumdrop/store"
	"github.com/ayato-h/albumdrop/types"
	"github.com/ayato-h/albumdrop/watcher"
)

var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

type recordingUploader struct {
	mu    sync.Mutex
	calls int
}

func (r *recordingUploader) Upload(ctx context.Context, localPath, mimeType string) (string, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	return "https://img.example/albums/" + filepath.Base(localPath), nil
}

func (r *recordingUploader) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// wireStack assembles the full ingestion path with a fake cloud store and
// fast timings: registry -> watcher -> pipeline -> bridge -> sqlite.
func wireStack(t *testing.T) (*registry.Registry, *store.SQLite, *recordingUploader, chan types.IngestResult) {
	t.Helper()

	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	up := &recordingUploader{}
	bridge := ingest.New(up, st, ingest.Config{})

	pl := pipeline.New(pipeline.Config{
		DebounceWindow: 50 * time.Millisecond,
		Cooldown:       2 * time.Second,
	}, bridge)
	broadcasts := make(chan types.IngestResult, 16)
	pl.OnIngested(func(res types.IngestResult) { broadcasts <- res })

	watchCfg := watcher.Config{
		QuietPeriod:  200 * time.Millisecond,
		PollInterval: 25 * time.Millisecond,
	}
	reg := registry.New(registry.Config{
		StartWatch: func(sess types.Session) (registry.Stopper, error) {
			w, err := watcher.New(sess.RootDir, watchCfg)
			if err != nil {
				return nil, err
			}
			w.Start()
			go func() {
				for ev := range w.Events() {
					if ev.Op == watcher.OpSettled {
						pl.Enqueue(ev.Path, sess.AlbumID)
					}
				}
			}()
			return w, nil
		},
		OnReset: pl.Reset,
	})
	t.Cleanup(reg.RevokeAll)

	return reg, st, up, broadcasts
}

func TestDropPhotoEndToEnd(t *testing.T) {
	reg, st, up, broadcasts := wireStack(t)
	ctx := context.Background()

	_, err := st.CreateAlbum(ctx, "album1", "Holiday")
	require.NoError(t, err)

	dir := t.TempDir()
	_, err = reg.CreateSession("alice", dir, "album1")
	require.NoError(t, err)

	// Drop a 2 MiB photo into the watched directory.
	data := make([]byte, 2*1024*1024)
	copy(data, jpegHeader)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "photo.jpg"), data, 0o644))

	select {
	case res := <-broadcasts:
		assert.Equal(t, "https://img.example/albums/photo.jpg", res.RemoteURL)
		assert.Equal(t, "album1", res.AlbumID)
	case <-time.After(10 * time.Second):
		t.Fatal("no broadcast after dropping photo.jpg")
	}

	album, err := st.Album(ctx, "album1")
	require.NoError(t, err)
	assert.Equal(t, 1, album.PhotoCount)
	assert.Equal(t, 1, up.callCount())

	// Exactly one broadcast.
	select {
	case res := <-broadcasts:
		t.Fatalf("unexpected second broadcast: %+v", res)
	case <-time.After(time.Second):
	}
}

func TestDropOversizedFileIsIgnored(t *testing.T) {
	reg, st, up, broadcasts := wireStack(t)
	ctx := context.Background()

	_, err := st.CreateAlbum(ctx, "album1", "Holiday")
	require.NoError(t, err)

	dir := t.TempDir()
	_, err = reg.CreateSession("alice", dir, "album1")
	require.NoError(t, err)

	// 12 MiB png: validated and rejected, nothing uploaded or persisted.
	data := make([]byte, 12*1024*1024)
	copy(data, []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "big.png"), data, 0o644))

	select {
	case res := <-broadcasts:
		t.Fatalf("oversized file must not broadcast: %+v", res)
	case <-time.After(3 * time.Second):
	}

	album, err := st.Album(ctx, "album1")
	require.NoError(t, err)
	assert.Zero(t, album.PhotoCount)
	assert.Zero(t, up.callCount(), "no upload call for oversized files")
}

func TestNonImageFileNeverIngested(t *testing.T) {
	reg, st, up, broadcasts := wireStack(t)
	ctx := context.Background()

	_, err := st.CreateAlbum(ctx, "album1", "Holiday")
	require.NoError(t, err)

	dir := t.TempDir()
	_, err = reg.CreateSession("alice", dir, "album1")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a photo"), 0o644))

	select {
	case res := <-broadcasts:
		t.Fatalf("non-image must not broadcast: %+v", res)
	case <-time.After(2 * time.Second):
	}
	assert.Zero(t, up.callCount())
}

func TestRevokedSessionStopsIngesting(t *testing.T) {
	reg, st, up, broadcasts := wireStack(t)
	ctx := context.Background()

	_, err := st.CreateAlbum(ctx, "album1", "Holiday")
	require.NoError(t, err)

	dir := t.TempDir()
	_, err = reg.CreateSession("alice", dir, "album1")
	require.NoError(t, err)

	reg.RevokeAll()

	data := make([]byte, 1024)
	copy(data, jpegHeader)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "late.jpg"), data, 0o644))

	select {
	case res := <-broadcasts:
		t.Fatalf("revoked session must not ingest: %+v", res)
	case <-time.After(2 * time.Second):
	}
	assert.Zero(t, up.callCount())
}
