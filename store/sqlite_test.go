package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAddPhotoIncrementsCount(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	album, err := s.CreateAlbum(ctx, "album1", "Summer")
	require.NoError(t, err)
	assert.Zero(t, album.PhotoCount)

	photo, err := s.AddPhoto(ctx, "album1", "https://img.example/a.jpg", "")
	require.NoError(t, err)
	assert.Equal(t, "album1", photo.AlbumID)
	assert.NotEmpty(t, photo.ID)

	got, err := s.Album(ctx, "album1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.PhotoCount)

	photos, err := s.Photos(ctx, "album1")
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Equal(t, "https://img.example/a.jpg", photos[0].URL)
}

func TestAddPhotoMissingAlbumWritesNothing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.AddPhoto(ctx, "nope", "https://img.example/a.jpg", "")
	assert.ErrorIs(t, err, ErrAlbumNotFound)

	photos, err := s.Photos(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, photos, "failed unit must leave no photo row behind")
}

func TestAlbumNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Album(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrAlbumNotFound)
}

// K concurrent ingests against one album bump the counter by exactly K.
func TestAddPhotoConcurrentCounter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.CreateAlbum(ctx, "album1", "Race")
	require.NoError(t, err)

	const k = 25
	var wg sync.WaitGroup
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AddPhoto(ctx, "album1", "https://img.example/x.jpg", "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Album(ctx, "album1")
	require.NoError(t, err)
	assert.Equal(t, k, got.PhotoCount)

	photos, err := s.Photos(ctx, "album1")
	require.NoError(t, err)
	assert.Len(t, photos, k)
}
