package registry

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayato-h/albumdrop/types"
)

type stubStopper struct {
	stopped atomic.Int32
}

func (s *stubStopper) Stop() { s.stopped.Add(1) }

func TestCreateSessionInvalidDirectory(t *testing.T) {
	r := New(Config{})

	_, err := r.CreateSession("alice", filepath.Join(t.TempDir(), "does-not-exist"), "album1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidDirectory)

	// A plain file is not a directory either.
	_, err = r.CreateSession("alice", writeTempFile(t), "album1")
	assert.ErrorIs(t, err, ErrInvalidDirectory)

	assert.Empty(t, r.List())
}

func TestCreateSessionOverwriteInvalidatesOldPassword(t *testing.T) {
	dir := t.TempDir()
	r := New(Config{})

	first, err := r.CreateSession("alice", dir, "album1")
	require.NoError(t, err)

	second, err := r.CreateSession("alice", dir, "album2")
	require.NoError(t, err)
	require.NotEqual(t, first.Password, second.Password)

	_, err = r.Authenticate("alice", first.Password)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	root, err := r.Authenticate("alice", second.Password)
	require.NoError(t, err)
	assert.Equal(t, second.RootDir, root)

	// Still exactly one session for the username.
	assert.Len(t, r.List(), 1)
}

func TestCreateSessionStopsReplacedWatcher(t *testing.T) {
	dir := t.TempDir()
	var stoppers []*stubStopper
	r := New(Config{
		StartWatch: func(sess types.Session) (Stopper, error) {
			s := &stubStopper{}
			stoppers = append(stoppers, s)
			return s, nil
		},
	})

	_, err := r.CreateSession("alice", dir, "album1")
	require.NoError(t, err)
	_, err = r.CreateSession("alice", dir, "album1")
	require.NoError(t, err)

	require.Len(t, stoppers, 2)
	assert.Equal(t, int32(1), stoppers[0].stopped.Load())
	assert.Equal(t, int32(0), stoppers[1].stopped.Load())
}

func TestAuthenticateUnknownUser(t *testing.T) {
	r := New(Config{})
	_, err := r.Authenticate("nobody", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRevokeAllIdempotent(t *testing.T) {
	dir := t.TempDir()
	stop := &stubStopper{}
	resets := 0
	r := New(Config{
		StartWatch: func(sess types.Session) (Stopper, error) { return stop, nil },
		OnReset:    func() { resets++ },
	})

	sess, err := r.CreateSession("alice", dir, "album1")
	require.NoError(t, err)

	r.RevokeAll()
	r.RevokeAll()

	assert.Empty(t, r.List())
	assert.Equal(t, int32(1), stop.stopped.Load())
	assert.Equal(t, 2, resets)

	_, err = r.Authenticate("alice", sess.Password)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestConcurrentAuthenticateAndCreate(t *testing.T) {
	dir := t.TempDir()
	r := New(Config{})

	sess, err := r.CreateSession("alice", dir, "album1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				// Either credential set may win, but a torn record must not.
				if root, err := r.Authenticate("alice", sess.Password); err == nil {
					assert.Equal(t, sess.RootDir, root)
				}
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_, _ = r.CreateSession("bob", dir, "album2")
			}
		}()
	}
	wg.Wait()
}

func writeTempFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	return path
}
