package gateway

import (
	"os"

	"github.com/spf13/afero"

	"github.com/ayato-h/albumdrop/tool"
)

// sessionFs is the per-connection filesystem: an os fs re-rooted at the
// session directory. afero's BasePathFs rejects every path that would escape
// the base, which is the hard isolation boundary the gateway promises.
type sessionFs struct {
	afero.Fs
}

func newSessionFs(root string) *sessionFs {
	return &sessionFs{Fs: afero.NewBasePathFs(afero.NewOsFs(), root)}
}

// OpenFile wraps written files so a completed store gets acknowledged in the
// log. No business logic happens here; settlement is the watcher's job.
func (s *sessionFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	f, err := s.Fs.OpenFile(name, flag, perm)
	if err != nil || flag&(os.O_WRONLY|os.O_RDWR) == 0 {
		return f, err
	}
	return &storedFile{File: f}, nil
}

type storedFile struct {
	afero.File
}

func (f *storedFile) Close() error {
	err := f.File.Close()
	if err == nil {
		tool.DefaultLogger.Debugf("[Gateway] Store complete: %s", f.Name())
	}
	return err
}
