package objstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Local stores objects as files under a directory. It backs tests and
// offline runs.
type Local struct {
	dir string
}

// NewLocal creates the directory if needed.
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "objstore: create %s", dir)
	}
	return &Local{dir: dir}, nil
}

// Name implements Bucket.
func (l *Local) Name() string { return "file://" + l.dir }

func (l *Local) path(key string) (string, error) {
	p := filepath.Join(l.dir, filepath.FromSlash(key))
	if !strings.HasPrefix(filepath.Clean(p), filepath.Clean(l.dir)+string(os.PathSeparator)) {
		return "", eris.Errorf("objstore: illegal key %q", key)
	}
	return p, nil
}

// Get implements Bucket.
func (l *Local) Get(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := l.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "objstore: open %s", key)
	}
	return f, nil
}

// Put implements Bucket. The object is written to a temp file and renamed
// so readers never see a partial object.
func (l *Local) Put(_ context.Context, key string, body io.Reader, _ string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return eris.Wrapf(err, "objstore: create dir for %s", key)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".put-*")
	if err != nil {
		return eris.Wrapf(err, "objstore: temp file for %s", key)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		return eris.Wrapf(err, "objstore: write %s", key)
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "objstore: close %s", key)
	}
	return eris.Wrapf(os.Rename(tmp.Name(), p), "objstore: rename %s", key)
}
