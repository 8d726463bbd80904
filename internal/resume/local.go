package resume

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// LocalStore serves resumes from a directory on disk.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir}
}

func (s *LocalStore) Fetch(_ context.Context, key string) (*File, error) {
	// Clean against "/" so a key can never climb out of dir.
	clean := path.Clean("/" + key)
	if clean == "/" {
		return nil, ErrMissing
	}
	full := filepath.Join(s.dir, filepath.FromSlash(clean))

	f, err := os.Open(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrMissing
	}
	if err != nil {
		return nil, fmt.Errorf("open resume: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read resume: %w", err)
	}
	if len(data) > MaxSize {
		return nil, fmt.Errorf("resume %s exceeds %d bytes", key, MaxSize)
	}

	name := path.Base(clean)
	return &File{Name: name, ContentType: contentTypeFor(name), Data: data}, nil
}
