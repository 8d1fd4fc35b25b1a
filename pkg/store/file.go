package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BTBurke/spc/pkg/sample"
	"github.com/cenkalti/backoff"
)

var _ Store = &File{}

// File stores each collection as an indented JSON document named <kind>_data.json in a directory.  Writes go to a
// temporary file that is renamed over the document, so readers never see a partial write.
type File struct {
	settings
	dir string

	mu    sync.Mutex
	locks map[sample.Kind]*sync.Mutex
}

// NewFile returns a store rooted at dir, creating the directory if needed
func NewFile(dir string, opts ...Option) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	return &File{
		settings: newSettings(opts),
		dir:      dir,
		locks:    make(map[sample.Kind]*sync.Mutex),
	}, nil
}

// Path returns the document holding the collection of this kind
func (f *File) Path(kind sample.Kind) string {
	return filepath.Join(f.dir, string(kind)+"_data.json")
}

func (f *File) lock(kind sample.Kind) func() {
	f.mu.Lock()
	l, ok := f.locks[kind]
	if !ok {
		l = &sync.Mutex{}
		f.locks[kind] = l
	}
	f.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (f *File) Load(_ context.Context, kind sample.Kind) (*sample.Collection, error) {
	unlock := f.lock(kind)
	defer unlock()
	return f.read(kind)
}

func (f *File) Update(ctx context.Context, kind sample.Kind, fn func(*sample.Collection) error) (*sample.Collection, error) {
	unlock := f.lock(kind)
	defer unlock()

	c, err := f.read(kind)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	b, err := encode(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s collection: %w", kind, err)
	}
	write := func() error {
		return f.write(kind, b)
	}
	if err := backoff.Retry(write, f.retryPolicy(ctx)); err != nil {
		return nil, err
	}
	return c, nil
}

func (f *File) Clear(_ context.Context, kind sample.Kind) error {
	unlock := f.lock(kind)
	defer unlock()
	if err := os.Remove(f.Path(kind)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear %s: %w", f.Path(kind), err)
	}
	return nil
}

func (f *File) read(kind sample.Kind) (*sample.Collection, error) {
	b, err := os.ReadFile(f.Path(kind))
	switch {
	case errors.Is(err, os.ErrNotExist):
		return sample.NewCollection(f.size), nil
	case err != nil:
		return nil, fmt.Errorf("failed to read %s: %w", f.Path(kind), err)
	}
	c, err := decode(f.size, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path(kind), err)
	}
	return c, nil
}

func (f *File) write(kind sample.Kind, b []byte) error {
	tmp, err := os.CreateTemp(f.dir, "."+string(kind)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), f.Path(kind)); err != nil {
		return fmt.Errorf("failed to replace %s: %w", f.Path(kind), err)
	}
	return nil
}
