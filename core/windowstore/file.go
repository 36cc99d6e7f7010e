package windowstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// File keeps all windows in one JSON document. Writes go to a temporary file
// that is renamed over the previous document.
type File struct {
	mu   sync.Mutex
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Load(_ context.Context, mapping string) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	windows, err := f.read()
	if err != nil {
		return time.Time{}, err
	}
	return windows[mapping], nil
}

func (f *File) Save(_ context.Context, mapping string, end time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	windows, err := f.read()
	if err != nil {
		return err
	}
	windows[mapping] = end.UTC()
	return f.write(windows)
}

func (f *File) Reset(_ context.Context, mapping string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	windows, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := windows[mapping]; !ok {
		return nil
	}
	delete(windows, mapping)
	return f.write(windows)
}

func (f *File) List(context.Context) (map[string]time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read()
}

func (f *File) read() (map[string]time.Time, error) {
	windows := make(map[string]time.Time)
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return windows, nil
		}
		return nil, errors.Wrapf(err, "read window file %s", f.path)
	}
	if len(data) == 0 {
		return windows, nil
	}
	if err := json.Unmarshal(data, &windows); err != nil {
		return nil, errors.Wrapf(err, "decode window file %s", f.path)
	}
	return windows, nil
}

func (f *File) write(windows map[string]time.Time) error {
	data, err := json.MarshalIndent(windows, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode windows")
	}
	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create window directory %s", dir)
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrapf(err, "write window file %s", tmp)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return errors.Wrapf(err, "replace window file %s", f.path)
	}
	return nil
}
