package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// TempFile is a uniquely named file that exists only for the duration of one
// operation.
type TempFile struct {
	Path string
}

// WriteTemp writes data to a new file in dir named after pattern (see
// os.CreateTemp). Callers must call Remove on every exit path.
func WriteTemp(dir, pattern string, data []byte) (*TempFile, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create temp dir: %w", err)
		}
	}
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmp := &TempFile{Path: f.Name()}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = tmp.Remove()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = tmp.Remove()
		return nil, fmt.Errorf("close temp file: %w", err)
	}
	return tmp, nil
}

// Remove deletes the file. Removing an already deleted file is not an error.
func (t *TempFile) Remove() error {
	if t == nil || t.Path == "" {
		return nil
	}
	if err := os.Remove(t.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// WriteFileAtomic writes data next to path and renames it into place so
// readers never observe a partial file.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := WriteTemp(dir, "."+filepath.Base(path)+".*.tmp", data)
	if err != nil {
		return err
	}
	if err := os.Chmod(tmp.Path, mode); err != nil {
		_ = tmp.Remove()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Path, path); err != nil {
		_ = tmp.Remove()
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
