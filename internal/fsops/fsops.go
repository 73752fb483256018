package fsops

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/temirov/llm-prompter/internal/failure"
)

const (
	directoryPermissions = 0o755
	filePermissions      = 0o644
)

// Store is the file facade used by the prompter. Every method reports
// failures as failure.ErrIO.
type Store struct{ Fs afero.Fs }

// NewOS returns a store backed by the real filesystem.
func NewOS() Store { return Store{Fs: afero.NewOsFs()} }

// NewMem returns an in-memory store (tests, dry integration).
func NewMem() Store { return Store{Fs: afero.NewMemMapFs()} }

// ListFiles walks root recursively and returns regular file paths relative to
// root, in lexical order. Dot-files and dot-directories are skipped.
func (s Store) ListFiles(root string) ([]string, error) {
	root = filepath.Clean(root)
	var out []string
	err := afero.Walk(s.Fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		name := info.Name()
		if info.IsDir() {
			if p != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !info.Mode().IsRegular() {
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return relErr
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, failure.Wrap(failure.ErrIO, err, "read dir %s", root)
	}
	sort.Strings(out)
	return out, nil
}

// ReadText returns the file content as text.
func (s Store) ReadText(name string) (string, error) {
	data, err := afero.ReadFile(s.Fs, filepath.Clean(name))
	if err != nil {
		return "", failure.Wrap(failure.ErrIO, err, "read %s", name)
	}
	return string(data), nil
}

// ReadTextIfExists is ReadText that reports a missing file as ok=false
// instead of an error.
func (s Store) ReadTextIfExists(name string) (string, bool, error) {
	data, err := afero.ReadFile(s.Fs, filepath.Clean(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, failure.Wrap(failure.ErrIO, err, "read %s", name)
	}
	return string(data), true, nil
}

// WriteText writes text to name, creating parent directories as needed.
func (s Store) WriteText(name string, text string) error {
	name = filepath.Clean(name)
	if err := s.Fs.MkdirAll(filepath.Dir(name), directoryPermissions); err != nil {
		return failure.Wrap(failure.ErrIO, err, "create dir for %s", name)
	}
	if err := afero.WriteFile(s.Fs, name, []byte(text), filePermissions); err != nil {
		return failure.Wrap(failure.ErrIO, err, "write %s", name)
	}
	return nil
}

// Delete removes name. A missing file is not an error.
func (s Store) Delete(name string) error {
	err := s.Fs.Remove(filepath.Clean(name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return failure.Wrap(failure.ErrIO, err, "delete %s", name)
	}
	return nil
}

func (s Store) FileExists(p string) bool {
	info, err := s.Fs.Stat(filepath.Clean(p))
	return err == nil && !info.IsDir()
}

func (s Store) DirExists(p string) bool {
	ok, err := afero.DirExists(s.Fs, filepath.Clean(p))
	return err == nil && ok
}
