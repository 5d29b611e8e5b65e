package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ErrInvalidName is returned for content names that would escape the
// save directory.
var ErrInvalidName = errors.New("invalid content name")

// SaveStore keeps battery-backed save RAM as <dir>/<content>.srm.
type SaveStore struct {
	fs  afero.Fs
	dir string
}

// NewSaveStore returns a store rooted at dir.
func NewSaveStore(fs afero.Fs, dir string) *SaveStore {
	return &SaveStore{fs: fs, dir: dir}
}

func (s *SaveStore) path(name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name+".srm"), nil
}

// LoadSaveBlob returns the stored save RAM for name. A missing save
// reports an error matching os.ErrNotExist.
func (s *SaveStore) LoadSaveBlob(name string) ([]byte, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	return afero.ReadFile(s.fs, p)
}

// StoreSaveBlob writes save RAM for name atomically.
func (s *SaveStore) StoreSaveBlob(name string, data []byte) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := atomicWrite(s.fs, p, data); err != nil {
		return fmt.Errorf("store save RAM: %w", err)
	}
	return nil
}

// HasSave reports whether save RAM exists for name.
func (s *SaveStore) HasSave(name string) bool {
	p, err := s.path(name)
	if err != nil {
		return false
	}
	_, err = s.fs.Stat(p)
	return err == nil
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// notExist reports whether err means a file is missing.
func notExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
