package storage

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// StateSlots is the number of numbered save state slots per game.
const StateSlots = 10

// ResumeSlot names the automatic state written when content is closed.
const ResumeSlot = -1

// SlotInfo describes a stored state.
type SlotInfo struct {
	Slot    int
	Size    int64
	ModTime time.Time
}

// StateStore keeps serialized core state as
// <dir>/<content>/state-<slot>.state and resume.state.
type StateStore struct {
	fs  afero.Fs
	dir string
}

// NewStateStore returns a store rooted at dir.
func NewStateStore(fs afero.Fs, dir string) *StateStore {
	return &StateStore{fs: fs, dir: dir}
}

func (s *StateStore) path(name string, slot int) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	if slot == ResumeSlot {
		return filepath.Join(s.dir, name, "resume.state"), nil
	}
	if slot < 0 || slot >= StateSlots {
		return "", fmt.Errorf("invalid slot %d", slot)
	}
	return filepath.Join(s.dir, name, fmt.Sprintf("state-%d.state", slot)), nil
}

// Save writes state into slot.
func (s *StateStore) Save(name string, slot int, state []byte) error {
	p, err := s.path(name, slot)
	if err != nil {
		return err
	}
	if err := atomicWrite(s.fs, p, state); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

// Load reads the state in slot.
func (s *StateStore) Load(name string, slot int) ([]byte, error) {
	p, err := s.path(name, slot)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, p)
	if notExist(err) {
		return nil, fmt.Errorf("no save in slot %d: %w", slot, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	return data, nil
}

// Delete removes the state in slot. Deleting an empty slot is not an error.
func (s *StateStore) Delete(name string, slot int) error {
	p, err := s.path(name, slot)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(p); err != nil && !notExist(err) {
		return err
	}
	return nil
}

// Slots lists the occupied numbered slots for name.
func (s *StateStore) Slots(name string) []SlotInfo {
	var slots []SlotInfo
	for i := 0; i < StateSlots; i++ {
		p, err := s.path(name, i)
		if err != nil {
			return nil
		}
		fi, err := s.fs.Stat(p)
		if err != nil {
			continue
		}
		slots = append(slots, SlotInfo{Slot: i, Size: fi.Size(), ModTime: fi.ModTime()})
	}
	return slots
}
