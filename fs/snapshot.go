package fs

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/fwojciec/akiwatch"
)

// Ensure SnapshotStore implements akiwatch.SnapshotStore at compile time.
var _ akiwatch.SnapshotStore = (*SnapshotStore)(nil)

// SnapshotStore keeps the slots seen by earlier runs in a single JSON file.
// The file is read whole on open and written whole on save.
type SnapshotStore struct {
	path    string
	prev    []akiwatch.Slot
	loadErr error
}

// OpenSnapshotStore loads the snapshot at path. It never fails: a missing
// file or undecodable content leaves the prior snapshot empty, so every
// current slot counts as new. LoadErr reports why content was discarded.
func OpenSnapshotStore(path string) *SnapshotStore {
	s := &SnapshotStore{path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s
	} else if err != nil {
		s.loadErr = err
		return s
	}

	var prev []akiwatch.Slot
	if err := json.Unmarshal(data, &prev); err != nil {
		s.loadErr = akiwatch.Errorf(akiwatch.EINVALID, "decoding snapshot %s: %v", path, err)
		return s
	}
	s.prev = prev
	return s
}

// LoadErr returns the reason the stored snapshot was discarded, if any.
// A missing file is not an error.
func (s *SnapshotStore) LoadErr() error {
	return s.loadErr
}

// Prior returns the loaded snapshot.
func (s *SnapshotStore) Prior() []akiwatch.Slot {
	return s.prev
}

// Diff returns the slots in current whose key is not in the prior snapshot.
func (s *SnapshotStore) Diff(current []akiwatch.Slot) []akiwatch.Slot {
	seen := make(map[akiwatch.Key]struct{}, len(s.prev))
	for _, slot := range s.prev {
		seen[slot.Key()] = struct{}{}
	}

	var out []akiwatch.Slot
	for _, slot := range current {
		if _, ok := seen[slot.Key()]; !ok {
			out = append(out, slot)
		}
	}
	return out
}

// Save persists current. SaveOverwrite replaces the snapshot; SaveUnion
// merges current into it by key, current winning on collision, so crawls
// of different categories keep each other's slots.
func (s *SnapshotStore) Save(current []akiwatch.Slot, mode akiwatch.SaveMode) error {
	var out []akiwatch.Slot
	switch mode {
	case akiwatch.SaveOverwrite:
		out = current
	case akiwatch.SaveUnion:
		out = union(s.prev, current)
	default:
		return akiwatch.Errorf(akiwatch.EINVALID, "unknown save mode %s", mode)
	}
	if out == nil {
		out = []akiwatch.Slot{}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return err
	}

	s.prev = out
	return nil
}

// union returns prev overlaid with current by key. Keys keep the position
// of their first appearance.
func union(prev, current []akiwatch.Slot) []akiwatch.Slot {
	index := make(map[akiwatch.Key]int, len(prev)+len(current))
	out := make([]akiwatch.Slot, 0, len(prev)+len(current))
	for _, list := range [][]akiwatch.Slot{prev, current} {
		for _, slot := range list {
			key := slot.Key()
			if i, ok := index[key]; ok {
				out[i] = slot
				continue
			}
			index[key] = len(out)
			out = append(out, slot)
		}
	}
	return out
}

// writeFileAtomic writes data to a temporary file next to path and renames
// it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}

	// Rename over the final path
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
