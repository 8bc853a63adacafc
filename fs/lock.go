package fs

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/fwojciec/akiwatch"
	"github.com/google/uuid"
)

// DefaultLockTTL is the age after which a lock is treated as abandoned.
const DefaultLockTTL = 10 * time.Minute

// lockFile is the on-disk lock content.
type lockFile struct {
	OwnerID    string `json:"ownerId"`
	AcquiredAt int64  `json:"acquiredAtEpochSeconds"`
}

// Locker grants cross-process exclusivity through a lock file.
type Locker struct {
	path string
	ttl  time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// NewLocker creates a Locker for the lock file at path. Locks older than
// ttl are considered stale and may be taken over.
func NewLocker(path string, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &Locker{path: path, ttl: ttl, Now: time.Now}
}

// Lock is a held process lock.
type Lock struct {
	path    string
	ownerID string
}

// OwnerID returns the identifier written into the lock file.
func (l *Lock) OwnerID() string {
	return l.ownerID
}

// Acquire takes the lock. It returns an ECONFLICT error when another owner
// holds a fresh lock. Stale or unreadable lock files are replaced.
func (l *Locker) Acquire() (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return nil, err
	}

	lock := &Lock{path: l.path, ownerID: uuid.New().String()}
	content, err := json.Marshal(lockFile{OwnerID: lock.ownerID, AcquiredAt: l.Now().Unix()})
	if err != nil {
		return nil, err
	}

	err = createExclusive(l.path, content)
	if err == nil {
		return lock, nil
	}
	if !errors.Is(err, os.ErrExist) {
		return nil, err
	}

	if held, owner := l.isHeld(); held {
		return nil, akiwatch.Errorf(akiwatch.ECONFLICT, "lock %s held by %s", l.path, owner)
	}

	// Stale: take it over. Losing the race to another process is a conflict.
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err := createExclusive(l.path, content); errors.Is(err, os.ErrExist) {
		return nil, akiwatch.Errorf(akiwatch.ECONFLICT, "lock %s taken concurrently", l.path)
	} else if err != nil {
		return nil, err
	}
	return lock, nil
}

// isHeld reports whether the existing lock file is fresh.
func (l *Locker) isHeld() (bool, string) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return false, ""
	}
	var lf lockFile
	if err := json.Unmarshal(data, &lf); err != nil || lf.OwnerID == "" {
		return false, ""
	}
	age := l.Now().Sub(time.Unix(lf.AcquiredAt, 0))
	return age < l.ttl, lf.OwnerID
}

// Release removes the lock file if this lock still owns it.
// Release is safe to call multiple times.
func (l *Lock) Release() error {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	} else if err != nil {
		return err
	}

	var lf lockFile
	if err := json.Unmarshal(data, &lf); err != nil || lf.OwnerID != l.ownerID {
		return nil
	}

	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// createExclusive writes content to a private temp file and links it into
// place, so the lock file never exists without its full content. It fails
// with os.ErrExist when path is already taken.
func createExclusive(path string, content []byte) error {
	tmp := path + "." + uuid.New().String() + ".tmp"
	if err := os.WriteFile(tmp, content, 0644); err != nil {
		return err
	}
	defer os.Remove(tmp)
	return os.Link(tmp, path)
}
