package fs_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/akiwatch"
	"github.com/fwojciec/akiwatch/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Story: Single Instance
// Only one run may be active; abandoned locks expire

func TestLocker_Acquire(t *testing.T) {
	t.Parallel()

	t.Run("writes owner and acquisition time", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "akiwatch.lock")
		now := time.Unix(1_760_000_000, 0)
		locker := fs.NewLocker(path, time.Minute)
		locker.Now = func() time.Time { return now }

		lock, err := locker.Acquire()
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var content map[string]any
		require.NoError(t, json.Unmarshal(data, &content))
		assert.Equal(t, lock.OwnerID(), content["ownerId"])
		assert.EqualValues(t, now.Unix(), content["acquiredAtEpochSeconds"])
	})

	t.Run("refuses a fresh lock held by another owner", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "akiwatch.lock")
		first := fs.NewLocker(path, time.Minute)
		_, err := first.Acquire()
		require.NoError(t, err)

		_, err = fs.NewLocker(path, time.Minute).Acquire()

		require.Error(t, err)
		assert.Equal(t, akiwatch.ECONFLICT, akiwatch.ErrorCode(err))
	})

	t.Run("takes over a stale lock", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "akiwatch.lock")
		start := time.Unix(1_760_000_000, 0)

		old := fs.NewLocker(path, time.Minute)
		old.Now = func() time.Time { return start }
		_, err := old.Acquire()
		require.NoError(t, err)

		later := fs.NewLocker(path, time.Minute)
		later.Now = func() time.Time { return start.Add(2 * time.Minute) }
		lock, err := later.Acquire()

		require.NoError(t, err)
		assert.NotEmpty(t, lock.OwnerID())
	})

	t.Run("takes over an unreadable lock file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "akiwatch.lock")
		require.NoError(t, os.WriteFile(path, []byte("12345\n"), 0644))

		_, err := fs.NewLocker(path, time.Minute).Acquire()

		require.NoError(t, err)
	})
}

func TestLocker_Acquire_ConcurrentContenders(t *testing.T) {
	t.Parallel()

	// Given many contenders racing for the same lock file
	dir := t.TempDir()
	path := filepath.Join(dir, "akiwatch.lock")
	const contenders = 16

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   int
		conflicts int
	)
	start := make(chan struct{})
	for range contenders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := fs.NewLocker(path, time.Minute).Acquire()
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners++
			} else if akiwatch.ErrorCode(err) == akiwatch.ECONFLICT {
				conflicts++
			}
		}()
	}

	// When they all start at once
	close(start)
	wg.Wait()

	// Then exactly one holds the lock and the rest see a conflict
	assert.Equal(t, 1, winners)
	assert.Equal(t, contenders-1, conflicts)

	// And no temp files are left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "akiwatch.lock", entries[0].Name())
}

func TestLock_Release(t *testing.T) {
	t.Parallel()

	t.Run("removes the lock file and allows reacquiring", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "akiwatch.lock")
		locker := fs.NewLocker(path, time.Minute)
		lock, err := locker.Acquire()
		require.NoError(t, err)

		require.NoError(t, lock.Release())
		require.NoError(t, lock.Release(), "release is idempotent")

		_, err = os.Stat(path)
		assert.True(t, os.IsNotExist(err))
		_, err = locker.Acquire()
		assert.NoError(t, err)
	})

	t.Run("leaves a lock taken over by another owner", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "akiwatch.lock")
		start := time.Unix(1_760_000_000, 0)

		old := fs.NewLocker(path, time.Minute)
		old.Now = func() time.Time { return start }
		stale, err := old.Acquire()
		require.NoError(t, err)

		later := fs.NewLocker(path, time.Minute)
		later.Now = func() time.Time { return start.Add(time.Hour) }
		_, err = later.Acquire()
		require.NoError(t, err)

		require.NoError(t, stale.Release())

		_, err = os.Stat(path)
		assert.NoError(t, err, "the new owner's lock must survive")
	})
}
