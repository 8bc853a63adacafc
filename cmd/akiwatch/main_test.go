package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fwojciec/akiwatch"
	main "github.com/fwojciec/akiwatch/cmd/akiwatch"
	"github.com/fwojciec/akiwatch/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultPage = `<html><body>
<h3><span>令和07年10月04日(土)</span></h3>
<form name="formResult"><input type="hidden" name="selectdate" value="20251004"></form>
<table class="result">
<tr><th>施設</th><th id="td1_1">07:00<br>～<br>09:00</th><th id="td1_2">09:00<br>～<br>11:00</th></tr>
<tr>
  <th class="shisetsu"><strong>光が丘体育館</strong><br>第一競技場</th>
  <td id="td11_1" class="ok"><img src="o.gif" alt="O"></td>
  <td id="td11_2" class="ng"><img src="x.gif" alt="X"></td>
</tr>
<tr>
  <th class="shisetsu"><strong>総合体育館</strong><br>競技場A</th>
  <td id="td12_1" class="ng"><img src="x.gif" alt="X"></td>
  <td id="td12_2" class="ok"><img src="o.gif" alt="O"></td>
</tr>
</table>
</body></html>`

// fastConfig writes a config file without politeness delays.
func fastConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	content := "data_dir: " + filepath.Join(dir, "data") + `
http:
  initial_delay_min: 0s
  initial_delay_max: 0s
  page_delay_min: 0s
  page_delay_max: 0s
  max_retries: 1
preflight: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newMain(env map[string]string) *main.Main {
	m := main.NewMain()
	m.Getenv = func(name string) string { return env[name] }
	m.DotenvPaths = nil
	m.Now = func() time.Time { return time.Date(2025, 10, 1, 6, 0, 0, 0, time.UTC) }
	return m
}

// resultsLauncher opens browsers that land directly on a single result page.
func resultsLauncher() *mock.BrowserLauncher {
	return &mock.BrowserLauncher{
		OpenFn: func(ctx context.Context) (akiwatch.Browser, error) {
			url := ""
			doc := &mock.Frame{
				URLFn:  func() string { return url },
				HTMLFn: func() (string, error) { return resultPage, nil },
				QueryFn: func(akiwatch.Matcher, time.Duration) (akiwatch.Element, error) {
					return nil, akiwatch.Errorf(akiwatch.ENOTFOUND, "not found")
				},
				QueryAllFn: func(akiwatch.Matcher) ([]akiwatch.Element, error) { return nil, nil },
			}
			return &mock.Browser{
				NavigateFn: func(_ context.Context, u string) error {
					url = u
					return nil
				},
				WaitLoadFn: func(time.Duration) error { return nil },
				URLFn:      func() string { return url },
				MainFn:     func() akiwatch.Frame { return doc },
				FramesFn:   func() []akiwatch.Frame { return nil },
				CloseFn:    func() error { return nil },
			}, nil
		},
	}
}

func TestMain_Help(t *testing.T) {
	t.Parallel()

	stdout := &bytes.Buffer{}

	err := newMain(nil).Run(context.Background(), []string{"--help"}, stdout, &bytes.Buffer{})

	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "run")
	assert.Contains(t, stdout.String(), "history")
}

func TestMain_Run(t *testing.T) {
	t.Parallel()

	t.Run("notifies new slots once and saves the snapshot", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		config := fastConfig(t, dir)
		var sent [][]akiwatch.Slot
		notifier := &mock.Notifier{
			SendFn: func(_ context.Context, slots []akiwatch.Slot) (bool, error) {
				sent = append(sent, slots)
				return len(slots) > 0, nil
			},
		}

		// Given a first run against a page with two open slots
		m := newMain(nil)
		m.Launcher = resultsLauncher()
		m.Notifier = notifier
		stdout := &bytes.Buffer{}
		err := m.Run(context.Background(), []string{"--config", config}, stdout, &bytes.Buffer{})

		// Then both are new and the snapshot holds them
		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "extracted 2, new 2, notified true")
		data, err := os.ReadFile(filepath.Join(dir, "data", "prev.json"))
		require.NoError(t, err)
		var saved []akiwatch.Slot
		require.NoError(t, json.Unmarshal(data, &saved))
		assert.Len(t, saved, 2)

		// When the same page is seen again
		m = newMain(nil)
		m.Launcher = resultsLauncher()
		m.Notifier = notifier
		stdout = &bytes.Buffer{}
		err = m.Run(context.Background(), []string{"run", "--config", config}, stdout, &bytes.Buffer{})

		// Then nothing is new
		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "extracted 2, new 0, notified false")
		require.Len(t, sent, 2)
		assert.Len(t, sent[0], 2)
		assert.Empty(t, sent[1])

		// And the run artifacts were written
		dumps, err := filepath.Glob(filepath.Join(dir, "data", "run-*", "result-page-001.html"))
		require.NoError(t, err)
		assert.NotEmpty(t, dumps)
		logs, err := filepath.Glob(filepath.Join(dir, "data", "run-*", "log.jsonl"))
		require.NoError(t, err)
		assert.NotEmpty(t, logs)
	})

	t.Run("force send notifies every slot and dry run keeps the snapshot", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		config := fastConfig(t, dir)
		var sent []akiwatch.Slot
		m := newMain(nil)
		m.Launcher = resultsLauncher()
		m.Notifier = &mock.Notifier{
			SendFn: func(_ context.Context, slots []akiwatch.Slot) (bool, error) {
				sent = slots
				return true, nil
			},
		}

		err := m.Run(context.Background(), []string{"run", "--config", config, "--dry-run", "--force-send"}, &bytes.Buffer{}, &bytes.Buffer{})

		require.NoError(t, err)
		assert.Len(t, sent, 2)
		_, err = os.Stat(filepath.Join(dir, "data", "prev.json"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("exits successfully when another instance holds the lock", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		config := fastConfig(t, dir)
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "data"), 0o755))
		lock := `{"ownerId":"other","acquiredAtEpochSeconds":` + jsonInt(time.Now().Unix()) + `}`
		require.NoError(t, os.WriteFile(filepath.Join(dir, "data", "akiwatch.lock"), []byte(lock), 0o644))

		m := newMain(nil)
		m.Launcher = &mock.BrowserLauncher{
			OpenFn: func(context.Context) (akiwatch.Browser, error) {
				t.Error("browser opened while locked")
				return nil, errors.New("locked")
			},
		}
		stdout := &bytes.Buffer{}

		err := m.Run(context.Background(), []string{"--config", config}, stdout, &bytes.Buffer{})

		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "another instance is running")
	})

	t.Run("fails when every attempt fails and records the failure", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		config := fastConfig(t, dir)
		m := newMain(nil)
		m.Launcher = &mock.BrowserLauncher{
			OpenFn: func(context.Context) (akiwatch.Browser, error) {
				return nil, errors.New("chrome crashed")
			},
		}
		m.Notifier = &mock.Notifier{
			SendFn: func(context.Context, []akiwatch.Slot) (bool, error) {
				t.Error("notifier called after failed crawl")
				return false, nil
			},
		}

		err := m.Run(context.Background(), []string{"--config", config}, &bytes.Buffer{}, &bytes.Buffer{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "chrome crashed")

		// The lock is released
		_, statErr := os.Stat(filepath.Join(dir, "data", "akiwatch.lock"))
		assert.ErrorIs(t, statErr, os.ErrNotExist)

		// And history shows the failed run
		stdout := &bytes.Buffer{}
		err = newMain(nil).Run(context.Background(), []string{"--config", config, "history", "--failed"}, stdout, &bytes.Buffer{})
		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "failed")
		assert.Contains(t, stdout.String(), "chrome crashed")
	})

	t.Run("rejects invalid configuration", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		config := fastConfig(t, dir)
		stderr := &bytes.Buffer{}

		err := newMain(map[string]string{"AKIWATCH_MAX_PAGES": "0"}).Run(context.Background(), []string{"--config", config}, &bytes.Buffer{}, stderr)

		require.Error(t, err)
		assert.Equal(t, akiwatch.EINVALID, akiwatch.ErrorCode(err))
		assert.Contains(t, stderr.String(), "max pages")
	})
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestMain_ConfigPathFromDotenv(t *testing.T) {
	// Modifies the process environment; not parallel.
	t.Setenv("AKIWATCH_CONFIG", "")
	require.NoError(t, os.Unsetenv("AKIWATCH_CONFIG"))
	t.Cleanup(func() { _ = os.Unsetenv("AKIWATCH_CONFIG") })

	// Given a .env naming the config file
	dir := t.TempDir()
	config := fastConfig(t, dir)
	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("AKIWATCH_CONFIG="+config+"\n"), 0o644))

	m := newMain(nil)
	m.DotenvPaths = []string{dotenv}

	// When running without --config
	err := m.Run(context.Background(), []string{"history"}, &bytes.Buffer{}, &bytes.Buffer{})

	// Then the config from .env decides the data directory
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "data", "history.db"))
	assert.NoError(t, err)
}
