package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingReloader struct {
	calls atomic.Int32
}

func (r *countingReloader) ReloadAll(ctx context.Context) error {
	r.calls.Add(1)
	return nil
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Shells: []\n"), 0o644))

	r := &countingReloader{}
	w := New(path, r, 50*time.Millisecond)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("Shells:\n  - Name: Tenant1\n"), 0o644))

	assert.Eventually(t, func() bool {
		return r.calls.Load() >= 1
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatcherDebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Shells: []\n"), 0o644))

	r := &countingReloader{}
	w := New(path, r, 200*time.Millisecond)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	// A burst of writes within the debounce window.
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("Shells: []\n"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	assert.Eventually(t, func() bool {
		return r.calls.Load() >= 1
	}, 5*time.Second, 20*time.Millisecond)
	// Settle, then confirm the burst collapsed into a single reload.
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), r.calls.Load())
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Shells: []\n"), 0o644))

	r := &countingReloader{}
	w := New(path, r, 50*time.Millisecond)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0o644))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(0), r.calls.Load())
}

func TestWatcherStopCancelsPending(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Shells: []\n"), 0o644))

	r := &countingReloader{}
	w := New(path, r, time.Second)
	require.NoError(t, w.Start(context.Background()))

	require.NoError(t, os.WriteFile(path, []byte("Shells: []\n"), 0o644))
	time.Sleep(50 * time.Millisecond)
	w.Stop()

	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, int32(0), r.calls.Load())
}

func TestWatcherStartTwice(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Shells: []\n"), 0o644))

	w := New(path, &countingReloader{}, 50*time.Millisecond)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()
	assert.NoError(t, w.Start(context.Background()))
}
