package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitSignal(t *testing.T, w *Watcher, timeout time.Duration) bool {
	t.Helper()
	select {
	case <-w.Signal():
		return true
	case <-time.After(timeout):
		return false
	}
}

func TestSignalCoalescesBursts(t *testing.T) {
	w := New(20 * time.Millisecond)
	defer w.Close()

	for i := 0; i < 10; i++ {
		w.bump()
	}

	require.True(t, waitSignal(t, w, 2*time.Second))
	select {
	case <-w.Signal():
		t.Fatal("burst must collapse into a single signal")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestZeroDebounceSignalsImmediately(t *testing.T) {
	w := New(0)
	defer w.Close()

	w.bump()

	select {
	case <-w.Signal():
	default:
		t.Fatal("expected an immediate signal")
	}
}

func TestNotificationsPickUpWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "product.db")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	w := New(10 * time.Millisecond)
	w.Watch(path, time.Hour) // polling interval irrelevant when notifications work
	require.NoError(t, w.Start())
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))

	assert.True(t, waitSignal(t, w, 5*time.Second))
}

func TestPollingFallbackForMissingDirectory(t *testing.T) {
	dir := t.TempDir()
	// The parent directory does not exist yet, so notifications cannot
	// attach and the file is polled.
	path := filepath.Join(dir, "later", "Battle.net.config")

	w := New(0)
	w.Watch(path, 10*time.Millisecond)
	require.NoError(t, w.Start())
	defer w.Close()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	assert.True(t, waitSignal(t, w, 5*time.Second))
}

func TestPollingSeesRemoval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	w := New(0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.wg.Add(1)
	go w.poll(ctx, entry{path: path, interval: 10 * time.Millisecond})

	require.NoError(t, os.Remove(path))
	assert.True(t, waitSignal(t, w, 5*time.Second))

	cancel()
	w.wg.Wait()
}

func TestCloseTwice(t *testing.T) {
	w := New(time.Millisecond)
	w.Watch(filepath.Join(t.TempDir(), "f"), 10*time.Millisecond)
	require.NoError(t, w.Start())

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}

func TestBumpAfterCloseIsIgnored(t *testing.T) {
	w := New(0)
	require.NoError(t, w.Close())

	w.bump()

	select {
	case <-w.Signal():
		t.Fatal("closed watcher must not signal")
	default:
	}
}
