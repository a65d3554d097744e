/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

package watchers

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFSWatcher(t *testing.T) {
	dir := t.TempDir()
	w, err := NewFSWatcher(dir)
	require.NoError(t, err)
	assert.NoError(t, w.Close())

	_, err = NewFSWatcher(dir, filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestNewOSWatcher(t *testing.T) {
	ch := NewOSWatcher(syscall.SIGUSR1)
	defer signal.Stop(ch)
	assert.Equal(t, 1, cap(ch))
}

type counters struct {
	reloads atomic.Int32
	stops   atomic.Int32
}

func newWatcher(path string, c *counters) *Watcher {
	return &Watcher{
		ConfigPath:    path,
		ReloadSignals: []os.Signal{syscall.SIGHUP},
		Reload:        func() { c.reloads.Add(1) },
		Stop:          func() { c.stops.Add(1) },
	}
}

func TestWatcherConfigChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("format: text\n"), 0o600))

	c := &counters{}
	w := newWatcher(path, c)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, make(chan os.Signal)) }()

	// the watch is registered asynchronously, keep writing until it is seen
	assert.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("format: json\n"), 0o600)
		return c.reloads.Load() > 0
	}, 3*time.Second, 50*time.Millisecond)

	// let the events of the last write drain
	time.Sleep(200 * time.Millisecond)
	reloads := c.reloads.Load()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0o600))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, reloads, c.reloads.Load())

	cancel()
	assert.NoError(t, <-done)
	assert.Zero(t, c.stops.Load())
}

func TestWatcherSignals(t *testing.T) {
	c := &counters{}
	w := newWatcher("", c)
	sigs := make(chan os.Signal)
	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background(), sigs) }()

	sigs <- syscall.SIGHUP
	sigs <- syscall.SIGHUP
	sigs <- syscall.SIGTERM
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
	assert.Equal(t, int32(2), c.reloads.Load())
	assert.Equal(t, int32(1), c.stops.Load())
}

func TestWatcherMissingDir(t *testing.T) {
	w := newWatcher(filepath.Join(t.TempDir(), "missing", "config.yaml"), &counters{})
	assert.Error(t, w.Run(context.Background(), nil))
}
