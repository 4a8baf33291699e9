//go:build linux || darwin

package loader

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderCloseCancelsQueuedLoads(t *testing.T) {
	// opening a fifo blocks until a writer shows up, pinning the only worker
	fifo := filepath.Join(t.TempDir(), "busy.obj")
	require.NoError(t, syscall.Mkfifo(fifo, 0o600))

	l := NewLoader(1)
	busy := l.LoadAsync(fifo)
	require.Eventually(t, func() bool {
		_, queued := l.queued.Load(1)
		return !queued
	}, 5*time.Second, time.Millisecond, "worker never picked up the first load")

	var waiting []*Future
	for range 20 {
		waiting = append(waiting, l.LoadAsync("never/started.obj"))
	}
	l.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, f := range waiting {
		_, err := f.Wait(ctx)
		assert.ErrorIs(t, err, ErrCancelled)
	}
	assert.False(t, busy.Ready())

	w, err := os.OpenFile(fifo, os.O_WRONLY, 0)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = busy.Wait(ctx)
	assert.ErrorIs(t, err, ErrNoFaces, "a running load keeps its own result")
}
