package loader

import (
	"context"
	"errors"
	"sync"

	"scenegraph/scene"
)

var (
	// ErrCancelled resolves a future that was abandoned before its load
	// finished.
	ErrCancelled = errors.New("loader: load cancelled")
	// ErrPending is returned by Result while the load is still running.
	ErrPending = errors.New("loader: load still pending")
)

// Future is the one-shot result of an asynchronous load. It resolves exactly
// once; later resolutions are dropped.
type Future struct {
	path string
	done chan struct{}
	once sync.Once
	node scene.Node
	err  error
}

func newFuture(path string) *Future {
	return &Future{path: path, done: make(chan struct{})}
}

func (f *Future) resolve(n scene.Node, err error) {
	f.once.Do(func() {
		f.node, f.err = n, err
		close(f.done)
	})
}

// Path is the asset being loaded.
func (f *Future) Path() string { return f.path }

// Done is closed once the future resolves.
func (f *Future) Done() <-chan struct{} { return f.done }

// Ready reports whether the future has resolved.
func (f *Future) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Result returns the loaded graph without blocking.
func (f *Future) Result() (scene.Node, error) {
	if !f.Ready() {
		return nil, ErrPending
	}
	return f.node, f.err
}

// Wait blocks until the future resolves or ctx ends.
func (f *Future) Wait(ctx context.Context) (scene.Node, error) {
	select {
	case <-f.done:
		return f.node, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel resolves a pending future with ErrCancelled. The background load
// still runs to completion but its result is discarded.
func (f *Future) Cancel() { f.resolve(nil, ErrCancelled) }
