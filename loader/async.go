package loader

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"go.uber.org/zap"

	"scenegraph/internal/logger"
	"scenegraph/scene"
)

const queueSize = 256

// Loader decodes assets on a pool of background workers. Decoding touches
// only CPU memory; GPU objects are created lazily on first draw, so results
// are safe to attach from the render goroutine.
type Loader struct {
	pool   worker.DynamicWorkerPool
	nextID atomic.Int64
	closed atomic.Bool
	queued sync.Map // task id -> *Future not yet picked up by a worker
}

// NewLoader starts a pool of workers goroutines. workers <= 0 picks one less
// than the CPU count.
func NewLoader(workers int) *Loader {
	if workers <= 0 {
		workers = max(runtime.NumCPU()-1, 1)
	}
	return &Loader{pool: worker.NewDynamicWorkerPool(workers, queueSize, time.Second)}
}

// LoadAsync queues path for loading and returns its future. It blocks only
// when the task queue is full. After Close the future resolves immediately
// with ErrCancelled.
func (l *Loader) LoadAsync(path string) *Future {
	f := newFuture(path)
	if l.closed.Load() {
		f.Cancel()
		return f
	}
	id := int(l.nextID.Add(1))
	l.queued.Store(id, f)
	if l.closed.Load() {
		l.queued.Delete(id)
		f.Cancel()
		return f
	}
	l.pool.SubmitTask(worker.Task{
		ID:      id,
		Payload: path,
		Do: func() (any, error) {
			l.queued.Delete(id)
			n, err := Load(path)
			if err != nil {
				logger.Log.Debug("loader: load failed", zap.String("path", path), zap.Error(err))
			}
			f.resolve(n, err)
			return n, err
		},
	})
	return f
}

// Close stops the workers. Queued loads that have not started are dropped
// and their futures resolve with ErrCancelled; loads already running still
// resolve with their own result.
func (l *Loader) Close() {
	if l.closed.Swap(true) {
		return
	}
	l.pool.ClearTaskQueue()
	l.pool.Stop()
	l.queued.Range(func(id, f any) bool {
		l.queued.Delete(id)
		f.(*Future).Cancel()
		return true
	})
}

type pendingLoad struct {
	future *Future
	parent scene.Node
}

// Queue pairs futures with the node their result should hang under. It is
// flushed between frames so the graph only changes outside traversal.
type Queue struct {
	mu      sync.Mutex
	pending []pendingLoad
}

// Add registers f to be attached beneath parent once it resolves.
func (q *Queue) Add(f *Future, parent scene.Node) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, pendingLoad{future: f, parent: parent})
}

// Flush attaches every resolved future's graph to its parent and drops the
// failed ones. It returns how many graphs were attached.
func (q *Queue) Flush() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	attached := 0
	kept := q.pending[:0]
	for _, p := range q.pending {
		if !p.future.Ready() {
			kept = append(kept, p)
			continue
		}
		n, err := p.future.Result()
		if errors.Is(err, ErrCancelled) {
			continue
		}
		if err != nil {
			logger.Log.Error("loader: asset failed", zap.String("path", p.future.Path()), zap.Error(err))
			continue
		}
		p.parent.AsNode().AddChild(n)
		attached++
	}
	clear(q.pending[len(kept):])
	q.pending = kept
	return attached
}

// Cancel abandons every pending future. Nothing is attached.
func (q *Queue) Cancel() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, p := range q.pending {
		p.future.Cancel()
	}
	q.pending = nil
}

// Len is the number of futures still waiting to be flushed.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
