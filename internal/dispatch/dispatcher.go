package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	BufferSize int
	DropIfFull bool
}

// Handler consumes one delivered item.
type Handler[T any] func(ctx context.Context, item T)

// Dispatcher asynchronously forwards items to a handler on one worker goroutine.
// Items are delivered in the order they were accepted.
type Dispatcher[T any] struct {
	cfg       Config
	handle    Handler[T]
	ch        chan T
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closeOnce sync.Once

	// mu orders sends against Close: Emit sends under the read lock, Close
	// marks closed under the write lock, so no item lands after the drain.
	mu     sync.RWMutex
	closed bool
}

// New starts a dispatcher delivering to handle.
func New[T any](cfg Config, handle Handler[T]) *Dispatcher[T] {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if handle == nil {
		handle = func(context.Context, T) {}
	}

	d := &Dispatcher[T]{
		cfg:    cfg,
		handle: handle,
		ch:     make(chan T, cfg.BufferSize),
		done:   make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher[T]) run() {
	defer d.wg.Done()

	for {
		select {
		case item := <-d.ch:
			d.handle(context.Background(), item)
		case <-d.done:
			for {
				select {
				case item := <-d.ch:
					d.handle(context.Background(), item)
				default:
					return
				}
			}
		}
	}
}

// Emit queues item. With DropIfFull a full buffer drops the item and counts it;
// otherwise Emit blocks until there is room, ctx is done, or the dispatcher closes.
// It reports whether the item was accepted; accepted items are always handled.
func (d *Dispatcher[T]) Emit(ctx context.Context, item T) bool {
	if d == nil {
		return false
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- item:
			return true
		default:
			d.dropped.Add(1)
			return false
		}
	}

	select {
	case d.ch <- item:
		return true
	case <-ctx.Done():
		return false
	}
}

// Close stops accepting items, drains the buffer and waits for the worker.
// Emits blocked on a full buffer finish before the drain starts.
func (d *Dispatcher[T]) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()

		close(d.done)
		d.wg.Wait()
	})
}

// Dropped returns the number of items dropped because the buffer was full.
func (d *Dispatcher[T]) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
