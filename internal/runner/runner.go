package runner

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrTimeout is returned by Run when the wait bound elapses before the op finishes.
	// The op itself keeps running.
	ErrTimeout = errors.New("runner: timed out waiting for operation")

	// ErrClosed is returned when submitting to a Runner that has been closed.
	ErrClosed = errors.New("runner: closed")
)

// Op is a unit of work executed on the runner loop.
type Op func(ctx context.Context) (any, error)

type result struct {
	value any
	err   error
}

type job struct {
	op   Op
	done chan result // buffered(1) so an abandoned job never blocks on send
}

// Runner owns a single long-lived loop goroutine. Callers block on Run while the
// loop executes their ops, which keeps outbound client work off the request path's
// own lifecycle.
type Runner struct {
	jobs    chan job
	quit    chan struct{}
	stopped chan struct{}

	// ctx is the parent of every op. It is only cancelled by Close, never by a
	// caller's timeout.
	ctx    context.Context
	cancel context.CancelFunc

	wg        sync.WaitGroup
	pending   atomic.Int64
	closeOnce sync.Once
}

// New starts the loop goroutine and returns the Runner.
func New() *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		jobs:    make(chan job),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
	go r.loop()
	return r
}

func (r *Runner) loop() {
	defer close(r.stopped)
	for {
		select {
		case j := <-r.jobs:
			r.pending.Add(1)
			r.wg.Add(1)
			go func() {
				defer r.wg.Done()
				defer r.pending.Add(-1)
				j.done <- r.execute(j.op)
			}()
		case <-r.quit:
			return
		}
	}
}

func (r *Runner) execute(op Op) (res result) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("ERROR: runner: operation panicked: %v", p)
			res = result{err: errors.New("runner: operation panicked")}
		}
	}()
	v, err := op(r.ctx)
	return result{value: v, err: err}
}

// Run submits op and waits for its result. A timeout <= 0 waits without bound.
// On timeout the op is left running and its eventual result is dropped.
func (r *Runner) Run(ctx context.Context, op Op, timeout time.Duration) (any, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	j := job{op: op, done: make(chan result, 1)}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case r.jobs <- j:
	case <-r.quit:
		return nil, ErrClosed
	case <-expired:
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-j.done:
		return res.value, res.err
	case <-expired:
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Pending returns the number of ops currently executing, including ones whose
// callers already gave up.
func (r *Runner) Pending() int {
	return int(r.pending.Load())
}

// Close stops accepting work, cancels in-flight ops and waits for them to return.
func (r *Runner) Close() {
	r.closeOnce.Do(func() {
		close(r.quit)
		<-r.stopped
		r.cancel()
		r.wg.Wait()
	})
}

// Do is the typed form of Run.
func Do[T any](ctx context.Context, r *Runner, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	v, err := r.Run(ctx, func(ctx context.Context) (any, error) {
		return fn(ctx)
	}, timeout)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, nil
	}
	return t, nil
}
