package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestRunReturnsResult(t *testing.T) {
	is := is.New(t)
	r := New()
	defer r.Close()

	v, err := r.Run(context.Background(), func(ctx context.Context) (any, error) {
		return 42, nil
	}, time.Second)
	is.NoErr(err)
	is.Equal(v, 42)
}

func TestRunPropagatesOpError(t *testing.T) {
	is := is.New(t)
	r := New()
	defer r.Close()

	boom := errors.New("boom")
	_, err := r.Run(context.Background(), func(ctx context.Context) (any, error) {
		return nil, boom
	}, time.Second)
	is.True(errors.Is(err, boom))
}

func TestRunTimeoutLeavesOpRunning(t *testing.T) {
	is := is.New(t)
	r := New()
	defer r.Close()

	release := make(chan struct{})
	finished := make(chan struct{})

	start := time.Now()
	_, err := r.Run(context.Background(), func(ctx context.Context) (any, error) {
		defer close(finished)
		select {
		case <-release:
			return "late", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}, 50*time.Millisecond)
	is.True(errors.Is(err, ErrTimeout))
	is.True(time.Since(start) < 2*time.Second)

	// the orphaned op is still running and was not cancelled
	is.Equal(r.Pending(), 1)
	select {
	case <-finished:
		t.Fatal("op finished before being released")
	default:
	}

	close(release)
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("orphaned op never completed")
	}
}

func TestOrphanedOpDoesNotBlockLaterSubmissions(t *testing.T) {
	is := is.New(t)
	r := New()
	defer r.Close()

	_, err := r.Run(context.Background(), func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, 10*time.Millisecond)
	is.True(errors.Is(err, ErrTimeout))

	v, err := r.Run(context.Background(), func(ctx context.Context) (any, error) {
		return "next", nil
	}, time.Second)
	is.NoErr(err)
	is.Equal(v, "next")
}

func TestRunConcurrentCallers(t *testing.T) {
	is := is.New(t)
	r := New()
	defer r.Close()

	var wg sync.WaitGroup
	results := make([]int, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := Do(context.Background(), r, time.Second, func(ctx context.Context) (int, error) {
				return i * 2, nil
			})
			if err == nil {
				results[i] = v
			}
		}(i)
	}
	wg.Wait()

	for i, v := range results {
		is.Equal(v, i*2)
	}
}

func TestRunCallerContextCancelled(t *testing.T) {
	is := is.New(t)
	r := New()
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, func(ctx context.Context) (any, error) {
		return nil, nil
	}, time.Second)
	is.True(errors.Is(err, context.Canceled))
}

func TestRunAfterClose(t *testing.T) {
	is := is.New(t)
	r := New()
	r.Close()

	_, err := r.Run(context.Background(), func(ctx context.Context) (any, error) {
		return nil, nil
	}, time.Second)
	is.True(errors.Is(err, ErrClosed))
}

func TestRunRecoversPanic(t *testing.T) {
	is := is.New(t)
	r := New()
	defer r.Close()

	_, err := r.Run(context.Background(), func(ctx context.Context) (any, error) {
		panic("bad op")
	}, time.Second)
	is.True(err != nil)
}
