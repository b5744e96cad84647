package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// Dispatcher runs best-effort work after a response has been decided.
// Failures are logged and never reach the caller.
type Dispatcher interface {
	Go(ctx context.Context, name string, fn func(ctx context.Context) error)
}

// DefaultDispatchTimeout bounds one unit of dispatched work.
const DefaultDispatchTimeout = 10 * time.Second

// AsyncDispatcher runs each unit on its own goroutine with a context that
// keeps the values of the request context but not its cancellation.
type AsyncDispatcher struct {
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAsyncDispatcher(timeout time.Duration) *AsyncDispatcher {
	if timeout <= 0 {
		timeout = DefaultDispatchTimeout
	}
	return &AsyncDispatcher{timeout: timeout}
}

func (d *AsyncDispatcher) Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		if err := run(ctx, fn); err != nil {
			slog.WarnContext(ctx, "Background work failed", "work", name, "error", err)
		}
	}()
}

// Wait blocks until dispatched work finishes or ctx is done.
func (d *AsyncDispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InlineDispatcher runs work synchronously. Failures are still only logged.
type InlineDispatcher struct{}

func (InlineDispatcher) Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	if err := run(ctx, fn); err != nil {
		slog.WarnContext(ctx, "Background work failed", "work", name, "error", err)
	}
}

func run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return fn(ctx)
}
