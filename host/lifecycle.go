package host

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/c360/statestore/event"
)

// JoinFunc is work the host must wait for during shutdown.
type JoinFunc func(ctx context.Context) error

// Lifecycle carries the two signals the storage services consume: the
// single-fire after-window-open signal that triggers background warmup, and
// the will-shutdown barrier that shutdown waits on before the process exits.
//
// The host application owns one Lifecycle, fires SignalWindowOpen once its
// first window is up, and calls Shutdown when it is about to exit.
type Lifecycle struct {
	logger     *slog.Logger
	windowOpen *event.Signal

	mu       sync.Mutex
	joins    []JoinFunc
	shutdown bool

	shutdownOnce sync.Once
	shutdownErr  error
}

// Option configures a Lifecycle.
type Option func(*Lifecycle)

// WithLogger sets the logger used for join failures.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Lifecycle) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLifecycle creates a lifecycle with no signals fired.
func NewLifecycle(opts ...Option) *Lifecycle {
	l := &Lifecycle{
		logger:     slog.New(slog.DiscardHandler),
		windowOpen: event.NewSignal(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// AfterWindowOpen registers fn to run once the host signals that its window
// is open. Registrations made after the signal fired run immediately.
func (l *Lifecycle) AfterWindowOpen(fn func()) {
	l.windowOpen.Notify(fn)
}

// SignalWindowOpen fires the after-window-open signal. Idempotent.
func (l *Lifecycle) SignalWindowOpen() {
	l.windowOpen.Fire()
}

// OnWillShutdown registers a join that Shutdown will wait on. Registering
// after Shutdown started is a programming error; the late join is ignored
// and logged.
func (l *Lifecycle) OnWillShutdown(join JoinFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.shutdown {
		l.logger.Warn("shutdown join registered after shutdown began, ignoring")
		return
	}
	l.joins = append(l.joins, join)
}

// Shutdown runs every registered join concurrently and waits for all of them
// to finish, honouring ctx for the overall deadline. It returns the joined
// errors; individual failures are also logged. Subsequent calls return the
// first result.
func (l *Lifecycle) Shutdown(ctx context.Context) error {
	l.shutdownOnce.Do(func() {
		l.shutdownErr = l.runJoins(ctx)
	})
	return l.shutdownErr
}

func (l *Lifecycle) runJoins(ctx context.Context) error {
	l.mu.Lock()
	l.shutdown = true
	joins := l.joins
	l.joins = nil
	l.mu.Unlock()

	errCh := make(chan error, len(joins))
	var wg sync.WaitGroup
	for _, join := range joins {
		wg.Add(1)
		go func(join JoinFunc) {
			defer wg.Done()
			if err := join(ctx); err != nil {
				l.logger.Error("shutdown join failed", "error", err)
				errCh <- err
			}
		}(join)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	close(errCh)
	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
