package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/c360/statestore/errors"
	"github.com/c360/statestore/event"
	"github.com/c360/statestore/host"
	"github.com/c360/statestore/kvstore"
)

// Opener produces the durable store for a storage service. Open may fail,
// in which case the service keeps running against its in-memory placeholder.
type Opener interface {
	Open(ctx context.Context) (kvstore.Store, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context) (kvstore.Store, error)

// Open implements Opener.
func (f OpenerFunc) Open(ctx context.Context) (kvstore.Store, error) {
	return f(ctx)
}

// Service is the storage lifecycle state machine shared by the global and
// workspace scopes. It owns exactly one active store at a time: the
// in-memory placeholder from construction until Initialize succeeds, the
// durable store after. Reads and writes go to whichever store is active and
// never wait on initialization; writes issued before the swap land in the
// placeholder and are discarded by it, since true persistence only begins
// once the durable store is active.
type Service struct {
	scope   string
	opener  Opener
	logger  *slog.Logger
	metrics *serviceMetrics

	mu        sync.RWMutex
	active    kvstore.Store
	closed    bool
	unforward func()

	initMu        sync.Mutex
	initDone      chan struct{}
	initFinished  bool
	initErr       error
	initCallbacks []func(error)

	changes  *event.Emitter[kvstore.ChangeEvent]
	willSave *event.Emitter[struct{}]
	didClose *event.Emitter[struct{}]

	closeOnce sync.Once
	closeErr  error
}

// newService creates a lifecycle in its pre-initialization state, serving
// from a fresh in-memory placeholder.
func newService(scope string, opener Opener, o *options) *Service {
	return &Service{
		scope:    scope,
		opener:   opener,
		logger:   o.logger.With("component", "storage", "scope", scope),
		metrics:  newServiceMetrics(o.registrar, scope, o.logger),
		active:   kvstore.NewMemoryStore(),
		changes:  event.NewEmitter[kvstore.ChangeEvent](),
		willSave: event.NewEmitter[struct{}](),
		didClose: event.NewEmitter[struct{}](),
	}
}

// attachHost registers the service against the host lifecycle: background
// initialization after window open, and the close join on the shutdown
// barrier. The concrete services pass their own initialize and close so an
// overridden Close (the global scope's will-save ordering) is honoured.
func attachHost(h *host.Lifecycle, initialize func(context.Context) error, closeFn host.JoinFunc) {
	if h == nil {
		return
	}
	h.AfterWindowOpen(func() {
		// Warmup must never block the host's signal dispatch. Failures are
		// logged inside the initialization path.
		go func() { _ = initialize(context.Background()) }()
	})
	h.OnWillShutdown(closeFn)
}

// Initialize opens the durable store and swaps it in. It is idempotent and
// safe for concurrent callers: the first call starts the work, every call
// observes the same completion. ctx only bounds this caller's wait; the
// initialization itself runs to completion or failure and has no
// cancellation path.
func (s *Service) Initialize(ctx context.Context) error {
	s.initMu.Lock()
	if s.initDone == nil {
		s.initDone = make(chan struct{})
		go s.runInitialize(s.initDone)
	}
	done := s.initDone
	s.initMu.Unlock()

	select {
	case <-done:
		return s.initErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WhenInitialized registers fn to run once initialization completes, with
// its result. If initialization already completed, fn runs immediately on
// the calling goroutine. WhenInitialized does not itself trigger
// initialization.
func (s *Service) WhenInitialized(fn func(error)) {
	s.initMu.Lock()
	if s.initFinished {
		s.initMu.Unlock()
		fn(s.initErr)
		return
	}
	s.initCallbacks = append(s.initCallbacks, fn)
	s.initMu.Unlock()
}

func (s *Service) runInitialize(done chan struct{}) {
	defer close(done)

	// No cancellation: once started, warmup runs to completion or failure.
	ctx := context.Background()

	st, err := s.opener.Open(ctx)
	if err != nil {
		s.logger.Error("durable storage unavailable, continuing in-memory", "error", err)
		s.metrics.incInitFailures()
		s.finishInit(err)
		return
	}

	// The is-new marker is a synthetic write; it happens before the change
	// forwarding subscription exists so collaborators never see it as a
	// change event.
	s.markIsNew(ctx, st)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		// Close already ran: shut the late arrival down and abandon it,
		// never making it active.
		if cerr := st.Close(ctx); cerr != nil {
			s.logger.Warn("closing late-arriving durable store", "error", cerr)
		}
		s.finishInit(errors.ErrServiceClosed)
		return
	}
	s.active = st
	s.unforward = st.OnDidChange(func(ev kvstore.ChangeEvent) {
		s.changes.Fire(ev)
	})
	s.mu.Unlock()

	s.metrics.incInitializations()
	s.logger.Info("durable storage initialized")
	s.finishInit(nil)
}

func (s *Service) finishInit(err error) {
	s.initMu.Lock()
	s.initErr = err
	s.initFinished = true
	callbacks := s.initCallbacks
	s.initCallbacks = nil
	s.initMu.Unlock()

	for _, fn := range callbacks {
		fn(err)
	}
}

// markIsNew maintains the is-new marker: absent means first ever open (set
// true), true means the fresh store is on its second open (flip to false),
// false stays false.
func (s *Service) markIsNew(ctx context.Context, st kvstore.Store) {
	switch st.Get(IsNewStorageKey, "") {
	case "":
		if err := st.Set(ctx, IsNewStorageKey, "true"); err != nil {
			s.logger.Warn("is-new marker not written", "error", err)
		}
	case "true":
		if err := st.Set(ctx, IsNewStorageKey, "false"); err != nil {
			s.logger.Warn("is-new marker not flipped", "error", err)
		}
	}
}

// IsNew reports whether the durable store was created by this process's
// initialization. Meaningful only after Initialize resolves.
func (s *Service) IsNew() bool {
	return s.GetBoolean(IsNewStorageKey, false)
}

func (s *Service) activeStore() kvstore.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Get returns the value for key from the active store, or fallback.
func (s *Service) Get(key, fallback string) string {
	return s.activeStore().Get(key, fallback)
}

// GetBoolean returns the value for key as a bool, or fallback when absent or
// not coercible.
func (s *Service) GetBoolean(key string, fallback bool) bool {
	return s.activeStore().GetBoolean(key, fallback)
}

// GetNumber returns the value for key as an int64, or fallback when absent
// or not coercible.
func (s *Service) GetNumber(key string, fallback int64) int64 {
	return s.activeStore().GetNumber(key, fallback)
}

// Store writes value under key in the active store. A nil value deletes the
// key. Accepted value types are string, bool, integers, and floats; anything
// else is an invalid-input error.
func (s *Service) Store(ctx context.Context, key string, value any) error {
	if value == nil {
		return s.Remove(ctx, key)
	}

	encoded, err := encodeValue(value)
	if err != nil {
		return err
	}

	s.metrics.incWrites()
	return s.activeStore().Set(ctx, key, encoded)
}

// Remove deletes key from the active store. Removing an absent key is not
// an error.
func (s *Service) Remove(ctx context.Context, key string) error {
	s.metrics.incDeletes()
	return s.activeStore().Delete(ctx, key)
}

// OnDidChangeStorage registers a handler for committed writes and deletes.
// Only changes on the durable store are delivered; the pre-swap placeholder
// and the lifecycle's own synthetic writes never surface here.
func (s *Service) OnDidChangeStorage(h func(kvstore.ChangeEvent)) (unsubscribe func()) {
	return s.changes.Subscribe(h)
}

// OnWillSaveState registers a handler that runs before state is flushed on
// close, giving collaborators a last chance to write.
func (s *Service) OnWillSaveState(h func()) (unsubscribe func()) {
	return s.willSave.Subscribe(func(struct{}) { h() })
}

// OnDidClose registers a handler that runs exactly once, after the active
// store has been flushed and closed.
func (s *Service) OnDidClose(h func()) (unsubscribe func()) {
	return s.didClose.Subscribe(func(struct{}) { h() })
}

// fireWillSave runs the will-save handlers synchronously.
func (s *Service) fireWillSave() {
	s.willSave.Fire(struct{}{})
}

// Close flushes and closes whichever store is currently active, then emits
// the closed notification exactly once. Safe to call before Initialize ever
// resolved; subsequent calls return the first result.
func (s *Service) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.closeErr = s.doClose(ctx)
	})
	return s.closeErr
}

func (s *Service) doClose(ctx context.Context) error {
	start := time.Now()

	s.mu.Lock()
	s.closed = true
	st := s.active
	unforward := s.unforward
	s.unforward = nil
	s.mu.Unlock()

	if unforward != nil {
		unforward()
	}

	err := st.Close(ctx)
	if err != nil {
		s.logger.Error("active store close failed", "error", err)
	}

	s.metrics.observeCloseDuration(time.Since(start).Seconds())

	// The closed notification fires exactly once even when the flush
	// failed, so host shutdown is never left waiting on it.
	s.didClose.Fire(struct{}{})
	s.logger.Info("storage closed", "duration", time.Since(start))
	return err
}

// encodeValue renders a supported value type to its stored representation.
func encodeValue(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.FormatInt(int64(v), 10), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return "", errors.WrapInvalid(
			fmt.Errorf("unsupported value type %T", value),
			"storage", "Store", "encode value")
	}
}
