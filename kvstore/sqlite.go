package kvstore

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"

	// Pure-Go SQLite driver, registered for database/sql. No CGO required.
	_ "modernc.org/sqlite"

	"github.com/c360/statestore/errors"
	"github.com/c360/statestore/event"
	"github.com/c360/statestore/metric"
)

// itemTableSchema is the single table backing a durable store. ON CONFLICT
// REPLACE makes every insert an upsert, which keeps the flush transaction to
// one statement shape.
const itemTableSchema = `
CREATE TABLE IF NOT EXISTS item_table (
	key   TEXT UNIQUE ON CONFLICT REPLACE,
	value TEXT
)`

// defaultFlushInterval is the cadence at which deferred writes are committed
// when the owner does not configure one.
const defaultFlushInterval = 100 * time.Millisecond

// closeFlushMaxElapsed bounds the retry window for the final flush so a busy
// database cannot hang host shutdown indefinitely.
const closeFlushMaxElapsed = 5 * time.Second

// SQLiteOption configures a SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithLogger sets the trace logger. Without it the store is silent.
func WithLogger(logger *slog.Logger) SQLiteOption {
	return func(s *SQLiteStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithHint tells the store what the caller knows about the backing file.
// HintDoesNotExist skips the existing-data load on Init.
func WithHint(hint Hint) SQLiteOption {
	return func(s *SQLiteStore) { s.hint = hint }
}

// WithFlushInterval overrides the deferred-write flush cadence.
func WithFlushInterval(d time.Duration) SQLiteOption {
	return func(s *SQLiteStore) {
		if d > 0 {
			s.flushInterval = d
		}
	}
}

// WithMetrics registers flush instrumentation with the given registrar.
// The scope label keeps stores for different scopes (global, workspace)
// apart on a shared registry.
func WithMetrics(reg metric.Registrar, scope string) SQLiteOption {
	return func(s *SQLiteStore) {
		s.registrar = reg
		s.metricScope = scope
	}
}

// SQLiteStore is a durable Store backed by a transactional SQLite file.
//
// All reads are served from an in-memory view of the table. Writes update
// that view immediately and are committed to disk in batches: on a flush
// interval, and unconditionally on Close. The store therefore never blocks a
// caller on disk I/O outside Init and Close.
type SQLiteStore struct {
	path          string
	hint          Hint
	logger        *slog.Logger
	flushInterval time.Duration
	registrar     metric.Registrar
	metricScope   string

	db *sql.DB

	mu             sync.RWMutex
	items          map[string]string
	pendingSets    map[string]string
	pendingDeletes map[string]struct{}
	initialized    bool
	closed         bool

	changes *event.Emitter[ChangeEvent]

	flushDone chan struct{}
	stopFlush chan struct{}
	closeOnce sync.Once
	closeErr  error

	flushBatchSize prometheus.Histogram
	flushDuration  prometheus.Histogram
}

// OpenSQLite creates a durable store for the given path. Construction is
// cheap; the file is not touched until Init. Use InMemorySentinel as the
// path to keep the database off disk.
func OpenSQLite(path string, opts ...SQLiteOption) *SQLiteStore {
	s := &SQLiteStore{
		path:           path,
		logger:         slog.New(slog.DiscardHandler),
		flushInterval:  defaultFlushInterval,
		items:          make(map[string]string),
		pendingSets:    make(map[string]string),
		pendingDeletes: make(map[string]struct{}),
		changes:        event.NewEmitter[ChangeEvent](),
		flushDone:      make(chan struct{}),
		stopFlush:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init opens the database, ensures the schema, loads existing items unless
// the does-not-exist hint was given, and starts the background flusher.
func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyInitialized, "kvstore", "Init", "reinitialize store")
	}
	s.initialized = true
	s.mu.Unlock()

	dsn := s.path
	if s.path != InMemorySentinel {
		dsn = s.path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return errors.WrapTransient(err, "kvstore", "Init", "open database")
	}
	// SQLite allows one writer; a single connection also keeps the in-memory
	// database from evaporating between pool connections.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, itemTableSchema); err != nil {
		db.Close()
		return errors.WrapFatal(err, "kvstore", "Init", "create schema")
	}

	if s.hint != HintDoesNotExist {
		if err := s.loadItems(ctx, db); err != nil {
			db.Close()
			return err
		}
	}

	s.mu.Lock()
	s.db = db
	s.mu.Unlock()

	s.registerMetrics()
	go s.flushLoop()

	s.logger.Debug("durable store initialized",
		"path", s.path,
		"hint", s.hint == HintDoesNotExist,
		"items", s.Size())
	return nil
}

// loadItems populates the in-memory view from the existing table.
func (s *SQLiteStore) loadItems(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, "SELECT key, value FROM item_table")
	if err != nil {
		return errors.WrapTransient(err, "kvstore", "Init", "load existing items")
	}
	defer rows.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return errors.WrapFatal(err, "kvstore", "Init", "scan item row")
		}
		s.items[key] = value
	}
	if err := rows.Err(); err != nil {
		return errors.WrapTransient(err, "kvstore", "Init", "iterate item rows")
	}
	return nil
}

func (s *SQLiteStore) registerMetrics() {
	if s.registrar == nil {
		return
	}

	labels := prometheus.Labels{"scope": s.metricScope}
	s.flushBatchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   "statestore",
		Subsystem:   "kvstore",
		Name:        "flush_batch_size",
		Help:        "Number of pending operations committed per flush",
		Buckets:     prometheus.ExponentialBuckets(1, 4, 8),
		ConstLabels: labels,
	})
	s.flushDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   "statestore",
		Subsystem:   "kvstore",
		Name:        "flush_duration_seconds",
		Help:        "Flush transaction duration in seconds",
		Buckets:     prometheus.DefBuckets,
		ConstLabels: labels,
	})

	if err := s.registrar.Register("kvstore", s.metricScope+".flush_batch_size", s.flushBatchSize); err != nil {
		s.logger.Warn("flush batch size metric not registered", "error", err)
		s.flushBatchSize = nil
	}
	if err := s.registrar.Register("kvstore", s.metricScope+".flush_duration_seconds", s.flushDuration); err != nil {
		s.logger.Warn("flush duration metric not registered", "error", err)
		s.flushDuration = nil
	}
}

// Get returns the value for key, or fallback when absent.
func (s *SQLiteStore) Get(key, fallback string) string {
	s.mu.RLock()
	value, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return fallback
	}
	return value
}

// GetBoolean returns the value for key as a bool, or fallback.
func (s *SQLiteStore) GetBoolean(key string, fallback bool) bool {
	s.mu.RLock()
	value, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return fallback
	}
	return coerceBoolean(value, fallback)
}

// GetNumber returns the value for key as an int64, or fallback.
func (s *SQLiteStore) GetNumber(key string, fallback int64) int64 {
	s.mu.RLock()
	value, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return fallback
	}
	return coerceNumber(value, fallback)
}

// Hint reports the hint the store was opened with.
func (s *SQLiteStore) Hint() Hint {
	return s.hint
}

// Size reports the number of items in the in-memory view.
func (s *SQLiteStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Set stores value under key. The write is visible to reads immediately and
// committed to disk on the next flush.
func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.WrapInvalid(errors.ErrStoreClosed, "kvstore", "Set", "write to closed store")
	}
	if !s.initialized {
		s.mu.Unlock()
		return errors.WrapInvalid(errors.ErrNotInitialized, "kvstore", "Set", "write before init")
	}
	s.items[key] = value
	s.pendingSets[key] = value
	delete(s.pendingDeletes, key)
	s.mu.Unlock()

	s.changes.Fire(ChangeEvent{Key: key})
	return nil
}

// Delete removes key. Removing an absent key is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.WrapInvalid(errors.ErrStoreClosed, "kvstore", "Delete", "delete on closed store")
	}
	if !s.initialized {
		s.mu.Unlock()
		return errors.WrapInvalid(errors.ErrNotInitialized, "kvstore", "Delete", "delete before init")
	}
	_, existed := s.items[key]
	delete(s.items, key)
	delete(s.pendingSets, key)
	s.pendingDeletes[key] = struct{}{}
	s.mu.Unlock()

	if existed {
		s.changes.Fire(ChangeEvent{Key: key, Deleted: true})
	}
	return nil
}

// Items returns a snapshot of all current key-value pairs.
func (s *SQLiteStore) Items(ctx context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[string]string, len(s.items))
	for k, v := range s.items {
		snapshot[k] = v
	}
	return snapshot, nil
}

// OnDidChange registers a change handler.
func (s *SQLiteStore) OnDidChange(h func(ChangeEvent)) (unsubscribe func()) {
	return s.changes.Subscribe(h)
}

// flushLoop commits pending writes on the configured cadence until Close.
func (s *SQLiteStore) flushLoop() {
	defer close(s.flushDone)

	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopFlush:
			return
		case <-ticker.C:
			if err := s.Flush(context.Background()); err != nil {
				s.logger.Warn("deferred flush failed, will retry next interval", "error", err)
			}
		}
	}
}

// Flush commits all pending writes in one transaction. A failed flush puts
// the batch back so a later flush or Close can commit it, unless a newer
// write superseded it in the meantime.
func (s *SQLiteStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	if len(s.pendingSets) == 0 && len(s.pendingDeletes) == 0 {
		s.mu.Unlock()
		return nil
	}
	sets := s.pendingSets
	deletes := s.pendingDeletes
	s.pendingSets = make(map[string]string)
	s.pendingDeletes = make(map[string]struct{})
	db := s.db
	s.mu.Unlock()

	start := time.Now()
	err := s.commit(ctx, db, sets, deletes)
	if err != nil {
		s.requeue(sets, deletes)
		return err
	}

	if s.flushBatchSize != nil {
		s.flushBatchSize.Observe(float64(len(sets) + len(deletes)))
	}
	if s.flushDuration != nil {
		s.flushDuration.Observe(time.Since(start).Seconds())
	}
	s.logger.Debug("flushed pending writes", "sets", len(sets), "deletes", len(deletes))
	return nil
}

func (s *SQLiteStore) commit(ctx context.Context, db *sql.DB, sets map[string]string, deletes map[string]struct{}) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapTransient(err, "kvstore", "Flush", "begin transaction")
	}
	defer tx.Rollback()

	if len(sets) > 0 {
		stmt, err := tx.PrepareContext(ctx, "INSERT INTO item_table (key, value) VALUES (?, ?)")
		if err != nil {
			return errors.WrapTransient(err, "kvstore", "Flush", "prepare upsert")
		}
		for key, value := range sets {
			if _, err := stmt.ExecContext(ctx, key, value); err != nil {
				stmt.Close()
				return errors.WrapTransient(err, "kvstore", "Flush", "upsert item")
			}
		}
		stmt.Close()
	}

	if len(deletes) > 0 {
		stmt, err := tx.PrepareContext(ctx, "DELETE FROM item_table WHERE key = ?")
		if err != nil {
			return errors.WrapTransient(err, "kvstore", "Flush", "prepare delete")
		}
		for key := range deletes {
			if _, err := stmt.ExecContext(ctx, key); err != nil {
				stmt.Close()
				return errors.WrapTransient(err, "kvstore", "Flush", "delete item")
			}
		}
		stmt.Close()
	}

	if err := tx.Commit(); err != nil {
		return errors.WrapTransient(err, "kvstore", "Flush", "commit transaction")
	}
	return nil
}

// requeue merges a failed batch back into the pending maps without clobbering
// newer writes.
func (s *SQLiteStore) requeue(sets map[string]string, deletes map[string]struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range sets {
		if _, newer := s.pendingSets[key]; newer {
			continue
		}
		if _, deleted := s.pendingDeletes[key]; deleted {
			continue
		}
		s.pendingSets[key] = value
	}
	for key := range deletes {
		if _, newer := s.pendingSets[key]; newer {
			continue
		}
		s.pendingDeletes[key] = struct{}{}
	}
}

// Close stops the flusher, commits everything still pending, and releases
// the database. The final flush retries transient failures with exponential
// backoff but gives up after closeFlushMaxElapsed so shutdown never hangs.
func (s *SQLiteStore) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.closeErr = s.doClose(ctx)
	})
	return s.closeErr
}

func (s *SQLiteStore) doClose(ctx context.Context) error {
	s.mu.Lock()
	wasInitialized := s.initialized && s.db != nil
	s.closed = true
	db := s.db
	s.mu.Unlock()

	if !wasInitialized {
		return nil
	}

	close(s.stopFlush)
	<-s.flushDone

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = closeFlushMaxElapsed
	flushErr := backoff.Retry(func() error {
		err := s.Flush(ctx)
		if err != nil && !errors.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(bo, ctx))

	if s.registrar != nil {
		s.registrar.Unregister("kvstore", s.metricScope+".flush_batch_size")
		s.registrar.Unregister("kvstore", s.metricScope+".flush_duration_seconds")
	}

	closeErr := db.Close()
	if flushErr != nil {
		s.logger.Error("final flush failed, pending writes lost", "error", flushErr)
		return errors.WrapTransient(flushErr, "kvstore", "Close", "final flush")
	}
	if closeErr != nil {
		return errors.WrapTransient(closeErr, "kvstore", "Close", "close database")
	}

	s.logger.Debug("durable store closed", "path", s.path)
	return nil
}
