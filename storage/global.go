package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/c360/statestore/config"
	"github.com/c360/statestore/errors"
	"github.com/c360/statestore/kvstore"
)

// SessionMetadata is the install and session identity derived from the
// global store's contents on every initialization.
type SessionMetadata struct {
	// InstanceID is generated on the first ever initialization and stable
	// for the lifetime of the install.
	InstanceID string
	// FirstSessionDate is set once, on the first ever initialization.
	FirstSessionDate string
	// LastSessionDate is the previous session's CurrentSessionDate, empty
	// when this is the first session.
	LastSessionDate string
	// CurrentSessionDate is set to now on every initialization.
	CurrentSessionDate string
}

// GlobalService is the storage lifecycle for the single global store shared
// across all sessions. Its durable store lives at a fixed path under the
// configured global root, and each successful initialization derives and
// persists SessionMetadata.
type GlobalService struct {
	*Service

	cfg           config.Config
	now           func() time.Time
	newInstanceID func() string
	willSaveOnce  sync.Once
}

// NewGlobalService creates the global storage lifecycle. When a host
// lifecycle is provided, the service initializes itself in the background
// after window open and joins the shutdown barrier with its Close.
func NewGlobalService(cfg config.Config, opts ...Option) *GlobalService {
	o := newOptions(opts)

	g := &GlobalService{
		cfg:           cfg,
		now:           o.now,
		newInstanceID: o.newInstanceID,
	}
	g.Service = newService("global", OpenerFunc(g.open), o)
	attachHost(o.host, g.Initialize, g.Close)
	return g
}

// open resolves the fixed global path, opens the durable store there, and
// derives session metadata before the lifecycle swaps the store in.
func (g *GlobalService) open(ctx context.Context) (kvstore.Store, error) {
	path := kvstore.InMemorySentinel
	if !g.cfg.UseInMemory {
		if err := os.MkdirAll(g.cfg.GlobalRoot, 0o755); err != nil {
			return nil, errors.WrapTransient(err, "storage", "open", "create global storage root")
		}
		path = filepath.Join(g.cfg.GlobalRoot, config.StateFileName)
	}

	st := kvstore.OpenSQLite(path, g.sqliteOptions()...)
	if err := st.Init(ctx); err != nil {
		return nil, err
	}

	g.applySessionMetadata(ctx, st)
	return st, nil
}

func (g *GlobalService) sqliteOptions() []kvstore.SQLiteOption {
	opts := []kvstore.SQLiteOption{
		kvstore.WithLogger(g.logger),
		kvstore.WithFlushInterval(g.cfg.FlushInterval()),
	}
	if g.metrics != nil {
		opts = append(opts, kvstore.WithMetrics(g.metrics.registrar, g.scope))
	}
	return opts
}

// applySessionMetadata derives the four session values. These are synthetic
// pre-swap writes: they happen before the forwarding subscription exists and
// their failures degrade metadata, never the open itself.
func (g *GlobalService) applySessionMetadata(ctx context.Context, st kvstore.Store) {
	if st.Get(InstanceIDKey, "") == "" {
		g.setOrLog(ctx, st, InstanceIDKey, g.newInstanceID())
	}

	now := g.now().UTC().Format(time.RFC3339Nano)
	if st.Get(FirstSessionDateKey, "") == "" {
		g.setOrLog(ctx, st, FirstSessionDateKey, now)
	}

	// Rotate: the previous current session date becomes the last session
	// date, or is cleared when this is the first session ever.
	previous := st.Get(CurrentSessionDateKey, "")
	if previous == "" {
		if err := st.Delete(ctx, LastSessionDateKey); err != nil {
			g.logger.Warn("session metadata not cleared", "key", LastSessionDateKey, "error", err)
		}
	} else {
		g.setOrLog(ctx, st, LastSessionDateKey, previous)
	}
	g.setOrLog(ctx, st, CurrentSessionDateKey, now)
}

func (g *GlobalService) setOrLog(ctx context.Context, st kvstore.Store, key, value string) {
	if err := st.Set(ctx, key, value); err != nil {
		g.logger.Warn("session metadata not written", "key", key, "error", err)
	}
}

// SessionMetadata returns the derived install and session identity from the
// active store. Values are empty until Initialize resolves successfully.
func (g *GlobalService) SessionMetadata() SessionMetadata {
	return SessionMetadata{
		InstanceID:         g.Get(InstanceIDKey, ""),
		FirstSessionDate:   g.Get(FirstSessionDateKey, ""),
		LastSessionDate:    g.Get(LastSessionDateKey, ""),
		CurrentSessionDate: g.Get(CurrentSessionDateKey, ""),
	}
}

// Close fires the will-save notification synchronously before the base
// close sequence, giving late writers one last chance to persist state
// before the flush. Will-save fires exactly once, even for concurrent
// callers.
func (g *GlobalService) Close(ctx context.Context) error {
	g.willSaveOnce.Do(g.fireWillSave)
	return g.Service.Close(ctx)
}
