package storage

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/c360/statestore/config"
	"github.com/c360/statestore/errors"
	"github.com/c360/statestore/kvstore"
	"github.com/c360/statestore/workspace"
)

// WorkspaceService is the storage lifecycle for one workspace. Its durable
// store lives in a folder named by the workspace identity under the
// configured workspace root. On the first use of a workspace the folder is
// created, a human-readable metadata descriptor is written next to the
// store, and the store opens with the does-not-exist hint.
type WorkspaceService struct {
	*Service

	cfg  config.Config
	desc workspace.Descriptor
}

// NewWorkspaceService creates the storage lifecycle for the given workspace.
// Host lifecycle wiring matches the global service: background initialize
// after window open, Close joined on the shutdown barrier.
func NewWorkspaceService(cfg config.Config, desc workspace.Descriptor, opts ...Option) *WorkspaceService {
	o := newOptions(opts)

	w := &WorkspaceService{cfg: cfg, desc: desc}
	w.Service = newService("workspace", OpenerFunc(w.open), o)
	attachHost(o.host, w.Initialize, w.Close)
	return w
}

// Descriptor returns the workspace identity this service stores for.
func (w *WorkspaceService) Descriptor() workspace.Descriptor {
	return w.desc
}

// open resolves the workspace storage folder, creating it (and its metadata
// descriptor) on first use, then opens the durable store there. The folder
// must exist before the store opens; the metadata write is deliberately not
// sequenced with the open.
func (w *WorkspaceService) open(ctx context.Context) (kvstore.Store, error) {
	if w.cfg.UseInMemory {
		return w.openStore(ctx, kvstore.InMemorySentinel, kvstore.HintNone)
	}

	folder := filepath.Join(w.cfg.WorkspaceRoot, w.desc.ID())
	hint := kvstore.HintNone

	_, err := os.Stat(folder)
	switch {
	case stderrors.Is(err, fs.ErrNotExist):
		if mkErr := os.MkdirAll(folder, 0o755); mkErr != nil {
			return nil, errors.WrapTransient(mkErr, "storage", "open", "create workspace storage folder")
		}
		hint = kvstore.HintDoesNotExist
		// Fire and forget: nothing on the open path reads the metadata, and
		// a failed write must not fail the open.
		go w.writeMetadata(folder)
	case err != nil:
		return nil, errors.WrapTransient(err, "storage", "open", "probe workspace storage folder")
	}

	return w.openStore(ctx, filepath.Join(folder, config.StateFileName), hint)
}

func (w *WorkspaceService) openStore(ctx context.Context, path string, hint kvstore.Hint) (kvstore.Store, error) {
	opts := []kvstore.SQLiteOption{
		kvstore.WithLogger(w.logger),
		kvstore.WithFlushInterval(w.cfg.FlushInterval()),
		kvstore.WithHint(hint),
	}
	if w.metrics != nil {
		opts = append(opts, kvstore.WithMetrics(w.metrics.registrar, w.scope))
	}

	st := kvstore.OpenSQLite(path, opts...)
	if err := st.Init(ctx); err != nil {
		return nil, err
	}
	return st, nil
}

// writeMetadata writes the workspace descriptor file once. Empty workspaces
// write nothing, an already-present file is left alone, and failures are
// logged, never surfaced.
func (w *WorkspaceService) writeMetadata(folder string) {
	payload, ok := w.desc.MetadataJSON()
	if !ok {
		return
	}

	path := filepath.Join(folder, MetadataFileName)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if stderrors.Is(err, fs.ErrExist) {
			return
		}
		w.logger.Warn("workspace metadata not written", "path", path, "error", err)
		return
	}

	if _, err := f.Write(payload); err != nil {
		w.logger.Warn("workspace metadata write incomplete", "path", path, "error", err)
	}
	if err := f.Close(); err != nil {
		w.logger.Warn("workspace metadata close failed", "path", path, "error", err)
	}
}
