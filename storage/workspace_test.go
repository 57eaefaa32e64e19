package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/statestore/config"
	"github.com/c360/statestore/kvstore"
	"github.com/c360/statestore/workspace"
)

func testWorkspaceConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		GlobalRoot:      t.TempDir(),
		WorkspaceRoot:   t.TempDir(),
		FlushIntervalMS: 10,
	}
}

// activeHint digs out the hint the active durable store was opened with.
func activeHint(t *testing.T, svc *Service) kvstore.Hint {
	t.Helper()
	st, ok := svc.activeStore().(*kvstore.SQLiteStore)
	require.True(t, ok, "active store is not the durable store")
	return st.Hint()
}

func readMetadata(t *testing.T, folder string) map[string]string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(folder, MetadataFileName))
	require.NoError(t, err)
	var m map[string]string
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestWorkspaceFirstOpenCreatesFolderMetadataAndHint(t *testing.T) {
	ctx := context.Background()
	cfg := testWorkspaceConfig(t)
	desc := workspace.NewFolderDescriptor("file:///proj")

	w := NewWorkspaceService(cfg, desc)
	require.NoError(t, w.Initialize(ctx))
	defer w.Close(ctx)

	folder := filepath.Join(cfg.WorkspaceRoot, desc.ID())
	info, err := os.Stat(folder)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// The metadata write races the open on purpose; wait for it.
	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(folder, MetadataFileName))
		return err == nil
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, map[string]string{"folder": "file:///proj"}, readMetadata(t, folder))
	assert.Equal(t, kvstore.HintDoesNotExist, activeHint(t, w.Service))
	assert.True(t, w.IsNew())
}

func TestWorkspaceSecondOpenOmitsHintAndKeepsMetadata(t *testing.T) {
	ctx := context.Background()
	cfg := testWorkspaceConfig(t)
	desc := workspace.NewFolderDescriptor("file:///proj")
	folder := filepath.Join(cfg.WorkspaceRoot, desc.ID())

	first := NewWorkspaceService(cfg, desc)
	require.NoError(t, first.Initialize(ctx))
	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(folder, MetadataFileName))
		return err == nil
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, first.Close(ctx))

	// Tamper with the metadata so a rewrite would be visible.
	marker := []byte(`{"folder":"file:///proj","marker":"untouched"}`)
	require.NoError(t, os.WriteFile(filepath.Join(folder, MetadataFileName), marker, 0o644))

	second := NewWorkspaceService(cfg, desc)
	require.NoError(t, second.Initialize(ctx))
	defer second.Close(ctx)

	assert.Equal(t, kvstore.HintNone, activeHint(t, second.Service))
	assert.False(t, second.IsNew())

	data, err := os.ReadFile(filepath.Join(folder, MetadataFileName))
	require.NoError(t, err)
	assert.Equal(t, marker, data, "existing metadata must not be rewritten")
}

func TestWorkspaceMultiRootMetadata(t *testing.T) {
	ctx := context.Background()
	cfg := testWorkspaceConfig(t)
	desc := workspace.NewWorkspaceDescriptor("/home/u/proj.code-workspace")

	w := NewWorkspaceService(cfg, desc)
	require.NoError(t, w.Initialize(ctx))
	defer w.Close(ctx)

	folder := filepath.Join(cfg.WorkspaceRoot, desc.ID())
	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(folder, MetadataFileName))
		return err == nil
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t,
		map[string]string{"workspace": "/home/u/proj.code-workspace"},
		readMetadata(t, folder))
}

func TestWorkspaceEmptyWritesNoMetadata(t *testing.T) {
	ctx := context.Background()
	cfg := testWorkspaceConfig(t)
	desc := workspace.NewEmptyDescriptor()

	w := NewWorkspaceService(cfg, desc)
	require.NoError(t, w.Initialize(ctx))
	defer w.Close(ctx)

	folder := filepath.Join(cfg.WorkspaceRoot, desc.ID())
	_, err := os.Stat(folder)
	require.NoError(t, err, "storage folder is still created")

	// Give the would-be metadata writer time to run, then check nothing
	// appeared.
	time.Sleep(50 * time.Millisecond)
	_, err = os.Stat(filepath.Join(folder, MetadataFileName))
	assert.True(t, os.IsNotExist(err))
}

func TestWorkspaceDurabilityRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := testWorkspaceConfig(t)
	desc := workspace.NewFolderDescriptor("file:///proj")

	w := NewWorkspaceService(cfg, desc)
	require.NoError(t, w.Initialize(ctx))
	require.NoError(t, w.Store(ctx, "files.exclude", "node_modules"))
	require.NoError(t, w.Close(ctx))

	reopened := NewWorkspaceService(cfg, desc)
	require.NoError(t, reopened.Initialize(ctx))
	defer reopened.Close(ctx)

	assert.Equal(t, "node_modules", reopened.Get("files.exclude", ""))
}

func TestWorkspaceDoesNotTouchSessionMetadata(t *testing.T) {
	ctx := context.Background()
	cfg := testWorkspaceConfig(t)
	desc := workspace.NewFolderDescriptor("file:///proj")

	w := NewWorkspaceService(cfg, desc)
	require.NoError(t, w.Initialize(ctx))
	defer w.Close(ctx)

	assert.Empty(t, w.Get(InstanceIDKey, ""))
	assert.Empty(t, w.Get(CurrentSessionDateKey, ""))
}

func TestWorkspaceInMemoryMode(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	cfg := config.Config{GlobalRoot: root, WorkspaceRoot: root, UseInMemory: true}

	w := NewWorkspaceService(cfg, workspace.NewFolderDescriptor("file:///proj"))
	require.NoError(t, w.Initialize(ctx))
	require.NoError(t, w.Store(ctx, "key", "value"))
	require.NoError(t, w.Close(ctx))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWorkspaceChangeEventsForwarded(t *testing.T) {
	ctx := context.Background()
	cfg := testWorkspaceConfig(t)

	w := NewWorkspaceService(cfg, workspace.NewFolderDescriptor("file:///proj"))

	var events []kvstore.ChangeEvent
	w.OnDidChangeStorage(func(ev kvstore.ChangeEvent) { events = append(events, ev) })

	require.NoError(t, w.Initialize(ctx))
	defer w.Close(ctx)

	require.NoError(t, w.Store(ctx, "a", "1"))
	require.Len(t, events, 1)
	assert.Equal(t, kvstore.ChangeEvent{Key: "a"}, events[0])
}
