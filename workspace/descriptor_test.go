package workspace

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFolderDescriptor(t *testing.T) {
	d := NewFolderDescriptor("file:///proj")

	assert.Equal(t, KindFolder, d.Kind())
	assert.Equal(t, "file:///proj", d.FolderURI())
	assert.NotEmpty(t, d.ID())

	payload, ok := d.MetadataJSON()
	require.True(t, ok)

	var m map[string]string
	require.NoError(t, json.Unmarshal(payload, &m))
	assert.Equal(t, map[string]string{"folder": "file:///proj"}, m)
}

func TestWorkspaceDescriptor(t *testing.T) {
	d := NewWorkspaceDescriptor("/home/u/proj.code-workspace")

	assert.Equal(t, KindWorkspace, d.Kind())
	assert.Equal(t, "/home/u/proj.code-workspace", d.ConfigPath())

	payload, ok := d.MetadataJSON()
	require.True(t, ok)

	var m map[string]string
	require.NoError(t, json.Unmarshal(payload, &m))
	assert.Equal(t, map[string]string{"workspace": "/home/u/proj.code-workspace"}, m)
}

func TestEmptyDescriptorWritesNoMetadata(t *testing.T) {
	d := NewEmptyDescriptor()

	assert.Equal(t, KindEmpty, d.Kind())
	assert.NotEmpty(t, d.ID())

	_, ok := d.MetadataJSON()
	assert.False(t, ok)
}

func TestIDIsStablePerIdentity(t *testing.T) {
	a := NewFolderDescriptor("file:///proj")
	b := NewFolderDescriptor("file:///proj")
	c := NewFolderDescriptor("file:///other")

	assert.Equal(t, a.ID(), b.ID())
	assert.NotEqual(t, a.ID(), c.ID())
}

func TestEmptyDescriptorIDsAreUnique(t *testing.T) {
	assert.NotEqual(t, NewEmptyDescriptor().ID(), NewEmptyDescriptor().ID())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "empty", KindEmpty.String())
	assert.Equal(t, "folder", KindFolder.String())
	assert.Equal(t, "workspace", KindWorkspace.String())
	assert.Equal(t, "unknown", Kind(42).String())
}
