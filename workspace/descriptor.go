package workspace

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/google/uuid"
)

// Kind classifies a workspace for storage purposes.
type Kind int

const (
	// KindEmpty is a window with no folder or workspace file opened.
	KindEmpty Kind = iota
	// KindFolder is a single opened folder, identified by its URI.
	KindFolder
	// KindWorkspace is a multi-root workspace, identified by the path of its
	// configuration file.
	KindWorkspace
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindFolder:
		return "folder"
	case KindWorkspace:
		return "workspace"
	default:
		return "unknown"
	}
}

// Descriptor identifies one workspace. It is created once per workspace and
// never mutated; the storage layer uses it to name the on-disk storage
// folder and to write a human-readable metadata file next to the store.
type Descriptor struct {
	kind       Kind
	folderURI  string
	configPath string
	id         string
}

// NewFolderDescriptor describes a single-folder workspace.
func NewFolderDescriptor(folderURI string) Descriptor {
	return Descriptor{
		kind:      KindFolder,
		folderURI: folderURI,
		id:        identityHash(folderURI),
	}
}

// NewWorkspaceDescriptor describes a multi-root workspace by its
// configuration file path.
func NewWorkspaceDescriptor(configPath string) Descriptor {
	return Descriptor{
		kind:       KindWorkspace,
		configPath: configPath,
		id:         identityHash(configPath),
	}
}

// NewEmptyDescriptor describes an empty workspace. Empty workspaces have no
// stable identity source, so each gets a random one.
func NewEmptyDescriptor() Descriptor {
	return Descriptor{
		kind: KindEmpty,
		id:   "ext-" + uuid.NewString(),
	}
}

// Kind returns the workspace kind.
func (d Descriptor) Kind() Kind { return d.kind }

// ID returns the stable storage folder name for this workspace.
func (d Descriptor) ID() string { return d.id }

// FolderURI returns the folder URI for KindFolder descriptors.
func (d Descriptor) FolderURI() string { return d.folderURI }

// ConfigPath returns the configuration file path for KindWorkspace
// descriptors.
func (d Descriptor) ConfigPath() string { return d.configPath }

// metadata is the on-disk shape of the workspace metadata file.
type metadata struct {
	Folder    string `json:"folder,omitempty"`
	Workspace string `json:"workspace,omitempty"`
}

// MetadataJSON returns the metadata file payload for this workspace, or
// ok=false for empty workspaces, which write no metadata.
func (d Descriptor) MetadataJSON() (payload []byte, ok bool) {
	var m metadata
	switch d.kind {
	case KindFolder:
		m.Folder = d.folderURI
	case KindWorkspace:
		m.Workspace = d.configPath
	default:
		return nil, false
	}

	data, err := json.Marshal(m)
	if err != nil {
		// Two string fields cannot fail to marshal.
		return nil, false
	}
	return data, true
}

// identityHash derives a stable folder name from a workspace identity
// string. Hex keeps it filesystem-safe on every platform.
func identityHash(identity string) string {
	sum := sha256.Sum256([]byte(identity))
	return hex.EncodeToString(sum[:16])
}
