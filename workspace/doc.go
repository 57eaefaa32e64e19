// Package workspace provides the identity model for per-workspace storage.
//
// A Descriptor classifies a workspace as one of empty, single-folder, or
// multi-root, derives the stable on-disk storage folder name from that
// identity, and produces the human-readable metadata payload written next to
// the workspace's store ({"folder": <uri>} or {"workspace": <configPath>};
// empty workspaces write nothing).
package workspace
