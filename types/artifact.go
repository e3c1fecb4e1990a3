package types

import (
	"fmt"
	"strings"
)

// PartKind classifies the payload of a definition part.
type PartKind string

const (
	// PartKindText is UTF-8 text compared byte for byte.
	PartKindText PartKind = "text"
	// PartKindBinary is an opaque binary payload compared byte for byte.
	PartKindBinary PartKind = "binary"
	// PartKindArchive is a zip-style container compared by member
	// fingerprints rather than raw bytes.
	PartKindArchive PartKind = "archive"
)

// Identity names one artifact by its (displayName, type) pair. The pair is
// unique within the local set and within the remote set; matching between
// the two sets is case-insensitive on both fields.
type Identity struct {
	// Name is the display name, e.g. "DemoLakehouse".
	Name string
	// Type is the artifact type, e.g. "Lakehouse", "Notebook".
	Type string
}

// Key returns the case-insensitive lookup key used to match local
// descriptors against remote inventory entries.
func (id Identity) Key() string {
	return strings.ToLower(id.Name) + "." + strings.ToLower(id.Type)
}

// String returns the "<displayName>.<type>" folder-name form.
func (id Identity) String() string {
	return id.Name + "." + id.Type
}

// ParseIdentity splits a "<displayName>.<type>" folder name on the last
// dot, so display names containing dots round-trip ("My.Report.Report").
func ParseIdentity(folder string) (Identity, error) {
	i := strings.LastIndex(folder, ".")
	if i <= 0 || i == len(folder)-1 {
		return Identity{}, fmt.Errorf("no type separator in folder name %q", folder)
	}
	return Identity{Name: folder[:i], Type: folder[i+1:]}, nil
}

// Part is one file-like unit of an artifact definition.
type Part struct {
	// Path is the part path relative to the artifact directory, with
	// forward slashes.
	Path string
	// Payload is the raw content.
	Payload []byte
	// Kind classifies how the payload is compared.
	Kind PartKind
}

// ArtifactDescriptor is the in-memory form of one local artifact
// directory. Descriptors are built fresh on every run and never persisted.
type ArtifactDescriptor struct {
	// Identity is the (displayName, type) pair from the folder name.
	Identity Identity
	// Parts holds the definition files in path order, control files
	// excluded.
	Parts []Part
	// RemoteID is filled in once the artifact is matched against, or
	// created in, the remote workspace.
	RemoteID string
}

// PartByPath returns the part with the given path, if present.
func (d *ArtifactDescriptor) PartByPath(path string) (Part, bool) {
	for _, p := range d.Parts {
		if p.Path == path {
			return p, true
		}
	}
	return Part{}, false
}

// RemoteItem is one entry of the remote workspace inventory.
type RemoteItem struct {
	ID   string `json:"id"`
	Name string `json:"displayName"`
	Type string `json:"type"`
}

// Identity returns the item's identity pair.
func (it RemoteItem) Identity() Identity {
	return Identity{Name: it.Name, Type: it.Type}
}
