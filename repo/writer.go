package repo

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/fabricflow/types"
)

// ManifestName is the file the Writer drops at the tree root describing
// what was exported. The Reader ignores it: only directories become
// artifacts.
const ManifestName = "workspace.manifest.json"

// Manifest records the provenance of an exported artifact tree.
type Manifest struct {
	WorkspaceID string             `json:"workspaceId"`
	ExportedAt  time.Time          `json:"exportedAt"`
	Items       []types.RemoteItem `json:"items"`
}

// Writer materializes descriptors back into an artifact tree, the
// inverse of Reader.
type Writer struct {
	logger *zap.Logger
}

// NewWriter creates a writer.
func NewWriter(logger *zap.Logger) *Writer {
	return &Writer{logger: logger.With(zap.String("component", "repo_writer"))}
}

// Write lays out one directory per descriptor under root, replacing any
// existing directory for the same identity so stale parts never survive
// an export. Descriptors without parts still produce their (empty)
// directory.
func (w *Writer) Write(root string, descriptors []*types.ArtifactDescriptor) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return types.NewError(types.ErrRead, "creating artifact tree root failed").WithCause(err)
	}
	for _, d := range descriptors {
		if err := w.writeArtifact(root, d); err != nil {
			return err
		}
	}
	w.logger.Info("artifact tree written",
		zap.String("root", root),
		zap.Int("artifacts", len(descriptors)),
	)
	return nil
}

func (w *Writer) writeArtifact(root string, d *types.ArtifactDescriptor) error {
	dir := filepath.Join(root, d.Identity.String())
	if err := os.RemoveAll(dir); err != nil {
		return types.NewError(types.ErrRead, "clearing artifact directory failed").
			WithIdentity(d.Identity).
			WithCause(err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return types.NewError(types.ErrRead, "creating artifact directory failed").
			WithIdentity(d.Identity).
			WithCause(err)
	}
	for _, p := range d.Parts {
		full := filepath.Join(dir, filepath.FromSlash(p.Path))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return types.NewError(types.ErrRead, "creating part directory failed").
				WithIdentity(d.Identity).
				WithCause(err)
		}
		if err := os.WriteFile(full, p.Payload, 0o644); err != nil {
			return types.NewError(types.ErrRead, "writing part "+p.Path+" failed").
				WithIdentity(d.Identity).
				WithCause(err)
		}
	}
	return nil
}

// WriteManifest writes the export manifest at the tree root.
func (w *Writer) WriteManifest(root string, m Manifest) error {
	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return types.NewError(types.ErrRead, "encoding manifest failed").WithCause(err)
	}
	raw = append(raw, '\n')
	if err := os.WriteFile(filepath.Join(root, ManifestName), raw, 0o644); err != nil {
		return types.NewError(types.ErrRead, "writing manifest failed").WithCause(err)
	}
	return nil
}
