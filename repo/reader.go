package repo

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/fabricflow/config"
	"github.com/BaSui01/fabricflow/types"
)

// Reader materializes artifact directories into descriptors.
type Reader struct {
	cfg      config.ReaderConfig
	archives config.ArchiveConfig
	typeCfg  config.TypeConfig
	logger   *zap.Logger
}

// NewReader creates a reader with the injected tables.
func NewReader(cfg config.ReaderConfig, archives config.ArchiveConfig, typeCfg config.TypeConfig, logger *zap.Logger) *Reader {
	return &Reader{
		cfg:      cfg,
		archives: archives,
		typeCfg:  typeCfg,
		logger:   logger.With(zap.String("component", "repo_reader")),
	}
}

// Read produces one descriptor per artifact directory under root, in
// lexicographic identity order. Directories without a type separator and
// types on the unsupported deny-list are skipped with a log line, never an
// error. Unreadable trees yield READ_ERROR.
func (r *Reader) Read(ctx context.Context, root string) ([]*types.ArtifactDescriptor, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, types.NewError(types.ErrRead, "source root unreadable").WithCause(err)
	}

	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	sort.Strings(dirs)

	descriptors := make([]*types.ArtifactDescriptor, len(dirs))
	g, ctx := errgroup.WithContext(ctx)
	limit := r.cfg.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, name := range dirs {
		i, name := i, name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			d, err := r.readArtifact(root, name)
			if err != nil {
				return err
			}
			descriptors[i] = d // nil for skipped directories
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if _, ok := types.AsError(err); ok {
			return nil, err
		}
		return nil, types.NewError(types.ErrRead, "reading artifact tree failed").WithCause(err)
	}

	out := descriptors[:0]
	for _, d := range descriptors {
		if d != nil {
			out = append(out, d)
		}
	}
	r.logger.Info("local artifact tree read",
		zap.String("root", root),
		zap.Int("artifacts", len(out)),
	)
	return out, nil
}

func (r *Reader) readArtifact(root, folder string) (*types.ArtifactDescriptor, error) {
	id, err := types.ParseIdentity(folder)
	if err != nil {
		r.logger.Warn("skipping directory without type separator", zap.String("folder", folder))
		return nil, nil
	}
	if r.typeCfg.IsUnsupported(id.Type) {
		r.logger.Info("skipping unsupported artifact type",
			zap.String("identity", id.String()),
		)
		return nil, nil
	}

	dir := filepath.Join(root, folder)
	var parts []types.Part
	walkErr := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if r.cfg.IsControlFile(entry.Name()) {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		payload, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		parts = append(parts, types.Part{
			Path:    rel,
			Payload: payload,
			Kind:    r.classify(rel),
		})
		return nil
	})
	if walkErr != nil {
		return nil, types.NewError(types.ErrRead, "artifact directory unreadable").
			WithIdentity(id).
			WithCause(walkErr)
	}

	// WalkDir visits lexically, but keep the guarantee local.
	sort.Slice(parts, func(i, j int) bool { return parts[i].Path < parts[j].Path })

	return &types.ArtifactDescriptor{Identity: id, Parts: parts}, nil
}

func (r *Reader) classify(partPath string) types.PartKind {
	switch {
	case r.archives.IsArchivePath(partPath):
		return types.PartKindArchive
	case r.cfg.IsTextPath(partPath):
		return types.PartKindText
	default:
		return types.PartKindBinary
	}
}
