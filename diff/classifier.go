package diff

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"

	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"github.com/BaSui01/fabricflow/config"
	"github.com/BaSui01/fabricflow/types"
)

// Classifier decides content equivalence between two part sets.
type Classifier struct {
	cfg    config.ArchiveConfig
	logger *zap.Logger
}

// NewClassifier creates a classifier with the injected archive tables.
func NewClassifier(cfg config.ArchiveConfig, logger *zap.Logger) *Classifier {
	return &Classifier{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "diff_classifier")),
	}
}

// memberDigest fingerprints one archive member.
type memberDigest struct {
	sum  [32]byte
	size uint64
}

// Equals reports whether the two part sets describe the same definition.
// The path sets must match exactly; a path present on one side only means
// not equal, regardless of direction.
func (c *Classifier) Equals(a, b []types.Part) bool {
	if len(a) != len(b) {
		return false
	}
	byPath := make(map[string]types.Part, len(b))
	for _, p := range b {
		byPath[p.Path] = p
	}
	for _, pa := range a {
		pb, ok := byPath[pa.Path]
		if !ok {
			return false
		}
		if !c.partEqual(pa, pb) {
			return false
		}
	}
	return true
}

func (c *Classifier) partEqual(a, b types.Part) bool {
	if c.isArchive(a) || c.isArchive(b) {
		return c.archiveEqual(a, b)
	}
	return bytes.Equal(a.Payload, b.Payload)
}

// isArchive consults the declared kind and, as a backstop, the extension
// allowlist: remote parts arrive without a local kind classification.
func (c *Classifier) isArchive(p types.Part) bool {
	return p.Kind == types.PartKindArchive || c.cfg.IsArchivePath(p.Path)
}

func (c *Classifier) archiveEqual(a, b types.Part) bool {
	fa, errA := c.fingerprint(a.Payload)
	fb, errB := c.fingerprint(b.Payload)
	if errA != nil || errB != nil {
		// Unparseable archive: raw bytes are the only evidence left.
		c.logger.Warn("archive not parseable, falling back to byte comparison",
			zap.String("path", a.Path),
			zap.NamedError("local_err", errA),
			zap.NamedError("remote_err", errB),
		)
		return bytes.Equal(a.Payload, b.Payload)
	}
	if len(fa) != len(fb) {
		return false
	}
	for name, da := range fa {
		db, ok := fb[name]
		if !ok || da != db {
			return false
		}
	}
	return true
}

// fingerprint maps each non-volatile member name to its content checksum
// and declared uncompressed size. Enumeration order of the archive is
// irrelevant by construction.
func (c *Classifier) fingerprint(payload []byte) (map[string]memberDigest, error) {
	zr, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	members := make(map[string]memberDigest, len(zr.File))
	for _, f := range zr.File {
		if c.cfg.IsVolatileMember(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open member %s: %w", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read member %s: %w", f.Name, err)
		}
		members[f.Name] = memberDigest{
			sum:  blake3.Sum256(content),
			size: f.UncompressedSize64,
		}
	}
	return members, nil
}
