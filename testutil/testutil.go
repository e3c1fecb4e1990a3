package testutil

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/fabricflow/types"
)

// Logger returns a test-scoped logger writing through t.Log.
func Logger(t *testing.T) *zap.Logger {
	t.Helper()
	return zaptest.NewLogger(t)
}

// Context returns a context cancelled when the test ends, bounded at 30s
// so a stuck poll loop fails the test instead of hanging the run.
func Context(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TextPart builds a text definition part.
func TextPart(path, content string) types.Part {
	return types.Part{Path: path, Payload: []byte(content), Kind: types.PartKindText}
}

// Descriptor builds a local artifact descriptor.
func Descriptor(name, artifactType string, parts ...types.Part) *types.ArtifactDescriptor {
	return &types.ArtifactDescriptor{
		Identity: types.Identity{Name: name, Type: artifactType},
		Parts:    parts,
	}
}
