package repo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/fabricflow/config"
	"github.com/BaSui01/fabricflow/types"
)

func newTestReader() *Reader {
	cfg := config.DefaultConfig()
	return NewReader(cfg.Reader, cfg.Archive, cfg.Types, zap.NewNop())
}

func writeFile(t *testing.T, root string, rel string, content []byte) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

func TestReadBuildsDescriptors(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Ingest.Notebook/notebook-content.py", []byte("# cell"))
	writeFile(t, root, "Ingest.Notebook/.platform", []byte(`{"metadata":{}}`))
	writeFile(t, root, "Sales.Report/definition.pbir", []byte(`{}`))
	writeFile(t, root, "Sales.Report/StaticResources/theme.pbix", []byte{0x50, 0x4b})
	writeFile(t, root, "Sales.Report/StaticResources/logo.png", []byte{0x89, 0x50})

	descriptors, err := newTestReader().Read(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, descriptors, 2)

	// lexicographic identity order
	assert.Equal(t, "Ingest.Notebook", descriptors[0].Identity.String())
	assert.Equal(t, "Sales.Report", descriptors[1].Identity.String())

	notebook := descriptors[0]
	require.Len(t, notebook.Parts, 1, "control file must be excluded")
	assert.Equal(t, "notebook-content.py", notebook.Parts[0].Path)
	assert.Equal(t, types.PartKindText, notebook.Parts[0].Kind)

	report := descriptors[1]
	require.Len(t, report.Parts, 3)
	byPath := map[string]types.PartKind{}
	for _, p := range report.Parts {
		byPath[p.Path] = p.Kind
	}
	assert.Equal(t, types.PartKindText, byPath["definition.pbir"])
	assert.Equal(t, types.PartKindArchive, byPath["StaticResources/theme.pbix"])
	assert.Equal(t, types.PartKindBinary, byPath["StaticResources/logo.png"])
}

func TestReadSkipsUnsupportedTypesAndStrayDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Auto.SQLAnalyticsEndpoint/endpoint.json", []byte(`{}`))
	writeFile(t, root, "NotAnArtifact/readme.md", []byte("stray"))
	writeFile(t, root, "Data.Lakehouse/lakehouse.metadata.json", []byte(`{}`))

	descriptors, err := newTestReader().Read(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)
	assert.Equal(t, "Data.Lakehouse", descriptors[0].Identity.String())
}

func TestReadDottedDisplayName(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "My.Sales.Report/definition.pbir", []byte(`{}`))

	descriptors, err := newTestReader().Read(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)
	assert.Equal(t, types.Identity{Name: "My.Sales", Type: "Report"}, descriptors[0].Identity)
}

func TestReadMissingRootIsReadError(t *testing.T) {
	_, err := newTestReader().Read(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrRead))
	assert.True(t, types.IsRunFatal(err))
}

func TestReadEmptyRoot(t *testing.T) {
	descriptors, err := newTestReader().Read(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, descriptors)
}
