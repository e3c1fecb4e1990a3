package fabricflow

import (
	"encoding/json"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/fabricflow/config"
	"github.com/BaSui01/fabricflow/repo"
	"github.com/BaSui01/fabricflow/testutil"
	"github.com/BaSui01/fabricflow/testutil/mocks"
	"github.com/BaSui01/fabricflow/types"
)

// writeTree materializes artifact directories from path → content.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

const ingestNotebook = `# Fabric notebook source

# METADATA ********************

# META {
# META   "dependencies": {
# META     "lakehouse": {
# META       "default_lakehouse_name": "Data"
# META     }
# META   }
# META }

print("ingest")
`

func newDeployer(t *testing.T, root string, inv *mocks.Inventory) *Deployer {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Workspace.ID = "ws-1"
	cfg.Workspace.SourceRoot = root
	cfg.Poll.Interval = time.Millisecond
	cfg.Poll.MaxAttempts = 5

	d, err := New(cfg, WithInventory(inv), WithLogger(testutil.Logger(t)))
	require.NoError(t, err)
	return d
}

func TestDeployFreshWorkspaceThenIdempotent(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"Data.Lakehouse/.platform":               `{"metadata":{"type":"Lakehouse"}}`,
		"Ingest.Notebook/notebook-content.py":    ingestNotebook,
		"Ingest.Notebook/.platform":              `{"metadata":{"type":"Notebook"}}`,
		"Stray.SQLAnalyticsEndpoint/.platform":   `{}`,
		"Stray.SQLAnalyticsEndpoint/things.json": `{}`,
	})

	inv := mocks.NewInventory()
	d := newDeployer(t, root, inv)
	ctx := testutil.Context(t)

	report, err := d.Deploy(ctx)
	require.NoError(t, err)
	assert.True(t, report.Succeeded())
	assert.Equal(t, 2, report.Created, "unsupported types must not deploy")
	assert.Zero(t, report.Failed)

	creates := inv.CallsOf("create")
	require.Len(t, creates, 2)
	assert.Equal(t, "create Data.Lakehouse", creates[0], "lakehouse must precede the notebook that references it")
	assert.Equal(t, "create Ingest.Notebook", creates[1])

	// Second run against the unchanged tree: nothing to write.
	p, _, err := d.Plan(ctx)
	require.NoError(t, err)
	assert.Zero(t, p.Writes())

	report, err = d.Deploy(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Created+report.Updated+report.Deleted)
}

func TestDeployDetectsLocalEdit(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"Ingest.Notebook/notebook-content.py": "print(1)\n",
	})

	inv := mocks.NewInventory()
	d := newDeployer(t, root, inv)
	ctx := testutil.Context(t)

	_, err := d.Deploy(ctx)
	require.NoError(t, err)

	writeTree(t, root, map[string]string{
		"Ingest.Notebook/notebook-content.py": "print(2)\n",
	})

	report, err := d.Deploy(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
	assert.Zero(t, report.Created)
}

func TestDeployMirrorsDeletions(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"Keep.Notebook/notebook-content.py": "print(1)\n",
	})

	inv := mocks.NewInventory()
	inv.Seed("Keep", "Notebook", testutil.TextPart("notebook-content.py", "print(1)\n"))
	inv.Seed("Gone", "Report", testutil.TextPart("report.json", "{}"))

	report, err := newDeployer(t, root, inv).Deploy(testutil.Context(t))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Deleted)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, inv.Items, 1)
	assert.Equal(t, "Keep", inv.Items[0].Name)
}

func TestSelectiveDeployTouchesOnlyClosure(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"Data.Lakehouse/.platform":            `{}`,
		"Ingest.Notebook/notebook-content.py": ingestNotebook,
		"Other.Notebook/notebook-content.py":  "print(3)\n",
	})

	inv := mocks.NewInventory()
	inv.Seed("Gone", "Report")

	cfg := config.DefaultConfig()
	cfg.Workspace.ID = "ws-1"
	cfg.Workspace.SourceRoot = root
	cfg.Workspace.Item = "Ingest.Notebook"
	cfg.Poll.Interval = time.Millisecond

	d, err := New(cfg, WithInventory(inv), WithLogger(testutil.Logger(t)))
	require.NoError(t, err)

	report, err := d.Deploy(testutil.Context(t))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Created)
	assert.Zero(t, report.Deleted, "selective runs never delete")
	assert.Empty(t, inv.CallsOf("create Other"))
}

// refListExtractor reads dependencies from a refs.txt part, one
// <name>.<type> identity per line.
type refListExtractor struct{}

func (refListExtractor) Type() string { return "Notebook" }

func (refListExtractor) References(parts []types.Part) []types.Identity {
	var refs []types.Identity
	for _, p := range parts {
		if path.Base(p.Path) != "refs.txt" {
			continue
		}
		for _, line := range strings.Split(string(p.Payload), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if id, err := types.ParseIdentity(line); err == nil {
				refs = append(refs, id)
			}
		}
	}
	return refs
}

func TestPlanRejectsCycleBeforeAnyRemoteCall(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"A.Notebook/refs.txt": "B.Notebook\n",
		"B.Notebook/refs.txt": "A.Notebook\n",
	})

	inv := mocks.NewInventory()
	cfg := config.DefaultConfig()
	cfg.Workspace.ID = "ws-1"
	cfg.Workspace.SourceRoot = root
	cfg.Poll.Interval = time.Millisecond

	d, err := New(cfg,
		WithInventory(inv),
		WithLogger(testutil.Logger(t)),
		WithExtractors(refListExtractor{}),
	)
	require.NoError(t, err)

	_, _, err = d.Plan(testutil.Context(t))
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrDependencyCycle))
	assert.Empty(t, inv.Calls(), "cycles must be rejected before the workspace is touched")
}

func TestPullExportsWorkspace(t *testing.T) {
	root := t.TempDir()
	inv := mocks.NewInventory()
	inv.Seed("Ingest", "Notebook",
		testutil.TextPart("notebook-content.py", "print(1)\n"),
		testutil.TextPart(".platform", `{"metadata":{"type":"Notebook"}}`),
	)
	inv.Seed("Data", "Lakehouse")
	inv.Seed("Stray", "SQLAnalyticsEndpoint", testutil.TextPart("things.json", "{}"))

	d := newDeployer(t, root, inv)
	ctx := testutil.Context(t)

	exported, err := d.Pull(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, exported, "unsupported types must not export")

	raw, err := os.ReadFile(filepath.Join(root, "Ingest.Notebook", "notebook-content.py"))
	require.NoError(t, err)
	assert.Equal(t, "print(1)\n", string(raw))

	info, err := os.Stat(filepath.Join(root, "Data.Lakehouse"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = os.Stat(filepath.Join(root, "Stray.SQLAnalyticsEndpoint"))
	assert.True(t, os.IsNotExist(err))

	var m repo.Manifest
	raw, err = os.ReadFile(filepath.Join(root, repo.ManifestName))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "ws-1", m.WorkspaceID)
	assert.Len(t, m.Items, 2)

	// The exported tree reconciles back to the same workspace untouched.
	p, _, err := d.Plan(ctx)
	require.NoError(t, err)
	assert.Zero(t, p.Writes())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	// workspace id missing
	_, err := New(cfg, WithInventory(mocks.NewInventory()))
	require.Error(t, err)
	assert.True(t, types.IsRunFatal(err))
}

func TestNewRequiresTokenSource(t *testing.T) {
	t.Setenv(tokenEnv, "")
	cfg := config.DefaultConfig()
	cfg.Workspace.ID = "ws-1"

	_, err := New(cfg, WithLogger(testutil.Logger(t)))
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrAuth))
}
