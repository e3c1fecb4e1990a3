package plan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/fabricflow/config"
	"github.com/BaSui01/fabricflow/diff"
	"github.com/BaSui01/fabricflow/graph"
	"github.com/BaSui01/fabricflow/testutil"
	"github.com/BaSui01/fabricflow/testutil/mocks"
	"github.com/BaSui01/fabricflow/types"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Workspace.ID = "ws-1"
	cfg.Workspace.SourceRoot = "fabric"
	cfg.Poll.Interval = time.Millisecond
	cfg.Poll.MaxAttempts = 10
	return cfg
}

func newPlanner(t *testing.T, inv *mocks.Inventory, cfg *config.Config) *Planner {
	t.Helper()
	logger := testutil.Logger(t)
	return NewPlanner(inv, diff.NewClassifier(cfg.Archive, logger), cfg, logger)
}

func graphOf(edges map[string][]string, nodes ...types.Identity) *graph.Graph {
	g := graph.NewGraph()
	byName := map[string]types.Identity{}
	for _, n := range nodes {
		g.AddNode(n)
		byName[n.String()] = n
	}
	for from, tos := range edges {
		for _, to := range tos {
			g.AddEdge(byName[from], byName[to])
		}
	}
	return g
}

func kinds(actions []types.DeploymentAction) []string {
	out := make([]string, 0, len(actions))
	for _, a := range actions {
		out = append(out, string(a.Kind)+" "+a.Identity.String())
	}
	return out
}

func TestFreshWorkspaceCreatesDependenciesFirst(t *testing.T) {
	inv := mocks.NewInventory()
	cfg := testConfig()

	lake := testutil.Descriptor("Data", "Lakehouse")
	nb := testutil.Descriptor("Ingest", "Notebook", testutil.TextPart("notebook-content.py", "print(1)"))
	local := []*types.ArtifactDescriptor{nb, lake}
	g := graphOf(map[string][]string{"Ingest.Notebook": {"Data.Lakehouse"}}, nb.Identity, lake.Identity)

	p, err := newPlanner(t, inv, cfg).BuildPlan(testutil.Context(t), local, nil, g)
	require.NoError(t, err)
	assert.Equal(t, []string{"create Data.Lakehouse", "create Ingest.Notebook"}, kinds(p.Upserts))
	assert.Empty(t, p.Deletes)

	lakeAction, ok := p.Action(lake.Identity)
	require.True(t, ok)
	assert.True(t, lakeAction.MetadataOnly)
	nbAction, ok := p.Action(nb.Identity)
	require.True(t, ok)
	assert.False(t, nbAction.MetadataOnly)
}

func TestReconciledWorkspacePlansOnlySkips(t *testing.T) {
	inv := mocks.NewInventory()
	cfg := testConfig()

	part := testutil.TextPart("notebook-content.py", "print(1)")
	inv.Seed("Data", "Lakehouse")
	inv.Seed("Ingest", "Notebook", part)

	lake := testutil.Descriptor("Data", "Lakehouse")
	nb := testutil.Descriptor("Ingest", "Notebook", part)
	g := graphOf(nil, lake.Identity, nb.Identity)

	p, err := newPlanner(t, inv, cfg).BuildPlan(testutil.Context(t),
		[]*types.ArtifactDescriptor{lake, nb}, inv.Items, g)
	require.NoError(t, err)
	assert.Zero(t, p.Writes(), "a reconciled world must plan zero writes")
	for _, a := range p.Upserts {
		assert.Equal(t, types.ActionSkip, a.Kind)
	}
}

func TestChangedDefinitionPlansUpdate(t *testing.T) {
	inv := mocks.NewInventory()
	cfg := testConfig()
	itemID := inv.Seed("Ingest", "Notebook", testutil.TextPart("notebook-content.py", "print(1)"))

	nb := testutil.Descriptor("Ingest", "Notebook", testutil.TextPart("notebook-content.py", "print(2)"))
	g := graphOf(nil, nb.Identity)

	p, err := newPlanner(t, inv, cfg).BuildPlan(testutil.Context(t),
		[]*types.ArtifactDescriptor{nb}, inv.Items, g)
	require.NoError(t, err)
	require.Len(t, p.Upserts, 1)
	assert.Equal(t, types.ActionUpdate, p.Upserts[0].Kind)
	assert.Equal(t, itemID, p.Upserts[0].RemoteID)
	assert.Equal(t, "definitions differ", p.Upserts[0].Reason)
}

func TestIdentityMatchingIsCaseInsensitive(t *testing.T) {
	inv := mocks.NewInventory()
	cfg := testConfig()
	part := testutil.TextPart("notebook-content.py", "print(1)")
	inv.Seed("INGEST", "notebook", part)

	nb := testutil.Descriptor("Ingest", "Notebook", part)
	g := graphOf(nil, nb.Identity)

	p, err := newPlanner(t, inv, cfg).BuildPlan(testutil.Context(t),
		[]*types.ArtifactDescriptor{nb}, inv.Items, g)
	require.NoError(t, err)
	require.Len(t, p.Upserts, 1)
	assert.Equal(t, types.ActionSkip, p.Upserts[0].Kind)
	assert.Empty(t, p.Deletes)
}

func TestFullMirrorDeletesStrayItemsButNotServiceTypes(t *testing.T) {
	inv := mocks.NewInventory()
	cfg := testConfig()
	strayID := inv.Seed("Old", "Report")
	inv.Seed("Data", "SQLAnalyticsEndpoint")

	p, err := newPlanner(t, inv, cfg).BuildPlan(testutil.Context(t), nil, inv.Items, graph.NewGraph())
	require.NoError(t, err)
	require.Len(t, p.Deletes, 1)
	assert.Equal(t, "Old.Report", p.Deletes[0].Identity.String())
	assert.Equal(t, strayID, p.Deletes[0].RemoteID)
}

func TestSelectiveModeCoversClosureAndNeverDeletes(t *testing.T) {
	inv := mocks.NewInventory()
	cfg := testConfig()
	cfg.Workspace.Item = "Ingest.Notebook"
	inv.Seed("Stray", "Report")

	lake := testutil.Descriptor("Data", "Lakehouse")
	nb := testutil.Descriptor("Ingest", "Notebook", testutil.TextPart("notebook-content.py", "x"))
	other := testutil.Descriptor("Unrelated", "Notebook", testutil.TextPart("notebook-content.py", "y"))
	g := graphOf(map[string][]string{"Ingest.Notebook": {"Data.Lakehouse"}},
		lake.Identity, nb.Identity, other.Identity)

	p, err := newPlanner(t, inv, cfg).BuildPlan(testutil.Context(t),
		[]*types.ArtifactDescriptor{lake, nb, other}, inv.Items, g)
	require.NoError(t, err)
	assert.Equal(t, []string{"create Data.Lakehouse", "create Ingest.Notebook"}, kinds(p.Upserts))
	assert.Empty(t, p.Deletes, "selective runs must never delete")
}

func TestSelectiveModeUnknownTargetFails(t *testing.T) {
	cfg := testConfig()
	cfg.Workspace.Item = "Missing.Notebook"

	_, err := newPlanner(t, mocks.NewInventory(), cfg).BuildPlan(testutil.Context(t), nil, nil, graph.NewGraph())
	require.Error(t, err)
	assert.True(t, types.IsRunFatal(err))
}

func TestMetadataOnlyTypeIsNeverUpdated(t *testing.T) {
	inv := mocks.NewInventory()
	cfg := testConfig()
	inv.Seed("Data", "Lakehouse")

	lake := testutil.Descriptor("Data", "Lakehouse")
	g := graphOf(nil, lake.Identity)

	p, err := newPlanner(t, inv, cfg).BuildPlan(testutil.Context(t),
		[]*types.ArtifactDescriptor{lake}, inv.Items, g)
	require.NoError(t, err)
	require.Len(t, p.Upserts, 1)
	assert.Equal(t, types.ActionSkip, p.Upserts[0].Kind)
	assert.Empty(t, inv.CallsOf("getDefinition"), "metadata-only types have no definition to fetch")
}

func TestRemoteControlFilesIgnoredInComparison(t *testing.T) {
	inv := mocks.NewInventory()
	cfg := testConfig()
	part := testutil.TextPart("report.json", "{}")
	inv.Seed("Sales", "Report", part, testutil.TextPart(".platform", `{"config":{}}`))

	rep := testutil.Descriptor("Sales", "Report", part)
	g := graphOf(nil, rep.Identity)

	p, err := newPlanner(t, inv, cfg).BuildPlan(testutil.Context(t),
		[]*types.ArtifactDescriptor{rep}, inv.Items, g)
	require.NoError(t, err)
	require.Len(t, p.Upserts, 1)
	assert.Equal(t, types.ActionSkip, p.Upserts[0].Kind)
}

func TestUnreadableRemoteDefinitionPlansOverwrite(t *testing.T) {
	inv := mocks.NewInventory()
	cfg := testConfig()
	itemID := inv.Seed("Sales", "Report", testutil.TextPart("report.json", "{}"))
	inv.Errs["getDefinition "+itemID] = types.NewError(types.ErrTransport, "definition export failed")

	rep := testutil.Descriptor("Sales", "Report", testutil.TextPart("report.json", "{}"))
	g := graphOf(nil, rep.Identity)

	p, err := newPlanner(t, inv, cfg).BuildPlan(testutil.Context(t),
		[]*types.ArtifactDescriptor{rep}, inv.Items, g)
	require.NoError(t, err)
	require.Len(t, p.Upserts, 1)
	assert.Equal(t, types.ActionUpdate, p.Upserts[0].Kind)
	assert.Equal(t, "remote definition unreadable", p.Upserts[0].Reason)
}

func TestDeferredDefinitionFetchIsAwaited(t *testing.T) {
	inv := mocks.NewInventory()
	cfg := testConfig()
	part := testutil.TextPart("model.tmdl", "table sales")
	itemID := inv.Seed("Model", "SemanticModel", part)
	inv.Defer["getDefinition "+itemID] = true
	inv.Statuses["op:getDefinition "+itemID] = []types.OperationStatus{
		types.OperationRunning, types.OperationSucceeded,
	}

	model := testutil.Descriptor("Model", "SemanticModel", part)
	g := graphOf(nil, model.Identity)

	p, err := newPlanner(t, inv, cfg).BuildPlan(testutil.Context(t),
		[]*types.ArtifactDescriptor{model}, inv.Items, g)
	require.NoError(t, err)
	require.Len(t, p.Upserts, 1)
	assert.Equal(t, types.ActionSkip, p.Upserts[0].Kind)
	assert.Len(t, inv.CallsOf("poll"), 2)
}

func TestPartlessArtifactIsSkippedNotCreated(t *testing.T) {
	inv := mocks.NewInventory()
	cfg := testConfig()

	// An empty Report directory carries nothing to upload. Creating it
	// would provision an item with an empty definition.
	rep := testutil.Descriptor("Sales", "Report")
	g := graphOf(nil, rep.Identity)

	p, err := newPlanner(t, inv, cfg).BuildPlan(testutil.Context(t),
		[]*types.ArtifactDescriptor{rep}, nil, g)
	require.NoError(t, err)
	require.Len(t, p.Upserts, 1)
	assert.Equal(t, types.ActionSkip, p.Upserts[0].Kind)
	assert.Equal(t, "no deployable parts", p.Upserts[0].Reason)
	assert.Zero(t, p.Writes())
	assert.Empty(t, inv.CallsOf("create"))
}

func TestPartlessArtifactNeverOverwritesRemote(t *testing.T) {
	inv := mocks.NewInventory()
	cfg := testConfig()
	inv.Seed("Sales", "Report", testutil.TextPart("report.json", "{}"))

	rep := testutil.Descriptor("Sales", "Report")
	g := graphOf(nil, rep.Identity)

	p, err := newPlanner(t, inv, cfg).BuildPlan(testutil.Context(t),
		[]*types.ArtifactDescriptor{rep}, inv.Items, g)
	require.NoError(t, err)
	require.Len(t, p.Upserts, 1)
	assert.Equal(t, types.ActionSkip, p.Upserts[0].Kind)
	assert.Empty(t, p.Deletes, "the local directory still protects the remote item")
}

func TestDependencyCycleAbortsPlanning(t *testing.T) {
	a := types.Identity{Name: "A", Type: "Notebook"}
	b := types.Identity{Name: "B", Type: "Notebook"}
	g := graph.NewGraph()
	g.AddEdge(a, b)
	g.AddEdge(b, a)

	_, err := newPlanner(t, mocks.NewInventory(), testConfig()).BuildPlan(testutil.Context(t), nil, nil, g)
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrDependencyCycle))
}
