package plan

import (
	"context"
	"path"
	"sort"

	"go.uber.org/zap"

	"github.com/BaSui01/fabricflow/config"
	"github.com/BaSui01/fabricflow/diff"
	"github.com/BaSui01/fabricflow/fabric"
	"github.com/BaSui01/fabricflow/graph"
	"github.com/BaSui01/fabricflow/types"
)

// Planner decides, per artifact, what the run has to do to make the
// remote workspace match the local set.
type Planner struct {
	inv        fabric.Inventory
	classifier *diff.Classifier
	cfg        *config.Config
	logger     *zap.Logger
}

// NewPlanner creates a planner over the given remote inventory.
func NewPlanner(inv fabric.Inventory, classifier *diff.Classifier, cfg *config.Config, logger *zap.Logger) *Planner {
	return &Planner{
		inv:        inv,
		classifier: classifier,
		cfg:        cfg,
		logger:     logger.With(zap.String("component", "planner")),
	}
}

// BuildPlan compares local descriptors against the remote inventory and
// returns the ordered plan. Upserts follow the dependency schedule of g;
// deletes are emitted only in full-mirror mode and only for remote types
// the engine can deploy. Fetching a remote definition mutates nothing, so
// planning itself leaves the workspace untouched.
func (p *Planner) BuildPlan(ctx context.Context, local []*types.ArtifactDescriptor, remote []types.RemoteItem, g *graph.Graph) (*types.Plan, error) {
	byKey := make(map[string]*types.ArtifactDescriptor, len(local))
	for _, d := range local {
		byKey[d.Identity.Key()] = d
	}

	remoteByKey := make(map[string]types.RemoteItem, len(remote))
	for _, it := range remote {
		key := it.Identity().Key()
		if prev, ok := remoteByKey[key]; ok {
			p.logger.Warn("duplicate identity in remote inventory, keeping first",
				zap.String("identity", it.Identity().String()),
				zap.String("kept_id", prev.ID),
				zap.String("ignored_id", it.ID),
			)
			continue
		}
		remoteByKey[key] = it
	}

	order, err := p.schedule(g)
	if err != nil {
		return nil, err
	}

	result := &types.Plan{}
	for _, id := range order {
		d, ok := byKey[id.Key()]
		if !ok {
			continue
		}
		remoteItem, exists := remoteByKey[id.Key()]
		var action types.DeploymentAction
		switch {
		case len(d.Parts) == 0 && !p.cfg.Types.IsMetadataOnly(d.Identity.Type):
			// An empty directory for a definition-carrying type would
			// create or overwrite the item with an empty definition.
			p.logger.Warn("artifact directory has no deployable parts, skipping",
				zap.String("identity", id.String()),
			)
			action = types.DeploymentAction{
				Kind:     types.ActionSkip,
				Identity: d.Identity,
				Reason:   "no deployable parts",
				RemoteID: remoteItem.ID,
			}
		case !exists:
			action = p.planCreate(d)
		default:
			d.RemoteID = remoteItem.ID
			action, err = p.planAgainstRemote(ctx, d)
			if err != nil {
				return nil, err
			}
		}
		p.logger.Debug("action planned",
			zap.String("identity", id.String()),
			zap.String("kind", string(action.Kind)),
			zap.String("reason", action.Reason),
		)
		result.Upserts = append(result.Upserts, action)
	}

	if !p.cfg.Workspace.Selective() {
		result.Deletes = p.planDeletes(byKey, remote)
	}

	p.logger.Info("plan built",
		zap.Int("upserts", len(result.Upserts)),
		zap.Int("deletes", len(result.Deletes)),
		zap.Int("writes", result.Writes()),
	)
	return result, nil
}

// schedule returns the identities the run covers, dependency-first. In
// selective mode that is the requested artifact's closure; otherwise the
// whole local graph.
func (p *Planner) schedule(g *graph.Graph) ([]types.Identity, error) {
	if !p.cfg.Workspace.Selective() {
		return g.TopologicalOrder()
	}
	target, err := types.ParseIdentity(p.cfg.Workspace.Item)
	if err != nil {
		return nil, types.NewError(types.ErrRead, "invalid item selector "+p.cfg.Workspace.Item).WithCause(err)
	}
	closure, err := g.Closure(target)
	if err != nil {
		return nil, err
	}
	return g.Subgraph(closure).TopologicalOrder()
}

func (p *Planner) planCreate(d *types.ArtifactDescriptor) types.DeploymentAction {
	return types.DeploymentAction{
		Kind:         types.ActionCreate,
		Identity:     d.Identity,
		Reason:       "not present in workspace",
		Descriptor:   d,
		MetadataOnly: p.cfg.Types.IsMetadataOnly(d.Identity.Type),
	}
}

// planAgainstRemote decides between update and skip for an artifact that
// exists on both sides. A metadata-only type has no comparable definition
// and is never updated. When the remote definition cannot be read, the
// planner overwrites rather than guessing equivalence; only run-fatal
// failures abort.
func (p *Planner) planAgainstRemote(ctx context.Context, d *types.ArtifactDescriptor) (types.DeploymentAction, error) {
	if p.cfg.Types.IsMetadataOnly(d.Identity.Type) {
		return types.DeploymentAction{
			Kind:     types.ActionSkip,
			Identity: d.Identity,
			Reason:   "metadata-only type already present",
			RemoteID: d.RemoteID,
		}, nil
	}

	remoteParts, err := p.remoteParts(ctx, d)
	if err != nil {
		if types.IsRunFatal(err) || ctx.Err() != nil {
			return types.DeploymentAction{}, err
		}
		p.logger.Warn("remote definition unreadable, planning overwrite",
			zap.String("identity", d.Identity.String()),
			zap.Error(err),
		)
		return types.DeploymentAction{
			Kind:       types.ActionUpdate,
			Identity:   d.Identity,
			Reason:     "remote definition unreadable",
			Descriptor: d,
			RemoteID:   d.RemoteID,
		}, nil
	}

	if p.classifier.Equals(d.Parts, remoteParts) {
		return types.DeploymentAction{
			Kind:     types.ActionSkip,
			Identity: d.Identity,
			Reason:   "definitions equivalent",
			RemoteID: d.RemoteID,
		}, nil
	}
	return types.DeploymentAction{
		Kind:       types.ActionUpdate,
		Identity:   d.Identity,
		Reason:     "definitions differ",
		Descriptor: d,
		RemoteID:   d.RemoteID,
	}, nil
}

// remoteParts fetches and decodes the remote definition, dropping control
// files so both sides of the comparison cover the same surface.
func (p *Planner) remoteParts(ctx context.Context, d *types.ArtifactDescriptor) ([]types.Part, error) {
	res, err := p.inv.GetDefinition(ctx, d.RemoteID, p.cfg.Types.FormatHint(d.Identity.Type))
	if err != nil {
		return nil, err
	}
	payload, err := fabric.Await(ctx, p.inv, res, p.cfg.Poll, p.logger)
	if err != nil {
		return nil, err
	}
	parts, err := fabric.ParseDefinition(payload)
	if err != nil {
		return nil, types.NewError(types.ErrDefinitionUnsupported, "remote definition not decodable").
			WithIdentity(d.Identity).
			WithCause(err)
	}
	kept := parts[:0]
	for _, part := range parts {
		if p.cfg.Reader.IsControlFile(path.Base(part.Path)) {
			continue
		}
		kept = append(kept, part)
	}
	return kept, nil
}

// planDeletes lists remote items absent from the local set. Types the
// engine cannot deploy are service-provisioned and never deleted.
func (p *Planner) planDeletes(local map[string]*types.ArtifactDescriptor, remote []types.RemoteItem) []types.DeploymentAction {
	var deletes []types.DeploymentAction
	for _, it := range remote {
		id := it.Identity()
		if _, ok := local[id.Key()]; ok {
			continue
		}
		if p.cfg.Types.IsUnsupported(id.Type) {
			continue
		}
		deletes = append(deletes, types.DeploymentAction{
			Kind:     types.ActionDelete,
			Identity: id,
			Reason:   "not present in source",
			RemoteID: it.ID,
		})
	}
	sort.Slice(deletes, func(i, j int) bool {
		return deletes[i].Identity.Key() < deletes[j].Identity.Key()
	})
	return deletes
}
