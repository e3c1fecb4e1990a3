package deploy

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/fabricflow/config"
	"github.com/BaSui01/fabricflow/fabric"
	"github.com/BaSui01/fabricflow/graph"
	"github.com/BaSui01/fabricflow/internal/metrics"
	"github.com/BaSui01/fabricflow/types"
)

// Executor applies a reconciliation plan to the remote workspace.
type Executor struct {
	inv       fabric.Inventory
	cfg       *config.Config
	collector *metrics.Collector
	logger    *zap.Logger
}

// NewExecutor creates an executor. The collector may be nil.
func NewExecutor(inv fabric.Inventory, cfg *config.Config, collector *metrics.Collector, logger *zap.Logger) *Executor {
	return &Executor{
		inv:       inv,
		cfg:       cfg,
		collector: collector,
		logger:    logger.With(zap.String("component", "executor")),
	}
}

// Execute runs the plan and returns the report. Upserts execute in plan
// order, so every dependency precedes its dependents; an action is
// attempted only when none of its dependencies failed. Per-action failures
// accumulate rather than abort; the returned error is non-nil only for
// run-fatal conditions (cancelled context, authentication failure).
func (e *Executor) Execute(ctx context.Context, p *types.Plan, g *graph.Graph) (*RunReport, error) {
	report := &RunReport{
		RunID:     uuid.NewString(),
		Workspace: e.cfg.Workspace.ID,
		Started:   time.Now(),
	}
	logger := e.logger.With(zap.String("run_id", report.RunID))
	logger.Info("executing plan",
		zap.Int("upserts", len(p.Upserts)),
		zap.Int("deletes", len(p.Deletes)),
		zap.Int("writes", p.Writes()),
	)

	blocked := make(map[string]bool)
	for _, action := range p.Upserts {
		if err := ctx.Err(); err != nil {
			return e.finish(report, logger), types.NewError(types.ErrRunCancelled, "run cancelled").WithCause(err)
		}
		if dep, isBlocked := e.blockedBy(g, action.Identity, blocked); isBlocked {
			err := types.NewError(types.ErrDependencyNotSatisfied,
				"dependency "+dep.String()+" was not deployed").
				WithIdentity(action.Identity)
			logger.Error("action blocked by failed dependency",
				zap.String("identity", action.Identity.String()),
				zap.String("dependency", dep.String()),
			)
			report.fail(action, err)
			blocked[action.Identity.Key()] = true
			e.record(action.Kind, "blocked", 0)
			continue
		}

		start := time.Now()
		err := e.apply(ctx, action)
		elapsed := time.Since(start)

		switch {
		case err == nil:
			e.count(report, action.Kind)
			e.record(action.Kind, "success", elapsed)
			logger.Info("action completed",
				zap.String("identity", action.Identity.String()),
				zap.String("kind", string(action.Kind)),
				zap.String("reason", action.Reason),
				zap.Duration("elapsed", elapsed),
			)
		case types.IsErrorCode(err, types.ErrNoopPromotion):
			// The remote decided there was nothing to change. Informational,
			// never a failure, and dependents stay unblocked.
			report.Skipped++
			e.record(action.Kind, "noop", elapsed)
			logger.Warn("remote reported nothing to deploy",
				zap.String("identity", action.Identity.String()),
				zap.String("kind", string(action.Kind)),
			)
		default:
			report.fail(action, err)
			blocked[action.Identity.Key()] = true
			e.record(action.Kind, "failed", elapsed)
			logger.Error("action failed",
				zap.String("identity", action.Identity.String()),
				zap.String("kind", string(action.Kind)),
				zap.Error(err),
			)
			if types.IsRunFatal(err) {
				return e.finish(report, logger), err
			}
		}
	}

	e.applyDeletes(ctx, p.Deletes, report, logger)
	return e.finish(report, logger), nil
}

// applyDeletes removes remote-only items. Deletes are withheld when any
// upsert failed: a half-deployed workspace should not also lose items.
func (e *Executor) applyDeletes(ctx context.Context, deletes []types.DeploymentAction, report *RunReport, logger *zap.Logger) {
	if len(deletes) == 0 {
		return
	}
	if report.Failed > 0 {
		report.Skipped += len(deletes)
		for range deletes {
			e.record(types.ActionDelete, "withheld", 0)
		}
		logger.Warn("withholding deletes after upsert failures",
			zap.Int("deletes", len(deletes)),
			zap.Int("failed_upserts", report.Failed),
		)
		return
	}
	for _, action := range deletes {
		start := time.Now()
		err := e.inv.DeleteItem(ctx, action.RemoteID)
		if err != nil {
			report.fail(action, err)
			e.record(types.ActionDelete, "failed", time.Since(start))
			logger.Error("delete failed",
				zap.String("identity", action.Identity.String()),
				zap.Error(err),
			)
			continue
		}
		report.Deleted++
		e.record(types.ActionDelete, "success", time.Since(start))
		logger.Info("item deleted",
			zap.String("identity", action.Identity.String()),
			zap.String("item_id", action.RemoteID),
		)
	}
}

func (e *Executor) apply(ctx context.Context, action types.DeploymentAction) error {
	switch action.Kind {
	case types.ActionSkip:
		return nil
	case types.ActionCreate:
		return e.create(ctx, action)
	case types.ActionUpdate:
		return e.update(ctx, action)
	default:
		return types.NewError(types.ErrDefinitionUnsupported, "unknown action kind "+string(action.Kind)).
			WithIdentity(action.Identity)
	}
}

func (e *Executor) create(ctx context.Context, action types.DeploymentAction) error {
	var def *fabric.ItemDefinition
	if !action.MetadataOnly {
		def = fabric.NewItemDefinition(action.Descriptor.Parts)
	}
	res, err := e.inv.CreateItem(ctx, action.Identity, def)
	if err != nil {
		return err
	}
	payload, err := e.await(ctx, res)
	if err != nil {
		return err
	}
	// The new item id lets later duplicate runs match without re-listing.
	var created struct {
		ID string `json:"id"`
	}
	if json.Unmarshal(payload, &created) == nil && created.ID != "" {
		action.Descriptor.RemoteID = created.ID
	}
	return nil
}

func (e *Executor) update(ctx context.Context, action types.DeploymentAction) error {
	res, err := e.inv.UpdateDefinition(ctx, action.RemoteID, fabric.NewItemDefinition(action.Descriptor.Parts))
	if err != nil {
		return err
	}
	_, err = e.await(ctx, res)
	return err
}

func (e *Executor) await(ctx context.Context, res types.RemoteResult) ([]byte, error) {
	payload, err := fabric.Await(ctx, e.inv, res, e.cfg.Poll, e.logger)
	if h := res.Handle(); h != nil && e.collector != nil {
		e.collector.RecordOperationPolls(h.Polls)
	}
	return payload, err
}

// blockedBy returns the first dependency of id that failed. Plan order is
// topological, so a direct-dependency check covers transitive blocking.
func (e *Executor) blockedBy(g *graph.Graph, id types.Identity, blocked map[string]bool) (types.Identity, bool) {
	for _, dep := range g.Dependencies(id) {
		if blocked[dep.Key()] {
			return dep, true
		}
	}
	return types.Identity{}, false
}

func (e *Executor) count(report *RunReport, kind types.ActionKind) {
	switch kind {
	case types.ActionCreate:
		report.Created++
	case types.ActionUpdate:
		report.Updated++
	case types.ActionSkip:
		report.Skipped++
	}
}

func (e *Executor) record(kind types.ActionKind, outcome string, elapsed time.Duration) {
	if e.collector != nil {
		e.collector.RecordAction(kind, outcome, elapsed)
	}
}

func (e *Executor) finish(report *RunReport, logger *zap.Logger) *RunReport {
	report.Duration = time.Since(report.Started)
	if e.collector != nil {
		e.collector.RecordRun(report.Status(), report.Duration)
	}
	logger.Info("run finished",
		zap.String("status", report.Status()),
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("deleted", report.Deleted),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration),
	)
	return report
}
