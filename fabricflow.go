// Package fabricflow reconciles a local tree of workspace artifacts
// against a remote multi-tenant workspace.
//
// Usage:
//
//	import "github.com/BaSui01/fabricflow"
//
//	d, err := fabricflow.New(cfg, fabricflow.WithTokenProvider(tokens))
//	report, err := d.Deploy(ctx)
//
// A run reads the artifact directories under the configured source root,
// lists the remote inventory, plans the minimal set of creates, updates
// and deletes in dependency order, and executes that plan. Running twice
// against an unchanged tree plans zero writes.
package fabricflow

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/fabricflow/config"
	"github.com/BaSui01/fabricflow/deploy"
	"github.com/BaSui01/fabricflow/diff"
	"github.com/BaSui01/fabricflow/fabric"
	"github.com/BaSui01/fabricflow/graph"
	"github.com/BaSui01/fabricflow/internal/metrics"
	"github.com/BaSui01/fabricflow/plan"
	"github.com/BaSui01/fabricflow/repo"
	"github.com/BaSui01/fabricflow/types"
)

// tokenEnv is the fallback bearer token source when no TokenProvider is
// configured.
const tokenEnv = "FABRIC_TOKEN"

// Deployer wires the full reconciliation pipeline: reader, dependency
// resolver, planner and executor over one remote inventory.
type Deployer struct {
	cfg       *config.Config
	inv       fabric.Inventory
	reader    *repo.Reader
	resolver  *graph.Resolver
	planner   *plan.Planner
	executor  *deploy.Executor
	collector *metrics.Collector
	logger    *zap.Logger
}

type options struct {
	logger     *zap.Logger
	tokens     fabric.TokenProvider
	inv        fabric.Inventory
	collector  *metrics.Collector
	extractors []graph.Extractor
}

// Option configures the Deployer created by [New].
type Option func(*options)

// WithLogger sets a custom zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithTokenProvider sets the bearer token source for the remote client.
func WithTokenProvider(tokens fabric.TokenProvider) Option {
	return func(o *options) { o.tokens = tokens }
}

// WithInventory replaces the HTTP remote client entirely.
func WithInventory(inv fabric.Inventory) Option {
	return func(o *options) { o.inv = inv }
}

// WithCollector sets the metrics collector.
func WithCollector(c *metrics.Collector) Option {
	return func(o *options) { o.collector = c }
}

// WithExtractors replaces the default dependency extractor strategies.
func WithExtractors(extractors ...graph.Extractor) Option {
	return func(o *options) { o.extractors = extractors }
}

// New creates a Deployer for the given configuration. Without
// WithInventory, a remote client is built from cfg.Remote; its token
// comes from WithTokenProvider or, failing that, the FABRIC_TOKEN
// environment variable.
func New(cfg *config.Config, opts ...Option) (*Deployer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, types.NewError(types.ErrRead, "invalid configuration").WithCause(err)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		var err error
		logger, err = NewLogger(cfg.Log)
		if err != nil {
			return nil, types.NewError(types.ErrRead, "invalid log configuration").WithCause(err)
		}
	}

	inv := o.inv
	if inv == nil {
		tokens := o.tokens
		if tokens == nil {
			token := os.Getenv(tokenEnv)
			if token == "" {
				return nil, types.NewError(types.ErrAuth,
					"no token provider configured and "+tokenEnv+" is empty")
			}
			tokens = fabric.StaticToken(token)
		}
		inv = fabric.NewClient(cfg.Remote, cfg.Workspace.ID, tokens, logger)
	}

	extractors := o.extractors
	if extractors == nil {
		extractors = graph.DefaultExtractors()
	}

	classifier := diff.NewClassifier(cfg.Archive, logger)
	return &Deployer{
		cfg:       cfg,
		inv:       inv,
		reader:    repo.NewReader(cfg.Reader, cfg.Archive, cfg.Types, logger),
		resolver:  graph.NewResolver(logger, extractors...),
		planner:   plan.NewPlanner(inv, classifier, cfg, logger),
		executor:  deploy.NewExecutor(inv, cfg, o.collector, logger),
		collector: o.collector,
		logger:    logger,
	}, nil
}

// Plan builds the reconciliation plan without executing it. The remote
// workspace is read but never written, so Plan doubles as a dry run.
func (d *Deployer) Plan(ctx context.Context) (*types.Plan, *graph.Graph, error) {
	local, err := d.reader.Read(ctx, d.cfg.Workspace.SourceRoot)
	if err != nil {
		return nil, nil, err
	}
	g := d.resolver.Resolve(local)

	// A cycle is fatal before the first remote call is issued.
	if _, err := g.TopologicalOrder(); err != nil {
		return nil, nil, err
	}

	remote, err := d.inv.ListItems(ctx)
	if err != nil {
		return nil, nil, err
	}
	if d.collector != nil {
		d.collector.RecordInventorySize(d.cfg.Workspace.ID, len(remote))
	}

	p, err := d.planner.BuildPlan(ctx, local, remote, g)
	if err != nil {
		return nil, nil, err
	}
	return p, g, nil
}

// Deploy plans and executes one reconciliation run.
func (d *Deployer) Deploy(ctx context.Context) (*deploy.RunReport, error) {
	p, g, err := d.Plan(ctx)
	if err != nil {
		return nil, err
	}
	return d.executor.Execute(ctx, p, g)
}

// Pull exports the remote workspace into the configured source root: one
// directory per exportable item, plus a manifest recording what was
// pulled. Unsupported types are skipped; metadata-only types produce an
// empty directory since the remote holds no definition for them. Pulling
// and then planning against the same workspace yields zero writes.
func (d *Deployer) Pull(ctx context.Context) (int, error) {
	remote, err := d.inv.ListItems(ctx)
	if err != nil {
		return 0, err
	}
	if d.collector != nil {
		d.collector.RecordInventorySize(d.cfg.Workspace.ID, len(remote))
	}

	var descriptors []*types.ArtifactDescriptor
	var exported []types.RemoteItem
	for _, item := range remote {
		if d.cfg.Types.IsUnsupported(item.Type) {
			d.logger.Info("skipping unsupported item type",
				zap.String("identity", item.Identity().String()),
			)
			continue
		}
		desc := &types.ArtifactDescriptor{Identity: item.Identity(), RemoteID: item.ID}
		if !d.cfg.Types.IsMetadataOnly(item.Type) {
			res, err := d.inv.GetDefinition(ctx, item.ID, d.cfg.Types.FormatHint(item.Type))
			if err != nil {
				return 0, err
			}
			payload, err := fabric.Await(ctx, d.inv, res, d.cfg.Poll, d.logger)
			if err != nil {
				return 0, err
			}
			parts, err := fabric.ParseDefinition(payload)
			if err != nil {
				return 0, types.NewError(types.ErrDefinitionUnsupported, "remote definition not decodable").
					WithIdentity(item.Identity()).
					WithCause(err)
			}
			desc.Parts = parts
		}
		descriptors = append(descriptors, desc)
		exported = append(exported, item)
	}

	writer := repo.NewWriter(d.logger)
	if err := writer.Write(d.cfg.Workspace.SourceRoot, descriptors); err != nil {
		return 0, err
	}
	if err := writer.WriteManifest(d.cfg.Workspace.SourceRoot, repo.Manifest{
		WorkspaceID: d.cfg.Workspace.ID,
		ExportedAt:  time.Now().UTC(),
		Items:       exported,
	}); err != nil {
		return 0, err
	}
	d.logger.Info("workspace exported",
		zap.String("workspace_id", d.cfg.Workspace.ID),
		zap.String("source_root", d.cfg.Workspace.SourceRoot),
		zap.Int("exported", len(exported)),
	)
	return len(exported), nil
}

// NewLogger builds a zap logger from the log configuration.
func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	if cfg.Format == "console" {
		zc.Encoding = "console"
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	return zc.Build()
}
