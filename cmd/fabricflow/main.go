package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/fabricflow"
	"github.com/BaSui01/fabricflow/config"
	"github.com/BaSui01/fabricflow/internal/metrics"
	"github.com/BaSui01/fabricflow/types"
)

// Version information, injected at build time.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "deploy":
		runDeploy(os.Args[2:])
	case "pull":
		runPull(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runDeploy(args []string) {
	fs := flag.NewFlagSet("deploy", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file (YAML)")
	workspaceID := fs.String("workspace", "", "Target workspace id (overrides config)")
	sourceRoot := fs.String("source", "", "Artifact source root (overrides config)")
	item := fs.String("item", "", "Deploy only this <name>.<type> artifact and its dependencies")
	dryRun := fs.Bool("dry-run", false, "Print the plan without writing to the workspace")
	fs.Parse(args)

	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *workspaceID != "" {
		cfg.Workspace.ID = *workspaceID
	}
	if *sourceRoot != "" {
		cfg.Workspace.SourceRoot = *sourceRoot
	}
	if *item != "" {
		cfg.Workspace.Item = *item
	}

	logger, err := fabricflow.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log config: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting fabricflow",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
		zap.String("workspace", cfg.Workspace.ID),
		zap.Bool("selective", cfg.Workspace.Selective()),
	)

	deployer, err := fabricflow.New(cfg,
		fabricflow.WithLogger(logger),
		fabricflow.WithCollector(metrics.NewCollector("fabricflow", logger)),
	)
	if err != nil {
		logger.Fatal("setup failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *dryRun {
		p, _, err := deployer.Plan(ctx)
		if err != nil {
			logger.Fatal("planning failed", zap.Error(err))
		}
		printPlan(p)
		return
	}

	report, err := deployer.Deploy(ctx)
	if err != nil {
		logger.Fatal("deployment aborted", zap.Error(err))
	}
	fmt.Printf("Run %s: %d created, %d updated, %d deleted, %d skipped, %d failed (%s)\n",
		report.RunID, report.Created, report.Updated, report.Deleted,
		report.Skipped, report.Failed, report.Duration.Round(time.Millisecond))
	for _, f := range report.Failures {
		fmt.Fprintf(os.Stderr, "  FAILED %s %s: %v\n", f.Kind, f.Identity, f.Err)
	}
	if !report.Succeeded() {
		os.Exit(1)
	}
}

func runPull(args []string) {
	fs := flag.NewFlagSet("pull", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file (YAML)")
	workspaceID := fs.String("workspace", "", "Source workspace id (overrides config)")
	sourceRoot := fs.String("source", "", "Artifact tree destination (overrides config)")
	fs.Parse(args)

	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *workspaceID != "" {
		cfg.Workspace.ID = *workspaceID
	}
	if *sourceRoot != "" {
		cfg.Workspace.SourceRoot = *sourceRoot
	}

	logger, err := fabricflow.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log config: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	deployer, err := fabricflow.New(cfg, fabricflow.WithLogger(logger))
	if err != nil {
		logger.Fatal("setup failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exported, err := deployer.Pull(ctx)
	if err != nil {
		logger.Fatal("pull aborted", zap.Error(err))
	}
	fmt.Printf("Exported %d artifacts from workspace %s to %s\n",
		exported, cfg.Workspace.ID, cfg.Workspace.SourceRoot)
}

func printPlan(p *types.Plan) {
	for _, a := range p.Upserts {
		fmt.Printf("%-6s  %-40s  %s\n", a.Kind, a.Identity, a.Reason)
	}
	for _, a := range p.Deletes {
		fmt.Printf("%-6s  %-40s  %s\n", a.Kind, a.Identity, a.Reason)
	}
	fmt.Printf("%d actions, %d writes\n", len(p.Upserts)+len(p.Deletes), p.Writes())
}

func printVersion() {
	fmt.Printf("fabricflow %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`fabricflow - workspace artifact deployment

Usage:
  fabricflow <command> [options]

Commands:
  deploy    Reconcile the local artifact tree with the remote workspace
  pull      Export the remote workspace into a local artifact tree
  version   Show version information
  help      Show this help message

Options for 'deploy':
  -config <path>    Path to configuration file (YAML)
  -workspace <id>   Target workspace id (overrides config)
  -source <dir>     Artifact source root (overrides config)
  -item <name.type> Deploy one artifact and its dependencies only
  -dry-run          Print the plan without writing

Options for 'pull':
  -config <path>    Path to configuration file (YAML)
  -workspace <id>   Source workspace id (overrides config)
  -source <dir>     Artifact tree destination (overrides config)

Environment:
  FABRIC_TOKEN      Bearer token for the workspace API
  FABRICFLOW_*      Config overrides, e.g. FABRICFLOW_WORKSPACE_ID

Examples:
  fabricflow deploy -config /etc/fabricflow/config.yaml
  fabricflow deploy -workspace 8f6e... -source ./fabric
  fabricflow deploy -item Sales.Report
  fabricflow deploy -dry-run
  fabricflow pull -workspace 8f6e... -source ./fabric`)
}
