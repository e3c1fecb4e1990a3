package config

import "time"

// DefaultConfig returns the default configuration. The type tables mirror
// what the workspace service accepts today; all of them are overridable.
func DefaultConfig() *Config {
	return &Config{
		Workspace: WorkspaceConfig{
			SourceRoot: "fabric",
		},
		Remote: RemoteConfig{
			BaseURL: "https://api.fabric.microsoft.com/v1",
			Timeout: 120 * time.Second,
		},
		Poll: PollConfig{
			Interval:    5 * time.Second,
			MaxAttempts: 72,
		},
		Types: TypeConfig{
			FormatHints: map[string]string{
				"Notebook":      "ipynb",
				"SemanticModel": "TMDL",
			},
			// Auto-generated or service-only types with no deployable
			// definition.
			Unsupported: []string{
				"SQLAnalyticsEndpoint",
				"SQLEndpoint",
				"Dashboard",
				"MountedWarehouse",
				"MountedDataFactory",
			},
			// Creatable by name+type only; no comparable definition
			// exists, so an existing item is never updated.
			MetadataOnly: []string{
				"Lakehouse",
				"Warehouse",
				"Environment",
			},
		},
		Archive: ArchiveConfig{
			Extensions: []string{".pbix", ".pbit", ".zip"},
			// Regenerated by the service on every export.
			VolatileMembers: []string{
				"SecurityBindings",
				"Settings",
				"Version",
			},
		},
		Reader: ReaderConfig{
			ControlFiles: []string{".platform"},
			TextExtensions: []string{
				".py", ".ipynb", ".sql", ".json", ".tmdl", ".bim",
				".pbir", ".rdl", ".xml", ".yml", ".yaml", ".txt", ".md",
			},
			Concurrency: 8,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
