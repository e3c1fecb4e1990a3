package config

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// Config is the complete fabricflow configuration.
type Config struct {
	// Workspace selects the deployment source and target.
	Workspace WorkspaceConfig `yaml:"workspace" env:"WORKSPACE"`

	// Remote configures the workspace API client.
	Remote RemoteConfig `yaml:"remote" env:"REMOTE"`

	// Poll bounds deferred-operation polling.
	Poll PollConfig `yaml:"poll" env:"POLL"`

	// Types carries the per-artifact-type tables.
	Types TypeConfig `yaml:"types" env:"TYPES"`

	// Archive configures archive-aware content comparison.
	Archive ArchiveConfig `yaml:"archive" env:"ARCHIVE"`

	// Reader configures local artifact directory reading.
	Reader ReaderConfig `yaml:"reader" env:"READER"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log" env:"LOG"`
}

// WorkspaceConfig selects what to deploy and where.
type WorkspaceConfig struct {
	// ID is the target workspace id.
	ID string `yaml:"id" env:"ID"`
	// SourceRoot is the local directory holding one subdirectory per
	// artifact.
	SourceRoot string `yaml:"source_root" env:"SOURCE_ROOT"`
	// Item, when set, restricts the run to this "<name>.<type>" identity
	// plus its transitive dependencies (selective mode). Empty means
	// full-mirror mode.
	Item string `yaml:"item" env:"ITEM"`
}

// Selective reports whether the run is restricted to one identity's
// dependency closure. Deletes are never emitted in selective mode.
func (w WorkspaceConfig) Selective() bool { return w.Item != "" }

// RemoteConfig configures the remote inventory client.
type RemoteConfig struct {
	// BaseURL is the API root, without trailing slash.
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// Timeout bounds one HTTP round trip.
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// PollConfig bounds the deferred-operation polling loop.
type PollConfig struct {
	// Interval is the fixed sleep between status polls.
	Interval time.Duration `yaml:"interval" env:"INTERVAL"`
	// MaxAttempts is the poll budget; exhausting it yields
	// OPERATION_TIMEOUT, never an indefinite wait.
	MaxAttempts int `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
}

// Budget returns the worst-case wall-clock wait for one operation.
func (p PollConfig) Budget() time.Duration {
	return time.Duration(p.MaxAttempts) * p.Interval
}

// TypeConfig carries the per-artifact-type tables.
type TypeConfig struct {
	// FormatHints maps artifact type → definition format passed to
	// getDefinition, e.g. SemanticModel → TMDL.
	FormatHints map[string]string `yaml:"format_hints" env:"-"`
	// Unsupported lists types with no deployable definition; they are
	// silently excluded from the local set.
	Unsupported []string `yaml:"unsupported" env:"-"`
	// MetadataOnly lists types created by name+type alone, with no
	// comparable definition.
	MetadataOnly []string `yaml:"metadata_only" env:"-"`
}

// IsUnsupported reports whether the type is on the deny-list.
func (t TypeConfig) IsUnsupported(artifactType string) bool {
	return containsFold(t.Unsupported, artifactType)
}

// IsMetadataOnly reports whether the type deploys by name+type only.
func (t TypeConfig) IsMetadataOnly(artifactType string) bool {
	return containsFold(t.MetadataOnly, artifactType)
}

// FormatHint returns the definition format for the type, if configured.
func (t TypeConfig) FormatHint(artifactType string) string {
	for k, v := range t.FormatHints {
		if strings.EqualFold(k, artifactType) {
			return v
		}
	}
	return ""
}

// ArchiveConfig configures archive-aware comparison.
type ArchiveConfig struct {
	// Extensions lists file extensions treated as archive parts.
	Extensions []string `yaml:"extensions" env:"-"`
	// VolatileMembers lists archive member names regenerated
	// non-deterministically by the service; they are excluded from
	// equivalence comparison.
	VolatileMembers []string `yaml:"volatile_members" env:"-"`
}

// IsArchivePath reports whether the part path has an archive extension.
func (a ArchiveConfig) IsArchivePath(partPath string) bool {
	return containsFold(a.Extensions, path.Ext(partPath))
}

// IsVolatileMember reports whether the archive member is excluded from
// comparison.
func (a ArchiveConfig) IsVolatileMember(member string) bool {
	return containsFold(a.VolatileMembers, member)
}

// ReaderConfig configures local artifact directory reading.
type ReaderConfig struct {
	// ControlFiles lists file names excluded from every definition and
	// diff (Git-integration metadata).
	ControlFiles []string `yaml:"control_files" env:"-"`
	// TextExtensions lists extensions classified as text parts;
	// everything not text and not archive is opaque binary.
	TextExtensions []string `yaml:"text_extensions" env:"-"`
	// Concurrency bounds parallel artifact directory reads.
	Concurrency int `yaml:"concurrency" env:"CONCURRENCY"`
}

// IsControlFile reports whether the file name is excluded from
// definitions.
func (r ReaderConfig) IsControlFile(name string) bool {
	return containsFold(r.ControlFiles, name)
}

// IsTextPath reports whether the part path has a text extension.
func (r ReaderConfig) IsTextPath(partPath string) bool {
	return containsFold(r.TextExtensions, path.Ext(partPath))
}

// LogConfig configures zap logging.
type LogConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format: json, console.
	Format string `yaml:"format" env:"FORMAT"`
}

// Validate checks the configuration for structural problems.
func (c *Config) Validate() error {
	if c.Workspace.ID == "" {
		return fmt.Errorf("workspace.id is required")
	}
	if c.Workspace.SourceRoot == "" {
		return fmt.Errorf("workspace.source_root is required")
	}
	if c.Remote.BaseURL == "" {
		return fmt.Errorf("remote.base_url is required")
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive, got %s", c.Poll.Interval)
	}
	if c.Poll.MaxAttempts <= 0 {
		return fmt.Errorf("poll.max_attempts must be positive, got %d", c.Poll.MaxAttempts)
	}
	return nil
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
