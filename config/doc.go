// Copyright (c) FabricFlow Authors.
// Licensed under the MIT License.

/*
Package config provides the configuration model for fabricflow.

Every table the engine consults (type format hints, the archive extension
allowlist, the volatile-member denylist, the unsupported-type denylist,
the metadata-only type set, the polling budget) lives here as an explicit
value and is injected into the component that needs it. Nothing
reads ambient global state, so tests substitute any table freely.

Loading follows the precedence defaults → YAML file → environment:

	cfg, err := config.NewLoader().
	    WithConfigPath("fabricflow.yaml").
	    WithEnvPrefix("FABRICFLOW").
	    Load()
*/
package config
