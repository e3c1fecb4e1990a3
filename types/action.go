package types

// ActionKind is the kind of a planned deployment action.
type ActionKind string

const (
	// ActionCreate creates a missing artifact.
	ActionCreate ActionKind = "create"
	// ActionUpdate overwrites the definition of an existing artifact.
	ActionUpdate ActionKind = "update"
	// ActionDelete removes a remote artifact absent from the local set.
	// Emitted only in full-mirror mode.
	ActionDelete ActionKind = "delete"
	// ActionSkip records that local and remote are already equivalent.
	ActionSkip ActionKind = "skip"
)

// DeploymentAction is one entry of a reconciliation plan.
type DeploymentAction struct {
	// Kind is the action kind.
	Kind ActionKind
	// Identity names the target artifact.
	Identity Identity
	// Reason explains why the planner chose this action.
	Reason string
	// Descriptor is the local descriptor backing create/update actions;
	// nil for delete and for skips of remote-only metadata types.
	Descriptor *ArtifactDescriptor
	// RemoteID is the existing remote item id for update/delete/skip.
	RemoteID string
	// MetadataOnly marks create actions that carry name+type but no
	// definition parts.
	MetadataOnly bool
}

// Plan is the ordered output of the reconciliation planner.
type Plan struct {
	// Upserts holds creates, updates and skips in dependency-first
	// scheduler order.
	Upserts []DeploymentAction
	// Deletes holds delete actions. They carry no ordering constraint
	// among themselves but execute only after every upsert succeeded.
	Deletes []DeploymentAction
}

// Writes counts the actions that would touch the remote workspace. A
// reconciled world yields zero.
func (p *Plan) Writes() int {
	n := len(p.Deletes)
	for _, a := range p.Upserts {
		if a.Kind != ActionSkip {
			n++
		}
	}
	return n
}

// Action returns the upsert action for the given identity, if planned.
func (p *Plan) Action(id Identity) (DeploymentAction, bool) {
	for _, a := range p.Upserts {
		if a.Identity.Key() == id.Key() {
			return a, true
		}
	}
	return DeploymentAction{}, false
}
