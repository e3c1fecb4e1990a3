package mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/BaSui01/fabricflow/fabric"
	"github.com/BaSui01/fabricflow/types"
)

// Inventory is an in-memory fabric.Inventory. It serves a scripted
// workspace state, records every call, and lets tests inject failures and
// deferred-operation flows per item.
type Inventory struct {
	mu sync.Mutex

	// Items is the scripted workspace inventory returned by ListItems.
	Items []types.RemoteItem
	// Definitions maps item id to its current wire definition. Items
	// without an entry answer getDefinition with an empty part list.
	Definitions map[string]*fabric.ItemDefinition

	// Statuses scripts poll sequences per operation id. An exhausted or
	// missing sequence answers Succeeded.
	Statuses map[string][]types.OperationStatus
	// OpErrors maps operation id to the error block reported alongside a
	// failed status.
	OpErrors map[string]*fabric.OperationError
	// Results maps operation id to its result payload.
	Results map[string][]byte

	// Errs injects an error per call label ("create Sales.Report",
	// "delete item-1", "list", ...). The call is still recorded.
	Errs map[string]error

	// Defer lists call labels answered with a 202-style deferred handle
	// instead of an inline result. The handle id is "op:" plus the label.
	Defer map[string]bool

	calls  []string
	nextID int
}

var _ fabric.Inventory = (*Inventory)(nil)

// NewInventory creates an empty mock workspace.
func NewInventory() *Inventory {
	return &Inventory{
		Definitions: make(map[string]*fabric.ItemDefinition),
		Statuses:    make(map[string][]types.OperationStatus),
		OpErrors:    make(map[string]*fabric.OperationError),
		Results:     make(map[string][]byte),
		Errs:        make(map[string]error),
		Defer:       make(map[string]bool),
	}
}

// Seed adds an item with the given definition parts to the workspace and
// returns its id.
func (m *Inventory) Seed(name, artifactType string, parts ...types.Part) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := fmt.Sprintf("item-%d", m.nextID)
	m.Items = append(m.Items, types.RemoteItem{ID: id, Name: name, Type: artifactType})
	m.Definitions[id] = fabric.NewItemDefinition(parts)
	return id
}

// Calls returns the recorded call labels in order.
func (m *Inventory) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallsOf returns the recorded labels with the given prefix.
func (m *Inventory) CallsOf(prefix string) []string {
	var out []string
	for _, c := range m.Calls() {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			out = append(out, c)
		}
	}
	return out
}

func (m *Inventory) record(label string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, label)
	return m.Errs[label]
}

func (m *Inventory) deferred(label string) types.RemoteResult {
	opID := "op:" + label
	return types.DeferredResult(&types.OperationHandle{ID: opID, Status: types.OperationRunning})
}

// ListItems implements fabric.Inventory.
func (m *Inventory) ListItems(ctx context.Context) ([]types.RemoteItem, error) {
	if err := m.record("list"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.RemoteItem, len(m.Items))
	copy(out, m.Items)
	return out, nil
}

// GetDefinition implements fabric.Inventory.
func (m *Inventory) GetDefinition(ctx context.Context, itemID, formatHint string) (types.RemoteResult, error) {
	label := "getDefinition " + itemID
	if err := m.record(label); err != nil {
		return types.RemoteResult{}, err
	}
	if m.Defer[label] {
		m.mu.Lock()
		if _, ok := m.Results["op:"+label]; !ok {
			m.Results["op:"+label] = m.definitionPayload(itemID)
		}
		m.mu.Unlock()
		return m.deferred(label), nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return types.CompletedResult(m.definitionPayload(itemID)), nil
}

func (m *Inventory) definitionPayload(itemID string) []byte {
	def := m.Definitions[itemID]
	if def == nil {
		def = &fabric.ItemDefinition{}
	}
	body := struct {
		Definition *fabric.ItemDefinition `json:"definition"`
	}{Definition: def}
	raw, _ := json.Marshal(body)
	return raw
}

// CreateItem implements fabric.Inventory.
func (m *Inventory) CreateItem(ctx context.Context, id types.Identity, def *fabric.ItemDefinition) (types.RemoteResult, error) {
	label := "create " + id.String()
	if err := m.record(label); err != nil {
		return types.RemoteResult{}, err
	}
	if m.Defer[label] {
		return m.deferred(label), nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	itemID := fmt.Sprintf("item-%d", m.nextID)
	m.Items = append(m.Items, types.RemoteItem{ID: itemID, Name: id.Name, Type: id.Type})
	if def != nil {
		m.Definitions[itemID] = def
	}
	return types.CompletedResult([]byte(fmt.Sprintf(`{"id":%q}`, itemID))), nil
}

// UpdateDefinition implements fabric.Inventory.
func (m *Inventory) UpdateDefinition(ctx context.Context, itemID string, def *fabric.ItemDefinition) (types.RemoteResult, error) {
	label := "update " + itemID
	if err := m.record(label); err != nil {
		return types.RemoteResult{}, err
	}
	if m.Defer[label] {
		return m.deferred(label), nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Definitions[itemID] = def
	return types.CompletedResult(nil), nil
}

// DeleteItem implements fabric.Inventory.
func (m *Inventory) DeleteItem(ctx context.Context, itemID string) error {
	if err := m.record("delete " + itemID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, it := range m.Items {
		if it.ID == itemID {
			m.Items = append(m.Items[:i], m.Items[i+1:]...)
			break
		}
	}
	delete(m.Definitions, itemID)
	return nil
}

// PollOperation implements fabric.Inventory. Each call pops one status
// from the scripted sequence; an exhausted or missing sequence answers
// Succeeded.
func (m *Inventory) PollOperation(ctx context.Context, operationID string) (types.OperationStatus, *fabric.OperationError, error) {
	if err := m.record("poll " + operationID); err != nil {
		return "", nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	seq := m.Statuses[operationID]
	if len(seq) == 0 {
		return types.OperationSucceeded, nil, nil
	}
	status := seq[0]
	m.Statuses[operationID] = seq[1:]
	if status == types.OperationFailed || status == types.OperationCancelled {
		return status, m.OpErrors[operationID], nil
	}
	return status, nil, nil
}

// FetchOperationResult implements fabric.Inventory.
func (m *Inventory) FetchOperationResult(ctx context.Context, operationID string) ([]byte, error) {
	if err := m.record("result " + operationID); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Results[operationID], nil
}
