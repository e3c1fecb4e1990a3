package types

// OperationStatus is the reported state of a deferred remote operation.
type OperationStatus string

const (
	// OperationRunning means the operation has not reached a terminal
	// status yet.
	OperationRunning OperationStatus = "Running"
	// OperationNotStarted is reported before the service schedules the
	// operation; treated like Running.
	OperationNotStarted OperationStatus = "NotStarted"
	// OperationSucceeded is terminal success.
	OperationSucceeded OperationStatus = "Succeeded"
	// OperationFailed is terminal failure.
	OperationFailed OperationStatus = "Failed"
	// OperationCancelled is terminal cancellation; handled like Failed.
	OperationCancelled OperationStatus = "Cancelled"
)

// Terminal reports whether the status can no longer change. Handles only
// move forward: once terminal, a handle is consumed and discarded.
func (s OperationStatus) Terminal() bool {
	return s == OperationSucceeded || s == OperationFailed || s == OperationCancelled
}

// OperationHandle tracks one deferred ("202 Accepted") remote operation
// from receipt to its terminal status.
type OperationHandle struct {
	// ID is the remote operation id from the x-ms-operation-id or
	// Location response header.
	ID string
	// Status is the last observed status.
	Status OperationStatus
	// Polls counts status requests issued so far.
	Polls int
	// Result holds the fetched result payload once Status is
	// OperationSucceeded.
	Result []byte
	// FailureMessage holds the remote error message once Status is
	// OperationFailed or OperationCancelled.
	FailureMessage string
}

// RemoteResult is the outcome of a remote call that may complete inline or
// defer: exactly one of Payload-bearing completion or Handle is set.
// Callers resolve it through the client's Await so the deferred branch can
// never be ignored.
type RemoteResult struct {
	completed bool
	payload   []byte
	handle    *OperationHandle
}

// CompletedResult wraps an inline (200/201) response payload.
func CompletedResult(payload []byte) RemoteResult {
	return RemoteResult{completed: true, payload: payload}
}

// DeferredResult wraps an accepted (202) response handle.
func DeferredResult(h *OperationHandle) RemoteResult {
	return RemoteResult{handle: h}
}

// Completed reports whether the call finished inline.
func (r RemoteResult) Completed() bool { return r.completed }

// Payload returns the inline response body; valid only when Completed.
func (r RemoteResult) Payload() []byte { return r.payload }

// Handle returns the deferred operation handle; nil when Completed.
func (r RemoteResult) Handle() *OperationHandle { return r.handle }
