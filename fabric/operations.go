package fabric

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/fabricflow/config"
	"github.com/BaSui01/fabricflow/types"
)

// errorCodeNothingToDeploy is the remote signal that source and target
// are already equivalent. The executor downgrades it to an informational
// success.
const errorCodeNothingToDeploy = "NothingToDeploy"

// operationState is the status-poll response body.
type operationState struct {
	Status types.OperationStatus `json:"status"`
	Error  *OperationError       `json:"error"`
}

// PollOperation implements Inventory.
func (c *Client) PollOperation(ctx context.Context, operationID string) (types.OperationStatus, *OperationError, error) {
	u := fmt.Sprintf("%s/operations/%s", c.cfg.BaseURL, url.PathEscape(operationID))
	resp, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return "", nil, apiError(resp).WithOperation(operationID)
	}
	var state operationState
	err = json.NewDecoder(resp.Body).Decode(&state)
	resp.Body.Close()
	if err != nil {
		return "", nil, types.NewError(types.ErrTransport, "decoding operation status failed").
			WithOperation(operationID).
			WithCause(err)
	}
	return normalizeStatus(state.Status), state.Error, nil
}

// FetchOperationResult implements Inventory. A succeeded operation with
// no result body yields an empty payload.
func (c *Client) FetchOperationResult(ctx context.Context, operationID string) ([]byte, error) {
	u := fmt.Sprintf("%s/operations/%s/result", c.cfg.BaseURL, url.PathEscape(operationID))
	resp, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
		return io.ReadAll(resp.Body)
	case http.StatusNoContent, http.StatusNotFound:
		// success with no result body
		return nil, nil
	default:
		return nil, apiError(resp).WithOperation(operationID)
	}
}

// statuses arrive in mixed casing depending on the service frontend
func normalizeStatus(s types.OperationStatus) types.OperationStatus {
	switch strings.ToLower(string(s)) {
	case "succeeded":
		return types.OperationSucceeded
	case "failed":
		return types.OperationFailed
	case "cancelled", "canceled":
		return types.OperationCancelled
	case "notstarted":
		return types.OperationNotStarted
	default:
		return types.OperationRunning
	}
}

// Await resolves a RemoteResult to its payload. Inline results return
// immediately. Deferred results are polled at poll.Interval up to
// poll.MaxAttempts:
//
//   - Succeeded: the operation result payload is fetched and returned.
//   - Failed/Cancelled: OPERATION_FAILED carrying the remote message, or
//     NOOP_PROMOTION when the remote signals there was nothing to deploy.
//   - Budget exhausted: OPERATION_TIMEOUT, never an indefinite wait.
//
// The context cancels the wait early with RUN_CANCELLED; a caller may
// impose a wall-clock deadline shorter than the attempt budget.
func Await(ctx context.Context, inv Inventory, result types.RemoteResult, poll config.PollConfig, logger *zap.Logger) ([]byte, error) {
	if result.Completed() {
		return result.Payload(), nil
	}
	handle := result.Handle()
	if handle == nil {
		return nil, types.NewError(types.ErrTransport, "remote result carries neither payload nor handle")
	}

	for attempt := 1; attempt <= poll.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, types.NewError(types.ErrRunCancelled, "wait cancelled").
				WithOperation(handle.ID).
				WithCause(ctx.Err())
		case <-time.After(poll.Interval):
		}

		status, opErr, err := inv.PollOperation(ctx, handle.ID)
		if err != nil {
			return nil, err
		}
		handle.Polls++
		handle.Status = status
		logger.Debug("operation polled",
			zap.String("operation_id", handle.ID),
			zap.String("status", string(status)),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", poll.MaxAttempts),
		)

		switch status {
		case types.OperationSucceeded:
			payload, err := inv.FetchOperationResult(ctx, handle.ID)
			if err != nil {
				return nil, err
			}
			handle.Result = payload
			return payload, nil

		case types.OperationFailed, types.OperationCancelled:
			msg := fmt.Sprintf("operation %s", strings.ToLower(string(status)))
			code := ""
			if opErr != nil {
				if opErr.Message != "" {
					msg = opErr.Message
				}
				code = opErr.Code
			}
			handle.FailureMessage = msg
			if code == errorCodeNothingToDeploy {
				return nil, types.NewError(types.ErrNoopPromotion, msg).WithOperation(handle.ID)
			}
			return nil, types.NewError(types.ErrOperationFailed, msg).WithOperation(handle.ID)
		}
	}

	return nil, types.NewError(types.ErrOperationTimeout,
		fmt.Sprintf("operation did not reach a terminal status within %d polls", poll.MaxAttempts)).
		WithOperation(handle.ID)
}
