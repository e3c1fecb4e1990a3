package fabric

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/fabricflow/config"
	"github.com/BaSui01/fabricflow/types"
)

// TokenProvider supplies the bearer token for each request. Token
// acquisition (service principal flow, refresh) is an external
// collaborator; its failures surface verbatim as AUTH_ERROR and are never
// retried here.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenProvider returning a fixed token. Useful for
// tests and for callers that manage refresh themselves.
type StaticToken string

// Token implements TokenProvider.
func (s StaticToken) Token(ctx context.Context) (string, error) { return string(s), nil }

// Inventory is the remote surface the planner and executor consume. An
// implementation is bound to one workspace; every item route is scoped
// under it. *Client implements Inventory; testutil provides a recording
// mock.
type Inventory interface {
	// ListItems returns the full workspace inventory, following
	// pagination to exhaustion. A mid-pagination failure aborts the
	// whole listing.
	ListItems(ctx context.Context) ([]types.RemoteItem, error)
	// GetDefinition fetches an item's definition parts, inline or
	// deferred.
	GetDefinition(ctx context.Context, itemID, formatHint string) (types.RemoteResult, error)
	// CreateItem creates an item; definition may be nil for
	// metadata-only types.
	CreateItem(ctx context.Context, id types.Identity, def *ItemDefinition) (types.RemoteResult, error)
	// UpdateDefinition overwrites an item's definition.
	UpdateDefinition(ctx context.Context, itemID string, def *ItemDefinition) (types.RemoteResult, error)
	// DeleteItem deletes an item; deleting an already-absent item
	// succeeds.
	DeleteItem(ctx context.Context, itemID string) error
	// PollOperation reports a deferred operation's status and, when
	// failed, the remote error.
	PollOperation(ctx context.Context, operationID string) (types.OperationStatus, *OperationError, error)
	// FetchOperationResult returns a succeeded operation's result
	// payload.
	FetchOperationResult(ctx context.Context, operationID string) ([]byte, error)
}

// OperationError is the error block of a failed remote operation.
type OperationError struct {
	Code    string `json:"errorCode"`
	Message string `json:"message"`
}

// Client is the HTTP implementation of Inventory, bound to one
// workspace.
type Client struct {
	cfg         config.RemoteConfig
	workspaceID string
	tokens      TokenProvider
	client      *http.Client
	logger      *zap.Logger
}

// NewClient creates a workspace API client.
func NewClient(cfg config.RemoteConfig, workspaceID string, tokens TokenProvider, logger *zap.Logger) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:         cfg,
		workspaceID: workspaceID,
		tokens:      tokens,
		client:      &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(
			zap.String("component", "fabric_client"),
			zap.String("workspace_id", workspaceID),
		),
	}
}

// itemsURL returns the workspace-scoped item collection route, with
// optional item id and action segments appended.
func (c *Client) itemsURL(segments ...string) string {
	u := fmt.Sprintf("%s/workspaces/%s/items", c.cfg.BaseURL, url.PathEscape(c.workspaceID))
	for _, s := range segments {
		u += "/" + url.PathEscape(s)
	}
	return u
}

// do issues one authenticated request and returns the response. Transport
// failures and token failures come back as typed errors; status handling
// is the caller's.
func (c *Client) do(ctx context.Context, method, endpoint string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, types.NewError(types.ErrTransport, "encoding request body failed").WithCause(err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, types.NewError(types.ErrTransport, "building request failed").WithCause(err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, types.NewError(types.ErrAuth, "token acquisition failed").WithCause(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, types.NewError(types.ErrTransport, fmt.Sprintf("%s %s failed", method, endpoint)).WithCause(err)
	}
	return resp, nil
}

// apiError decodes the error body of a non-success response.
func apiError(resp *http.Response) *types.Error {
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var body OperationError
	_ = json.Unmarshal(raw, &body)
	msg := body.Message
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	if msg == "" {
		msg = resp.Status
	}
	return types.NewError(types.ErrTransport, msg).WithHTTPStatus(resp.StatusCode)
}

// resolve turns a response into a RemoteResult: 200/201 complete inline,
// 202 defers with the operation id from the x-ms-operation-id header or
// the last Location segment.
func (c *Client) resolve(resp *http.Response) (types.RemoteResult, error) {
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		payload, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return types.RemoteResult{}, types.NewError(types.ErrTransport, "reading response body failed").WithCause(err)
		}
		return types.CompletedResult(payload), nil

	case http.StatusAccepted:
		resp.Body.Close()
		operationID := resp.Header.Get("x-ms-operation-id")
		if operationID == "" {
			location := strings.TrimRight(resp.Header.Get("Location"), "/")
			if i := strings.LastIndex(location, "/"); i >= 0 {
				operationID = location[i+1:]
			}
		}
		if operationID == "" {
			return types.RemoteResult{}, types.NewError(types.ErrTransport,
				"202 accepted but no operation id in response headers").WithHTTPStatus(resp.StatusCode)
		}
		c.logger.Debug("remote call deferred", zap.String("operation_id", operationID))
		return types.DeferredResult(&types.OperationHandle{
			ID:     operationID,
			Status: types.OperationRunning,
		}), nil

	default:
		return types.RemoteResult{}, apiError(resp)
	}
}
