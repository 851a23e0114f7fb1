// Package transport holds reference implementations of the external
// collaborators the core schema/request/stream engine depends on but never
// talks to directly (spec.md §1, §6): an HTTP POST transport for the
// JSON-RPC envelope, and a websocket driver for the subscription stream.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	icon "icon-go/core"
)

// envelope is the outbound JSON-RPC body (spec.md §6.1).
type envelope struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      int64          `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params,omitempty"`
}

// response is the inbound JSON-RPC body, success or error (spec.md §6.1).
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// HTTPTransport implements icon.Transport as a synchronous net/http POST.
// Plain net/http is deliberate here: a single-shot JSON POST with no
// connection pooling requirements beyond the default client has no
// third-party collaborator in the pack that improves on it (see
// DESIGN.md).
type HTTPTransport struct {
	Client *http.Client
}

// NewHTTPTransport builds an HTTPTransport with a sane default timeout.
func NewHTTPTransport() *HTTPTransport {
	return &HTTPTransport{Client: &http.Client{Timeout: 30 * time.Second}}
}

// Send implements icon.Transport: POST the request envelope, setting the
// Icon-Options header when the request carries an AndWait timeout
// (spec.md §6.1), and unwrap the JSON-RPC envelope.
func (t *HTTPTransport) Send(ctx context.Context, req *icon.Request) (json.RawMessage, *icon.Error) {
	body, err := json.Marshal(envelope{
		JSONRPC: "2.0",
		ID:      req.ID,
		Method:  req.Method,
		Params:  req.Params,
	})
	if err != nil {
		return nil, icon.NewSystemError(fmt.Sprintf("marshal request: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.Options.URL, bytes.NewReader(body))
	if err != nil {
		return nil, icon.NewSystemError(fmt.Sprintf("build request: %v", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.Options.Timeout > 0 {
		httpReq.Header.Set("Icon-Options", strconv.Itoa(req.Options.Timeout))
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, icon.NewSystemError(fmt.Sprintf("send request: %v", err))
	}
	defer httpResp.Body.Close()

	var resp response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, icon.NewSystemError(fmt.Sprintf("decode response: %v", err))
	}

	if resp.Error != nil {
		return nil, &icon.Error{
			Code:    resp.Error.Code,
			Message: resp.Error.Message,
			Data:    resp.Error.Data,
			Domain:  icon.DomainRequest,
		}
	}
	return resp.Result, nil
}
