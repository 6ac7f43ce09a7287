package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/lumen-academy/realtime-go/protocol"
)

// APIError carries the server-provided failure message for an interaction
// request that was delivered but refused.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return "interaction request rejected"
	}
	return e.Message
}

// PerformInteraction asks the server to start an action, optionally against
// a target user (targetID 0 means none). Unlike chat sends this requires an
// acknowledged round trip, so it runs over HTTP and fails with
// ErrNotConnected when no live session exists, or with the server's message
// when the request is refused.
func (m *Manager) PerformInteraction(ctx context.Context, actionID string, targetID int64) error {
	if !m.Connected() {
		return ErrNotConnected
	}
	_, err := m.doJSON(ctx, http.MethodPost, "/interaction/perform", protocol.InteractionRequest{
		ActionID: actionID,
		TargetID: targetID,
	})
	return err
}

// CancelInteraction asks the server to cancel an in-flight action. Same
// contract as PerformInteraction.
func (m *Manager) CancelInteraction(ctx context.Context, actionID string, targetID int64) error {
	if !m.Connected() {
		return ErrNotConnected
	}
	_, err := m.doJSON(ctx, http.MethodPost, "/interaction/cancel", protocol.InteractionRequest{
		ActionID: actionID,
		TargetID: targetID,
	})
	return err
}

// CurrentInteractions fetches the server's authoritative list of in-flight
// actions involving the local user. Used for reconciliation, so it does not
// require an open transport.
func (m *Manager) CurrentInteractions(ctx context.Context) ([]protocol.Action, error) {
	data, err := m.doJSON(ctx, http.MethodGet, "/interaction/current", nil)
	if err != nil {
		return nil, err
	}
	var actions []protocol.Action
	if len(data) > 0 {
		if err := json.Unmarshal(data, &actions); err != nil {
			return nil, fmt.Errorf("decode current interactions: %w", err)
		}
	}
	return actions, nil
}

// Actions fetches the interaction catalog, grouped by category. The server
// returns either a flat array or an already-grouped object; flat responses
// are grouped client-side.
func (m *Manager) Actions(ctx context.Context) (map[string][]protocol.Action, error) {
	data, err := m.doJSON(ctx, http.MethodGet, "/interaction/actions", nil)
	if err != nil {
		return nil, err
	}

	var flat []protocol.Action
	if err := json.Unmarshal(data, &flat); err == nil {
		grouped := make(map[string][]protocol.Action)
		for _, a := range flat {
			grouped[a.Category] = append(grouped[a.Category], a)
		}
		return grouped, nil
	}

	var grouped map[string][]protocol.Action
	if err := json.Unmarshal(data, &grouped); err != nil {
		return nil, fmt.Errorf("decode action catalog: %w", err)
	}
	return grouped, nil
}

// doJSON sends a bearer-authenticated request to the interaction API and
// returns the response data. A delivered-but-refused request surfaces the
// server's message as an *APIError.
func (m *Manager) doJSON(ctx context.Context, method, path string, reqBody any) (json.RawMessage, error) {
	token := m.tokens.Token()
	if token == "" {
		return nil, ErrNoToken
	}

	var body io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, m.cfg.ServerURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}

	var result protocol.APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !result.Success {
		return nil, &APIError{Message: result.Message}
	}
	return result.Data, nil
}
