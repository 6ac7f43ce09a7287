package protocol

import (
	"encoding/json"
	"time"
)

// Action is an interaction between two users as the server reports it, both
// in catalog listings (/interaction/actions) and in the in-flight list
// (/interaction/current). ID identifies the action kind, not the instance.
type Action struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Category    string `json:"category,omitempty"`
	Message     string `json:"message,omitempty"`
	EndMessage  string `json:"endMessage,omitempty"`
	NeedsTarget bool   `json:"needsTarget,omitempty"`
	Persistent  bool   `json:"persistent"`
	Duration    int64  `json:"duration,omitempty"` // milliseconds, persistent actions only
	InitiatorID int64  `json:"initiatorId,omitempty"`
	TargetID    int64  `json:"targetId,omitempty"`
	StartTime   int64  `json:"startTime,omitempty"` // unix milliseconds, set by the server
	Status      Status `json:"status,omitempty"`
}

// Involves reports whether userID is the initiator or the target.
func (a Action) Involves(userID int64) bool {
	return a.InitiatorID == userID || a.TargetID == userID
}

// Remaining returns how much of the action's duration is left at now,
// clamped at zero. An action created before this client attached (page
// reload, reconnect) resumes from its original start time rather than
// restarting the full duration.
func (a Action) Remaining(now time.Time) time.Duration {
	if !a.Persistent || a.Duration <= 0 || a.StartTime <= 0 {
		return 0
	}
	rem := a.Duration - (now.UnixMilli() - a.StartTime)
	if rem < 0 {
		rem = 0
	}
	return time.Duration(rem) * time.Millisecond
}

// InteractionRequest is the body of POST /interaction/perform and
// /interaction/cancel.
type InteractionRequest struct {
	ActionID string `json:"actionId"`
	TargetID int64  `json:"targetId,omitempty"`
}

// APIResponse is the common shape of interaction HTTP responses. Data is
// endpoint-specific and decoded by the caller.
type APIResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}
