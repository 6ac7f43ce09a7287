// Package protocol defines the wire vocabulary exchanged with the Academy
// realtime server: the JSON envelope carried over the WebSocket, the closed
// set of message kinds, and the shapes used by the interaction HTTP API.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind discriminates the envelope payload. The set is closed: the server
// never emits a type outside this list, and unknown values are dropped by
// the receiver.
type Kind string

const (
	// Connection lifecycle
	KindConnect    Kind = "connect"
	KindDisconnect Kind = "disconnect"
	KindHeartbeat  Kind = "heartbeat"
	KindError      Kind = "error"

	// Presence
	KindUserOnline     Kind = "user_online"
	KindUserOffline    Kind = "user_offline"
	KindUserListUpdate Kind = "user_list_update"

	// Content
	KindChat        Kind = "chat"
	KindChatHistory Kind = "chat_history"
	KindSystem      Kind = "system"
	KindInteraction Kind = "interaction"
)

// Valid reports whether k is part of the protocol.
func (k Kind) Valid() bool {
	switch k {
	case KindConnect, KindDisconnect, KindHeartbeat, KindError,
		KindUserOnline, KindUserOffline, KindUserListUpdate,
		KindChat, KindChatHistory, KindSystem, KindInteraction:
		return true
	}
	return false
}

// Content reports whether k carries user-visible content. Content kinds are
// additionally re-published on the generic "message" topic.
func (k Kind) Content() bool {
	switch k {
	case KindChat, KindChatHistory, KindSystem, KindInteraction:
		return true
	}
	return false
}

// CloseAuthFailure is the WebSocket close code the server uses to reject a
// session credential. It is terminal: the client clears its token and does
// not reconnect.
const CloseAuthFailure = 4001

// Status is the lifecycle state of an interaction.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusInstant   Status = "instant"
)

// Envelope is the frame exchanged over the transport. Type determines the
// payload shape; Sequence is assigned by the sender and increases
// monotonically per session.
type Envelope struct {
	Type      Kind     `json:"type"`
	Timestamp int64    `json:"timestamp"`
	Sequence  uint64   `json:"sequence,omitempty"`
	MessageID string   `json:"messageId,omitempty"`
	Data      *Payload `json:"data,omitempty"`
}

// Payload is the kind-dependent body of an envelope. One struct covers the
// whole closed set; unused fields stay zero and are omitted on the wire.
type Payload struct {
	Type          string          `json:"type,omitempty"` // "chat", "system", "interaction", "roomUpdate", "heartbeat"
	Message       string          `json:"message,omitempty"`
	InitiatorID   int64           `json:"initiatorId,omitempty"`
	InitiatorName string          `json:"initiatorName,omitempty"`
	TargetID      int64           `json:"targetId,omitempty"`
	TargetName    string          `json:"targetName,omitempty"`
	ActionID      string          `json:"actionId,omitempty"`
	Status        Status          `json:"status,omitempty"`
	Duration      int64           `json:"duration,omitempty"`  // milliseconds
	StartTime     int64           `json:"startTime,omitempty"` // unix milliseconds
	Users         []User          `json:"users,omitempty"`
	OnlineCount   int             `json:"online_count,omitempty"`
	Code          string          `json:"code,omitempty"`
	Details       json.RawMessage `json:"details,omitempty"`

	// Messages is set on chat_history envelopes: the recorded envelopes in
	// their original order, each with its original timestamp (and, for
	// interaction entries, the original startTime).
	Messages []Envelope `json:"messages,omitempty"`
}

// User is a presence roster entry.
type User struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	Status     string `json:"status,omitempty"` // "online", "offline", "away"
	LastActive int64  `json:"lastActive,omitempty"`
}

// Decode parses a raw frame into an envelope. A frame that is not valid
// JSON or has no recognizable type is rejected; the caller logs and drops
// it without affecting subsequent frames.
func Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("decode envelope: missing type")
	}
	return &env, nil
}

// NewChat builds an outbound chat envelope. The text travels as
// data.message, the same key inbound chat frames use.
func NewChat(content string, seq uint64) *Envelope {
	return &Envelope{
		Type:      KindChat,
		Timestamp: time.Now().UnixMilli(),
		Sequence:  seq,
		MessageID: uuid.NewString(),
		Data: &Payload{
			Type:    "chat",
			Message: content,
		},
	}
}

// NewHeartbeat builds the periodic liveness envelope. It carries nothing
// beyond kind and timestamp.
func NewHeartbeat() *Envelope {
	return &Envelope{
		Type:      KindHeartbeat,
		Timestamp: time.Now().UnixMilli(),
	}
}
