// Package interaction tracks the lifecycle of server-driven actions for
// the local viewing context: which persistent actions are currently in
// flight, who they involve, and how much of their duration remains.
package interaction

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lumen-academy/realtime-go/events"
	"github.com/lumen-academy/realtime-go/protocol"
)

// Session is the slice of the connection manager the tracker depends on:
// the acknowledged interaction operations and the event registry.
type Session interface {
	PerformInteraction(ctx context.Context, actionID string, targetID int64) error
	CancelInteraction(ctx context.Context, actionID string, targetID int64) error
	CurrentInteractions(ctx context.Context) ([]protocol.Action, error)
	On(topic events.Topic, fn events.Handler)
	Off(topic events.Topic, fn events.Handler)
}

// Tracker owns the in-memory active-action set. Entries are created on
// interaction-start notifications, history replay, or a reconciliation
// fetch, and removed on completion, cancellation, or fetch-confirmed
// absence. No other component mutates the set.
type Tracker struct {
	session Session
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.Mutex
	active map[string]protocol.Action // keyed by action ID

	onInteraction events.Handler
	onHistory     events.Handler
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) TrackerOption {
	return func(t *Tracker) { t.logger = l.With("component", "interaction") }
}

// WithClock overrides the time source. Tests use it to pin "now" for
// remaining-duration assertions.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a tracker and subscribes it to the interaction and
// history streams of the session. Call Detach to unsubscribe.
func NewTracker(s Session, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		session: s,
		logger:  slog.Default().With("component", "interaction"),
		now:     time.Now,
		active:  make(map[string]protocol.Action),
	}
	for _, opt := range opts {
		opt(t)
	}

	t.onInteraction = func(data any) { t.handleInteraction(data) }
	t.onHistory = func(data any) { t.handleHistory(data) }
	s.On(events.TopicInteraction, t.onInteraction)
	s.On(events.TopicChatHistory, t.onHistory)
	return t
}

// Detach unsubscribes the tracker from the session's event streams. The
// active set is left intact for inspection.
func (t *Tracker) Detach() {
	t.session.Off(events.TopicInteraction, t.onInteraction)
	t.session.Off(events.TopicChatHistory, t.onHistory)
}

// ActiveFor returns the tracked actions where userID is the initiator or
// the target.
func (t *Tracker) ActiveFor(userID int64) []protocol.Action {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []protocol.Action
	for _, a := range t.active {
		if a.Involves(userID) {
			out = append(out, a)
		}
	}
	return out
}

// Remaining returns how much of the tracked action's duration is left, and
// whether the action is tracked at all.
func (t *Tracker) Remaining(actionID string) (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, ok := t.active[actionID]
	if !ok {
		return 0, false
	}
	return a.Remaining(t.now()), true
}

// Start performs the action on the server and, for persistent actions,
// adds it to the active set once the server has acknowledged it. Instant
// actions are notified once and never retained.
func (t *Tracker) Start(ctx context.Context, a protocol.Action) error {
	var targetID int64
	if a.NeedsTarget {
		targetID = a.TargetID
	}
	if err := t.session.PerformInteraction(ctx, a.ID, targetID); err != nil {
		return err
	}
	if !a.Persistent {
		return nil
	}

	a.Status = protocol.StatusActive
	if a.StartTime == 0 {
		a.StartTime = t.now().UnixMilli()
	}
	t.mu.Lock()
	t.active[a.ID] = a
	t.mu.Unlock()
	return nil
}

// Complete removes the action from the active set. Called when the server
// notifies that the action's time window has elapsed.
func (t *Tracker) Complete(actionID string) {
	t.mu.Lock()
	delete(t.active, actionID)
	t.mu.Unlock()
}

// Cancel asks the server to cancel the action and removes it locally only
// once the server confirms. An unconfirmed removal could desynchronize
// from the server's authoritative state, so a failed request leaves the
// active set untouched.
func (t *Tracker) Cancel(ctx context.Context, actionID string, targetID int64) error {
	if err := t.session.CancelInteraction(ctx, actionID, targetID); err != nil {
		return err
	}
	t.mu.Lock()
	delete(t.active, actionID)
	t.mu.Unlock()
	return nil
}

// Reconcile replaces the local active set with the server's authoritative
// list. Replacing rather than merging keeps stale entries from surviving a
// missed notification indefinitely. Called when attaching to a context,
// e.g. opening a profile view.
func (t *Tracker) Reconcile(ctx context.Context) error {
	actions, err := t.session.CurrentInteractions(ctx)
	if err != nil {
		return err
	}
	fresh := make(map[string]protocol.Action, len(actions))
	for _, a := range actions {
		fresh[a.ID] = a
	}
	t.mu.Lock()
	t.active = fresh
	t.mu.Unlock()
	return nil
}

// handleInteraction applies a live interaction frame: an active persistent
// notification creates an entry, a completed one removes it, an instant
// one passes through untracked.
func (t *Tracker) handleInteraction(data any) {
	env, ok := data.(*protocol.Envelope)
	if !ok || env.Data == nil || env.Data.ActionID == "" {
		return
	}
	p := env.Data

	switch p.Status {
	case protocol.StatusActive:
		start := p.StartTime
		if start == 0 {
			start = env.Timestamp
		}
		t.mu.Lock()
		t.active[p.ActionID] = protocol.Action{
			ID:          p.ActionID,
			Message:     p.Message,
			Persistent:  true,
			Duration:    p.Duration,
			InitiatorID: p.InitiatorID,
			TargetID:    p.TargetID,
			StartTime:   start,
			Status:      protocol.StatusActive,
		}
		t.mu.Unlock()
	case protocol.StatusCompleted:
		t.Complete(p.ActionID)
	case protocol.StatusInstant:
		// One-shot notification; nothing to track.
	default:
		t.logger.Warn("interaction frame with unknown status", "status", p.Status, "action", p.ActionID)
	}
}

// handleHistory reconstructs in-flight actions from a history replay.
// Entries that still have duration left resume from their original start
// time; elapsed ones are skipped.
func (t *Tracker) handleHistory(data any) {
	env, ok := data.(*protocol.Envelope)
	if !ok || env.Data == nil {
		return
	}
	now := t.now()
	for _, entry := range env.Data.Messages {
		if entry.Type != protocol.KindInteraction || entry.Data == nil {
			continue
		}
		p := entry.Data
		if p.ActionID == "" || p.Status != protocol.StatusActive {
			continue
		}
		a := protocol.Action{
			ID:          p.ActionID,
			Message:     p.Message,
			Persistent:  true,
			Duration:    p.Duration,
			InitiatorID: p.InitiatorID,
			TargetID:    p.TargetID,
			StartTime:   p.StartTime,
			Status:      protocol.StatusActive,
		}
		if a.Remaining(now) <= 0 {
			continue
		}
		t.mu.Lock()
		t.active[a.ID] = a
		t.mu.Unlock()
	}
}
