// Package events is a minimal synchronous publish/subscribe registry used
// to fan inbound frames and connection state changes out to subscribers.
package events

import (
	"reflect"
	"sync"
)

// Topic names an event stream. The set is closed: frame topics mirror the
// protocol kinds one-to-one, plus the local connection-state topics below.
type Topic string

const (
	// Local connection state
	TopicConnected          Topic = "connected"
	TopicDisconnect         Topic = "disconnect"
	TopicError              Topic = "error"
	TopicAuthFailed         Topic = "auth_failed"
	TopicRequestOnlineUsers Topic = "request_online_users"

	// Generic content stream: chat, chat_history, system and interaction
	// frames are republished here in addition to their own topics.
	TopicMessage Topic = "message"

	// Per-kind frame topics
	TopicHeartbeat      Topic = "heartbeat"
	TopicUserOnline     Topic = "user_online"
	TopicUserOffline    Topic = "user_offline"
	TopicUserListUpdate Topic = "user_list_update"
	TopicChat           Topic = "chat"
	TopicChatHistory    Topic = "chat_history"
	TopicSystem         Topic = "system"
	TopicInteraction    Topic = "interaction"
)

// Handler receives the event payload. For frame topics the payload is the
// *protocol.Envelope; for connection-state topics it is the error that
// triggered the transition, or nil.
type Handler func(data any)

// Dispatcher registers handlers per topic and invokes them synchronously on
// Emit. Listener identity follows the handler's function value: registering
// the same value twice is a no-op, and Off removes exactly that value.
// Closures that capture state are distinct even when built from the same
// literal, so keep the registered value around to unsubscribe; a fresh
// closure will not match it.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[Topic]map[uintptr]Handler
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[Topic]map[uintptr]Handler)}
}

func key(fn Handler) uintptr {
	return reflect.ValueOf(fn).Pointer()
}

// On registers fn for topic. Duplicate registration of the same function is
// a no-op; distinct functions on the same topic are additive.
func (d *Dispatcher) On(topic Topic, fn Handler) {
	if fn == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	set, ok := d.handlers[topic]
	if !ok {
		set = make(map[uintptr]Handler)
		d.handlers[topic] = set
	}
	set[key(fn)] = fn
}

// Off removes fn from topic. Removing an absent handler is a no-op. The
// topic entry is dropped when its last handler is removed, so the registry
// footprint stays proportional to active subscriptions.
func (d *Dispatcher) Off(topic Topic, fn Handler) {
	if fn == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	set, ok := d.handlers[topic]
	if !ok {
		return
	}
	delete(set, key(fn))
	if len(set) == 0 {
		delete(d.handlers, topic)
	}
}

// Emit invokes every handler currently registered for topic. Invocation is
// synchronous and in no guaranteed order. A panicking handler aborts the
// remaining dispatch for this emit; handlers are expected to be defensive.
func (d *Dispatcher) Emit(topic Topic, data any) {
	d.mu.RLock()
	set := d.handlers[topic]
	fns := make([]Handler, 0, len(set))
	for _, fn := range set {
		fns = append(fns, fn)
	}
	d.mu.RUnlock()

	for _, fn := range fns {
		fn(data)
	}
}

// RemoveAll clears every registration. Used on full teardown.
func (d *Dispatcher) RemoveAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = make(map[Topic]map[uintptr]Handler)
}

func (d *Dispatcher) listenerCount(topic Topic) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[topic])
}

func (d *Dispatcher) topicCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers)
}
