package events

import "testing"

func TestOnOffEmit(t *testing.T) {
	d := NewDispatcher()

	calls := 0
	fn := func(any) { calls++ }

	d.On(TopicChat, fn)
	d.Off(TopicChat, fn)
	d.Emit(TopicChat, nil)
	if calls != 0 {
		t.Errorf("calls after on/off = %d, want 0", calls)
	}
}

func TestDuplicateRegistration(t *testing.T) {
	d := NewDispatcher()

	calls := 0
	fn := func(any) { calls++ }

	d.On(TopicChat, fn)
	d.On(TopicChat, fn)
	d.Emit(TopicChat, nil)
	if calls != 1 {
		t.Errorf("calls after duplicate on = %d, want 1", calls)
	}
}

func TestDistinctListenersAdditive(t *testing.T) {
	d := NewDispatcher()

	var a, b int
	first := func(any) { a++ }
	second := func(any) { b++ }

	d.On(TopicMessage, first)
	d.On(TopicMessage, second)
	d.Emit(TopicMessage, nil)
	if a != 1 || b != 1 {
		t.Errorf("a=%d b=%d, want 1 1", a, b)
	}

	d.Off(TopicMessage, first)
	d.Emit(TopicMessage, nil)
	if a != 1 || b != 2 {
		t.Errorf("after off: a=%d b=%d, want 1 2", a, b)
	}
}

func TestCapturingClosuresAreDistinct(t *testing.T) {
	d := NewDispatcher()

	counters := make([]int, 2)
	registered := make([]Handler, 2)
	for i := range counters {
		i := i
		registered[i] = func(any) { counters[i]++ }
		d.On(TopicChat, registered[i])
	}

	d.Emit(TopicChat, nil)
	if counters[0] != 1 || counters[1] != 1 {
		t.Fatalf("counters = %v, want both 1", counters)
	}

	// A fresh closure from the same literal is not the registered value.
	d.Off(TopicChat, func(any) { counters[0]++ })
	d.Emit(TopicChat, nil)
	if counters[0] != 2 || counters[1] != 2 {
		t.Errorf("counters after off with fresh closure = %v, want both 2", counters)
	}

	// The retained value is.
	d.Off(TopicChat, registered[0])
	d.Emit(TopicChat, nil)
	if counters[0] != 2 || counters[1] != 3 {
		t.Errorf("counters after off with retained value = %v, want 2 3", counters)
	}
}

func TestEmitPayload(t *testing.T) {
	d := NewDispatcher()

	var got any
	d.On(TopicError, func(data any) { got = data })
	d.Emit(TopicError, "boom")
	if got != "boom" {
		t.Errorf("payload = %v, want boom", got)
	}
}

func TestOffAbsentListenerNoop(t *testing.T) {
	d := NewDispatcher()
	d.Off(TopicChat, func(any) {})
	d.Emit(TopicChat, nil) // no listeners, no panic
}

func TestEmptyTopicDropped(t *testing.T) {
	d := NewDispatcher()

	fn := func(any) {}
	d.On(TopicChat, fn)
	if d.topicCount() != 1 {
		t.Fatalf("topicCount = %d, want 1", d.topicCount())
	}
	d.Off(TopicChat, fn)
	if d.topicCount() != 0 {
		t.Errorf("topicCount after last off = %d, want 0", d.topicCount())
	}
}

func TestRemoveAll(t *testing.T) {
	d := NewDispatcher()

	calls := 0
	d.On(TopicChat, func(any) { calls++ })
	d.On(TopicDisconnect, func(any) { calls++ })
	if d.listenerCount(TopicChat) != 1 {
		t.Fatalf("listenerCount = %d, want 1", d.listenerCount(TopicChat))
	}

	d.RemoveAll()
	d.Emit(TopicChat, nil)
	d.Emit(TopicDisconnect, nil)
	if calls != 0 {
		t.Errorf("calls after RemoveAll = %d, want 0", calls)
	}
	if d.topicCount() != 0 {
		t.Errorf("topicCount after RemoveAll = %d, want 0", d.topicCount())
	}
}
