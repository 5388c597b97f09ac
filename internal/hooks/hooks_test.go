package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/soyeahso/agentchat/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager() *Manager {
	return NewManager(logging.New(nil, "silent"))
}

func TestManager_On_And_Emit(t *testing.T) {
	m := testManager()

	var called bool
	m.On(EventTurnStarted, "test", func(_ context.Context, p Payload) error {
		called = true
		assert.Equal(t, EventTurnStarted, p.Event)
		return nil
	})

	m.Emit(context.Background(), EventTurnStarted, nil)
	assert.True(t, called)
}

func TestManager_Emit_MultipleHandlers(t *testing.T) {
	m := testManager()

	var order []string
	m.On(EventDraftUpdated, "first", func(_ context.Context, _ Payload) error {
		order = append(order, "first")
		return nil
	})
	m.On(EventDraftUpdated, "second", func(_ context.Context, _ Payload) error {
		order = append(order, "second")
		return nil
	})

	m.Emit(context.Background(), EventDraftUpdated, nil)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestManager_Emit_WithData(t *testing.T) {
	m := testManager()

	var gotData map[string]any
	m.On(EventDraftUpdated, "test", func(_ context.Context, p Payload) error {
		gotData = p.Data
		return nil
	})

	m.Emit(context.Background(), EventDraftUpdated, map[string]any{
		"id":      "m-1",
		"content": "Hello, wor",
	})

	assert.Equal(t, "m-1", gotData["id"])
	assert.Equal(t, "Hello, wor", gotData["content"])
}

func TestManager_Emit_HandlerError(t *testing.T) {
	m := testManager()

	var secondCalled bool
	m.On(EventTurnStarted, "failing", func(_ context.Context, _ Payload) error {
		return errors.New("handler broke")
	})
	m.On(EventTurnStarted, "second", func(_ context.Context, _ Payload) error {
		secondCalled = true
		return nil
	})

	// Should not panic; second handler should still run
	m.Emit(context.Background(), EventTurnStarted, nil)
	assert.True(t, secondCalled)
}

func TestManager_Emit_NoHandlers(t *testing.T) {
	m := testManager()
	// Should not panic
	m.Emit(context.Background(), EventSessionExit, nil)
}

func TestManager_Off(t *testing.T) {
	m := testManager()

	var callCount int
	m.On(EventTurnStarted, "removable", func(_ context.Context, _ Payload) error {
		callCount++
		return nil
	})

	m.Emit(context.Background(), EventTurnStarted, nil)
	assert.Equal(t, 1, callCount)

	m.Off(EventTurnStarted, "removable")
	m.Emit(context.Background(), EventTurnStarted, nil)
	assert.Equal(t, 1, callCount) // should not have been called again
}

func TestManager_Off_KeepsOthers(t *testing.T) {
	m := testManager()

	var keepCalled int
	m.On(EventTurnStarted, "remove-me", func(_ context.Context, _ Payload) error { return nil })
	m.On(EventTurnStarted, "keep-me", func(_ context.Context, _ Payload) error {
		keepCalled++
		return nil
	})

	m.Off(EventTurnStarted, "remove-me")
	m.Emit(context.Background(), EventTurnStarted, nil)
	assert.Equal(t, 1, keepCalled)
}

func TestManager_Count(t *testing.T) {
	m := testManager()

	assert.Equal(t, 0, m.Count(EventTurnStarted))

	m.On(EventTurnStarted, "h1", func(_ context.Context, _ Payload) error { return nil })
	assert.Equal(t, 1, m.Count(EventTurnStarted))

	m.On(EventTurnStarted, "h2", func(_ context.Context, _ Payload) error { return nil })
	assert.Equal(t, 2, m.Count(EventTurnStarted))
}

func TestAllEvents_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for _, e := range AllEvents {
		assert.False(t, seen[e], "duplicate event %s", e)
		seen[e] = true
	}
}

func TestAllEvents_NotEmpty(t *testing.T) {
	require.NotEmpty(t, AllEvents)
	assert.Contains(t, AllEvents, EventTurnStarted)
	assert.Contains(t, AllEvents, EventDraftUpdated)
}

func TestPayloadAccessors(t *testing.T) {
	p := Payload{Event: EventFeedbackRecorded, Data: map[string]any{
		"id":   "m-1",
		"like": true,
		"n":    3,
	}}
	assert.Equal(t, "m-1", p.String("id"))
	assert.True(t, p.Bool("like"))
	assert.Empty(t, p.String("n"))
	assert.False(t, p.Bool("missing"))
	assert.Empty(t, Payload{}.String("id"))
}
