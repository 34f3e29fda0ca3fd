package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestBus_DispatchInRegistrationOrder(t *testing.T) {
	b := New(zap.NewNop())
	var order []int
	b.On("turnChanged", func(any) { order = append(order, 1) })
	b.On("turnChanged", func(any) { order = append(order, 2) })
	b.On("turnChanged", func(any) { order = append(order, 3) })

	b.Emit("turnChanged", nil)
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestBus_PanickingSubscriberIsIsolated(t *testing.T) {
	b := New(zap.NewNop())
	var order []int
	b.On("gameEnded", func(any) { order = append(order, 1) })
	b.On("gameEnded", func(any) { panic("broken handler") })
	b.On("gameEnded", func(any) { order = append(order, 3) })

	assert.NotPanics(t, func() { b.Emit("gameEnded", nil) })
	assert.Equal(t, []int{1, 3}, order)
}

func TestBus_OffIsIdempotent(t *testing.T) {
	b := New(zap.NewNop())
	calls := 0
	sub := b.On("chatMessage", func(any) { calls++ })

	b.Off(sub)
	b.Off(sub) // second removal is a no-op
	b.Off(nil)

	b.Emit("chatMessage", nil)
	assert.Zero(t, calls)
}

func TestBus_DuplicateRegistrationsAreIndependent(t *testing.T) {
	b := New(zap.NewNop())
	calls := 0
	fn := func(any) { calls++ }
	first := b.On("cardPlayed", fn)
	b.On("cardPlayed", fn)

	b.Emit("cardPlayed", nil)
	assert.Equal(t, 2, calls)

	b.Off(first)
	b.Emit("cardPlayed", nil)
	assert.Equal(t, 3, calls)
}

func TestBus_EmitPassesPayloadThrough(t *testing.T) {
	b := New(zap.NewNop())
	var got any
	b.On("playerLeft", func(data any) { got = data })

	payload := struct{ PlayerID string }{"p-9"}
	b.Emit("playerLeft", payload)
	assert.Equal(t, payload, got)
}

func TestBus_ClearDropsAllSubscriptions(t *testing.T) {
	b := New(zap.NewNop())
	calls := 0
	b.On("gameFound", func(any) { calls++ })
	b.On("gameStateUpdate", func(any) { calls++ })

	b.Clear()
	b.Emit("gameFound", nil)
	b.Emit("gameStateUpdate", nil)
	assert.Zero(t, calls)
}
