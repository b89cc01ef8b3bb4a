package cancel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_RegisterAndDone(t *testing.T) {
	m := NewManager()

	ctx, done := m.Register(t.Context(), 123, 456, "ask")
	require.NotNil(t, ctx)
	assert.True(t, m.IsActive(123, 456))

	info := m.GetActiveRequest(123, 456)
	require.NotNil(t, info)
	assert.Equal(t, ActiveRequestInfo{ChatID: 123, MessageID: 456, Command: "ask"}, *info)

	done()
	assert.False(t, m.IsActive(123, 456))
	assert.Nil(t, m.GetActiveRequest(123, 456))
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestManager_Cancel(t *testing.T) {
	m := NewManager()

	ctx, done := m.Register(t.Context(), 1, 2, "imagine")
	defer done()

	assert.True(t, m.Cancel(1, 2))
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.False(t, m.Cancel(1, 3))
}

func TestManager_CancelChat(t *testing.T) {
	m := NewManager()

	first, done1 := m.Register(t.Context(), 1, 10, "ask")
	defer done1()
	second, done2 := m.Register(t.Context(), 1, 11, "yt")
	defer done2()
	other, done3 := m.Register(t.Context(), 2, 10, "ask")
	defer done3()

	assert.Equal(t, 2, m.CancelChat(1))
	assert.Error(t, first.Err())
	assert.Error(t, second.Err())
	assert.NoError(t, other.Err())
	assert.Zero(t, m.CancelChat(3))
}

func TestManager_ParentCancel(t *testing.T) {
	m := NewManager()
	parent, cancel := context.WithCancel(t.Context())

	ctx, done := m.Register(parent, 1, 1, "ask")
	defer done()

	cancel()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestManager_ReRegisterKeepsNewest(t *testing.T) {
	m := NewManager()

	_, doneOld := m.Register(t.Context(), 1, 1, "ask")
	newCtx, doneNew := m.Register(t.Context(), 1, 1, "ask")
	defer doneNew()

	doneOld()
	assert.True(t, m.IsActive(1, 1), "finishing the old request keeps the newer one")
	assert.NoError(t, newCtx.Err())
}
