package navigator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallback_Encode(t *testing.T) {
	cb := Callback{Action: ActionPrevious, Key: SessionKey{ChatID: -1001234567890, MessageID: 2147483647}, Index: 9999}
	data := cb.Encode()
	assert.LessOrEqual(t, len(data), 64)

	got, err := DecodeCallback(data)
	require.NoError(t, err)
	assert.Equal(t, cb, got)
}

func TestCallback_RoundTripAllActions(t *testing.T) {
	for _, action := range []Action{ActionNext, ActionPrevious, ActionJump} {
		cb := Callback{Action: action, Key: SessionKey{ChatID: 7, MessageID: 101}, Index: 2}
		data := cb.Encode()
		assert.Equal(t, "rw:"+string(action)+":7:101:2", data)

		got, err := DecodeCallback(data)
		require.NoError(t, err, "action %s", action)
		assert.Equal(t, cb, got)
	}
}

func TestDecodeCallback_Rejects(t *testing.T) {
	for _, data := range []string{
		"",
		"rw:n:1:2",
		"xx:n:1:2:3",
		"rw:x:1:2:3",
		"rw:n:chat:2:3",
		"rw:n:1:msg:3",
		"rw:n:1:2:-1",
		"rw:n:1:2:3:4",
	} {
		_, err := DecodeCallback(data)
		assert.Error(t, err, "data %q", data)
	}
}

func TestModals_LastWriteWins(t *testing.T) {
	m := NewModals()
	_, ok := m.Take(1)
	assert.False(t, ok)

	m.Arm(1, Modal{Kind: ModalJump, Session: SessionKey{ChatID: 1, MessageID: 5}})
	m.Arm(1, Modal{Kind: ModalRegister})
	m.Arm(2, Modal{Kind: ModalJump})

	modal, ok := m.Take(1)
	require.True(t, ok)
	assert.Equal(t, ModalRegister, modal.Kind)

	_, ok = m.Take(1)
	assert.False(t, ok)

	m.Clear(2)
	_, ok = m.Take(2)
	assert.False(t, ok)
}
