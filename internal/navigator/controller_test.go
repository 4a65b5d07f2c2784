package navigator

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackmichael/tweet-rewind/internal/domain"
)

func rewind(yearsAgo ...int) []domain.BucketedPost {
	posts := make([]domain.BucketedPost, len(yearsAgo))
	for i, y := range yearsAgo {
		posts[i] = domain.BucketedPost{
			Body:      fmt.Sprintf("post %d", i),
			Permalink: fmt.Sprintf("https://twitter.com/alice/status/%d", i),
			YearsAgo:  y,
		}
	}
	return posts
}

func TestController_Start(t *testing.T) {
	m := newFakeMessenger()
	c := newTestController(m, Options{})

	key, err := c.Start(context.Background(), 7, rewind(1, 2, 2), 0)
	require.NoError(t, err)
	assert.Equal(t, SessionKey{ChatID: 7, MessageID: 101}, key)

	require.Len(t, m.sends, 1)
	assert.Equal(t, "1 year ago:\n\nhttps://twitter.com/alice/status/0", m.sends[0].Text)
	assert.Nil(t, m.sends[0].Keyboard)

	edit := m.lastEdit()
	assert.Equal(t, MessageRef{ChatID: 7, MessageID: 101}, edit.Ref)
	assert.Equal(t, []string{"1/3", "→"}, buttonLabels(edit.Keyboard))

	index, ok := c.Index(key)
	require.True(t, ok)
	assert.Zero(t, index)
}

func TestController_StartEmpty(t *testing.T) {
	m := newFakeMessenger()
	c := newTestController(m, Options{})

	_, err := c.Start(context.Background(), 7, nil, 0)
	require.ErrorIs(t, err, ErrEmptySequence)
	assert.Empty(t, m.sends)

	_, err = c.Start(context.Background(), 7, rewind(1), 1)
	require.Error(t, err)
}

func TestController_StartSendFailure(t *testing.T) {
	m := newFakeMessenger()
	m.failSendAfter = 0
	c := newTestController(m, Options{})

	_, err := c.Start(context.Background(), 7, rewind(1), 0)
	require.ErrorIs(t, err, domain.ErrTransportFailure)
}

func TestController_AdvanceBounds(t *testing.T) {
	m := newFakeMessenger()
	c := newTestController(m, Options{})
	ctx := context.Background()

	key, err := c.Start(ctx, 7, rewind(1, 2, 3), 0)
	require.NoError(t, err)
	editsAfterStart := len(m.edits)

	// previous at the first post does nothing
	require.NoError(t, c.Advance(ctx, key, -1))
	assert.Len(t, m.edits, editsAfterStart)

	require.NoError(t, c.Advance(ctx, key, +1))
	edit := m.lastEdit()
	assert.Equal(t, "2 years ago:\n\nhttps://twitter.com/alice/status/1", edit.Text)
	assert.Equal(t, []string{"←", "2/3", "→"}, buttonLabels(edit.Keyboard))

	require.NoError(t, c.Advance(ctx, key, +1))
	edit = m.lastEdit()
	assert.Equal(t, []string{"←", "3/3"}, buttonLabels(edit.Keyboard))

	// next at the last post does nothing
	editsAtEnd := len(m.edits)
	require.NoError(t, c.Advance(ctx, key, +1))
	assert.Len(t, m.edits, editsAtEnd)

	index, _ := c.Index(key)
	assert.Equal(t, 2, index)

	require.NoError(t, c.Advance(ctx, key, -1))
	index, _ = c.Index(key)
	assert.Equal(t, 1, index)
}

func TestController_HandleCallback(t *testing.T) {
	m := newFakeMessenger()
	c := newTestController(m, Options{})
	ctx := context.Background()

	key, err := c.Start(ctx, 7, rewind(1, 1, 4), 0)
	require.NoError(t, err)
	next := buttonData(m.lastEdit().Keyboard, "→")
	require.NotEmpty(t, next)

	require.NoError(t, c.HandleCallback(ctx, 7, next))
	index, _ := c.Index(key)
	assert.Equal(t, 1, index)

	// the same button rendered for index 0 is now stale
	edits := len(m.edits)
	require.NoError(t, c.HandleCallback(ctx, 7, next))
	assert.Len(t, m.edits, edits)
	index, _ = c.Index(key)
	assert.Equal(t, 1, index)

	prev := buttonData(m.lastEdit().Keyboard, "←")
	require.NoError(t, c.HandleCallback(ctx, 7, prev))
	index, _ = c.Index(key)
	assert.Zero(t, index)

	// unknown sessions are ignored
	unknown := Callback{Action: ActionNext, Key: SessionKey{ChatID: 7, MessageID: 1}}.Encode()
	require.NoError(t, c.HandleCallback(ctx, 7, unknown))

	require.Error(t, c.HandleCallback(ctx, 7, "something else"))
}

func TestController_Jump(t *testing.T) {
	m := newFakeMessenger()
	c := newTestController(m, Options{})
	ctx := context.Background()

	key, err := c.Start(ctx, 7, rewind(1, 2, 3), 0)
	require.NoError(t, err)

	jump := buttonData(m.lastEdit().Keyboard, "1/3")
	require.NoError(t, c.HandleCallback(ctx, 7, jump))
	prompt := m.sends[len(m.sends)-1]
	assert.Equal(t, JumpPrompt, prompt.Text)

	modal, ok := c.modals.Take(7)
	require.True(t, ok)
	assert.Equal(t, Modal{Kind: ModalJump, Session: key, Prompt: prompt.Ref}, modal)

	require.NoError(t, c.ResolveJump(ctx, modal, " 3 "))
	index, _ := c.Index(key)
	assert.Equal(t, 2, index)
	assert.Equal(t, "3 years ago:\n\nhttps://twitter.com/alice/status/2", m.lastEdit().Text)
	assert.Equal(t, []MessageRef{prompt.Ref}, m.deleted)
}

func TestController_ResolveJumpInvalidDeletesPrompt(t *testing.T) {
	m := newFakeMessenger()
	c := newTestController(m, Options{})
	ctx := context.Background()

	key, err := c.Start(ctx, 7, rewind(1, 2, 3), 0)
	require.NoError(t, err)
	require.NoError(t, c.RequestJump(ctx, key))
	modal, ok := c.modals.Take(7)
	require.True(t, ok)

	err = c.ResolveJump(ctx, modal, "nine")
	require.ErrorIs(t, err, domain.ErrInvalidIndexInput)
	assert.Equal(t, InvalidIndexMessage, m.sends[len(m.sends)-1].Text)
	assert.Equal(t, []MessageRef{modal.Prompt}, m.deleted)

	index, _ := c.Index(key)
	assert.Zero(t, index)
}

func TestController_CallbackFromOtherChatIgnored(t *testing.T) {
	m := newFakeMessenger()
	c := newTestController(m, Options{})
	ctx := context.Background()

	key, err := c.Start(ctx, 7, rewind(1, 2), 0)
	require.NoError(t, err)
	next := buttonData(m.lastEdit().Keyboard, "→")
	jump := buttonData(m.lastEdit().Keyboard, "1/2")
	edits, sends := len(m.edits), len(m.sends)

	require.NoError(t, c.HandleCallback(ctx, 8, next))
	require.NoError(t, c.HandleCallback(ctx, 8, jump))

	index, _ := c.Index(key)
	assert.Zero(t, index)
	assert.Len(t, m.edits, edits)
	assert.Len(t, m.sends, sends)
	_, ok := c.modals.Take(8)
	assert.False(t, ok)
}

func TestController_JumpInvalid(t *testing.T) {
	m := newFakeMessenger()
	c := newTestController(m, Options{})
	ctx := context.Background()

	key, err := c.Start(ctx, 7, rewind(1, 2, 3), 0)
	require.NoError(t, err)
	require.NoError(t, c.Advance(ctx, key, +1))
	edits := len(m.edits)

	for _, raw := range []string{"0", "abc", "4", "-1", "", "1.5"} {
		err := c.JumpTo(ctx, key, raw)
		require.ErrorIs(t, err, domain.ErrInvalidIndexInput, "input %q", raw)

		index, _ := c.Index(key)
		assert.Equal(t, 1, index)
		assert.Equal(t, InvalidIndexMessage, m.sends[len(m.sends)-1].Text)
	}
	assert.Len(t, m.edits, edits)
}

func TestController_TransportFailureKeepsIndex(t *testing.T) {
	m := newFakeMessenger()
	c := newTestController(m, Options{})
	ctx := context.Background()

	key, err := c.Start(ctx, 7, rewind(1, 2, 3), 0)
	require.NoError(t, err)

	m.failEdit = true
	err = c.Advance(ctx, key, +1)
	require.ErrorIs(t, err, domain.ErrTransportFailure)
	index, _ := c.Index(key)
	assert.Zero(t, index)

	m.failEdit = false
	require.NoError(t, c.Advance(ctx, key, +1))
	index, _ = c.Index(key)
	assert.Equal(t, 1, index)
}

func TestController_StartEditFailureKeepsSession(t *testing.T) {
	m := newFakeMessenger()
	m.failEdit = true
	c := newTestController(m, Options{})

	key, err := c.Start(context.Background(), 7, rewind(1, 2), 0)
	require.ErrorIs(t, err, domain.ErrTransportFailure)

	index, ok := c.Index(key)
	require.True(t, ok)
	assert.Zero(t, index)
}

func TestController_IndependentSessions(t *testing.T) {
	m := newFakeMessenger()
	c := newTestController(m, Options{})
	ctx := context.Background()

	keys := make([]SessionKey, 4)
	for i := range keys {
		key, err := c.Start(ctx, int64(i%2), rewind(1, 2, 3, 4, 5), 0)
		require.NoError(t, err)
		keys[i] = key
	}

	var wg sync.WaitGroup
	for i, key := range keys {
		wg.Add(1)
		go func(steps int, key SessionKey) {
			defer wg.Done()
			for j := 0; j < steps; j++ {
				assert.NoError(t, c.Advance(ctx, key, +1))
			}
		}(i+1, key)
	}
	wg.Wait()

	for i, key := range keys {
		index, ok := c.Index(key)
		require.True(t, ok)
		assert.Equal(t, i+1, index)
	}
}

func TestController_SupersedesOldestSessions(t *testing.T) {
	m := newFakeMessenger()
	c := newTestController(m, Options{MaxSessionsPerChat: 2})
	ctx := context.Background()

	first, err := c.Start(ctx, 7, rewind(1, 2), 0)
	require.NoError(t, err)
	second, err := c.Start(ctx, 7, rewind(1, 2), 0)
	require.NoError(t, err)
	third, err := c.Start(ctx, 7, rewind(1, 2), 0)
	require.NoError(t, err)
	other, err := c.Start(ctx, 8, rewind(1, 2), 0)
	require.NoError(t, err)

	_, ok := c.Index(first)
	assert.False(t, ok)
	for _, key := range []SessionKey{second, third, other} {
		_, ok := c.Index(key)
		assert.True(t, ok)
	}

	edits := len(m.edits)
	require.NoError(t, c.Advance(ctx, first, +1))
	assert.Len(t, m.edits, edits)
}

func TestController_Retire(t *testing.T) {
	m := newFakeMessenger()
	c := newTestController(m, Options{})
	ctx := context.Background()

	key, err := c.Start(ctx, 7, rewind(1, 2), 0)
	require.NoError(t, err)
	require.NoError(t, c.RequestJump(ctx, key))

	c.Retire(7)

	_, ok := c.Index(key)
	assert.False(t, ok)
	_, ok = c.modals.Take(7)
	assert.False(t, ok)

	// a late reply to the retired session is rejected without rendering
	edits := len(m.edits)
	err = c.JumpTo(ctx, key, "2")
	require.ErrorIs(t, err, domain.ErrInvalidIndexInput)
	assert.Equal(t, InvalidIndexMessage, m.sends[len(m.sends)-1].Text)
	assert.Len(t, m.edits, edits)
}

func TestController_JumpToSupersededSession(t *testing.T) {
	m := newFakeMessenger()
	c := newTestController(m, Options{MaxSessionsPerChat: 1})
	ctx := context.Background()

	first, err := c.Start(ctx, 7, rewind(1, 2), 0)
	require.NoError(t, err)
	_, err = c.Start(ctx, 7, rewind(1, 2), 0)
	require.NoError(t, err)

	err = c.JumpTo(ctx, first, "2")
	require.ErrorIs(t, err, domain.ErrInvalidIndexInput)
	assert.Equal(t, InvalidIndexMessage, m.sends[len(m.sends)-1].Text)
}
