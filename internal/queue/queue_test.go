package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueue(t *testing.T) {
	ctx := context.Background()
	q := NewMemory(2)

	first, err := NewEvent(EventContact, "a@example.com", map[string]string{"name": "Ada"})
	require.NoError(t, err)
	second, err := NewEvent(EventNewsletter, "b@example.com", map[string]string{"email": "b@example.com"})
	require.NoError(t, err)

	require.NoError(t, q.Publish(ctx, first))
	require.NoError(t, q.Publish(ctx, second))
	assert.ErrorIs(t, q.Publish(ctx, first), ErrFull)

	events, err := q.Poll(ctx, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventContact, events[0].Type)
	assert.JSONEq(t, `{"name":"Ada"}`, string(events[0].Payload))

	events, err = q.Poll(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventNewsletter, events[0].Type)

	events, err = q.Poll(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)

	require.NoError(t, q.Close())
	require.NoError(t, q.Close())
}
