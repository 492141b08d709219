package ws

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayushkr19/charades-backend/internal/session"
)

func TestOutboxTransport_DeliversToAttachedHandle(t *testing.T) {
	tr := NewOutboxTransport()
	out := tr.Attach("c1")

	require.NoError(t, tr.Send(context.Background(), "c1", []byte("hello")))
	select {
	case payload := <-out:
		assert.Equal(t, "hello", string(payload))
	default:
		t.Fatalf("expected queued payload")
	}
}

func TestOutboxTransport_UnknownHandleIsStale(t *testing.T) {
	tr := NewOutboxTransport()
	err := tr.Send(context.Background(), "ghost", []byte("x"))
	assert.ErrorIs(t, err, session.ErrStaleHandle)
}

func TestOutboxTransport_DetachedHandleIsStale(t *testing.T) {
	tr := NewOutboxTransport()
	out := tr.Attach("c1")
	tr.Detach("c1")

	_, open := <-out
	assert.False(t, open, "outbox must be closed on detach")
	assert.ErrorIs(t, tr.Send(context.Background(), "c1", []byte("x")), session.ErrStaleHandle)
}

func TestOutboxTransport_FullOutboxDropsHandle(t *testing.T) {
	tr := NewOutboxTransport()
	out := tr.Attach("c1")

	for i := 0; i < outboxSize; i++ {
		require.NoError(t, tr.Send(context.Background(), "c1", []byte("fill")))
	}
	// The consumer stopped draining: the next send reports the handle
	// stale and closes the outbox after the queued payloads.
	assert.ErrorIs(t, tr.Send(context.Background(), "c1", []byte("overflow")), session.ErrStaleHandle)

	drained := 0
	for range out {
		drained++
	}
	assert.Equal(t, outboxSize, drained)
}

func TestOutboxTransport_DetachTwiceIsSafe(t *testing.T) {
	tr := NewOutboxTransport()
	tr.Attach("c1")
	tr.Detach("c1")
	tr.Detach("c1")
}
