package ws

import (
	"context"
	"sync"

	"github.com/ayushkr19/charades-backend/internal/session"
)

const outboxSize = 16

// OutboxTransport implements session.Transport over per-connection
// outbox channels. A handle that is gone, or whose consumer has
// stopped draining, reports ErrStaleHandle so the session prunes it.
type OutboxTransport struct {
	mu       sync.Mutex
	outboxes map[string]chan []byte
}

func NewOutboxTransport() *OutboxTransport {
	return &OutboxTransport{outboxes: make(map[string]chan []byte)}
}

// Attach creates the outbox for a new connection handle. The returned
// channel is closed when the handle is detached or dropped.
func (t *OutboxTransport) Attach(connectionID string) <-chan []byte {
	ch := make(chan []byte, outboxSize)
	t.mu.Lock()
	t.outboxes[connectionID] = ch
	t.mu.Unlock()
	return ch
}

// Detach removes a handle and closes its outbox. Safe to call twice.
func (t *OutboxTransport) Detach(connectionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.detachLocked(connectionID)
}

func (t *OutboxTransport) detachLocked(connectionID string) {
	if ch, ok := t.outboxes[connectionID]; ok {
		delete(t.outboxes, connectionID)
		close(ch)
	}
}

// Send queues a payload for one handle. A full outbox means the client
// stopped reading; the handle is dropped on the spot and reported
// stale, mirroring the registry prune the caller will perform.
// The enqueue happens under the mutex so a concurrent Detach cannot
// close the outbox mid-send.
func (t *OutboxTransport) Send(ctx context.Context, connectionID string, payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch, ok := t.outboxes[connectionID]
	if !ok {
		return session.ErrStaleHandle
	}
	select {
	case ch <- payload:
		return nil
	default:
		t.detachLocked(connectionID)
		return session.ErrStaleHandle
	}
}
