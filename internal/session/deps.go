package session

import (
	"context"
	"errors"

	"github.com/ayushkr19/charades-backend/internal/store"
)

// ErrStaleHandle is returned by a Transport when the handle no longer
// exists; the session responds by pruning the registry row.
var ErrStaleHandle = errors.New("stale connection handle")

// Registry is the durable connection registry consumed by a session.
type Registry interface {
	Register(ctx context.Context, meetingID, attendeeID, connectionID string) error
	Unregister(ctx context.Context, meetingID, attendeeID string) error
	Prune(ctx context.Context, meetingID, attendeeID, connectionID string) error
	ListHandles(ctx context.Context, meetingID string) ([]store.Handle, error)
}

// Games is the durable game state store consumed by a session.
type Games interface {
	CreateGame(ctx context.Context, rec store.GameRecord, movies map[string]string) error
	GetGameByMeeting(ctx context.Context, meetingID string) (store.GameRecord, error)
	SetRound(ctx context.Context, gameID string, round int) error
	MarkComplete(ctx context.Context, gameID string) error
	IncrementScore(ctx context.Context, gameID, attendeeID string, delta int) error
	Snapshot(ctx context.Context, gameID string) ([]store.GameParticipant, error)
}

// Names resolves attendee ids to display names, best effort.
type Names interface {
	ResolveName(ctx context.Context, meetingID, attendeeID string) (string, error)
}

// Transport delivers an encoded envelope to one connection handle,
// fire and forget.
type Transport interface {
	Send(ctx context.Context, connectionID string, payload []byte) error
}
