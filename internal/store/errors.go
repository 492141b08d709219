package store

import "errors"

var ErrRegistryUnavailable = errors.New("connection registry unavailable")
var ErrStoreUnavailable = errors.New("game store unavailable")
var ErrGameExists = errors.New("a game already exists for this meeting")
var ErrGameNotFound = errors.New("no game for this meeting")
var ErrNoSuchParticipant = errors.New("attendee has no row in this game")
