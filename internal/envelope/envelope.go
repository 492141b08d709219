package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrUnknownType = errors.New("unknown envelope type")
var ErrUnknownEvent = errors.New("unknown game event type")
var ErrMissingField = errors.New("missing required field")
var ErrServerOnlyEvent = errors.New("event type is server-generated")

// Kind is the outer envelope discriminator. The chat kind keeps its
// hyphenated wire spelling for compatibility with existing clients.
type Kind string

const (
	KindGame Kind = "game_message"
	KindChat Kind = "chat-message"
)

type EventType string

const (
	EvtStartGame       EventType = "start_game"
	EvtStartRound      EventType = "start_round"
	EvtEndRound        EventType = "end_round"
	EvtEndGame         EventType = "end_game"
	EvtSuccessfulGuess EventType = "successful_guess"
)

// Envelope is the wire shape exchanged over the push channel in both
// directions.
type Envelope struct {
	Type    Kind    `json:"type"`
	Payload Payload `json:"payload"`
}

type Payload struct {
	EventType        EventType         `json:"eventType,omitempty"`
	Message          string            `json:"message"`
	GameUID          string            `json:"gameUid,omitempty"`
	RoundNumber      int               `json:"roundNumber,omitempty"`
	Actor            string            `json:"actor,omitempty"`
	Movie            string            `json:"movie,omitempty"`
	AdminID          string            `json:"adminId,omitempty"`
	AttendeeID       string            `json:"attendeeId,omitempty"`
	AttendeeIDToName map[string]string `json:"attendeeIdToName,omitempty"`
}

// Decode parses raw bytes into an Envelope and validates it as an
// inbound client message. Server-generated event types are rejected
// here so the router never has to consider them.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if err := env.ValidateInbound(); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// ValidateInbound enforces the tagged-union field requirements per
// event type for client-sent envelopes.
func (e Envelope) ValidateInbound() error {
	switch e.Type {
	case KindChat:
		if e.Payload.AttendeeID == "" {
			return fmt.Errorf("%w: attendeeId on chat-message", ErrMissingField)
		}
		return nil
	case KindGame:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, e.Type)
	}

	switch e.Payload.EventType {
	case EvtStartGame:
		if e.Payload.AttendeeID == "" {
			return fmt.Errorf("%w: attendeeId on start_game", ErrMissingField)
		}
		return nil
	case EvtEndRound:
		if e.Payload.AttendeeID == "" {
			return fmt.Errorf("%w: attendeeId on end_round", ErrMissingField)
		}
		if e.Payload.RoundNumber <= 0 {
			return fmt.Errorf("%w: roundNumber on end_round", ErrMissingField)
		}
		return nil
	case EvtStartRound, EvtEndGame, EvtSuccessfulGuess:
		return fmt.Errorf("%w: %q", ErrServerOnlyEvent, e.Payload.EventType)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, e.Payload.EventType)
	}
}

// StartRound composes the round announcement broadcast at the start of
// every round, including round 1 immediately after game creation.
func StartRound(gameUID string, round int, actor, movie, adminID string, names map[string]string) Envelope {
	return Envelope{
		Type: KindGame,
		Payload: Payload{
			EventType:        EvtStartRound,
			Message:          "Let the game begin",
			GameUID:          gameUID,
			RoundNumber:      round,
			Actor:            actor,
			Movie:            movie,
			AdminID:          adminID,
			AttendeeIDToName: names,
		},
	}
}

// SuccessfulGuess rewrites a matching chat message as a game event so
// every client can celebrate the guesser.
func SuccessfulGuess(gameUID string, round int, guesser, message string) Envelope {
	return Envelope{
		Type: KindGame,
		Payload: Payload{
			EventType:   EvtSuccessfulGuess,
			Message:     message,
			GameUID:     gameUID,
			RoundNumber: round,
			AttendeeID:  guesser,
		},
	}
}

// EndGame signals that the final round has been scored.
func EndGame(gameUID string, round int) Envelope {
	return Envelope{
		Type: KindGame,
		Payload: Payload{
			EventType:   EvtEndGame,
			Message:     "Game over",
			GameUID:     gameUID,
			RoundNumber: round,
		},
	}
}

// Chat wraps plain text as a chat-kind envelope. The leaderboard is
// broadcast this way between rounds.
func Chat(attendeeID, message string) Envelope {
	return Envelope{
		Type: KindChat,
		Payload: Payload{
			Message:    message,
			AttendeeID: attendeeID,
		},
	}
}
