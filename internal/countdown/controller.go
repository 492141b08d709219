// Package countdown implements the client-side round controller: a
// local countdown every participant runs on receiving start_round.
// Only the game admin's controller emits end_round at expiry; everyone
// else's is purely a display timer. The router accepts end_round from
// the admin alone, so independently expiring local timers cannot
// double-advance a round.
package countdown

import (
	"context"
	"sync"
	"time"

	"github.com/ayushkr19/charades-backend/internal/envelope"
)

// DefaultTicks is the round length in ticks; one tick per second in
// production.
const DefaultTicks = 20

// Controller runs one local round countdown per participant. It is
// safe for concurrent use; a new start_round restarts it and end_game
// resets it to idle. Stop must be called on disconnect so a dangling
// timer cannot fire against a stale game.
type Controller struct {
	attendeeID string
	tick       time.Duration
	ticks      int
	emit       func(envelope.Envelope)

	mu        sync.Mutex
	remaining int
	round     envelope.Payload
	cancel    context.CancelFunc
}

// New builds a controller for the local attendee. emit is called with
// the end_round envelope when this participant is the admin and the
// countdown expires.
func New(attendeeID string, emit func(envelope.Envelope)) *Controller {
	return &Controller{
		attendeeID: attendeeID,
		tick:       time.Second,
		ticks:      DefaultTicks,
		emit:       emit,
	}
}

// NewWithTick is New with a custom tick length, for tests.
func NewWithTick(attendeeID string, emit func(envelope.Envelope), tick time.Duration, ticks int) *Controller {
	c := New(attendeeID, emit)
	c.tick = tick
	c.ticks = ticks
	return c
}

// HandleMessage feeds the controller the envelopes the client
// receives. start_round restarts the countdown; end_game resets to the
// pre-round placeholder.
func (c *Controller) HandleMessage(env envelope.Envelope) {
	if env.Type != envelope.KindGame {
		return
	}
	switch env.Payload.EventType {
	case envelope.EvtStartRound:
		c.start(env.Payload)
	case envelope.EvtEndGame:
		c.Stop()
	}
}

// Remaining reports the ticks left for display; 0 when idle.
func (c *Controller) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Stop cancels any outstanding countdown.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Controller) stopLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.remaining = 0
	c.round = envelope.Payload{}
}

func (c *Controller) start(round envelope.Payload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.remaining = c.ticks
	c.round = round
	go c.run(ctx)
}

func (c *Controller) run(ctx context.Context) {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.step() {
				return
			}
		}
	}
}

// step decrements the counter and reports whether the countdown is
// over. At expiry the admin's controller emits end_round once.
func (c *Controller) step() bool {
	c.mu.Lock()
	if c.remaining > 1 {
		c.remaining--
		c.mu.Unlock()
		return false
	}
	round := c.round
	c.stopLocked()
	c.mu.Unlock()

	if c.attendeeID == round.AdminID {
		c.emit(envelope.Envelope{
			Type: envelope.KindGame,
			Payload: envelope.Payload{
				EventType:        envelope.EvtEndRound,
				Message:          "Round over",
				GameUID:          round.GameUID,
				RoundNumber:      round.RoundNumber,
				AttendeeID:       c.attendeeID,
				AttendeeIDToName: round.AttendeeIDToName,
			},
		})
	}
	return true
}
