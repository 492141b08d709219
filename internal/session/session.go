package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ayushkr19/charades-backend/internal/envelope"
	"github.com/ayushkr19/charades-backend/internal/game"
	"github.com/ayushkr19/charades-backend/internal/store"
)

const opTimeout = 5 * time.Second

type Msg interface{ isSessionMsg() }

// Connect registers an attendee's transport handle. The reply carries
// the registry outcome: a failed registration fails the connect itself.
type Connect struct {
	AttendeeID   string
	ConnectionID string
	Reply        chan error
}

func (Connect) isSessionMsg() {}

type Disconnect struct {
	AttendeeID string
	Reply      chan error
}

func (Disconnect) isSessionMsg() {}

// FromClient is one inbound envelope from an authenticated sender.
type FromClient struct {
	Sender string
	Env    envelope.Envelope
}

func (FromClient) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

// GetState reflects internal state without data races; test-only.
type GetState struct {
	Reply chan View
}

func (GetState) isSessionMsg() {}

// roundExpired is the server-side fallback for an admin that never
// sends end_round. Stale fires from earlier rounds carry an old
// generation and are dropped.
type roundExpired struct{ generation int }

func (roundExpired) isSessionMsg() {}

type View struct {
	GameID    string
	AdminID   string
	Round     int
	Completed bool
	TurnOrder []string
}

// Config tunes per-session behavior.
type Config struct {
	// Prompts is the immutable pool movies are drawn from.
	Prompts []string
	// RoundDuration is the client countdown length. Zero disables the
	// server fallback timer entirely.
	RoundDuration time.Duration
	// FallbackGrace is added to RoundDuration before the server ends a
	// round on the admin's behalf.
	FallbackGrace time.Duration
}

// Session is the message router for one meeting. A single goroutine
// drains the inbox, so events within a meeting are serialized while
// different meetings proceed independently.
type Session struct {
	meetingID string
	inbox     chan Msg

	registry  Registry
	games     Games
	names     Names
	transport Transport
	cfg       Config
	rng       *rand.Rand
	log       *zap.Logger

	active   *activeGame
	timerGen int
	timer    *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
}

// activeGame is the in-memory projection of the persisted game row
// plus the per-attendee movie assignment.
type activeGame struct {
	rec    store.GameRecord
	movies map[string]string
}

func (g *activeGame) actor() string {
	return g.rec.TurnOrder[g.rec.RoundNumber-1]
}

func (g *activeGame) activeMovie() string {
	return g.movies[g.actor()]
}

func New(parent context.Context, meetingID string, registry Registry, games Games, names Names, transport Transport, cfg Config, rng *rand.Rand, log *zap.Logger) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		meetingID: meetingID,
		inbox:     make(chan Msg, 64),
		registry:  registry,
		games:     games,
		names:     names,
		transport: transport,
		cfg:       cfg,
		rng:       rng,
		log:       log.Named("session").With(zap.String("meeting_id", meetingID)),
		ctx:       ctx,
		cancel:    cancel,
	}
	go s.loop()
	return s
}

func (s *Session) Inbox() chan<- Msg { return s.inbox }

func (s *Session) loop() {
	s.restore()
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Connect:
				msg.Reply <- s.withTimeout(func(ctx context.Context) error {
					return s.registry.Register(ctx, s.meetingID, msg.AttendeeID, msg.ConnectionID)
				})

			case Disconnect:
				msg.Reply <- s.withTimeout(func(ctx context.Context) error {
					return s.registry.Unregister(ctx, s.meetingID, msg.AttendeeID)
				})

			case FromClient:
				s.dispatch(msg.Sender, msg.Env)

			case roundExpired:
				if msg.generation != s.timerGen {
					break // a newer round superseded this timer
				}
				if s.active == nil || s.active.rec.Completed {
					break
				}
				s.log.Info("round fallback timer fired", zap.Int("round", s.active.rec.RoundNumber))
				s.endRound()

			case GetState:
				msg.Reply <- s.view()

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) shutdown() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.cancel()
}

// restore picks up a game that survived a process restart, so the
// session does not accept a second start_game for it.
func (s *Session) restore() {
	ctx, cancel := context.WithTimeout(s.ctx, opTimeout)
	defer cancel()

	rec, err := s.games.GetGameByMeeting(ctx, s.meetingID)
	if errors.Is(err, store.ErrGameNotFound) {
		return
	}
	if err != nil {
		s.log.Warn("could not restore game", zap.Error(err))
		return
	}
	rows, err := s.games.Snapshot(ctx, rec.ID)
	if err != nil {
		s.log.Warn("could not restore game participants", zap.Error(err))
		return
	}
	movies := make(map[string]string, len(rows))
	for _, row := range rows {
		movies[row.AttendeeID] = row.Movie
	}
	s.active = &activeGame{rec: rec, movies: movies}
	s.log.Info("restored game", zap.String("game_id", rec.ID), zap.Int("round", rec.RoundNumber))
	if !rec.Completed {
		s.armFallback()
	}
}

func (s *Session) dispatch(sender string, env envelope.Envelope) {
	switch env.Type {
	case envelope.KindChat:
		s.handleChat(sender, env)
	case envelope.KindGame:
		switch env.Payload.EventType {
		case envelope.EvtStartGame:
			s.handleStartGame(sender, env)
		case envelope.EvtEndRound:
			s.handleEndRound(sender, env.Payload.RoundNumber)
		}
	}
}

// handleStartGame builds and persists a new game, then broadcasts
// round 1. A meeting with an existing game ignores the request.
func (s *Session) handleStartGame(sender string, env envelope.Envelope) {
	if s.active != nil {
		s.log.Debug("duplicate start_game ignored", zap.String("sender", sender))
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, opTimeout)
	defer cancel()

	handles, err := s.registry.ListHandles(ctx, s.meetingID)
	if err != nil {
		s.log.Error("start_game: list handles", zap.Error(err))
		return
	}
	ids := make([]string, 0, len(handles))
	for _, h := range handles {
		ids = append(ids, h.AttendeeID)
	}

	turnOrder := game.BuildTurnOrder(ids)
	shuffled := game.ShufflePrompts(s.rng, s.cfg.Prompts)
	movies, err := game.AssignPrompts(turnOrder, shuffled)
	if err != nil {
		s.log.Warn("start_game rejected", zap.Error(err), zap.Int("players", len(turnOrder)))
		s.replyToSender(sender, handles, fmt.Sprintf("Could not start the game: %v", err))
		return
	}

	gameID := env.Payload.GameUID
	if gameID == "" {
		gameID = uuid.NewString()
	}
	rec := store.GameRecord{
		ID:          gameID,
		MeetingID:   s.meetingID,
		AdminID:     sender,
		TurnOrder:   turnOrder,
		RoundNumber: 1,
	}
	if err := s.games.CreateGame(ctx, rec, movies); err != nil {
		if errors.Is(err, store.ErrGameExists) {
			s.log.Debug("lost start_game race, ignoring", zap.String("sender", sender))
			return
		}
		s.log.Error("start_game: create game", zap.Error(err))
		return
	}

	s.active = &activeGame{rec: rec, movies: movies}
	s.log.Info("game started",
		zap.String("game_id", gameID),
		zap.String("admin_id", sender),
		zap.Int("players", len(turnOrder)))
	s.broadcastRound()
}

// handleChat scores a matching guess from a non-actor and rewrites it
// as a successful_guess event; anything else passes through untouched.
func (s *Session) handleChat(sender string, env envelope.Envelope) {
	if s.active != nil && !s.active.rec.Completed &&
		sender != s.active.actor() &&
		game.ScoreGuess(env.Payload.Message, s.active.activeMovie()) {

		err := s.withTimeout(func(ctx context.Context) error {
			return s.games.IncrementScore(ctx, s.active.rec.ID, sender, game.GuessReward)
		})
		if err != nil {
			// Best effort: the guess is not scored and stays ordinary
			// chat; a guesser hit by a store failure can retry.
			if errors.Is(err, store.ErrNoSuchParticipant) {
				s.log.Debug("matching guess from outside the game stays chat",
					zap.String("attendee_id", sender))
			} else {
				s.log.Error("increment score", zap.Error(err), zap.String("attendee_id", sender))
			}
			s.broadcast(env)
			return
		}
		s.log.Info("successful guess",
			zap.String("game_id", s.active.rec.ID),
			zap.String("attendee_id", sender),
			zap.Int("round", s.active.rec.RoundNumber))
		s.broadcast(envelope.SuccessfulGuess(s.active.rec.ID, s.active.rec.RoundNumber, sender, env.Payload.Message))
		return
	}
	s.broadcast(env)
}

// handleEndRound honors end_round only from the game's frozen admin,
// and only for the round that is actually active. The admin's local
// timer and the server fallback are two clocks for the same round; a
// duplicate or late end_round carries the old round number and must
// not end the round that replaced it.
func (s *Session) handleEndRound(sender string, round int) {
	if s.active == nil || s.active.rec.Completed {
		return
	}
	if sender != s.active.rec.AdminID {
		s.log.Warn("unauthorized end_round ignored",
			zap.String("sender", sender),
			zap.String("admin_id", s.active.rec.AdminID))
		return
	}
	if round != s.active.rec.RoundNumber {
		s.log.Debug("stale end_round ignored",
			zap.Int("claimed_round", round),
			zap.Int("current_round", s.active.rec.RoundNumber))
		return
	}
	s.endRound()
}

// endRound broadcasts the leaderboard and either the next round or the
// end of the game.
func (s *Session) endRound() {
	// The leaderboard goes out at every accepted round end; only a
	// failed snapshot read leaves it empty and skipped.
	g := s.active
	board := s.leaderboard(g.rec.ID)
	if board != "" {
		s.broadcast(envelope.Chat(g.rec.AdminID, board))
	}

	next, done := game.AdvanceRound(g.rec.RoundNumber, g.rec.TurnOrder, g.movies)
	if done {
		if err := s.withTimeout(func(ctx context.Context) error {
			return s.games.MarkComplete(ctx, g.rec.ID)
		}); err != nil {
			s.log.Error("mark complete", zap.Error(err))
			return
		}
		g.rec.Completed = true
		s.timerGen++ // disarm any pending fallback
		s.log.Info("game complete", zap.String("game_id", g.rec.ID))
		s.broadcast(envelope.EndGame(g.rec.ID, g.rec.RoundNumber))
		return
	}

	if err := s.withTimeout(func(ctx context.Context) error {
		return s.games.SetRound(ctx, g.rec.ID, next.Number)
	}); err != nil {
		s.log.Error("set round", zap.Error(err))
		return
	}
	g.rec.RoundNumber = next.Number
	s.broadcastRound()
}

// broadcastRound announces the current round to every live handle and
// arms the fallback timer.
func (s *Session) broadcastRound() {
	g := s.active
	env := envelope.StartRound(
		g.rec.ID,
		g.rec.RoundNumber,
		g.actor(),
		g.activeMovie(),
		g.rec.AdminID,
		s.resolveNames(g.rec.TurnOrder),
	)
	s.log.Info("round started",
		zap.String("game_id", g.rec.ID),
		zap.Int("round", g.rec.RoundNumber),
		zap.String("actor", g.actor()))
	s.broadcast(env)
	s.armFallback()
}

// broadcast fans an envelope out to every live handle. Each delivery
// is attempted independently; a stale handle is pruned from the
// registry without aborting the siblings. The broadcast as a whole
// succeeds once every handle has been attempted.
func (s *Session) broadcast(env envelope.Envelope) {
	ctx, cancel := context.WithTimeout(s.ctx, opTimeout)
	defer cancel()

	handles, err := s.registry.ListHandles(ctx, s.meetingID)
	if err != nil {
		s.log.Error("broadcast: list handles", zap.Error(err))
		return
	}
	payload, err := env.Encode()
	if err != nil {
		s.log.Error("broadcast: encode", zap.Error(err))
		return
	}

	var grp errgroup.Group
	for _, h := range handles {
		h := h
		grp.Go(func() error {
			err := s.transport.Send(ctx, h.ConnectionID, payload)
			switch {
			case err == nil:
			case errors.Is(err, ErrStaleHandle):
				s.log.Info("pruning stale connection",
					zap.String("attendee_id", h.AttendeeID),
					zap.String("connection_id", h.ConnectionID))
				if perr := s.registry.Prune(ctx, s.meetingID, h.AttendeeID, h.ConnectionID); perr != nil {
					s.log.Warn("prune failed", zap.Error(perr))
				}
			default:
				s.log.Warn("delivery failed, skipping",
					zap.String("connection_id", h.ConnectionID),
					zap.Error(err))
			}
			return nil
		})
	}
	_ = grp.Wait()
}

// replyToSender delivers an error notice to the requesting attendee
// only, e.g. a start failure when the pool is exhausted.
func (s *Session) replyToSender(sender string, handles []store.Handle, text string) {
	payload, err := envelope.Chat(sender, text).Encode()
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(s.ctx, opTimeout)
	defer cancel()
	for _, h := range handles {
		if h.AttendeeID == sender {
			if err := s.transport.Send(ctx, h.ConnectionID, payload); err != nil {
				s.log.Warn("could not notify initiator", zap.Error(err))
			}
			return
		}
	}
}

// leaderboard formats the score table, highest first. Attendees whose
// name cannot be resolved are omitted.
func (s *Session) leaderboard(gameID string) string {
	var rows []store.GameParticipant
	err := s.withTimeout(func(ctx context.Context) error {
		var serr error
		rows, serr = s.games.Snapshot(ctx, gameID)
		return serr
	})
	if err != nil {
		s.log.Error("leaderboard snapshot", zap.Error(err))
		return ""
	}
	snapshot := make([]game.Participation, 0, len(rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		snapshot = append(snapshot, game.Participation{
			AttendeeID: row.AttendeeID,
			Movie:      row.Movie,
			Points:     row.Points,
		})
		ids = append(ids, row.AttendeeID)
	}
	board := game.ComputeLeaderboard(snapshot, s.resolveNames(ids))
	if len(board) == 0 {
		return "Scores: no correct guesses yet"
	}

	names := make([]string, 0, len(board))
	for name := range board {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if board[names[i]] != board[names[j]] {
			return board[names[i]] > board[names[j]]
		}
		return names[i] < names[j]
	})
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %d", name, board[name]))
	}
	return "Scores: " + strings.Join(parts, ", ")
}

// resolveNames builds the attendeeIdToName map, skipping misses.
func (s *Session) resolveNames(ids []string) map[string]string {
	ctx, cancel := context.WithTimeout(s.ctx, opTimeout)
	defer cancel()

	names := make(map[string]string, len(ids))
	for _, id := range ids {
		name, err := s.names.ResolveName(ctx, s.meetingID, id)
		if err != nil {
			s.log.Warn("resolve name", zap.String("attendee_id", id), zap.Error(err))
			continue
		}
		if name != "" {
			names[id] = name
		}
	}
	return names
}

// armFallback schedules a server-side end_round in case the admin
// never sends one. Each round bumps the generation so earlier timers
// become stale.
func (s *Session) armFallback() {
	s.timerGen++
	if s.cfg.RoundDuration <= 0 {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	gen := s.timerGen
	s.timer = time.AfterFunc(s.cfg.RoundDuration+s.cfg.FallbackGrace, func() {
		select {
		case s.inbox <- roundExpired{generation: gen}:
		case <-s.ctx.Done():
		}
	})
}

func (s *Session) withTimeout(fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(s.ctx, opTimeout)
	defer cancel()
	return fn(ctx)
}

func (s *Session) view() View {
	if s.active == nil {
		return View{}
	}
	order := make([]string, len(s.active.rec.TurnOrder))
	copy(order, s.active.rec.TurnOrder)
	return View{
		GameID:    s.active.rec.ID,
		AdminID:   s.active.rec.AdminID,
		Round:     s.active.rec.RoundNumber,
		Completed: s.active.rec.Completed,
		TurnOrder: order,
	}
}
