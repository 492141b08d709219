package game

import (
	"errors"
	"math/rand"
	"sort"
	"strings"
)

var ErrPoolExhausted = errors.New("more players than available prompts")
var ErrNoParticipants = errors.New("no connected participants")

// GuessReward is the score awarded for every accepted matching guess.
const GuessReward = 10

// Participation is one scored row of a game, the orchestrator's view of
// a persisted game-participant record.
type Participation struct {
	AttendeeID string
	Movie      string
	Points     int
}

// NextRound describes the outcome of advancing past a finished round.
type NextRound struct {
	Number int
	Actor  string
	Movie  string
}

// ShufflePrompts returns a uniform permutation of pool drawn from rng.
// The input is never mutated; callers own the pool as configuration.
func ShufflePrompts(rng *rand.Rand, pool []string) []string {
	shuffled := make([]string, len(pool))
	copy(shuffled, pool)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}

// BuildTurnOrder freezes the actor rotation for a game. Registry scan
// order is not guaranteed stable, so the order is made deterministic by
// sorting attendee ids; round n's actor is the id at index n-1.
func BuildTurnOrder(attendeeIDs []string) []string {
	order := make([]string, len(attendeeIDs))
	copy(order, attendeeIDs)
	sort.Strings(order)
	return order
}

// AssignPrompts pairs each turn-order slot with one shuffled prompt.
// There is no wraparound: a game with more players than prompts cannot
// start.
func AssignPrompts(turnOrder, shuffled []string) (map[string]string, error) {
	if len(turnOrder) == 0 {
		return nil, ErrNoParticipants
	}
	if len(turnOrder) > len(shuffled) {
		return nil, ErrPoolExhausted
	}
	assigned := make(map[string]string, len(turnOrder))
	for i, attendee := range turnOrder {
		assigned[attendee] = shuffled[i]
	}
	return assigned, nil
}

// ScoreGuess reports whether a chat line counts as a correct guess of
// the active prompt. Matching is case-insensitive and ignores
// surrounding whitespace; anything looser would turn ordinary chat into
// accidental wins.
func ScoreGuess(guess, activePrompt string) bool {
	g := strings.ToLower(strings.TrimSpace(guess))
	p := strings.ToLower(strings.TrimSpace(activePrompt))
	return p != "" && g == p
}

// ComputeLeaderboard joins a game snapshot with resolved display names.
// The board lists everyone who has scored; participants with no points
// yet, and participants whose name is unknown (omitted rather than
// shown blank), do not appear.
func ComputeLeaderboard(snapshot []Participation, names map[string]string) map[string]int {
	board := make(map[string]int)
	for _, row := range snapshot {
		name := names[row.AttendeeID]
		if name == "" || row.Points == 0 {
			continue
		}
		board[name] += row.Points
	}
	return board
}

// AdvanceRound yields the round after current, or done=true when the
// rotation is exhausted. current must already have been played:
// round numbers are 1-based and never exceed len(turnOrder).
func AdvanceRound(current int, turnOrder []string, prompts map[string]string) (next NextRound, done bool) {
	if current >= len(turnOrder) {
		return NextRound{}, true
	}
	actor := turnOrder[current]
	return NextRound{
		Number: current + 1,
		Actor:  actor,
		Movie:  prompts[actor],
	}, false
}
