package game

import (
	"errors"
	"math/rand"
	"testing"
)

func TestShufflePrompts_IsPermutationAndLeavesPoolAlone(t *testing.T) {
	pool := []string{"Argo", "Cube", "Fear", "Frozen", "Haven"}
	original := make([]string, len(pool))
	copy(original, pool)

	rng := rand.New(rand.NewSource(42))
	shuffled := ShufflePrompts(rng, pool)

	if len(shuffled) != len(pool) {
		t.Fatalf("want %d prompts, got %d", len(pool), len(shuffled))
	}
	seen := map[string]int{}
	for _, p := range shuffled {
		seen[p]++
	}
	for _, p := range pool {
		if seen[p] != 1 {
			t.Fatalf("prompt %q appears %d times in shuffle", p, seen[p])
		}
	}
	for i := range pool {
		if pool[i] != original[i] {
			t.Fatalf("pool mutated at %d: %q -> %q", i, original[i], pool[i])
		}
	}
}

func TestShufflePrompts_DeterministicPerSeed(t *testing.T) {
	a := ShufflePrompts(rand.New(rand.NewSource(7)), DefaultPrompts)
	b := ShufflePrompts(rand.New(rand.NewSource(7)), DefaultPrompts)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed diverged at %d: %q vs %q", i, a[i], b[i])
		}
	}
}

func TestBuildTurnOrder_SortsAndFreezes(t *testing.T) {
	ids := []string{"charlie", "alice", "bob"}
	order := BuildTurnOrder(ids)

	want := []string{"alice", "bob", "charlie"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("turn order[%d]: want %q, got %q", i, want[i], order[i])
		}
	}
	if ids[0] != "charlie" {
		t.Fatalf("input slice mutated: %v", ids)
	}
}

func TestAssignPrompts(t *testing.T) {
	cases := []struct {
		name      string
		turnOrder []string
		shuffled  []string
		wantErr   error
	}{
		{
			name:      "one prompt per slot",
			turnOrder: []string{"a", "b", "c"},
			shuffled:  []string{"P1", "P2", "P3", "P4"},
		},
		{
			name:      "more players than prompts",
			turnOrder: []string{"a", "b", "c"},
			shuffled:  []string{"P1", "P2"},
			wantErr:   ErrPoolExhausted,
		},
		{
			name:      "empty meeting",
			turnOrder: nil,
			shuffled:  []string{"P1"},
			wantErr:   ErrNoParticipants,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assigned, err := AssignPrompts(tc.turnOrder, tc.shuffled)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("want %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			for i, attendee := range tc.turnOrder {
				if assigned[attendee] != tc.shuffled[i] {
					t.Fatalf("slot %d: want %q, got %q", i, tc.shuffled[i], assigned[attendee])
				}
			}
		})
	}
}

func TestScoreGuess(t *testing.T) {
	cases := []struct {
		name   string
		guess  string
		prompt string
		want   bool
	}{
		{"exact match", "Parasite", "Parasite", true},
		{"case insensitive", "pArAsItE", "Parasite", true},
		{"surrounding whitespace", "  parasite ", "Parasite", true},
		{"wrong movie", "Frozen", "Parasite", false},
		{"substring is not a match", "Parasit", "Parasite", false},
		{"empty prompt never matches", "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ScoreGuess(tc.guess, tc.prompt); got != tc.want {
				t.Fatalf("ScoreGuess(%q, %q): got %v, want %v", tc.guess, tc.prompt, got, tc.want)
			}
		})
	}
}

func TestComputeLeaderboard_OmitsUnresolvedAndScoreless(t *testing.T) {
	snapshot := []Participation{
		{AttendeeID: "a", Points: 10},
		{AttendeeID: "b", Points: 20},
		{AttendeeID: "ghost", Points: 30},
		{AttendeeID: "c", Points: 0},
	}
	names := map[string]string{"a": "Alice", "b": "Bob", "c": "Carol"}

	board := ComputeLeaderboard(snapshot, names)
	if len(board) != 2 {
		t.Fatalf("want 2 entries, got %d: %v", len(board), board)
	}
	if board["Alice"] != 10 || board["Bob"] != 20 {
		t.Fatalf("unexpected board: %v", board)
	}
}

func TestAdvanceRound(t *testing.T) {
	turnOrder := []string{"a", "b", "c"}
	prompts := map[string]string{"a": "P1", "b": "P2", "c": "P3"}

	cases := []struct {
		name     string
		current  int
		wantDone bool
		want     NextRound
	}{
		{"round 1 to 2", 1, false, NextRound{Number: 2, Actor: "b", Movie: "P2"}},
		{"round 2 to 3", 2, false, NextRound{Number: 3, Actor: "c", Movie: "P3"}},
		{"final round exhausts rotation", 3, true, NextRound{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, done := AdvanceRound(tc.current, turnOrder, prompts)
			if done != tc.wantDone {
				t.Fatalf("done: got %v, want %v", done, tc.wantDone)
			}
			if next != tc.want {
				t.Fatalf("got %+v, want %+v", next, tc.want)
			}
		})
	}
}
