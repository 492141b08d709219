package game

// DefaultPrompts is the built-in movie pool. Games never reuse a
// prompt: each turn-order slot gets one entry of the shuffled pool, so
// a game can host at most len(DefaultPrompts) players.
var DefaultPrompts = []string{
	"Haven",
	"LimeLight",
	"Parasite",
	"Fear",
	"Wings",
	"Argo",
	"Goodfellas",
	"Jumanji",
	"Frozen",
	"Skyfall",
	"Valentine",
	"Cube",
	"Suspicion",
}
