// Command analyze plays seeded rounds of every difficulty with a
// perfect-memory strategy and prints how many flips a round takes. It gives
// a baseline to compare human or agent scores against.
package main

import (
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"time"

	"github.com/wricardo/memorygame/game/engine"
)

// Stats summarizes simulated rounds of one difficulty
type Stats struct {
	Difficulty      engine.Difficulty
	Pairs           int
	Rounds          int
	MinAttempts     int
	MaxAttempts     int
	AvgAttempts     float64
	AvgFlipsPerCard float64
	MaxCardFlips    int
	Incomplete      int
}

func main() {
	rounds := flag.Int("rounds", 1000, "rounds to simulate per difficulty")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	if *rounds < 1 {
		fmt.Fprintln(os.Stderr, "rounds must be positive")
		os.Exit(2)
	}

	for _, d := range engine.Difficulties() {
		printStats(os.Stdout, simulate(d, *rounds, *seed))
	}
}

// simulate plays rounds games of difficulty d. The same seed always deals the
// same decks.
func simulate(d engine.Difficulty, rounds int, seed uint64) Stats {
	level, _ := d.Level()
	stats := Stats{Difficulty: d, Pairs: level.Pairs, Rounds: rounds}

	// Elapsed time is irrelevant here
	epoch := time.Unix(0, 0)
	clock := func() time.Time { return epoch }

	totalAttempts := 0
	for i := 0; i < rounds; i++ {
		game, err := engine.New(
			engine.WithDifficulty(d),
			engine.WithClock(clock),
			engine.WithRand(rand.New(rand.NewPCG(seed, uint64(i)))),
		)
		if err != nil {
			panic(err) // difficulties come from engine.Difficulties
		}

		game = playPerfect(game)
		if !game.HasMatchAllCards() {
			stats.Incomplete++
			continue
		}

		attempts := game.Attempts()
		totalAttempts += attempts
		if stats.MinAttempts == 0 || attempts < stats.MinAttempts {
			stats.MinAttempts = attempts
		}
		stats.MaxAttempts = max(stats.MaxAttempts, attempts)
		for _, n := range game.Counts() {
			stats.MaxCardFlips = max(stats.MaxCardFlips, n)
		}
	}

	if done := rounds - stats.Incomplete; done > 0 {
		stats.AvgAttempts = float64(totalAttempts) / float64(done)
		stats.AvgFlipsPerCard = stats.AvgAttempts / float64(level.Cards())
	}
	return stats
}

// playPerfect finishes a round remembering every value it has seen
func playPerfect(game engine.Game) engine.Game {
	seen := make(map[string]int) // card id -> value

	unmatched := func(id string) bool {
		c, ok := game.Card(id)
		return ok && !c.IsMatched
	}
	// knownTwin returns a seen unmatched card other than id holding value
	knownTwin := func(id string, value int) (string, bool) {
		for other, v := range seen {
			if other != id && v == value && unmatched(other) {
				return other, true
			}
		}
		return "", false
	}
	nextUnseen := func() (engine.Card, bool) {
		for _, c := range game.Cards() {
			if _, ok := seen[c.ID]; !ok && !c.IsMatched {
				return c, true
			}
		}
		return engine.Card{}, false
	}

	// Every card is flipped at most twice, so the loop is bounded
	for step := 0; step < 2*len(game.Cards()) && !game.HasMatchAllCards(); step++ {
		// Collect a pair already known from earlier misses
		if first, second, ok := knownPair(seen, unmatched); ok {
			game = game.Flip(first).Flip(second)
			continue
		}

		first, ok := nextUnseen()
		if !ok {
			break
		}
		game = game.HandleClick(first)
		seen[first.ID] = first.Value

		if twin, ok := knownTwin(first.ID, first.Value); ok {
			game = game.Flip(twin)
			continue
		}

		second, ok := nextUnseen()
		if !ok {
			break
		}
		game = game.HandleClick(second)
		seen[second.ID] = second.Value

		if game.HasFlippedTwoCardsWithoutMatch() {
			game = game.ResetUnmatchedCards()
		}
	}
	return game
}

// knownPair finds two seen unmatched cards with equal values
func knownPair(seen map[string]int, unmatched func(string) bool) (string, string, bool) {
	byValue := make(map[int]string)
	for id, v := range seen {
		if !unmatched(id) {
			continue
		}
		if other, ok := byValue[v]; ok {
			return other, id, true
		}
		byValue[v] = id
	}
	return "", "", false
}

func printStats(w io.Writer, s Stats) {
	fmt.Fprintf(w, "\n=== %s (%d pairs, %d cards) ===\n", s.Difficulty, s.Pairs, s.Pairs*engine.MatchSize)
	fmt.Fprintf(w, "Rounds: %d\n", s.Rounds)
	fmt.Fprintf(w, "Attempts: avg %.2f, min %d, max %d\n", s.AvgAttempts, s.MinAttempts, s.MaxAttempts)
	fmt.Fprintf(w, "Flips per card: avg %.2f, max %d\n", s.AvgFlipsPerCard, s.MaxCardFlips)
	if s.Incomplete > 0 {
		fmt.Fprintf(w, "WARNING: %d rounds did not finish\n", s.Incomplete)
	}
}
