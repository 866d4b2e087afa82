package engine

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
)

// Card represents a single slot in the grid
type Card struct {
	ID        string `json:"id"`
	Value     int    `json:"value"` // Cards sharing a value form a pair
	IsFaceUp  bool   `json:"face_up"`
	IsMatched bool   `json:"matched"`
	Count     int    `json:"count"` // Times this slot was flipped face-up
}

// NewDeck builds two face-down cards for each of pairs values and shuffles them.
// A non-positive pairs yields an empty deck.
func NewDeck(pairs int) []Card {
	return newDeck(pairs, nil)
}

func newDeck(pairs int, rng *rand.Rand) []Card {
	if pairs <= 0 {
		return []Card{}
	}

	cards := make([]Card, 0, pairs*MatchSize)
	for value := 1; value <= pairs; value++ {
		for i := 0; i < MatchSize; i++ {
			cards = append(cards, Card{
				ID:    uuid.NewString(),
				Value: value,
			})
		}
	}

	swap := func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	}
	if rng != nil {
		rng.Shuffle(len(cards), swap)
	} else {
		rand.Shuffle(len(cards), swap)
	}

	return cards
}

// validateDeck checks that a caller-supplied deck could have been produced by
// NewDeck and played through the engine.
func validateDeck(cards []Card) error {
	ids := make(map[string]bool, len(cards))
	values := make(map[int]int)
	matched := make(map[int]int)
	upValues := make(map[int]bool)
	faceUp := 0

	for i, c := range cards {
		if c.ID == "" {
			return invalidDeck("card %d has no id", i)
		}
		if ids[c.ID] {
			return invalidDeck("duplicate card id %q", c.ID)
		}
		ids[c.ID] = true
		values[c.Value]++

		if c.Count < 0 {
			return invalidDeck("card %q has negative count %d", c.ID, c.Count)
		}
		if c.IsMatched && !c.IsFaceUp {
			return invalidDeck("card %q is matched but face down", c.ID)
		}
		if c.IsMatched {
			matched[c.Value]++
		}
		if c.IsFaceUp && !c.IsMatched {
			if upValues[c.Value] {
				return invalidDeck("value %d is face up twice but not matched", c.Value)
			}
			upValues[c.Value] = true
			faceUp++
		}
	}

	for value, n := range values {
		if n != MatchSize {
			return invalidDeck("value %d appears %d times, want %d", value, n, MatchSize)
		}
		if m := matched[value]; m != 0 && m != n {
			return invalidDeck("value %d is matched on %d of %d cards", value, m, n)
		}
	}

	if faceUp > MatchSize {
		return invalidDeck("%d unmatched cards face up, at most %d allowed", faceUp, MatchSize)
	}

	return nil
}

func invalidDeck(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidDeck, fmt.Sprintf(format, args...))
}
