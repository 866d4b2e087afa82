package engine

import (
	"fmt"
	"strings"
)

// Difficulty selects the grid size of a round
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"

	// MatchSize is the number of cards sharing one value
	MatchSize = 2

	DefaultDifficulty = Hard
)

// Level holds the deck parameters of a difficulty
type Level struct {
	Pairs int `json:"pairs"`
}

// Cards returns the total number of cards dealt for the level
func (l Level) Cards() int {
	return l.Pairs * MatchSize
}

// Level returns the deck parameters for d. The second result is false for
// values outside the Easy/Medium/Hard set.
func (d Difficulty) Level() (Level, bool) {
	switch d {
	case Easy:
		return Level{Pairs: 2}, true
	case Medium:
		return Level{Pairs: 4}, true
	case Hard:
		return Level{Pairs: 8}, true
	}
	return Level{}, false
}

// Valid reports whether d is one of the known difficulties
func (d Difficulty) Valid() bool {
	_, ok := d.Level()
	return ok
}

func (d Difficulty) String() string {
	return string(d)
}

// Difficulties lists every difficulty from smallest to largest grid
func Difficulties() []Difficulty {
	return []Difficulty{Easy, Medium, Hard}
}

// ParseDifficulty converts user input such as "Medium" into a Difficulty
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("%w: %q (want easy, medium or hard)", ErrUnknownDifficulty, s)
	}
	return d, nil
}
