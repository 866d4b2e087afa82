package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"
)

var (
	ErrInvalidDeck       = errors.New("invalid deck")
	ErrUnknownDifficulty = errors.New("unknown difficulty")
)

// Clock returns the current instant
type Clock func() time.Time

// GameData is the snapshot wrapped by a Game
type GameData struct {
	Start      *time.Time `json:"start,omitempty"` // First flip of the round
	End        *time.Time `json:"end,omitempty"`   // Set once every card is matched
	Score      int        `json:"score"`
	Attempts   int        `json:"attempts"`
	Cards      []Card     `json:"cards"`
	Difficulty Difficulty `json:"difficulty"`
}

// Game is an immutable memory game. Transitions return a new Game and never
// modify the receiver; the zero value is not usable, construct with New.
type Game struct {
	data  GameData
	clock Clock
	rng   *rand.Rand
}

// Option configures New
type Option func(*options)

type options struct {
	difficulty Difficulty
	clock      Clock
	rng        *rand.Rand
	cards      []Card
}

// WithDifficulty sets the starting difficulty (default Hard)
func WithDifficulty(d Difficulty) Option {
	return func(o *options) { o.difficulty = d }
}

// WithClock replaces time.Now for every timestamp the game records
func WithClock(clock Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithRand makes deck shuffles deterministic. The generator is shared by every
// Game derived from the result and is not safe for concurrent resets.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) { o.rng = rng }
}

// WithCards starts the round with a fixed deck instead of a shuffled one.
// Later resets deal fresh decks sized by the difficulty.
func WithCards(cards []Card) Option {
	return func(o *options) { o.cards = slices.Clone(cards) }
}

// New creates a game at the start of a round
func New(opts ...Option) (Game, error) {
	o := options{
		difficulty: DefaultDifficulty,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	level, ok := o.difficulty.Level()
	if !ok {
		return Game{}, fmt.Errorf("%w: %q", ErrUnknownDifficulty, o.difficulty)
	}
	if o.clock == nil {
		o.clock = time.Now
	}

	cards := o.cards
	if cards == nil {
		cards = newDeck(level.Pairs, o.rng)
	} else if err := validateDeck(cards); err != nil {
		return Game{}, err
	}

	return Game{
		data: GameData{
			Cards:      cards,
			Difficulty: o.difficulty,
		},
		clock: o.clock,
		rng:   o.rng,
	}, nil
}

// NewDefault creates a Hard game on the wall clock
func NewDefault() Game {
	g, err := New()
	if err != nil {
		panic(err) // default options are always valid
	}
	return g
}

// Data returns a copy of the wrapped snapshot
func (g Game) Data() GameData {
	d := g.data
	d.Cards = slices.Clone(g.data.Cards)
	if d.Start != nil {
		start := *d.Start
		d.Start = &start
	}
	if d.End != nil {
		end := *d.End
		d.End = &end
	}
	return d
}

// Cards returns the deck in display order
func (g Game) Cards() []Card {
	return slices.Clone(g.data.Cards)
}

// Card looks up a card of the current deck by id
func (g Game) Card(id string) (Card, bool) {
	i := g.indexOf(id)
	if i < 0 {
		return Card{}, false
	}
	return g.data.Cards[i], true
}

// Score returns the number of matched pairs
func (g Game) Score() int {
	return g.data.Score
}

// Attempts returns the number of successful flips this round
func (g Game) Attempts() int {
	return g.data.Attempts
}

// Counts returns each card's flip count in display order
func (g Game) Counts() []int {
	counts := make([]int, len(g.data.Cards))
	for i, c := range g.data.Cards {
		counts[i] = c.Count
	}
	return counts
}

// Difficulty returns the active difficulty
func (g Game) Difficulty() Difficulty {
	return g.data.Difficulty
}

// Started reports whether a card has been flipped this round
func (g Game) Started() bool {
	return g.data.Start != nil
}

// Elapsed returns the time since the first flip, frozen once the round ends
func (g Game) Elapsed() time.Duration {
	if g.data.Start == nil {
		return 0
	}

	end := g.now()
	if g.data.End != nil {
		end = *g.data.End
	}

	elapsed := end.Sub(*g.data.Start)
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// Duration formats Elapsed as "<minutes>m <seconds>s", truncating to the second
func (g Game) Duration() string {
	return FormatDuration(g.Elapsed())
}

// FormatDuration renders d the way Duration does
func FormatDuration(d time.Duration) string {
	totalSeconds := int64(d / time.Second)
	if totalSeconds < 0 {
		totalSeconds = 0
	}
	return fmt.Sprintf("%dm %ds", totalSeconds/60, totalSeconds%60)
}

// HasFlippedTwoCardsWithoutMatch reports whether two unmatched cards are face
// up and differ, i.e. the driver should flip them back
func (g Game) HasFlippedTwoCardsWithoutMatch() bool {
	up := faceUpUnmatched(g.data.Cards)
	return len(up) == MatchSize && !sameValue(g.data.Cards, up)
}

// HasMatchAllCards reports whether every card is matched (true for an empty deck)
func (g Game) HasMatchAllCards() bool {
	return allMatched(g.data.Cards)
}

// HandleClick flips card face up. It is a no-op when the card is not in the
// deck, is already face up or matched, or two unmatched cards are showing.
func (g Game) HandleClick(card Card) Game {
	return g.Flip(card.ID)
}

// Flip is HandleClick addressed by card id
func (g Game) Flip(id string) Game {
	i := g.indexOf(id)
	if i < 0 {
		return g
	}

	target := g.data.Cards[i]
	if target.IsFaceUp || target.IsMatched || len(faceUpUnmatched(g.data.Cards)) >= MatchSize {
		return g
	}

	now := g.now()
	next := g.data
	next.Cards = slices.Clone(g.data.Cards)
	next.Cards[i].IsFaceUp = true
	next.Cards[i].Count++
	next.Attempts++

	if up := faceUpUnmatched(next.Cards); len(up) == MatchSize && sameValue(next.Cards, up) {
		for _, j := range up {
			next.Cards[j].IsMatched = true
		}
		next.Score++
	}

	if next.Start == nil {
		next.Start = &now
	}
	if next.End == nil && allMatched(next.Cards) {
		next.End = &now
	}

	return g.with(next)
}

// ResetUnmatchedCards turns every face-up unmatched card back down
func (g Game) ResetUnmatchedCards() Game {
	next := g.data
	next.Cards = slices.Clone(g.data.Cards)
	for i := range next.Cards {
		if !next.Cards[i].IsMatched {
			next.Cards[i].IsFaceUp = false
		}
	}
	return g.with(next)
}

// Reset starts a new round at the same difficulty
func (g Game) Reset() Game {
	return g.ResetWithDifficulty(g.data.Difficulty)
}

// ResetWithDifficulty starts a new round with a deck sized for d. Unknown
// difficulties leave the game unchanged.
func (g Game) ResetWithDifficulty(d Difficulty) Game {
	level, ok := d.Level()
	if !ok {
		return g
	}
	return g.with(GameData{
		Cards:      newDeck(level.Pairs, g.rng),
		Difficulty: d,
	})
}

func (g Game) with(data GameData) Game {
	return Game{data: data, clock: g.clock, rng: g.rng}
}

func (g Game) now() time.Time {
	if g.clock == nil {
		return time.Now()
	}
	return g.clock()
}

func (g Game) indexOf(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(g.data.Cards, func(c Card) bool { return c.ID == id })
}

// faceUpUnmatched returns the indexes of face-up unmatched cards. The flip
// gate keeps this at MatchSize or fewer.
func faceUpUnmatched(cards []Card) []int {
	var up []int
	for i, c := range cards {
		if c.IsFaceUp && !c.IsMatched {
			up = append(up, i)
		}
	}
	if len(up) > MatchSize {
		panic(fmt.Sprintf("engine: %d unmatched cards face up", len(up)))
	}
	return up
}

func sameValue(cards []Card, idx []int) bool {
	for _, i := range idx[1:] {
		if cards[i].Value != cards[idx[0]].Value {
			return false
		}
	}
	return true
}

func allMatched(cards []Card) bool {
	for _, c := range cards {
		if !c.IsMatched {
			return false
		}
	}
	return true
}
