package service

import (
	"time"

	"github.com/wricardo/memorygame/game/engine"
)

// Event types reported in FlipResult
const (
	EventFlip      = "flip"
	EventMatch     = "match"
	EventMismatch  = "mismatch"
	EventCompleted = "completed"
	EventIgnored   = "ignored"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string            `json:"id"`
	Difficulty     engine.Difficulty `json:"difficulty"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	State          *GameView         `json:"state"`
}

// GameView is the client-facing rendering of a game. Card values are only
// revealed while a card is face up.
type GameView struct {
	SessionID              string            `json:"session_id"`
	Difficulty             engine.Difficulty `json:"difficulty"`
	Cards                  []CardView        `json:"cards"`
	Pairs                  int               `json:"pairs"`
	Score                  int               `json:"score"`
	Attempts               int               `json:"attempts"`
	Counts                 []int             `json:"counts"`
	Duration               string            `json:"duration"`
	ElapsedMs              int64             `json:"elapsed_ms"`
	TwoFlippedWithoutMatch bool              `json:"two_flipped_without_match"`
	Completed              bool              `json:"completed"`
	StartedAt              *time.Time        `json:"started_at,omitempty"`
	EndedAt                *time.Time        `json:"ended_at,omitempty"`
}

// CardView is one card as shown to a player
type CardView struct {
	Index   int    `json:"index"`
	ID      string `json:"id"`
	Value   int    `json:"value,omitempty"` // 0 while face down
	FaceUp  bool   `json:"face_up"`
	Matched bool   `json:"matched"`
	Count   int    `json:"count"`
}

// FlipResult contains the result of a flip
type FlipResult struct {
	Success bool        `json:"success"`
	Card    *CardView   `json:"card,omitempty"`
	State   *GameView   `json:"state"`
	Message string      `json:"message"`
	Events  []GameEvent `json:"events"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string    `json:"type"` // "flip", "match", "mismatch", "completed", "ignored"
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	CardID    string    `json:"card_id,omitempty"`
}

// DifficultyInfo describes a selectable difficulty
type DifficultyInfo struct {
	Name    engine.Difficulty `json:"name"`
	Pairs   int               `json:"pairs"`
	Cards   int               `json:"cards"`
	Default bool              `json:"default"`
}

// NewGameView renders game for clients of sessionID
func NewGameView(sessionID string, game engine.Game) *GameView {
	data := game.Data()
	view := &GameView{
		SessionID:              sessionID,
		Difficulty:             data.Difficulty,
		Cards:                  make([]CardView, len(data.Cards)),
		Pairs:                  len(data.Cards) / engine.MatchSize,
		Score:                  data.Score,
		Attempts:               data.Attempts,
		Counts:                 game.Counts(),
		Duration:               game.Duration(),
		ElapsedMs:              game.Elapsed().Milliseconds(),
		TwoFlippedWithoutMatch: game.HasFlippedTwoCardsWithoutMatch(),
		Completed:              game.Started() && game.HasMatchAllCards(),
		StartedAt:              data.Start,
		EndedAt:                data.End,
	}
	for i, c := range data.Cards {
		view.Cards[i] = newCardView(i, c)
	}
	return view
}

func newCardView(index int, c engine.Card) CardView {
	v := CardView{
		Index:   index,
		ID:      c.ID,
		FaceUp:  c.IsFaceUp,
		Matched: c.IsMatched,
		Count:   c.Count,
	}
	if c.IsFaceUp {
		v.Value = c.Value
	}
	return v
}
