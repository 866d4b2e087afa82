package service

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/memorygame/game/engine"
)

var ErrInvalidCard = errors.New("invalid card")

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, difficulty engine.Difficulty) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	Flip(ctx context.Context, sessionID, cardID string) (*FlipResult, error)
	FlipAt(ctx context.Context, sessionID string, index int) (*FlipResult, error)
	ResetUnmatched(ctx context.Context, sessionID string) (*GameView, error)
	Reset(ctx context.Context, sessionID string, difficulty engine.Difficulty) (*GameView, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*GameView, error)

	// Difficulties
	ListDifficulties(ctx context.Context) ([]*DifficultyInfo, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, game engine.Game) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	Update(id string, game engine.Game) (*Session, error)
	UpdateLastAccessed(id string) error
}

// Notifier receives views produced outside a request, such as timed
// mismatch resets
type Notifier interface {
	BroadcastToSession(sessionID string, view *GameView)
}

// Session represents an active game session. Generation increases with every
// stored transition.
type Session struct {
	ID             string
	Game           engine.Game
	Generation     uint64
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
