package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/memorygame/game/engine"
)

// Options configures a GameService
type Options struct {
	DefaultDifficulty engine.Difficulty
	MismatchDelay     time.Duration
	Clock             engine.Clock
	Notifier          Notifier
}

// pendingReset is an armed mismatch timer for one session
type pendingReset struct {
	timer      *time.Timer
	generation uint64
}

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	opts     Options
	timers   map[string]*pendingReset
	mu       sync.RWMutex
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, opts Options) GameService {
	if opts.DefaultDifficulty == "" {
		opts.DefaultDifficulty = engine.DefaultDifficulty
	}
	if opts.MismatchDelay <= 0 {
		opts.MismatchDelay = time.Second
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &gameServiceImpl{
		sessions: sessions,
		opts:     opts,
		timers:   make(map[string]*pendingReset),
	}
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, difficulty engine.Difficulty) (*SessionInfo, error) {
	if difficulty == "" {
		difficulty = s.opts.DefaultDifficulty
	}

	game, err := s.newGame(difficulty)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", game)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return sessionInfo(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}
	return sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session and drops its pending timer
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.cancelTimer(sessionID)
	return nil
}

// GetGameState retrieves the current game view
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*GameView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}
	return NewGameView(sess.ID, sess.Game), nil
}

// Flip turns a card face up by id
func (s *gameServiceImpl) Flip(ctx context.Context, sessionID, cardID string) (*FlipResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	if _, ok := sess.Game.Card(cardID); !ok {
		return nil, fmt.Errorf("%w: no card %q in session %s", ErrInvalidCard, cardID, sess.ID)
	}
	return s.flip(sess, cardID)
}

// FlipAt turns a card face up by its position in the grid
func (s *gameServiceImpl) FlipAt(ctx context.Context, sessionID string, index int) (*FlipResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	cards := sess.Game.Cards()
	if index < 0 || index >= len(cards) {
		return nil, fmt.Errorf("%w: index %d out of range [0,%d)", ErrInvalidCard, index, len(cards))
	}
	return s.flip(sess, cards[index].ID)
}

// ResetUnmatched turns mismatched cards face down ahead of the timer
func (s *gameServiceImpl) ResetUnmatched(ctx context.Context, sessionID string) (*GameView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	s.cancelTimer(sess.ID)
	sess, err = s.sessions.Update(sess.ID, sess.Game.ResetUnmatchedCards())
	if err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}
	return NewGameView(sess.ID, sess.Game), nil
}

// Reset starts a new round. An empty difficulty keeps the current one.
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string, difficulty engine.Difficulty) (*GameView, error) {
	if difficulty != "" && !difficulty.Valid() {
		return nil, fmt.Errorf("%w: %q", engine.ErrUnknownDifficulty, difficulty)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	s.cancelTimer(sess.ID)

	next := sess.Game.Reset()
	if difficulty != "" {
		next = sess.Game.ResetWithDifficulty(difficulty)
	}

	sess, err = s.sessions.Update(sess.ID, next)
	if err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}
	return NewGameView(sess.ID, sess.Game), nil
}

// ListDifficulties returns the selectable difficulties, easiest first
func (s *gameServiceImpl) ListDifficulties(ctx context.Context) ([]*DifficultyInfo, error) {
	var result []*DifficultyInfo
	for _, d := range engine.Difficulties() {
		level, _ := d.Level()
		result = append(result, &DifficultyInfo{
			Name:    d,
			Pairs:   level.Pairs,
			Cards:   level.Cards(),
			Default: d == s.opts.DefaultDifficulty,
		})
	}
	return result, nil
}

// flip applies a click to sess and arms the mismatch timer when needed.
// Callers hold s.mu.
func (s *gameServiceImpl) flip(sess *Session, cardID string) (*FlipResult, error) {
	now := s.opts.Clock()
	prev := sess.Game
	next := prev.Flip(cardID)

	if next.Attempts() == prev.Attempts() {
		card, _ := prev.Card(cardID)
		msg := ignoredReason(prev, card)
		return &FlipResult{
			Success: false,
			State:   NewGameView(sess.ID, prev),
			Message: msg,
			Events: []GameEvent{{
				Type:      EventIgnored,
				Message:   msg,
				Timestamp: now,
				CardID:    cardID,
			}},
		}, nil
	}

	sess, err := s.sessions.Update(sess.ID, next)
	if err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	card, _ := next.Card(cardID)
	index := cardIndex(next, cardID)
	cv := newCardView(index, card)

	events := []GameEvent{{
		Type:      EventFlip,
		Message:   fmt.Sprintf("Card %d shows %d", index, card.Value),
		Timestamp: now,
		CardID:    cardID,
	}}
	msg := events[0].Message

	switch {
	case card.IsMatched:
		msg = fmt.Sprintf("Match! Pair of %d found. Score: %d", card.Value, next.Score())
		events = append(events, GameEvent{Type: EventMatch, Message: msg, Timestamp: now, CardID: cardID})
	case next.HasFlippedTwoCardsWithoutMatch():
		msg = fmt.Sprintf("No match. Cards turn back in %s", s.opts.MismatchDelay)
		events = append(events, GameEvent{Type: EventMismatch, Message: msg, Timestamp: now, CardID: cardID})
		s.armTimer(sess)
	}

	if next.HasMatchAllCards() {
		msg = fmt.Sprintf("All pairs found in %s with %d attempts", next.Duration(), next.Attempts())
		events = append(events, GameEvent{Type: EventCompleted, Message: msg, Timestamp: now})
	}

	return &FlipResult{
		Success: true,
		Card:    &cv,
		State:   NewGameView(sess.ID, sess.Game),
		Message: msg,
		Events:  events,
	}, nil
}

// armTimer schedules ResetUnmatchedCards for the generation just stored.
// Callers hold s.mu.
func (s *gameServiceImpl) armTimer(sess *Session) {
	s.cancelTimer(sess.ID)

	key := strings.ToLower(sess.ID)
	generation := sess.Generation
	p := &pendingReset{generation: generation}
	p.timer = time.AfterFunc(s.opts.MismatchDelay, func() {
		s.resolveMismatch(key, generation)
	})
	s.timers[key] = p
}

// cancelTimer stops a pending mismatch reset. Callers hold s.mu.
func (s *gameServiceImpl) cancelTimer(sessionID string) {
	key := strings.ToLower(sessionID)
	if p, ok := s.timers[key]; ok {
		p.timer.Stop()
		delete(s.timers, key)
	}
}

// resolveMismatch runs when a mismatch timer fires. It only applies when no
// other transition was stored since the timer was armed.
func (s *gameServiceImpl) resolveMismatch(key string, generation uint64) {
	s.mu.Lock()
	if p, ok := s.timers[key]; ok && p.generation == generation {
		delete(s.timers, key)
	}

	sess, err := s.sessions.Get(key)
	if err != nil || sess.Generation != generation || !sess.Game.HasFlippedTwoCardsWithoutMatch() {
		s.mu.Unlock()
		return
	}

	sess, err = s.sessions.Update(sess.ID, sess.Game.ResetUnmatchedCards())
	if err != nil {
		s.mu.Unlock()
		log.Printf("Failed to reset unmatched cards for session %s: %v", key, err)
		return
	}
	view := NewGameView(sess.ID, sess.Game)
	s.mu.Unlock()

	if s.opts.Notifier != nil {
		s.opts.Notifier.BroadcastToSession(sess.ID, view)
	}
}

func (s *gameServiceImpl) newGame(difficulty engine.Difficulty) (engine.Game, error) {
	return engine.New(engine.WithDifficulty(difficulty), engine.WithClock(s.opts.Clock))
}

// touch loads a session and records the access
func (s *gameServiceImpl) touch(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

func sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		Difficulty:     sess.Game.Difficulty(),
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		State:          NewGameView(sess.ID, sess.Game),
	}
}

func ignoredReason(game engine.Game, card engine.Card) string {
	switch {
	case card.IsMatched:
		return "Card is already matched"
	case card.IsFaceUp:
		return "Card is already face up"
	case game.HasFlippedTwoCardsWithoutMatch():
		return "Two cards are already showing; wait for them to turn back"
	default:
		return "Flip ignored"
	}
}

func cardIndex(game engine.Game, cardID string) int {
	for i, c := range game.Cards() {
		if c.ID == cardID {
			return i
		}
	}
	return -1
}
