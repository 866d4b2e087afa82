package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/memorygame/game/engine"
	"github.com/wricardo/memorygame/game/service"
)

var errNotFound = errors.New("session not found")

// MockSessionManager implements service.SessionManager for testing
type MockSessionManager struct {
	sessions map[string]*service.Session
	mu       sync.Mutex
}

func NewMockSessionManager() *MockSessionManager {
	return &MockSessionManager{
		sessions: make(map[string]*service.Session),
	}
}

func (m *MockSessionManager) Create(id string, game engine.Game) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Generate ID if empty (mimics real session manager behavior)
	if id == "" {
		id = fmt.Sprintf("test_%d", len(m.sessions)+1)
	}
	if _, exists := m.sessions[id]; exists {
		return nil, errors.New("session already exists")
	}

	session := &service.Session{
		ID:             id,
		Game:           game,
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}
	m.sessions[id] = session
	cp := *session
	return &cp, nil
}

func (m *MockSessionManager) Get(id string) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[id]
	if !exists {
		return nil, errNotFound
	}
	cp := *session
	return &cp, nil
}

func (m *MockSessionManager) List() []*service.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		cp := *session
		result = append(result, &cp)
	}
	return result
}

func (m *MockSessionManager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; !exists {
		return errNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *MockSessionManager) Update(id string, game engine.Game) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[id]
	if !exists {
		return nil, errNotFound
	}
	session.Game = game
	session.Generation++
	cp := *session
	return &cp, nil
}

func (m *MockSessionManager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session, exists := m.sessions[id]; exists {
		session.LastAccessedAt = time.Now()
		return nil
	}
	return errNotFound
}

func (m *MockSessionManager) game(t *testing.T, id string) engine.Game {
	t.Helper()
	sess, err := m.Get(id)
	if err != nil {
		t.Fatalf("Session %s missing: %v", id, err)
	}
	return sess.Game
}

// MockNotifier records views pushed by the service
type MockNotifier struct {
	views chan *service.GameView
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{views: make(chan *service.GameView, 10)}
}

func (n *MockNotifier) BroadcastToSession(sessionID string, view *service.GameView) {
	n.views <- view
}

const testDelay = 50 * time.Millisecond

func setupService(t *testing.T) (service.GameService, *MockSessionManager, *MockNotifier) {
	t.Helper()
	return setupServiceWithDelay(t, testDelay)
}

func setupServiceWithDelay(t *testing.T, delay time.Duration) (service.GameService, *MockSessionManager, *MockNotifier) {
	t.Helper()
	sessions := NewMockSessionManager()
	notifier := NewMockNotifier()
	svc := service.NewGameService(sessions, service.Options{
		DefaultDifficulty: engine.Hard,
		MismatchDelay:     delay,
		Notifier:          notifier,
	})
	return svc, sessions, notifier
}

// pairIndexes returns the positions of one matching pair and one card that
// differs from it
func pairIndexes(t *testing.T, game engine.Game) (a, b, other int) {
	t.Helper()
	cards := game.Cards()
	a, b, other = 0, -1, -1
	for i := 1; i < len(cards); i++ {
		if cards[i].Value == cards[a].Value {
			b = i
		} else if other < 0 {
			other = i
		}
	}
	if b < 0 || other < 0 {
		t.Fatalf("Deck has no usable pair: %+v", cards)
	}
	return a, b, other
}

func hasEvent(events []service.GameEvent, eventType string) bool {
	for _, e := range events {
		if e.Type == eventType {
			return true
		}
	}
	return false
}

func TestCreateSession(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		difficulty engine.Difficulty
		wantCards  int
		wantLevel  engine.Difficulty
		wantErr    error
	}{
		{"default difficulty", "", 16, engine.Hard, nil},
		{"easy", engine.Easy, 4, engine.Easy, nil},
		{"medium", engine.Medium, 8, engine.Medium, nil},
		{"unknown", "ultra", 0, "", engine.ErrUnknownDifficulty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := svc.CreateSession(ctx, tt.difficulty)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Failed to create session: %v", err)
			}
			if info.Difficulty != tt.wantLevel {
				t.Errorf("Expected difficulty %s, got %s", tt.wantLevel, info.Difficulty)
			}
			if len(info.State.Cards) != tt.wantCards {
				t.Errorf("Expected %d cards, got %d", tt.wantCards, len(info.State.Cards))
			}
			if info.State.Duration != "0m 0s" {
				t.Errorf("Expected duration 0m 0s, got %s", info.State.Duration)
			}
		})
	}
}

func TestGetGameState_HidesFaceDownValues(t *testing.T) {
	svc, sessions, _ := setupService(t)
	ctx := context.Background()

	info, _ := svc.CreateSession(ctx, engine.Easy)
	a, _, _ := pairIndexes(t, sessions.game(t, info.ID))

	if _, err := svc.FlipAt(ctx, info.ID, a); err != nil {
		t.Fatalf("Flip failed: %v", err)
	}

	view, err := svc.GetGameState(ctx, info.ID)
	if err != nil {
		t.Fatalf("Failed to get state: %v", err)
	}

	for _, c := range view.Cards {
		if c.FaceUp && c.Value == 0 {
			t.Errorf("Expected face-up card %d to show its value", c.Index)
		}
		if !c.FaceUp && c.Value != 0 {
			t.Errorf("Expected face-down card %d to hide its value, got %d", c.Index, c.Value)
		}
	}
	if view.Attempts != 1 {
		t.Errorf("Expected attempts 1, got %d", view.Attempts)
	}
	if view.StartedAt == nil {
		t.Error("Expected started_at to be set")
	}
}

func TestFlip_Match(t *testing.T) {
	svc, sessions, notifier := setupService(t)
	ctx := context.Background()

	info, _ := svc.CreateSession(ctx, engine.Medium)
	game := sessions.game(t, info.ID)
	a, b, _ := pairIndexes(t, game)
	cards := game.Cards()

	first, err := svc.Flip(ctx, info.ID, cards[a].ID)
	if err != nil {
		t.Fatalf("Flip failed: %v", err)
	}
	if !first.Success || !hasEvent(first.Events, service.EventFlip) {
		t.Errorf("Expected successful flip event, got %+v", first)
	}
	if first.Card == nil || first.Card.Value != cards[a].Value {
		t.Errorf("Expected flipped card to reveal value %d, got %+v", cards[a].Value, first.Card)
	}

	second, err := svc.Flip(ctx, info.ID, cards[b].ID)
	if err != nil {
		t.Fatalf("Flip failed: %v", err)
	}
	if !hasEvent(second.Events, service.EventMatch) {
		t.Errorf("Expected match event, got %+v", second.Events)
	}
	if second.State.Score != 1 {
		t.Errorf("Expected score 1, got %d", second.State.Score)
	}
	if second.State.TwoFlippedWithoutMatch {
		t.Error("Expected no pending mismatch after a match")
	}

	select {
	case v := <-notifier.views:
		t.Errorf("Expected no timer after a match, got %+v", v)
	case <-time.After(3 * testDelay):
	}
}

func TestFlip_EventsUseClock(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	sessions := NewMockSessionManager()
	svc := service.NewGameService(sessions, service.Options{
		MismatchDelay: time.Hour,
		Clock:         func() time.Time { return fixed },
		Notifier:      NewMockNotifier(),
	})
	ctx := context.Background()

	info, _ := svc.CreateSession(ctx, engine.Easy)
	game := sessions.game(t, info.ID)
	a, _, other := pairIndexes(t, game)
	cards := game.Cards()

	if _, err := svc.Flip(ctx, info.ID, cards[a].ID); err != nil {
		t.Fatalf("Flip failed: %v", err)
	}
	result, err := svc.Flip(ctx, info.ID, cards[other].ID)
	if err != nil {
		t.Fatalf("Flip failed: %v", err)
	}

	for _, e := range result.Events {
		if !e.Timestamp.Equal(fixed) {
			t.Errorf("Expected %s event at %v, got %v", e.Type, fixed, e.Timestamp)
		}
	}
	if result.State.StartedAt == nil || !result.State.StartedAt.Equal(fixed) {
		t.Errorf("Expected started_at %v, got %v", fixed, result.State.StartedAt)
	}
}

func TestFlip_MismatchTimer(t *testing.T) {
	svc, sessions, notifier := setupService(t)
	ctx := context.Background()

	info, _ := svc.CreateSession(ctx, engine.Easy)
	a, _, other := pairIndexes(t, sessions.game(t, info.ID))

	svc.FlipAt(ctx, info.ID, a)
	result, err := svc.FlipAt(ctx, info.ID, other)
	if err != nil {
		t.Fatalf("Flip failed: %v", err)
	}
	if !hasEvent(result.Events, service.EventMismatch) {
		t.Errorf("Expected mismatch event, got %+v", result.Events)
	}
	if !result.State.TwoFlippedWithoutMatch {
		t.Error("Expected two flipped cards without match")
	}

	select {
	case view := <-notifier.views:
		if view.SessionID != info.ID {
			t.Errorf("Expected session %s, got %s", info.ID, view.SessionID)
		}
		for _, c := range view.Cards {
			if c.FaceUp {
				t.Errorf("Expected card %d face down after timer", c.Index)
			}
		}
		if view.Attempts != 2 {
			t.Errorf("Expected attempts 2, got %d", view.Attempts)
		}
	case <-time.After(time.Second):
		t.Fatal("Timer did not turn the cards back")
	}

	if sessions.game(t, info.ID).HasFlippedTwoCardsWithoutMatch() {
		t.Error("Expected stored game to be reset")
	}
}

func TestFlip_ResetCancelsTimer(t *testing.T) {
	svc, sessions, notifier := setupServiceWithDelay(t, 200*time.Millisecond)
	ctx := context.Background()

	info, _ := svc.CreateSession(ctx, engine.Easy)
	a, _, other := pairIndexes(t, sessions.game(t, info.ID))

	svc.FlipAt(ctx, info.ID, a)
	svc.FlipAt(ctx, info.ID, other)

	view, err := svc.Reset(ctx, info.ID, engine.Medium)
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if len(view.Cards) != 8 || view.Difficulty != engine.Medium {
		t.Errorf("Expected 8 medium cards, got %d %s", len(view.Cards), view.Difficulty)
	}
	if view.Attempts != 0 || view.Score != 0 {
		t.Errorf("Expected zeroed round, got %d/%d", view.Attempts, view.Score)
	}

	select {
	case v := <-notifier.views:
		t.Errorf("Expected cancelled timer, got push %+v", v)
	case <-time.After(400 * time.Millisecond):
	}
}

func TestFlip_StaleTimerIgnored(t *testing.T) {
	svc, sessions, notifier := setupServiceWithDelay(t, 200*time.Millisecond)
	ctx := context.Background()

	info, _ := svc.CreateSession(ctx, engine.Easy)
	a, _, other := pairIndexes(t, sessions.game(t, info.ID))

	svc.FlipAt(ctx, info.ID, a)
	svc.FlipAt(ctx, info.ID, other)

	// A manual reset overtakes the timer; the player flips again at once
	if _, err := svc.ResetUnmatched(ctx, info.ID); err != nil {
		t.Fatalf("ResetUnmatched failed: %v", err)
	}
	svc.FlipAt(ctx, info.ID, a)

	select {
	case v := <-notifier.views:
		t.Errorf("Expected no timer push, got %+v", v)
	case <-time.After(400 * time.Millisecond):
	}

	game := sessions.game(t, info.ID)
	if !game.Cards()[a].IsFaceUp {
		t.Error("Expected newly flipped card to stay face up")
	}
}

func TestFlip_Ignored(t *testing.T) {
	svc, sessions, _ := setupServiceWithDelay(t, time.Minute)
	ctx := context.Background()

	info, _ := svc.CreateSession(ctx, engine.Medium)
	game := sessions.game(t, info.ID)
	a, _, other := pairIndexes(t, game)

	svc.FlipAt(ctx, info.ID, a)

	again, err := svc.FlipAt(ctx, info.ID, a)
	if err != nil {
		t.Fatalf("Flip failed: %v", err)
	}
	if again.Success || !hasEvent(again.Events, service.EventIgnored) {
		t.Errorf("Expected ignored flip of face-up card, got %+v", again)
	}

	svc.FlipAt(ctx, info.ID, other)
	third := -1
	for i, c := range sessions.game(t, info.ID).Cards() {
		if !c.IsFaceUp {
			third = i
			break
		}
	}

	result, err := svc.FlipAt(ctx, info.ID, third)
	if err != nil {
		t.Fatalf("Flip failed: %v", err)
	}
	if result.Success {
		t.Error("Expected third flip to be ignored")
	}
	if result.State.Attempts != 2 {
		t.Errorf("Expected attempts 2, got %d", result.State.Attempts)
	}
	if sessions.game(t, info.ID).Attempts() != 2 {
		t.Error("Expected stored game unchanged")
	}
}

func TestFlip_InvalidCard(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	info, _ := svc.CreateSession(ctx, engine.Easy)

	if _, err := svc.Flip(ctx, info.ID, "no-such-card"); !errors.Is(err, service.ErrInvalidCard) {
		t.Errorf("Expected ErrInvalidCard, got %v", err)
	}
	for _, idx := range []int{-1, 4, 100} {
		if _, err := svc.FlipAt(ctx, info.ID, idx); !errors.Is(err, service.ErrInvalidCard) {
			t.Errorf("index %d: expected ErrInvalidCard, got %v", idx, err)
		}
	}
}

func TestFlip_Completed(t *testing.T) {
	svc, sessions, _ := setupService(t)
	ctx := context.Background()

	info, _ := svc.CreateSession(ctx, engine.Easy)
	cards := sessions.game(t, info.ID).Cards()

	byValue := make(map[int][]string)
	for _, c := range cards {
		byValue[c.Value] = append(byValue[c.Value], c.ID)
	}

	var last *service.FlipResult
	for _, ids := range byValue {
		for _, id := range ids {
			r, err := svc.Flip(ctx, info.ID, id)
			if err != nil {
				t.Fatalf("Flip failed: %v", err)
			}
			last = r
		}
	}

	if !hasEvent(last.Events, service.EventCompleted) {
		t.Errorf("Expected completed event, got %+v", last.Events)
	}
	if !last.State.Completed || last.State.EndedAt == nil {
		t.Error("Expected completed state with end time")
	}
	if last.State.Score != 2 || last.State.Attempts != 4 {
		t.Errorf("Expected score 2 attempts 4, got %d/%d", last.State.Score, last.State.Attempts)
	}
}

func TestSessionNotFound(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	calls := map[string]func() error{
		"GetSession":     func() error { _, err := svc.GetSession(ctx, "zzzz"); return err },
		"GetGameState":   func() error { _, err := svc.GetGameState(ctx, "zzzz"); return err },
		"Flip":           func() error { _, err := svc.Flip(ctx, "zzzz", "c"); return err },
		"FlipAt":         func() error { _, err := svc.FlipAt(ctx, "zzzz", 0); return err },
		"ResetUnmatched": func() error { _, err := svc.ResetUnmatched(ctx, "zzzz"); return err },
		"Reset":          func() error { _, err := svc.Reset(ctx, "zzzz", ""); return err },
		"DeleteSession":  func() error { return svc.DeleteSession(ctx, "zzzz") },
	}

	for name, call := range calls {
		if err := call(); !errors.Is(err, errNotFound) {
			t.Errorf("%s: expected wrapped not-found error, got %v", name, err)
		}
	}
}

func TestReset_KeepsDifficulty(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	info, _ := svc.CreateSession(ctx, engine.Medium)
	view, err := svc.Reset(ctx, info.ID, "")
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if view.Difficulty != engine.Medium || len(view.Cards) != 8 {
		t.Errorf("Expected medium with 8 cards, got %s with %d", view.Difficulty, len(view.Cards))
	}

	if _, err := svc.Reset(ctx, info.ID, "bogus"); !errors.Is(err, engine.ErrUnknownDifficulty) {
		t.Errorf("Expected ErrUnknownDifficulty, got %v", err)
	}
}

func TestListAndDeleteSessions(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	first, _ := svc.CreateSession(ctx, engine.Easy)
	svc.CreateSession(ctx, engine.Hard)

	list, err := svc.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 sessions, got %d", len(list))
	}

	if err := svc.DeleteSession(ctx, first.ID); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	list, _ = svc.ListSessions(ctx)
	if len(list) != 1 {
		t.Errorf("Expected 1 session after delete, got %d", len(list))
	}
}

func TestListDifficulties(t *testing.T) {
	svc, _, _ := setupService(t)

	list, err := svc.ListDifficulties(context.Background())
	if err != nil {
		t.Fatalf("ListDifficulties failed: %v", err)
	}

	want := []struct {
		name  engine.Difficulty
		cards int
	}{
		{engine.Easy, 4},
		{engine.Medium, 8},
		{engine.Hard, 16},
	}
	if len(list) != len(want) {
		t.Fatalf("Expected %d difficulties, got %d", len(want), len(list))
	}
	for i, w := range want {
		if list[i].Name != w.name || list[i].Cards != w.cards {
			t.Errorf("Expected %s/%d, got %s/%d", w.name, w.cards, list[i].Name, list[i].Cards)
		}
		if list[i].Default != (w.name == engine.Hard) {
			t.Errorf("Unexpected default flag on %s", w.name)
		}
	}
}
