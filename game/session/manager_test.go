package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/memorygame/game/engine"
)

func createTestGame(t *testing.T) engine.Game {
	t.Helper()
	game, err := engine.New(
		engine.WithDifficulty(engine.Easy),
		engine.WithCards([]engine.Card{
			{ID: "c0", Value: 1},
			{ID: "c1", Value: 2},
			{ID: "c2", Value: 1},
			{ID: "c3", Value: 2},
		}),
	)
	if err != nil {
		t.Fatalf("Failed to create game: %v", err)
	}
	return game
}

// newTestManager returns a manager whose clock the test controls
func newTestManager() (*Manager, *time.Time) {
	now := time.Date(2024, 12, 1, 10, 0, 0, 0, time.UTC)
	m := NewManager()
	m.now = func() time.Time { return now }
	return m, &now
}

func TestManager_Create(t *testing.T) {
	manager := NewManager()
	game := createTestGame(t)

	t.Run("create with custom ID", func(t *testing.T) {
		session, err := manager.Create("test-session", game)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if session.ID != "test-session" {
			t.Errorf("Expected session ID 'test-session', got '%s'", session.ID)
		}
		if len(session.Game.Cards()) != 4 {
			t.Errorf("Expected 4 cards, got %d", len(session.Game.Cards()))
		}
		if session.Generation != 0 {
			t.Errorf("Expected generation 0, got %d", session.Generation)
		}
	})

	t.Run("create with auto-generated ID", func(t *testing.T) {
		session, err := manager.Create("", game)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if len(session.ID) != 4 {
			t.Errorf("Expected 4-character session ID, got %q", session.ID)
		}
	})

	t.Run("duplicate session ID", func(t *testing.T) {
		_, err := manager.Create("test-session", game)
		if !errors.Is(err, ErrSessionAlreadyExists) {
			t.Errorf("Expected ErrSessionAlreadyExists, got %v", err)
		}
	})

	t.Run("case-insensitive duplicate check", func(t *testing.T) {
		_, err := manager.Create("TEST-SESSION", game)
		if !errors.Is(err, ErrSessionAlreadyExists) {
			t.Errorf("Expected ErrSessionAlreadyExists for case variant, got %v", err)
		}
	})
}

func TestManager_Get(t *testing.T) {
	manager := NewManager()
	created, _ := manager.Create("get-test", createTestGame(t))

	t.Run("get existing session", func(t *testing.T) {
		session, err := manager.Get("get-test")
		if err != nil {
			t.Fatalf("Failed to get session: %v", err)
		}
		if session.ID != created.ID {
			t.Errorf("Expected session ID '%s', got '%s'", created.ID, session.ID)
		}
	})

	t.Run("case-insensitive get", func(t *testing.T) {
		session, err := manager.Get("GET-TEST")
		if err != nil {
			t.Fatalf("Failed to get session with different case: %v", err)
		}
		if session.ID != "get-test" {
			t.Errorf("Expected original ID to be kept, got %s", session.ID)
		}
	})

	t.Run("get non-existent session", func(t *testing.T) {
		_, err := manager.Get("non-existent")
		if !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestManager_GetReturnsCopy(t *testing.T) {
	manager := NewManager()
	manager.Create("copy-test", createTestGame(t))

	session, _ := manager.Get("copy-test")
	session.Game = session.Game.Flip("c0")
	session.Generation = 99

	stored, _ := manager.Get("copy-test")
	if stored.Game.Attempts() != 0 {
		t.Errorf("Expected stored game untouched, got %d attempts", stored.Game.Attempts())
	}
	if stored.Generation != 0 {
		t.Errorf("Expected stored generation 0, got %d", stored.Generation)
	}
}

func TestManager_Update(t *testing.T) {
	manager, now := newTestManager()
	session, _ := manager.Create("update-test", createTestGame(t))

	*now = now.Add(time.Minute)
	updated, err := manager.Update("UPDATE-TEST", session.Game.Flip("c0"))
	if err != nil {
		t.Fatalf("Failed to update session: %v", err)
	}

	if updated.Generation != 1 {
		t.Errorf("Expected generation 1, got %d", updated.Generation)
	}
	if updated.Game.Attempts() != 1 {
		t.Errorf("Expected attempts 1, got %d", updated.Game.Attempts())
	}
	if !updated.LastAccessedAt.Equal(*now) {
		t.Errorf("Expected last accessed %v, got %v", *now, updated.LastAccessedAt)
	}

	updated, _ = manager.Update("update-test", updated.Game.Flip("c2"))
	if updated.Generation != 2 {
		t.Errorf("Expected generation 2, got %d", updated.Generation)
	}

	if _, err := manager.Update("missing", session.Game); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_Delete(t *testing.T) {
	manager := NewManager()
	game := createTestGame(t)
	manager.Create("delete-test", game)

	t.Run("delete existing session", func(t *testing.T) {
		if err := manager.Delete("delete-test"); err != nil {
			t.Fatalf("Failed to delete session: %v", err)
		}
		if _, err := manager.Get("delete-test"); !errors.Is(err, ErrSessionNotFound) {
			t.Error("Expected session to be deleted")
		}
	})

	t.Run("delete non-existent session", func(t *testing.T) {
		if err := manager.Delete("non-existent"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("case-insensitive delete", func(t *testing.T) {
		manager.Create("case-test", game)
		if err := manager.Delete("CASE-TEST"); err != nil {
			t.Fatalf("Failed to delete with different case: %v", err)
		}
		if manager.Count() != 0 {
			t.Errorf("Expected 0 sessions, got %d", manager.Count())
		}
	})
}

func TestManager_List(t *testing.T) {
	manager := NewManager()
	game := createTestGame(t)

	for _, id := range []string{"list-1", "list-2", "list-3"} {
		if _, err := manager.Create(id, game); err != nil {
			t.Fatalf("Failed to create %s: %v", id, err)
		}
	}

	sessions := manager.List()
	if len(sessions) != 3 {
		t.Fatalf("Expected 3 sessions, got %d", len(sessions))
	}

	found := make(map[string]bool)
	for _, s := range sessions {
		found[s.ID] = true
	}
	for _, id := range []string{"list-1", "list-2", "list-3"} {
		if !found[id] {
			t.Errorf("Session %s not found in list", id)
		}
	}
}

func TestManager_CleanupExpired(t *testing.T) {
	manager, now := newTestManager()
	game := createTestGame(t)

	manager.Create("expired", game)
	*now = now.Add(90 * time.Minute)
	manager.Create("active", game)

	deleted := manager.CleanupExpiredSessions(time.Hour)
	if deleted != 1 {
		t.Errorf("Expected 1 session to be deleted, got %d", deleted)
	}

	if _, err := manager.Get("expired"); !errors.Is(err, ErrSessionNotFound) {
		t.Error("Expected expired session to be deleted")
	}
	if _, err := manager.Get("active"); err != nil {
		t.Error("Expected active session to still exist")
	}
}

func TestManager_UpdateLastAccessed(t *testing.T) {
	manager, now := newTestManager()
	session, _ := manager.Create("access-test", createTestGame(t))
	originalTime := session.LastAccessedAt

	*now = now.Add(time.Second)
	if err := manager.UpdateLastAccessed("access-test"); err != nil {
		t.Fatalf("Failed to update last accessed: %v", err)
	}

	updated, _ := manager.Get("access-test")
	if !updated.LastAccessedAt.After(originalTime) {
		t.Error("Expected LastAccessedAt to be updated")
	}
	if updated.Generation != 0 {
		t.Errorf("Expected access not to bump generation, got %d", updated.Generation)
	}

	if err := manager.UpdateLastAccessed("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	manager := NewManager()
	game := createTestGame(t)
	manager.Create("shared", game)

	var wg sync.WaitGroup
	errs := make(chan error, 200)

	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func(id int) {
			defer wg.Done()
			if _, err := manager.Create(fmt.Sprintf("c-%d", id), game); err != nil {
				errs <- err
			}
		}(i)
		go func() {
			defer wg.Done()
			sess, err := manager.Get("shared")
			if err != nil {
				errs <- err
				return
			}
			if _, err := manager.Update("shared", sess.Game); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error during concurrent access: %v", err)
	}
	if manager.Count() != 101 {
		t.Errorf("Expected 101 sessions, got %d", manager.Count())
	}
	shared, _ := manager.Get("shared")
	if shared.Generation != 100 {
		t.Errorf("Expected generation 100, got %d", shared.Generation)
	}
}

func TestManager_SessionIsolation(t *testing.T) {
	manager := NewManager()
	game := createTestGame(t)

	session1, _ := manager.Create("iso-1", game)
	manager.Create("iso-2", game)

	manager.Update("iso-1", session1.Game.Flip("c0"))

	session2, _ := manager.Get("iso-2")
	if session2.Game.Attempts() != 0 {
		t.Error("Session 2 should not be affected by session 1 flips")
	}
}

func TestManager_SessionIDGeneration(t *testing.T) {
	manager := NewManager()
	game := createTestGame(t)

	generatedIDs := make(map[string]bool)
	for i := 0; i < 50; i++ {
		session, err := manager.Create("", game)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if generatedIDs[session.ID] {
			t.Errorf("Duplicate session ID generated: %s", session.ID)
		}
		generatedIDs[session.ID] = true

		if len(session.ID) != 4 {
			t.Errorf("Expected 4-character ID, got %d", len(session.ID))
		}
	}
}
