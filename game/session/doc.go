// Package session provides in-memory session management for the memory game.
//
// Manager implements service.SessionManager:
//   - Thread-safe session storage and retrieval
//   - 4-character hex session IDs from crypto/rand
//   - Case-insensitive lookups
//   - Expiry of sessions that have not been accessed recently
//
// Each session holds an immutable engine.Game. Callers read copies of the
// session and store transitions with Update, which also advances the session
// generation so that stale timers can detect they have been overtaken.
//
// Usage:
//
//	manager := session.NewManager()
//
//	sess, err := manager.Create("", engine.NewDefault())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err = manager.Update(sess.ID, sess.Game.Flip(cardID))
//
//	// Periodic cleanup
//	removed := manager.CleanupExpiredSessions(24 * time.Hour)
//
// Sessions are never written to disk; a restart starts from an empty registry.
package session
