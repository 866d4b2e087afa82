// Package service provides the business logic layer for the memory game.
//
// GameService sits between the transports (HTTP, WebSocket, MCP) and the
// engine. It owns:
//   - session lifecycle on top of a SessionManager
//   - card lookup by id or board index
//   - the mismatch timer that turns two unmatched cards back after a delay
//   - projection of engine state into GameView, which hides the values of
//     face-down cards
//
// Usage:
//
//	sessions := session.NewManager()
//	svc := service.NewGameService(sessions, service.Options{
//		MismatchDelay: time.Second,
//		Notifier:      hub,
//	})
//
//	info, err := svc.CreateSession(ctx, engine.Easy)
//	if err != nil {
//		log.Fatal(err)
//	}
//	result, err := svc.FlipAt(ctx, info.ID, 0)
//
// Mismatch handling:
//
// A flip that leaves two different cards face up schedules a reset. When the
// timer fires the service turns the cards back only if the session has not
// changed since; a manual ResetUnmatched, a new round or another flip
// supersedes it. The resulting view is pushed through the Notifier.
package service
