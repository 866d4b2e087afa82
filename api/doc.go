// Package api provides the HTTP REST API for the memory game.
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions - Create a session ({"difficulty": "easy|medium|hard"}, optional)
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Session info with the current view
//   - DELETE /api/sessions/{id} - Delete a session
//   - GET /api/sessions/{id}/qr - PNG QR code linking to the session
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Current game view
//   - POST /api/sessions/{id}/flip - Flip a card ({"card_id": "..."} or {"index": N})
//   - POST /api/sessions/{id}/reset-unmatched - Turn mismatched cards back now
//   - POST /api/sessions/{id}/reset - New round ({"difficulty": "..."}, optional)
//
// Other:
//   - GET /api/difficulties - Selectable difficulties
//   - GET /api/health - Liveness and session count
//   - GET /ws?session={id} - WebSocket view updates
//   - / - Static browser client
//
// A flip that leaves two different cards face up answers immediately with a
// "mismatch" event; the service turns the cards back after the configured
// delay and pushes the new view over the WebSocket.
//
// Errors are JSON with a status code derived from the service error:
//
//	{"error": "session zz99: session not found"}
//
// 404 for unknown sessions, 400 for unknown cards, difficulties or malformed
// bodies, 500 otherwise.
package api
