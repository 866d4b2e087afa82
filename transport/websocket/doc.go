// Package websocket pushes game views to browsers watching a session.
//
// A single Hub goroutine owns the client registry. Clients connect to
// /ws?session=<id>, receive the current view once, then a state_update
// message after every change: REST calls broadcast through the API server and
// timed mismatch resets arrive through the service.Notifier interface, which
// Hub implements.
//
// Outgoing frames are JSON:
//
//	{"session_id": "a1b2", "event": "state_update", "state": {...}}
//
// Browsers act through the REST API; anything they send on the socket is
// read only to keep the connection alive.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	svc := service.NewGameService(sessions, service.Options{Notifier: hub})
//	hub.BroadcastToSession(id, view)
package websocket
