// Package mcp exposes the memory game to AI agents over the Model Context
// Protocol.
//
// Client is a thin proxy: every tool call becomes a request against the REST
// API, so agents and browsers share the same sessions and WebSocket viewers
// see agent moves live.
//
// Tools:
//   - create_session, list_sessions, get_session
//   - game_state: board rendered as text
//   - flip_card: by index or card_id
//   - reset_unmatched, reset_game
//   - list_difficulties, game_instructions
//
// Board rendering, one cell per card numbered from 0:
//
//	 0 [##]    1 [ 2]
//	 2 ( 1)    3 ( 1)
//
// [##] is face down, [ n] face up, ( n) matched.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
//
//	// or behind POST /mcp
//	resp := client.GetMCPServer().HandleMessage(ctx, body)
package mcp
