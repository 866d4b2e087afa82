// Package engine provides the core game logic for the memory match game.
//
// The engine package implements the game mechanics including:
//   - Paired, shuffled deck generation
//   - Card flipping with a two-card flip gate
//   - Match detection, scoring and attempt counting
//   - Round timing and completion detection
//   - Reset and difficulty changes
//
// Core Types:
//
// Game is an immutable value wrapping a GameData snapshot. Every transition
// (HandleClick, ResetUnmatchedCards, Reset, ResetWithDifficulty) returns a new
// Game and leaves the receiver untouched, so a driver simply replaces its
// reference after each call. Card is a single slot in the grid and Difficulty
// selects the deck size through the Level table.
//
// Usage:
//
//	game, err := engine.New(engine.WithDifficulty(engine.Medium))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	cards := game.Cards()
//	game = game.HandleClick(cards[0])
//	game = game.HandleClick(cards[1])
//	if game.HasFlippedTwoCardsWithoutMatch() {
//		// after a short delay
//		game = game.ResetUnmatchedCards()
//	}
//
// Timers:
//
// The engine owns no timers. Drivers arm their own flip-back timer when
// HasFlippedTwoCardsWithoutMatch reports true and poll Duration for live
// display. All "now" readings go through the Clock supplied with WithClock.
package engine
