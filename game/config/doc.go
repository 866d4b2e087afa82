// Package config loads server settings for the memory game.
//
// Settings are resolved in layers, later layers winning:
//   - built-in defaults (Default)
//   - an optional YAML file
//   - MEMORY_* and NGROK_* environment variables
//
// Command-line flags are applied on top by the caller.
//
// Usage:
//
//	settings, err := config.Load("memorygame.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(settings.Addr())
//
// Example file:
//
//	host: 0.0.0.0
//	port: 9090
//	default_difficulty: medium
//	mismatch_delay: 1500ms
//	session_ttl: 12h
package config
