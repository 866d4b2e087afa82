package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/memorygame/game/engine"
)

var ErrInvalidSettings = errors.New("invalid settings")

// Settings holds everything the server and drivers need at startup
type Settings struct {
	Host              string            `yaml:"host" env:"MEMORY_HOST"`
	Port              int               `yaml:"port" env:"MEMORY_PORT"`
	DefaultDifficulty engine.Difficulty `yaml:"default_difficulty" env:"MEMORY_DEFAULT_DIFFICULTY"`
	MismatchDelay     time.Duration     `yaml:"mismatch_delay" env:"MEMORY_MISMATCH_DELAY"`
	SessionTTL        time.Duration     `yaml:"session_ttl" env:"MEMORY_SESSION_TTL"`
	CleanupInterval   time.Duration     `yaml:"cleanup_interval" env:"MEMORY_CLEANUP_INTERVAL"`
	StaticDir         string            `yaml:"static_dir" env:"MEMORY_STATIC_DIR"`
	Debug             bool              `yaml:"debug" env:"MEMORY_DEBUG"`
	Ngrok             NgrokSettings     `yaml:"ngrok"`
}

// NgrokSettings configures the optional public tunnel
type NgrokSettings struct {
	Enabled   bool   `yaml:"enabled" env:"NGROK_ENABLED"`
	AuthToken string `yaml:"-" env:"NGROK_AUTHTOKEN"`
	Domain    string `yaml:"domain" env:"NGROK_DOMAIN"`
}

// Default returns the built-in settings
func Default() Settings {
	return Settings{
		Host:              "localhost",
		Port:              8080,
		DefaultDifficulty: engine.DefaultDifficulty,
		MismatchDelay:     time.Second,
		SessionTTL:        24 * time.Hour,
		CleanupInterval:   time.Hour,
		StaticDir:         "./static",
	}
}

// Load resolves settings from defaults, the YAML file at path and the
// environment. An empty path or a missing file skips the file layer.
func Load(path string) (Settings, error) {
	s := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &s); err != nil {
				return Settings{}, fmt.Errorf("failed to parse settings file %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Settings{}, fmt.Errorf("failed to read settings file: %w", err)
		}
	}

	// Only variables that are set override the fields
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks ranges and the difficulty name
func (s Settings) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidSettings, s.Port)
	}
	if !s.DefaultDifficulty.Valid() {
		return fmt.Errorf("%w: default_difficulty %q (want easy, medium or hard)", ErrInvalidSettings, s.DefaultDifficulty)
	}
	if s.MismatchDelay <= 0 {
		return fmt.Errorf("%w: mismatch_delay must be positive", ErrInvalidSettings)
	}
	if s.SessionTTL <= 0 {
		return fmt.Errorf("%w: session_ttl must be positive", ErrInvalidSettings)
	}
	if s.CleanupInterval <= 0 {
		return fmt.Errorf("%w: cleanup_interval must be positive", ErrInvalidSettings)
	}
	return nil
}

// Addr returns host:port for net/http
func (s Settings) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
