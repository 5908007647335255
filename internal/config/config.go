package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "FLYCHESS_"

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Port         int
	HTTPAddr     string // empty disables the admin surface
	Players      int
	LogLevel     string
	OutboxSize   int
	WriteTimeout time.Duration
	MaxFrameSize int
	DatabaseURL  string // empty keeps results in memory
}

func Default() Config {
	return Config{
		Port:         12345,
		HTTPAddr:     ":8080",
		Players:      2,
		LogLevel:     "info",
		OutboxSize:   64,
		WriteTimeout: 5 * time.Second,
		MaxFrameSize: 1 << 20,
	}
}

// Load reads .env files (if present) into the environment and builds a Config
// from the defaults overridden by FLYCHESS_* variables.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv applies the variables found by lookup on top of Default.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	c := Default()
	var err error
	str := func(key string, dst *string) {
		if v, ok := lookup(envPrefix + key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		v, ok := lookup(envPrefix + key)
		if !ok || err != nil {
			return
		}
		n, perr := strconv.Atoi(v)
		if perr != nil {
			err = fmt.Errorf("%w: %s%s=%q is not a number", ErrInvalid, envPrefix, key, v)
			return
		}
		*dst = n
	}

	num("PORT", &c.Port)
	str("HTTP_ADDR", &c.HTTPAddr)
	num("PLAYERS", &c.Players)
	str("LOG_LEVEL", &c.LogLevel)
	num("OUTBOX_SIZE", &c.OutboxSize)
	num("MAX_FRAME_SIZE", &c.MaxFrameSize)
	str("DATABASE_URL", &c.DatabaseURL)
	if v, ok := lookup(envPrefix + "WRITE_TIMEOUT"); ok && err == nil {
		d, perr := time.ParseDuration(v)
		if perr != nil {
			err = fmt.Errorf("%w: %sWRITE_TIMEOUT=%q", ErrInvalid, envPrefix, v)
		}
		c.WriteTimeout = d
	}
	if err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	switch {
	case c.Port < 1 || c.Port > 65535:
		return fmt.Errorf("%w: port %d", ErrInvalid, c.Port)
	case c.Players < 1 || c.Players > 4:
		return fmt.Errorf("%w: players must be 1..4, got %d", ErrInvalid, c.Players)
	case c.OutboxSize < 1:
		return fmt.Errorf("%w: outbox size %d", ErrInvalid, c.OutboxSize)
	case c.WriteTimeout <= 0:
		return fmt.Errorf("%w: write timeout %s", ErrInvalid, c.WriteTimeout)
	case c.MaxFrameSize < 64:
		return fmt.Errorf("%w: max frame size %d", ErrInvalid, c.MaxFrameSize)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log level %q", ErrInvalid, c.LogLevel)
	}
	return nil
}

func (c Config) ListenAddr() string { return fmt.Sprintf(":%d", c.Port) }
