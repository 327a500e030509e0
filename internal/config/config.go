package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config describes all runtime settings for the server.
//
// Loaded once in main, validated, then passed down explicitly.
type Config struct {
	Env string // dev|stage|prod

	Log struct {
		Format string // text|json
		Level  string // debug|info|warn|error
	}

	HTTP struct {
		Addr              string
		ReadHeaderTimeout time.Duration
		ReadTimeout       time.Duration
		WriteTimeout      time.Duration
		IdleTimeout       time.Duration
		ShutdownTimeout   time.Duration
		AllowedOrigins    []string
	}

	// Postgres keeps the completed match history; empty URL disables it.
	Postgres struct {
		URL           string
		RunMigrations bool
	}

	// Redis keeps live match snapshots; empty Addr keeps them in memory.
	Redis struct {
		Addr     string
		DB       int
		MatchTTL time.Duration
	}

	Game struct {
		DefaultOvers int
		MaxOvers     int
		NameMaxLen   int
		AIName       string
	}
}

// LoadFromEnv reads the environment, after merging an optional .env file
// (ENV_FILE, default ".env"). Variables already set win over the file.
func LoadFromEnv() (Config, error) {
	if err := loadDotEnv(envString("ENV_FILE", ".env")); err != nil {
		return Config{}, err
	}

	var c Config

	c.Env = envString("APP_ENV", "dev")
	c.Log.Format = envString("LOG_FORMAT", "text")
	c.Log.Level = envString("LOG_LEVEL", "info")

	port := envString("PORT", "8080")
	c.HTTP.Addr = envString("HTTP_ADDR", ":"+port)
	c.HTTP.ReadHeaderTimeout = envDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second)
	c.HTTP.ReadTimeout = envDuration("HTTP_READ_TIMEOUT", 0)
	c.HTTP.WriteTimeout = envDuration("HTTP_WRITE_TIMEOUT", 0)
	c.HTTP.IdleTimeout = envDuration("HTTP_IDLE_TIMEOUT", 60*time.Second)
	c.HTTP.ShutdownTimeout = envDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second)
	c.HTTP.AllowedOrigins = envList("ALLOWED_ORIGINS")

	c.Postgres.URL = envString("DATABASE_URL", "")
	c.Postgres.RunMigrations = envBool("RUN_MIGRATIONS", false)

	c.Redis.Addr = envString("REDIS_ADDR", "")
	c.Redis.DB = envInt("REDIS_DB", 0)
	c.Redis.MatchTTL = envDuration("MATCH_TTL", 24*time.Hour)

	c.Game.DefaultOvers = envInt("GAME_DEFAULT_OVERS", 0)
	c.Game.MaxOvers = envInt("GAME_MAX_OVERS", 50)
	c.Game.NameMaxLen = envInt("GAME_NAME_MAX_LEN", 15)
	c.Game.AIName = envString("GAME_AI_NAME", "Computer")

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("HTTP addr is empty")
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("unsupported LOG_FORMAT=%q (want text|json)", c.Log.Format)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported LOG_LEVEL=%q (want debug|info|warn|error)", c.Log.Level)
	}
	if c.Postgres.RunMigrations && c.Postgres.URL == "" {
		return errors.New("RUN_MIGRATIONS requires DATABASE_URL")
	}
	if c.Redis.Addr != "" && c.Redis.MatchTTL <= 0 {
		return fmt.Errorf("MATCH_TTL must be positive, got %s", c.Redis.MatchTTL)
	}
	if c.Game.DefaultOvers < 0 || c.Game.MaxOvers < 0 {
		return errors.New("GAME_DEFAULT_OVERS and GAME_MAX_OVERS must not be negative")
	}
	if c.Game.MaxOvers > 0 && c.Game.DefaultOvers > c.Game.MaxOvers {
		return fmt.Errorf("GAME_DEFAULT_OVERS=%d exceeds GAME_MAX_OVERS=%d", c.Game.DefaultOvers, c.Game.MaxOvers)
	}
	if c.Game.NameMaxLen < 1 {
		return fmt.Errorf("GAME_NAME_MAX_LEN must be at least 1, got %d", c.Game.NameMaxLen)
	}
	if c.Env != "dev" && len(c.HTTP.AllowedOrigins) == 0 {
		return fmt.Errorf("refuse to accept any websocket origin in %s (set ALLOWED_ORIGINS)", c.Env)
	}
	return nil
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
