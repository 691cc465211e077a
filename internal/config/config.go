package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	DatabaseURL       string
	Neo4jURI          string
	Neo4jUser         string
	Neo4jPassword     string
	WorkerCount       int
	LogLevel          zerolog.Level
	ProfileDimensions int
}

// Load reads .env (if present) and then the LINEPARSE_* environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() *Config {
	return &Config{
		DatabaseURL:       getEnv("LINEPARSE_DATABASE_URL", "postgres://localhost:5432/lineparse?sslmode=disable"),
		Neo4jURI:          getEnv("LINEPARSE_NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:         getEnv("LINEPARSE_NEO4J_USER", "neo4j"),
		Neo4jPassword:     getEnv("LINEPARSE_NEO4J_PASSWORD", "password"),
		WorkerCount:       getEnvInt("LINEPARSE_WORKER_COUNT", 8),
		LogLevel:          getEnvLevel("LINEPARSE_LOG_LEVEL", zerolog.InfoLevel),
		ProfileDimensions: getEnvInt("LINEPARSE_PROFILE_DIMENSIONS", 32),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		log.Warn().Str("key", key).Str("value", v).Msg("Ignoring invalid integer setting")
		return fallback
	}
	return n
}

func getEnvLevel(key string, fallback zerolog.Level) zerolog.Level {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	lvl, err := zerolog.ParseLevel(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Ignoring invalid log level")
		return fallback
	}
	return lvl
}
