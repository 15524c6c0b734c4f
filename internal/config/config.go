package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config carries everything the server reads from the environment. A .env
// file in the working directory is honored but optional.
type Config struct {
	Port          int
	DatabaseURL   string
	QuestionsDir  string
	AllowedOrigin string
}

const (
	defaultPort         = 8080
	defaultQuestionsDir = "questions"
)

// Load reads the environment, after merging in .env if one exists.
func Load() (*Config, error) {
	// Missing .env is the normal production case.
	_ = godotenv.Load()

	cfg := &Config{
		Port:          defaultPort,
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		QuestionsDir:  defaultQuestionsDir,
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "*"),
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		if port <= 0 || port > 65535 {
			return nil, fmt.Errorf("PORT %d out of range", port)
		}
		cfg.Port = port
	}
	if v := os.Getenv("QUESTIONS_DIR"); v != "" {
		cfg.QuestionsDir = v
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
