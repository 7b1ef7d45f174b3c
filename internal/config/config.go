package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN          string
	HTTPAddr       string
	Environment    string
	LogLevel       string
	MigrationsPath string

	// Scheduling policy knobs.
	ToleranceMinutes     int    // buffer padded around candidate windows
	HorizonOccurrences   int    // hard cap per expansion
	HorizonMonths        int    // projection ceiling past now
	BusinessHoursStart   string // suggestion ladder window, "HH:MM"
	BusinessHoursEnd     string
	MaterializerInterval int // hours between horizon top-up runs
}

func Load() (*Config, error) {
	// .env is optional; plain environment variables win in production.
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		DBDSN:                os.Getenv("DB_DSN"),
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		Environment:          getEnv("ENV", "development"),
		LogLevel:             getEnv("LOG_LEVEL", ""),
		MigrationsPath:       getEnv("MIGRATIONS_PATH", "migrations"),
		ToleranceMinutes:     getEnvInt("CONFLICT_TOLERANCE_MINUTES", 15),
		HorizonOccurrences:   getEnvInt("HORIZON_MAX_OCCURRENCES", 365),
		HorizonMonths:        getEnvInt("HORIZON_MONTHS", 6),
		BusinessHoursStart:   getEnv("BUSINESS_HOURS_START", "06:00"),
		BusinessHoursEnd:     getEnv("BUSINESS_HOURS_END", "22:00"),
		MaterializerInterval: getEnvInt("MATERIALIZER_INTERVAL_HOURS", 24),
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}

	return cfg, nil
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
	if err != nil {
		log.Printf("Invalid %s=%q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}
