package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL   string
	Port          string
	Env           string
	CatalogSource string // "postgres" or "file"
	RateCardPath  string
}

func Load() Config {
	// Best-effort .env loading for local development.
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	source := os.Getenv("CATALOG_SOURCE")
	if source == "" {
		source = "postgres"
	}
	return Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		Port:          port,
		Env:           os.Getenv("APP_ENV"),
		CatalogSource: source,
		RateCardPath:  os.Getenv("RATE_CARD_PATH"),
	}
}
