package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	// Meshy API
	MeshyAPIKey     string
	MeshyAPIBaseURL string

	// Supabase storage
	SupabaseURL           string
	SupabaseKey           string
	SupabaseStorageBucket string

	// Firestore
	FirebaseProjectID       string
	FirebaseCredentialsPath string

	// Optional admin auth for destructive routes
	AdminJWTSecret string

	// Server
	Port           string
	Environment    string
	AllowedOrigins string
}

func Load() (*Config, error) {
	// .env is optional; deployments usually set env vars directly
	_ = godotenv.Load()

	cfg := &Config{
		MeshyAPIKey:     getEnv("MESHY_API_KEY", ""),
		MeshyAPIBaseURL: getEnv("MESHY_API_BASE_URL", "https://api.meshy.ai/openapi/v1"),

		SupabaseURL:           getEnv("SUPABASE_URL", ""),
		SupabaseKey:           getEnv("SUPABASE_KEY", ""),
		SupabaseStorageBucket: getEnv("SUPABASE_STORAGE_BUCKET", "models"),

		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "firebase-credentials.json"),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		Port:           getEnv("PORT", "5000"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "*"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.MeshyAPIKey == "" {
		return fmt.Errorf("MESHY_API_KEY is required")
	}
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabaseKey == "" {
		return fmt.Errorf("SUPABASE_KEY is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
