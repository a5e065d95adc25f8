package config

import "os"

// Config holds the engine's process-wide ambient settings, loaded once
// at startup from the environment (optionally seeded by a .env file —
// see cmd/server/main.go's godotenv.Load call).
type Config struct {
	// Server
	Port string

	// Database (optional: audit sink stays disabled without it)
	DatabaseURL string

	// ProfileDir, if set, is loaded into the fingerprint registry on its
	// first lookup (FPENGINE_PROFILE_DIR; see fingerprint.NewRegistry).
	ProfileDir string

	// AdminToken guards the control-plane surface; empty means
	// admin.New generates and logs a random one.
	AdminToken string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		ProfileDir:  os.Getenv("FPENGINE_PROFILE_DIR"),
		AdminToken:  os.Getenv("FPENGINE_ADMIN_TOKEN"),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
