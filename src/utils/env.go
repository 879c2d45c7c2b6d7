package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const DEV_ENV_FILENAME = ".env.development"
const PROD_ENV_FILENAME = ".env.production"

// InitEnvironmentVariables loads the .env file for goEnv from
// <projectsDir>/daily-consolidator/src. Variables already set in the process
// environment win over the file.
func InitEnvironmentVariables(projectsDir string, goEnv string) error {
	// production reads its settings from the process environment only
	if os.Getenv("ENV") == "production" {
		log.Info("Running in production environment")
		return nil
	}

	if projectsDir == "" {
		return fmt.Errorf("InitEnvironmentVariables: projects dir not set")
	}

	envDir := filepath.Join(projectsDir, "daily-consolidator", "src")

	envFile := filepath.Join(envDir, DEV_ENV_FILENAME)
	if goEnv == "production" {
		envFile = filepath.Join(envDir, PROD_ENV_FILENAME)
	}

	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("InitEnvironmentVariables: failed to load %s file: %w", envFile, err)
	}

	return nil
}

func GetEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("GetEnv: %s not set", key)
	}

	return value, nil
}

func GetEnvOrDefault(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}
