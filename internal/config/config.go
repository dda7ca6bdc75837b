package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment   string
	DBHost        string
	DBPort        string
	DBUsername    string
	DBPassword    string
	DBName        string
	DBSSLMode     string
	Port          string
	RedisAddr     string
	ObjectDir     string
	PublicBaseURL string
	Timezone      string
}

func NewConfig() (*Config, error) {
	env := os.Getenv("COURIER_ENV")
	if env == "" {
		env = "development"
	}

	if env == "development" {
		if err := godotenv.Load(); err != nil {
			fmt.Println("Warning: .env file not found, using environment variables")
		}
	}

	config := &Config{
		Environment:   env,
		DBHost:        getEnvOrDefault("COURIER_DB_HOST", "localhost"),
		DBPort:        getEnvOrDefault("COURIER_DB_PORT", "5432"),
		DBUsername:    getEnvOrDefault("COURIER_DB_USER", "courier"),
		DBPassword:    os.Getenv("COURIER_DB_PASSWORD"),
		DBName:        getEnvOrDefault("COURIER_DB_NAME", "courier"),
		DBSSLMode:     getEnvOrDefault("COURIER_DB_SSLMODE", "disable"),
		Port:          getEnvOrDefault("PORT", "8080"),
		RedisAddr:     os.Getenv("COURIER_REDIS_ADDR"),
		ObjectDir:     getEnvOrDefault("COURIER_OBJECT_DIR", "objects"),
		PublicBaseURL: getEnvOrDefault("COURIER_PUBLIC_BASE_URL", "http://localhost:8080"),
		Timezone:      getEnvOrDefault("TZ", "UTC"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.DBPassword == "" {
		return fmt.Errorf("COURIER_DB_PASSWORD is required")
	}

	return nil
}

func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUsername,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBSSLMode,
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
